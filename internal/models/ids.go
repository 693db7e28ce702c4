package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	ProductIDPrefix      = "prod_"
	RelationshipIDPrefix = "rel_"
	idSuffixLen          = 12
)

// NewID returns prefix followed by a 12 character random suffix.
func NewID(prefix string) string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + raw[:idSuffixLen]
}

// NewProductID returns a fresh product identifier.
func NewProductID() string { return NewID(ProductIDPrefix) }

// NewEntityID returns a fresh identifier carrying the prefix of t.
func NewEntityID(t EntityType) string { return NewID(t.IDPrefix()) }

// timestampLayout matches ISO-8601 UTC with millisecond precision.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// Timestamp formats t the way every stored timestamp is formatted.
func Timestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// Now returns the current time as a stored timestamp.
func Now() string {
	return Timestamp(time.Now())
}
