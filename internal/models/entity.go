// Package models defines the domain types for Product OS.
package models

// EntityType is the semantic kind of an entity.
type EntityType string

const (
	TypeCapture    EntityType = "capture"
	TypeProblem    EntityType = "problem"
	TypeHypothesis EntityType = "hypothesis"
	TypeExperiment EntityType = "experiment"
	TypeDecision   EntityType = "decision"
	TypeArtifact   EntityType = "artifact"
)

// EntityTypes lists every known entity type in display order.
var EntityTypes = []EntityType{
	TypeCapture,
	TypeProblem,
	TypeHypothesis,
	TypeExperiment,
	TypeDecision,
	TypeArtifact,
}

var idPrefixes = map[EntityType]string{
	TypeCapture:    "cap_",
	TypeProblem:    "prob_",
	TypeHypothesis: "hyp_",
	TypeExperiment: "exp_",
	TypeDecision:   "dec_",
	TypeArtifact:   "art_",
}

// Valid reports whether t is one of the known entity types.
func (t EntityType) Valid() bool {
	_, ok := idPrefixes[t]
	return ok
}

// Folder returns the pluralized directory name used for entities of type t.
func (t EntityType) Folder() string {
	if t == TypeHypothesis {
		return "hypotheses"
	}
	return string(t) + "s"
}

// IDPrefix returns the human-recognizable id prefix for t.
func (t EntityType) IDPrefix() string {
	if p, ok := idPrefixes[t]; ok {
		return p
	}
	return string(t) + "_"
}

// DefaultStatus returns the status assigned on creation when none is given.
// Captures and decisions have no status.
func (t EntityType) DefaultStatus() *string {
	var s string
	switch t {
	case TypeProblem:
		s = "active"
	case TypeHypothesis, TypeArtifact:
		s = "draft"
	case TypeExperiment:
		s = "planned"
	default:
		return nil
	}
	return &s
}

// EntityFolders returns the pluralized folder names of all entity types.
func EntityFolders() []string {
	out := make([]string, len(EntityTypes))
	for i, t := range EntityTypes {
		out[i] = t.Folder()
	}
	return out
}

// Entity is a product-thinking artifact owned by exactly one product.
type Entity struct {
	ID                string         `json:"id"`
	ProductID         string         `json:"productId"`
	Type              EntityType     `json:"type"`
	Title             string         `json:"title"`
	Body              string         `json:"body"`
	Status            *string        `json:"status"`
	Metadata          map[string]any `json:"metadata"`
	PromotedToID      *string        `json:"promotedToId"`
	CreatedAt         string         `json:"createdAt"`
	UpdatedAt         string         `json:"updatedAt"`
	PersonaIDs        []string       `json:"personaIds"`
	FeatureIDs        []string       `json:"featureIds"`
	DimensionValueIDs []string       `json:"dimensionValueIds"`
}

// EntityFilters narrows an entity listing.
type EntityFilters struct {
	Type   EntityType
	Status string
	Search string
}
