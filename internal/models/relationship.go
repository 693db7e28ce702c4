package models

// Direction tags a relationship relative to the entity it was queried for.
type Direction string

const (
	Outgoing Direction = "outgoing"
	Incoming Direction = "incoming"
)

// Relationship is a directed edge between two entities of the same product.
type Relationship struct {
	ID               string  `json:"id"`
	ProductID        string  `json:"productId"`
	SourceID         string  `json:"sourceId"`
	TargetID         string  `json:"targetId"`
	RelationshipType *string `json:"relationshipType"`
	CreatedAt        string  `json:"createdAt"`
	UpdatedAt        string  `json:"updatedAt"`
}

// LinkedEntity is the lightweight view of the entity on the other end of an edge.
type LinkedEntity struct {
	ID     string     `json:"id"`
	Type   EntityType `json:"type"`
	Title  string     `json:"title"`
	Status *string    `json:"status"`
}

// RelationshipWithEntity is a relationship joined with the entity at its far end.
type RelationshipWithEntity struct {
	Relationship
	LinkedEntity LinkedEntity `json:"linkedEntity"`
	Direction    Direction    `json:"direction"`
}

// ResolvedLink is an outgoing relationship resolved to its target, as rendered
// in the links block of an entity file.
type ResolvedLink struct {
	TargetID     string
	Type         EntityType
	Title        string
	Relationship *string
}

// DimensionGroup holds the selected value names of one dimension.
type DimensionGroup struct {
	Name   string
	Values []string
}
