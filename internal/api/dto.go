package api

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/productos/internal/models"
	"github.com/starford/productos/internal/service"
	"github.com/starford/productos/internal/store"
)

func entityTypeValues() []any {
	out := make([]any, len(models.EntityTypes))
	for i, t := range models.EntityTypes {
		out[i] = t
	}
	return out
}

// CreateProductRequest is the request body for creating a product.
type CreateProductRequest struct {
	Name        string  `json:"name" example:"SidelineHD" validate:"required"`
	Description *string `json:"description,omitempty"`
}

// Validate validates the request.
func (r *CreateProductRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
	)
}

// UpdateProductRequest is a partial product update. Omitted fields are kept.
type UpdateProductRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Icon        *string `json:"icon,omitempty"`
}

// Validate validates the request.
func (r *UpdateProductRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.NilOrNotEmpty, validation.Length(1, 200)),
	)
}

func (r *UpdateProductRequest) update() store.ProductUpdate {
	return store.ProductUpdate{Name: r.Name, Description: r.Description, Icon: r.Icon}
}

// CreateEntityRequest is the request body for creating an entity.
type CreateEntityRequest struct {
	Type              models.EntityType `json:"type" example:"problem" validate:"required"`
	Title             string            `json:"title" example:"Users churn" validate:"required"`
	Body              string            `json:"body"`
	Status            *string           `json:"status,omitempty"`
	Metadata          map[string]any    `json:"metadata,omitempty"`
	PersonaIDs        []string          `json:"personaIds,omitempty"`
	FeatureIDs        []string          `json:"featureIds,omitempty"`
	DimensionValueIDs []string          `json:"dimensionValueIds,omitempty"`
}

// Validate validates the request.
func (r *CreateEntityRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Type, validation.Required, validation.In(entityTypeValues()...)),
		validation.Field(&r.Title, validation.Required),
	)
}

func (r *CreateEntityRequest) create(productID string) store.EntityCreate {
	return store.EntityCreate{
		ProductID:         productID,
		Type:              r.Type,
		Title:             r.Title,
		Body:              r.Body,
		Status:            r.Status,
		Metadata:          r.Metadata,
		PersonaIDs:        r.PersonaIDs,
		FeatureIDs:        r.FeatureIDs,
		DimensionValueIDs: r.DimensionValueIDs,
	}
}

// UpdateEntityRequest is a partial entity update. A tag list that is
// present, even empty, replaces the stored one.
type UpdateEntityRequest struct {
	Title             *string        `json:"title,omitempty"`
	Body              *string        `json:"body,omitempty"`
	Status            *string        `json:"status,omitempty"`
	Metadata          map[string]any `json:"metadata,omitempty"`
	PersonaIDs        []string       `json:"personaIds,omitempty"`
	FeatureIDs        []string       `json:"featureIds,omitempty"`
	DimensionValueIDs []string       `json:"dimensionValueIds,omitempty"`
}

// Validate validates the request.
func (r *UpdateEntityRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Title, validation.NilOrNotEmpty),
	)
}

func (r *UpdateEntityRequest) update() store.EntityUpdate {
	return store.EntityUpdate{
		Title:             r.Title,
		Body:              r.Body,
		Status:            r.Status,
		Metadata:          r.Metadata,
		PersonaIDs:        r.PersonaIDs,
		FeatureIDs:        r.FeatureIDs,
		DimensionValueIDs: r.DimensionValueIDs,
	}
}

// PromoteRequest is the request body for promoting a capture.
type PromoteRequest struct {
	TargetType models.EntityType `json:"targetType" example:"problem" validate:"required"`
}

// Validate validates the request. A capture cannot be promoted to a capture.
func (r *PromoteRequest) Validate() error {
	if err := validation.ValidateStruct(r,
		validation.Field(&r.TargetType, validation.Required, validation.In(entityTypeValues()...)),
	); err != nil {
		return err
	}
	if r.TargetType == models.TypeCapture {
		return errors.New("targetType: cannot promote to capture")
	}
	return nil
}

// CreateRelationshipRequest is the request body for linking two entities.
type CreateRelationshipRequest struct {
	ProductID        string  `json:"productId" validate:"required"`
	SourceID         string  `json:"sourceId" validate:"required"`
	TargetID         string  `json:"targetId" validate:"required"`
	RelationshipType *string `json:"relationshipType,omitempty" example:"addresses"`
}

// Validate validates the request.
func (r *CreateRelationshipRequest) Validate() error {
	if err := validation.ValidateStruct(r,
		validation.Field(&r.ProductID, validation.Required),
		validation.Field(&r.SourceID, validation.Required),
		validation.Field(&r.TargetID, validation.Required),
	); err != nil {
		return err
	}
	if r.SourceID == r.TargetID {
		return errors.New("targetId: must differ from sourceId")
	}
	return nil
}

func (r *CreateRelationshipRequest) create() store.RelationshipCreate {
	return store.RelationshipCreate{
		ProductID:        r.ProductID,
		SourceID:         r.SourceID,
		TargetID:         r.TargetID,
		RelationshipType: r.RelationshipType,
	}
}

// WorkspacePathRequest carries a workspace folder for init and migrate.
type WorkspacePathRequest struct {
	Path string `json:"path" example:"/Users/me/ProductOS" validate:"required"`
}

// Validate validates the request.
func (r *WorkspacePathRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Path, validation.Required),
	)
}

// WorkspaceInfo is the workspace status response (aliased from the domain layer).
type WorkspaceInfo = service.WorkspaceInfo

// EntityDocument is the Markdown view of an entity (aliased from the domain layer).
type EntityDocument = service.EntityDocument

// EntityListResponse wraps entity listings.
type EntityListResponse struct {
	Entities []models.Entity `json:"entities" validate:"required"`
	Total    int             `json:"total" example:"42" validate:"required"`
}
