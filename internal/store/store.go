package store

import "github.com/starford/productos/internal/models"

// Repository defines the datastore operations used by the application layer.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with fakes.
type Repository interface {
	CreateProduct(name string, description *string) (*models.Product, error)
	GetProduct(id string) (*models.Product, error)
	ListProducts() ([]models.Product, error)
	UpdateProduct(id string, u ProductUpdate) (*models.Product, error)
	DeleteProduct(id string) error

	CreateEntity(c EntityCreate) (*models.Entity, error)
	GetEntity(id string) (*models.Entity, error)
	ListEntities(productID string, f models.EntityFilters) ([]models.Entity, error)
	UpdateEntity(id string, u EntityUpdate) (*models.Entity, error)
	DeleteEntity(id string) error
	PromoteCapture(captureID string, targetType models.EntityType) (*models.Entity, error)
	AllEntityIDs() (map[string]struct{}, error)

	CreateRelationship(c RelationshipCreate) (*models.Relationship, error)
	GetRelationship(id string) (*models.Relationship, error)
	DeleteRelationship(id string) error
	RelationshipsForEntity(entityID string) ([]models.RelationshipWithEntity, error)
	IncomingRelationships(entityID string) ([]models.RelationshipWithEntity, error)

	PersonaNames(ids []string) ([]string, error)
	FeatureNames(ids []string) ([]string, error)
	DimensionGroups(ids []string) ([]models.DimensionGroup, error)
	OutgoingLinks(entityID string) ([]models.ResolvedLink, error)

	Settings() (*models.Settings, error)
	SetWorkspacePath(path string) error
	SetLastProductID(id string) error

	Path() string
	Close() error
}

// Verify *DB satisfies Repository at compile time.
var _ Repository = (*DB)(nil)
