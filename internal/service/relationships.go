package service

import (
	"context"

	"github.com/starford/productos/internal/markdown"
	"github.com/starford/productos/internal/models"
	"github.com/starford/productos/internal/store"
)

// CreateRelationship links two entities and regenerates the source file,
// whose links block changed.
func (s *Service) CreateRelationship(_ context.Context, c store.RelationshipCreate) (*models.Relationship, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	db, err := s.db()
	if err != nil {
		return nil, err
	}
	r, err := db.CreateRelationship(c)
	if err != nil {
		return nil, wrap("create relationship", err)
	}
	return r, wrap("write source file", s.rewriteEntity(db, r.SourceID))
}

// DeleteRelationship removes a link and regenerates its source file.
func (s *Service) DeleteRelationship(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	db, err := s.db()
	if err != nil {
		return err
	}
	r, err := db.GetRelationship(id)
	if err != nil {
		return wrap("delete relationship", err)
	}
	if err := db.DeleteRelationship(id); err != nil {
		return wrap("delete relationship", err)
	}
	return wrap("write source file", s.rewriteEntity(db, r.SourceID))
}

// Relationships returns the outgoing and incoming links of an entity, each
// tagged with its direction.
func (s *Service) Relationships(_ context.Context, entityID string) ([]models.RelationshipWithEntity, error) {
	db, err := s.db()
	if err != nil {
		return nil, err
	}
	if _, err := db.GetEntity(entityID); err != nil {
		return nil, err
	}
	return db.RelationshipsForEntity(entityID)
}

func renderEntity(l markdown.Lookup, e *models.Entity) (string, error) {
	return markdown.Render(e, l)
}
