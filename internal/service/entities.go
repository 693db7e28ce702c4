package service

import (
	"context"

	"github.com/starford/productos/internal/models"
	"github.com/starford/productos/internal/store"
)

// CreateEntity stores an entity and writes its file.
func (s *Service) CreateEntity(_ context.Context, c store.EntityCreate) (*models.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	db, err := s.db()
	if err != nil {
		return nil, err
	}
	if _, err := db.GetProduct(c.ProductID); err != nil {
		return nil, wrap("create entity", err)
	}
	e, err := db.CreateEntity(c)
	if err != nil {
		return nil, wrap("create entity", err)
	}
	s.rememberProduct(db, e.ProductID)
	return e, wrap("write entity file", s.writeEntity(db, e))
}

// GetEntity returns one entity.
func (s *Service) GetEntity(_ context.Context, id string) (*models.Entity, error) {
	db, err := s.db()
	if err != nil {
		return nil, err
	}
	return db.GetEntity(id)
}

// ListEntities returns the entities of a product.
func (s *Service) ListEntities(_ context.Context, productID string, f models.EntityFilters) ([]models.Entity, error) {
	db, err := s.db()
	if err != nil {
		return nil, err
	}
	return db.ListEntities(productID, f)
}

// UpdateEntity applies u and regenerates the entity file.
func (s *Service) UpdateEntity(_ context.Context, id string, u store.EntityUpdate) (*models.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	db, err := s.db()
	if err != nil {
		return nil, err
	}
	e, err := db.UpdateEntity(id, u)
	if err != nil {
		return nil, wrap("update entity", err)
	}
	if err := s.writeEntity(db, e); err != nil {
		return e, wrap("write entity file", err)
	}
	// Files linking here show the title.
	if u.Title != nil {
		if err := s.rewriteLinkSources(db, id); err != nil {
			return e, err
		}
	}
	return e, nil
}

// DeleteEntity removes the entity file, then the row. Files of entities
// that linked to it are regenerated without the link.
func (s *Service) DeleteEntity(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	db, err := s.db()
	if err != nil {
		return err
	}
	e, err := db.GetEntity(id)
	if err != nil {
		return wrap("delete entity", err)
	}
	incoming, err := db.IncomingRelationships(id)
	if err != nil {
		return wrap("delete entity", err)
	}
	if err := s.deleteEntityFile(e); err != nil {
		return wrap("delete entity file", err)
	}
	if err := db.DeleteEntity(id); err != nil {
		return wrap("delete entity", err)
	}
	for _, r := range incoming {
		if err := s.rewriteEntity(db, r.SourceID); err != nil {
			return wrap("rewrite linking entity", err)
		}
	}
	return nil
}

// PromoteCapture turns a capture into an entity of targetType and writes
// both files; the capture's file gains promoted_to.
func (s *Service) PromoteCapture(_ context.Context, captureID string, targetType models.EntityType) (*models.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	db, err := s.db()
	if err != nil {
		return nil, err
	}
	e, err := db.PromoteCapture(captureID, targetType)
	if err != nil {
		return nil, wrap("promote capture", err)
	}
	if err := s.writeEntity(db, e); err != nil {
		return e, wrap("write entity file", err)
	}
	return e, wrap("write capture file", s.rewriteEntity(db, captureID))
}

// EntityDocument is the Markdown of one entity.
type EntityDocument struct {
	ID      string `json:"id"`
	Path    string `json:"path"`
	Content string `json:"content"`
	// OnDisk is false when Content was rendered because no file exists yet.
	OnDisk bool `json:"onDisk"`
}

// EntityMarkdown returns the entity file as stored, or a fresh rendering
// when the file does not exist.
func (s *Service) EntityMarkdown(_ context.Context, id string) (*EntityDocument, error) {
	db, err := s.db()
	if err != nil {
		return nil, err
	}
	e, err := db.GetEntity(id)
	if err != nil {
		return nil, err
	}
	root := s.root()
	doc := &EntityDocument{ID: e.ID}
	if root != "" {
		doc.Path = s.ws.Writer().RelPath(e, root)
		if data, err := s.ws.Writer().Read(e, root); err == nil {
			doc.Content = string(data)
			doc.OnDisk = true
			return doc, nil
		}
	}
	content, err := renderEntity(db, e)
	if err != nil {
		return nil, err
	}
	doc.Content = content
	return doc, nil
}

// RenderEntity renders the entity from the database, ignoring the file.
func (s *Service) RenderEntity(_ context.Context, id string) (string, error) {
	db, err := s.db()
	if err != nil {
		return "", err
	}
	e, err := db.GetEntity(id)
	if err != nil {
		return "", err
	}
	return renderEntity(db, e)
}

func (s *Service) rewriteLinkSources(db store.Repository, id string) error {
	incoming, err := db.IncomingRelationships(id)
	if err != nil {
		return wrap("rewrite linking entities", err)
	}
	for _, r := range incoming {
		if err := s.rewriteEntity(db, r.SourceID); err != nil {
			return wrap("rewrite linking entity", err)
		}
	}
	return nil
}
