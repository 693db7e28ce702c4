package service

import (
	"context"
	"log/slog"

	"github.com/starford/productos/internal/models"
	"github.com/starford/productos/internal/sse"
	"github.com/starford/productos/internal/store"
)

// CreateProduct stores a product and creates its folder.
func (s *Service) CreateProduct(_ context.Context, name string, description *string) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	db, err := s.db()
	if err != nil {
		return nil, err
	}
	p, err := db.CreateProduct(name, description)
	if err != nil {
		return nil, wrap("create product", err)
	}
	s.rememberProduct(db, p.ID)
	if root := s.root(); root != "" {
		if _, err := s.ws.Folders().Ensure(p, root); err != nil {
			return p, wrap("create product folder", err)
		}
	}
	s.publish(sse.TypeProductChanged, p)
	return p, nil
}

// GetProduct returns one product.
func (s *Service) GetProduct(_ context.Context, id string) (*models.Product, error) {
	db, err := s.db()
	if err != nil {
		return nil, err
	}
	return db.GetProduct(id)
}

// ListProducts returns all products, most recently active first.
func (s *Service) ListProducts(_ context.Context) ([]models.Product, error) {
	db, err := s.db()
	if err != nil {
		return nil, err
	}
	return db.ListProducts()
}

// UpdateProduct applies u, renames the product folder to follow the new
// name and rewrites the sidecar.
func (s *Service) UpdateProduct(_ context.Context, id string, u store.ProductUpdate) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	db, err := s.db()
	if err != nil {
		return nil, err
	}
	p, err := db.UpdateProduct(id, u)
	if err != nil {
		return nil, wrap("update product", err)
	}
	if root := s.root(); root != "" {
		folder, err := s.ws.Folders().Rename(p, root)
		if err != nil {
			return p, wrap("rename product folder", err)
		}
		s.logger.Debug("product folder", slog.String("id", p.ID), slog.String("folder", folder))
	}
	s.publish(sse.TypeProductChanged, p)
	return p, nil
}

// DeleteProduct removes the product and everything it owns from the
// database. Its folder stays on disk.
func (s *Service) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	db, err := s.db()
	if err != nil {
		return err
	}
	if err := db.DeleteProduct(id); err != nil {
		return wrap("delete product", err)
	}
	if root := s.root(); root != "" {
		s.ws.Folders().Invalidate(root, id)
	}
	s.publish(sse.TypeProductChanged, map[string]string{"id": id, "deleted": "true"})
	return nil
}
