// Package service runs every record mutation together with its mirror side
// effect. Calls are serialized: one mutation (and its file writes) completes
// before the next one starts.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/starford/productos/internal/apperr"
	"github.com/starford/productos/internal/models"
	"github.com/starford/productos/internal/sse"
	"github.com/starford/productos/internal/store"
	"github.com/starford/productos/internal/workspace"
)

// Publisher receives change notifications. *sse.Broker implements it.
type Publisher interface {
	Publish(event sse.Event)
	PublishEntityChange(change sse.EntityChange)
}

// Service coordinates the datastore, the product folders and entity files.
type Service struct {
	ws     *workspace.Manager
	events Publisher
	logger *slog.Logger

	mu sync.Mutex
}

// NewService creates a service. events may be nil.
func NewService(ws *workspace.Manager, events Publisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{ws: ws, events: events, logger: logger}
}

// Workspace returns the underlying workspace manager.
func (s *Service) Workspace() *workspace.Manager { return s.ws }

// WorkspaceInfo describes the current workspace.
type WorkspaceInfo struct {
	Path       string `json:"path"`
	DBPath     string `json:"dbPath"`
	Configured bool   `json:"configured"`
}

// Info returns the current workspace location.
func (s *Service) Info(_ context.Context) WorkspaceInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return WorkspaceInfo{
		Path:       s.ws.Path(),
		DBPath:     s.ws.DBPath(),
		Configured: s.ws.IsConfigured(),
	}
}

// InitializeWorkspace makes path the workspace and fills it from the database.
func (s *Service) InitializeWorkspace(_ context.Context, path string) (*workspace.SyncReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ws.Initialize(path); err != nil {
		return nil, err
	}
	return s.syncLocked()
}

// Sync runs a gap-filling sync pass.
func (s *Service) Sync(_ context.Context) (*workspace.SyncReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.syncLocked()
}

func (s *Service) syncLocked() (*workspace.SyncReport, error) {
	report, err := s.ws.Sync()
	if err != nil {
		return nil, err
	}
	s.publish(sse.TypeWorkspaceSynced, report)
	return report, nil
}

// Migrate relocates the workspace and, on success, syncs the new location.
func (s *Service) Migrate(_ context.Context, newPath string) workspace.MigrationResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := s.ws.Migrate(newPath)
	if res.Success {
		if _, err := s.syncLocked(); err != nil {
			s.logger.Warn("sync after migration", slog.String("error", err.Error()))
		}
	}
	s.publish(sse.TypeWorkspaceMigrated, res)
	return res
}

func (s *Service) db() (store.Repository, error) {
	db, err := s.ws.Store()
	if err != nil {
		return nil, err
	}
	return db, nil
}

// root returns the workspace root files are mirrored into, or "" when
// mirroring is off because no workspace is configured.
func (s *Service) root() string {
	return s.ws.Path()
}

func (s *Service) publish(typ string, data any) {
	if s.events != nil {
		s.events.Publish(sse.Event{Type: typ, Data: data})
	}
}

// writeEntity mirrors e to disk. Failures are returned to the caller: the
// file is part of the operation, not an afterthought.
func (s *Service) writeEntity(db store.Repository, e *models.Entity) error {
	root := s.root()
	if root == "" {
		return nil
	}
	if err := s.ws.Writer().Write(db, e, root); err != nil {
		return err
	}
	if s.events != nil {
		s.events.PublishEntityChange(sse.EntityChange{Kind: sse.Written, ID: e.ID, Path: s.ws.Writer().RelPath(e, root)})
	}
	return nil
}

func (s *Service) rewriteEntity(db store.Repository, id string) error {
	e, err := db.GetEntity(id)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.writeEntity(db, e)
}

func (s *Service) deleteEntityFile(e *models.Entity) error {
	root := s.root()
	if root == "" {
		return nil
	}
	rel := s.ws.Writer().RelPath(e, root)
	if err := s.ws.Writer().Delete(e, root); err != nil {
		return err
	}
	if s.events != nil {
		s.events.PublishEntityChange(sse.EntityChange{Kind: sse.Deleted, ID: e.ID, Path: rel})
	}
	return nil
}

// rememberProduct records the product last worked on. Failures only log.
func (s *Service) rememberProduct(db store.Repository, productID string) {
	if err := db.SetLastProductID(productID); err != nil {
		s.logger.Warn("remember last product", slog.String("id", productID), slog.String("error", err.Error()))
	}
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("service: %s: %w", op, err)
}
