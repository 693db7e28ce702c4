// Package workspace owns the on-disk workspace: its directory layout, the
// single open database handle, the gap-filling sync pass and relocation of
// the whole workspace to a new root.
package workspace

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/starford/productos/internal/apperr"
	"github.com/starford/productos/internal/folders"
	"github.com/starford/productos/internal/mirror"
	"github.com/starford/productos/internal/store"
)

// Layout of a workspace root.
const (
	DataDir         = "data"
	ProductsDir     = folders.ProductsDir
	ExportsDir      = "exports"
	ExportsRunsDir  = "exports/runs"
	ExportsHistory  = "exports/history.json"
	LogsDir         = "logs"
	SyncLogFile     = "logs/sync.log"
	DefaultDBName   = "product-os.sqlite"
	BootstrapConfig = "workspace-config.json"
)

// openDB is swapped in tests to simulate unopenable databases.
var openDB = store.Open

// Options configures a Manager.
type Options struct {
	// AppDataDir is application-private storage holding the default
	// database and the bootstrap file.
	AppDataDir string
	// DBFilename is the database file name, DefaultDBName when empty.
	DBFilename string
}

// Manager owns the open database handle and the current workspace root.
// Exactly one handle is open at a time; it is closed before any operation
// that moves the underlying file and reopened right after.
type Manager struct {
	appDataDir string
	dbFilename string
	logger     *slog.Logger
	folders    *folders.Registry
	writer     *mirror.Writer

	mu sync.RWMutex
	db *store.DB
}

// NewManager creates a Manager. Call Bootstrap before using the database.
func NewManager(opts Options, reg *folders.Registry, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if reg == nil {
		reg = folders.NewRegistry(logger)
	}
	name := opts.DBFilename
	if name == "" {
		name = DefaultDBName
	}
	return &Manager{
		appDataDir: opts.AppDataDir,
		dbFilename: name,
		logger:     logger,
		folders:    reg,
		writer:     mirror.NewWriter(reg),
	}
}

// Folders returns the product folder registry.
func (m *Manager) Folders() *folders.Registry { return m.folders }

// Writer returns the entity file writer.
func (m *Manager) Writer() *mirror.Writer { return m.writer }

// DB returns the open database handle, or nil before Bootstrap.
func (m *Manager) DB() *store.DB {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.db
}

// Store returns the open database or apperr.ErrNoWorkspace.
func (m *Manager) Store() (*store.DB, error) {
	if db := m.DB(); db != nil {
		return db, nil
	}
	return nil, fmt.Errorf("workspace: database not open: %w", apperr.ErrNoWorkspace)
}

// Close closes the open database handle.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeLocked()
}

func (m *Manager) closeLocked() error {
	if m.db == nil {
		return nil
	}
	err := m.db.Close()
	m.db = nil
	return err
}

// openLocked closes the current handle and opens path in its place.
func (m *Manager) openLocked(path string) error {
	if err := m.closeLocked(); err != nil {
		m.logger.Warn("close database", slog.String("error", err.Error()))
	}
	db, err := openDB(path)
	if err != nil {
		return err
	}
	m.db = db
	m.logger.Info("database opened", slog.String("path", path))
	return nil
}

// DefaultDBPath is the database location used before any workspace exists.
func (m *Manager) DefaultDBPath() string {
	return filepath.Join(m.appDataDir, m.dbFilename)
}

// Path returns the current workspace root: the path recorded in the
// database settings, or the bootstrap file when the database is not open.
func (m *Manager) Path() string {
	if db := m.DB(); db != nil {
		if p, err := db.WorkspacePath(); err == nil && p != "" {
			return p
		}
	}
	return m.loadBootstrapPath()
}

// IsConfigured reports whether a workspace path is set and exists.
func (m *Manager) IsConfigured() bool {
	p := m.Path()
	return p != "" && dirExists(p)
}

// DBPath returns the authoritative database file of the current workspace,
// or "" when none is configured.
func (m *Manager) DBPath() string {
	p := m.Path()
	if p == "" {
		return ""
	}
	return m.ResolveDBPath(p)
}

// ResolveDBPath picks the database file of root: data/<db> when present,
// then <db> directly in root as older versions stored it, and data/<db>
// when neither exists yet.
func (m *Manager) ResolveDBPath(root string) string {
	structured := filepath.Join(root, DataDir, m.dbFilename)
	flat := filepath.Join(root, m.dbFilename)
	switch {
	case fileExists(structured):
		return structured
	case fileExists(flat):
		return flat
	default:
		return structured
	}
}

// Bootstrap opens the database at startup. A bootstrap file naming an
// existing folder selects that workspace; otherwise the default database in
// the app data dir is used and recorded as the workspace. It returns true
// when a user-chosen workspace was found.
func (m *Manager) Bootstrap() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if saved := m.loadBootstrapPath(); saved != "" && dirExists(saved) {
		if err := m.openLocked(m.ResolveDBPath(saved)); err != nil {
			return false, fmt.Errorf("workspace: open %s: %w", saved, err)
		}
		if err := m.db.SetWorkspacePath(saved); err != nil {
			return false, err
		}
		return true, nil
	}

	if err := m.openLocked(m.DefaultDBPath()); err != nil {
		return false, fmt.Errorf("workspace: open default database: %w", err)
	}
	if err := m.db.SetWorkspacePath(m.appDataDir); err != nil {
		return false, err
	}
	m.saveBootstrapPath(m.appDataDir)
	return false, nil
}

// Initialize turns path into a workspace and makes it current. A database
// in the app data dir is copied (never moved) into path/data when the
// workspace has none yet.
func (m *Manager) Initialize(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("workspace: resolve %s: %w", path, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.saveBootstrapPath(abs)
	if err := EnsureStructure(abs); err != nil {
		return err
	}

	previous := ""
	if m.db != nil {
		previous = m.db.Path()
	}
	target := filepath.Join(abs, DataDir, m.dbFilename)
	legacy := m.DefaultDBPath()
	if fileExists(legacy) && !fileExists(target) {
		if err := m.closeLocked(); err != nil {
			m.logger.Warn("close database", slog.String("error", err.Error()))
		}
		if err := copyFile(legacy, target); err != nil {
			m.reopenLocked(previous)
			return fmt.Errorf("workspace: copy database: %w", err)
		}
		m.logger.Info("copied default database into workspace", slog.String("to", target))
	}

	if err := m.openLocked(target); err != nil {
		m.reopenLocked(previous)
		return fmt.Errorf("workspace: open %s: %w", target, err)
	}
	if err := m.db.SetWorkspacePath(abs); err != nil {
		return err
	}
	m.logger.Info("workspace initialized", slog.String("path", abs))
	return nil
}

func (m *Manager) reopenLocked(path string) {
	if path == "" {
		return
	}
	if err := m.openLocked(path); err != nil {
		m.logger.Error("reopen database", slog.String("path", path), slog.String("error", err.Error()))
	}
}

// EnsureStructure creates the workspace directories under root and an
// empty export history when missing.
func EnsureStructure(root string) error {
	if err := ensureDirs(root); err != nil {
		return err
	}
	history := filepath.Join(root, ExportsHistory)
	if !fileExists(history) {
		if err := os.WriteFile(history, []byte("[]"), 0o644); err != nil {
			return fmt.Errorf("workspace: create export history: %w", err)
		}
	}
	return nil
}

func ensureDirs(root string) error {
	for _, dir := range []string{"", DataDir, ProductsDir, ExportsDir, ExportsRunsDir} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			return fmt.Errorf("workspace: create %s: %w", filepath.Join(root, dir), err)
		}
	}
	return nil
}

type bootstrapFile struct {
	WorkspacePath string `json:"workspacePath"`
}

func (m *Manager) bootstrapPath() string {
	return filepath.Join(m.appDataDir, BootstrapConfig)
}

func (m *Manager) loadBootstrapPath() string {
	data, err := os.ReadFile(m.bootstrapPath())
	if err != nil {
		return ""
	}
	var cfg bootstrapFile
	if err := json.Unmarshal(data, &cfg); err != nil {
		m.logger.Warn("malformed bootstrap file", slog.String("error", err.Error()))
		return ""
	}
	return cfg.WorkspacePath
}

// saveBootstrapPath records path for the next start. Failures are logged;
// the settings row remains the primary record.
func (m *Manager) saveBootstrapPath(path string) {
	data, err := json.MarshalIndent(bootstrapFile{WorkspacePath: path}, "", "  ")
	if err == nil {
		if err = os.MkdirAll(m.appDataDir, 0o755); err == nil {
			err = os.WriteFile(m.bootstrapPath(), data, 0o644)
		}
	}
	if err != nil {
		m.logger.Warn("save bootstrap file", slog.String("error", err.Error()))
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, fs.ErrNotExist)
}
