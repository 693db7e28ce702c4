// Package testutil provides shared test helpers for setting up workspaces and databases.
package testutil

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/starford/productos/internal/store"
	"github.com/starford/productos/internal/workspace"
)

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "data", workspace.DefaultDBName))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestWorkspace creates a manager whose workspace is initialized at a fresh
// temporary directory. It returns the manager and the workspace root.
func TestWorkspace(t *testing.T) (*workspace.Manager, string) {
	t.Helper()
	tmp := t.TempDir()
	m := workspace.NewManager(workspace.Options{AppDataDir: filepath.Join(tmp, "appdata")}, nil, Logger())
	t.Cleanup(func() { m.Close() })
	if _, err := m.Bootstrap(); err != nil {
		t.Fatal(err)
	}
	root := filepath.Join(tmp, "workspace")
	if err := m.Initialize(root); err != nil {
		t.Fatal(err)
	}
	return m, root
}
