// Package mirror keeps one Markdown file per entity under the workspace:
// products/<folder>/entities/<type folder>/<id>.md.
package mirror

import (
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/starford/productos/internal/folders"
	"github.com/starford/productos/internal/markdown"
	"github.com/starford/productos/internal/models"
	"github.com/starford/productos/internal/storage"
)

// Writer writes and deletes entity files.
type Writer struct {
	folders *folders.Registry
}

// NewWriter creates a writer resolving product folders through reg.
func NewWriter(reg *folders.Registry) *Writer {
	return &Writer{folders: reg}
}

// RelPath returns the slash-separated path of e's file relative to root.
// A product without a folder falls back to its raw id.
func (w *Writer) RelPath(e *models.Entity, root string) string {
	folder, ok := w.folders.Find(e.ProductID, root)
	if !ok {
		folder = e.ProductID
	}
	return path.Join(folders.ProductsDir, folder, "entities", e.Type.Folder(), e.ID+".md")
}

// Path returns the absolute path of e's file.
func (w *Writer) Path(e *models.Entity, root string) string {
	return filepath.Join(root, filepath.FromSlash(w.RelPath(e, root)))
}

// Exists reports whether e's file is present.
func (w *Writer) Exists(e *models.Entity, root string) bool {
	fsys, err := storage.Open(root)
	if err != nil {
		return false
	}
	return fsys.Exists(w.RelPath(e, root))
}

// Read returns the current content of e's file.
func (w *Writer) Read(e *models.Entity, root string) ([]byte, error) {
	fsys, err := storage.Open(root)
	if err != nil {
		return nil, fmt.Errorf("mirror: %w", err)
	}
	return fsys.Read(w.RelPath(e, root))
}

// Write renders e and replaces its file, creating missing directories.
func (w *Writer) Write(l markdown.Lookup, e *models.Entity, root string) error {
	content, err := markdown.Render(e, l)
	if err != nil {
		return fmt.Errorf("mirror: render %s: %w", e.ID, err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("mirror: create root: %w", err)
	}
	fsys, err := storage.Open(root)
	if err != nil {
		return fmt.Errorf("mirror: %w", err)
	}
	if err := fsys.Write(w.RelPath(e, root), []byte(content)); err != nil {
		return fmt.Errorf("mirror: write %s: %w", e.ID, err)
	}
	return nil
}

// Delete removes e's file if present and prunes directories left empty,
// never touching root itself.
func (w *Writer) Delete(e *models.Entity, root string) error {
	fsys, err := storage.Open(root)
	if err != nil {
		return fmt.Errorf("mirror: %w", err)
	}
	rel := w.RelPath(e, root)
	if err := fsys.Delete(rel); err != nil {
		return fmt.Errorf("mirror: delete %s: %w", e.ID, err)
	}
	fsys.Prune(path.Dir(rel))
	return nil
}
