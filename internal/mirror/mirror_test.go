package mirror

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/productos/internal/folders"
	"github.com/starford/productos/internal/models"
)

type emptyLookup struct{}

func (emptyLookup) PersonaNames([]string) ([]string, error)                   { return nil, nil }
func (emptyLookup) FeatureNames([]string) ([]string, error)                   { return nil, nil }
func (emptyLookup) DimensionGroups([]string) ([]models.DimensionGroup, error) { return nil, nil }
func (emptyLookup) OutgoingLinks(string) ([]models.ResolvedLink, error)       { return nil, nil }

func newWriter() (*Writer, *folders.Registry) {
	reg := folders.NewRegistry(slog.New(slog.NewJSONHandler(io.Discard, nil)))
	return NewWriter(reg), reg
}

func entity() *models.Entity {
	return &models.Entity{
		ID:        "hyp_aaaabbbbcccc",
		ProductID: "prod_111122223333",
		Type:      models.TypeHypothesis,
		Title:     "Faster onboarding",
		CreatedAt: "2024-01-01T00:00:00.000Z",
		UpdatedAt: "2024-01-01T00:00:00.000Z",
	}
}

func TestPathFallsBackToProductID(t *testing.T) {
	w, _ := newWriter()
	root := t.TempDir()
	got := w.RelPath(entity(), root)
	want := "products/prod_111122223333/entities/hypotheses/hyp_aaaabbbbcccc.md"
	if got != want {
		t.Errorf("RelPath = %q, want %q", got, want)
	}
}

func TestWriteUsesProductFolder(t *testing.T) {
	w, reg := newWriter()
	root := t.TempDir()
	p := &models.Product{ID: "prod_111122223333", Name: "SidelineHD", CreatedAt: "x", UpdatedAt: "y"}
	if _, err := reg.Ensure(p, root); err != nil {
		t.Fatal(err)
	}

	e := entity()
	if err := w.Write(emptyLookup{}, e, root); err != nil {
		t.Fatalf("Write: %v", err)
	}
	path := filepath.Join(root, "products", "SidelineHD", "entities", "hypotheses", e.ID+".md")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.HasPrefix(string(data), "---\nid: hyp_aaaabbbbcccc\ntype: hypothesis\n") {
		t.Errorf("content = %q", data)
	}

	// Overwrite fully.
	e.Title = "Renamed"
	_ = w.Write(emptyLookup{}, e, root)
	data, _ = w.Read(e, root)
	if !strings.Contains(string(data), "title: Renamed\n") || strings.Contains(string(data), "Faster") {
		t.Errorf("file not replaced: %q", data)
	}
}

func TestDeletePrunesEmptyDirs(t *testing.T) {
	w, _ := newWriter()
	root := t.TempDir()
	e := entity()
	if err := w.Write(emptyLookup{}, e, root); err != nil {
		t.Fatal(err)
	}
	if err := w.Delete(e, root); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if w.Exists(e, root) {
		t.Error("file still exists")
	}
	if _, err := os.Stat(filepath.Join(root, "products")); !os.IsNotExist(err) {
		t.Error("empty product tree should be pruned")
	}
	if _, err := os.Stat(root); err != nil {
		t.Errorf("workspace root removed: %v", err)
	}
	// Deleting again is fine.
	if err := w.Delete(e, root); err != nil {
		t.Errorf("second Delete: %v", err)
	}
}
