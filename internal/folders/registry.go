package folders

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/starford/productos/internal/models"
	"github.com/starford/productos/internal/storage"
)

type cacheKey struct {
	root      string
	productID string
}

// Registry finds product folders by scanning sidecars and remembers the
// result per (workspace root, product id). A cached entry is re-checked
// against its sidecar before use, so a stale entry costs one extra scan.
type Registry struct {
	logger *slog.Logger

	mu    sync.Mutex
	cache map[cacheKey]string
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger, cache: make(map[cacheKey]string)}
}

// Find returns the folder name under root/products whose sidecar carries
// productID. Malformed sidecars are skipped.
func (r *Registry) Find(productID, root string) (string, bool) {
	key := cacheKey{root: filepath.Clean(root), productID: productID}
	productsDir := filepath.Join(root, ProductsDir)

	r.mu.Lock()
	cached, ok := r.cache[key]
	r.mu.Unlock()
	if ok {
		if sc, err := ReadSidecar(filepath.Join(productsDir, cached)); err == nil && sc.ID == productID {
			return cached, true
		}
		r.Invalidate(root, productID)
	}

	entries, err := os.ReadDir(productsDir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			r.logger.Warn("scan products dir", slog.String("path", productsDir), slog.String("error", err.Error()))
		}
		return "", false
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		sc, err := ReadSidecar(filepath.Join(productsDir, entry.Name()))
		if err != nil {
			continue
		}
		if sc.ID == productID {
			r.remember(root, productID, entry.Name())
			return entry.Name(), true
		}
	}
	return "", false
}

// FolderPath returns the absolute folder of productID, if it has one.
func (r *Registry) FolderPath(productID, root string) (string, bool) {
	name, ok := r.Find(productID, root)
	if !ok {
		return "", false
	}
	return filepath.Join(root, ProductsDir, name), true
}

func (r *Registry) remember(root, productID, folder string) {
	r.mu.Lock()
	r.cache[cacheKey{root: filepath.Clean(root), productID: productID}] = folder
	r.mu.Unlock()
}

// Invalidate drops the cached folder of one product.
func (r *Registry) Invalidate(root, productID string) {
	r.mu.Lock()
	delete(r.cache, cacheKey{root: filepath.Clean(root), productID: productID})
	r.mu.Unlock()
}

// InvalidateRoot drops every cached folder under root.
func (r *Registry) InvalidateRoot(root string) {
	root = filepath.Clean(root)
	r.mu.Lock()
	for k := range r.cache {
		if k.root == root {
			delete(r.cache, k)
		}
	}
	r.mu.Unlock()
}

// RenameFolder moves oldPath to root/products/newName and returns the new
// path. Matching paths are a no-op. The caller rewrites the sidecar.
func (r *Registry) RenameFolder(oldPath, newName, root string) (string, error) {
	newPath := filepath.Join(root, ProductsDir, newName)
	if filepath.Clean(oldPath) == newPath {
		return newPath, nil
	}
	fsys, err := storage.Open(filepath.Join(root, ProductsDir))
	if err != nil {
		return "", fmt.Errorf("folders: rename %s: %w", filepath.Base(oldPath), err)
	}
	if err := fsys.Move(filepath.Base(oldPath), newName); err != nil {
		return "", fmt.Errorf("folders: rename %s: %w", filepath.Base(oldPath), err)
	}
	if sc, err := ReadSidecar(newPath); err == nil {
		r.remember(root, sc.ID, newName)
	}
	return newPath, nil
}

// EnsureResult reports what Ensure did for a product.
type EnsureResult struct {
	FolderName string
	// Created is true when the folder, an entity subfolder or the sidecar
	// had to be written.
	Created bool
}

// Ensure makes sure p has a fully structured folder under root with a
// current sidecar. An existing folder is reused; otherwise a new name is
// resolved.
func (r *Registry) Ensure(p *models.Product, root string) (EnsureResult, error) {
	var res EnsureResult
	folder, ok := r.Find(p.ID, root)
	if !ok {
		folder = ResolveFolderName(p, root, "")
	}
	res.FolderName = folder
	dir := filepath.Join(root, ProductsDir, folder)

	for _, typeFolder := range models.EntityFolders() {
		sub := filepath.Join(dir, "entities", typeFolder)
		if info, err := os.Stat(sub); err == nil {
			if !info.IsDir() {
				return res, fmt.Errorf("folders: %s is not a directory", sub)
			}
			continue
		}
		if err := os.MkdirAll(sub, 0o755); err != nil {
			return res, fmt.Errorf("folders: create %s: %w", sub, err)
		}
		res.Created = true
	}

	existing, err := ReadSidecar(dir)
	if err != nil || !existing.Matches(p, folder) {
		if err := WriteSidecar(dir, SidecarFor(p, folder)); err != nil {
			return res, err
		}
		res.Created = true
	}
	r.remember(root, p.ID, folder)
	return res, nil
}

// Rename moves the folder of p to the name derived from its current display
// name and rewrites the sidecar. A product without a folder gets one.
func (r *Registry) Rename(p *models.Product, root string) (string, error) {
	current, ok := r.Find(p.ID, root)
	if !ok {
		res, err := r.Ensure(p, root)
		return res.FolderName, err
	}
	next := ResolveFolderName(p, root, current)
	if _, err := r.RenameFolder(filepath.Join(root, ProductsDir, current), next, root); err != nil {
		return current, err
	}
	r.remember(root, p.ID, next)
	res, err := r.Ensure(p, root)
	return res.FolderName, err
}
