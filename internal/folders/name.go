// Package folders maps products to their folders under <workspace>/products.
// A folder belongs to a product when its product.json sidecar carries the
// product id; folder names follow the display name and may change.
package folders

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf16"

	"github.com/starford/productos/internal/models"
)

// ProductsDir is the workspace subdirectory holding product folders.
const ProductsDir = "products"

// maxFolderNameLen is counted in UTF-16 code units so that folder names
// match those written by other clients of the same workspace.
const maxFolderNameLen = 100

var (
	invalidChars = regexp.MustCompile(`[\\/:*?"<>|]`)
	whitespace   = regexp.MustCompile(`\s+`)
)

// Sanitize turns a display name into a folder name that is valid on every
// supported file system.
func Sanitize(name string) string {
	s := invalidChars.ReplaceAllString(name, "-")
	s = whitespace.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	return truncateUTF16(s, maxFolderNameLen)
}

// truncateUTF16 cuts s to at most n UTF-16 code units. A surrogate pair
// that would straddle the limit is dropped whole.
func truncateUTF16(s string, n int) string {
	units := 0
	for i, r := range s {
		units += utf16.RuneLen(r)
		if units > n {
			return s[:i]
		}
	}
	return s
}

// ShortID returns the 4 character disambiguation suffix for a product id.
func ShortID(productID string) string {
	s := strings.Replace(productID, models.ProductIDPrefix, "", 1)
	if r := []rune(s); len(r) > 4 {
		return string(r[:4])
	}
	return s
}

// ResolveFolderName returns the folder name a product should use under
// root/products. A case-insensitive clash with a folder owned by another
// product, or with one whose sidecar cannot be parsed, gets the product's
// short id appended. exclude names a folder that never counts as a clash,
// typically the product's current folder during a rename.
func ResolveFolderName(p *models.Product, root, exclude string) string {
	base := Sanitize(p.Name)
	productsDir := filepath.Join(root, ProductsDir)

	entries, err := os.ReadDir(productsDir)
	if err != nil {
		return base
	}
	for _, entry := range entries {
		name := entry.Name()
		if exclude != "" && name == exclude {
			continue
		}
		if !strings.EqualFold(name, base) {
			continue
		}
		sidecarPath := filepath.Join(productsDir, name, SidecarFile)
		if _, err := os.Stat(sidecarPath); err != nil {
			// A same-named folder without a sidecar is adopted as is.
			return base
		}
		sc, err := ReadSidecar(filepath.Join(productsDir, name))
		if err != nil || sc.ID != p.ID {
			return base + "_" + ShortID(p.ID)
		}
		return base
	}
	return base
}
