package folders

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/starford/productos/internal/models"
	"github.com/starford/productos/internal/storage"
)

// SidecarFile is the name of the file that ties a folder to a product id.
const SidecarFile = "product.json"

// Sidecar is the on-disk content of product.json.
type Sidecar struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	FolderName  string  `json:"folder_name"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

// SidecarFor builds the sidecar content of p stored in folderName.
func SidecarFor(p *models.Product, folderName string) Sidecar {
	return Sidecar{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		FolderName:  folderName,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// Matches reports whether the stored sidecar already reflects p in folderName.
func (s *Sidecar) Matches(p *models.Product, folderName string) bool {
	return s.ID == p.ID &&
		s.Name == p.Name &&
		equalOptional(s.Description, p.Description) &&
		s.UpdatedAt == p.UpdatedAt &&
		s.FolderName == folderName
}

func equalOptional(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// ReadSidecar parses the sidecar in folderPath.
func ReadSidecar(folderPath string) (*Sidecar, error) {
	data, err := os.ReadFile(filepath.Join(folderPath, SidecarFile))
	if err != nil {
		return nil, fmt.Errorf("folders: read sidecar: %w", err)
	}
	var s Sidecar
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("folders: parse sidecar %s: %w", folderPath, err)
	}
	return &s, nil
}

// MarshalSidecar encodes s with 2-space indentation and no trailing newline.
func MarshalSidecar(s Sidecar) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return nil, fmt.Errorf("folders: encode sidecar: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// WriteSidecar replaces the sidecar in folderPath as a whole file.
func WriteSidecar(folderPath string, s Sidecar) error {
	data, err := MarshalSidecar(s)
	if err != nil {
		return err
	}
	fsys, err := storage.Open(folderPath)
	if err != nil {
		return fmt.Errorf("folders: write sidecar: %w", err)
	}
	if err := fsys.Write(SidecarFile, data); err != nil {
		return fmt.Errorf("folders: write sidecar: %w", err)
	}
	return nil
}
