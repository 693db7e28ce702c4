// Package storage defines the workspace file-system abstraction.
package storage

// Provider is the interface for workspace file operations. Every path is
// relative to the provider root, slash or OS separated; paths escaping the
// root are rejected.
type Provider interface {
	// List returns the slash-separated path of every .md file under dir.
	List(dir string) ([]string, error)
	// Exists reports whether path exists.
	Exists(path string) bool
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path, creating parent directories.
	Write(path string, content []byte) error
	// Delete removes the file at path. A missing file is not an error.
	Delete(path string) error
	// Move renames oldPath to newPath. Works for files and directories.
	Move(oldPath, newPath string) error
	// Prune removes dir and its now-empty ancestors, stopping before the root.
	Prune(dir string)
}

// Open returns the local file-system Provider rooted at root, which must
// already exist.
func Open(root string) (Provider, error) {
	fsys, err := NewFS(root)
	if err != nil {
		return nil, err
	}
	return fsys, nil
}
