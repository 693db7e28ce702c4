package workspace

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/starford/productos/internal/checksum"
)

// MigrationResult reports the outcome of Migrate. BackupPath is the
// original location, which is never deleted.
type MigrationResult struct {
	Success    bool   `json:"success"`
	NewPath    string `json:"newPath"`
	BackupPath string `json:"backupPath"`
	Error      string `json:"error,omitempty"`
}

// subtrees copied wholesale from a structured workspace.
var migratedDirs = []string{DataDir, ProductsDir, ExportsDir, LogsDir}

// Migrate relocates the workspace (database and files) to newPath. The
// original stays intact. On failure the database is reopened at its original
// location so the application keeps working, and the result carries the
// error instead.
func (m *Manager) Migrate(newPath string) MigrationResult {
	current := m.Path()
	if current == "" {
		return MigrationResult{NewPath: newPath, Error: "No current workspace configured"}
	}
	if samePath(current, newPath) {
		return MigrationResult{
			NewPath:    newPath,
			BackupPath: current,
			Error:      "New location is the same as current location",
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	res := MigrationResult{NewPath: newPath, BackupPath: current}
	if err := m.migrateLocked(current, newPath); err != nil {
		m.logger.Error("workspace migration failed",
			slog.String("from", current),
			slog.String("to", newPath),
			slog.String("error", err.Error()))
		m.recoverLocked(current)
		res.Error = err.Error()
		return res
	}
	m.logger.Info("workspace migrated", slog.String("from", current), slog.String("to", newPath))
	res.Success = true
	return res
}

func (m *Manager) migrateLocked(current, newPath string) error {
	if err := m.closeLocked(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	if err := os.MkdirAll(newPath, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", newPath, err)
	}

	newDB := filepath.Join(newPath, DataDir, m.dbFilename)
	legacy := samePath(current, m.appDataDir) || !dirExists(filepath.Join(current, DataDir))
	var sourceDB string
	if legacy {
		sourceDB = filepath.Join(current, m.dbFilename)
		if fileExists(sourceDB) {
			if err := copyFile(sourceDB, newDB); err != nil {
				return fmt.Errorf("copy database: %w", err)
			}
		}
	} else {
		sourceDB = filepath.Join(current, DataDir, m.dbFilename)
		for _, dir := range migratedDirs {
			src := filepath.Join(current, dir)
			if !exists(src) {
				continue
			}
			if err := copyTree(src, filepath.Join(newPath, dir)); err != nil {
				return fmt.Errorf("copy %s: %w", dir, err)
			}
		}
	}
	if err := verifyCopy(sourceDB, newDB); err != nil {
		return err
	}

	if err := ensureDirs(newPath); err != nil {
		return err
	}
	if err := m.openLocked(newDB); err != nil {
		return fmt.Errorf("open %s: %w", newDB, err)
	}
	if err := m.db.SetWorkspacePath(newPath); err != nil {
		return err
	}
	m.saveBootstrapPath(newPath)
	return nil
}

// verifyCopy compares the digests of the source database and its copy.
// A source without a database has nothing to verify.
func verifyCopy(src, dst string) error {
	if !fileExists(src) {
		return nil
	}
	want, err := checksum.SumFile(src)
	if err != nil {
		return err
	}
	got, err := checksum.SumFile(dst)
	if err != nil {
		return fmt.Errorf("verify copied database: %w", err)
	}
	if got != want {
		return errors.New("copied database does not match the original")
	}
	return nil
}

// recoverLocked reopens the database of the original workspace, trying the
// structured path, then the flat one, then the default location.
func (m *Manager) recoverLocked(current string) {
	candidates := []string{
		filepath.Join(current, DataDir, m.dbFilename),
		filepath.Join(current, m.dbFilename),
	}
	path := m.DefaultDBPath()
	for _, c := range candidates {
		if fileExists(c) {
			path = c
			break
		}
	}
	if err := m.openLocked(path); err != nil {
		m.logger.Error("recover database after failed migration",
			slog.String("path", path),
			slog.String("error", err.Error()))
	}
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}
