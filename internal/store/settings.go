package store

import (
	"database/sql"
	"fmt"

	"github.com/starford/productos/internal/models"
)

func (db *DB) ensureSettingsRow() error {
	now := models.Now()
	_, err := db.conn.Exec(`
		INSERT OR IGNORE INTO settings (id, workspace_path, last_product_id, created_at, updated_at)
		VALUES (1, NULL, NULL, ?, ?)
	`, now, now)
	if err != nil {
		return fmt.Errorf("store: ensure settings: %w", err)
	}
	return nil
}

// Settings returns the singleton settings row, creating it on first access.
func (db *DB) Settings() (*models.Settings, error) {
	if err := db.ensureSettingsRow(); err != nil {
		return nil, err
	}
	var (
		s           models.Settings
		workspace   sql.NullString
		lastProduct sql.NullString
	)
	err := db.conn.QueryRow(`SELECT workspace_path, last_product_id, created_at, updated_at FROM settings WHERE id = 1`).
		Scan(&workspace, &lastProduct, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("store: read settings: %w", err)
	}
	s.WorkspacePath = ptr(workspace)
	s.LastProductID = ptr(lastProduct)
	return &s, nil
}

// WorkspacePath returns the recorded workspace path or "" when unset.
func (db *DB) WorkspacePath() (string, error) {
	s, err := db.Settings()
	if err != nil {
		return "", err
	}
	if s.WorkspacePath == nil {
		return "", nil
	}
	return *s.WorkspacePath, nil
}

// SetWorkspacePath records the authoritative workspace path.
func (db *DB) SetWorkspacePath(path string) error {
	return db.setSetting("workspace_path", path)
}

// SetLastProductID records the most recently opened product.
func (db *DB) SetLastProductID(id string) error {
	return db.setSetting("last_product_id", id)
}

func (db *DB) setSetting(column, value string) error {
	if err := db.ensureSettingsRow(); err != nil {
		return err
	}
	_, err := db.conn.Exec(`UPDATE settings SET `+column+` = ?, updated_at = ? WHERE id = 1`, nullable(emptyAsNull(&value)), models.Now())
	if err != nil {
		return fmt.Errorf("store: update settings: %w", err)
	}
	return nil
}
