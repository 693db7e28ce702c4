// Package store provides the SQLite-backed datastore for products, entities,
// taxonomy, relationships and settings.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS products (
	id               TEXT PRIMARY KEY,
	name             TEXT NOT NULL,
	description      TEXT,
	icon             TEXT,
	created_at       TEXT NOT NULL,
	updated_at       TEXT NOT NULL,
	last_activity_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS personas (
	id          TEXT PRIMARY KEY,
	product_id  TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
	name        TEXT NOT NULL,
	is_archived INTEGER NOT NULL DEFAULT 0,
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS features (
	id          TEXT PRIMARY KEY,
	product_id  TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
	name        TEXT NOT NULL,
	is_archived INTEGER NOT NULL DEFAULT 0,
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS dimensions (
	id          TEXT PRIMARY KEY,
	product_id  TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
	name        TEXT NOT NULL,
	is_archived INTEGER NOT NULL DEFAULT 0,
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS dimension_values (
	id           TEXT PRIMARY KEY,
	dimension_id TEXT NOT NULL REFERENCES dimensions(id) ON DELETE CASCADE,
	name         TEXT NOT NULL,
	is_archived  INTEGER NOT NULL DEFAULT 0,
	created_at   TEXT NOT NULL,
	updated_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS entities (
	id             TEXT PRIMARY KEY,
	product_id     TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
	type           TEXT NOT NULL,
	title          TEXT NOT NULL DEFAULT '',
	body           TEXT NOT NULL DEFAULT '',
	status         TEXT,
	metadata       TEXT,
	promoted_to_id TEXT,
	created_at     TEXT NOT NULL,
	updated_at     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS entity_personas (
	entity_id  TEXT NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
	persona_id TEXT NOT NULL REFERENCES personas(id) ON DELETE CASCADE,
	PRIMARY KEY (entity_id, persona_id)
);

CREATE TABLE IF NOT EXISTS entity_features (
	entity_id  TEXT NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
	feature_id TEXT NOT NULL REFERENCES features(id) ON DELETE CASCADE,
	PRIMARY KEY (entity_id, feature_id)
);

CREATE TABLE IF NOT EXISTS entity_dimension_values (
	entity_id          TEXT NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
	dimension_value_id TEXT NOT NULL REFERENCES dimension_values(id) ON DELETE CASCADE,
	PRIMARY KEY (entity_id, dimension_value_id)
);

CREATE TABLE IF NOT EXISTS relationships (
	id                TEXT PRIMARY KEY,
	product_id        TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
	source_id         TEXT NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
	target_id         TEXT NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
	relationship_type TEXT,
	created_at        TEXT NOT NULL,
	updated_at        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
	id              INTEGER PRIMARY KEY CHECK (id = 1),
	workspace_path  TEXT,
	last_product_id TEXT,
	created_at      TEXT NOT NULL,
	updated_at      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_entities_product ON entities(product_id);
CREATE INDEX IF NOT EXISTS idx_entities_type ON entities(product_id, type);
CREATE INDEX IF NOT EXISTS idx_relationships_source ON relationships(source_id);
CREATE INDEX IF NOT EXISTS idx_relationships_target ON relationships(target_id);
`

// DB wraps a sql.DB with datastore operations.
type DB struct {
	conn *sql.DB
	path string
}

// Open opens (or creates) the SQLite database file at path and applies the
// schema. Missing parent directories are created.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("store: create db dir: %w", err)
	}
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &DB{conn: conn, path: path}, nil
}

// Path returns the database file this handle was opened on.
func (db *DB) Path() string {
	return db.path
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func nullable(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func ptr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, 0, n*2)
	for i := 0; i < n; i++ {
		if i > 0 {
			b = append(b, ',')
		}
		b = append(b, '?')
	}
	return string(b)
}

func args(ids []string) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}
