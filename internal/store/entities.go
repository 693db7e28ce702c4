package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/starford/productos/internal/apperr"
	"github.com/starford/productos/internal/models"
)

// EntityCreate holds the fields of a new entity.
type EntityCreate struct {
	ProductID         string
	Type              models.EntityType
	Title             string
	Body              string
	Status            *string
	Metadata          map[string]any
	PersonaIDs        []string
	FeatureIDs        []string
	DimensionValueIDs []string
}

// EntityUpdate holds a partial entity update. Nil fields are left unchanged;
// a non-nil tag slice fully replaces the stored set.
type EntityUpdate struct {
	Title             *string
	Body              *string
	Status            *string
	Metadata          map[string]any
	PersonaIDs        []string
	FeatureIDs        []string
	DimensionValueIDs []string
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// tagTable describes one entity junction table.
type tagTable struct {
	table  string
	column string
}

var (
	personaTags   = tagTable{"entity_personas", "persona_id"}
	featureTags   = tagTable{"entity_features", "feature_id"}
	dimensionTags = tagTable{"entity_dimension_values", "dimension_value_id"}
)

const entityColumns = `id, product_id, type, title, body, status, metadata, promoted_to_id, created_at, updated_at`

func scanEntity(row interface{ Scan(...any) error }) (*models.Entity, error) {
	var (
		e        models.Entity
		typ      string
		status   sql.NullString
		metadata sql.NullString
		promoted sql.NullString
	)
	if err := row.Scan(&e.ID, &e.ProductID, &typ, &e.Title, &e.Body, &status, &metadata, &promoted, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.Type = models.EntityType(typ)
	e.Status = ptr(status)
	e.PromotedToID = ptr(promoted)
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &e.Metadata); err != nil {
			return nil, fmt.Errorf("store: decode metadata of %s: %w", e.ID, err)
		}
	}
	return &e, nil
}

func encodeMetadata(m map[string]any) (sql.NullString, error) {
	if m == nil {
		return sql.NullString{}, nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("store: encode metadata: %w", err)
	}
	return sql.NullString{String: string(raw), Valid: true}, nil
}

// setTags replaces the tag set of an entity in one junction table.
func setTags(ex execer, t tagTable, entityID string, ids []string) error {
	if _, err := ex.Exec(`DELETE FROM `+t.table+` WHERE entity_id = ?`, entityID); err != nil {
		return fmt.Errorf("store: clear %s: %w", t.table, err)
	}
	for _, id := range ids {
		_, err := ex.Exec(`INSERT OR IGNORE INTO `+t.table+` (entity_id, `+t.column+`) VALUES (?, ?)`, entityID, id)
		if err != nil {
			return fmt.Errorf("store: insert %s: %w", t.table, err)
		}
	}
	return nil
}

func (db *DB) tagIDs(t tagTable, entityID string) ([]string, error) {
	rows, err := db.conn.Query(`SELECT `+t.column+` FROM `+t.table+` WHERE entity_id = ? ORDER BY `+t.column, entityID)
	if err != nil {
		return nil, fmt.Errorf("store: load %s: %w", t.table, err)
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (db *DB) loadTags(e *models.Entity) error {
	var err error
	if e.PersonaIDs, err = db.tagIDs(personaTags, e.ID); err != nil {
		return err
	}
	if e.FeatureIDs, err = db.tagIDs(featureTags, e.ID); err != nil {
		return err
	}
	e.DimensionValueIDs, err = db.tagIDs(dimensionTags, e.ID)
	return err
}

// CreateEntity inserts a new entity and its tag sets in one transaction.
// The status defaults by type when c.Status is empty.
func (db *DB) CreateEntity(c EntityCreate) (*models.Entity, error) {
	if !c.Type.Valid() {
		return nil, fmt.Errorf("store: entity type %q: %w", c.Type, apperr.ErrInvalid)
	}
	status := c.Status
	if status == nil || *status == "" {
		status = c.Type.DefaultStatus()
	}
	meta, err := encodeMetadata(c.Metadata)
	if err != nil {
		return nil, err
	}

	id := models.NewEntityID(c.Type)
	now := models.Now()

	tx, err := db.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO entities (`+entityColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, NULL, ?, ?)
	`, id, c.ProductID, string(c.Type), c.Title, c.Body, nullable(status), meta, now, now)
	if err != nil {
		return nil, fmt.Errorf("store: create entity: %w", err)
	}
	if err := setTags(tx, personaTags, id, c.PersonaIDs); err != nil {
		return nil, err
	}
	if err := setTags(tx, featureTags, id, c.FeatureIDs); err != nil {
		return nil, err
	}
	if err := setTags(tx, dimensionTags, id, c.DimensionValueIDs); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(`UPDATE products SET last_activity_at = ? WHERE id = ?`, now, c.ProductID); err != nil {
		return nil, fmt.Errorf("store: touch product: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: commit: %w", err)
	}
	return db.GetEntity(id)
}

// GetEntity returns the entity with its tag sets or apperr.ErrNotFound.
func (db *DB) GetEntity(id string) (*models.Entity, error) {
	row := db.conn.QueryRow(`SELECT `+entityColumns+` FROM entities WHERE id = ?`, id)
	e, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: entity %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get entity: %w", err)
	}
	if err := db.loadTags(e); err != nil {
		return nil, err
	}
	return e, nil
}

// ListEntities returns the entities of a product, most recently updated first.
func (db *DB) ListEntities(productID string, f models.EntityFilters) ([]models.Entity, error) {
	query := `SELECT ` + entityColumns + ` FROM entities WHERE product_id = ?`
	params := []any{productID}
	if f.Type != "" {
		query += ` AND type = ?`
		params = append(params, string(f.Type))
	}
	if f.Status != "" {
		query += ` AND status = ?`
		params = append(params, f.Status)
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		query += ` AND (title LIKE ? OR body LIKE ?)`
		params = append(params, like, like)
	}
	query += ` ORDER BY updated_at DESC, id`

	rows, err := db.conn.Query(query, params...)
	if err != nil {
		return nil, fmt.Errorf("store: list entities: %w", err)
	}
	out := []models.Entity{}
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range out {
		if err := db.loadTags(&out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// AllEntityIDs returns the identifiers of every stored entity.
func (db *DB) AllEntityIDs() (map[string]struct{}, error) {
	rows, err := db.conn.Query(`SELECT id FROM entities`)
	if err != nil {
		return nil, fmt.Errorf("store: all entity ids: %w", err)
	}
	defer rows.Close()
	out := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = struct{}{}
	}
	return out, rows.Err()
}

// UpdateEntity applies u in one transaction and bumps updated_at.
func (db *DB) UpdateEntity(id string, u EntityUpdate) (*models.Entity, error) {
	var (
		sets   []string
		values []any
	)
	if u.Title != nil {
		sets = append(sets, "title = ?")
		values = append(values, *u.Title)
	}
	if u.Body != nil {
		sets = append(sets, "body = ?")
		values = append(values, *u.Body)
	}
	if u.Status != nil {
		sets = append(sets, "status = ?")
		values = append(values, *u.Status)
	}
	if u.Metadata != nil {
		meta, err := encodeMetadata(u.Metadata)
		if err != nil {
			return nil, err
		}
		sets = append(sets, "metadata = ?")
		values = append(values, meta)
	}
	now := models.Now()
	sets = append(sets, "updated_at = ?")
	values = append(values, now, id)

	tx, err := db.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.Exec(`UPDATE entities SET `+strings.Join(sets, ", ")+` WHERE id = ?`, values...)
	if err != nil {
		return nil, fmt.Errorf("store: update entity: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("store: entity %s: %w", id, apperr.ErrNotFound)
	}
	if u.PersonaIDs != nil {
		if err := setTags(tx, personaTags, id, u.PersonaIDs); err != nil {
			return nil, err
		}
	}
	if u.FeatureIDs != nil {
		if err := setTags(tx, featureTags, id, u.FeatureIDs); err != nil {
			return nil, err
		}
	}
	if u.DimensionValueIDs != nil {
		if err := setTags(tx, dimensionTags, id, u.DimensionValueIDs); err != nil {
			return nil, err
		}
	}
	_, err = tx.Exec(`UPDATE products SET last_activity_at = ? WHERE id = (SELECT product_id FROM entities WHERE id = ?)`, now, id)
	if err != nil {
		return nil, fmt.Errorf("store: touch product: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: commit: %w", err)
	}
	return db.GetEntity(id)
}

// DeleteEntity removes an entity; its tags and relationships cascade.
func (db *DB) DeleteEntity(id string) error {
	e, err := db.GetEntity(id)
	if err != nil {
		return err
	}
	res, err := db.conn.Exec(`DELETE FROM entities WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete entity: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("store: entity %s: %w", id, apperr.ErrNotFound)
	}
	return db.TouchProduct(e.ProductID)
}

// PromoteCapture creates an entity of targetType from a capture and records
// the back-reference on the capture. A capture can be promoted only once.
func (db *DB) PromoteCapture(captureID string, targetType models.EntityType) (*models.Entity, error) {
	capture, err := db.GetEntity(captureID)
	if err != nil {
		return nil, err
	}
	if capture.Type != models.TypeCapture {
		return nil, fmt.Errorf("store: entity %s is not a capture: %w", captureID, apperr.ErrInvalid)
	}
	if capture.PromotedToID != nil {
		return nil, fmt.Errorf("store: capture %s already promoted: %w", captureID, apperr.ErrConflict)
	}
	if targetType == models.TypeCapture || !targetType.Valid() {
		return nil, fmt.Errorf("store: promote to %q: %w", targetType, apperr.ErrInvalid)
	}

	created, err := db.CreateEntity(EntityCreate{
		ProductID:         capture.ProductID,
		Type:              targetType,
		Title:             capture.Title,
		Body:              capture.Body,
		PersonaIDs:        capture.PersonaIDs,
		FeatureIDs:        capture.FeatureIDs,
		DimensionValueIDs: capture.DimensionValueIDs,
	})
	if err != nil {
		return nil, err
	}

	_, err = db.conn.Exec(`UPDATE entities SET promoted_to_id = ?, updated_at = ? WHERE id = ? AND promoted_to_id IS NULL`,
		created.ID, models.Now(), captureID)
	if err != nil {
		return nil, fmt.Errorf("store: mark promoted: %w", err)
	}
	return created, nil
}
