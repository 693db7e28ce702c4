package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/productos/internal/apperr"
	"github.com/starford/productos/internal/models"
)

// RelationshipCreate holds the fields of a new relationship.
type RelationshipCreate struct {
	ProductID        string
	SourceID         string
	TargetID         string
	RelationshipType *string
}

const relationshipColumns = `r.id, r.product_id, r.source_id, r.target_id, r.relationship_type, r.created_at, r.updated_at`

func scanRelationship(row interface{ Scan(...any) error }, extra ...any) (*models.Relationship, error) {
	var (
		r   models.Relationship
		typ sql.NullString
	)
	dest := append([]any{&r.ID, &r.ProductID, &r.SourceID, &r.TargetID, &typ, &r.CreatedAt, &r.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	r.RelationshipType = ptr(typ)
	return &r, nil
}

// RelationshipExists reports whether an edge source -> target already exists.
func (db *DB) RelationshipExists(sourceID, targetID string) (bool, error) {
	var n int
	err := db.conn.QueryRow(`SELECT count(*) FROM relationships WHERE source_id = ? AND target_id = ?`, sourceID, targetID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("store: relationship exists: %w", err)
	}
	return n > 0, nil
}

// CreateRelationship inserts a directed edge. At most one edge may exist per
// ordered (source, target) pair; a second one fails with apperr.ErrAlreadyExists.
// Both entities must belong to c.ProductID.
func (db *DB) CreateRelationship(c RelationshipCreate) (*models.Relationship, error) {
	exists, err := db.RelationshipExists(c.SourceID, c.TargetID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("store: relationship %s -> %s: %w", c.SourceID, c.TargetID, apperr.ErrAlreadyExists)
	}
	for _, id := range []string{c.SourceID, c.TargetID} {
		e, err := db.GetEntity(id)
		if err != nil {
			return nil, err
		}
		if e.ProductID != c.ProductID {
			return nil, fmt.Errorf("store: entity %s is not in product %s: %w", id, c.ProductID, apperr.ErrInvalid)
		}
	}

	id := models.NewID(models.RelationshipIDPrefix)
	now := models.Now()
	_, err = db.conn.Exec(`
		INSERT INTO relationships (id, product_id, source_id, target_id, relationship_type, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, c.ProductID, c.SourceID, c.TargetID, nullable(emptyAsNull(c.RelationshipType)), now, now)
	if err != nil {
		return nil, fmt.Errorf("store: create relationship: %w", err)
	}
	return db.GetRelationship(id)
}

// GetRelationship returns the relationship with id or apperr.ErrNotFound.
func (db *DB) GetRelationship(id string) (*models.Relationship, error) {
	row := db.conn.QueryRow(`SELECT `+relationshipColumns+` FROM relationships r WHERE r.id = ?`, id)
	r, err := scanRelationship(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: relationship %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get relationship: %w", err)
	}
	return r, nil
}

// DeleteRelationship removes a relationship.
func (db *DB) DeleteRelationship(id string) error {
	res, err := db.conn.Exec(`DELETE FROM relationships WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete relationship: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("store: relationship %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

func (db *DB) relationshipsWithEntity(joinColumn, whereColumn, entityID string, dir models.Direction) ([]models.RelationshipWithEntity, error) {
	rows, err := db.conn.Query(`
		SELECT `+relationshipColumns+`, e.id, e.type, e.title, e.status
		FROM relationships r
		JOIN entities e ON r.`+joinColumn+` = e.id
		WHERE r.`+whereColumn+` = ?
		ORDER BY r.created_at DESC, r.id
	`, entityID)
	if err != nil {
		return nil, fmt.Errorf("store: %s relationships: %w", dir, err)
	}
	defer rows.Close()

	out := []models.RelationshipWithEntity{}
	for rows.Next() {
		var (
			linked models.LinkedEntity
			typ    string
			status sql.NullString
		)
		r, err := scanRelationship(rows, &linked.ID, &typ, &linked.Title, &status)
		if err != nil {
			return nil, err
		}
		linked.Type = models.EntityType(typ)
		linked.Status = ptr(status)
		out = append(out, models.RelationshipWithEntity{Relationship: *r, LinkedEntity: linked, Direction: dir})
	}
	return out, rows.Err()
}

// OutgoingRelationships returns edges where entityID is the source.
func (db *DB) OutgoingRelationships(entityID string) ([]models.RelationshipWithEntity, error) {
	return db.relationshipsWithEntity("target_id", "source_id", entityID, models.Outgoing)
}

// IncomingRelationships returns edges where entityID is the target.
func (db *DB) IncomingRelationships(entityID string) ([]models.RelationshipWithEntity, error) {
	return db.relationshipsWithEntity("source_id", "target_id", entityID, models.Incoming)
}

// RelationshipsForEntity folds outgoing and incoming edges, each tagged with
// its direction. Outgoing edges come first.
func (db *DB) RelationshipsForEntity(entityID string) ([]models.RelationshipWithEntity, error) {
	out, err := db.OutgoingRelationships(entityID)
	if err != nil {
		return nil, err
	}
	in, err := db.IncomingRelationships(entityID)
	if err != nil {
		return nil, err
	}
	return append(out, in...), nil
}

// OutgoingLinks resolves the outgoing edges of entityID to their targets in
// creation order.
func (db *DB) OutgoingLinks(entityID string) ([]models.ResolvedLink, error) {
	rows, err := db.conn.Query(`
		SELECT r.target_id, r.relationship_type, e.type, e.title
		FROM relationships r
		JOIN entities e ON r.target_id = e.id
		WHERE r.source_id = ?
		ORDER BY r.created_at, r.id
	`, entityID)
	if err != nil {
		return nil, fmt.Errorf("store: outgoing links: %w", err)
	}
	defer rows.Close()

	var out []models.ResolvedLink
	for rows.Next() {
		var (
			l   models.ResolvedLink
			rel sql.NullString
			typ string
		)
		if err := rows.Scan(&l.TargetID, &rel, &typ, &l.Title); err != nil {
			return nil, err
		}
		l.Type = models.EntityType(typ)
		l.Relationship = ptr(rel)
		out = append(out, l)
	}
	return out, rows.Err()
}
