package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/starford/productos/internal/apperr"
	"github.com/starford/productos/internal/models"
)

// ProductUpdate holds the mutable product fields. Nil fields are left unchanged.
type ProductUpdate struct {
	Name        *string
	Description *string
	Icon        *string
}

const productColumns = `id, name, description, icon, created_at, updated_at, last_activity_at`

func scanProduct(row interface{ Scan(...any) error }) (*models.Product, error) {
	var (
		p           models.Product
		description sql.NullString
		icon        sql.NullString
	)
	if err := row.Scan(&p.ID, &p.Name, &description, &icon, &p.CreatedAt, &p.UpdatedAt, &p.LastActivityAt); err != nil {
		return nil, err
	}
	p.Description = ptr(description)
	p.Icon = ptr(icon)
	return &p, nil
}

// emptyAsNull maps a blank optional text to NULL.
func emptyAsNull(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

// CreateProduct inserts a new product with a fresh identifier.
func (db *DB) CreateProduct(name string, description *string) (*models.Product, error) {
	id := models.NewProductID()
	now := models.Now()
	_, err := db.conn.Exec(`
		INSERT INTO products (`+productColumns+`)
		VALUES (?, ?, ?, NULL, ?, ?, ?)
	`, id, name, nullable(emptyAsNull(description)), now, now, now)
	if err != nil {
		return nil, fmt.Errorf("store: create product: %w", err)
	}
	return db.GetProduct(id)
}

// GetProduct returns the product with the given id or apperr.ErrNotFound.
func (db *DB) GetProduct(id string) (*models.Product, error) {
	row := db.conn.QueryRow(`SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: product %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get product: %w", err)
	}
	return p, nil
}

// ListProducts returns every product, most recently active first.
func (db *DB) ListProducts() ([]models.Product, error) {
	rows, err := db.conn.Query(`SELECT ` + productColumns + ` FROM products ORDER BY last_activity_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("store: list products: %w", err)
	}
	defer rows.Close()

	var out []models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// UpdateProduct applies u and bumps updated_at and last_activity_at.
func (db *DB) UpdateProduct(id string, u ProductUpdate) (*models.Product, error) {
	var (
		sets   []string
		values []any
	)
	if u.Name != nil {
		sets = append(sets, "name = ?")
		values = append(values, *u.Name)
	}
	if u.Description != nil {
		sets = append(sets, "description = ?")
		values = append(values, nullable(emptyAsNull(u.Description)))
	}
	if u.Icon != nil {
		sets = append(sets, "icon = ?")
		values = append(values, nullable(emptyAsNull(u.Icon)))
	}
	now := models.Now()
	sets = append(sets, "updated_at = ?", "last_activity_at = ?")
	values = append(values, now, now, id)

	res, err := db.conn.Exec(`UPDATE products SET `+strings.Join(sets, ", ")+` WHERE id = ?`, values...)
	if err != nil {
		return nil, fmt.Errorf("store: update product: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("store: product %s: %w", id, apperr.ErrNotFound)
	}
	return db.GetProduct(id)
}

// DeleteProduct removes a product; entities, taxonomy and relationships cascade.
func (db *DB) DeleteProduct(id string) error {
	res, err := db.conn.Exec(`DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete product: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("store: product %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// TouchProduct records activity on a product without changing updated_at.
func (db *DB) TouchProduct(id string) error {
	_, err := db.conn.Exec(`UPDATE products SET last_activity_at = ? WHERE id = ?`, models.Now(), id)
	if err != nil {
		return fmt.Errorf("store: touch product: %w", err)
	}
	return nil
}
