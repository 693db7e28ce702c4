package store

import (
	"fmt"

	"github.com/starford/productos/internal/models"
)

func (db *DB) createTaxonomyItem(table, parentColumn, parentID, prefix, name string) (*models.TaxonomyItem, error) {
	id := models.NewID(prefix)
	now := models.Now()
	_, err := db.conn.Exec(`INSERT INTO `+table+` (id, `+parentColumn+`, name, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, parentID, name, now, now)
	if err != nil {
		return nil, fmt.Errorf("store: create %s: %w", table, err)
	}
	return &models.TaxonomyItem{ID: id, ProductID: parentID, Name: name}, nil
}

// CreatePersona adds a persona to a product.
func (db *DB) CreatePersona(productID, name string) (*models.TaxonomyItem, error) {
	return db.createTaxonomyItem("personas", "product_id", productID, "per_", name)
}

// CreateFeature adds a feature area to a product.
func (db *DB) CreateFeature(productID, name string) (*models.TaxonomyItem, error) {
	return db.createTaxonomyItem("features", "product_id", productID, "feat_", name)
}

// CreateDimension adds a dimension to a product.
func (db *DB) CreateDimension(productID, name string) (*models.TaxonomyItem, error) {
	return db.createTaxonomyItem("dimensions", "product_id", productID, "dim_", name)
}

// CreateDimensionValue adds a value to a dimension. The returned item's
// ProductID carries the owning dimension id.
func (db *DB) CreateDimensionValue(dimensionID, name string) (*models.TaxonomyItem, error) {
	return db.createTaxonomyItem("dimension_values", "dimension_id", dimensionID, "dv_", name)
}

func (db *DB) names(table string, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := db.conn.Query(`SELECT name FROM `+table+` WHERE id IN (`+placeholders(len(ids))+`) ORDER BY name, id`, args(ids)...)
	if err != nil {
		return nil, fmt.Errorf("store: resolve %s: %w", table, err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// PersonaNames resolves persona ids to names sorted by name. Unknown ids are skipped.
func (db *DB) PersonaNames(ids []string) ([]string, error) {
	return db.names("personas", ids)
}

// FeatureNames resolves feature ids to names sorted by name. Unknown ids are skipped.
func (db *DB) FeatureNames(ids []string) ([]string, error) {
	return db.names("features", ids)
}

// DimensionGroups resolves dimension value ids to value names grouped by
// their dimension, ordered by dimension name then value name.
func (db *DB) DimensionGroups(ids []string) ([]models.DimensionGroup, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := db.conn.Query(`
		SELECT d.name, dv.name
		FROM dimension_values dv
		JOIN dimensions d ON dv.dimension_id = d.id
		WHERE dv.id IN (`+placeholders(len(ids))+`)
		ORDER BY d.name, d.id, dv.name, dv.id
	`, args(ids)...)
	if err != nil {
		return nil, fmt.Errorf("store: resolve dimension values: %w", err)
	}
	defer rows.Close()

	var out []models.DimensionGroup
	for rows.Next() {
		var dim, value string
		if err := rows.Scan(&dim, &value); err != nil {
			return nil, err
		}
		if n := len(out); n > 0 && out[n-1].Name == dim {
			out[n-1].Values = append(out[n-1].Values, value)
			continue
		}
		out = append(out, models.DimensionGroup{Name: dim, Values: []string{value}})
	}
	return out, rows.Err()
}
