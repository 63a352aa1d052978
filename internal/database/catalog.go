package database

import (
	"context"
	"database/sql"
	"fmt"

	"itemcatalog/internal/models"

	"github.com/jmoiron/sqlx"
)

// GetCatalog loads the whole catalog as a nested document: every category
// with its items, both ordered by name. Categories without items carry an
// empty item list.
func GetCatalog(ctx context.Context, db *sqlx.DB) (*models.Catalog, error) {
	query := `
		SELECT c.id, c.name, c.description, i.id, i.name, i.description
		FROM categories c
		LEFT JOIN items i ON i.category = c.id
		ORDER BY c.name, c.id, i.name, i.id
	`

	catalog := &models.Catalog{Categories: []models.CatalogCategory{}}
	err := unitOfWork(ctx, db, func(tx *sqlx.Tx) error {
		rows, err := tx.QueryContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to query catalog: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				category        models.CatalogCategory
				itemID          sql.NullInt64
				itemName        sql.NullString
				itemDescription sql.NullString
			)
			err := rows.Scan(
				&category.ID,
				&category.Name,
				&category.Description,
				&itemID,
				&itemName,
				&itemDescription,
			)
			if err != nil {
				return fmt.Errorf("failed to scan catalog row: %w", err)
			}

			n := len(catalog.Categories)
			if n == 0 || catalog.Categories[n-1].ID != category.ID {
				category.Items = []models.CatalogItem{}
				catalog.Categories = append(catalog.Categories, category)
				n++
			}

			if itemID.Valid {
				current := &catalog.Categories[n-1]
				current.Items = append(current.Items, models.CatalogItem{
					ID:          itemID.Int64,
					Name:        itemName.String,
					Description: itemDescription.String,
					Category:    current.ID,
				})
			}
		}

		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	return catalog, nil
}
