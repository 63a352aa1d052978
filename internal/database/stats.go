package database

import (
	"context"
	"fmt"

	"itemcatalog/internal/models"

	"github.com/jmoiron/sqlx"
)

func GetStats(ctx context.Context, db *sqlx.DB) (*models.Stats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM categories) AS total_categories,
			(SELECT COUNT(*) FROM items) AS total_items
	`

	stats := &models.Stats{}
	err := unitOfWork(ctx, db, func(tx *sqlx.Tx) error {
		return tx.GetContext(ctx, stats, query)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog stats: %w", err)
	}

	return stats, nil
}
