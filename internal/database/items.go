package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"

	"itemcatalog/internal/models"

	"github.com/jmoiron/sqlx"
)

// CreateItem adds an item to an existing category. An unknown category is
// reported as ErrIntegrity by the foreign key.
func CreateItem(ctx context.Context, db *sqlx.DB, name string, categoryID int64, description string) (*models.Item, error) {
	query := `
		INSERT INTO items (name, category, description)
		VALUES (?, ?, ?)
		RETURNING id, name, category, description
	`

	item := &models.Item{}
	err := unitOfWork(ctx, db, func(tx *sqlx.Tx) error {
		return tx.GetContext(ctx, item, tx.Rebind(query), name, categoryID, description)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create item: %w", classify(err))
	}

	return item, nil
}

func GetItem(ctx context.Context, db *sqlx.DB, itemID int64) (*models.Item, error) {
	query := `
		SELECT id, name, category, description
		FROM items
		WHERE id = ?
	`

	item := &models.Item{}
	err := unitOfWork(ctx, db, func(tx *sqlx.Tx) error {
		return tx.GetContext(ctx, item, tx.Rebind(query), itemID)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("item %d: %w", itemID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query item: %w", err)
	}

	return item, nil
}

func UpdateItem(ctx context.Context, db *sqlx.DB, itemID int64, name string, categoryID int64, description string) (*models.Item, error) {
	query := `
		UPDATE items
		SET name = ?, category = ?, description = ?
		WHERE id = ?
		RETURNING id, name, category, description
	`

	item := &models.Item{}
	err := unitOfWork(ctx, db, func(tx *sqlx.Tx) error {
		return tx.GetContext(ctx, item, tx.Rebind(query), name, categoryID, description, itemID)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("item %d: %w", itemID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update item: %w", classify(err))
	}

	return item, nil
}

func DeleteItem(ctx context.Context, db *sqlx.DB, itemID int64) error {
	err := unitOfWork(ctx, db, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM items WHERE id = ?`), itemID)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}

	return nil
}

func Items(ctx context.Context, db *sqlx.DB) iter.Seq2[models.Item, error] {
	return stream[models.Item](ctx, db, "items", `
		SELECT id, name, category, description
		FROM items
		ORDER BY name, id
	`)
}

func ItemsByCategory(ctx context.Context, db *sqlx.DB, categoryID int64) iter.Seq2[models.Item, error] {
	return stream[models.Item](ctx, db, "items", `
		SELECT id, name, category, description
		FROM items
		WHERE category = ?
		ORDER BY name, id
	`, categoryID)
}

func ListItemsByCategory(ctx context.Context, db *sqlx.DB, categoryID int64) ([]models.Item, error) {
	return collect(ItemsByCategory(ctx, db, categoryID))
}

// GetLatestItems returns the most recently added items, newest first.
func GetLatestItems(ctx context.Context, db *sqlx.DB, limit int) ([]models.ItemWithCategory, error) {
	return collect(stream[models.ItemWithCategory](ctx, db, "latest items", `
		SELECT i.id, i.name, i.category, i.description, c.name AS category_name
		FROM items i
		JOIN categories c ON c.id = i.category
		ORDER BY i.id DESC
		LIMIT ?
	`, limit))
}
