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

func CreateCategory(ctx context.Context, db *sqlx.DB, name, description string) (*models.Category, error) {
	query := `
		INSERT INTO categories (name, description)
		VALUES (?, ?)
		RETURNING id, name, description
	`

	category := &models.Category{}
	err := unitOfWork(ctx, db, func(tx *sqlx.Tx) error {
		return tx.GetContext(ctx, category, tx.Rebind(query), name, description)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create category: %w", classify(err))
	}

	return category, nil
}

func GetCategory(ctx context.Context, db *sqlx.DB, categoryID int64) (*models.Category, error) {
	query := `
		SELECT id, name, description
		FROM categories
		WHERE id = ?
	`

	category := &models.Category{}
	err := unitOfWork(ctx, db, func(tx *sqlx.Tx) error {
		return tx.GetContext(ctx, category, tx.Rebind(query), categoryID)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("category %d: %w", categoryID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query category: %w", err)
	}

	return category, nil
}

func GetCategoryByName(ctx context.Context, db *sqlx.DB, name string) (*models.Category, error) {
	query := `
		SELECT id, name, description
		FROM categories
		WHERE name = ?
	`

	category := &models.Category{}
	err := unitOfWork(ctx, db, func(tx *sqlx.Tx) error {
		return tx.GetContext(ctx, category, tx.Rebind(query), name)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("category %q: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query category: %w", err)
	}

	return category, nil
}

// UpdateCategory overwrites both fields of an existing category.
func UpdateCategory(ctx context.Context, db *sqlx.DB, categoryID int64, name, description string) (*models.Category, error) {
	query := `
		UPDATE categories
		SET name = ?, description = ?
		WHERE id = ?
		RETURNING id, name, description
	`

	category := &models.Category{}
	err := unitOfWork(ctx, db, func(tx *sqlx.Tx) error {
		return tx.GetContext(ctx, category, tx.Rebind(query), name, description, categoryID)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("category %d: %w", categoryID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update category: %w", classify(err))
	}

	return category, nil
}

// DeleteCategory removes a category together with its items. Deleting an
// unknown id is not an error.
func DeleteCategory(ctx context.Context, db *sqlx.DB, categoryID int64) error {
	err := unitOfWork(ctx, db, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM categories WHERE id = ?`), categoryID)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", classify(err))
	}

	return nil
}

// Categories streams every category ordered by name.
func Categories(ctx context.Context, db *sqlx.DB) iter.Seq2[models.Category, error] {
	return stream[models.Category](ctx, db, "categories", `
		SELECT id, name, description
		FROM categories
		ORDER BY name
	`)
}

func ListCategories(ctx context.Context, db *sqlx.DB) ([]models.Category, error) {
	return collect(Categories(ctx, db))
}
