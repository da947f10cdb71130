// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"fmt"

	"csdoc/internal/models"
)

// CategoryStore manages categories in the database.
type CategoryStore struct {
	db *sql.DB
}

// NewCategoryStore returns a new CategoryStore.
func NewCategoryStore(db *sql.DB) *CategoryStore {
	return &CategoryStore{db: db}
}

const categoryColumns = `id, code, label, parent_id, depth, sort_order, created_at, updated_at`

// scanCategory scans a row into a Category struct.
func scanCategory(scanner interface{ Scan(...any) error }) (*models.Category, error) {
	var c models.Category
	err := scanner.Scan(
		&c.ID, &c.Code, &c.Label, &c.ParentID,
		&c.Depth, &c.SortOrder, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// List returns all categories ordered by sort_order, then id.
func (s *CategoryStore) List(ctx context.Context) ([]models.Category, error) {
	rows, err := executor(ctx, s.db).QueryContext(ctx,
		`SELECT `+categoryColumns+` FROM categories ORDER BY sort_order, id`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var items []models.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		items = append(items, *c)
	}
	return items, rows.Err()
}

// FindByID retrieves a category by ID. Returns nil if not found.
func (s *CategoryStore) FindByID(ctx context.Context, id int64) (*models.Category, error) {
	row := executor(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id)
	c, err := scanCategory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find category by id: %w", err)
	}
	return c, nil
}

// Create inserts a new category and returns it.
func (s *CategoryStore) Create(ctx context.Context, c *models.Category) (*models.Category, error) {
	row := executor(ctx, s.db).QueryRowContext(ctx, `
		INSERT INTO categories (code, label, parent_id, depth, sort_order)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+categoryColumns,
		c.Code, c.Label, c.ParentID, c.Depth, c.SortOrder,
	)
	result, err := scanCategory(row)
	if err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	return result, nil
}

// Update writes every mutable field of a category.
func (s *CategoryStore) Update(ctx context.Context, c *models.Category) error {
	_, err := executor(ctx, s.db).ExecContext(ctx, `
		UPDATE categories SET
			code = $1, label = $2, parent_id = $3, depth = $4,
			sort_order = $5, updated_at = NOW()
		WHERE id = $6
	`, c.Code, c.Label, c.ParentID, c.Depth, c.SortOrder, c.ID)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return nil
}

// SetSortOrder updates only the sort order of a category.
func (s *CategoryStore) SetSortOrder(ctx context.Context, id int64, order int) error {
	_, err := executor(ctx, s.db).ExecContext(ctx,
		`UPDATE categories SET sort_order = $1, updated_at = NOW() WHERE id = $2`, order, id)
	if err != nil {
		return fmt.Errorf("reorder category %d: %w", id, err)
	}
	return nil
}

// NextSortOrder returns the next sort_order value for a given parent.
func (s *CategoryStore) NextSortOrder(ctx context.Context, parentID *int64) (int, error) {
	var maxOrder sql.NullInt64
	var err error
	db := executor(ctx, s.db)
	if parentID == nil {
		err = db.QueryRowContext(ctx, `SELECT MAX(sort_order) FROM categories WHERE parent_id IS NULL`).Scan(&maxOrder)
	} else {
		err = db.QueryRowContext(ctx, `SELECT MAX(sort_order) FROM categories WHERE parent_id = $1`, *parentID).Scan(&maxOrder)
	}
	if err != nil {
		return 0, fmt.Errorf("next sort order: %w", err)
	}
	if maxOrder.Valid {
		return int(maxOrder.Int64) + 1, nil
	}
	return 0, nil
}

// LockTree takes a table lock that serializes structural category changes
// until the surrounding transaction ends. Plain reads are not blocked.
// Outside a transaction it is a no-op.
func (s *CategoryStore) LockTree(ctx context.Context) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); !ok {
		return nil
	}
	if _, err := executor(ctx, s.db).ExecContext(ctx, `LOCK TABLE categories IN SHARE ROW EXCLUSIVE MODE`); err != nil {
		return fmt.Errorf("lock categories: %w", err)
	}
	return nil
}
