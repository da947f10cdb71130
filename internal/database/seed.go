package database

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"

	"gopkg.in/yaml.v3"
)

//go:embed seed/categories.yaml
var categorySeedYAML []byte

// SeedCategory is one entry of the default category tree.
type SeedCategory struct {
	Code     string         `yaml:"code"`
	Label    string         `yaml:"label"`
	Children []SeedCategory `yaml:"children"`
}

// DefaultCategories parses the embedded default category tree.
func DefaultCategories() ([]SeedCategory, error) {
	var roots []SeedCategory
	if err := yaml.Unmarshal(categorySeedYAML, &roots); err != nil {
		return nil, fmt.Errorf("parse category seed: %w", err)
	}
	return roots, nil
}

// SeedCategories makes sure the default categories exist with the expected
// code, label, parent, depth and sort order. Existing rows are matched by
// code first, then by label, and corrected in place. Safe to run on every
// start.
func SeedCategories(ctx context.Context, db *sql.DB) error {
	roots, err := DefaultCategories()
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed begin tx: %w", err)
	}
	defer tx.Rollback()

	for i, root := range roots {
		if err := ensureCategory(ctx, tx, root, nil, 0, i); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed commit: %w", err)
	}
	return nil
}

func ensureCategory(ctx context.Context, tx *sql.Tx, sc SeedCategory, parentID *int64, depth, order int) error {
	var (
		id        int64
		code      sql.NullString
		label     string
		parent    sql.NullInt64
		curDepth  int
		sortOrder int
	)
	err := tx.QueryRowContext(ctx, `
		SELECT id, code, label, parent_id, depth, sort_order
		FROM categories
		WHERE code = $1 OR label = $2
		ORDER BY CASE WHEN code = $1 THEN 0 ELSE 1 END, id
		LIMIT 1
		FOR UPDATE`, sc.Code, sc.Label,
	).Scan(&id, &code, &label, &parent, &curDepth, &sortOrder)

	switch {
	case err == sql.ErrNoRows:
		err = tx.QueryRowContext(ctx, `
			INSERT INTO categories (code, label, parent_id, depth, sort_order)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`, sc.Code, sc.Label, parentID, depth, order,
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("seed insert category %s: %w", sc.Code, err)
		}
		slog.Info("default category created", "code", sc.Code, "id", id)

	case err != nil:
		return fmt.Errorf("seed find category %s: %w", sc.Code, err)

	default:
		drifted := !code.Valid || code.String != sc.Code ||
			label != sc.Label ||
			!sameParent(parent, parentID) ||
			curDepth != depth ||
			sortOrder != order
		if drifted {
			_, err := tx.ExecContext(ctx, `
				UPDATE categories SET
					code = $1, label = $2, parent_id = $3, depth = $4,
					sort_order = $5, updated_at = NOW()
				WHERE id = $6`, sc.Code, sc.Label, parentID, depth, order, id)
			if err != nil {
				return fmt.Errorf("seed correct category %s: %w", sc.Code, err)
			}
			slog.Info("default category corrected", "code", sc.Code, "id", id)
		}
	}

	for i, child := range sc.Children {
		if err := ensureCategory(ctx, tx, child, &id, depth+1, i); err != nil {
			return err
		}
	}
	return nil
}

func sameParent(a sql.NullInt64, b *int64) bool {
	if !a.Valid || b == nil {
		return !a.Valid && b == nil
	}
	return a.Int64 == *b
}
