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

// VersionStore manages post body snapshots. Rows are insert-only.
type VersionStore struct {
	db *sql.DB
}

// NewVersionStore returns a new VersionStore.
func NewVersionStore(db *sql.DB) *VersionStore {
	return &VersionStore{db: db}
}

const versionColumns = `id, post_id, version_number, content, author, created_at`

func scanVersion(scanner interface{ Scan(...any) error }) (*models.Version, error) {
	var v models.Version
	if err := scanner.Scan(&v.ID, &v.PostID, &v.VersionNumber, &v.Content, &v.Author, &v.CreatedAt); err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *VersionStore) queryVersions(ctx context.Context, query string, args ...any) ([]models.Version, error) {
	rows, err := executor(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.Version
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		items = append(items, *v)
	}
	return items, rows.Err()
}

// Create inserts a version and returns it with its ID and timestamp.
func (s *VersionStore) Create(ctx context.Context, v *models.Version) (*models.Version, error) {
	row := executor(ctx, s.db).QueryRowContext(ctx, `
		INSERT INTO post_versions (post_id, version_number, content, author)
		VALUES ($1, $2, $3, $4)
		RETURNING `+versionColumns,
		v.PostID, v.VersionNumber, v.Content, v.Author,
	)
	result, err := scanVersion(row)
	if err != nil {
		return nil, fmt.Errorf("create version: %w", err)
	}
	return result, nil
}

// Latest returns the highest-numbered version of a post, or nil.
func (s *VersionStore) Latest(ctx context.Context, postID int64) (*models.Version, error) {
	row := executor(ctx, s.db).QueryRowContext(ctx, `
		SELECT `+versionColumns+` FROM post_versions
		WHERE post_id = $1
		ORDER BY version_number DESC
		LIMIT 1`, postID)
	v, err := scanVersion(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest version: %w", err)
	}
	return v, nil
}

// Get returns one version of a post, or nil.
func (s *VersionStore) Get(ctx context.Context, postID int64, number int) (*models.Version, error) {
	row := executor(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+versionColumns+` FROM post_versions WHERE post_id = $1 AND version_number = $2`,
		postID, number)
	v, err := scanVersion(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get version: %w", err)
	}
	return v, nil
}

// ListByPost returns all versions of a post, newest number first.
func (s *VersionStore) ListByPost(ctx context.Context, postID int64) ([]models.Version, error) {
	items, err := s.queryVersions(ctx, `
		SELECT `+versionColumns+` FROM post_versions
		WHERE post_id = $1
		ORDER BY version_number DESC`, postID)
	if err != nil {
		return nil, fmt.Errorf("list versions by post: %w", err)
	}
	return items, nil
}

// ListAll returns every version, newest first.
func (s *VersionStore) ListAll(ctx context.Context) ([]models.Version, error) {
	items, err := s.queryVersions(ctx, `
		SELECT `+versionColumns+` FROM post_versions
		ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	return items, nil
}

// ListAllHeaders is ListAll without the snapshot bodies.
func (s *VersionStore) ListAllHeaders(ctx context.Context) ([]models.Version, error) {
	items, err := s.queryVersions(ctx, `
		SELECT id, post_id, version_number, '', author, created_at FROM post_versions
		ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list version headers: %w", err)
	}
	return items, nil
}
