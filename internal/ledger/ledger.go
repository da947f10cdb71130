// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package ledger keeps the append-only version history of post bodies.
// Version numbers are gapless per post starting at 1. Callers must
// serialize Append per post; the database rejects duplicate numbers as a
// last line of defence.
package ledger

import (
	"context"
	"fmt"
	"strings"

	"csdoc/internal/apperr"
	"csdoc/internal/models"
)

// Repository is the persistence the ledger needs. store.VersionStore
// implements it.
type Repository interface {
	Create(ctx context.Context, v *models.Version) (*models.Version, error)
	Latest(ctx context.Context, postID int64) (*models.Version, error)
	Get(ctx context.Context, postID int64, number int) (*models.Version, error)
	ListByPost(ctx context.Context, postID int64) ([]models.Version, error)
	ListAll(ctx context.Context) ([]models.Version, error)
}

// Ledger appends and reads post versions.
type Ledger struct {
	repo Repository
}

// New returns a Ledger backed by repo.
func New(repo Repository) *Ledger {
	return &Ledger{repo: repo}
}

// Append records content as the next version of a post. Blank content is
// not versioned: Append returns (nil, nil) without writing anything.
func (l *Ledger) Append(ctx context.Context, postID int64, content string, author *string) (*models.Version, error) {
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	latest, err := l.repo.Latest(ctx, postID)
	if err != nil {
		return nil, err
	}
	next := 1
	if latest != nil {
		next = latest.VersionNumber + 1
	}

	v, err := l.repo.Create(ctx, &models.Version{
		PostID:        postID,
		VersionNumber: next,
		Content:       content,
		Author:        author,
	})
	if err != nil {
		return nil, fmt.Errorf("append version %d of post %d: %w", next, postID, err)
	}
	return v, nil
}

// Latest returns the newest version of a post, or nil when it has none.
func (l *Ledger) Latest(ctx context.Context, postID int64) (*models.Version, error) {
	return l.repo.Latest(ctx, postID)
}

// Get returns one version of a post.
func (l *Ledger) Get(ctx context.Context, postID int64, number int) (*models.Version, error) {
	v, err := l.repo.Get(ctx, postID, number)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, apperr.NotFound(fmt.Sprintf("version %d of post %d not found", number, postID))
	}
	return v, nil
}

// List returns every version of a post, newest first.
func (l *Ledger) List(ctx context.Context, postID int64) ([]models.Version, error) {
	return l.repo.ListByPost(ctx, postID)
}

// All returns every version of every post, newest first.
func (l *Ledger) All(ctx context.Context) ([]models.Version, error) {
	return l.repo.ListAll(ctx)
}
