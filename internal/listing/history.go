// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package listing

import (
	"context"
	"slices"

	"golang.org/x/sync/errgroup"

	"csdoc/internal/apperr"
	"csdoc/internal/models"
)

// ChangeHistory merges version events with deletion events, newest first.
// changeType filters the feed when non-empty. Versions of posts that no
// longer exist are skipped.
func (e *Engine) ChangeHistory(ctx context.Context, changeType models.ChangeType) ([]models.HistoryItem, error) {
	if changeType != "" {
		if _, ok := models.ParseChangeType(string(changeType)); !ok {
			return nil, apperr.Invalid("changeType must be created, updated or deleted")
		}
	}

	var items []models.HistoryItem

	if changeType != models.ChangeDeleted {
		versions, err := e.versions.ListAllHeaders(ctx)
		if err != nil {
			return nil, err
		}
		ids := make([]int64, 0, len(versions))
		for _, v := range versions {
			ids = append(ids, v.PostID)
		}
		slices.Sort(ids)
		posts, err := e.posts.FindByIDs(ctx, slices.Compact(ids))
		if err != nil {
			return nil, err
		}
		for _, v := range versions {
			p, ok := posts[v.PostID]
			if !ok {
				continue
			}
			ct := models.ChangeTypeFor(v.VersionNumber)
			if changeType != "" && ct != changeType {
				continue
			}
			n := v.VersionNumber
			items = append(items, models.HistoryItem{
				PostID:        p.ID,
				Title:         p.Title,
				CategoryID:    p.CategoryID,
				ChangeType:    ct,
				VersionNumber: &n,
				ChangedAt:     v.CreatedAt,
			})
		}
	}

	if changeType == "" || changeType == models.ChangeDeleted {
		deleted, err := e.posts.ListDeleted(ctx, "", 0, 0)
		if err != nil {
			return nil, err
		}
		for _, p := range deleted {
			items = append(items, models.HistoryItem{
				PostID:     p.ID,
				Title:      p.Title,
				CategoryID: p.CategoryID,
				ChangeType: models.ChangeDeleted,
				ChangedAt:  p.UpdatedAt,
			})
		}
	}

	slices.SortStableFunc(items, func(a, b models.HistoryItem) int {
		return b.ChangedAt.Compare(a.ChangedAt)
	})
	if items == nil {
		items = []models.HistoryItem{}
	}
	return items, nil
}

// DeletionHistory returns every soft-deleted post, most recently deleted
// first.
func (e *Engine) DeletionHistory(ctx context.Context) ([]models.PostSummary, error) {
	deleted, err := e.posts.ListDeleted(ctx, "", 0, 0)
	if err != nil {
		return nil, err
	}
	out := make([]models.PostSummary, 0, len(deleted))
	for i := range deleted {
		out = append(out, deleted[i].Summary())
	}
	return out, nil
}

// ListDeleted pages through soft-deleted posts. A non-nil id looks up a
// single deleted post and returns it as a one-page result.
func (e *Engine) ListDeleted(ctx context.Context, page, size int, keyword string, id *int64) (models.Page[models.PostSummary], error) {
	if id != nil {
		p, err := e.posts.FindByID(ctx, *id)
		if err != nil {
			return models.Page[models.PostSummary]{}, err
		}
		var items []models.PostSummary
		if p != nil && p.Deleted {
			items = append(items, p.Summary())
		}
		out := models.NewPage(items, 0, len(items), int64(len(items)))
		out.TotalPages = 1
		return out, nil
	}

	q, err := Query{Page: page, Size: size, Keyword: keyword}.normalize()
	if err != nil {
		return models.Page[models.PostSummary]{}, err
	}

	var (
		rows  []models.Post
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = e.posts.ListDeleted(gctx, q.Keyword, q.Page*q.Size, q.Size)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = e.posts.CountDeleted(gctx, q.Keyword)
		return err
	})
	if err := g.Wait(); err != nil {
		return models.Page[models.PostSummary]{}, err
	}
	return assemble(q, nil, rows, total), nil
}
