// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package listing builds the paged post listings, the change history feed
// and the deletion views. Notices are pinned on the first page of the
// unfiltered listing and take up part of its size. Category listings
// include every descendant category plus uncategorized rows carrying the
// matching legacy tag.
package listing

import (
	"context"
	"encoding/json"
	"log/slog"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"csdoc/internal/models"
	"csdoc/internal/store"
)

// Posts is the read side of the post store. store.PostStore implements it.
type Posts interface {
	ListNotices(ctx context.Context) ([]models.Post, error)
	ListByCategories(ctx context.Context, categoryIDs []int64, keyword string) ([]models.Post, error)
	ListLegacy(ctx context.Context, tag models.LegacyTag, keyword string) ([]models.Post, error)
	ListActive(ctx context.Context, f store.PostFilter, offset, limit int) ([]models.Post, error)
	CountActive(ctx context.Context, f store.PostFilter) (int64, error)
	ListDeleted(ctx context.Context, keyword string, offset, limit int) ([]models.Post, error)
	CountDeleted(ctx context.Context, keyword string) (int64, error)
	FindByID(ctx context.Context, id int64) (*models.Post, error)
	FindByIDs(ctx context.Context, ids []int64) (map[int64]models.Post, error)
}

// Categories resolves categories and their subtrees. category.Tree
// implements it.
type Categories interface {
	Get(ctx context.Context, id int64) (*models.Category, error)
	DescendantsOf(ctx context.Context, id int64) ([]int64, error)
}

// VersionHeaders lists versions without their bodies. store.VersionStore
// implements it.
type VersionHeaders interface {
	ListAllHeaders(ctx context.Context) ([]models.Version, error)
}

// Cache stores encoded listing pages. cache.ListingCache implements it.
type Cache interface {
	Get(ctx context.Context, key string) (value []byte, gen int64, ok bool)
	Set(ctx context.Context, gen int64, key string, value []byte)
	Invalidate(ctx context.Context)
}

// Engine answers listing queries.
type Engine struct {
	posts      Posts
	categories Categories
	versions   VersionHeaders
	cache      Cache
	logger     *slog.Logger
}

// New returns an Engine. cache may be nil.
func New(posts Posts, categories Categories, versions VersionHeaders, cache Cache, logger *slog.Logger) *Engine {
	return &Engine{posts: posts, categories: categories, versions: versions, cache: cache, logger: logger}
}

// Invalidate drops every cached listing. Call it after any post or
// category mutation.
func (e *Engine) Invalidate(ctx context.Context) {
	if e.cache != nil {
		e.cache.Invalidate(ctx)
	}
}

// List returns one page of active posts.
func (e *Engine) List(ctx context.Context, q Query) (models.Page[models.PostSummary], error) {
	q, err := q.normalize()
	if err != nil {
		return models.Page[models.PostSummary]{}, err
	}

	key := q.key()
	gen := int64(-1)
	if e.cache != nil {
		var raw []byte
		var ok bool
		if raw, gen, ok = e.cache.Get(ctx, key); ok {
			var page models.Page[models.PostSummary]
			if err := json.Unmarshal(raw, &page); err == nil {
				return page, nil
			}
			e.logger.Warn("discarding undecodable listing cache entry", "key", key)
		}
	}

	var page models.Page[models.PostSummary]
	if q.CategoryID != nil {
		page, err = e.listCategory(ctx, q)
	} else {
		page, err = e.listAll(ctx, q)
	}
	if err != nil {
		return page, err
	}

	if e.cache != nil {
		if raw, err := json.Marshal(page); err == nil {
			e.cache.Set(ctx, gen, key, raw)
		}
	}
	return page, nil
}

// listAll serves the unfiltered listing, paginated in SQL.
func (e *Engine) listAll(ctx context.Context, q Query) (models.Page[models.PostSummary], error) {
	var pinned []models.Post
	if q.Page == 0 {
		var err error
		if pinned, err = e.posts.ListNotices(ctx); err != nil {
			return models.Page[models.PostSummary]{}, err
		}
	}
	effective := effectiveSize(q, len(pinned))

	var (
		rows  []models.Post
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = e.posts.ListActive(gctx, q.filter(), q.Page*q.Size, effective)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = e.posts.CountActive(gctx, q.filter())
		return err
	})
	if err := g.Wait(); err != nil {
		return models.Page[models.PostSummary]{}, err
	}

	return assemble(q, pinned, rows, total), nil
}

// listCategory serves a category listing. The set is merged in memory
// because legacy rows come from a second query.
func (e *Engine) listCategory(ctx context.Context, q Query) (models.Page[models.PostSummary], error) {
	cat, err := e.categories.Get(ctx, *q.CategoryID)
	if err != nil {
		return models.Page[models.PostSummary]{}, err
	}
	ids, err := e.categories.DescendantsOf(ctx, cat.ID)
	if err != nil {
		return models.Page[models.PostSummary]{}, err
	}
	tag, hasLegacy := legacyTagFor(cat.CodeValue())

	var primary, legacy []models.Post
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		primary, err = e.posts.ListByCategories(gctx, ids, q.Keyword)
		return err
	})
	if hasLegacy {
		g.Go(func() error {
			var err error
			legacy, err = e.posts.ListLegacy(gctx, tag, q.Keyword)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return models.Page[models.PostSummary]{}, err
	}

	merged := mergeUnique(primary, legacy)
	sortPosts(merged, q.Sort, q.Dir == Asc)

	effective := effectiveSize(q, 0)
	start := min(q.Page*q.Size, len(merged))
	end := min(start+effective, len(merged))

	e.logger.Debug("category listing",
		"category_id", cat.ID, "subtree", len(ids), "primary", len(primary), "legacy", len(merged)-len(primary))
	return assemble(q, nil, merged[start:end], int64(len(merged))), nil
}

// effectiveSize is the number of non-pinned rows on the page.
func effectiveSize(q Query, pinned int) int {
	if q.Page == 0 {
		return max(1, q.Size-pinned)
	}
	return q.Size
}

// assemble builds the page from pinned rows, the non-pinned window and the
// non-pinned total.
func assemble(q Query, pinned, rows []models.Post, total int64) models.Page[models.PostSummary] {
	items := make([]models.PostSummary, 0, len(pinned)+len(rows))
	for i := range pinned {
		items = append(items, pinned[i].Summary())
	}
	for i := range rows {
		items = append(items, rows[i].Summary())
	}
	page := models.NewPage(items, q.Page, q.Size, total)
	page.TotalElements += int64(len(pinned))
	return page
}

// mergeUnique appends the extra rows not already present in base.
func mergeUnique(base, extra []models.Post) []models.Post {
	seen := make(map[int64]bool, len(base))
	out := make([]models.Post, 0, len(base)+len(extra))
	for _, p := range base {
		seen[p.ID] = true
		out = append(out, p)
	}
	for _, p := range extra {
		if !seen[p.ID] {
			seen[p.ID] = true
			out = append(out, p)
		}
	}
	return out
}

// sortPosts orders rows by key with id as the tie-break.
func sortPosts(rows []models.Post, key store.SortKey, asc bool) {
	slices.SortStableFunc(rows, func(a, b models.Post) int {
		c := comparePosts(a, b, key)
		if c == 0 {
			c = cmpInt64(a.ID, b.ID)
		}
		if !asc {
			c = -c
		}
		return c
	})
}

func comparePosts(a, b models.Post, key store.SortKey) int {
	switch key {
	case store.SortUpdatedAt:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	case store.SortTitle:
		return strings.Compare(a.Title, b.Title)
	case store.SortID:
		return 0
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
