// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"csdoc/internal/models"
)

// PostStore manages post metadata in the database. Bodies are not stored
// here; see the content package.
type PostStore struct {
	db *sql.DB
}

// NewPostStore returns a new PostStore.
func NewPostStore(db *sql.DB) *PostStore {
	return &PostStore{db: db}
}

const postColumns = `id, title, content_path, category_id, legacy_category, is_notice,
	view_count, attachments, deleted, current_version_id, created_at, updated_at`

// SortKey selects the ordering column of a post query.
type SortKey string

const (
	SortCreatedAt SortKey = "createdAt"
	SortUpdatedAt SortKey = "updatedAt"
	SortTitle     SortKey = "title"
	SortID        SortKey = "id"
)

var sortColumns = map[SortKey]string{
	SortCreatedAt: "created_at",
	SortUpdatedAt: "updated_at",
	SortTitle:     "title",
	SortID:        "id",
}

// PostFilter narrows the active (non-deleted, non-notice) post set.
type PostFilter struct {
	Keyword    string
	LegacyTags []models.LegacyTag
	Sort       SortKey
	Asc        bool
}

// scanPost scans a row into a Post struct.
func scanPost(scanner interface{ Scan(...any) error }) (*models.Post, error) {
	var (
		p           models.Post
		legacy      sql.NullString
		viewCount   int64
		attachments []byte
	)
	err := scanner.Scan(
		&p.ID, &p.Title, &p.ContentPath, &p.CategoryID, &legacy, &p.IsNotice,
		&viewCount, &attachments, &p.Deleted, &p.CurrentVersionID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if legacy.Valid && legacy.String != "" {
		tag := models.LegacyTag(legacy.String)
		p.LegacyTag = &tag
	}
	p.ViewCount = uint64(viewCount)
	p.Attachments = []string{}
	if len(attachments) > 0 {
		if err := json.Unmarshal(attachments, &p.Attachments); err != nil {
			return nil, fmt.Errorf("decode attachments of post %d: %w", p.ID, err)
		}
	}
	return &p, nil
}

func (s *PostStore) queryPosts(ctx context.Context, query string, args ...any) ([]models.Post, error) {
	rows, err := executor(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		items = append(items, *p)
	}
	return items, rows.Err()
}

func encodeAttachments(urls []string) (string, error) {
	if urls == nil {
		urls = []string{}
	}
	b, err := json.Marshal(urls)
	if err != nil {
		return "", fmt.Errorf("encode attachments: %w", err)
	}
	return string(b), nil
}

func legacyValue(tag *models.LegacyTag) any {
	if tag == nil {
		return nil
	}
	return string(*tag)
}

// Create inserts a new post (without a content path) and returns it.
func (s *PostStore) Create(ctx context.Context, p *models.Post) (*models.Post, error) {
	attachments, err := encodeAttachments(p.Attachments)
	if err != nil {
		return nil, err
	}
	row := executor(ctx, s.db).QueryRowContext(ctx, `
		INSERT INTO posts (title, category_id, legacy_category, is_notice, attachments)
		VALUES ($1, $2, $3, $4, $5::jsonb)
		RETURNING `+postColumns,
		p.Title, p.CategoryID, legacyValue(p.LegacyTag), p.IsNotice, attachments,
	)
	result, err := scanPost(row)
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return result, nil
}

// FindByID retrieves a post by ID, deleted or not. Returns nil if not found.
func (s *PostStore) FindByID(ctx context.Context, id int64) (*models.Post, error) {
	row := executor(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE id = $1`, id)
	p, err := scanPost(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find post by id: %w", err)
	}
	return p, nil
}

// FindByIDForUpdate is FindByID with a row lock held until the surrounding
// transaction ends.
func (s *PostStore) FindByIDForUpdate(ctx context.Context, id int64) (*models.Post, error) {
	row := executor(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE id = $1 FOR UPDATE`, id)
	p, err := scanPost(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lock post: %w", err)
	}
	return p, nil
}

// FindByIDs returns the posts with the given ids, deleted or not, keyed by id.
func (s *PostStore) FindByIDs(ctx context.Context, ids []int64) (map[int64]models.Post, error) {
	out := make(map[int64]models.Post, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	items, err := s.queryPosts(ctx, `SELECT `+postColumns+` FROM posts WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("find posts by ids: %w", err)
	}
	for _, p := range items {
		out[p.ID] = p
	}
	return out, nil
}

// Update writes every mutable field and refreshes UpdatedAt on p.
func (s *PostStore) Update(ctx context.Context, p *models.Post) error {
	attachments, err := encodeAttachments(p.Attachments)
	if err != nil {
		return err
	}
	err = executor(ctx, s.db).QueryRowContext(ctx, `
		UPDATE posts SET
			title = $1, content_path = $2, category_id = $3, legacy_category = $4,
			is_notice = $5, attachments = $6::jsonb, deleted = $7,
			current_version_id = $8, updated_at = NOW()
		WHERE id = $9
		RETURNING updated_at
	`, p.Title, p.ContentPath, p.CategoryID, legacyValue(p.LegacyTag),
		p.IsNotice, attachments, p.Deleted, p.CurrentVersionID, p.ID,
	).Scan(&p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	return nil
}

// IncrementViewCount bumps the view counter of an active post. It reports
// false when no active post has that id. UpdatedAt is left alone.
func (s *PostStore) IncrementViewCount(ctx context.Context, id int64) (bool, error) {
	res, err := executor(ctx, s.db).ExecContext(ctx,
		`UPDATE posts SET view_count = view_count + 1 WHERE id = $1 AND NOT deleted`, id)
	if err != nil {
		return false, fmt.Errorf("increment view count: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("increment view count: %w", err)
	}
	return n > 0, nil
}

// Delete removes a post row. Versions are kept.
func (s *PostStore) Delete(ctx context.Context, id int64) error {
	_, err := executor(ctx, s.db).ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return nil
}

// ListNotices returns every active notice, newest first.
func (s *PostStore) ListNotices(ctx context.Context) ([]models.Post, error) {
	items, err := s.queryPosts(ctx, `
		SELECT `+postColumns+` FROM posts
		WHERE is_notice AND NOT deleted
		ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list notices: %w", err)
	}
	return items, nil
}

// ListByCategories returns active non-notice posts in any of the given
// categories, optionally filtered by a title keyword.
func (s *PostStore) ListByCategories(ctx context.Context, categoryIDs []int64, keyword string) ([]models.Post, error) {
	w := where{}
	w.add("NOT is_notice AND NOT deleted")
	w.add("category_id = ANY(%s)", categoryIDs)
	w.keyword(keyword)
	items, err := s.queryPosts(ctx, `SELECT `+postColumns+` FROM posts WHERE `+w.String()+
		` ORDER BY created_at DESC, id DESC`, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list posts by categories: %w", err)
	}
	return items, nil
}

// ListLegacy returns active non-notice posts that have no category id but
// carry the given legacy tag.
func (s *PostStore) ListLegacy(ctx context.Context, tag models.LegacyTag, keyword string) ([]models.Post, error) {
	w := where{}
	w.add("NOT is_notice AND NOT deleted AND category_id IS NULL")
	w.add("legacy_category = %s", string(tag))
	w.keyword(keyword)
	items, err := s.queryPosts(ctx, `SELECT `+postColumns+` FROM posts WHERE `+w.String()+
		` ORDER BY created_at DESC, id DESC`, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list legacy posts: %w", err)
	}
	return items, nil
}

func activeWhere(f PostFilter) where {
	w := where{}
	w.add("NOT is_notice AND NOT deleted")
	if len(f.LegacyTags) > 0 {
		tags := make([]string, len(f.LegacyTags))
		for i, t := range f.LegacyTags {
			tags[i] = string(t)
		}
		w.add("legacy_category = ANY(%s)", tags)
	}
	w.keyword(f.Keyword)
	return w
}

// ListActive returns one window of active non-notice posts.
func (s *PostStore) ListActive(ctx context.Context, f PostFilter, offset, limit int) ([]models.Post, error) {
	w := activeWhere(f)
	query := `SELECT ` + postColumns + ` FROM posts WHERE ` + w.String() +
		` ORDER BY ` + orderBy(f.Sort, f.Asc) +
		fmt.Sprintf(` OFFSET %d LIMIT %d`, offset, limit)
	items, err := s.queryPosts(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return items, nil
}

// CountActive counts the active non-notice posts matching f.
func (s *PostStore) CountActive(ctx context.Context, f PostFilter) (int64, error) {
	w := activeWhere(f)
	var n int64
	if err := executor(ctx, s.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM posts WHERE `+w.String(), w.args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return n, nil
}

// ListDeleted returns one window of soft-deleted posts, most recently
// deleted first.
func (s *PostStore) ListDeleted(ctx context.Context, keyword string, offset, limit int) ([]models.Post, error) {
	w := where{}
	w.add("deleted")
	w.keyword(keyword)
	query := `SELECT ` + postColumns + ` FROM posts WHERE ` + w.String() +
		` ORDER BY updated_at DESC, id DESC`
	if limit > 0 {
		query += fmt.Sprintf(` OFFSET %d LIMIT %d`, offset, limit)
	}
	items, err := s.queryPosts(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list deleted posts: %w", err)
	}
	return items, nil
}

// CountDeleted counts soft-deleted posts matching keyword.
func (s *PostStore) CountDeleted(ctx context.Context, keyword string) (int64, error) {
	w := where{}
	w.add("deleted")
	w.keyword(keyword)
	var n int64
	if err := executor(ctx, s.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM posts WHERE `+w.String(), w.args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count deleted posts: %w", err)
	}
	return n, nil
}

func orderBy(key SortKey, asc bool) string {
	col, ok := sortColumns[key]
	if !ok {
		col = sortColumns[SortCreatedAt]
	}
	dir := "DESC"
	if asc {
		dir = "ASC"
	}
	if col == "id" {
		return "id " + dir
	}
	return col + " " + dir + ", id " + dir
}

// where accumulates AND-ed conditions with positional arguments. A %s in
// a condition is replaced by the next placeholder.
type where struct {
	conds []string
	args  []any
}

func (w *where) add(cond string, args ...any) {
	for _, a := range args {
		w.args = append(w.args, a)
		cond = strings.Replace(cond, "%s", fmt.Sprintf("$%d", len(w.args)), 1)
	}
	w.conds = append(w.conds, cond)
}

func (w *where) keyword(kw string) {
	kw = strings.TrimSpace(kw)
	if kw == "" {
		return
	}
	w.add("title ILIKE %s", "%"+escapeLike(kw)+"%")
}

func (w *where) String() string {
	return strings.Join(w.conds, " AND ")
}

// escapeLike escapes LIKE metacharacters so the keyword matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
