// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package catalog owns the post lifecycle: creation, edits, soft delete,
// restore and hard delete. A content change writes the body file, appends
// a version and moves the post's pointers in one transaction, while a
// per-post mutex keeps concurrent edits of the same post in line.
// Edits to different posts never wait on each other.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"csdoc/internal/apperr"
	"csdoc/internal/models"
)

// PostRepository is the metadata persistence. store.PostStore implements it.
type PostRepository interface {
	Create(ctx context.Context, p *models.Post) (*models.Post, error)
	FindByID(ctx context.Context, id int64) (*models.Post, error)
	FindByIDForUpdate(ctx context.Context, id int64) (*models.Post, error)
	Update(ctx context.Context, p *models.Post) error
	IncrementViewCount(ctx context.Context, id int64) (bool, error)
	Delete(ctx context.Context, id int64) error
}

// Bodies stores markdown bodies. content.Store implements it.
type Bodies interface {
	Save(text string, id int64) (string, error)
	Overwrite(path, text string) error
	SaveOrOverwrite(text string, id int64) (string, error)
	Read(path string) (string, error)
	DeleteIfExists(path string) error
}

// Versions is the version ledger. ledger.Ledger implements it.
type Versions interface {
	Append(ctx context.Context, postID int64, content string, author *string) (*models.Version, error)
	Latest(ctx context.Context, postID int64) (*models.Version, error)
	Get(ctx context.Context, postID int64, number int) (*models.Version, error)
	List(ctx context.Context, postID int64) ([]models.Version, error)
}

// Categories resolves category ids. category.Tree implements it.
type Categories interface {
	Get(ctx context.Context, id int64) (*models.Category, error)
}

// Transactor runs fn in a transaction. store.TxManager implements it.
type Transactor interface {
	ExecTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// AttachmentRemover deletes stored attachment objects. It is optional.
type AttachmentRemover interface {
	DeleteURLs(ctx context.Context, urls []string) error
}

// CreateInput describes a new post.
type CreateInput struct {
	Title       string
	CategoryID  *int64
	IsNotice    bool
	Content     string
	Author      *string
	Attachments []string
}

// UpdateInput is a full replacement of title and body. CategoryID and
// IsNotice are applied when set.
type UpdateInput struct {
	Title      string
	Content    string
	CategoryID *int64
	IsNotice   *bool
	Author     *string
}

// PatchInput is a partial update. Nil fields and a blank title are left
// alone.
type PatchInput struct {
	Title      *string
	CategoryID *int64
	IsNotice   *bool
	Content    *string
	Author     *string
}

func (in PatchInput) empty() bool {
	return (in.Title == nil || strings.TrimSpace(*in.Title) == "") &&
		in.CategoryID == nil && in.IsNotice == nil && in.Content == nil
}

// Catalog is the post lifecycle service.
type Catalog struct {
	posts       PostRepository
	bodies      Bodies
	versions    Versions
	categories  Categories
	tx          Transactor
	attachments AttachmentRemover
	logger      *slog.Logger
	locks       *docLocks
}

// New returns a Catalog. attachments may be nil when object storage is not
// configured.
func New(posts PostRepository, bodies Bodies, versions Versions, categories Categories,
	tx Transactor, attachments AttachmentRemover, logger *slog.Logger) *Catalog {
	return &Catalog{
		posts:       posts,
		bodies:      bodies,
		versions:    versions,
		categories:  categories,
		tx:          tx,
		attachments: attachments,
		logger:      logger,
		locks:       newDocLocks(),
	}
}

// Create stores a new post, its body file and version 1.
func (c *Catalog) Create(ctx context.Context, in CreateInput) (*models.PostDetail, error) {
	title, err := validTitle(in.Title)
	if err != nil {
		return nil, err
	}
	if in.CategoryID == nil {
		return nil, apperr.Invalid("categoryId is required")
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, apperr.Invalid("content is required")
	}
	if _, err := c.categories.Get(ctx, *in.CategoryID); err != nil {
		return nil, err
	}

	var (
		post    *models.Post
		version *models.Version
		path    string
	)
	err = c.tx.ExecTx(ctx, func(ctx context.Context) error {
		var err error
		post, err = c.posts.Create(ctx, &models.Post{
			Title:       title,
			CategoryID:  in.CategoryID,
			IsNotice:    in.IsNotice,
			Attachments: in.Attachments,
		})
		if err != nil {
			return err
		}

		unlock := c.locks.lock(post.ID)
		defer unlock()

		path, err = c.bodies.Save(in.Content, post.ID)
		if err != nil {
			return err
		}
		version, err = c.versions.Append(ctx, post.ID, in.Content, in.Author)
		if err != nil {
			return err
		}
		post.ContentPath = &path
		if version != nil {
			post.CurrentVersionID = &version.ID
		}
		return c.posts.Update(ctx, post)
	})
	if err != nil {
		if path != "" {
			if rmErr := c.bodies.DeleteIfExists(path); rmErr != nil {
				c.logger.Warn("orphan content file left behind", "path", path, "error", rmErr)
			}
		}
		return nil, err
	}

	c.logger.Info("post created", "id", post.ID, "category_id", *in.CategoryID, "notice", in.IsNotice)
	return detail(post, in.Content, version), nil
}

// Get returns an active post with its body.
func (c *Catalog) Get(ctx context.Context, id int64) (*models.PostDetail, error) {
	p, err := c.active(ctx, id)
	if err != nil {
		return nil, err
	}
	body, err := c.readBody(p)
	if err != nil {
		return nil, err
	}
	latest, err := c.versions.Latest(ctx, id)
	if err != nil {
		return nil, err
	}
	return detail(p, body, latest), nil
}

// Content returns only the body of an active post.
func (c *Catalog) Content(ctx context.Context, id int64) (string, error) {
	p, err := c.active(ctx, id)
	if err != nil {
		return "", err
	}
	return c.readBody(p)
}

// Update replaces the title and body of a post.
func (c *Catalog) Update(ctx context.Context, id int64, in UpdateInput) (*models.PostDetail, error) {
	title, err := validTitle(in.Title)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, apperr.Invalid("content is required")
	}
	return c.Patch(ctx, id, PatchInput{
		Title:      &title,
		CategoryID: in.CategoryID,
		IsNotice:   in.IsNotice,
		Content:    &in.Content,
		Author:     in.Author,
	})
}

// Patch applies the fields present in in.
func (c *Catalog) Patch(ctx context.Context, id int64, in PatchInput) (*models.PostDetail, error) {
	if in.empty() {
		return nil, apperr.InvalidCode(apperr.CodeNothingToUpdate, "nothing to update")
	}
	var title string
	if in.Title != nil && strings.TrimSpace(*in.Title) != "" {
		t, err := validTitle(*in.Title)
		if err != nil {
			return nil, err
		}
		title = t
	}
	if in.CategoryID != nil {
		if _, err := c.categories.Get(ctx, *in.CategoryID); err != nil {
			return nil, err
		}
	}

	var version *models.Version
	p, err := c.mutate(ctx, id, func(ctx context.Context, p *models.Post) error {
		if title != "" {
			p.Title = title
		}
		if in.CategoryID != nil {
			p.CategoryID = in.CategoryID
		}
		if in.IsNotice != nil {
			p.IsNotice = *in.IsNotice
		}
		if in.Content != nil {
			v, err := c.writeContent(ctx, p, *in.Content, in.Author)
			if err != nil {
				return err
			}
			version = v
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("post updated", "id", id, "content_changed", in.Content != nil)

	body := ""
	if in.Content != nil {
		body = *in.Content
	} else if body, err = c.readBody(p); err != nil {
		return nil, err
	}
	if version == nil {
		if version, err = c.versions.Latest(ctx, id); err != nil {
			return nil, err
		}
	}
	return detail(p, body, version), nil
}

// ChangeTitle renames a post.
func (c *Catalog) ChangeTitle(ctx context.Context, id int64, title string) (*models.PostDetail, error) {
	if strings.TrimSpace(title) == "" {
		return nil, apperr.Invalid("title is required")
	}
	return c.Patch(ctx, id, PatchInput{Title: &title})
}

// ChangeCategory moves a post to another category.
func (c *Catalog) ChangeCategory(ctx context.Context, id, categoryID int64) (*models.PostDetail, error) {
	return c.Patch(ctx, id, PatchInput{CategoryID: &categoryID})
}

// ChangeNotice pins or unpins a post.
func (c *Catalog) ChangeNotice(ctx context.Context, id int64, notice bool) (*models.PostDetail, error) {
	return c.Patch(ctx, id, PatchInput{IsNotice: &notice})
}

// ChangeContent replaces the body and appends a version.
func (c *Catalog) ChangeContent(ctx context.Context, id int64, content string, author *string) (*models.PostDetail, error) {
	return c.Patch(ctx, id, PatchInput{Content: &content, Author: author})
}

// IncrementViewCount counts one view of an active post.
func (c *Catalog) IncrementViewCount(ctx context.Context, id int64) error {
	ok, err := c.posts.IncrementViewCount(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return postNotFound(id)
	}
	return nil
}

// ChangeAttachments replaces the attachment list.
func (c *Catalog) ChangeAttachments(ctx context.Context, id int64, urls []string) (*models.Post, error) {
	return c.mutate(ctx, id, func(_ context.Context, p *models.Post) error {
		p.Attachments = append([]string{}, urls...)
		return nil
	})
}

// AddAttachments appends to the attachment list.
func (c *Catalog) AddAttachments(ctx context.Context, id int64, urls []string) (*models.Post, error) {
	return c.mutate(ctx, id, func(_ context.Context, p *models.Post) error {
		p.Attachments = append(p.Attachments, urls...)
		return nil
	})
}

// SoftDelete hides a post. Deleting a deleted post is a no-op.
func (c *Catalog) SoftDelete(ctx context.Context, id int64) error {
	return c.setDeleted(ctx, id, true)
}

// Restore brings a soft-deleted post back. Restoring an active post is a
// no-op.
func (c *Catalog) Restore(ctx context.Context, id int64) error {
	return c.setDeleted(ctx, id, false)
}

func (c *Catalog) setDeleted(ctx context.Context, id int64, deleted bool) error {
	unlock := c.locks.lock(id)
	defer unlock()

	changed := false
	err := c.tx.ExecTx(ctx, func(ctx context.Context) error {
		p, err := c.posts.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if p == nil {
			return postNotFound(id)
		}
		if p.Deleted == deleted {
			return nil
		}
		p.Deleted = deleted
		changed = true
		return c.posts.Update(ctx, p)
	})
	if err != nil {
		return err
	}
	if changed {
		c.logger.Info("post deletion state changed", "id", id, "deleted", deleted)
	}
	return nil
}

// HardDelete removes a post row, then its body file and attachments.
// Versions are kept. File and object cleanup runs only once the row is
// gone and its failures are logged, not returned.
func (c *Catalog) HardDelete(ctx context.Context, id int64) error {
	unlock := c.locks.lock(id)
	defer unlock()

	p, err := c.posts.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if p == nil {
		return postNotFound(id)
	}

	if err := c.posts.Delete(ctx, id); err != nil {
		return err
	}

	if p.ContentPath != nil {
		if err := c.bodies.DeleteIfExists(*p.ContentPath); err != nil {
			c.logger.Warn("failed to delete post body", "id", id, "path", *p.ContentPath, "error", err)
		}
	}
	if c.attachments != nil && len(p.Attachments) > 0 {
		if err := c.attachments.DeleteURLs(ctx, p.Attachments); err != nil {
			c.logger.Warn("failed to delete attachments", "id", id, "error", err)
		}
	}

	c.logger.Info("post hard deleted", "id", id)
	return nil
}

// Versions lists the versions of a post, deleted or not. Versions of a
// hard-deleted post stay listable; an id with no row and no versions is
// not found.
func (c *Catalog) Versions(ctx context.Context, id int64) ([]models.Version, error) {
	versions, err := c.versions.List(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(versions) > 0 {
		return versions, nil
	}
	p, err := c.posts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, postNotFound(id)
	}
	return versions, nil
}

// Version returns one version of a post, deleted or not.
func (c *Catalog) Version(ctx context.Context, id int64, number int) (*models.Version, error) {
	return c.versions.Get(ctx, id, number)
}

// mutate loads an active post under its lock and a row lock, applies fn
// and saves the result, all in one transaction.
func (c *Catalog) mutate(ctx context.Context, id int64, fn func(ctx context.Context, p *models.Post) error) (*models.Post, error) {
	unlock := c.locks.lock(id)
	defer unlock()

	var out *models.Post
	err := c.tx.ExecTx(ctx, func(ctx context.Context) error {
		p, err := c.posts.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if p == nil || p.Deleted {
			return postNotFound(id)
		}
		if err := fn(ctx, p); err != nil {
			return err
		}
		if err := c.posts.Update(ctx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// writeContent writes the body file first, then appends the version, then
// moves the pointers on p. The caller persists p.
func (c *Catalog) writeContent(ctx context.Context, p *models.Post, content string, author *string) (*models.Version, error) {
	var path string
	if p.ContentPath != nil && *p.ContentPath != "" {
		path = *p.ContentPath
		if err := c.bodies.Overwrite(path, content); err != nil {
			return nil, err
		}
	} else {
		var err error
		if path, err = c.bodies.SaveOrOverwrite(content, p.ID); err != nil {
			return nil, err
		}
	}

	v, err := c.versions.Append(ctx, p.ID, content, author)
	if err != nil {
		return nil, err
	}
	p.ContentPath = &path
	if v != nil {
		p.CurrentVersionID = &v.ID
	}
	return v, nil
}

func (c *Catalog) active(ctx context.Context, id int64) (*models.Post, error) {
	p, err := c.posts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil || p.Deleted {
		return nil, postNotFound(id)
	}
	return p, nil
}

// readBody returns "" for rows that never had a body file.
func (c *Catalog) readBody(p *models.Post) (string, error) {
	if p.ContentPath == nil || *p.ContentPath == "" {
		return "", nil
	}
	return c.bodies.Read(*p.ContentPath)
}

func validTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", apperr.Invalid("title is required")
	}
	if utf8.RuneCountInString(title) > models.MaxPostTitle {
		return "", apperr.Invalid(fmt.Sprintf("title must be at most %d characters", models.MaxPostTitle))
	}
	return title, nil
}

func detail(p *models.Post, body string, v *models.Version) *models.PostDetail {
	d := &models.PostDetail{Post: *p, Content: body}
	if v != nil {
		d.VersionNumber = v.VersionNumber
	}
	return d
}

func postNotFound(id int64) error {
	return apperr.NotFound(fmt.Sprintf("post %d not found", id))
}
