// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"csdoc/internal/apperr"
	"csdoc/internal/catalog"
	"csdoc/internal/ingest"
	"csdoc/internal/listing"
	"csdoc/internal/markdown"
	"csdoc/internal/models"
	"csdoc/internal/store"
)

// Posts serves the document endpoints.
type Posts struct {
	catalog  *catalog.Catalog
	listings *listing.Engine
	ingester *ingest.Ingester
	logger   *slog.Logger
}

// NewPosts returns the post handlers.
func NewPosts(cat *catalog.Catalog, listings *listing.Engine, ingester *ingest.Ingester, logger *slog.Logger) *Posts {
	return &Posts{catalog: cat, listings: listings, ingester: ingester, logger: logger}
}

type contentResponse struct {
	PostID  int64  `json:"postId"`
	Content string `json:"content"`
}

// List returns one page of active posts. Notices are pinned to the first
// page of the unfiltered listing.
func (h *Posts) List(w http.ResponseWriter, r *http.Request) {
	q, err := listQuery(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	page, err := h.listings.List(r.Context(), q)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func listQuery(r *http.Request) (listing.Query, error) {
	var q listing.Query
	var err error
	if q.Page, err = queryInt(r, "page", 0); err != nil {
		return q, err
	}
	if q.Size, err = queryInt(r, "size", listing.DefaultSize); err != nil {
		return q, err
	}
	if q.CategoryID, err = queryID(r, "categoryId"); err != nil {
		return q, err
	}
	values := r.URL.Query()
	q.Keyword = values.Get("keyword")
	q.Sort = store.SortKey(values.Get("sort"))
	q.Dir = listing.SortDir(values.Get("dir"))

	// categories may repeat or hold a comma-separated list.
	for _, raw := range values["categories"] {
		for _, part := range strings.Split(raw, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			tag, err := models.ParseLegacyTag(part)
			if err != nil {
				return q, apperr.Invalid(err.Error())
			}
			q.LegacyTags = append(q.LegacyTags, tag)
		}
	}
	return q, nil
}

// Create stores a post from a JSON body.
func (h *Posts) Create(w http.ResponseWriter, r *http.Request) {
	var req postCreateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := validate(req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	d, err := h.catalog.Create(r.Context(), catalog.CreateInput{
		Title:       req.Title,
		CategoryID:  req.CategoryID,
		IsNotice:    req.IsNotice,
		Content:     req.Content,
		Author:      req.Author,
		Attachments: req.Attachments,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.listings.Invalidate(r.Context())
	writeJSON(w, http.StatusCreated, d)
}

// Upload creates a post from a markdown file with its images and
// attachments.
func (h *Posts) Upload(w http.ResponseWriter, r *http.Request) {
	if err := parseMultipart(w, r, maxUploadBody); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	categoryID, err := formID(r, "categoryId")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if categoryID == nil {
		writeError(w, r, h.logger, apperr.Invalid("categoryId is required"))
		return
	}
	notice, err := formBool(r, "isNotice")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	up, closeFiles, err := uploadParts(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	defer closeFiles()

	res, err := h.ingester.Prepare(r.Context(), up)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	d, err := h.catalog.Create(r.Context(), catalog.CreateInput{
		Title:       res.Title,
		CategoryID:  categoryID,
		IsNotice:    notice,
		Content:     res.Content,
		Author:      formAuthor(r),
		Attachments: res.Attachments,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.listings.Invalidate(r.Context())
	writeJSON(w, http.StatusCreated, d)
}

// UploadContent replaces a post's body from a markdown file. The title
// changes only when one is sent; attachments are replaced only when new
// ones are sent.
func (h *Posts) UploadContent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if _, err := h.catalog.Get(r.Context(), id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := parseMultipart(w, r, maxUploadBody); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	up, closeFiles, err := uploadParts(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	defer closeFiles()

	res, err := h.ingester.Prepare(r.Context(), up)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	in := catalog.PatchInput{Content: &res.Content, Author: formAuthor(r)}
	if up.Title != "" {
		in.Title = &res.Title
	}
	d, err := h.catalog.Patch(r.Context(), id, in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if len(res.Attachments) > 0 {
		p, err := h.catalog.ChangeAttachments(r.Context(), id, res.Attachments)
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		d.Post = *p
	}
	h.listings.Invalidate(r.Context())
	writeJSON(w, http.StatusOK, d)
}

func uploadParts(r *http.Request) (ingest.Upload, func(), error) {
	up := ingest.Upload{Title: formValue(r, "title")}

	md, closeMD, err := formFiles(r, "file")
	if err != nil {
		return up, func() {}, err
	}
	if len(md) != 1 {
		closeMD()
		return up, func() {}, apperr.Invalid("exactly one markdown file is required")
	}
	up.Markdown = md[0]

	images, closeImages, err := formFiles(r, "images")
	if err != nil {
		closeMD()
		return up, func() {}, err
	}
	up.Images = images

	attachments, closeAttachments, err := formFiles(r, "attachments")
	if err != nil {
		closeMD()
		closeImages()
		return up, func() {}, err
	}
	up.Attachments = attachments

	return up, func() {
		closeMD()
		closeImages()
		closeAttachments()
	}, nil
}

// History returns the change feed, optionally filtered by type.
func (h *Posts) History(w http.ResponseWriter, r *http.Request) {
	var changeType models.ChangeType
	if raw := r.URL.Query().Get("type"); raw != "" {
		changeType = models.ChangeType(strings.ToLower(raw))
	}
	items, err := h.listings.ChangeHistory(r.Context(), changeType)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// Deleted pages through soft-deleted posts.
func (h *Posts) Deleted(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 0)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	size, err := queryInt(r, "size", listing.DefaultSize)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	id, err := queryID(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	out, err := h.listings.ListDeleted(r.Context(), page, size, r.URL.Query().Get("keyword"), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// DeletionHistory returns every soft-deleted post, most recent first.
func (h *Posts) DeletionHistory(w http.ResponseWriter, r *http.Request) {
	items, err := h.listings.DeletionHistory(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// Get returns a post with its body. ?render=html adds rendered HTML.
func (h *Posts) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	d, err := h.catalog.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if r.URL.Query().Get("render") == "html" {
		html, err := markdown.ToHTML(d.Content)
		if err != nil {
			writeError(w, r, h.logger, apperr.Unexpected(err))
			return
		}
		d.HTML = html
	}
	writeJSON(w, http.StatusOK, d)
}

// Update replaces title and body.
func (h *Posts) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var req postUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := validate(req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	d, err := h.catalog.Update(r.Context(), id, catalog.UpdateInput{
		Title:      req.Title,
		Content:    req.Content,
		CategoryID: req.CategoryID,
		IsNotice:   req.IsNotice,
		Author:     req.Author,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.listings.Invalidate(r.Context())
	writeJSON(w, http.StatusOK, d)
}

// Patch applies the fields present in the body.
func (h *Posts) Patch(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var req postPatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := validate(req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	d, err := h.catalog.Patch(r.Context(), id, catalog.PatchInput{
		Title:      req.Title,
		CategoryID: req.CategoryID,
		IsNotice:   req.IsNotice,
		Content:    req.Content,
		Author:     req.Author,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.listings.Invalidate(r.Context())
	writeJSON(w, http.StatusOK, d)
}

// Delete soft-deletes a post.
func (h *Posts) Delete(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.catalog.SoftDelete)
}

// HardDelete removes a post, its body file and its attachments. Versions
// are kept.
func (h *Posts) HardDelete(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.catalog.HardDelete)
}

// Restore brings a soft-deleted post back.
func (h *Posts) Restore(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.catalog.Restore)
}

func (h *Posts) lifecycle(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id int64) error) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := op(r.Context(), id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.listings.Invalidate(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// Content returns the markdown body only.
func (h *Posts) Content(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	body, err := h.catalog.Content(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, contentResponse{PostID: id, Content: body})
}

// View counts one view. Cached listings are left to expire.
func (h *Posts) View(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.catalog.IncrementViewCount(r.Context(), id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Attachments uploads the "attachments" parts and appends them to the post.
func (h *Posts) Attachments(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if _, err := h.catalog.Get(r.Context(), id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := parseMultipart(w, r, maxUploadBody); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files, closeFiles, err := formFiles(r, "attachments")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	defer closeFiles()
	if len(files) == 0 {
		writeError(w, r, h.logger, apperr.Invalid("at least one attachment is required"))
		return
	}

	urls, err := h.ingester.StoreAttachments(r.Context(), files)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	p, err := h.catalog.AddAttachments(r.Context(), id, urls)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.listings.Invalidate(r.Context())
	writeJSON(w, http.StatusOK, p)
}

// Versions lists every version of a post, oldest first.
func (h *Posts) Versions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	versions, err := h.catalog.Versions(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, listOf(versions))
}

// Version returns one version of a post by number.
func (h *Posts) Version(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	number, err := pathID(r, "number")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	v, err := h.catalog.Version(r.Context(), id, int(number))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}
