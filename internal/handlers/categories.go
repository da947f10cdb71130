// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"log/slog"
	"net/http"

	"csdoc/internal/category"
	"csdoc/internal/listing"
)

// Categories serves the category tree endpoints.
type Categories struct {
	tree     *category.Tree
	listings *listing.Engine
	logger   *slog.Logger
}

// NewCategories returns the category handlers. Every successful mutation
// drops cached listings, since category moves change listing results.
func NewCategories(tree *category.Tree, listings *listing.Engine, logger *slog.Logger) *Categories {
	return &Categories{tree: tree, listings: listings, logger: logger}
}

// List returns every category in display order with parent labels.
func (h *Categories) List(w http.ResponseWriter, r *http.Request) {
	cats, err := h.tree.List(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, listOf(cats))
}

// Tree returns the categories nested under their parents.
func (h *Categories) Tree(w http.ResponseWriter, r *http.Request) {
	roots, err := h.tree.Tree(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, listOf(roots))
}

// Create adds a category at the end of its siblings.
func (h *Categories) Create(w http.ResponseWriter, r *http.Request) {
	var req categoryCreateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := validate(req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	c, err := h.tree.Create(r.Context(), req.Label, req.ParentID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.listings.Invalidate(r.Context())
	writeJSON(w, http.StatusCreated, c)
}

// Update renames or moves a category.
func (h *Categories) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var req categoryUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := validate(req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	c, err := h.tree.Update(r.Context(), id, category.UpdateInput{Label: req.Label, ParentID: req.ParentID})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.listings.Invalidate(r.Context())
	writeJSON(w, http.StatusOK, c)
}

// Reorder sets the order of a sibling group.
func (h *Categories) Reorder(w http.ResponseWriter, r *http.Request) {
	var req categoryReorderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := validate(req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if err := h.tree.Reorder(r.Context(), req.OrderedIDs); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Bulk applies a whole tree layout at once.
func (h *Categories) Bulk(w http.ResponseWriter, r *http.Request) {
	var req categoryBulkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := validate(req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	items := make([]category.BulkItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = category.BulkItem{ID: it.ID, Label: it.Label, ParentID: it.ParentID, SortOrder: it.SortOrder}
	}
	if err := h.tree.BulkUpdate(r.Context(), items); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.listings.Invalidate(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// Descendants returns the ids of a category and everything below it.
func (h *Categories) Descendants(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	ids, err := h.tree.DescendantsOf(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ids)
}
