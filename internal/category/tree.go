// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package category maintains the category tree. Every structural change
// keeps the tree acyclic and keeps depth equal to the parent's depth plus
// one. Mutations run in a transaction that holds the tree lock, so
// validation and the write see the same snapshot.
package category

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"csdoc/internal/apperr"
	"csdoc/internal/models"
	"csdoc/internal/slug"
)

// Repository is the persistence the tree needs. store.CategoryStore
// implements it.
type Repository interface {
	List(ctx context.Context) ([]models.Category, error)
	FindByID(ctx context.Context, id int64) (*models.Category, error)
	Create(ctx context.Context, c *models.Category) (*models.Category, error)
	Update(ctx context.Context, c *models.Category) error
	SetSortOrder(ctx context.Context, id int64, order int) error
	NextSortOrder(ctx context.Context, parentID *int64) (int, error)
	LockTree(ctx context.Context) error
}

// Transactor runs fn in a transaction. store.TxManager implements it.
type Transactor interface {
	ExecTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// UpdateInput is a partial update. A nil or blank Label keeps the label;
// an unset ParentID keeps the parent.
type UpdateInput struct {
	Label    *string
	ParentID models.OptionalID
}

// BulkItem is one entry of a bulk layout update. A nil ParentID makes the
// category a root; SortOrder is stored as given.
type BulkItem struct {
	ID        int64
	Label     *string
	ParentID  *int64
	SortOrder int
}

// Tree is the category tree service.
type Tree struct {
	repo    Repository
	tx      Transactor
	logger  *slog.Logger
	cascade bool
	now     func() time.Time
}

// New returns a Tree. With cascade set, moving a category also rewrites
// the depth of its whole subtree; otherwise only the moved node changes.
func New(repo Repository, tx Transactor, logger *slog.Logger, cascade bool) *Tree {
	return &Tree{repo: repo, tx: tx, logger: logger, cascade: cascade, now: time.Now}
}

// List returns every category in display order with ParentLabel filled in.
func (t *Tree) List(ctx context.Context) ([]models.Category, error) {
	items, err := t.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	labels := make(map[int64]string, len(items))
	for _, c := range items {
		labels[c.ID] = c.Label
	}
	for i := range items {
		withParentLabel(&items[i], labels)
	}
	return items, nil
}

// Tree returns the categories nested under their parents.
func (t *Tree) Tree(ctx context.Context) ([]models.Category, error) {
	flat, err := t.List(ctx)
	if err != nil {
		return nil, err
	}
	children := make(map[int64][]models.Category)
	var roots []models.Category
	for _, c := range flat {
		if c.ParentID == nil {
			roots = append(roots, c)
		} else {
			children[*c.ParentID] = append(children[*c.ParentID], c)
		}
	}
	return attachChildren(roots, children, map[int64]bool{}), nil
}

func attachChildren(nodes []models.Category, children map[int64][]models.Category, seen map[int64]bool) []models.Category {
	for i := range nodes {
		if seen[nodes[i].ID] {
			continue
		}
		seen[nodes[i].ID] = true
		nodes[i].Children = attachChildren(children[nodes[i].ID], children, seen)
	}
	return nodes
}

// Get returns one category.
func (t *Tree) Get(ctx context.Context, id int64) (*models.Category, error) {
	c, err := t.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, notFound(id)
	}
	return c, nil
}

// Create adds a category as the last child of parentID (or as the last
// root when parentID is nil).
func (t *Tree) Create(ctx context.Context, label string, parentID *int64) (*models.Category, error) {
	label, err := validLabel(label)
	if err != nil {
		return nil, err
	}

	var created *models.Category
	err = t.tx.ExecTx(ctx, func(ctx context.Context) error {
		if err := t.repo.LockTree(ctx); err != nil {
			return err
		}

		depth := 0
		var parentLabel *string
		if parentID != nil {
			parent, err := t.repo.FindByID(ctx, *parentID)
			if err != nil {
				return err
			}
			if parent == nil {
				return apperr.NotFound(fmt.Sprintf("parent category %d not found", *parentID))
			}
			depth = parent.Depth + 1
			parentLabel = &parent.Label
		}

		order, err := t.repo.NextSortOrder(ctx, parentID)
		if err != nil {
			return err
		}

		code := slug.Code("CAT", label, t.now())
		created, err = t.repo.Create(ctx, &models.Category{
			Code:      &code,
			Label:     label,
			ParentID:  parentID,
			Depth:     depth,
			SortOrder: order,
		})
		if err != nil {
			return err
		}
		created.ParentLabel = parentLabel
		return nil
	})
	if err != nil {
		return nil, err
	}

	t.logger.Info("category created", "id", created.ID, "parent_id", parentID, "depth", created.Depth)
	return created, nil
}

// Update renames and/or moves a category.
func (t *Tree) Update(ctx context.Context, id int64, in UpdateInput) (*models.Category, error) {
	var updated models.Category
	err := t.tx.ExecTx(ctx, func(ctx context.Context) error {
		if err := t.repo.LockTree(ctx); err != nil {
			return err
		}
		snap, err := t.snapshot(ctx)
		if err != nil {
			return err
		}
		c, ok := snap.byID[id]
		if !ok {
			return notFound(id)
		}

		moved, err := snap.apply(c, in.Label, in.ParentID)
		if err != nil {
			return err
		}
		if err := t.repo.Update(ctx, c); err != nil {
			return err
		}
		if moved && t.cascade {
			if err := t.cascadeDepth(ctx, snap, c); err != nil {
				return err
			}
		}
		updated = *c
		withParentLabel(&updated, snap.labels())
		return nil
	})
	if err != nil {
		return nil, err
	}

	t.logger.Info("category updated", "id", id, "parent_id", updated.ParentID, "depth", updated.Depth)
	return &updated, nil
}

// Reorder sets SortOrder to the index of each id in orderedIDs.
func (t *Tree) Reorder(ctx context.Context, orderedIDs []int64) error {
	if len(orderedIDs) == 0 {
		return nil
	}
	seen := make(map[int64]bool, len(orderedIDs))
	for _, id := range orderedIDs {
		if seen[id] {
			return apperr.Invalid(fmt.Sprintf("category %d listed more than once", id))
		}
		seen[id] = true
	}

	err := t.tx.ExecTx(ctx, func(ctx context.Context) error {
		if err := t.repo.LockTree(ctx); err != nil {
			return err
		}
		snap, err := t.snapshot(ctx)
		if err != nil {
			return err
		}
		for _, id := range orderedIDs {
			if _, ok := snap.byID[id]; !ok {
				return notFound(id)
			}
		}
		for i, id := range orderedIDs {
			if err := t.repo.SetSortOrder(ctx, id, i); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	t.logger.Info("categories reordered", "count", len(orderedIDs))
	return nil
}

// BulkUpdate applies a batch of label/parent/sort-order changes atomically.
// Items are validated in order against a snapshot that already reflects
// the earlier items, so a batch cannot sneak a cycle past the check.
func (t *Tree) BulkUpdate(ctx context.Context, items []BulkItem) error {
	if len(items) == 0 {
		return nil
	}

	err := t.tx.ExecTx(ctx, func(ctx context.Context) error {
		if err := t.repo.LockTree(ctx); err != nil {
			return err
		}
		snap, err := t.snapshot(ctx)
		if err != nil {
			return err
		}
		for _, item := range items {
			if _, ok := snap.byID[item.ID]; !ok {
				return notFound(item.ID)
			}
		}

		touched := make(map[int64]bool)
		var movedNodes []*models.Category
		for _, item := range items {
			c := snap.byID[item.ID]
			parent := models.NullID()
			if item.ParentID != nil {
				parent = models.SomeID(*item.ParentID)
			}
			moved, err := snap.apply(c, item.Label, parent)
			if err != nil {
				return err
			}
			c.SortOrder = item.SortOrder
			touched[c.ID] = true
			if moved {
				movedNodes = append(movedNodes, c)
			}
		}

		if t.cascade {
			for _, c := range movedNodes {
				for _, d := range snap.relevel(c) {
					touched[d.ID] = true
				}
			}
		}

		for _, item := range items {
			delete(touched, item.ID)
			if err := t.repo.Update(ctx, snap.byID[item.ID]); err != nil {
				return err
			}
		}
		for id := range touched {
			if err := t.repo.Update(ctx, snap.byID[id]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	t.logger.Info("categories bulk updated", "count", len(items))
	return nil
}

// DescendantsOf returns id and the ids of every category below it,
// breadth first.
func (t *Tree) DescendantsOf(ctx context.Context, id int64) ([]int64, error) {
	snap, err := t.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := snap.byID[id]; !ok {
		return nil, notFound(id)
	}
	return snap.descendants(id), nil
}

func (t *Tree) cascadeDepth(ctx context.Context, snap *snapshot, root *models.Category) error {
	for _, d := range snap.relevel(root) {
		if err := t.repo.Update(ctx, d); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tree) snapshot(ctx context.Context) (*snapshot, error) {
	items, err := t.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return newSnapshot(items), nil
}

func validLabel(label string) (string, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return "", apperr.Invalid("label is required")
	}
	if utf8.RuneCountInString(label) > models.MaxCategoryLabel {
		return "", apperr.Invalid(fmt.Sprintf("label must be at most %d characters", models.MaxCategoryLabel))
	}
	return label, nil
}

func withParentLabel(c *models.Category, labels map[int64]string) {
	c.ParentLabel = nil
	if c.ParentID == nil {
		return
	}
	if l, ok := labels[*c.ParentID]; ok {
		c.ParentLabel = &l
	}
}

func notFound(id int64) error {
	return apperr.NotFound(fmt.Sprintf("category %d not found", id))
}
