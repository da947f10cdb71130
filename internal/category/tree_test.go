// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package category

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"sort"
	"strings"
	"testing"

	"csdoc/internal/apperr"
	"csdoc/internal/models"
)

// memRepo is an in-memory Repository.
type memRepo struct {
	rows   map[int64]models.Category
	nextID int64
}

func newMemRepo() *memRepo {
	return &memRepo{rows: map[int64]models.Category{}}
}

func (r *memRepo) List(context.Context) ([]models.Category, error) {
	out := make([]models.Category, 0, len(r.rows))
	for _, c := range r.rows {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *memRepo) FindByID(_ context.Context, id int64) (*models.Category, error) {
	c, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *memRepo) Create(_ context.Context, c *models.Category) (*models.Category, error) {
	r.nextID++
	out := *c
	out.ID = r.nextID
	r.rows[out.ID] = out
	return &out, nil
}

func (r *memRepo) Update(_ context.Context, c *models.Category) error {
	out := *c
	out.Children = nil
	out.ParentLabel = nil
	r.rows[c.ID] = out
	return nil
}

func (r *memRepo) SetSortOrder(_ context.Context, id int64, order int) error {
	c := r.rows[id]
	c.SortOrder = order
	r.rows[id] = c
	return nil
}

func (r *memRepo) NextSortOrder(_ context.Context, parentID *int64) (int, error) {
	next := 0
	for _, c := range r.rows {
		if sameParent(c.ParentID, parentID) && c.SortOrder+1 > next {
			next = c.SortOrder + 1
		}
	}
	return next, nil
}

func (r *memRepo) LockTree(context.Context) error { return nil }

func sameParent(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// memTx restores the repository when fn fails, like a rolled back transaction.
type memTx struct{ repo *memRepo }

func (m memTx) ExecTx(ctx context.Context, fn func(context.Context) error) error {
	saved := make(map[int64]models.Category, len(m.repo.rows))
	for k, v := range m.repo.rows {
		saved[k] = v
	}
	savedID := m.repo.nextID
	if err := fn(ctx); err != nil {
		m.repo.rows = saved
		m.repo.nextID = savedID
		return err
	}
	return nil
}

func newTree(cascade bool) (*Tree, *memRepo) {
	repo := newMemRepo()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(repo, memTx{repo}, logger, cascade), repo
}

func mustCreate(t *testing.T, tr *Tree, label string, parentID *int64) *models.Category {
	t.Helper()
	c, err := tr.Create(context.Background(), label, parentID)
	if err != nil {
		t.Fatalf("Create(%q): %v", label, err)
	}
	return c
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	var ae *apperr.Error
	if !errors.As(err, &ae) || ae.Code != code {
		t.Fatalf("err = %v, want code %s", err, code)
	}
}

func TestCreate_DepthAndSortOrder(t *testing.T) {
	tr, _ := newTree(false)

	a := mustCreate(t, tr, "  업무시스템  ", nil)
	if a.Depth != 0 || a.SortOrder != 0 || a.Label != "업무시스템" {
		t.Errorf("root: %+v", a)
	}
	if !strings.HasPrefix(a.CodeValue(), "CAT_") {
		t.Errorf("code = %q", a.CodeValue())
	}

	b := mustCreate(t, tr, "Mail", &a.ID)
	c := mustCreate(t, tr, "VPN", &a.ID)
	if b.Depth != 1 || b.SortOrder != 0 || c.SortOrder != 1 {
		t.Errorf("children: b=%+v c=%+v", b, c)
	}
	if b.ParentLabel == nil || *b.ParentLabel != "업무시스템" {
		t.Errorf("ParentLabel = %v", b.ParentLabel)
	}

	d := mustCreate(t, tr, "second root", nil)
	if d.SortOrder != 1 {
		t.Errorf("second root SortOrder = %d, want 1", d.SortOrder)
	}
}

func TestCreate_Validation(t *testing.T) {
	tr, repo := newTree(false)
	ctx := context.Background()

	if _, err := tr.Create(ctx, "   ", nil); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("blank label err = %v", err)
	}
	if _, err := tr.Create(ctx, strings.Repeat("가", 101), nil); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("long label err = %v", err)
	}
	if _, err := tr.Create(ctx, strings.Repeat("가", 100), nil); err != nil {
		t.Errorf("100-rune label err = %v", err)
	}
	missing := int64(999)
	if _, err := tr.Create(ctx, "orphan", &missing); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing parent err = %v", err)
	}
	if len(repo.rows) != 1 {
		t.Errorf("rows = %d, want 1", len(repo.rows))
	}
}

func TestUpdate_CircularAndReorderScenario(t *testing.T) {
	tr, repo := newTree(false)
	ctx := context.Background()

	a := mustCreate(t, tr, "A", nil)
	b := mustCreate(t, tr, "B", &a.ID)
	if b.Depth != 1 {
		t.Fatalf("B.depth = %d, want 1", b.Depth)
	}

	_, err := tr.Update(ctx, a.ID, UpdateInput{ParentID: models.SomeID(b.ID)})
	assertCode(t, err, apperr.CodeCircular)
	if repo.rows[a.ID].ParentID != nil || repo.rows[a.ID].Depth != 0 {
		t.Error("failed update mutated A")
	}

	if err := tr.Reorder(ctx, []int64{b.ID, a.ID}); err != nil {
		t.Fatalf("Reorder: %v", err)
	}
	if repo.rows[a.ID].SortOrder != 1 || repo.rows[b.ID].SortOrder != 0 {
		t.Errorf("after reorder A=%d B=%d", repo.rows[a.ID].SortOrder, repo.rows[b.ID].SortOrder)
	}
}

func TestUpdate_SelfParent(t *testing.T) {
	tr, repo := newTree(false)
	a := mustCreate(t, tr, "A", nil)

	_, err := tr.Update(context.Background(), a.ID, UpdateInput{ParentID: models.SomeID(a.ID)})
	assertCode(t, err, apperr.CodeSelfParent)
	if repo.rows[a.ID].ParentID != nil {
		t.Error("self-parent update mutated state")
	}
}

func TestUpdate_DeepDescendantIsCircular(t *testing.T) {
	tr, _ := newTree(false)
	a := mustCreate(t, tr, "A", nil)
	b := mustCreate(t, tr, "B", &a.ID)
	c := mustCreate(t, tr, "C", &b.ID)

	_, err := tr.Update(context.Background(), a.ID, UpdateInput{ParentID: models.SomeID(c.ID)})
	assertCode(t, err, apperr.CodeCircular)
}

func TestUpdate_LabelAndParentSemantics(t *testing.T) {
	tr, _ := newTree(false)
	ctx := context.Background()
	a := mustCreate(t, tr, "A", nil)
	b := mustCreate(t, tr, "B", &a.ID)

	blank := "  "
	got, err := tr.Update(ctx, b.ID, UpdateInput{Label: &blank})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Label != "B" || got.ParentID == nil || *got.ParentID != a.ID {
		t.Errorf("blank label / absent parent should change nothing: %+v", got)
	}

	renamed := " B2 "
	got, _ = tr.Update(ctx, b.ID, UpdateInput{Label: &renamed})
	if got.Label != "B2" {
		t.Errorf("Label = %q, want B2", got.Label)
	}

	got, err = tr.Update(ctx, b.ID, UpdateInput{ParentID: models.NullID()})
	if err != nil {
		t.Fatalf("Update to root: %v", err)
	}
	if got.ParentID != nil || got.Depth != 0 || got.ParentLabel != nil {
		t.Errorf("explicit null parent should make a root: %+v", got)
	}

	missing := int64(404)
	if _, err := tr.Update(ctx, b.ID, UpdateInput{ParentID: models.SomeID(missing)}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing parent err = %v", err)
	}
	if _, err := tr.Update(ctx, missing, UpdateInput{}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing category err = %v", err)
	}
}

func TestUpdate_DepthIsShallowByDefault(t *testing.T) {
	tr, repo := newTree(false)
	ctx := context.Background()
	r := mustCreate(t, tr, "R", nil)
	d := mustCreate(t, tr, "D", &r.ID)
	a := mustCreate(t, tr, "A", nil)
	b := mustCreate(t, tr, "B", &a.ID)
	c := mustCreate(t, tr, "C", &b.ID)

	if _, err := tr.Update(ctx, b.ID, UpdateInput{ParentID: models.SomeID(d.ID)}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if repo.rows[b.ID].Depth != 2 {
		t.Errorf("B.depth = %d, want 2", repo.rows[b.ID].Depth)
	}
	if repo.rows[c.ID].Depth != 2 {
		t.Errorf("C.depth = %d, want the stale 2 without cascading", repo.rows[c.ID].Depth)
	}
}

func TestUpdate_CascadeDepth(t *testing.T) {
	tr, repo := newTree(true)
	ctx := context.Background()
	r := mustCreate(t, tr, "R", nil)
	d := mustCreate(t, tr, "D", &r.ID)
	a := mustCreate(t, tr, "A", nil)
	b := mustCreate(t, tr, "B", &a.ID)
	c := mustCreate(t, tr, "C", &b.ID)
	e := mustCreate(t, tr, "E", &c.ID)

	if _, err := tr.Update(ctx, b.ID, UpdateInput{ParentID: models.SomeID(d.ID)}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	for id, want := range map[int64]int{b.ID: 2, c.ID: 3, e.ID: 4} {
		if got := repo.rows[id].Depth; got != want {
			t.Errorf("depth of %d = %d, want %d", id, got, want)
		}
	}
}

func TestReorder_Errors(t *testing.T) {
	tr, repo := newTree(false)
	ctx := context.Background()
	a := mustCreate(t, tr, "A", nil)
	b := mustCreate(t, tr, "B", nil)

	if err := tr.Reorder(ctx, []int64{b.ID, 999}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing id err = %v", err)
	}
	if repo.rows[b.ID].SortOrder != 1 {
		t.Error("failed reorder changed sort order")
	}
	if err := tr.Reorder(ctx, []int64{a.ID, a.ID}); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("duplicate id err = %v", err)
	}
	if err := tr.Reorder(ctx, nil); err != nil {
		t.Errorf("empty reorder err = %v", err)
	}
}

func TestBulkUpdate_AppliesLayout(t *testing.T) {
	tr, repo := newTree(false)
	ctx := context.Background()
	a := mustCreate(t, tr, "A", nil)
	b := mustCreate(t, tr, "B", nil)
	c := mustCreate(t, tr, "C", nil)

	label := "B renamed"
	err := tr.BulkUpdate(ctx, []BulkItem{
		{ID: b.ID, ParentID: &a.ID, SortOrder: 5, Label: &label},
		{ID: c.ID, ParentID: &b.ID, SortOrder: 7},
		{ID: a.ID, SortOrder: 2},
	})
	if err != nil {
		t.Fatalf("BulkUpdate: %v", err)
	}

	gotB, gotC := repo.rows[b.ID], repo.rows[c.ID]
	if *gotB.ParentID != a.ID || gotB.Depth != 1 || gotB.SortOrder != 5 || gotB.Label != "B renamed" {
		t.Errorf("B = %+v", gotB)
	}
	if *gotC.ParentID != b.ID || gotC.Depth != 2 || gotC.SortOrder != 7 {
		t.Errorf("C = %+v", gotC)
	}
	if repo.rows[a.ID].SortOrder != 2 || repo.rows[a.ID].ParentID != nil {
		t.Errorf("A = %+v", repo.rows[a.ID])
	}
}

func TestBulkUpdate_IsAtomic(t *testing.T) {
	tr, repo := newTree(false)
	ctx := context.Background()
	a := mustCreate(t, tr, "A", nil)
	b := mustCreate(t, tr, "B", nil)

	// The second item closes a loop with the first: rejected, and the
	// first item must not be persisted either.
	err := tr.BulkUpdate(ctx, []BulkItem{
		{ID: a.ID, ParentID: &b.ID, SortOrder: 0},
		{ID: b.ID, ParentID: &a.ID, SortOrder: 1},
	})
	assertCode(t, err, apperr.CodeCircular)
	if repo.rows[a.ID].ParentID != nil {
		t.Error("first item persisted despite failing batch")
	}

	err = tr.BulkUpdate(ctx, []BulkItem{{ID: a.ID}, {ID: 404}})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing id err = %v", err)
	}

	err = tr.BulkUpdate(ctx, []BulkItem{{ID: a.ID, ParentID: &a.ID}})
	assertCode(t, err, apperr.CodeSelfParent)
}

func TestDescendantsOf(t *testing.T) {
	tr, _ := newTree(false)
	ctx := context.Background()
	root := mustCreate(t, tr, "root", nil)
	x := mustCreate(t, tr, "x", &root.ID)
	y := mustCreate(t, tr, "y", &root.ID)
	xx := mustCreate(t, tr, "xx", &x.ID)
	other := mustCreate(t, tr, "other", nil)

	got, err := tr.DescendantsOf(ctx, root.ID)
	if err != nil {
		t.Fatalf("DescendantsOf: %v", err)
	}
	want := []int64{root.ID, x.ID, y.ID, xx.ID}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DescendantsOf(root) = %v, want %v", got, want)
	}

	got, _ = tr.DescendantsOf(ctx, other.ID)
	if !reflect.DeepEqual(got, []int64{other.ID}) {
		t.Errorf("leaf descendants = %v", got)
	}

	if _, err := tr.DescendantsOf(ctx, 999); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing err = %v", err)
	}
}

func TestDescendantsOf_SurvivesCorruptCycle(t *testing.T) {
	tr, repo := newTree(false)
	a := mustCreate(t, tr, "A", nil)
	b := mustCreate(t, tr, "B", &a.ID)

	// Write a loop directly, bypassing validation.
	rowA := repo.rows[a.ID]
	rowA.ParentID = &b.ID
	repo.rows[a.ID] = rowA

	got, err := tr.DescendantsOf(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("DescendantsOf: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("DescendantsOf on a loop = %v", got)
	}
}

func TestListAndTree(t *testing.T) {
	tr, _ := newTree(false)
	ctx := context.Background()
	root := mustCreate(t, tr, "root", nil)
	child := mustCreate(t, tr, "child", &root.ID)
	mustCreate(t, tr, "grandchild", &child.ID)

	flat, err := tr.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	for _, c := range flat {
		if c.ID == child.ID && (c.ParentLabel == nil || *c.ParentLabel != "root") {
			t.Errorf("child ParentLabel = %v", c.ParentLabel)
		}
	}

	nested, err := tr.Tree(ctx)
	if err != nil {
		t.Fatalf("Tree: %v", err)
	}
	if len(nested) != 1 || len(nested[0].Children) != 1 || len(nested[0].Children[0].Children) != 1 {
		t.Fatalf("unexpected tree shape: %+v", nested)
	}
	if nested[0].Children[0].Children[0].Label != "grandchild" {
		t.Errorf("grandchild label = %q", nested[0].Children[0].Children[0].Label)
	}
}
