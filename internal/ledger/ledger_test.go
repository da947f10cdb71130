// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ledger

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"csdoc/internal/apperr"
	"csdoc/internal/models"
)

// memRepo is an in-memory Repository that enforces unique numbers per post.
type memRepo struct {
	mu       sync.Mutex
	versions []models.Version
	nextID   int64
	clock    time.Time
}

func (r *memRepo) Create(_ context.Context, v *models.Version) (*models.Version, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.versions {
		if existing.PostID == v.PostID && existing.VersionNumber == v.VersionNumber {
			return nil, errors.New("duplicate key value violates unique constraint")
		}
	}
	r.nextID++
	r.clock = r.clock.Add(time.Second)
	out := *v
	out.ID = r.nextID
	out.CreatedAt = r.clock
	r.versions = append(r.versions, out)
	return &out, nil
}

func (r *memRepo) Latest(_ context.Context, postID int64) (*models.Version, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var best *models.Version
	for i := range r.versions {
		v := r.versions[i]
		if v.PostID == postID && (best == nil || v.VersionNumber > best.VersionNumber) {
			best = &v
		}
	}
	return best, nil
}

func (r *memRepo) Get(_ context.Context, postID int64, number int) (*models.Version, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.versions {
		if v.PostID == postID && v.VersionNumber == number {
			return &v, nil
		}
	}
	return nil, nil
}

func (r *memRepo) ListByPost(_ context.Context, postID int64) ([]models.Version, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Version
	for _, v := range r.versions {
		if v.PostID == postID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VersionNumber > out[j].VersionNumber })
	return out, nil
}

func (r *memRepo) ListAll(_ context.Context) ([]models.Version, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]models.Version(nil), r.versions...)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func TestAppend_NumbersAreGapless(t *testing.T) {
	l := New(&memRepo{})
	ctx := context.Background()

	for want := 1; want <= 4; want++ {
		v, err := l.Append(ctx, 10, "body", nil)
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
		if v.VersionNumber != want {
			t.Errorf("VersionNumber = %d, want %d", v.VersionNumber, want)
		}
	}

	// Another post starts at 1 independently.
	v, _ := l.Append(ctx, 11, "other", nil)
	if v.VersionNumber != 1 {
		t.Errorf("second post starts at %d, want 1", v.VersionNumber)
	}
}

func TestAppend_BlankContentIsNotVersioned(t *testing.T) {
	repo := &memRepo{}
	l := New(repo)

	for _, body := range []string{"", "   ", "\n\t"} {
		v, err := l.Append(context.Background(), 1, body, nil)
		if err != nil || v != nil {
			t.Errorf("Append(%q) = %v, %v; want nil, nil", body, v, err)
		}
	}
	if len(repo.versions) != 0 {
		t.Errorf("blank appends created %d versions", len(repo.versions))
	}
}

func TestAppend_KeepsAuthor(t *testing.T) {
	l := New(&memRepo{})
	author := "admin"
	v, _ := l.Append(context.Background(), 1, "x", &author)
	if v.Author == nil || *v.Author != "admin" {
		t.Errorf("Author = %v", v.Author)
	}
}

func TestGet(t *testing.T) {
	l := New(&memRepo{})
	ctx := context.Background()
	l.Append(ctx, 5, "v1", nil)
	l.Append(ctx, 5, "v2", nil)

	v, err := l.Get(ctx, 5, 1)
	if err != nil || v.Content != "v1" {
		t.Errorf("Get(5, 1) = %+v, %v", v, err)
	}

	_, err = l.Get(ctx, 5, 3)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Get missing err = %v, want not found", err)
	}
}

func TestListAndAll(t *testing.T) {
	l := New(&memRepo{})
	ctx := context.Background()
	l.Append(ctx, 1, "a1", nil)
	l.Append(ctx, 2, "b1", nil)
	l.Append(ctx, 1, "a2", nil)

	list, _ := l.List(ctx, 1)
	if len(list) != 2 || list[0].Content != "a2" || list[1].Content != "a1" {
		t.Errorf("List = %+v", list)
	}

	all, _ := l.All(ctx)
	if len(all) != 3 || all[0].Content != "a2" || all[2].Content != "a1" {
		t.Errorf("All = %+v", all)
	}

	latest, _ := l.Latest(ctx, 2)
	if latest == nil || latest.Content != "b1" {
		t.Errorf("Latest = %+v", latest)
	}
}

func TestAppend_DuplicateNumberSurfacesError(t *testing.T) {
	repo := &memRepo{}
	l := New(repo)
	ctx := context.Background()

	// A reader that saw no versions races a writer that already stored v1.
	l.Append(ctx, 1, "v1", nil)
	stale := &staleRepo{memRepo: repo}

	if _, err := New(stale).Append(ctx, 1, "v2", nil); err == nil {
		t.Error("expected the duplicate version number to be rejected")
	}
}

// staleRepo returns a fixed, outdated latest version.
type staleRepo struct {
	*memRepo
	latest *models.Version
}

func (r *staleRepo) Latest(context.Context, int64) (*models.Version, error) {
	return r.latest, nil
}
