// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package listing

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"csdoc/internal/apperr"
	"csdoc/internal/models"
	"csdoc/internal/store"
)

const (
	DefaultSize = 20
	MaxSize     = 100
)

// SortDir is the direction of a listing sort.
type SortDir string

const (
	Desc SortDir = "desc"
	Asc  SortDir = "asc"
)

// Query selects one page of active posts.
type Query struct {
	Page       int
	Size       int
	Keyword    string
	CategoryID *int64
	LegacyTags []models.LegacyTag
	Sort       store.SortKey
	Dir        SortDir
}

// normalize applies defaults and rejects values that cannot be served.
func (q Query) normalize() (Query, error) {
	if q.Page < 0 {
		return q, apperr.Invalid("page must not be negative")
	}
	switch {
	case q.Size <= 0:
		q.Size = DefaultSize
	case q.Size > MaxSize:
		q.Size = MaxSize
	}
	q.Keyword = strings.TrimSpace(q.Keyword)

	if q.Sort == "" {
		q.Sort = store.SortCreatedAt
	}
	switch q.Sort {
	case store.SortCreatedAt, store.SortUpdatedAt, store.SortTitle, store.SortID:
	default:
		return q, apperr.Invalid(fmt.Sprintf("unknown sort key %q", q.Sort))
	}

	q.Dir = SortDir(strings.ToLower(string(q.Dir)))
	if q.Dir == "" {
		q.Dir = Desc
	}
	if q.Dir != Desc && q.Dir != Asc {
		return q, apperr.Invalid(fmt.Sprintf("unknown sort direction %q", q.Dir))
	}

	if len(q.LegacyTags) > 0 {
		tags := slices.Clone(q.LegacyTags)
		slices.Sort(tags)
		q.LegacyTags = slices.Compact(tags)
	}
	return q, nil
}

// key is the cache key of a normalized query.
func (q Query) key() string {
	var b strings.Builder
	b.WriteString("p=" + strconv.Itoa(q.Page))
	b.WriteString("|s=" + strconv.Itoa(q.Size))
	b.WriteString("|o=" + string(q.Sort) + ":" + string(q.Dir))
	if q.CategoryID != nil {
		b.WriteString("|c=" + strconv.FormatInt(*q.CategoryID, 10))
	}
	for _, t := range q.LegacyTags {
		b.WriteString("|t=" + string(t))
	}
	if q.Keyword != "" {
		b.WriteString("|k=" + strings.ToLower(q.Keyword))
	}
	return b.String()
}

func (q Query) filter() store.PostFilter {
	return store.PostFilter{
		Keyword:    q.Keyword,
		LegacyTags: q.LegacyTags,
		Sort:       q.Sort,
		Asc:        q.Dir == Asc,
	}
}
