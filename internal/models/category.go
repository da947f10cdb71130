// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import "time"

// MaxCategoryLabel is the maximum label length in runes.
const MaxCategoryLabel = 100

// Category is a node of the document category tree. Depth is 0 for roots
// and parent.Depth+1 otherwise.
type Category struct {
	ID        int64     `json:"id"`
	Code      *string   `json:"code,omitempty"`
	Label     string    `json:"label"`
	ParentID  *int64    `json:"parentId"`
	Depth     int       `json:"depth"`
	SortOrder int       `json:"sortOrder"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Virtual fields populated by the tree service.
	ParentLabel *string    `json:"parentLabel,omitempty"`
	Children    []Category `json:"children,omitempty"`
}

// IsRoot reports whether the category has no parent.
func (c *Category) IsRoot() bool {
	return c.ParentID == nil
}

// CodeValue returns the code or "" when the category has none.
func (c *Category) CodeValue() string {
	if c.Code == nil {
		return ""
	}
	return *c.Code
}
