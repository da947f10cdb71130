// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"fmt"
	"strings"
	"time"
)

// MaxPostTitle is the maximum title length in runes.
const MaxPostTitle = 200

// LegacyTag is the fixed category enumeration used before the category
// tree existed. Old rows carry a tag and no category id.
type LegacyTag string

const (
	LegacySystem   LegacyTag = "SYSTEM"
	LegacyIncident LegacyTag = "INCIDENT"
	LegacyTraining LegacyTag = "TRAINING"
)

// ParseLegacyTag accepts a tag name in any case.
func ParseLegacyTag(s string) (LegacyTag, error) {
	switch tag := LegacyTag(strings.ToUpper(strings.TrimSpace(s))); tag {
	case LegacySystem, LegacyIncident, LegacyTraining:
		return tag, nil
	default:
		return "", fmt.Errorf("unknown legacy category %q", s)
	}
}

// Post is a document's metadata. The markdown body lives in the content
// store at ContentPath; the version ledger holds its history.
type Post struct {
	ID               int64      `json:"id"`
	Title            string     `json:"title"`
	ContentPath      *string    `json:"contentPath,omitempty"`
	CategoryID       *int64     `json:"categoryId"`
	LegacyTag        *LegacyTag `json:"legacyCategory,omitempty"`
	IsNotice         bool       `json:"isNotice"`
	ViewCount        uint64     `json:"viewCount"`
	Attachments      []string   `json:"attachments"`
	Deleted          bool       `json:"deleted"`
	CurrentVersionID *int64     `json:"currentVersionId,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// PostSummary is the listing projection of a post.
type PostSummary struct {
	ID             int64      `json:"id"`
	Title          string     `json:"title"`
	CategoryID     *int64     `json:"categoryId"`
	LegacyCategory *LegacyTag `json:"legacyCategory,omitempty"`
	IsNotice       bool       `json:"isNotice"`
	ViewCount      uint64     `json:"viewCount"`
	AttachmentCnt  int        `json:"attachmentCount"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// Summary projects a post for listings.
func (p *Post) Summary() PostSummary {
	return PostSummary{
		ID:             p.ID,
		Title:          p.Title,
		CategoryID:     p.CategoryID,
		LegacyCategory: p.LegacyTag,
		IsNotice:       p.IsNotice,
		ViewCount:      p.ViewCount,
		AttachmentCnt:  len(p.Attachments),
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

// PostDetail is a post together with its current markdown body.
type PostDetail struct {
	Post
	Content       string `json:"content"`
	HTML          string `json:"html,omitempty"`
	VersionNumber int    `json:"versionNumber,omitempty"`
}
