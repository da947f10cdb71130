// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import "time"

// Version is an immutable snapshot of a post's markdown body.
// Numbers start at 1 and increase by one per post.
type Version struct {
	ID            int64     `json:"id"`
	PostID        int64     `json:"postId"`
	VersionNumber int       `json:"versionNumber"`
	Content       string    `json:"content"`
	Author        *string   `json:"author,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// ChangeType labels an entry of the change history feed.
type ChangeType string

const (
	ChangeCreated ChangeType = "created"
	ChangeUpdated ChangeType = "updated"
	ChangeDeleted ChangeType = "deleted"
)

// ParseChangeType validates a change type filter value.
func ParseChangeType(s string) (ChangeType, bool) {
	switch ct := ChangeType(s); ct {
	case ChangeCreated, ChangeUpdated, ChangeDeleted:
		return ct, true
	}
	return "", false
}

// ChangeTypeFor derives the change type of a version number.
func ChangeTypeFor(versionNumber int) ChangeType {
	if versionNumber == 1 {
		return ChangeCreated
	}
	return ChangeUpdated
}

// HistoryItem is one entry of the change history feed.
type HistoryItem struct {
	PostID        int64      `json:"postId"`
	Title         string     `json:"title"`
	CategoryID    *int64     `json:"categoryId"`
	ChangeType    ChangeType `json:"changeType"`
	VersionNumber *int       `json:"versionNumber,omitempty"`
	ChangedAt     time.Time  `json:"changedAt"`
}
