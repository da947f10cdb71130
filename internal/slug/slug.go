// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package slug derives short machine identifiers from free-text labels.
package slug

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// nonAlphanumeric matches anything that isn't a letter, digit, space or hyphen.
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9\s-]`)
	// separators collapses runs of spaces and hyphens into one.
	separators = regexp.MustCompile(`[\s-]+`)
)

// maxCodeSlug bounds the label part of a generated code.
const maxCodeSlug = 40

// Generate creates a lower-case, hyphen-separated slug. Characters outside
// ASCII letters and digits are dropped, so a Korean label yields "".
// Example: "VPN / 원격 접속 2026" → "vpn-2026"
func Generate(s string) string {
	result := strings.ToLower(strings.TrimSpace(s))
	result = nonAlphanumeric.ReplaceAllString(result, "")
	result = separators.ReplaceAllString(result, "-")
	return strings.Trim(result, "-")
}

// Code builds a category code: prefix, the upper-cased slug of label, and
// a base-36 timestamp suffix. Labels without usable characters produce
// prefix + decimal millis.
// Example: Code("CAT", "Mail Server", t) → "CAT_MAIL_SERVER_LZ3K9Q1A"
func Code(prefix, label string, now time.Time) string {
	millis := now.UnixMilli()
	s := Generate(label)
	if s == "" {
		return prefix + "_" + strconv.FormatInt(millis, 10)
	}
	if len(s) > maxCodeSlug {
		s = strings.TrimRight(s[:maxCodeSlug], "-")
	}
	s = strings.ToUpper(strings.ReplaceAll(s, "-", "_"))
	return prefix + "_" + s + "_" + strings.ToUpper(strconv.FormatInt(millis, 36))
}
