// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package listing

import (
	"strings"

	"csdoc/internal/models"
)

// legacyPatterns maps category codes onto the tag that rows written before
// the category tree carry. A code matches when its upper-cased form
// contains the pattern; the first match wins. Only matching codes pull in
// uncategorized rows.
var legacyPatterns = []struct {
	pattern string
	tag     models.LegacyTag
}{
	{"SYSTEM", models.LegacySystem},
	{"INCIDENT", models.LegacyIncident},
	{"TRAINING", models.LegacyTraining},
}

// legacyTagFor returns the legacy tag matched by a category code.
func legacyTagFor(code string) (models.LegacyTag, bool) {
	upper := strings.ToUpper(strings.TrimSpace(code))
	if upper == "" {
		return "", false
	}
	for _, p := range legacyPatterns {
		if strings.Contains(upper, p.pattern) {
			return p.tag, true
		}
	}
	return "", false
}
