// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package markdown

import (
	"strings"
	"testing"
)

func TestToHTML(t *testing.T) {
	out, err := ToHTML("# 장애 대응\n\n| a | b |\n|---|---|\n| 1 | 2 |\n\n<img src=\"x.png\">\n")
	if err != nil {
		t.Fatalf("ToHTML: %v", err)
	}
	for _, want := range []string{`<h1 id=`, `<table>`, `<img src="x.png">`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestFirstHeading(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"atx", "intro\n\n## VPN **설정** 가이드\n\n# later", "VPN 설정 가이드"},
		{"setext", "Manual\n======\n", "Manual"},
		{"with code", "# run `make`\n", "run make"},
		{"none", "just text\n", ""},
		{"empty heading skipped", "#\n\n# Real\n", "Real"},
		{"fenced hash is not a heading", "```\n# not this\n```\n", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Parse(tt.src).FirstHeading(); got != tt.want {
				t.Errorf("FirstHeading() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestImageDestinations(t *testing.T) {
	src := "![a](img/one.png)\n\ntext ![b](https://cdn/two.jpg \"t\")\n\n```\n![c](no.png)\n```\n"
	got := Parse(src).ImageDestinations()
	want := []string{"img/one.png", "https://cdn/two.jpg"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
