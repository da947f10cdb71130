package handlers

import (
	"strings"
	"testing"
)

func ptr[T any](v T) *T { return &v }

func TestCategoryCreateRequestValidate(t *testing.T) {
	tests := []struct {
		name      string
		req       categoryCreateRequest
		wantError bool
	}{
		{"valid root", categoryCreateRequest{Label: "Ops"}, false},
		{"valid child", categoryCreateRequest{Label: "Ops", ParentID: ptr(int64(3))}, false},
		{"empty label", categoryCreateRequest{}, true},
		{"label too long", categoryCreateRequest{Label: strings.Repeat("a", 101)}, true},
		{"label of 100 multibyte runes", categoryCreateRequest{Label: strings.Repeat("가", 100)}, false},
		{"negative parent", categoryCreateRequest{Label: "Ops", ParentID: ptr(int64(-2))}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantError && err == nil {
				t.Error("expected an error, got none")
			}
			if !tt.wantError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestCategoryBulkRequestValidate(t *testing.T) {
	tests := []struct {
		name      string
		req       categoryBulkRequest
		wantError bool
	}{
		{"valid", categoryBulkRequest{Items: []categoryBulkItem{{ID: 1, SortOrder: 0}, {ID: 2, ParentID: ptr(int64(1)), SortOrder: 1}}}, false},
		{"no items", categoryBulkRequest{}, true},
		{"missing id", categoryBulkRequest{Items: []categoryBulkItem{{SortOrder: 0}}}, true},
		{"negative sort order", categoryBulkRequest{Items: []categoryBulkItem{{ID: 1, SortOrder: -1}}}, true},
		{"long label", categoryBulkRequest{Items: []categoryBulkItem{{ID: 1, Label: ptr(strings.Repeat("x", 101))}}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate(tt.req)
			if tt.wantError && err == nil {
				t.Error("expected an error, got none")
			}
			if !tt.wantError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestPostRequestValidate(t *testing.T) {
	long := strings.Repeat("t", 201)

	tests := []struct {
		name      string
		req       interface{ Validate() error }
		wantError bool
	}{
		{"create valid", postCreateRequest{Title: "T", CategoryID: ptr(int64(1)), Content: "# T"}, false},
		{"create without category", postCreateRequest{Title: "T", Content: "# T"}, true},
		{"create without content", postCreateRequest{Title: "T", CategoryID: ptr(int64(1))}, true},
		{"create long title", postCreateRequest{Title: long, CategoryID: ptr(int64(1)), Content: "x"}, true},
		{"update valid", postUpdateRequest{Title: "T", Content: ""}, false},
		{"update blank title", postUpdateRequest{Content: "x"}, true},
		{"patch empty", postPatchRequest{}, false},
		{"patch long title", postPatchRequest{Title: ptr(long)}, true},
		{"patch blank title", postPatchRequest{Title: ptr("")}, false},
		{"patch negative category", postPatchRequest{CategoryID: ptr(int64(-1))}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantError && err == nil {
				t.Error("expected an error, got none")
			}
			if !tt.wantError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
