package handlers

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"csdoc/internal/models"
)

type categoryCreateRequest struct {
	Label    string `json:"label"`
	ParentID *int64 `json:"parentId"`
}

func (r categoryCreateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Label, validation.Required, validation.RuneLength(1, models.MaxCategoryLabel)),
		validation.Field(&r.ParentID, validation.Min(int64(1))),
	)
}

// categoryUpdateRequest tells "parentId": null (move to root) apart from
// an absent parentId (keep the parent).
type categoryUpdateRequest struct {
	Label    *string           `json:"label"`
	ParentID models.OptionalID `json:"parentId"`
}

func (r categoryUpdateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Label, validation.RuneLength(0, models.MaxCategoryLabel)),
	)
}

type categoryReorderRequest struct {
	OrderedIDs []int64 `json:"orderedIds"`
}

func (r categoryReorderRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.OrderedIDs, validation.Required, validation.Each(validation.Min(int64(1)))),
	)
}

// categoryBulkItem is one row of a tree editor save. Depth is accepted for
// compatibility and recomputed from the parent.
type categoryBulkItem struct {
	ID        int64   `json:"id"`
	Label     *string `json:"label"`
	ParentID  *int64  `json:"parentId"`
	Depth     *int    `json:"depth,omitempty"`
	SortOrder int     `json:"sortOrder"`
}

func (r categoryBulkItem) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ID, validation.Required, validation.Min(int64(1))),
		validation.Field(&r.Label, validation.RuneLength(0, models.MaxCategoryLabel)),
		validation.Field(&r.SortOrder, validation.Min(0)),
	)
}

type categoryBulkRequest struct {
	Items []categoryBulkItem `json:"items"`
}

func (r categoryBulkRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Items, validation.Required),
	)
}

type postCreateRequest struct {
	Title       string   `json:"title"`
	CategoryID  *int64   `json:"categoryId"`
	IsNotice    bool     `json:"isNotice"`
	Content     string   `json:"content"`
	Author      *string  `json:"author"`
	Attachments []string `json:"attachments"`
}

func (r postCreateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.RuneLength(1, models.MaxPostTitle)),
		validation.Field(&r.CategoryID, validation.Required),
		validation.Field(&r.Content, validation.Required),
	)
}

type postUpdateRequest struct {
	Title      string  `json:"title"`
	Content    string  `json:"content"`
	CategoryID *int64  `json:"categoryId"`
	IsNotice   *bool   `json:"isNotice"`
	Author     *string `json:"author"`
}

func (r postUpdateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.RuneLength(1, models.MaxPostTitle)),
		validation.Field(&r.CategoryID, validation.Min(int64(1))),
	)
}

type postPatchRequest struct {
	Title      *string `json:"title"`
	CategoryID *int64  `json:"categoryId"`
	IsNotice   *bool   `json:"isNotice"`
	Content    *string `json:"content"`
	Author     *string `json:"author"`
}

func (r postPatchRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.RuneLength(0, models.MaxPostTitle)),
		validation.Field(&r.CategoryID, validation.Min(int64(1))),
	)
}
