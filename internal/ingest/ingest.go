// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package ingest turns an uploaded markdown file and its companion images
// and attachments into the title, body and attachment URLs of a post.
// Local image references that match an uploaded image are moved to object
// storage and rewritten to the stored URL.
package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"regexp"
	"strings"
	"unicode/utf8"

	"csdoc/internal/apperr"
	"csdoc/internal/markdown"
	"csdoc/internal/models"
)

const (
	MaxMarkdownSize   = 2 << 20
	MaxAttachmentSize = 50 << 20
	MaxImageSize      = 10 << 20

	// DefaultTitle is used when neither a title nor a heading is present.
	DefaultTitle = "Untitled"
)

// ObjectStore is where images and attachments end up. storage.Client
// implements it.
type ObjectStore interface {
	PutImage(ctx context.Context, filename, contentType string, body io.Reader, size int64) (string, error)
	PutAttachment(ctx context.Context, filename, contentType string, body io.Reader, size int64) (string, error)
	Owns(rawURL string) bool
}

// File is one uploaded part.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Upload is a markdown file with its companion parts.
type Upload struct {
	Markdown    File
	Title       string
	Images      []File
	Attachments []File
}

// Result is what a post is created or updated from.
type Result struct {
	Title       string
	Content     string
	Attachments []string
}

// Ingester prepares uploads.
type Ingester struct {
	objects ObjectStore
	logger  *slog.Logger
}

// New returns an Ingester. objects may be nil when object storage is not
// configured; uploads that carry images or attachments are then refused.
func New(objects ObjectStore, logger *slog.Logger) *Ingester {
	return &Ingester{objects: objects, logger: logger}
}

// Prepare reads the markdown, resolves the title, uploads the referenced
// images and every attachment, and returns the rewritten body.
func (in *Ingester) Prepare(ctx context.Context, up Upload) (*Result, error) {
	if up.Markdown.Body == nil {
		return nil, apperr.Invalid("markdown file is required")
	}
	if up.Markdown.Size > MaxMarkdownSize {
		return nil, apperr.TooLarge("markdown file exceeds 2MB")
	}
	if (len(up.Images) > 0 || len(up.Attachments) > 0) && in.objects == nil {
		return nil, apperr.Unavailable("object storage is not configured")
	}
	for _, a := range up.Attachments {
		if a.Size > MaxAttachmentSize {
			return nil, apperr.TooLarge(fmt.Sprintf("attachment %q exceeds 50MB", a.Name))
		}
	}

	raw, err := io.ReadAll(io.LimitReader(up.Markdown.Body, MaxMarkdownSize+1))
	if err != nil {
		return nil, apperr.Storage("read markdown upload", err)
	}
	if len(raw) > MaxMarkdownSize {
		return nil, apperr.TooLarge("markdown file exceeds 2MB")
	}
	body := strings.ToValidUTF8(string(raw), "\uFFFD")
	body = strings.TrimPrefix(body, "\uFEFF")
	if strings.TrimSpace(body) == "" {
		return nil, apperr.Invalid("markdown file is empty")
	}

	doc := markdown.Parse(body)
	title := resolveTitle(up.Title, doc)

	if len(up.Images) > 0 {
		body, err = in.rewriteImages(ctx, body, doc, up.Images)
		if err != nil {
			return nil, err
		}
	}

	urls := make([]string, 0, len(up.Attachments))
	for _, a := range up.Attachments {
		u, err := in.objects.PutAttachment(ctx, a.Name, a.ContentType, a.Body, a.Size)
		if err != nil {
			return nil, apperr.Storage("store attachment", err)
		}
		urls = append(urls, u)
	}

	in.logger.Info("markdown upload prepared",
		"title", title, "bytes", len(raw), "images", len(up.Images), "attachments", len(urls))
	return &Result{Title: title, Content: body, Attachments: urls}, nil
}

// StoreImage uploads a single editor image and returns its URL.
func (in *Ingester) StoreImage(ctx context.Context, f File) (string, error) {
	if in.objects == nil {
		return "", apperr.Unavailable("object storage is not configured")
	}
	if f.Size > MaxImageSize {
		return "", apperr.TooLarge("image exceeds 10MB")
	}
	if !strings.HasPrefix(f.ContentType, "image/") {
		return "", apperr.Invalid("only image files are accepted")
	}
	u, err := in.objects.PutImage(ctx, f.Name, f.ContentType, f.Body, f.Size)
	if err != nil {
		return "", apperr.Storage("store image", err)
	}
	return u, nil
}

// StoreAttachments uploads attachments and returns their URLs.
func (in *Ingester) StoreAttachments(ctx context.Context, files []File) ([]string, error) {
	if len(files) == 0 {
		return []string{}, nil
	}
	if in.objects == nil {
		return nil, apperr.Unavailable("object storage is not configured")
	}
	urls := make([]string, 0, len(files))
	for _, f := range files {
		if f.Size > MaxAttachmentSize {
			return nil, apperr.TooLarge(fmt.Sprintf("attachment %q exceeds 50MB", f.Name))
		}
		u, err := in.objects.PutAttachment(ctx, f.Name, f.ContentType, f.Body, f.Size)
		if err != nil {
			return nil, apperr.Storage("store attachment", err)
		}
		urls = append(urls, u)
	}
	return urls, nil
}

func resolveTitle(explicit string, doc *markdown.Document) string {
	if t := strings.TrimSpace(explicit); t != "" {
		return t
	}
	t := doc.FirstHeading()
	if t == "" {
		return DefaultTitle
	}
	if utf8.RuneCountInString(t) > models.MaxPostTitle {
		t = string([]rune(t)[:models.MaxPostTitle])
	}
	return t
}

var htmlImg = regexp.MustCompile(`(?i)(<img\s[^>]*?src\s*=\s*["'])([^"']+)(["'][^>]*>)`)

// rewriteImages swaps local image references for stored URLs. Each
// uploaded image is stored at most once.
func (in *Ingester) rewriteImages(ctx context.Context, body string, doc *markdown.Document, images []File) (string, error) {
	byName := make(map[string]*File, len(images))
	for i := range images {
		byName[images[i].Name] = &images[i]
	}
	stored := make(map[*File]string)

	resolve := func(ref string) (string, error) {
		ref = strings.TrimSpace(ref)
		if ref == "" || isRemote(ref) || in.objects.Owns(ref) {
			return "", nil
		}
		f := match(byName, baseName(ref))
		if f == nil || !strings.HasPrefix(f.ContentType, "image/") {
			return "", nil
		}
		if u, ok := stored[f]; ok {
			return u, nil
		}
		u, err := in.objects.PutImage(ctx, f.Name, f.ContentType, f.Body, f.Size)
		if err != nil {
			return "", apperr.Storage("store image", err)
		}
		stored[f] = u
		return u, nil
	}

	for _, dest := range doc.ImageDestinations() {
		u, err := resolve(dest)
		if err != nil {
			return "", err
		}
		if u == "" {
			continue
		}
		body = strings.ReplaceAll(body, "](<"+dest+">", "]("+u)
		body = strings.ReplaceAll(body, "]("+dest, "]("+u)
	}

	var rewriteErr error
	body = htmlImg.ReplaceAllStringFunc(body, func(tag string) string {
		m := htmlImg.FindStringSubmatch(tag)
		u, err := resolve(m[2])
		if err != nil {
			rewriteErr = err
		}
		if u == "" {
			return tag
		}
		return m[1] + u + m[3]
	})
	if rewriteErr != nil {
		return "", rewriteErr
	}

	in.logger.Debug("image references rewritten", "stored", len(stored), "uploaded", len(images))
	return body, nil
}

// match finds an uploaded image by exact name, then case-insensitively.
func match(byName map[string]*File, name string) *File {
	if name == "" {
		return nil
	}
	if f, ok := byName[name]; ok {
		return f
	}
	for n, f := range byName {
		if strings.EqualFold(n, name) {
			return f
		}
	}
	return nil
}

func baseName(ref string) string {
	ref = strings.ReplaceAll(ref, `\`, "/")
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}
	if strings.HasSuffix(ref, "/") {
		return ""
	}
	return path.Base(ref)
}

func isRemote(ref string) bool {
	lower := strings.ToLower(ref)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(lower, "data:") || strings.HasPrefix(lower, "//")
}
