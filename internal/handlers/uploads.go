// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"csdoc/internal/apperr"
	"csdoc/internal/ingest"
)

const (
	// maxUploadBody caps a whole multipart request.
	maxUploadBody = 512 << 20
	// maxMultipartMemory is held in memory; larger parts spill to disk.
	maxMultipartMemory = 32 << 20
)

// Uploads serves the standalone editor image upload.
type Uploads struct {
	ingester *ingest.Ingester
	logger   *slog.Logger
}

// NewUploads returns the upload handlers.
func NewUploads(ingester *ingest.Ingester, logger *slog.Logger) *Uploads {
	return &Uploads{ingester: ingester, logger: logger}
}

type uploadResponse struct {
	URL string `json:"url"`
}

// Image stores one image part named "file" and returns its public URL.
func (h *Uploads) Image(w http.ResponseWriter, r *http.Request) {
	if err := parseMultipart(w, r, ingest.MaxImageSize+1<<20); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files, closeFiles, err := formFiles(r, "file")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	defer closeFiles()
	if len(files) != 1 {
		writeError(w, r, h.logger, apperr.Invalid("exactly one file is required"))
		return
	}

	url, err := h.ingester.StoreImage(r.Context(), files[0])
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, uploadResponse{URL: url})
}

// parseMultipart reads a multipart body of at most limit bytes.
func parseMultipart(w http.ResponseWriter, r *http.Request, limit int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperr.TooLarge("upload is too large")
		}
		return apperr.Invalid("malformed multipart body: " + err.Error())
	}
	return nil
}

// formFiles opens every part of a file field. The returned func closes
// them all.
func formFiles(r *http.Request, field string) ([]ingest.File, func(), error) {
	var (
		files  []ingest.File
		opened []multipart.File
	)
	closeAll := func() {
		for _, f := range opened {
			f.Close()
		}
	}
	for _, fh := range r.MultipartForm.File[field] {
		f, err := fh.Open()
		if err != nil {
			closeAll()
			return nil, func() {}, apperr.Invalid("cannot read part " + fh.Filename)
		}
		opened = append(opened, f)
		files = append(files, ingest.File{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Body:        f,
		})
	}
	return files, closeAll, nil
}

func formValue(r *http.Request, key string) string {
	return strings.TrimSpace(r.FormValue(key))
}

func formBool(r *http.Request, key string) (bool, error) {
	raw := formValue(r, key)
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, apperr.Invalid("invalid " + key + " " + strconv.Quote(raw))
	}
	return b, nil
}

func formID(r *http.Request, key string) (*int64, error) {
	raw := formValue(r, key)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, apperr.Invalid("invalid " + key + " " + strconv.Quote(raw))
	}
	return &id, nil
}

func formAuthor(r *http.Request) *string {
	if a := formValue(r, "author"); a != "" {
		return &a
	}
	return nil
}
