// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers exposes the category and post services as a JSON API.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"csdoc/internal/apperr"
	"csdoc/internal/middleware"
)

// maxJSONBody caps JSON request bodies. A post body may carry a 2MB
// markdown document plus envelope.
const maxJSONBody = 4 << 20

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// writeError maps err onto its status and stable code. Internal details of
// server-side failures are logged and never returned.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	e := apperr.As(err)
	status := e.StatusCode()
	message := e.Message
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"code", e.Code,
			"error", err,
			"request_id", middleware.RequestIDFromCtx(r.Context()),
		)
		if e.Kind == apperr.KindUnexpected {
			message = apperr.UnexpectedMessage
		}
	}
	writeJSON(w, status, errorBody{Code: e.Code, Message: message})
}

// decodeJSON reads a JSON body into dst. Unknown fields are ignored.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperr.TooLarge("request body is too large")
		}
		return apperr.Invalid("malformed JSON body: " + err.Error())
	}
	return nil
}

// validate runs ozzo rules and turns their failure into InvalidArgument.
func validate(v validation.Validatable) error {
	if err := v.Validate(); err != nil {
		var internal validation.InternalError
		if errors.As(err, &internal) {
			return apperr.Unexpected(err)
		}
		return apperr.Invalid(err.Error())
	}
	return nil
}

// pathID parses a positive int64 URL parameter.
func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Invalid(fmt.Sprintf("invalid %s %q", name, raw))
	}
	return id, nil
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Invalid(fmt.Sprintf("invalid %s %q", name, raw))
	}
	return n, nil
}

// queryID parses an optional positive id query parameter.
func queryID(r *http.Request, name string) (*int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, apperr.Invalid(fmt.Sprintf("invalid %s %q", name, raw))
	}
	return &id, nil
}

// listOf keeps empty results encoding as [] instead of null.
func listOf[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
