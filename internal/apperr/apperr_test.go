// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindMatching(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		sentinel error
		status   int
	}{
		{"not found", NotFound("post 1 not found"), ErrNotFound, http.StatusNotFound},
		{"invalid", Invalid("title is required"), ErrInvalidArgument, http.StatusBadRequest},
		{"self parent", InvalidCode(CodeSelfParent, "x"), ErrInvalidArgument, http.StatusBadRequest},
		{"conflict", Conflict("exists"), ErrConflict, http.StatusConflict},
		{"storage", Storage("write failed", errors.New("disk full")), ErrStorageFailure, http.StatusInternalServerError},
		{"unavailable", Unavailable("storage is not configured"), ErrUnavailable, http.StatusServiceUnavailable},
		{"too large", TooLarge("file exceeds 2MB"), ErrTooLarge, http.StatusRequestEntityTooLarge},
		{"unexpected", Unexpected(errors.New("boom")), ErrUnexpected, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("service: %w", tt.err)
			if !errors.Is(wrapped, tt.sentinel) {
				t.Errorf("errors.Is(%v, %v) = false", wrapped, tt.sentinel)
			}
			if got := tt.err.StatusCode(); got != tt.status {
				t.Errorf("StatusCode() = %d, want %d", got, tt.status)
			}
			if KindOf(wrapped) != tt.err.Kind {
				t.Errorf("KindOf = %v, want %v", KindOf(wrapped), tt.err.Kind)
			}
		})
	}
}

func TestKindsDoNotCrossMatch(t *testing.T) {
	err := NotFound("missing")
	if errors.Is(err, ErrConflict) {
		t.Error("not-found error should not match ErrConflict")
	}
}

func TestAs_ForeignError(t *testing.T) {
	cause := errors.New("driver: bad connection")
	e := As(cause)
	if e.Kind != KindUnexpected {
		t.Errorf("Kind = %v, want unexpected", e.Kind)
	}
	if e.Message != UnexpectedMessage {
		t.Errorf("Message = %q", e.Message)
	}
	if !errors.Is(e, cause) {
		t.Error("cause should remain in the chain")
	}
}

func TestStorageKeepsCause(t *testing.T) {
	cause := errors.New("permission denied")
	err := Storage("write content", cause)
	if !errors.Is(err, cause) {
		t.Error("Storage error should unwrap to its cause")
	}
	if err.Error() != "write content: permission denied" {
		t.Errorf("Error() = %q", err.Error())
	}
}
