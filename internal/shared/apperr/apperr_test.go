package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid", InvalidErr("bad", nil), http.StatusBadRequest},
		{"not found", NotFoundErr("missing"), http.StatusNotFound},
		{"unauthorized", UnauthorizedErr("login"), http.StatusUnauthorized},
		{"forbidden", ForbiddenErr("no"), http.StatusForbidden},
		{"conflict", ConflictErr("dup"), http.StatusConflict},
		{"unprocessable", UnprocessableErr("stock", nil), http.StatusUnprocessableEntity},
		{"wrapped app error", fmt.Errorf("ctx: %w", NotFoundErr("x")), http.StatusNotFound},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.want {
				t.Errorf("Expected status %d, got %d", tt.want, got)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil) != nil {
		t.Error("Expected Wrap(nil) to be nil")
	}

	cause := errors.New("db down")
	ae := Wrap(cause)
	if ae.Kind != Internal {
		t.Errorf("Expected internal kind, got %s", ae.Kind)
	}
	if !errors.Is(ae, cause) {
		t.Error("Expected wrapped error to unwrap to cause")
	}
	if PublicMessage(ae) == cause.Error() {
		t.Error("Expected internal cause to be hidden from public message")
	}

	orig := ConflictErr("taken")
	if Wrap(orig) != orig {
		t.Error("Expected Wrap to keep an existing AppError")
	}
}
