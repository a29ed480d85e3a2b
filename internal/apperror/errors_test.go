package apperror

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
		{"not found", NotFound("api %s", "billing"), http.StatusNotFound},
		{"validation", Validation("bad"), http.StatusBadRequest},
		{"bad gateway", BadGateway("upstream returned %d", 500), http.StatusBadGateway},
		{"internal", Internal("boom"), http.StatusInternalServerError},
		{"wrapped app error", fmt.Errorf("fetching: %w", BadGateway("x")), http.StatusBadGateway},
		{"wrapped sentinel", fmt.Errorf("lookup: %w", ErrNotFound), http.StatusNotFound},
		{"unauthorized sentinel", ErrUnauthorized, http.StatusUnauthorized},
		{"plain error", errors.New("x"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	err := fmt.Errorf("wrap: %w", NotFound("Unknown API name: %s", "x"))
	if !errors.Is(err, ErrNotFound) {
		t.Error("expected errors.Is(ErrNotFound)")
	}
}

func TestMessage(t *testing.T) {
	if got := Message(NotFound("Unknown API name: %s", "billing")); got != "Unknown API name: billing" {
		t.Errorf("Message() = %q", got)
	}
	if got := Message(errors.New("dial tcp 10.0.0.1:5432: secret detail")); got != "Internal Server Error" {
		t.Errorf("Message() = %q", got)
	}
	if got := Message(fmt.Errorf("x: %w", ErrUpstream)); got != "Bad Gateway" {
		t.Errorf("Message() = %q", got)
	}
}
