package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{New(ErrValidation, "bad"), http.StatusBadRequest},
		{New(ErrNotApplicable, "minimum not met"), http.StatusBadRequest},
		{fmt.Errorf("wrap: %w", New(ErrNotFound, "gone")), http.StatusNotFound},
		{New(ErrLimitExceeded, "used up"), http.StatusConflict},
		{ErrConflict, http.StatusConflict},
		{ErrUnauthorized, http.StatusUnauthorized},
		{ErrForbidden, http.StatusForbidden},
		{fmt.Errorf("%w: model down", ErrDependency), http.StatusBadGateway},
		{fmt.Errorf("%w: bucket", ErrStorage), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := Status(tt.err); got != tt.want {
			t.Errorf("Status(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestMessageHidesInternals(t *testing.T) {
	if got := Message(errors.New("pq: connection refused")); got != "internal server error" {
		t.Errorf("Message = %q", got)
	}
	if got := Message(fmt.Errorf("%w: dial tcp 10.0.0.3", ErrDependency)); got != ErrDependency.Error() {
		t.Errorf("Message = %q", got)
	}
	if got := Message(fmt.Errorf("ctx: %w", New(ErrNotFound, "order not found"))); got != "order not found" {
		t.Errorf("Message = %q", got)
	}
}
