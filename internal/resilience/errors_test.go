package resilience

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rotisserie/eris"
)

func TestIsTransient_ExplicitTransientError(t *testing.T) {
	err := NewTransientError(errors.New("503 from upstream"), 503)
	if !IsTransient(err) {
		t.Error("expected transient")
	}
}

func TestIsTransient_WrappedTransientError(t *testing.T) {
	inner := NewTransientError(errors.New("timeout"), 0)
	wrapped := eris.Wrap(inner, "consultarProcesso")
	if !IsTransient(wrapped) {
		t.Error("expected transient through the wrap chain")
	}
}

func TestIsTransient_NonTransientTypes(t *testing.T) {
	cases := []error{
		nil,
		&AuthError{Msg: "401"},
		NewValidationError("not 20 digits"),
		&ParseError{Msg: "missing dadosBasicos"},
		&NotFoundError{ID: "123"},
		&CircuitOpenError{Service: "mni", RetryAfter: time.Second},
		errors.New("plain failure"),
	}
	for _, err := range cases {
		if IsTransient(err) {
			t.Errorf("expected non-transient: %v", err)
		}
	}
}

func TestIsTransient_StringPatterns(t *testing.T) {
	for _, msg := range []string{
		"read tcp: connection reset by peer",
		"dial: i/o timeout",
		"lookup host: no such host",
	} {
		if !IsTransient(fmt.Errorf("%s", msg)) {
			t.Errorf("expected transient for %q", msg)
		}
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		if !IsTransientHTTPStatus(code) {
			t.Errorf("expected %d transient", code)
		}
	}
	for _, code := range []int{200, 301, 400, 401, 403, 404, 422} {
		if IsTransientHTTPStatus(code) {
			t.Errorf("expected %d non-transient", code)
		}
	}
}

func TestCircuitOpenError_Message(t *testing.T) {
	err := &CircuitOpenError{Service: "mni", RetryAfter: 12 * time.Second}
	want := "circuit breaker open for mni (retry after 12s)"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestParseError_Unwrap(t *testing.T) {
	cause := errors.New("unexpected EOF")
	err := &ParseError{Msg: "decode envelope", Err: cause}
	if !errors.Is(err, cause) {
		t.Error("expected unwrap to reach the cause")
	}
}

func TestIsTransient_ContextCancellation(t *testing.T) {
	if IsTransient(context.Canceled) {
		t.Error("cancelled context must not be transient")
	}
}
