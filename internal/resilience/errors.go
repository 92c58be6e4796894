package resilience

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
	"time"
)

// The error taxonomy for upstream calls. Only TransientError is retryable;
// everything else propagates on first occurrence.

// ValidationError marks malformed caller input (case number, document ids).
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// NewValidationError builds a ValidationError with a formatted message.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// AuthError marks rejected credentials (HTTP 401).
type AuthError struct {
	Msg string
}

func (e *AuthError) Error() string { return e.Msg }

// ParseError marks an upstream response whose XML shape was unexpected or
// missing a required field.
type ParseError struct {
	Msg string
	Err error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *ParseError) Unwrap() error { return e.Err }

// NotFoundError marks a requested document id absent from the response.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string { return "document not found: " + e.ID }

// TransientError wraps an error that is safe to retry (timeouts, connection
// failures, HTTP 429/5xx).
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string { return e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

// NewTransientError wraps an error as transient with an optional HTTP status code.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// CircuitOpenError is returned when a call is rejected by an open breaker
// before any network I/O. RetryAfter estimates when the breaker will admit
// its next probe.
type CircuitOpenError struct {
	Service    string
	RetryAfter time.Duration
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit breaker open for %s (retry after %s)", e.Service, e.RetryAfter)
}

// IsCircuitOpen reports whether err is (or wraps) a breaker rejection.
func IsCircuitOpen(err error) bool {
	var coe *CircuitOpenError
	return errors.As(err, &coe)
}

// IsTransient returns true if the error (or any error in its chain) is a
// TransientError, or if it matches common transient network failure patterns.
// Breaker rejections and cancelled contexts are never transient: retrying
// them burns attempts without any chance of success.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if IsCircuitOpen(err) {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	// String heuristics for errors wrapped by HTTP clients that lose type
	// information on the way up.
	msg := strings.ToLower(err.Error())
	transientPatterns := []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
		"transport connection broken",
	}
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// IsTransientHTTPStatus returns true if the HTTP status code indicates a
// server-side issue that is safe to retry.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, // Request Timeout
		429, // Too Many Requests
		500, // Internal Server Error
		502, // Bad Gateway
		503, // Service Unavailable
		504: // Gateway Timeout
		return true
	default:
		return false
	}
}
