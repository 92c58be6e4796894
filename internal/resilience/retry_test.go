package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDo_SuccessOnFirstAttempt(t *testing.T) {
	var calls int
	err := Do(context.Background(), DefaultRetryConfig(), func(_ context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDo_SuccessAfterRetry(t *testing.T) {
	var calls int
	cfg := RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 1 * time.Millisecond,
		MaxBackoff:     10 * time.Millisecond,
		Multiplier:     2.0,
	}

	err := Do(context.Background(), cfg, func(_ context.Context) error {
		calls++
		if calls < 3 {
			return NewTransientError(errors.New("temporary"), 503)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDo_ExhaustsRetries(t *testing.T) {
	var calls int
	cfg := RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 1 * time.Millisecond,
		MaxBackoff:     10 * time.Millisecond,
		Multiplier:     2.0,
	}

	err := Do(context.Background(), cfg, func(_ context.Context) error {
		calls++
		return NewTransientError(errors.New("always fails"), 500)
	})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	var te *TransientError
	if !errors.As(err, &te) {
		t.Errorf("exhaustion must surface the last transient cause, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDo_AuthError_NoRetry(t *testing.T) {
	var calls int
	cfg := RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 1 * time.Millisecond,
	}

	err := Do(context.Background(), cfg, func(_ context.Context) error {
		calls++
		return &AuthError{Msg: "401 unauthorized"}
	})
	var ae *AuthError
	if !errors.As(err, &ae) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call (auth errors bypass retry), got %d", calls)
	}
}

func TestDo_ValidationError_NoRetry(t *testing.T) {
	var calls int
	err := Do(context.Background(), RetryConfig{MaxAttempts: 5, InitialBackoff: time.Millisecond}, func(_ context.Context) error {
		calls++
		return NewValidationError("bad case number")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDo_CircuitOpen_NoRetry(t *testing.T) {
	var calls int
	err := Do(context.Background(), RetryConfig{MaxAttempts: 5, InitialBackoff: time.Millisecond}, func(_ context.Context) error {
		calls++
		return &CircuitOpenError{Service: "mni", RetryAfter: time.Second}
	})
	if !IsCircuitOpen(err) {
		t.Fatalf("expected CircuitOpenError, got %v", err)
	}
	if calls != 1 {
		t.Errorf("breaker rejections must not be retried, got %d calls", calls)
	}
}

func TestDo_ContextCancelled_StopsRetry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int
	cfg := RetryConfig{
		MaxAttempts:    5,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     100 * time.Millisecond,
		Multiplier:     2.0,
	}

	err := Do(ctx, cfg, func(_ context.Context) error {
		calls++
		cancel()
		return NewTransientError(errors.New("fail"), 500)
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call after cancellation, got %d", calls)
	}
}

func TestDoVal_PreservesValue(t *testing.T) {
	var calls int
	cfg := RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond}

	got, err := DoVal(context.Background(), cfg, func(_ context.Context) (string, error) {
		calls++
		if calls < 2 {
			return "", NewTransientError(errors.New("flaky"), 502)
		}
		return "payload", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "payload" {
		t.Errorf("expected payload, got %q", got)
	}
}

func TestComputeBackoff_NonDecreasingAndCapped(t *testing.T) {
	cfg := applyDefaults(RetryConfig{
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0, // deterministic
	})

	var prev time.Duration
	for attempt := 0; attempt < 10; attempt++ {
		d := computeBackoff(attempt, cfg)
		if d < prev {
			t.Errorf("attempt %d: delay %s decreased from %s", attempt, d, prev)
		}
		if d > cfg.MaxBackoff {
			t.Errorf("attempt %d: delay %s exceeds cap %s", attempt, d, cfg.MaxBackoff)
		}
		prev = d
	}
	if computeBackoff(9, cfg) != cfg.MaxBackoff {
		t.Errorf("expected late attempts pinned at the cap")
	}
}

func TestComputeBackoff_JitterBounds(t *testing.T) {
	cfg := applyDefaults(RetryConfig{
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     time.Hour,
		Multiplier:     1.0,
		JitterFraction: 0.25,
	})

	lo := time.Duration(float64(time.Second) * 0.75)
	hi := time.Duration(float64(time.Second) * 1.25)
	for i := 0; i < 200; i++ {
		d := computeBackoff(0, cfg)
		if d < lo || d > hi {
			t.Fatalf("jittered delay %s outside [%s, %s]", d, lo, hi)
		}
	}
}

func TestComputeBackoff_JitterNeverExceedsCap(t *testing.T) {
	// Exponential value at the cap: positive jitter must not push past it.
	cfg := applyDefaults(RetryConfig{
		InitialBackoff: 30 * time.Second,
		MaxBackoff:     30 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.25,
	})

	for attempt := 0; attempt < 5; attempt++ {
		for i := 0; i < 200; i++ {
			if d := computeBackoff(attempt, cfg); d > cfg.MaxBackoff {
				t.Fatalf("attempt %d: jittered delay %s exceeds cap %s", attempt, d, cfg.MaxBackoff)
			}
		}
	}
}

func TestDo_OnRetryCallback(t *testing.T) {
	var attempts []int
	cfg := RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		OnRetry: func(attempt int, err error) {
			attempts = append(attempts, attempt)
		},
	}

	_ = Do(context.Background(), cfg, func(_ context.Context) error {
		return NewTransientError(errors.New("fail"), 500)
	})

	if len(attempts) != 2 || attempts[0] != 1 || attempts[1] != 2 {
		t.Errorf("unexpected OnRetry attempts: %v", attempts)
	}
}
