package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func failingCall(_ context.Context) error {
	return NewTransientError(errors.New("upstream down"), 503)
}

func TestCircuitBreaker_ClosedState_PassesThrough(t *testing.T) {
	cb := NewCircuitBreaker("mni", DefaultCircuitBreakerConfig())

	var calls int
	err := cb.Execute(context.Background(), func(_ context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
	if cb.State() != CircuitClosed {
		t.Errorf("expected closed state, got %s", cb.State())
	}
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cfg := CircuitBreakerConfig{
		FailureThreshold: 5,
		Cooldown:         30 * time.Second,
	}
	cb := NewCircuitBreaker("mni", cfg)

	for i := 0; i < 5; i++ {
		_ = cb.Execute(context.Background(), failingCall)
	}

	if cb.State() != CircuitOpen {
		t.Errorf("expected open state after %d failures, got %s", cfg.FailureThreshold, cb.State())
	}

	// The 6th call must be rejected before any work happens.
	err := cb.Execute(context.Background(), func(_ context.Context) error {
		t.Error("should not be called when circuit is open")
		return nil
	})
	var coe *CircuitOpenError
	if !errors.As(err, &coe) {
		t.Fatalf("expected CircuitOpenError, got %v", err)
	}
	if coe.Service != "mni" {
		t.Errorf("expected service mni, got %s", coe.Service)
	}
	if coe.RetryAfter <= 0 || coe.RetryAfter > 30*time.Second {
		t.Errorf("retry-after estimate out of range: %s", coe.RetryAfter)
	}
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cfg := CircuitBreakerConfig{
		FailureThreshold: 3,
		Cooldown:         time.Minute,
	}
	cb := NewCircuitBreaker("mni", cfg)

	for i := 0; i < 2; i++ {
		_ = cb.Execute(context.Background(), failingCall)
	}

	failures, state := cb.Counters()
	if failures != 2 {
		t.Errorf("expected 2 consecutive failures, got %d", failures)
	}
	if state != CircuitClosed {
		t.Errorf("expected closed state, got %s", state)
	}

	_ = cb.Execute(context.Background(), func(_ context.Context) error { return nil })

	failures, _ = cb.Counters()
	if failures != 0 {
		t.Errorf("expected 0 consecutive failures after success, got %d", failures)
	}
}

func TestCircuitBreaker_HalfOpenProbe_SuccessCloses(t *testing.T) {
	now := time.Now()
	cfg := CircuitBreakerConfig{
		FailureThreshold: 2,
		Cooldown:         30 * time.Second,
	}
	cb := NewCircuitBreaker("mni", cfg)
	cb.nowFunc = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		_ = cb.Execute(context.Background(), failingCall)
	}
	if cb.State() != CircuitOpen {
		t.Fatalf("expected open state, got %s", cb.State())
	}

	cb.nowFunc = func() time.Time { return now.Add(31 * time.Second) }

	if cb.State() != CircuitHalfOpen {
		t.Errorf("expected half-open state after cooldown, got %s", cb.State())
	}

	err := cb.Execute(context.Background(), func(_ context.Context) error { return nil })
	if err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	if cb.State() != CircuitClosed {
		t.Errorf("expected closed after successful probe, got %s", cb.State())
	}
	failures, _ := cb.Counters()
	if failures != 0 {
		t.Errorf("expected failure count reset, got %d", failures)
	}
}

func TestCircuitBreaker_ExactlyOneProbe(t *testing.T) {
	now := time.Now()
	cfg := CircuitBreakerConfig{
		FailureThreshold: 1,
		Cooldown:         time.Second,
	}
	cb := NewCircuitBreaker("mni", cfg)
	cb.nowFunc = func() time.Time { return now }

	_ = cb.Execute(context.Background(), failingCall)
	cb.nowFunc = func() time.Time { return now.Add(2 * time.Second) }

	// First caller is admitted as the probe; keep it in flight while a
	// second caller arrives.
	probeStarted := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- cb.Execute(context.Background(), func(_ context.Context) error {
			close(probeStarted)
			<-release
			return nil
		})
	}()

	<-probeStarted
	err := cb.Execute(context.Background(), func(_ context.Context) error {
		t.Error("second caller must not run while probe is in flight")
		return nil
	})
	var coe *CircuitOpenError
	if !errors.As(err, &coe) {
		t.Errorf("expected CircuitOpenError for second caller, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("probe error: %v", err)
	}
	if cb.State() != CircuitClosed {
		t.Errorf("expected closed after probe success, got %s", cb.State())
	}
}

func TestCircuitBreaker_FailedProbeExtendsCooldown(t *testing.T) {
	now := time.Now()
	cfg := CircuitBreakerConfig{
		FailureThreshold: 1,
		Cooldown:         10 * time.Second,
		CooldownFactor:   2,
		MaxCooldown:      time.Minute,
	}
	cb := NewCircuitBreaker("mni", cfg)
	cb.nowFunc = func() time.Time { return now }

	_ = cb.Execute(context.Background(), failingCall)

	// Cooldown elapses; probe fails.
	now = now.Add(11 * time.Second)
	_ = cb.Execute(context.Background(), failingCall)
	if cb.State() != CircuitOpen {
		t.Fatalf("expected open after failed probe, got %s", cb.State())
	}

	// The original cooldown is no longer enough.
	now = now.Add(11 * time.Second)
	if cb.State() != CircuitOpen {
		t.Errorf("expected still open under extended cooldown, got %s", cb.State())
	}

	// The doubled cooldown admits the next probe.
	now = now.Add(10 * time.Second)
	if cb.State() != CircuitHalfOpen {
		t.Errorf("expected half-open after extended cooldown, got %s", cb.State())
	}
}

func TestCircuitBreaker_CancelledCallNotCounted(t *testing.T) {
	cfg := CircuitBreakerConfig{
		FailureThreshold: 1,
		Cooldown:         time.Minute,
	}
	cb := NewCircuitBreaker("mni", cfg)

	ctx, cancel := context.WithCancel(context.Background())
	_ = cb.Execute(ctx, func(ctx context.Context) error {
		cancel()
		return ctx.Err()
	})

	failures, state := cb.Counters()
	if failures != 0 {
		t.Errorf("cancellation recorded as failure: count %d", failures)
	}
	if state != CircuitClosed {
		t.Errorf("expected closed state, got %s", state)
	}
}

func TestCircuitBreaker_CancelledProbeReopensCircuit(t *testing.T) {
	now := time.Now()
	cfg := CircuitBreakerConfig{
		FailureThreshold: 1,
		Cooldown:         10 * time.Second,
	}
	cb := NewCircuitBreaker("mni", cfg)
	cb.nowFunc = func() time.Time { return now }

	_ = cb.Execute(context.Background(), failingCall)

	// Cooldown elapses; the admitted probe is cancelled mid-flight.
	now = now.Add(11 * time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	_ = cb.Execute(ctx, func(ctx context.Context) error {
		cancel()
		return ctx.Err()
	})

	// The probe slot must be given back: open again, cancellation not
	// counted as a failure, cooldown clock restarted from now.
	if cb.State() != CircuitOpen {
		t.Fatalf("expected open after cancelled probe, got %s", cb.State())
	}
	failures, _ := cb.Counters()
	if failures != 1 {
		t.Errorf("cancellation counted as failure: count %d", failures)
	}

	// A healthy upstream recovers once the next cooldown elapses.
	now = now.Add(11 * time.Second)
	if err := cb.Execute(context.Background(), func(_ context.Context) error { return nil }); err != nil {
		t.Fatalf("probe after cancelled probe rejected: %v", err)
	}
	if cb.State() != CircuitClosed {
		t.Errorf("expected closed after successful probe, got %s", cb.State())
	}
}

func TestCircuitBreaker_NonTransientDoesNotTrip(t *testing.T) {
	cfg := CircuitBreakerConfig{
		FailureThreshold: 1,
		Cooldown:         time.Minute,
	}
	cb := NewCircuitBreaker("mni", cfg)

	_ = cb.Execute(context.Background(), func(_ context.Context) error {
		return &AuthError{Msg: "invalid consumer credentials"}
	})

	if cb.State() != CircuitClosed {
		t.Errorf("auth failure must not trip the breaker, got %s", cb.State())
	}
}

func TestCircuitBreaker_ConcurrentFailures(t *testing.T) {
	cfg := CircuitBreakerConfig{
		FailureThreshold: 50,
		Cooldown:         time.Minute,
	}
	cb := NewCircuitBreaker("mni", cfg)

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = cb.Execute(context.Background(), failingCall)
		}()
	}
	wg.Wait()

	failures, state := cb.Counters()
	if failures != 40 {
		t.Errorf("expected 40 failures recorded, got %d", failures)
	}
	if state != CircuitClosed {
		t.Errorf("expected closed below threshold, got %s", state)
	}
}

func TestServiceBreakers_OneInstancePerService(t *testing.T) {
	sb := NewServiceBreakers(DefaultCircuitBreakerConfig())

	a := sb.Get("mni")
	b := sb.Get("mni")
	if a != b {
		t.Error("expected the same breaker instance for the same service")
	}
	if sb.Get("other") == a {
		t.Error("expected distinct breakers per service")
	}
}

func TestCircuitBreaker_StateChangeCallback(t *testing.T) {
	var transitions []string
	cfg := CircuitBreakerConfig{
		FailureThreshold: 1,
		Cooldown:         time.Minute,
		OnStateChange: func(from, to CircuitState) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	}
	cb := NewCircuitBreaker("mni", cfg)

	_ = cb.Execute(context.Background(), failingCall)

	if len(transitions) != 1 || transitions[0] != "closed->open" {
		t.Errorf("unexpected transitions: %v", transitions)
	}
}
