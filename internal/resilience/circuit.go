// Package resilience provides the circuit breaker, retry, and error taxonomy
// wrapped around every call to the MNI case service. One breaker exists per
// upstream service identity for the whole process; all concurrent callers
// share it.
package resilience

import (
	"context"
	"sync"
	"time"
)

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	// CircuitClosed is the normal operating state — requests flow through.
	CircuitClosed CircuitState = iota
	// CircuitOpen means too many consecutive failures — requests are
	// rejected immediately without network I/O.
	CircuitOpen
	// CircuitHalfOpen allows a single probe request to test recovery.
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig controls circuit breaker behavior.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive failures before opening
	// the circuit. Default: 5.
	FailureThreshold int

	// Cooldown is how long the circuit stays open before admitting a
	// half-open probe. Default: 30s.
	Cooldown time.Duration

	// CooldownFactor extends the cooldown after a failed half-open probe
	// (cooldown = Cooldown * CooldownFactor^reopenings, capped at
	// MaxCooldown). Default: 2.
	CooldownFactor float64

	// MaxCooldown caps the extended cooldown. Default: 5m.
	MaxCooldown time.Duration

	// ShouldTrip decides which errors count toward the failure threshold.
	// If nil, IsTransient is used, so validation/auth failures and
	// cancelled calls never trip the breaker.
	ShouldTrip func(err error) bool

	// OnStateChange is called when the circuit transitions between states.
	OnStateChange func(from, to CircuitState)
}

// DefaultCircuitBreakerConfig returns sensible defaults for the MNI service.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 5,
		Cooldown:         30 * time.Second,
		CooldownFactor:   2,
		MaxCooldown:      5 * time.Minute,
	}
}

// CircuitBreaker implements the circuit breaker pattern for one upstream
// service identity. Safe for concurrent use.
type CircuitBreaker struct {
	service string
	cfg     CircuitBreakerConfig

	mu                  sync.Mutex
	state               CircuitState
	consecutiveFailures int
	lastFailureTime     time.Time
	reopenings          int // failed half-open probes since last close

	// nowFunc allows test injection of time.
	nowFunc func() time.Time
}

// NewCircuitBreaker creates a circuit breaker for the named service.
func NewCircuitBreaker(service string, cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.CooldownFactor < 1 {
		cfg.CooldownFactor = 2
	}
	if cfg.MaxCooldown <= 0 {
		cfg.MaxCooldown = 5 * time.Minute
	}
	return &CircuitBreaker{
		service: service,
		cfg:     cfg,
		state:   CircuitClosed,
		nowFunc: time.Now,
	}
}

// Service returns the upstream identity this breaker guards.
func (cb *CircuitBreaker) Service() string { return cb.service }

// Execute runs fn through the circuit breaker. Returns a *CircuitOpenError
// carrying a retry-after estimate if the circuit is open. A cancelled context
// is never recorded as a breaker failure.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	probe, err := cb.allowRequest()
	if err != nil {
		return err
	}

	err = fn(ctx)
	if ctx.Err() != nil {
		// Cancellation says nothing about upstream health. A cancelled
		// probe must still give back the half-open slot, or the breaker
		// stays half-open rejecting everyone forever.
		if probe {
			cb.releaseProbe()
		}
		return err
	}
	cb.recordResult(err)
	return err
}

// ExecuteVal is like Execute but preserves a return value.
func ExecuteVal[T any](ctx context.Context, cb *CircuitBreaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	probe, err := cb.allowRequest()
	if err != nil {
		return zero, err
	}

	val, err := fn(ctx)
	if ctx.Err() != nil {
		if probe {
			cb.releaseProbe()
		}
		return val, err
	}
	cb.recordResult(err)
	return val, err
}

// State returns the current circuit state, accounting for cooldown expiry.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == CircuitOpen && cb.nowFunc().Sub(cb.lastFailureTime) >= cb.currentCooldown() {
		return CircuitHalfOpen
	}
	return cb.state
}

// Reset forces the circuit back to closed. Tests instantiate a fresh breaker
// instead of resetting a shared one; this exists for manual operator recovery.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	old := cb.state
	cb.state = CircuitClosed
	cb.consecutiveFailures = 0
	cb.reopenings = 0
	if old != CircuitClosed && cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(old, CircuitClosed)
	}
}

// Counters returns the current failure count and state for observability.
func (cb *CircuitBreaker) Counters() (consecutiveFailures int, state CircuitState) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.consecutiveFailures, cb.state
}

// currentCooldown computes the cooldown extended by failed probes.
// Caller must hold cb.mu.
func (cb *CircuitBreaker) currentCooldown() time.Duration {
	d := cb.cfg.Cooldown
	for i := 0; i < cb.reopenings; i++ {
		d = time.Duration(float64(d) * cb.cfg.CooldownFactor)
		if d >= cb.cfg.MaxCooldown {
			return cb.cfg.MaxCooldown
		}
	}
	return d
}

// allowRequest admits or rejects a call. probe is true when this call is the
// single half-open probe; its owner is responsible for resolving the slot.
func (cb *CircuitBreaker) allowRequest() (probe bool, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		return false, nil
	case CircuitOpen:
		cooldown := cb.currentCooldown()
		elapsed := cb.nowFunc().Sub(cb.lastFailureTime)
		if elapsed >= cooldown {
			cb.transition(CircuitHalfOpen)
			return true, nil // admit the probe
		}
		return false, &CircuitOpenError{Service: cb.service, RetryAfter: cooldown - elapsed}
	case CircuitHalfOpen:
		// Exactly one probe: reject everyone else until it resolves.
		return false, &CircuitOpenError{Service: cb.service, RetryAfter: cb.currentCooldown()}
	default:
		return false, nil
	}
}

// releaseProbe returns the breaker to open after a cancelled half-open probe.
// The failure counters stay untouched; only the cooldown clock restarts, so
// the next probe is admitted one cooldown from now.
func (cb *CircuitBreaker) releaseProbe() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state != CircuitHalfOpen {
		return
	}
	cb.lastFailureTime = cb.nowFunc()
	cb.transition(CircuitOpen)
}

func (cb *CircuitBreaker) recordResult(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	shouldTrip := cb.cfg.ShouldTrip
	if shouldTrip == nil {
		shouldTrip = IsTransient
	}

	if err == nil || !shouldTrip(err) {
		switch cb.state {
		case CircuitHalfOpen:
			cb.transition(CircuitClosed)
			cb.consecutiveFailures = 0
			cb.reopenings = 0
		case CircuitClosed:
			cb.consecutiveFailures = 0
		}
		return
	}

	cb.consecutiveFailures++
	cb.lastFailureTime = cb.nowFunc()

	switch cb.state {
	case CircuitClosed:
		if cb.consecutiveFailures >= cb.cfg.FailureThreshold {
			cb.transition(CircuitOpen)
		}
	case CircuitHalfOpen:
		// Failed probe reopens the circuit with an extended cooldown.
		cb.reopenings++
		cb.transition(CircuitOpen)
	}
}

func (cb *CircuitBreaker) transition(to CircuitState) {
	from := cb.state
	cb.state = to
	if cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(from, to)
	}
}

// ServiceBreakers manages the process-wide breaker per upstream identity.
type ServiceBreakers struct {
	mu       sync.RWMutex
	breakers map[string]*CircuitBreaker
	cfg      CircuitBreakerConfig
}

// NewServiceBreakers creates a registry of per-service circuit breakers.
func NewServiceBreakers(cfg CircuitBreakerConfig) *ServiceBreakers {
	return &ServiceBreakers{
		breakers: make(map[string]*CircuitBreaker),
		cfg:      cfg,
	}
}

// Get returns the circuit breaker for the named service, creating one if
// needed. All call sites for the same service share the returned instance.
func (sb *ServiceBreakers) Get(service string) *CircuitBreaker {
	sb.mu.RLock()
	cb, ok := sb.breakers[service]
	sb.mu.RUnlock()
	if ok {
		return cb
	}

	sb.mu.Lock()
	defer sb.mu.Unlock()
	if cb, ok = sb.breakers[service]; ok {
		return cb
	}
	cb = NewCircuitBreaker(service, sb.cfg)
	sb.breakers[service] = cb
	return cb
}

// States returns a snapshot of all circuit breaker states.
func (sb *ServiceBreakers) States() map[string]CircuitState {
	sb.mu.RLock()
	defer sb.mu.RUnlock()
	states := make(map[string]CircuitState, len(sb.breakers))
	for name, cb := range sb.breakers {
		states[name] = cb.State()
	}
	return states
}
