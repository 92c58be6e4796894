package resilience

import (
	"context"
	"time"
)

// Policy composes a shared circuit breaker with a retry configuration so any
// unit of work can be wrapped in one call. The breaker is consulted on every
// attempt: once it opens mid-retry, remaining attempts are rejected without
// network I/O (CircuitOpenError is not transient).
type Policy struct {
	breaker *CircuitBreaker
	retry   RetryConfig
}

// NewPolicy builds a policy around the given breaker and retry settings.
func NewPolicy(breaker *CircuitBreaker, retry RetryConfig) *Policy {
	return &Policy{breaker: breaker, retry: retry}
}

// QueryPolicy returns the policy used for case queries against the named
// service's shared breaker.
func QueryPolicy(breakers *ServiceBreakers, service string) *Policy {
	return NewPolicy(breakers.Get(service), DefaultRetryConfig())
}

// BatchPolicy returns the more tolerant policy used for document batch
// downloads, sharing the same breaker as queries for that service.
func BatchPolicy(breakers *ServiceBreakers, service string) *Policy {
	return NewPolicy(breakers.Get(service), BatchRetryConfig())
}

// Breaker exposes the underlying breaker for observability.
func (p *Policy) Breaker() *CircuitBreaker { return p.breaker }

// Execute runs fn with retry and circuit breaking. Terminal outcomes are
// distinguishable by type: *CircuitOpenError (breaker rejected),
// *TransientError (retries exhausted), or the original non-retryable error.
func (p *Policy) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	return Do(ctx, p.retry, func(ctx context.Context) error {
		return p.breaker.Execute(ctx, fn)
	})
}

// ExecutePolicy runs fn returning a value under the policy.
func ExecutePolicy[T any](ctx context.Context, p *Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	return DoVal(ctx, p.retry, func(ctx context.Context) (T, error) {
		return ExecuteVal(ctx, p.breaker, fn)
	})
}

// WithOnRetry returns a copy of the policy with the retry callback set.
func (p *Policy) WithOnRetry(fn func(attempt int, err error)) *Policy {
	cp := *p
	cp.retry.OnRetry = fn
	return &cp
}

// FromRetryConfig converts config values to a RetryConfig.
func FromRetryConfig(maxAttempts, initialBackoffMs, maxBackoffMs int, multiplier, jitterFraction float64) RetryConfig {
	cfg := DefaultRetryConfig()
	if maxAttempts > 0 {
		cfg.MaxAttempts = maxAttempts
	}
	if initialBackoffMs > 0 {
		cfg.InitialBackoff = time.Duration(initialBackoffMs) * time.Millisecond
	}
	if maxBackoffMs > 0 {
		cfg.MaxBackoff = time.Duration(maxBackoffMs) * time.Millisecond
	}
	if multiplier > 0 {
		cfg.Multiplier = multiplier
	}
	if jitterFraction >= 0 {
		cfg.JitterFraction = jitterFraction
	}
	return cfg
}

// FromCircuitConfig converts config values to a CircuitBreakerConfig.
func FromCircuitConfig(failureThreshold, cooldownSecs int) CircuitBreakerConfig {
	cfg := DefaultCircuitBreakerConfig()
	if failureThreshold > 0 {
		cfg.FailureThreshold = failureThreshold
	}
	if cooldownSecs > 0 {
		cfg.Cooldown = time.Duration(cooldownSecs) * time.Second
	}
	return cfg
}
