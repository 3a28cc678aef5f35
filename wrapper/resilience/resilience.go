// Package resilience wraps a Storage backend with failsafe-go retry and
// circuit-breaker policies, so a flaky out-of-process backend (redis,
// postgresql, a remote blob store...) degrades gracefully instead of
// stalling every request behind it.
package resilience

import (
	"context"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/failsafe-go/failsafe-go/retrypolicy"

	"github.com/sandrolain/outputcache"
)

// getOutcome is the typed result failsafe-go's generic executor operates
// over for Get calls; Storage.Get's three-return shape doesn't fit
// failsafe's single-result-plus-error signature directly.
type getOutcome struct {
	entry *outputcache.CacheEntry
	hit   bool
}

// Config holds the resilience policies applied to the wrapped backend's Get
// and Set calls independently, since a slow write and a slow read usually
// warrant different tolerances.
type Config struct {
	GetRetryPolicy    retrypolicy.RetryPolicy[*getOutcome]
	GetCircuitBreaker circuitbreaker.CircuitBreaker[*getOutcome]
	SetRetryPolicy    retrypolicy.RetryPolicy[*struct{}]
	SetCircuitBreaker circuitbreaker.CircuitBreaker[*struct{}]
}

// RetryPolicyBuilder returns a pre-configured retry policy builder for Get
// calls: retry on any error, up to 3 retries (4 attempts in all), exponential backoff from 100ms to
// 10s. Callers can further customize before calling Build().
func RetryPolicyBuilder() retrypolicy.Builder[*getOutcome] {
	return retrypolicy.NewBuilder[*getOutcome]().
		HandleIf(func(_ *getOutcome, err error) bool { return err != nil }).
		WithMaxRetries(3).
		WithBackoff(100*time.Millisecond, 10*time.Second)
}

// CircuitBreakerBuilder returns a pre-configured circuit breaker builder for
// Get calls: opens after 5 consecutive failures, closes after 2 consecutive
// successes in half-open state, 60s open delay.
func CircuitBreakerBuilder() circuitbreaker.Builder[*getOutcome] {
	return circuitbreaker.NewBuilder[*getOutcome]().
		HandleIf(func(_ *getOutcome, err error) bool { return err != nil }).
		WithFailureThreshold(5).
		WithSuccessThreshold(2).
		WithDelay(60 * time.Second)
}

// Storage wraps an outputcache.Storage, applying Config's policies around
// Get and Set independently. A Get that exhausts retries or finds the
// circuit open returns its error, which the middleware treats as a cache
// miss — the request still gets served, just not from cache.
type Storage struct {
	underlying outputcache.Storage
	cfg        Config
}

// New wraps underlying with the given resilience configuration.
func New(underlying outputcache.Storage, cfg Config) *Storage {
	return &Storage{underlying: underlying, cfg: cfg}
}

var _ outputcache.Storage = (*Storage)(nil)

func (s *Storage) Get(ctx context.Context, key string) (*outputcache.CacheEntry, bool, error) {
	var policies []failsafe.Policy[*getOutcome]
	if s.cfg.GetRetryPolicy != nil {
		policies = append(policies, s.cfg.GetRetryPolicy)
	}
	if s.cfg.GetCircuitBreaker != nil {
		policies = append(policies, s.cfg.GetCircuitBreaker)
	}

	fn := func() (*getOutcome, error) {
		entry, hit, err := s.underlying.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		return &getOutcome{entry: entry, hit: hit}, nil
	}

	if len(policies) == 0 {
		out, err := fn()
		if err != nil {
			return nil, false, err
		}
		return out.entry, out.hit, nil
	}

	out, err := failsafe.With(policies...).Get(fn)
	if err != nil {
		return nil, false, err
	}
	return out.entry, out.hit, nil
}

func (s *Storage) Set(ctx context.Context, key string, entry *outputcache.CacheEntry, ttl time.Duration) error {
	var policies []failsafe.Policy[*struct{}]
	if s.cfg.SetRetryPolicy != nil {
		policies = append(policies, s.cfg.SetRetryPolicy)
	}
	if s.cfg.SetCircuitBreaker != nil {
		policies = append(policies, s.cfg.SetCircuitBreaker)
	}

	fn := func() (*struct{}, error) {
		return &struct{}{}, s.underlying.Set(ctx, key, entry, ttl)
	}

	if len(policies) == 0 {
		_, err := fn()
		return err
	}

	_, err := failsafe.With(policies...).Get(fn)
	return err
}
