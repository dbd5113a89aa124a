package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/rendis/textaction/internal/extraction"
	"github.com/rendis/textaction/pkg/schema"
)

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	CircuitClosed   CircuitState = iota // Normal operation
	CircuitOpen                         // Failing, rejecting calls
	CircuitHalfOpen                     // Testing recovery
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig configures the circuit breaker behavior.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive failures before opening the circuit.
	FailureThreshold int `json:"failure_threshold"`
	// Cooldown is how long the circuit stays open before transitioning to half-open.
	Cooldown time.Duration `json:"cooldown"`
	// HalfOpenMax is the number of test requests allowed in half-open state.
	HalfOpenMax int `json:"half_open_max"`
}

// DefaultCircuitBreakerConfig returns a sensible default configuration.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 5,
		Cooldown:         30 * time.Second,
		HalfOpenMax:      1,
	}
}

// circuitBreaker tracks failure state for a single endpoint.
type circuitBreaker struct {
	mu                  sync.Mutex
	state               CircuitState
	consecutiveFailures int
	lastFailureTime     time.Time
	halfOpenAttempts    int
	config              CircuitBreakerConfig
}

// CircuitBreakerRegistry manages per-endpoint circuit breakers.
type CircuitBreakerRegistry struct {
	mu       sync.Mutex
	breakers map[string]*circuitBreaker
	config   CircuitBreakerConfig
	now      func() time.Time
}

// NewCircuitBreakerRegistry creates a new registry with the given config.
func NewCircuitBreakerRegistry(config CircuitBreakerConfig) *CircuitBreakerRegistry {
	if config.HalfOpenMax <= 0 {
		config.HalfOpenMax = 1
	}
	return &CircuitBreakerRegistry{
		breakers: make(map[string]*circuitBreaker),
		config:   config,
		now:      time.Now,
	}
}

// AllowRequest checks whether a request to the given endpoint is allowed.
// Returns nil if allowed, or a CIRCUIT_OPEN error if the circuit is open.
func (r *CircuitBreakerRegistry) AllowRequest(endpoint string) error {
	cb := r.getOrCreate(endpoint)
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitOpen:
		elapsed := r.now().Sub(cb.lastFailureTime)
		if elapsed >= cb.config.Cooldown {
			cb.state = CircuitHalfOpen
			cb.halfOpenAttempts = 1 // this request counts as the first test request
			return nil
		}
		return schema.NewErrorf(schema.ErrCodeCircuitOpen,
			"circuit breaker open for %s: %d consecutive failures",
			endpoint, cb.consecutiveFailures).
			WithDetails(map[string]any{
				"endpoint":             endpoint,
				"consecutive_failures": cb.consecutiveFailures,
				"state":                cb.state.String(),
				"cooldown_remaining":   (cb.config.Cooldown - elapsed).String(),
			})

	case CircuitHalfOpen:
		if cb.halfOpenAttempts >= cb.config.HalfOpenMax {
			return schema.NewErrorf(schema.ErrCodeCircuitOpen,
				"circuit breaker half-open for %s: max test requests reached", endpoint).
				WithDetails(map[string]any{"endpoint": endpoint, "state": cb.state.String()})
		}
		cb.halfOpenAttempts++
		return nil
	}

	return nil
}

// RecordSuccess records a successful call to the endpoint.
func (r *CircuitBreakerRegistry) RecordSuccess(endpoint string) {
	cb := r.getOrCreate(endpoint)
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveFailures = 0
	cb.halfOpenAttempts = 0
	cb.state = CircuitClosed
}

// RecordFailure records a failed call to the endpoint.
// Returns the new circuit state.
func (r *CircuitBreakerRegistry) RecordFailure(endpoint string) CircuitState {
	cb := r.getOrCreate(endpoint)
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveFailures++
	cb.lastFailureTime = r.now()

	if cb.state == CircuitHalfOpen {
		// Any failure in half-open reopens the circuit.
		cb.state = CircuitOpen
		return CircuitOpen
	}

	if cb.consecutiveFailures >= cb.config.FailureThreshold {
		cb.state = CircuitOpen
	}
	return cb.state
}

// GetState returns the current state of the circuit for an endpoint.
func (r *CircuitBreakerRegistry) GetState(endpoint string) CircuitState {
	cb := r.getOrCreate(endpoint)
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == CircuitOpen && r.now().Sub(cb.lastFailureTime) >= cb.config.Cooldown {
		cb.state = CircuitHalfOpen
		cb.halfOpenAttempts = 0
	}
	return cb.state
}

func (r *CircuitBreakerRegistry) getOrCreate(endpoint string) *circuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	cb, ok := r.breakers[endpoint]
	if !ok {
		cb = &circuitBreaker{
			state:  CircuitClosed,
			config: r.config,
		}
		r.breakers[endpoint] = cb
	}
	return cb
}

// Breaking fails fast while the circuit for its endpoint is open.
// Only extraction service failures count against the circuit.
type Breaking struct {
	next     extraction.Extractor
	breakers *CircuitBreakerRegistry
	endpoint string
}

// NewBreaking wraps next, tracking failures under endpoint.
func NewBreaking(next extraction.Extractor, breakers *CircuitBreakerRegistry, endpoint string) *Breaking {
	return &Breaking{next: next, breakers: breakers, endpoint: endpoint}
}

func (b *Breaking) Extract(ctx context.Context, req extraction.Request) (*schema.Extraction, error) {
	if err := b.breakers.AllowRequest(b.endpoint); err != nil {
		return nil, err
	}

	out, err := b.next.Extract(ctx, req)
	if err != nil && schema.HasCode(err, schema.ErrCodeExtractionService) {
		b.breakers.RecordFailure(b.endpoint)
		return nil, err
	}
	// Anything other than a service failure leaves the endpoint healthy.
	b.breakers.RecordSuccess(b.endpoint)
	return out, err
}

var _ extraction.Extractor = (*Breaking)(nil)
