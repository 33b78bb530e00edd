// Package resilience wraps tool execution in fortify policies.
package resilience

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/felixgeelhaar/fortify/bulkhead"
	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/retry"

	"github.com/felixgeelhaar/agentstep/domain/tool"
)

// Executor runs tools behind a shared bulkhead and a circuit breaker per
// tool name. Retries apply only to tools annotated as safe to repeat.
type Executor struct {
	config   ExecutorConfig
	bulkhead bulkhead.Bulkhead[tool.Result]
	retry    retry.Retry[tool.Result]

	mu       sync.Mutex
	breakers map[string]circuitbreaker.CircuitBreaker[tool.Result]
}

// ExecutorConfig configures the resilient executor.
type ExecutorConfig struct {
	// MaxConcurrent limits concurrent tool executions.
	MaxConcurrent int

	// CircuitBreakerThreshold is the consecutive failures before a tool's
	// breaker opens.
	CircuitBreakerThreshold int

	// CircuitBreakerTimeout is how long an open breaker rejects calls.
	CircuitBreakerTimeout time.Duration

	// RetryMaxAttempts bounds executions of a retryable tool.
	RetryMaxAttempts int

	// RetryInitialDelay is the delay before the first retry.
	RetryInitialDelay time.Duration

	// RetryBackoffMultiplier is the exponential backoff multiplier.
	RetryBackoffMultiplier float64

	// Timeout bounds a single tool execution.
	Timeout time.Duration
}

// DefaultExecutorConfig returns a configuration with sensible defaults.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		MaxConcurrent:           10,
		CircuitBreakerThreshold: 5,
		CircuitBreakerTimeout:   30 * time.Second,
		RetryMaxAttempts:        3,
		RetryInitialDelay:       100 * time.Millisecond,
		RetryBackoffMultiplier:  2.0,
		Timeout:                 30 * time.Second,
	}
}

// NewExecutor creates an executor from the default configuration adjusted
// by opts.
func NewExecutor(opts ...Option) *Executor {
	config := DefaultExecutorConfig()
	for _, opt := range opts {
		opt(&config)
	}
	return NewExecutorFromConfig(config)
}

// NewExecutorFromConfig creates an executor. Non-positive limits fall back
// to the defaults.
func NewExecutorFromConfig(config ExecutorConfig) *Executor {
	def := DefaultExecutorConfig()
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = def.MaxConcurrent
	}
	if config.CircuitBreakerThreshold <= 0 {
		config.CircuitBreakerThreshold = def.CircuitBreakerThreshold
	}
	if config.CircuitBreakerTimeout <= 0 {
		config.CircuitBreakerTimeout = def.CircuitBreakerTimeout
	}
	if config.RetryMaxAttempts <= 0 {
		config.RetryMaxAttempts = 1
	}
	if config.RetryBackoffMultiplier <= 0 {
		config.RetryBackoffMultiplier = def.RetryBackoffMultiplier
	}
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}

	return &Executor{
		config: config,
		bulkhead: bulkhead.New[tool.Result](bulkhead.Config{
			MaxConcurrent: config.MaxConcurrent,
		}),
		retry: retry.New[tool.Result](retry.Config{
			MaxAttempts:   config.RetryMaxAttempts,
			InitialDelay:  config.RetryInitialDelay,
			BackoffPolicy: retry.BackoffExponential,
			Multiplier:    config.RetryBackoffMultiplier,
		}),
		breakers: make(map[string]circuitbreaker.CircuitBreaker[tool.Result]),
	}
}

func (e *Executor) breaker(name string) circuitbreaker.CircuitBreaker[tool.Result] {
	e.mu.Lock()
	defer e.mu.Unlock()

	if cb, ok := e.breakers[name]; ok {
		return cb
	}
	threshold := uint32(e.config.CircuitBreakerThreshold) // #nosec G115 -- positive, checked in constructor
	cb := circuitbreaker.New[tool.Result](circuitbreaker.Config{
		MaxRequests: 1,
		Interval:    e.config.CircuitBreakerTimeout,
		Timeout:     e.config.CircuitBreakerTimeout,
		ReadyToTrip: func(counts circuitbreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
	})
	e.breakers[name] = cb
	return cb
}

// Execute runs a tool.
// Composition order: Bulkhead → Timeout → Circuit Breaker → Retry (retryable tools only)
func (e *Executor) Execute(ctx context.Context, t tool.Tool, input json.RawMessage) (tool.Result, error) {
	start := time.Now()
	cb := e.breaker(tool.SanitizeName(t.Name()))

	result, err := e.bulkhead.Execute(ctx, func(ctx context.Context) (tool.Result, error) {
		ctx, cancel := context.WithTimeout(ctx, e.config.Timeout)
		defer cancel()

		return cb.Execute(ctx, func(ctx context.Context) (tool.Result, error) {
			if t.Annotations().CanRetry() {
				return e.retry.Do(ctx, func(ctx context.Context) (tool.Result, error) {
					return t.Execute(ctx, input)
				})
			}
			return t.Execute(ctx, input)
		})
	})
	if err != nil {
		return tool.Result{}, err
	}

	result.Duration = time.Since(start)
	return result, nil
}

// BreakerState returns the circuit state for a tool. Tools that never ran
// report closed.
func (e *Executor) BreakerState(name string) circuitbreaker.State {
	return e.breaker(tool.SanitizeName(name)).State()
}
