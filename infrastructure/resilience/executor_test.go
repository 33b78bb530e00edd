package resilience

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/felixgeelhaar/agentstep/domain/tool"
)

func countingTool(name string, retryable bool, calls *atomic.Int32, err error) tool.Tool {
	b := tool.NewBuilder(name).WithHandler(func(ctx context.Context, input json.RawMessage) (tool.Result, error) {
		calls.Add(1)
		if err != nil {
			return tool.Result{}, err
		}
		return tool.NewResult(json.RawMessage(`{"success":true}`)), nil
	})
	if retryable {
		b = b.Idempotent()
	}
	return b.MustBuild()
}

func TestDefaultExecutorConfig(t *testing.T) {
	t.Parallel()

	config := DefaultExecutorConfig()
	if config.MaxConcurrent != 10 || config.CircuitBreakerThreshold != 5 || config.RetryMaxAttempts != 3 {
		t.Errorf("DefaultExecutorConfig() = %+v", config)
	}
	if config.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", config.Timeout)
	}
}

func TestNewExecutor_Options(t *testing.T) {
	t.Parallel()

	e := NewExecutor(
		WithMaxConcurrent(2),
		WithCircuitBreakerThreshold(7),
		WithCircuitBreakerTimeout(time.Minute),
		WithRetryAttempts(4),
		WithRetryDelay(time.Millisecond),
		WithTimeout(time.Second),
	)

	want := ExecutorConfig{
		MaxConcurrent:           2,
		CircuitBreakerThreshold: 7,
		CircuitBreakerTimeout:   time.Minute,
		RetryMaxAttempts:        4,
		RetryInitialDelay:       time.Millisecond,
		RetryBackoffMultiplier:  2.0,
		Timeout:                 time.Second,
	}
	if e.config != want {
		t.Errorf("config = %+v, want %+v", e.config, want)
	}
}

func TestNewExecutorFromConfig_NonPositive(t *testing.T) {
	t.Parallel()

	e := NewExecutorFromConfig(ExecutorConfig{MaxConcurrent: -1, CircuitBreakerThreshold: -1})
	if e.config.MaxConcurrent != 10 || e.config.CircuitBreakerThreshold != 5 {
		t.Errorf("config = %+v, want defaults for non-positive limits", e.config)
	}
	if e.config.RetryMaxAttempts != 1 {
		t.Errorf("RetryMaxAttempts = %d, want 1", e.config.RetryMaxAttempts)
	}

	var calls atomic.Int32
	if _, err := e.Execute(context.Background(), countingTool("ok", false, &calls, nil), nil); err != nil {
		t.Errorf("Execute() error = %v", err)
	}
}

func TestExecutor_Execute_Success(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	e := NewExecutor()
	result, err := e.Execute(context.Background(), countingTool("get-post", true, &calls, nil), json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if string(result.Output) != `{"success":true}` {
		t.Errorf("Output = %s", result.Output)
	}
	if result.Duration == 0 {
		t.Error("Execute() should set Duration")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestExecutor_RetryOnlyRetryableTools(t *testing.T) {
	t.Parallel()

	failure := errors.New("flaky")
	tests := []struct {
		name      string
		retryable bool
		wantCalls int32
	}{
		{"idempotent tool is retried", true, 3},
		{"side-effecting tool runs once", false, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var calls atomic.Int32
			e := NewExecutor(WithRetryAttempts(3), WithRetryDelay(time.Millisecond))
			_, err := e.Execute(context.Background(), countingTool("flaky", tt.retryable, &calls, failure), nil)
			if err == nil {
				t.Fatal("Execute() should return error")
			}
			if calls.Load() != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls.Load(), tt.wantCalls)
			}
		})
	}
}

func TestExecutor_Timeout(t *testing.T) {
	t.Parallel()

	slow := tool.NewBuilder("slow").WithHandler(func(ctx context.Context, _ json.RawMessage) (tool.Result, error) {
		select {
		case <-ctx.Done():
			return tool.Result{}, ctx.Err()
		case <-time.After(5 * time.Second):
			return tool.Result{}, nil
		}
	}).MustBuild()

	e := NewExecutor(WithTimeout(50 * time.Millisecond))
	if _, err := e.Execute(context.Background(), slow, nil); err == nil {
		t.Error("Execute() should fail when the tool exceeds the timeout")
	}
}

func TestExecutor_BreakerPerTool(t *testing.T) {
	t.Parallel()

	var bad, good atomic.Int32
	e := NewExecutor(WithCircuitBreakerThreshold(2), WithRetryAttempts(1))
	broken := countingTool("broken", false, &bad, errors.New("down"))
	healthy := countingTool("healthy", false, &good, nil)

	for i := 0; i < 2; i++ {
		_, _ = e.Execute(context.Background(), broken, nil)
	}
	if got := e.BreakerState("broken").String(); got != "open" {
		t.Errorf("broken breaker = %s, want open", got)
	}
	if got := e.BreakerState("healthy").String(); got != "closed" {
		t.Errorf("healthy breaker = %s, want closed", got)
	}

	if _, err := e.Execute(context.Background(), healthy, nil); err != nil {
		t.Errorf("healthy tool should still run, got %v", err)
	}
	if _, err := e.Execute(context.Background(), broken, nil); err == nil {
		t.Error("open breaker should reject the call")
	}
	if bad.Load() != 2 {
		t.Errorf("broken tool calls = %d, want 2", bad.Load())
	}
}
