package telemetry

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func setupTestMetrics(t *testing.T) (*sdkmetric.ManualReader, *MetricsProvider) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	cfg := DefaultMetricsConfig()
	cfg.MeterProvider = provider
	mp := NewMetricsProvider(cfg)
	if mp.Error() != nil {
		t.Fatalf("failed to create metrics provider: %v", mp.Error())
	}
	return reader, mp
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumInt64(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()

	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("%s: expected Sum[int64], got %T", m.Name, m.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestMetricsProvider_RecordStep(t *testing.T) {
	t.Parallel()

	reader, mp := setupTestMetrics(t)
	ctx := context.Background()

	mp.RecordStep(ctx, 0, false, 1, 20*time.Millisecond)
	mp.RecordStep(ctx, 1, true, 2, 35*time.Millisecond)
	mp.RecordStepFailure(ctx, "retries_exhausted")

	metrics := collect(t, reader)

	if got := sumInt64(t, metrics["agent.steps"]); got != 2 {
		t.Errorf("agent.steps = %d, want 2", got)
	}
	if got := sumInt64(t, metrics["agent.step.failures"]); got != 1 {
		t.Errorf("agent.step.failures = %d, want 1", got)
	}

	hist, ok := metrics["agent.step.attempts"].Data.(metricdata.Histogram[int64])
	if !ok {
		t.Fatalf("agent.step.attempts: got %T", metrics["agent.step.attempts"].Data)
	}
	var attempts int64
	for _, dp := range hist.DataPoints {
		attempts += dp.Sum
	}
	if attempts != 3 {
		t.Errorf("attempts sum = %d, want 3", attempts)
	}
}

func TestMetricsProvider_RecordRetry(t *testing.T) {
	t.Parallel()

	reader, mp := setupTestMetrics(t)
	mp.RecordRetry(context.Background(), []string{"delete-everything", "fly"})

	metrics := collect(t, reader)
	if got := sumInt64(t, metrics["agent.step.retries"]); got != 1 {
		t.Errorf("agent.step.retries = %d, want 1", got)
	}
	if got := sumInt64(t, metrics["agent.tool.invalid_calls"]); got != 2 {
		t.Errorf("agent.tool.invalid_calls = %d, want 2", got)
	}
}

func TestMetricsProvider_RecordToolExecution(t *testing.T) {
	t.Parallel()

	reader, mp := setupTestMetrics(t)
	ctx := context.Background()

	mp.RecordToolExecution(ctx, "get_post", ToolOutcomeSuccess, 5*time.Millisecond)
	mp.RecordToolExecution(ctx, "publish_post", ToolOutcomeDenied, 0)
	mp.RecordToolExecution(ctx, "get_post", ToolOutcomeFailed, 7*time.Millisecond)

	metrics := collect(t, reader)
	sum := metrics["agent.tool.executions"].Data.(metricdata.Sum[int64])

	byOutcome := map[string]int64{}
	for _, dp := range sum.DataPoints {
		v, _ := dp.Attributes.Value(attribute.Key("tool.outcome"))
		byOutcome[v.AsString()] += dp.Value
	}
	want := map[string]int64{ToolOutcomeSuccess: 1, ToolOutcomeDenied: 1, ToolOutcomeFailed: 1}
	for k, v := range want {
		if byOutcome[k] != v {
			t.Errorf("outcome %s = %d, want %d", k, byOutcome[k], v)
		}
	}

	hist := metrics["agent.tool.duration"].Data.(metricdata.Histogram[float64])
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	if count != 2 {
		t.Errorf("tool duration samples = %d, want 2 (denied calls are not timed)", count)
	}
}

func TestMetricsProvider_RecordModelInvocation(t *testing.T) {
	t.Parallel()

	reader, mp := setupTestMetrics(t)
	mp.RecordModelInvocation(context.Background(), "openai", "gpt-4o", true, 120*time.Millisecond)
	mp.RecordModelInvocation(context.Background(), "openai", "gpt-4o", false, 30*time.Millisecond)

	metrics := collect(t, reader)
	if got := sumInt64(t, metrics["agent.model.invocations"]); got != 2 {
		t.Errorf("agent.model.invocations = %d, want 2", got)
	}
	if _, ok := metrics["agent.model.duration"]; !ok {
		t.Error("agent.model.duration not recorded")
	}
}

func TestNoopMetrics(t *testing.T) {
	t.Parallel()

	var m Metrics = NoopMetrics{}
	ctx := context.Background()
	m.RecordStep(ctx, 0, true, 1, time.Millisecond)
	m.RecordStepFailure(ctx, "x")
	m.RecordRetry(ctx, []string{"x"})
	m.RecordToolExecution(ctx, "x", ToolOutcomeSuccess, time.Millisecond)
	m.RecordModelInvocation(ctx, "p", "m", true, time.Millisecond)
}
