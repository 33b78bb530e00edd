// Package telemetry provides OpenTelemetry metrics and tracing for agent
// steps, retries, tool executions and model invocations.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Tool outcomes recorded on agent.tool.executions.
const (
	ToolOutcomeSuccess = "success"
	ToolOutcomeDenied  = "denied"
	ToolOutcomeFailed  = "failed"
)

// Metrics defines the interface for metrics recording.
type Metrics interface {
	RecordStep(ctx context.Context, stepIndex int, finished bool, attempts int, duration time.Duration)
	RecordStepFailure(ctx context.Context, reason string)
	RecordRetry(ctx context.Context, invalidNames []string)
	RecordToolExecution(ctx context.Context, toolName, outcome string, duration time.Duration)
	RecordModelInvocation(ctx context.Context, provider, model string, success bool, duration time.Duration)
}

// MetricsProvider records agent metrics on an OpenTelemetry meter.
type MetricsProvider struct {
	meter metric.Meter

	steps          metric.Int64Counter
	stepFailures   metric.Int64Counter
	retries        metric.Int64Counter
	invalidCalls   metric.Int64Counter
	toolExecutions metric.Int64Counter
	modelCalls     metric.Int64Counter

	stepDuration  metric.Float64Histogram
	stepAttempts  metric.Int64Histogram
	toolDuration  metric.Float64Histogram
	modelDuration metric.Float64Histogram

	initErr error
}

// MetricsConfig configures the metrics provider.
type MetricsConfig struct {
	// MeterName is the name of the meter.
	MeterName string
	// MeterVersion is the version of the meter.
	MeterVersion string
	// MeterProvider overrides the global provider when set.
	MeterProvider metric.MeterProvider
}

// DefaultMetricsConfig returns a default metrics configuration.
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		MeterName:    "github.com/felixgeelhaar/agentstep",
		MeterVersion: "1.0.0",
	}
}

// NewMetricsProvider creates a new metrics provider. Instrument creation
// errors are reported by Error.
func NewMetricsProvider(config MetricsConfig) *MetricsProvider {
	if config.MeterName == "" {
		config.MeterName = DefaultMetricsConfig().MeterName
	}
	provider := config.MeterProvider
	if provider == nil {
		provider = otel.GetMeterProvider()
	}

	mp := &MetricsProvider{
		meter: provider.Meter(config.MeterName, metric.WithInstrumentationVersion(config.MeterVersion)),
	}
	mp.initErr = mp.initInstruments()
	return mp
}

func (mp *MetricsProvider) initInstruments() error {
	var err error

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
		unit string
	}{
		{&mp.steps, "agent.steps", "Number of completed agent steps", "{step}"},
		{&mp.stepFailures, "agent.step.failures", "Number of failed agent steps", "{step}"},
		{&mp.retries, "agent.step.retries", "Number of corrective re-prompts", "{retry}"},
		{&mp.invalidCalls, "agent.tool.invalid_calls", "Function calls naming unregistered tools", "{call}"},
		{&mp.toolExecutions, "agent.tool.executions", "Number of tool executions", "{execution}"},
		{&mp.modelCalls, "agent.model.invocations", "Number of model invocations", "{invocation}"},
	}
	for _, c := range counters {
		*c.dst, err = mp.meter.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit(c.unit))
		if err != nil {
			return err
		}
	}

	histograms := []struct {
		dst  *metric.Float64Histogram
		name string
		desc string
	}{
		{&mp.stepDuration, "agent.step.duration", "Duration of agent steps"},
		{&mp.toolDuration, "agent.tool.duration", "Duration of tool executions"},
		{&mp.modelDuration, "agent.model.duration", "Duration of model invocations"},
	}
	for _, h := range histograms {
		*h.dst, err = mp.meter.Float64Histogram(h.name, metric.WithDescription(h.desc), metric.WithUnit("ms"))
		if err != nil {
			return err
		}
	}

	mp.stepAttempts, err = mp.meter.Int64Histogram(
		"agent.step.attempts",
		metric.WithDescription("Model invocations needed per step"),
		metric.WithUnit("{attempt}"),
	)
	return err
}

// Error returns any initialization error.
func (mp *MetricsProvider) Error() error {
	return mp.initErr
}

// RecordStep records a successful step.
func (mp *MetricsProvider) RecordStep(ctx context.Context, stepIndex int, finished bool, attempts int, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.Bool("step.finished", finished))

	mp.steps.Add(ctx, 1, attrs)
	mp.stepDuration.Record(ctx, milliseconds(duration), attrs)
	mp.stepAttempts.Record(ctx, int64(attempts), attrs)
}

// RecordStepFailure records a step that returned an error.
func (mp *MetricsProvider) RecordStepFailure(ctx context.Context, reason string) {
	mp.stepFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("failure.reason", reason)))
}

// RecordRetry records one corrective re-prompt and the names that caused it.
func (mp *MetricsProvider) RecordRetry(ctx context.Context, invalidNames []string) {
	mp.retries.Add(ctx, 1)
	for _, name := range invalidNames {
		mp.invalidCalls.Add(ctx, 1, metric.WithAttributes(attribute.String("tool.name", name)))
	}
}

// RecordToolExecution records a tool call outcome.
func (mp *MetricsProvider) RecordToolExecution(ctx context.Context, toolName, outcome string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("tool.name", toolName),
		attribute.String("tool.outcome", outcome),
	)
	mp.toolExecutions.Add(ctx, 1, attrs)
	if outcome != ToolOutcomeDenied {
		mp.toolDuration.Record(ctx, milliseconds(duration), attrs)
	}
}

// RecordModelInvocation records one model round trip.
func (mp *MetricsProvider) RecordModelInvocation(ctx context.Context, provider, model string, success bool, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("model.provider", provider),
		attribute.String("model.id", model),
		attribute.Bool("success", success),
	)
	mp.modelCalls.Add(ctx, 1, attrs)
	mp.modelDuration.Record(ctx, milliseconds(duration), attrs)
}

func milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// NoopMetrics discards all measurements.
type NoopMetrics struct{}

func (NoopMetrics) RecordStep(context.Context, int, bool, int, time.Duration) {}
func (NoopMetrics) RecordStepFailure(context.Context, string) {}
func (NoopMetrics) RecordRetry(context.Context, []string) {}
func (NoopMetrics) RecordToolExecution(context.Context, string, string, time.Duration) {}
func (NoopMetrics) RecordModelInvocation(context.Context, string, string, bool, time.Duration) {}

// Ensure implementations satisfy the interface.
var (
	_ Metrics = (*MetricsProvider)(nil)
	_ Metrics = NoopMetrics{}
)
