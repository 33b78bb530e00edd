// Package config provides domain models for agent configuration.
package config

import "time"

// AgentConfig represents the complete agent configuration.
type AgentConfig struct {
	// Name is a human-readable name for this configuration.
	Name string `json:"name" yaml:"name"`
	// Version is the configuration schema version.
	Version string `json:"version" yaml:"version"`

	Agent      AgentSettings    `json:"agent" yaml:"agent"`
	Provider   ProviderConfig   `json:"provider" yaml:"provider"`
	Tools      ToolsConfig      `json:"tools,omitempty" yaml:"tools,omitempty"`
	Storage    StorageConfig    `json:"storage,omitempty" yaml:"storage,omitempty"`
	Resilience ResilienceConfig `json:"resilience,omitempty" yaml:"resilience,omitempty"`
	Logging    LoggingConfig    `json:"logging,omitempty" yaml:"logging,omitempty"`
	Telemetry  TelemetryConfig  `json:"telemetry,omitempty" yaml:"telemetry,omitempty"`
}

// AgentSettings contains step and retry behavior.
type AgentSettings struct {
	// SystemInstruction is prepended to every prompt.
	SystemInstruction string `json:"system_instruction,omitempty" yaml:"system_instruction,omitempty"`
	// MaxStepRetries bounds model invocations per step (default 3).
	MaxStepRetries int `json:"max_step_retries,omitempty" yaml:"max_step_retries,omitempty"`
	// MaxSteps bounds steps per user turn (default 10).
	MaxSteps int `json:"max_steps,omitempty" yaml:"max_steps,omitempty"`
	// ToolFailurePolicy is "silent" or "report".
	ToolFailurePolicy string `json:"tool_failure_policy,omitempty" yaml:"tool_failure_policy,omitempty"`
}

// ProviderConfig selects the model and carries per-vendor settings.
type ProviderConfig struct {
	// ID is the provider identifier (openai, anthropic, gemini, scripted).
	ID string `json:"id" yaml:"id"`
	// Model is the model identifier.
	Model string `json:"model" yaml:"model"`
	// MaxTokens caps the response length where the vendor requires it.
	MaxTokens int `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
	// Credentials maps provider ids to their endpoint settings.
	Credentials map[string]CredentialConfig `json:"credentials,omitempty" yaml:"credentials,omitempty"`
}

// CredentialConfig holds endpoint settings for one provider.
type CredentialConfig struct {
	APIKey  string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
}

// ToolsConfig selects the subset of the catalog offered to the model.
type ToolsConfig struct {
	// Enabled lists tools to offer (empty = all).
	Enabled []string `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	// Disabled lists tools to withhold.
	Disabled []string `json:"disabled,omitempty" yaml:"disabled,omitempty"`
	// Capabilities are granted to permission checks (e.g. "publish").
	Capabilities []string `json:"capabilities,omitempty" yaml:"capabilities,omitempty"`
}

// StorageConfig selects where session histories live.
type StorageConfig struct {
	// Backend is memory, sqlite, redis or postgres.
	Backend string `json:"backend,omitempty" yaml:"backend,omitempty"`
	// DSN is the sqlite path or postgres connection string.
	DSN string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
	// Address is the redis address.
	Address  string `json:"address,omitempty" yaml:"address,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
	DB       int    `json:"db,omitempty" yaml:"db,omitempty"`
	// KeyPrefix namespaces redis keys.
	KeyPrefix string `json:"key_prefix,omitempty" yaml:"key_prefix,omitempty"`
	// TTL expires idle sessions in redis.
	TTL Duration `json:"ttl,omitempty" yaml:"ttl,omitempty"`
	// Schema holds the postgres session table.
	Schema string `json:"schema,omitempty" yaml:"schema,omitempty"`
}

// ResilienceConfig contains tool execution resilience settings.
type ResilienceConfig struct {
	// Timeout is the default tool timeout.
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	// MaxConcurrent bounds concurrent tool executions.
	MaxConcurrent int `json:"max_concurrent,omitempty" yaml:"max_concurrent,omitempty"`
	// RetryAttempts applies to idempotent tools only.
	RetryAttempts int `json:"retry_attempts,omitempty" yaml:"retry_attempts,omitempty"`
	// CircuitBreakerThreshold is consecutive failures before opening.
	CircuitBreakerThreshold int `json:"circuit_breaker_threshold,omitempty" yaml:"circuit_breaker_threshold,omitempty"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level  string `json:"level,omitempty" yaml:"level,omitempty"`
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// TelemetryConfig configures tracing output.
type TelemetryConfig struct {
	// Tracing enables the stdout span exporter.
	Tracing bool `json:"tracing,omitempty" yaml:"tracing,omitempty"`
	// SampleRate is the trace sampling ratio (0 = always).
	SampleRate float64 `json:"sample_rate,omitempty" yaml:"sample_rate,omitempty"`
}

// Default returns a configuration with every default applied.
func Default() *AgentConfig {
	return &AgentConfig{
		Name:    "agent",
		Version: "1",
		Agent: AgentSettings{
			MaxStepRetries:    3,
			MaxSteps:          10,
			ToolFailurePolicy: "silent",
		},
		Provider: ProviderConfig{
			ID:        "scripted",
			Model:     "echo",
			MaxTokens: 4096,
		},
		Storage: StorageConfig{Backend: "memory"},
		Resilience: ResilienceConfig{
			Timeout:                 Duration(30 * time.Second),
			MaxConcurrent:           10,
			RetryAttempts:           3,
			CircuitBreakerThreshold: 5,
		},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

// ApplyDefaults fills zero values from Default.
func (c *AgentConfig) ApplyDefaults() {
	d := Default()
	if c.Agent.MaxStepRetries == 0 {
		c.Agent.MaxStepRetries = d.Agent.MaxStepRetries
	}
	if c.Agent.MaxSteps == 0 {
		c.Agent.MaxSteps = d.Agent.MaxSteps
	}
	if c.Agent.ToolFailurePolicy == "" {
		c.Agent.ToolFailurePolicy = d.Agent.ToolFailurePolicy
	}
	if c.Provider.MaxTokens == 0 {
		c.Provider.MaxTokens = d.Provider.MaxTokens
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = d.Storage.Backend
	}
	if c.Resilience.Timeout == 0 {
		c.Resilience.Timeout = d.Resilience.Timeout
	}
	if c.Resilience.MaxConcurrent == 0 {
		c.Resilience.MaxConcurrent = d.Resilience.MaxConcurrent
	}
	if c.Resilience.RetryAttempts == 0 {
		c.Resilience.RetryAttempts = d.Resilience.RetryAttempts
	}
	if c.Resilience.CircuitBreakerThreshold == 0 {
		c.Resilience.CircuitBreakerThreshold = d.Resilience.CircuitBreakerThreshold
	}
	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = d.Logging.Format
	}
}

// Duration is a time.Duration that supports JSON/YAML string representation.
type Duration time.Duration

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
