package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	// Path is the dotted path to the invalid field.
	Path string
	// Message describes the validation error.
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("%d validation errors:\n  - %s", len(e), strings.Join(msgs, "\n  - "))
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates agent configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate validates the configuration and returns any errors.
func (v *Validator) Validate(config *AgentConfig) ValidationErrors {
	v.errors = nil

	v.validateRequired(config)
	v.validateAgent(config)
	v.validateProvider(config)
	v.validateTools(config)
	v.validateStorage(config)
	v.validateResilience(config)
	v.validateLogging(config)

	return v.errors
}

func (v *Validator) addError(path, message string) {
	v.errors = append(v.errors, ValidationError{Path: path, Message: message})
}

func (v *Validator) validateRequired(config *AgentConfig) {
	if config.Name == "" {
		v.addError("name", "name is required")
	}
	if config.Version == "" {
		v.addError("version", "version is required")
	}
}

func (v *Validator) validateAgent(config *AgentConfig) {
	if config.Agent.MaxStepRetries < 0 {
		v.addError("agent.max_step_retries", "max_step_retries must be non-negative")
	}
	if config.Agent.MaxSteps < 0 {
		v.addError("agent.max_steps", "max_steps must be non-negative")
	}
	switch config.Agent.ToolFailurePolicy {
	case "", "silent", "report":
	default:
		v.addError("agent.tool_failure_policy", fmt.Sprintf("invalid policy: %s", config.Agent.ToolFailurePolicy))
	}
}

func (v *Validator) validateProvider(config *AgentConfig) {
	if config.Provider.ID == "" {
		v.addError("provider.id", "provider id is required")
	}
	if config.Provider.Model == "" {
		v.addError("provider.model", "model is required")
	}
	if config.Provider.MaxTokens < 0 {
		v.addError("provider.max_tokens", "max_tokens must be non-negative")
	}
}

func (v *Validator) validateTools(config *AgentConfig) {
	disabled := make(map[string]bool, len(config.Tools.Disabled))
	for _, name := range config.Tools.Disabled {
		disabled[name] = true
	}
	for i, name := range config.Tools.Enabled {
		path := fmt.Sprintf("tools.enabled[%d]", i)
		if name == "" {
			v.addError(path, "tool name cannot be empty")
		} else if disabled[name] {
			v.addError(path, fmt.Sprintf("tool %s is both enabled and disabled", name))
		}
	}
}

func (v *Validator) validateStorage(config *AgentConfig) {
	s := config.Storage
	switch s.Backend {
	case "", "memory":
	case "sqlite", "postgres":
		if s.DSN == "" {
			v.addError("storage.dsn", fmt.Sprintf("dsn is required for %s storage", s.Backend))
		}
	case "redis":
		if s.Address == "" {
			v.addError("storage.address", "address is required for redis storage")
		}
	default:
		v.addError("storage.backend", fmt.Sprintf("unknown storage backend: %s", s.Backend))
	}
	if s.DB < 0 {
		v.addError("storage.db", "db must be non-negative")
	}
}

func (v *Validator) validateResilience(config *AgentConfig) {
	r := config.Resilience
	if r.Timeout < 0 {
		v.addError("resilience.timeout", "timeout must be non-negative")
	}
	if r.MaxConcurrent < 0 {
		v.addError("resilience.max_concurrent", "max_concurrent must be non-negative")
	}
	if r.RetryAttempts < 0 {
		v.addError("resilience.retry_attempts", "retry_attempts must be non-negative")
	}
	if r.CircuitBreakerThreshold < 0 {
		v.addError("resilience.circuit_breaker_threshold", "threshold must be non-negative")
	}
}

func (v *Validator) validateLogging(config *AgentConfig) {
	switch strings.ToLower(config.Logging.Level) {
	case "", "trace", "debug", "info", "warn", "error":
	default:
		v.addError("logging.level", fmt.Sprintf("invalid level: %s", config.Logging.Level))
	}
	switch config.Logging.Format {
	case "", "json", "console":
	default:
		v.addError("logging.format", fmt.Sprintf("invalid format: %s", config.Logging.Format))
	}
}
