package application

import (
	"github.com/felixgeelhaar/agentstep/domain/agent"
	"github.com/felixgeelhaar/agentstep/domain/message"
	"github.com/felixgeelhaar/agentstep/domain/model"
	"github.com/felixgeelhaar/agentstep/domain/tool"
	"github.com/felixgeelhaar/agentstep/infrastructure/telemetry"
)

// Option configures the agent.
type Option func(*AgentConfig)

// WithRegistry sets the tool registry.
func WithRegistry(r tool.Registry) Option {
	return func(c *AgentConfig) {
		c.Registry = r
	}
}

// WithModel sets a resolved model handle. It takes precedence over a gateway.
func WithModel(m model.Model) Option {
	return func(c *AgentConfig) {
		c.Model = m
	}
}

// WithGateway resolves the model through g on every step.
func WithGateway(g model.Gateway, providerID, modelID string) Option {
	return func(c *AgentConfig) {
		c.Gateway = g
		c.ProviderID = providerID
		c.ModelID = modelID
	}
}

// WithSystemInstruction sets the system instruction sent with every prompt.
func WithSystemInstruction(s string) Option {
	return func(c *AgentConfig) {
		c.SystemInstruction = s
	}
}

// WithMaxStepRetries sets the number of model invocations allowed per step.
func WithMaxStepRetries(n int) Option {
	return func(c *AgentConfig) {
		c.MaxStepRetries = n
	}
}

// WithFailurePolicy sets how denied and failed tool calls are reported.
func WithFailurePolicy(p agent.FailurePolicy) Option {
	return func(c *AgentConfig) {
		c.FailurePolicy = p
	}
}

// WithExecutor sets the runner used to execute tools.
func WithExecutor(e ToolRunner) Option {
	return func(c *AgentConfig) {
		c.Executor = e
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m telemetry.Metrics) Option {
	return func(c *AgentConfig) {
		c.Metrics = m
	}
}

// WithTrajectory seeds the agent with an existing conversation.
func WithTrajectory(msgs ...message.Message) Option {
	return func(c *AgentConfig) {
		c.Trajectory = append(c.Trajectory, msgs...)
	}
}

// NewAgentWithOptions creates an agent using functional options.
func NewAgentWithOptions(opts ...Option) (*Agent, error) {
	config := AgentConfig{}
	for _, opt := range opts {
		opt(&config)
	}
	return NewAgent(config)
}
