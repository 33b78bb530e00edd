// Package application provides the agent step loop and the conversation
// driver built on top of it.
package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/felixgeelhaar/statekit"
	"github.com/google/uuid"

	"github.com/felixgeelhaar/agentstep/domain/agent"
	"github.com/felixgeelhaar/agentstep/domain/message"
	"github.com/felixgeelhaar/agentstep/domain/model"
	"github.com/felixgeelhaar/agentstep/domain/tool"
	"github.com/felixgeelhaar/agentstep/infrastructure/logging"
	"github.com/felixgeelhaar/agentstep/infrastructure/statemachine"
	"github.com/felixgeelhaar/agentstep/infrastructure/telemetry"
)

// DefaultMaxStepRetries is the number of model invocations a step may use
// when none is configured.
const DefaultMaxStepRetries = 3

// Agent owns one conversation's trajectory and advances it one step at a
// time. Calls to Step are serialized.
type Agent struct {
	mu sync.Mutex

	registry          tool.Registry
	model             model.Model
	gateway           model.Gateway
	providerID        string
	modelID           string
	systemInstruction string
	maxStepRetries    int
	failurePolicy     agent.FailurePolicy
	executor          ToolRunner
	metrics           telemetry.Metrics
	machine           *statekit.MachineConfig[*statemachine.Context]

	trajectory *message.Trajectory
	stepIndex  int
}

// AgentConfig contains configuration for the agent.
type AgentConfig struct {
	Registry          tool.Registry
	Model             model.Model
	Gateway           model.Gateway
	ProviderID        string
	ModelID           string
	SystemInstruction string
	MaxStepRetries    int
	FailurePolicy     agent.FailurePolicy
	Executor          ToolRunner
	Metrics           telemetry.Metrics
	Trajectory        []message.Message
}

// NewAgent creates a new agent with the given configuration.
func NewAgent(config AgentConfig) (*Agent, error) {
	if config.Registry == nil {
		return nil, agent.ErrNoRegistry
	}
	if config.Model == nil && config.Gateway == nil {
		return nil, agent.ErrNoModel
	}
	if config.FailurePolicy != "" && !config.FailurePolicy.IsValid() {
		return nil, fmt.Errorf("invalid failure policy: %s", config.FailurePolicy)
	}

	machine, err := statemachine.NewRetryMachine()
	if err != nil {
		return nil, fmt.Errorf("build retry machine: %w", err)
	}

	a := &Agent{
		registry:          config.Registry,
		model:             config.Model,
		gateway:           config.Gateway,
		providerID:        config.ProviderID,
		modelID:           config.ModelID,
		systemInstruction: config.SystemInstruction,
		maxStepRetries:    config.MaxStepRetries,
		failurePolicy:     config.FailurePolicy,
		executor:          config.Executor,
		metrics:           config.Metrics,
		machine:           machine,
		trajectory:        message.NewTrajectory(config.Trajectory...),
	}

	// Set defaults
	if a.maxStepRetries < 1 {
		a.maxStepRetries = DefaultMaxStepRetries
	}
	if a.failurePolicy == "" {
		a.failurePolicy = agent.FailurePolicySilent
	}
	if a.executor == nil {
		a.executor = directRunner{}
	}
	if a.metrics == nil {
		a.metrics = telemetry.NoopMetrics{}
	}

	return a, nil
}

// Step runs one model turn: invoke the model (re-prompting while it names
// unknown tools), execute the requested tools and append everything to the
// trajectory. On error the trajectory and step index are unchanged.
func (a *Agent) Step(ctx context.Context) (agent.StepResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	start := time.Now()
	stepIndex := a.stepIndex
	history := a.trajectory.Messages()

	ctx, span := telemetry.StartSpan(ctx, "agent.step", telemetry.AttrStepIndex.Int(stepIndex))
	logging.Debug().
		Add(logging.StepIndex(stepIndex)).
		Add(logging.MessageCount(len(history))).
		Msg("step started")

	result, err := a.step(ctx, stepIndex, history)
	telemetry.EndSpan(span, err)
	if err != nil {
		a.metrics.RecordStepFailure(ctx, failureReason(err))
		logging.Error().
			Add(logging.StepIndex(stepIndex)).
			Add(logging.ErrorField(err)).
			Msg("step failed")
		return agent.StepResult{}, err
	}

	a.trajectory.Append(result.NewMessages...)
	a.stepIndex++

	duration := time.Since(start)
	a.metrics.RecordStep(ctx, stepIndex, result.Finished, result.Attempts, duration)
	logging.Info().
		Add(logging.StepIndex(stepIndex)).
		Add(logging.Attempt(result.Attempts)).
		Add(logging.MessageCount(len(result.NewMessages))).
		Add(logging.Finished(result.Finished)).
		Add(logging.Duration(duration)).
		Msg("step completed")

	return result, nil
}

func (a *Agent) step(ctx context.Context, stepIndex int, history []message.Message) (agent.StepResult, error) {
	mdl, err := a.resolveModel(ctx)
	if err != nil {
		return agent.StepResult{}, err
	}

	attempt, err := a.invokeWithRetries(ctx, mdl, history)
	if err != nil {
		return agent.StepResult{}, err
	}

	// Call ids pair requests with responses on the wire; some vendors
	// leave them empty.
	accepted := &attempt.messages[len(attempt.messages)-1]
	normalizeCalls(accepted, a.registry)
	calls, _ := ExtractToolCalls(*accepted, a.registry)

	outcomes := a.ExecuteCalls(ctx, calls)
	newMessages := append(attempt.messages, responses(outcomes)...)

	return agent.StepResult{
		StepIndex:   stepIndex,
		Finished:    IsFinished(newMessages),
		NewMessages: newMessages,
		Attempts:    attempt.attempts,
	}, nil
}

func (a *Agent) resolveModel(ctx context.Context) (model.Model, error) {
	if a.model != nil {
		return a.model, nil
	}
	return a.gateway.Resolve(ctx, a.providerID, a.modelID)
}

// normalizeCalls fills empty call ids and rewrites registered call names to
// their sanitized form, so stored calls match their responses.
func normalizeCalls(msg *message.Message, registry tool.Registry) {
	for i := range msg.Parts {
		call := msg.Parts[i].Call
		if call == nil {
			continue
		}
		if call.ID == "" {
			call.ID = "call_" + uuid.NewString()
		}
		if registry != nil && registry.Has(call.Name) {
			call.Name = tool.SanitizeName(call.Name)
		}
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, agent.ErrStepRetriesExhausted):
		return "retries_exhausted"
	case errors.Is(err, model.ErrProviderUnavailable):
		return "provider_unavailable"
	case errors.Is(err, model.ErrModelUnavailable):
		return "model_unavailable"
	case errors.Is(err, model.ErrModelInvocation):
		return "model_invocation"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "other"
	}
}

// Trajectory returns a copy of the conversation so far.
func (a *Agent) Trajectory() []message.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.trajectory.Messages()
}

// StepCount returns the number of successful steps.
func (a *Agent) StepCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stepIndex
}

// Registry returns the tool registry.
func (a *Agent) Registry() tool.Registry {
	return a.registry
}
