package agent

import (
	"errors"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/agentstep/domain/tool"
)

// Domain errors for the agent runtime.
var (
	// ErrStepRetriesExhausted indicates the model kept requesting unknown
	// tools until the retry budget ran out.
	ErrStepRetriesExhausted = errors.New("step retries exhausted")

	// ErrMaxStepsExceeded indicates a conversation turn did not finish
	// within the configured number of steps.
	ErrMaxStepsExceeded = errors.New("max steps exceeded")

	// ErrNoModel indicates an agent was built without a model.
	ErrNoModel = errors.New("agent has no model")

	// ErrNoRegistry indicates an agent was built without a tool registry.
	ErrNoRegistry = errors.New("agent has no tool registry")
)

// StepRetriesExhaustedError reports the final attempt count and the
// unknown function names from the last attempt.
type StepRetriesExhaustedError struct {
	Attempts     int
	InvalidNames []string
}

func (e *StepRetriesExhaustedError) Error() string {
	return fmt.Sprintf("%s after %d attempts: unknown functions %s",
		ErrStepRetriesExhausted, e.Attempts, strings.Join(e.InvalidNames, ", "))
}

// Is matches ErrStepRetriesExhausted.
func (e *StepRetriesExhaustedError) Is(target error) bool {
	return target == ErrStepRetriesExhausted
}

// ToolErrorKind classifies a per-call tool failure.
type ToolErrorKind string

const (
	ToolErrorPermissionDenied ToolErrorKind = "permission_denied"
	ToolErrorExecution        ToolErrorKind = "execution"
)

// ToolError describes why a single call produced no normal response.
// It never aborts a step.
type ToolError struct {
	Kind   ToolErrorKind
	Tool   string
	CallID string
	Reason string
	Err    error
}

func (e *ToolError) Error() string {
	switch e.Kind {
	case ToolErrorPermissionDenied:
		if e.Reason != "" {
			return fmt.Sprintf("tool %s: permission denied: %s", e.Tool, e.Reason)
		}
		return fmt.Sprintf("tool %s: permission denied", e.Tool)
	default:
		return fmt.Sprintf("tool %s: %v", e.Tool, e.Err)
	}
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// Is matches the tool package sentinel for the error kind.
func (e *ToolError) Is(target error) bool {
	switch e.Kind {
	case ToolErrorPermissionDenied:
		return target == tool.ErrPermissionDenied
	case ToolErrorExecution:
		return target == tool.ErrExecutionFailed
	}
	return false
}
