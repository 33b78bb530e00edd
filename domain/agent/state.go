// Package agent provides the domain model for a single agent step.
package agent

import "github.com/felixgeelhaar/agentstep/domain/message"

// RetryState is a state of the per-step retry controller.
type RetryState string

const (
	StateAttempting RetryState = "attempting" // invoking the model
	StateCorrecting RetryState = "correcting" // appending a corrective message
	StateSucceeded  RetryState = "succeeded"  // terminal: all calls are known tools
	StateFailed     RetryState = "failed"     // terminal: retries exhausted
)

// IsTerminal returns true for succeeded and failed.
func (s RetryState) IsTerminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// String returns the string representation of the state.
func (s RetryState) String() string {
	return string(s)
}

// StepResult is the outcome of one successful step.
type StepResult struct {
	// StepIndex is the agent's step counter before this step ran.
	StepIndex int

	// Finished reports that the agent is waiting for new user input.
	Finished bool

	// NewMessages holds every message the step appended to the trajectory,
	// in order: rejected model turns with their corrective messages, the
	// accepted model message, then tool responses.
	NewMessages []message.Message

	// Attempts is the number of model invocations the step needed.
	Attempts int
}

// FailurePolicy controls what happens when a tool call is denied or fails.
type FailurePolicy string

const (
	// FailurePolicySilent drops the call without a response message.
	FailurePolicySilent FailurePolicy = "silent"

	// FailurePolicyReport emits a function response describing the error.
	FailurePolicyReport FailurePolicy = "report"
)

// IsValid returns true if the policy is recognized.
func (p FailurePolicy) IsValid() bool {
	return p == FailurePolicySilent || p == FailurePolicyReport
}
