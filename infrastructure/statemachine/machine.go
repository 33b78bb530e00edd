// Package statemachine provides the statekit chart that drives per-step
// retries.
package statemachine

import (
	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/agentstep/domain/agent"
)

// Context carries retry bookkeeping through the machine.
type Context struct {
	// Attempts is the number of model invocations started in this step.
	Attempts int
	// MaxAttempts is the step retry budget.
	MaxAttempts int
	// InvalidNames are the unknown functions from the latest rejected attempt.
	InvalidNames []string
}

// RejectPayload accompanies RETRY and EXHAUST events.
type RejectPayload struct {
	InvalidNames []string
}

const (
	stateAttempting = statekit.StateID(agent.StateAttempting)
	stateCorrecting = statekit.StateID(agent.StateCorrecting)
	stateSucceeded  = statekit.StateID(agent.StateSucceeded)
	stateFailed     = statekit.StateID(agent.StateFailed)
)

// Events understood by the retry machine.
const (
	EventValid    statekit.EventType = "VALID"
	EventRetry    statekit.EventType = "RETRY"
	EventExhaust  statekit.EventType = "EXHAUST"
	EventReprompt statekit.EventType = "REPROMPT"
)

// NewRetryMachine creates the retry statechart:
//
//	attempting --VALID--> succeeded
//	attempting --RETRY [retriesRemain]--> correcting --REPROMPT--> attempting
//	attempting --EXHAUST--> failed
func NewRetryMachine() (*statekit.MachineConfig[*Context], error) {
	return statekit.NewMachine[*Context]("step-retry").
		WithInitial(stateAttempting).
		WithContext(&Context{}).
		WithAction("recordRejection", recordRejection).
		WithAction("countAttempt", countAttempt).
		WithGuard("retriesRemain", retriesRemain).
		State(stateAttempting).
			On(EventValid).Target(stateSucceeded).
			On(EventRetry).Target(stateCorrecting).Guard("retriesRemain").Do("recordRejection").
			On(EventExhaust).Target(stateFailed).Do("recordRejection").
			Done().
		State(stateCorrecting).
			On(EventReprompt).Target(stateAttempting).Do("countAttempt").
			Done().
		State(stateSucceeded).
			Final().
			Done().
		State(stateFailed).
			Final().
			Done().
		Build()
}

// retriesRemain reports whether another invocation fits the budget.
func retriesRemain(ctx *Context, _ statekit.Event) bool {
	if ctx == nil {
		return false
	}
	return ctx.Attempts < ctx.MaxAttempts
}

func recordRejection(ctx **Context, event statekit.Event) {
	if ctx == nil || *ctx == nil {
		return
	}
	if payload, ok := event.Payload.(RejectPayload); ok {
		(*ctx).InvalidNames = append([]string(nil), payload.InvalidNames...)
	}
}

func countAttempt(ctx **Context, _ statekit.Event) {
	if ctx == nil || *ctx == nil {
		return
	}
	(*ctx).Attempts++
}
