package statemachine

import (
	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/agentstep/domain/agent"
)

// Interpreter runs one step's retry machine.
type Interpreter struct {
	interp *statekit.Interpreter[*Context]
	ctx    *Context
}

// NewInterpreter creates an interpreter with the given retry budget. The
// first attempt is counted as soon as the interpreter starts.
func NewInterpreter(machine *statekit.MachineConfig[*Context], maxAttempts int) *Interpreter {
	ctx := &Context{Attempts: 1, MaxAttempts: maxAttempts}
	interp := statekit.NewInterpreter(machine)
	interp.UpdateContext(func(c **Context) {
		*c = ctx
	})
	return &Interpreter{interp: interp, ctx: ctx}
}

// Start enters the attempting state.
func (i *Interpreter) Start() {
	i.interp.Start()
}

// Stop stops the interpreter.
func (i *Interpreter) Stop() {
	i.interp.Stop()
}

// State returns the current retry state.
func (i *Interpreter) State() agent.RetryState {
	return agent.RetryState(i.interp.State().Value)
}

// Attempts returns the number of invocations started so far.
func (i *Interpreter) Attempts() int {
	return i.ctx.Attempts
}

// InvalidNames returns the unknown names from the latest rejection.
func (i *Interpreter) InvalidNames() []string {
	return append([]string(nil), i.ctx.InvalidNames...)
}

// Accept marks the current attempt as valid.
func (i *Interpreter) Accept() agent.RetryState {
	i.interp.Send(statekit.Event{Type: EventValid})
	return i.State()
}

// Reject records an attempt that requested unknown functions. It moves to
// correcting while the budget allows another invocation and to failed
// otherwise.
func (i *Interpreter) Reject(invalidNames []string) agent.RetryState {
	payload := RejectPayload{InvalidNames: invalidNames}
	if i.ctx.Attempts < i.ctx.MaxAttempts {
		i.interp.Send(statekit.Event{Type: EventRetry, Payload: payload})
	} else {
		i.interp.Send(statekit.Event{Type: EventExhaust, Payload: payload})
	}
	return i.State()
}

// Reprompt leaves correcting and starts the next attempt.
func (i *Interpreter) Reprompt() agent.RetryState {
	i.interp.Send(statekit.Event{Type: EventReprompt})
	return i.State()
}

// Done returns true once the machine reached succeeded or failed.
func (i *Interpreter) Done() bool {
	return i.interp.Done()
}

// Matches checks if the current state matches the given state.
func (i *Interpreter) Matches(state agent.RetryState) bool {
	return i.interp.Matches(statekit.StateID(state))
}
