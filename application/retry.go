package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/agentstep/domain/agent"
	"github.com/felixgeelhaar/agentstep/domain/message"
	"github.com/felixgeelhaar/agentstep/domain/model"
	"github.com/felixgeelhaar/agentstep/infrastructure/logging"
	"github.com/felixgeelhaar/agentstep/infrastructure/statemachine"
	"github.com/felixgeelhaar/agentstep/infrastructure/telemetry"
)

// attemptResult is what the retry controller hands to the tool executor.
// The accepted model message is the last entry of messages.
type attemptResult struct {
	messages []message.Message
	attempts int
}

// invokeWithRetries invokes the model until it requests only registered
// tools or the step budget runs out. Rejected model messages and the
// corrective messages written for them are kept in the returned buffer.
func (a *Agent) invokeWithRetries(ctx context.Context, mdl model.Model, history []message.Message) (attemptResult, error) {
	interp := statemachine.NewInterpreter(a.machine, a.maxStepRetries)
	interp.Start()
	defer interp.Stop()

	var buffer []message.Message
	for {
		msg, err := a.invoke(ctx, mdl, append(history[:len(history):len(history)], buffer...), interp.Attempts())
		if err != nil {
			return attemptResult{}, err
		}
		buffer = append(buffer, msg)

		_, invalid := ExtractToolCalls(msg, a.registry)
		if len(invalid) == 0 {
			interp.Accept()
			return attemptResult{messages: buffer, attempts: interp.Attempts()}, nil
		}

		a.metrics.RecordRetry(ctx, invalid)
		if interp.Reject(invalid) == agent.StateFailed {
			logging.Error().
				Add(logging.Attempt(interp.Attempts())).
				Add(logging.InvalidNames(invalid)).
				Msg("step retries exhausted")
			return attemptResult{}, &agent.StepRetriesExhaustedError{
				Attempts:     interp.Attempts(),
				InvalidNames: interp.InvalidNames(),
			}
		}

		logging.Warn().
			Add(logging.Attempt(interp.Attempts())).
			Add(logging.InvalidNames(invalid)).
			Msg("model requested unknown functions, retrying")

		buffer = append(buffer, correctiveMessage(invalid, a.registry.Names()))
		interp.Reprompt()
	}
}

// invoke runs one model call and forces the returned role to model.
func (a *Agent) invoke(ctx context.Context, mdl model.Model, trajectory []message.Message, attempt int) (message.Message, error) {
	prompt := AssemblePrompt(a.systemInstruction, trajectory, a.registry)

	ctx, span := telemetry.StartSpan(ctx, "agent.model.invoke",
		telemetry.AttrProvider.String(mdl.Provider()),
		telemetry.AttrModel.String(mdl.ID()),
		telemetry.AttrAttempt.Int(attempt),
	)
	start := time.Now()
	msg, err := mdl.Invoke(ctx, prompt)
	duration := time.Since(start)
	a.metrics.RecordModelInvocation(ctx, mdl.Provider(), mdl.ID(), err == nil, duration)
	telemetry.EndSpan(span, err)

	if err != nil {
		logging.Error().
			Add(logging.Provider(mdl.Provider())).
			Add(logging.Model(mdl.ID())).
			Add(logging.Attempt(attempt)).
			Add(logging.ErrorField(err)).
			Msg("model invocation failed")
		return message.Message{}, model.NewInvocationError(mdl.Provider(), mdl.ID(), err)
	}

	logging.Debug().
		Add(logging.Provider(mdl.Provider())).
		Add(logging.Model(mdl.ID())).
		Add(logging.Attempt(attempt)).
		Add(logging.Duration(duration)).
		Msg("model invoked")

	msg = msg.Clone()
	msg.Role = message.RoleModel
	return msg, nil
}

// correctiveMessage tells the model which function names do not exist.
func correctiveMessage(invalid, available []string) message.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "The following functions are not available: %s.", strings.Join(invalid, ", "))
	if len(available) > 0 {
		fmt.Fprintf(&b, " Available functions: %s.", strings.Join(available, ", "))
	} else {
		b.WriteString(" No functions are available.")
	}
	b.WriteString(" Use only the declared functions and try again.")
	return message.NewUserText(b.String())
}
