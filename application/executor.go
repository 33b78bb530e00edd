package application

import (
	"context"
	"encoding/json"
	"time"

	"github.com/felixgeelhaar/agentstep/domain/agent"
	"github.com/felixgeelhaar/agentstep/domain/message"
	"github.com/felixgeelhaar/agentstep/domain/tool"
	"github.com/felixgeelhaar/agentstep/infrastructure/logging"
	"github.com/felixgeelhaar/agentstep/infrastructure/telemetry"
)

// ToolRunner executes a single tool. resilience.Executor satisfies it.
type ToolRunner interface {
	Execute(ctx context.Context, t tool.Tool, input json.RawMessage) (tool.Result, error)
}

// directRunner calls the tool with no bulkhead, timeout or breaker.
type directRunner struct{}

func (directRunner) Execute(ctx context.Context, t tool.Tool, input json.RawMessage) (tool.Result, error) {
	return t.Execute(ctx, input)
}

// CallOutcome is the result of one function call. Exactly one of Response
// and Err is set unless the report policy turned Err into a Response.
type CallOutcome struct {
	Call     message.FunctionCall
	Response *message.Message
	Err      error
}

// ExecuteCalls runs the calls in order. A denied or failing call never
// stops the calls after it.
func (a *Agent) ExecuteCalls(ctx context.Context, calls []message.FunctionCall) []CallOutcome {
	outcomes := make([]CallOutcome, 0, len(calls))
	for _, call := range calls {
		outcome := a.executeCall(ctx, call)
		if outcome.Err != nil && a.failurePolicy == agent.FailurePolicyReport {
			resp := message.NewFunctionError(call.ID, call.Name, outcome.Err)
			outcome.Response = &resp
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

func (a *Agent) executeCall(ctx context.Context, call message.FunctionCall) CallOutcome {
	t, ok := a.registry.Get(call.Name)
	if !ok {
		// The registry changed between extraction and execution.
		return CallOutcome{Call: call, Err: &agent.ToolError{
			Kind:   agent.ToolErrorExecution,
			Tool:   call.Name,
			CallID: call.ID,
			Err:    tool.ErrToolNotFound,
		}}
	}

	input := call.ArgumentsJSON()
	ctx, span := telemetry.StartSpan(ctx, "agent.tool.execute",
		telemetry.AttrToolName.String(call.Name),
		telemetry.AttrCallID.String(call.ID),
	)

	if perm := t.CheckPermission(ctx, input); !perm.Allowed {
		toolErr := &agent.ToolError{
			Kind:   agent.ToolErrorPermissionDenied,
			Tool:   call.Name,
			CallID: call.ID,
			Reason: perm.Reason,
		}
		telemetry.EndSpan(span, toolErr)
		a.metrics.RecordToolExecution(ctx, call.Name, telemetry.ToolOutcomeDenied, 0)
		logging.Warn().
			Add(logging.ToolName(call.Name)).
			Add(logging.CallID(call.ID)).
			Add(logging.Reason(perm.Reason)).
			Msg("tool call denied")
		return CallOutcome{Call: call, Err: toolErr}
	}

	start := time.Now()
	result, err := a.executor.Execute(ctx, t, input)
	duration := time.Since(start)
	if err != nil {
		toolErr := &agent.ToolError{
			Kind:   agent.ToolErrorExecution,
			Tool:   call.Name,
			CallID: call.ID,
			Err:    err,
		}
		telemetry.EndSpan(span, toolErr)
		a.metrics.RecordToolExecution(ctx, call.Name, telemetry.ToolOutcomeFailed, duration)
		logging.Error().
			Add(logging.ToolName(call.Name)).
			Add(logging.CallID(call.ID)).
			Add(logging.ErrorField(err)).
			Msg("tool execution failed")
		return CallOutcome{Call: call, Err: toolErr}
	}

	telemetry.EndSpan(span, nil)
	a.metrics.RecordToolExecution(ctx, call.Name, telemetry.ToolOutcomeSuccess, duration)
	logging.Debug().
		Add(logging.ToolName(call.Name)).
		Add(logging.CallID(call.ID)).
		Add(logging.Duration(duration)).
		Msg("tool executed")

	resp := message.NewFunctionResponse(call.ID, call.Name, result.Payload())
	return CallOutcome{Call: call, Response: &resp}
}

// responses collects the messages produced by the outcomes, in call order.
func responses(outcomes []CallOutcome) []message.Message {
	var msgs []message.Message
	for _, o := range outcomes {
		if o.Response != nil {
			msgs = append(msgs, *o.Response)
		}
	}
	return msgs
}
