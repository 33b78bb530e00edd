package provider

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/agentstep/domain/message"
)

// answeredCalls collects the ids of every function_response in msgs.
// Vendor APIs reject a function call that is never answered, which
// happens for rejected names and silently dropped tool failures.
func answeredCalls(msgs []message.Message) map[string]bool {
	answered := make(map[string]bool)
	for _, m := range msgs {
		for _, p := range m.Parts {
			if p.Kind == message.KindFunctionResponse && p.Response != nil && p.Response.ID != "" {
				answered[p.Response.ID] = true
			}
		}
	}
	return answered
}

// unansweredNote describes calls dropped from the wire so the model still
// sees what it asked for.
func unansweredNote(calls []message.FunctionCall) string {
	if len(calls) == 0 {
		return ""
	}
	names := make([]string, len(calls))
	for i, c := range calls {
		names[i] = c.Name
	}
	return fmt.Sprintf("(requested functions without a result: %s)", strings.Join(names, ", "))
}

// decodeArgs parses a JSON object of call arguments. Malformed input
// yields an empty map; input validation rejects it later.
func decodeArgs(raw []byte) map[string]any {
	args := map[string]any{}
	if len(raw) == 0 {
		return args
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return map[string]any{}
	}
	return args
}

// responseText renders a function response payload as a string.
func responseText(r *message.FunctionResponse) string {
	if len(r.Response) == 0 {
		return "null"
	}
	return string(r.Response)
}
