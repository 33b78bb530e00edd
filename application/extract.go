package application

import (
	"github.com/felixgeelhaar/agentstep/domain/message"
	"github.com/felixgeelhaar/agentstep/domain/tool"
)

// ExtractToolCalls splits the function calls of msg into calls that name a
// registered tool and the names that do not resolve. Executable calls carry
// the sanitized name; invalid names keep the spelling the model used.
// A message without calls yields nil, nil.
func ExtractToolCalls(msg message.Message, registry tool.Registry) ([]message.FunctionCall, []string) {
	if !msg.HasFunctionCalls() {
		return nil, nil
	}

	var executable []message.FunctionCall
	var invalid []string
	for _, call := range msg.FunctionCalls() {
		if registry == nil || !registry.Has(call.Name) {
			invalid = append(invalid, call.Name)
			continue
		}
		call.Name = tool.SanitizeName(call.Name)
		executable = append(executable, call)
	}
	return executable, invalid
}
