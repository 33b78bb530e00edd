package application

import (
	"github.com/felixgeelhaar/agentstep/domain/message"
	"github.com/felixgeelhaar/agentstep/domain/model"
	"github.com/felixgeelhaar/agentstep/domain/tool"
)

// AssemblePrompt builds the model input from the system instruction, the
// conversation so far and every registered tool. It has no side effects;
// retries within a step call it again with the grown trajectory.
func AssemblePrompt(system string, trajectory []message.Message, registry tool.Registry) model.Prompt {
	prompt := model.Prompt{
		System:   system,
		Messages: make([]message.Message, len(trajectory)),
	}
	for i, m := range trajectory {
		prompt.Messages[i] = m.Clone()
	}
	if registry == nil {
		return prompt
	}

	tools := registry.List()
	prompt.Tools = make([]tool.Declaration, 0, len(tools))
	for _, t := range tools {
		prompt.Tools = append(prompt.Tools, tool.Declare(t))
	}
	return prompt
}
