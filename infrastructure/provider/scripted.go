package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/felixgeelhaar/agentstep/domain/message"
	"github.com/felixgeelhaar/agentstep/domain/model"
)

// ErrScriptExhausted is returned when a ScriptedModel has no responses left.
var ErrScriptExhausted = errors.New("script exhausted")

// Reply is one scripted model response.
type Reply struct {
	Message message.Message
	Err     error
}

// ScriptedModel returns a predefined sequence of replies. It records every
// prompt it receives and is safe for concurrent use.
type ScriptedModel struct {
	id      string
	replies []Reply
	prompts []model.Prompt
	repeat  bool
	mu      sync.Mutex
}

// NewScriptedModel creates a model that answers with replies in order.
func NewScriptedModel(replies ...Reply) *ScriptedModel {
	return &ScriptedModel{id: "script", replies: replies}
}

// Repeating makes the model answer with its last reply once the script is
// exhausted.
func (m *ScriptedModel) Repeating() *ScriptedModel {
	m.repeat = true
	return m
}

// Provider returns "scripted".
func (m *ScriptedModel) Provider() string { return Scripted }

// ID returns the model id.
func (m *ScriptedModel) ID() string { return m.id }

// Invoke returns the next reply.
func (m *ScriptedModel) Invoke(ctx context.Context, prompt model.Prompt) (message.Message, error) {
	if err := ctx.Err(); err != nil {
		return message.Message{}, model.NewInvocationError(Scripted, m.id, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	index := len(m.prompts)
	m.prompts = append(m.prompts, prompt)

	if index >= len(m.replies) {
		if !m.repeat || len(m.replies) == 0 {
			return message.Message{}, model.NewInvocationError(Scripted, m.id, ErrScriptExhausted)
		}
		index = len(m.replies) - 1
	}

	reply := m.replies[index]
	if reply.Err != nil {
		return message.Message{}, model.NewInvocationError(Scripted, m.id, reply.Err)
	}
	return reply.Message.Clone(), nil
}

// Prompts returns the prompts received so far.
func (m *ScriptedModel) Prompts() []model.Prompt {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Prompt(nil), m.prompts...)
}

// Calls returns the number of invocations.
func (m *ScriptedModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// EchoModel is an offline model for demos and smoke tests. A user line of
// the form "/tool-name {json}" becomes a function call; a function
// response is summarised; anything else is echoed back.
type EchoModel struct{}

// Provider returns "scripted".
func (EchoModel) Provider() string { return Scripted }

// ID returns "echo".
func (EchoModel) ID() string { return "echo" }

// Invoke answers the last message of the prompt.
func (EchoModel) Invoke(ctx context.Context, prompt model.Prompt) (message.Message, error) {
	if err := ctx.Err(); err != nil {
		return message.Message{}, model.NewInvocationError(Scripted, "echo", err)
	}
	if len(prompt.Messages) == 0 {
		return message.NewModelText("Hello! How can I help?"), nil
	}

	last := prompt.Messages[len(prompt.Messages)-1]
	if last.IsFunctionResponse() {
		var lines []string
		for _, p := range last.Parts {
			if p.Response == nil {
				continue
			}
			if p.Response.Error != "" {
				lines = append(lines, fmt.Sprintf("%s failed: %s", p.Response.Name, p.Response.Error))
				continue
			}
			lines = append(lines, fmt.Sprintf("%s returned %s", p.Response.Name, p.Response.Response))
		}
		return message.NewModelText(strings.Join(lines, "\n")), nil
	}

	text := strings.TrimSpace(last.Text())
	if strings.HasPrefix(text, "/") {
		name, rest, _ := strings.Cut(text[1:], " ")
		args := map[string]any{}
		if rest = strings.TrimSpace(rest); rest != "" {
			if err := json.Unmarshal([]byte(rest), &args); err != nil {
				return message.NewModelText("I could not parse those arguments: " + err.Error()), nil
			}
		}
		return message.NewModelMessage(message.CallPart("", name, args)), nil
	}

	return message.NewModelText("You said: " + text), nil
}

func scriptedFactory(_ context.Context, modelID string) (model.Model, error) {
	if modelID != "echo" {
		return nil, fmt.Errorf("%w: %s/%s", model.ErrModelUnavailable, Scripted, modelID)
	}
	return EchoModel{}, nil
}

var (
	_ model.Model = (*ScriptedModel)(nil)
	_ model.Model = EchoModel{}
)
