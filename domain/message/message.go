// Package message provides the conversation model exchanged between the
// agent, the model and tools.
package message

import (
	"encoding/json"
	"strings"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser   Role = "user"
	RoleModel  Role = "model"
	RoleSystem Role = "system"
)

// ParseRole normalizes a role string. "assistant" is accepted as an alias
// for RoleModel.
func ParseRole(s string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user":
		return RoleUser, true
	case "model", "assistant":
		return RoleModel, true
	case "system":
		return RoleSystem, true
	default:
		return "", false
	}
}

// Message is one entry of a conversation.
type Message struct {
	Role  Role   `json:"role"`
	Parts []Part `json:"parts"`
}

// NewUserText creates a user message with a single text part.
func NewUserText(text string) Message {
	return Message{Role: RoleUser, Parts: []Part{TextPart(text)}}
}

// NewModelText creates a model message with a single text part.
func NewModelText(text string) Message {
	return Message{Role: RoleModel, Parts: []Part{TextPart(text)}}
}

// NewSystemText creates a system message with a single text part.
func NewSystemText(text string) Message {
	return Message{Role: RoleSystem, Parts: []Part{TextPart(text)}}
}

// NewModelMessage creates a model message from the given parts.
func NewModelMessage(parts ...Part) Message {
	return Message{Role: RoleModel, Parts: append([]Part(nil), parts...)}
}

// NewFunctionResponse creates the user-role message that carries a tool
// result back to the model.
func NewFunctionResponse(id, name string, payload json.RawMessage) Message {
	return Message{
		Role:  RoleUser,
		Parts: []Part{ResponsePart(id, name, payload)},
	}
}

// NewFunctionError creates a function response describing a failed call.
func NewFunctionError(id, name string, err error) Message {
	payload, _ := json.Marshal(map[string]string{"error": err.Error()})
	return Message{
		Role: RoleUser,
		Parts: []Part{{
			Kind: KindFunctionResponse,
			Response: &FunctionResponse{
				ID:       id,
				Name:     name,
				Response: payload,
				Error:    err.Error(),
			},
		}},
	}
}

// FunctionCalls returns the function_call parts in emission order.
func (m Message) FunctionCalls() []FunctionCall {
	var calls []FunctionCall
	for _, p := range m.Parts {
		if p.Kind == KindFunctionCall && p.Call != nil {
			calls = append(calls, *p.Call)
		}
	}
	return calls
}

// HasFunctionCalls reports whether the message requests any tool.
func (m Message) HasFunctionCalls() bool {
	for _, p := range m.Parts {
		if p.Kind == KindFunctionCall && p.Call != nil {
			return true
		}
	}
	return false
}

// IsFunctionResponse reports whether every part is a function response.
func (m Message) IsFunctionResponse() bool {
	if len(m.Parts) == 0 {
		return false
	}
	for _, p := range m.Parts {
		if p.Kind != KindFunctionResponse {
			return false
		}
	}
	return true
}

// Text concatenates the content-channel text parts.
func (m Message) Text() string {
	var b strings.Builder
	for _, p := range m.Parts {
		if p.Kind != KindText || p.Text == nil || p.Text.Channel != ChannelContent {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(p.Text.Text)
	}
	return b.String()
}

// Clone returns a deep copy so callers cannot mutate shared parts.
func (m Message) Clone() Message {
	out := Message{Role: m.Role, Parts: make([]Part, len(m.Parts))}
	for i, p := range m.Parts {
		out.Parts[i] = p.clone()
	}
	return out
}
