package message

import (
	"encoding/json"
	"maps"
)

// Kind discriminates the variants of Part.
type Kind string

const (
	KindText             Kind = "text"
	KindFunctionCall     Kind = "function_call"
	KindFunctionResponse Kind = "function_response"
)

// Text channels. Only ChannelContent is user-visible answer text.
const (
	ChannelContent  = "content"
	ChannelThinking = "thinking"
)

// Part is a tagged union. Exactly one of Text, Call or Response is set,
// matching Kind.
type Part struct {
	Kind     Kind              `json:"kind"`
	Text     *Text             `json:"text,omitempty"`
	Call     *FunctionCall     `json:"function_call,omitempty"`
	Response *FunctionResponse `json:"function_response,omitempty"`
}

// Text is free-form text on a channel.
type Text struct {
	Text    string `json:"text"`
	Channel string `json:"channel"`
}

// FunctionCall is a model's request to invoke a tool.
type FunctionCall struct {
	ID        string         `json:"id,omitempty"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ArgumentsJSON encodes the arguments, using {} for none.
func (c FunctionCall) ArgumentsJSON() json.RawMessage {
	if len(c.Arguments) == 0 {
		return json.RawMessage(`{}`)
	}
	raw, err := json.Marshal(c.Arguments)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return raw
}

// FunctionResponse is the result of executing a FunctionCall.
type FunctionResponse struct {
	ID       string          `json:"id,omitempty"`
	Name     string          `json:"name"`
	Response json.RawMessage `json:"response"`
	Error    string          `json:"error,omitempty"`
}

// TextPart creates a content-channel text part.
func TextPart(text string) Part {
	return Part{Kind: KindText, Text: &Text{Text: text, Channel: ChannelContent}}
}

// ThinkingPart creates a text part on the thinking channel.
func ThinkingPart(text string) Part {
	return Part{Kind: KindText, Text: &Text{Text: text, Channel: ChannelThinking}}
}

// CallPart creates a function_call part.
func CallPart(id, name string, args map[string]any) Part {
	return Part{Kind: KindFunctionCall, Call: &FunctionCall{ID: id, Name: name, Arguments: args}}
}

// ResponsePart creates a function_response part.
func ResponsePart(id, name string, payload json.RawMessage) Part {
	return Part{Kind: KindFunctionResponse, Response: &FunctionResponse{ID: id, Name: name, Response: payload}}
}

func (p Part) clone() Part {
	out := Part{Kind: p.Kind}
	if p.Text != nil {
		t := *p.Text
		out.Text = &t
	}
	if p.Call != nil {
		c := *p.Call
		c.Arguments = maps.Clone(p.Call.Arguments)
		out.Call = &c
	}
	if p.Response != nil {
		r := *p.Response
		r.Response = append(json.RawMessage(nil), p.Response.Response...)
		out.Response = &r
	}
	return out
}
