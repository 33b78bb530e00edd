package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/felixgeelhaar/agentstep/domain/message"
	"github.com/felixgeelhaar/agentstep/domain/model"
	"google.golang.org/genai"
)

// GeminiConfig configures the Gemini model handle.
type GeminiConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
}

// GeminiModel invokes the Gemini API through the Google Gen AI SDK.
type GeminiModel struct {
	client    *genai.Client
	model     string
	maxTokens int
}

// NewGeminiModel creates a Gemini model handle.
func NewGeminiModel(ctx context.Context, cfg GeminiConfig) (*GeminiModel, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: %s model id is empty", model.ErrModelUnavailable, Gemini)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: %s api key is not configured", model.ErrProviderUnavailable, Gemini)
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", model.ErrProviderUnavailable, Gemini, err)
	}

	return &GeminiModel{client: client, model: cfg.Model, maxTokens: cfg.MaxTokens}, nil
}

// Provider returns "gemini".
func (m *GeminiModel) Provider() string { return Gemini }

// ID returns the model id.
func (m *GeminiModel) ID() string { return m.model }

// Invoke sends the prompt as one GenerateContent request.
func (m *GeminiModel) Invoke(ctx context.Context, prompt model.Prompt) (message.Message, error) {
	cfg := &genai.GenerateContentConfig{}
	if prompt.System != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: prompt.System}}}
	}
	if m.maxTokens > 0 {
		// #nosec G115 -- bounded by min
		cfg.MaxOutputTokens = int32(min(m.maxTokens, math.MaxInt32))
	}
	cfg.Tools = toGeminiTools(prompt)

	resp, err := m.client.Models.GenerateContent(ctx, m.model, toGeminiContents(prompt.Messages), cfg)
	if err != nil {
		return message.Message{}, model.NewInvocationError(Gemini, m.model, err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return message.Message{}, model.NewInvocationError(Gemini, m.model, fmt.Errorf("response has no candidates"))
	}
	return fromGeminiContent(resp.Candidates[0].Content), nil
}

func toGeminiContents(msgs []message.Message) []*genai.Content {
	answered := answeredCalls(msgs)
	out := make([]*genai.Content, 0, len(msgs))

	for _, msg := range msgs {
		if msg.Role == message.RoleSystem {
			continue
		}
		content := &genai.Content{Role: genai.RoleUser}
		if msg.Role == message.RoleModel {
			content.Role = genai.RoleModel
		}

		var dropped []message.FunctionCall
		for _, p := range msg.Parts {
			switch p.Kind {
			case message.KindText:
				if p.Text != nil && p.Text.Channel == message.ChannelContent && p.Text.Text != "" {
					content.Parts = append(content.Parts, &genai.Part{Text: p.Text.Text})
				}
			case message.KindFunctionCall:
				if p.Call == nil {
					continue
				}
				if !answered[p.Call.ID] {
					dropped = append(dropped, *p.Call)
					continue
				}
				content.Parts = append(content.Parts, &genai.Part{FunctionCall: &genai.FunctionCall{
					ID:   p.Call.ID,
					Name: p.Call.Name,
					Args: p.Call.Arguments,
				}})
			case message.KindFunctionResponse:
				if p.Response != nil {
					content.Parts = append(content.Parts, &genai.Part{FunctionResponse: &genai.FunctionResponse{
						ID:       p.Response.ID,
						Name:     p.Response.Name,
						Response: geminiResponsePayload(p.Response),
					}})
				}
			}
		}
		if note := unansweredNote(dropped); note != "" {
			content.Parts = append(content.Parts, &genai.Part{Text: note})
		}
		if len(content.Parts) > 0 {
			out = append(out, content)
		}
	}
	return out
}

// geminiResponsePayload shapes a response as the object Gemini expects:
// {"output": ...} on success, {"error": ...} on failure.
func geminiResponsePayload(r *message.FunctionResponse) map[string]any {
	if r.Error != "" {
		return map[string]any{"error": r.Error}
	}
	var v any
	if err := json.Unmarshal(r.Response, &v); err != nil {
		return map[string]any{"output": string(r.Response)}
	}
	return map[string]any{"output": v}
}

func toGeminiTools(prompt model.Prompt) []*genai.Tool {
	if len(prompt.Tools) == 0 {
		return nil
	}

	decls := make([]*genai.FunctionDeclaration, 0, len(prompt.Tools))
	for _, decl := range prompt.Tools {
		var schema map[string]any
		if err := json.Unmarshal(decl.Parameters, &schema); err != nil {
			continue
		}
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        decl.Name,
			Description: decl.Description,
			Parameters:  toGeminiSchema(schema),
		})
	}
	if len(decls) == 0 {
		return nil
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

func toGeminiSchema(m map[string]any) *genai.Schema {
	if m == nil {
		return nil
	}

	schema := &genai.Schema{}
	if t, ok := m["type"].(string); ok {
		schema.Type = genai.Type(strings.ToUpper(t))
	}
	if desc, ok := m["description"].(string); ok {
		schema.Description = desc
	}
	if enum, ok := m["enum"].([]any); ok {
		for _, e := range enum {
			if s, ok := e.(string); ok {
				schema.Enum = append(schema.Enum, s)
			}
		}
	}
	if props, ok := m["properties"].(map[string]any); ok {
		schema.Properties = make(map[string]*genai.Schema, len(props))
		for name, prop := range props {
			if pm, ok := prop.(map[string]any); ok {
				schema.Properties[name] = toGeminiSchema(pm)
			}
		}
	}
	if required, ok := m["required"].([]any); ok {
		for _, r := range required {
			if s, ok := r.(string); ok {
				schema.Required = append(schema.Required, s)
			}
		}
	}
	if items, ok := m["items"].(map[string]any); ok {
		schema.Items = toGeminiSchema(items)
	}
	return schema
}

func fromGeminiContent(content *genai.Content) message.Message {
	var parts []message.Part
	for _, p := range content.Parts {
		if p == nil {
			continue
		}
		switch {
		case p.FunctionCall != nil:
			args := p.FunctionCall.Args
			if args == nil {
				args = map[string]any{}
			}
			parts = append(parts, message.CallPart(p.FunctionCall.ID, p.FunctionCall.Name, args))
		case p.Thought && p.Text != "":
			parts = append(parts, message.ThinkingPart(p.Text))
		case p.Text != "":
			parts = append(parts, message.TextPart(p.Text))
		}
	}
	return message.NewModelMessage(parts...)
}

var _ model.Model = (*GeminiModel)(nil)
