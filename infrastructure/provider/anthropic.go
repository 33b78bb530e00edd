package provider

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/felixgeelhaar/agentstep/domain/message"
	"github.com/felixgeelhaar/agentstep/domain/model"
)

// AnthropicConfig configures the Anthropic model handle.
type AnthropicConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	// MaxRetries overrides the SDK's transport retry count when positive.
	MaxRetries int
}

// AnthropicModel invokes the Anthropic Messages API.
type AnthropicModel struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropicModel creates an Anthropic model handle.
func NewAnthropicModel(cfg AnthropicConfig) (*AnthropicModel, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: %s model id is empty", model.ErrModelUnavailable, Anthropic)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: %s api key is not configured", model.ErrProviderUnavailable, Anthropic)
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.MaxRetries > 0 {
		opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))
	}

	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	return &AnthropicModel{
		client:    anthropic.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: maxTokens,
	}, nil
}

// Provider returns "anthropic".
func (m *AnthropicModel) Provider() string { return Anthropic }

// ID returns the model id.
func (m *AnthropicModel) ID() string { return m.model }

// Invoke sends the prompt as one Messages request.
func (m *AnthropicModel) Invoke(ctx context.Context, prompt model.Prompt) (message.Message, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(m.model),
		MaxTokens: m.maxTokens,
		Messages:  toAnthropicMessages(prompt.Messages),
	}
	if prompt.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: prompt.System}}
	}
	if len(prompt.Tools) > 0 {
		tools, err := toAnthropicTools(prompt)
		if err != nil {
			return message.Message{}, model.NewInvocationError(Anthropic, m.model, err)
		}
		params.Tools = tools
	}

	resp, err := m.client.Messages.New(ctx, params)
	if err != nil {
		return message.Message{}, model.NewInvocationError(Anthropic, m.model, err)
	}
	return fromAnthropicContent(resp.Content), nil
}

// toAnthropicMessages converts the trajectory, merging consecutive
// messages of the same role into one turn.
func toAnthropicMessages(msgs []message.Message) []anthropic.MessageParam {
	answered := answeredCalls(msgs)

	var out []anthropic.MessageParam
	var blocks []anthropic.ContentBlockParamUnion
	var role message.Role

	flush := func() {
		if len(blocks) == 0 {
			return
		}
		if role == message.RoleModel {
			out = append(out, anthropic.NewAssistantMessage(blocks...))
		} else {
			out = append(out, anthropic.NewUserMessage(blocks...))
		}
		blocks = nil
	}

	for _, msg := range msgs {
		if msg.Role == message.RoleSystem {
			continue
		}
		r := msg.Role
		if r != message.RoleModel {
			r = message.RoleUser
		}
		if r != role {
			flush()
			role = r
		}

		var dropped []message.FunctionCall
		for _, p := range msg.Parts {
			switch p.Kind {
			case message.KindText:
				if p.Text != nil && p.Text.Channel == message.ChannelContent && p.Text.Text != "" {
					blocks = append(blocks, anthropic.NewTextBlock(p.Text.Text))
				}
			case message.KindFunctionCall:
				if p.Call == nil {
					continue
				}
				if !answered[p.Call.ID] {
					dropped = append(dropped, *p.Call)
					continue
				}
				args := p.Call.Arguments
				if args == nil {
					args = map[string]any{}
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(p.Call.ID, args, p.Call.Name))
			case message.KindFunctionResponse:
				if p.Response != nil {
					blocks = append(blocks, anthropic.NewToolResultBlock(p.Response.ID, responseText(p.Response), p.Response.Error != ""))
				}
			}
		}
		if note := unansweredNote(dropped); note != "" {
			blocks = append(blocks, anthropic.NewTextBlock(note))
		}
	}
	flush()
	return out
}

func toAnthropicTools(prompt model.Prompt) ([]anthropic.ToolUnionParam, error) {
	tools := make([]anthropic.ToolUnionParam, 0, len(prompt.Tools))
	for _, decl := range prompt.Tools {
		var schema anthropic.ToolInputSchemaParam
		if err := json.Unmarshal(decl.Parameters, &schema); err != nil {
			return nil, fmt.Errorf("invalid tool schema for %s: %w", decl.Name, err)
		}

		param := anthropic.ToolUnionParamOfTool(schema, decl.Name)
		if param.OfTool == nil {
			return nil, fmt.Errorf("invalid tool schema for %s: missing tool definition", decl.Name)
		}
		param.OfTool.Description = anthropic.String(decl.Description)
		tools = append(tools, param)
	}
	return tools, nil
}

func fromAnthropicContent(content []anthropic.ContentBlockUnion) message.Message {
	var parts []message.Part
	for _, block := range content {
		switch block.Type {
		case "text":
			parts = append(parts, message.TextPart(block.Text))
		case "thinking":
			parts = append(parts, message.ThinkingPart(block.Thinking))
		case "tool_use":
			parts = append(parts, message.CallPart(block.ID, block.Name, decodeArgs(block.Input)))
		}
	}
	return message.NewModelMessage(parts...)
}

var _ model.Model = (*AnthropicModel)(nil)
