package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/agentstep/domain/message"
	"github.com/felixgeelhaar/agentstep/domain/model"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIConfig configures the OpenAI model handle.
type OpenAIConfig struct {
	APIKey    string
	BaseURL   string // default https://api.openai.com/v1
	Model     string
	MaxTokens int
}

// OpenAIModel invokes the OpenAI chat completions API.
type OpenAIModel struct {
	client    *openai.Client
	model     string
	maxTokens int
}

// NewOpenAIModel creates an OpenAI model handle.
func NewOpenAIModel(cfg OpenAIConfig) (*OpenAIModel, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: %s model id is empty", model.ErrModelUnavailable, OpenAI)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: %s api key is not configured", model.ErrProviderUnavailable, OpenAI)
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAIModel{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}, nil
}

// Provider returns "openai".
func (m *OpenAIModel) Provider() string { return OpenAI }

// ID returns the model id.
func (m *OpenAIModel) ID() string { return m.model }

// Invoke sends the prompt as one chat completion request.
func (m *OpenAIModel) Invoke(ctx context.Context, prompt model.Prompt) (message.Message, error) {
	req := openai.ChatCompletionRequest{
		Model:     m.model,
		Messages:  toOpenAIMessages(prompt),
		MaxTokens: m.maxTokens,
	}
	if len(prompt.Tools) > 0 {
		req.Tools = toOpenAITools(prompt)
	}

	resp, err := m.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return message.Message{}, model.NewInvocationError(OpenAI, m.model, err)
	}
	if len(resp.Choices) == 0 {
		return message.Message{}, model.NewInvocationError(OpenAI, m.model, errors.New("response has no choices"))
	}
	return fromOpenAIMessage(resp.Choices[0].Message), nil
}

func toOpenAIMessages(prompt model.Prompt) []openai.ChatCompletionMessage {
	answered := answeredCalls(prompt.Messages)
	out := make([]openai.ChatCompletionMessage, 0, len(prompt.Messages)+1)

	if prompt.System != "" {
		out = append(out, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: prompt.System,
		})
	}

	for _, msg := range prompt.Messages {
		switch msg.Role {
		case message.RoleModel:
			oai := openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: msg.Text(),
			}
			var dropped []message.FunctionCall
			for _, call := range msg.FunctionCalls() {
				if !answered[call.ID] {
					dropped = append(dropped, call)
					continue
				}
				oai.ToolCalls = append(oai.ToolCalls, openai.ToolCall{
					ID:   call.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      call.Name,
						Arguments: string(call.ArgumentsJSON()),
					},
				})
			}
			if note := unansweredNote(dropped); note != "" {
				oai.Content = joinText(oai.Content, note)
			}
			out = append(out, oai)

		case message.RoleSystem:
			out = append(out, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleSystem,
				Content: msg.Text(),
			})

		default:
			for _, p := range msg.Parts {
				if p.Kind == message.KindFunctionResponse && p.Response != nil {
					out = append(out, openai.ChatCompletionMessage{
						Role:       openai.ChatMessageRoleTool,
						ToolCallID: p.Response.ID,
						Name:       p.Response.Name,
						Content:    responseText(p.Response),
					})
				}
			}
			if text := msg.Text(); text != "" {
				out = append(out, openai.ChatCompletionMessage{
					Role:    openai.ChatMessageRoleUser,
					Content: text,
				})
			}
		}
	}
	return out
}

func toOpenAITools(prompt model.Prompt) []openai.Tool {
	tools := make([]openai.Tool, len(prompt.Tools))
	for i, decl := range prompt.Tools {
		tools[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        decl.Name,
				Description: decl.Description,
				Parameters:  decl.Parameters,
			},
		}
	}
	return tools
}

func fromOpenAIMessage(msg openai.ChatCompletionMessage) message.Message {
	var parts []message.Part
	if msg.Content != "" {
		parts = append(parts, message.TextPart(msg.Content))
	}
	for _, tc := range msg.ToolCalls {
		parts = append(parts, message.CallPart(tc.ID, tc.Function.Name, decodeArgs([]byte(tc.Function.Arguments))))
	}
	return message.NewModelMessage(parts...)
}

func joinText(a, b string) string {
	if a == "" {
		return b
	}
	return a + "\n" + b
}

var _ model.Model = (*OpenAIModel)(nil)
