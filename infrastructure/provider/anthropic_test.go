package provider

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/felixgeelhaar/agentstep/domain/message"
	"github.com/felixgeelhaar/agentstep/domain/model"
)

func TestToAnthropicMessages_MergesTurns(t *testing.T) {
	t.Parallel()

	msgs := []message.Message{
		message.NewUserText("Show post 7"),
		message.NewModelMessage(
			message.CallPart("tu_1", "get_post", map[string]any{"id": 7}),
			message.CallPart("tu_2", "get_post", map[string]any{"id": 8}),
		),
		message.NewFunctionResponse("tu_1", "get_post", json.RawMessage(`{"id":7}`)),
		message.NewFunctionError("tu_2", "get_post", errors.New("not found")),
	}

	out := toAnthropicMessages(msgs)
	if len(out) != 3 {
		t.Fatalf("len = %d, want 3 (user, assistant, merged user)", len(out))
	}
	if out[1].Role != "assistant" || len(out[1].Content) != 2 {
		t.Errorf("assistant turn = %+v", out[1])
	}
	if out[2].Role != "user" || len(out[2].Content) != 2 {
		t.Errorf("merged tool results = %d blocks, want 2", len(out[2].Content))
	}
}

func TestToAnthropicMessages_DropsUnansweredCalls(t *testing.T) {
	t.Parallel()

	msgs := []message.Message{
		message.NewUserText("hi"),
		message.NewModelMessage(message.CallPart("tu_1", "unknown-tool", nil)),
		message.NewUserText("The function unknown-tool is not available."),
	}

	out := toAnthropicMessages(msgs)
	if len(out) != 3 {
		t.Fatalf("len = %d, want 3", len(out))
	}
	raw, _ := json.Marshal(out[1])
	if strings.Contains(string(raw), "tool_use") {
		t.Errorf("unanswered tool_use leaked to the wire: %s", raw)
	}
	if !strings.Contains(string(raw), "unknown-tool") {
		t.Errorf("assistant turn should mention the dropped call: %s", raw)
	}
}

func TestAnthropicModel_Invoke(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/v1/messages") {
			t.Errorf("Path = %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("x-api-key = %q", r.Header.Get("x-api-key"))
		}

		body, _ := io.ReadAll(r.Body)
		var req map[string]any
		_ = json.Unmarshal(body, &req)
		if req["model"] != "claude-test" {
			t.Errorf("model = %v", req["model"])
		}
		if tools, _ := req["tools"].([]any); len(tools) != 1 {
			t.Errorf("tools = %v", req["tools"])
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-test",
			"content": [
				{"type": "text", "text": "Let me check."},
				{"type": "tool_use", "id": "tu_9", "name": "get_post", "input": {"id": 9}}
			],
			"stop_reason": "tool_use",
			"usage": {"input_tokens": 12, "output_tokens": 7}
		}`))
	}))
	defer server.Close()

	m, err := NewAnthropicModel(AnthropicConfig{APIKey: "test-key", BaseURL: server.URL, Model: "claude-test"})
	if err != nil {
		t.Fatalf("NewAnthropicModel() error = %v", err)
	}

	got, err := m.Invoke(context.Background(), testPrompt())
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if got.Text() != "Let me check." {
		t.Errorf("Text() = %q", got.Text())
	}
	calls := got.FunctionCalls()
	if len(calls) != 1 || calls[0].ID != "tu_9" || calls[0].Arguments["id"] != float64(9) {
		t.Errorf("FunctionCalls() = %+v", calls)
	}
}

func TestAnthropicModel_InvokeError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"type": "error", "error": {"type": "invalid_request_error", "message": "bad"}}`))
	}))
	defer server.Close()

	m, _ := NewAnthropicModel(AnthropicConfig{APIKey: "k", BaseURL: server.URL, Model: "claude-test"})
	_, err := m.Invoke(context.Background(), model.Prompt{Messages: []message.Message{message.NewUserText("hi")}})
	if !errors.Is(err, model.ErrModelInvocation) {
		t.Errorf("Invoke() error = %v, want ErrModelInvocation", err)
	}
}
