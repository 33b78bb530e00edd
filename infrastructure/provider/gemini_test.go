package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/felixgeelhaar/agentstep/domain/message"
	"google.golang.org/genai"
)

func TestToGeminiContents(t *testing.T) {
	t.Parallel()

	contents := toGeminiContents(testPrompt().Messages)
	if len(contents) != 3 {
		t.Fatalf("len = %d, want 3", len(contents))
	}
	if contents[0].Role != genai.RoleUser || contents[1].Role != genai.RoleModel {
		t.Errorf("roles = %s, %s", contents[0].Role, contents[1].Role)
	}

	var calls, notes int
	for _, p := range contents[1].Parts {
		if p.FunctionCall != nil {
			calls++
		}
		if strings.Contains(p.Text, "fly_to_moon") {
			notes++
		}
	}
	if calls != 1 || notes != 1 {
		t.Errorf("model turn has %d calls and %d notes, want 1 and 1", calls, notes)
	}

	resp := contents[2].Parts[0].FunctionResponse
	if resp == nil || resp.Name != "get_post" || resp.ID != "call_1" {
		t.Fatalf("FunctionResponse = %+v", resp)
	}
	output, _ := resp.Response["output"].(map[string]any)
	if output["title"] != "Hello" {
		t.Errorf("Response = %+v", resp.Response)
	}
}

func TestGeminiResponsePayload(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   *message.FunctionResponse
		key  string
	}{
		{"object", &message.FunctionResponse{Response: json.RawMessage(`{"a":1}`)}, "output"},
		{"scalar", &message.FunctionResponse{Response: json.RawMessage(`42`)}, "output"},
		{"error", &message.FunctionResponse{Response: json.RawMessage(`{"error":"x"}`), Error: "x"}, "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, ok := geminiResponsePayload(tt.in)[tt.key]; !ok {
				t.Errorf("payload missing %q", tt.key)
			}
		})
	}
}

func TestToGeminiSchema(t *testing.T) {
	t.Parallel()

	var raw map[string]any
	_ = json.Unmarshal([]byte(`{
		"type": "object",
		"properties": {
			"title": {"type": "string", "description": "Post title"},
			"status": {"type": "string", "enum": ["draft", "publish"]},
			"tags": {"type": "array", "items": {"type": "string"}}
		},
		"required": ["title"]
	}`), &raw)

	schema := toGeminiSchema(raw)
	if schema.Type != genai.TypeObject {
		t.Errorf("Type = %s", schema.Type)
	}
	if schema.Properties["title"].Description != "Post title" {
		t.Errorf("title = %+v", schema.Properties["title"])
	}
	if len(schema.Properties["status"].Enum) != 2 {
		t.Errorf("enum = %v", schema.Properties["status"].Enum)
	}
	if schema.Properties["tags"].Items.Type != genai.TypeString {
		t.Errorf("items = %+v", schema.Properties["tags"].Items)
	}
	if len(schema.Required) != 1 || schema.Required[0] != "title" {
		t.Errorf("Required = %v", schema.Required)
	}
}

func TestFromGeminiContent(t *testing.T) {
	t.Parallel()

	got := fromGeminiContent(&genai.Content{
		Role: genai.RoleModel,
		Parts: []*genai.Part{
			{Text: "planning", Thought: true},
			{Text: "Here you go."},
			{FunctionCall: &genai.FunctionCall{Name: "list_posts"}},
		},
	})

	if got.Text() != "Here you go." {
		t.Errorf("Text() = %q, thinking must stay off the content channel", got.Text())
	}
	calls := got.FunctionCalls()
	if len(calls) != 1 || calls[0].Name != "list_posts" || calls[0].Arguments == nil {
		t.Errorf("FunctionCalls() = %+v", calls)
	}
}

func TestGeminiModel_Invoke(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "gemini-test:generateContent") {
			t.Errorf("Path = %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"candidates": [{
				"content": {"role": "model", "parts": [{"functionCall": {"name": "get_post", "args": {"id": 3}}}]},
				"finishReason": "STOP"
			}]
		}`))
	}))
	defer server.Close()

	m, err := NewGeminiModel(context.Background(), GeminiConfig{APIKey: "test-key", BaseURL: server.URL, Model: "gemini-test"})
	if err != nil {
		t.Fatalf("NewGeminiModel() error = %v", err)
	}

	got, err := m.Invoke(context.Background(), testPrompt())
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	calls := got.FunctionCalls()
	if len(calls) != 1 || calls[0].Name != "get_post" || calls[0].Arguments["id"] != float64(3) {
		t.Errorf("FunctionCalls() = %+v", calls)
	}
}
