package application

import (
	"encoding/json"
	"testing"

	"github.com/felixgeelhaar/agentstep/domain/message"
	"github.com/felixgeelhaar/agentstep/infrastructure/storage/memory"
)

func TestExtractToolCalls(t *testing.T) {
	t.Parallel()

	registry := memory.NewToolRegistry(newTestTool("create-post-draft"), newTestTool("wp/get-post"))

	tests := []struct {
		name           string
		msg            message.Message
		wantExecutable []string
		wantInvalid    []string
	}{
		{
			name: "no calls short-circuits",
			msg:  message.NewModelMessage(message.TextPart("hello"), message.ThinkingPart("hmm")),
		},
		{
			name:           "hyphenated name resolves",
			msg:            message.NewModelMessage(message.CallPart("1", "create-post-draft", nil)),
			wantExecutable: []string{"create_post_draft"},
		},
		{
			name:           "slash name resolves",
			msg:            message.NewModelMessage(message.CallPart("1", "wp/get-post", nil)),
			wantExecutable: []string{"wp_get_post"},
		},
		{
			name: "partitioned in order",
			msg: message.NewModelMessage(
				message.CallPart("1", "unknown-tool", nil),
				message.CallPart("2", "create_post_draft", nil),
				message.CallPart("3", "other/thing", nil),
			),
			wantExecutable: []string{"create_post_draft"},
			wantInvalid:    []string{"unknown-tool", "other/thing"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			executable, invalid := ExtractToolCalls(tt.msg, registry)
			if len(executable) != len(tt.wantExecutable) {
				t.Fatalf("executable = %+v, want %v", executable, tt.wantExecutable)
			}
			for i, call := range executable {
				if call.Name != tt.wantExecutable[i] {
					t.Errorf("executable[%d] = %q, want %q", i, call.Name, tt.wantExecutable[i])
				}
			}
			if len(invalid) != len(tt.wantInvalid) {
				t.Fatalf("invalid = %v, want %v", invalid, tt.wantInvalid)
			}
			for i, name := range invalid {
				if name != tt.wantInvalid[i] {
					t.Errorf("invalid[%d] = %q, want %q", i, name, tt.wantInvalid[i])
				}
			}
		})
	}
}

func TestExtractToolCalls_NoCallsIsNil(t *testing.T) {
	t.Parallel()

	executable, invalid := ExtractToolCalls(message.NewModelText("plain"), nil)
	if executable != nil || invalid != nil {
		t.Errorf("ExtractToolCalls() = %v, %v, want nil, nil", executable, invalid)
	}
}

func TestIsFinished(t *testing.T) {
	t.Parallel()

	response := message.NewFunctionResponse("c1", "create_post_draft", json.RawMessage(`{"id":1}`))

	tests := []struct {
		name string
		msgs []message.Message
		want bool
	}{
		{"empty", nil, true},
		{"function response last", []message.Message{response}, false},
		{"model text last", []message.Message{message.NewModelText("Done!")}, true},
		{"call then response", []message.Message{
			message.NewModelMessage(message.CallPart("c1", "create_post_draft", nil)),
			response,
		}, false},
		{"corrective last", []message.Message{message.NewUserText("try again")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := IsFinished(tt.msgs); got != tt.want {
				t.Errorf("IsFinished() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAssemblePrompt(t *testing.T) {
	t.Parallel()

	registry := memory.NewToolRegistry(newTestTool("get-post"), newTestTool("list-posts"))
	trajectory := []message.Message{message.NewUserText("hi")}

	prompt := AssemblePrompt("be brief", trajectory, registry)
	if prompt.System != "be brief" {
		t.Errorf("System = %q", prompt.System)
	}
	if len(prompt.Tools) != 2 || prompt.Tools[0].Name != "get_post" || prompt.Tools[1].Name != "list_posts" {
		t.Errorf("Tools = %+v", prompt.Tools)
	}
	if string(prompt.Tools[0].Parameters) == "" {
		t.Error("declaration should carry the input schema")
	}

	prompt.Messages[0].Parts[0].Text.Text = "changed"
	if trajectory[0].Text() != "hi" {
		t.Error("AssemblePrompt must not share message parts with the trajectory")
	}

	if empty := AssemblePrompt("", nil, nil); len(empty.Tools) != 0 || len(empty.Messages) != 0 {
		t.Errorf("AssemblePrompt(nil) = %+v", empty)
	}
}

func TestCorrectiveMessage(t *testing.T) {
	t.Parallel()

	msg := correctiveMessage([]string{"make-post"}, []string{"create_post_draft"})
	want := "The following functions are not available: make-post. Available functions: create_post_draft. Use only the declared functions and try again."
	if msg.Role != message.RoleUser || msg.Text() != want {
		t.Errorf("correctiveMessage() = %q (%s)", msg.Text(), msg.Role)
	}

	none := correctiveMessage([]string{"x"}, nil)
	if none.Text() != "The following functions are not available: x. No functions are available. Use only the declared functions and try again." {
		t.Errorf("correctiveMessage(no tools) = %q", none.Text())
	}
}
