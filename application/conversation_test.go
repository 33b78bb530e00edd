package application

import (
	"context"
	"errors"
	"testing"

	"github.com/felixgeelhaar/agentstep/domain/agent"
	"github.com/felixgeelhaar/agentstep/domain/message"
	"github.com/felixgeelhaar/agentstep/domain/session"
	"github.com/felixgeelhaar/agentstep/infrastructure/provider"
	"github.com/felixgeelhaar/agentstep/infrastructure/storage/memory"
)

func newTestConversation(mdl *provider.ScriptedModel, store session.Store, maxSteps int) *Conversation {
	return NewConversation(ConversationConfig{
		Store:    store,
		MaxSteps: maxSteps,
		AgentOptions: []Option{
			WithRegistry(memory.NewToolRegistry(newTestTool("create-post-draft"))),
			WithModel(mdl),
		},
	})
}

func TestConversation_Send(t *testing.T) {
	t.Parallel()

	mdl := provider.NewScriptedModel(
		callMsg(message.CallPart("c1", "create-post-draft", map[string]any{"title": "Hello"})),
		textReply("Draft created."),
		textReply("You're welcome."),
	)
	store := memory.NewSessionStore()
	conv := newTestConversation(mdl, store, 0)
	ctx := context.Background()

	turn, err := conv.Send(ctx, "s1", "Create a draft post titled Hello")
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if turn.SessionID != "s1" || len(turn.Steps) != 2 {
		t.Fatalf("turn = %+v, want two steps in s1", turn)
	}
	if turn.Reply != "Draft created." {
		t.Errorf("Reply = %q", turn.Reply)
	}
	if len(turn.Messages()) != 3 {
		t.Errorf("Messages() = %d, want 3", len(turn.Messages()))
	}

	history, err := conv.History(ctx, "s1")
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 4 {
		t.Fatalf("history = %d messages, want 4", len(history))
	}

	// A second turn sees the stored history.
	if _, err := conv.Send(ctx, "s1", "thanks"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	prompts := mdl.Prompts()
	if got := len(prompts[2].Messages); got != 5 {
		t.Errorf("third prompt has %d messages, want 5", got)
	}

	if err := conv.Reset(ctx, "s1"); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if history, _ := conv.History(ctx, "s1"); len(history) != 0 {
		t.Errorf("history after Reset = %d messages", len(history))
	}
}

func TestConversation_NewSessionID(t *testing.T) {
	t.Parallel()

	conv := newTestConversation(provider.NewScriptedModel(textReply("hi")), nil, 0)
	turn, err := conv.Send(context.Background(), "", "hello")
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if turn.SessionID == "" {
		t.Error("expected a generated session id")
	}
}

func TestConversation_MaxSteps(t *testing.T) {
	t.Parallel()

	mdl := provider.NewScriptedModel(
		callMsg(message.CallPart("c1", "create_post_draft", nil)),
	).Repeating()
	store := memory.NewSessionStore()
	conv := newTestConversation(mdl, store, 2)

	turn, err := conv.Send(context.Background(), "s1", "loop forever")
	if !errors.Is(err, agent.ErrMaxStepsExceeded) {
		t.Fatalf("Send() error = %v, want ErrMaxStepsExceeded", err)
	}
	if len(turn.Steps) != 2 {
		t.Errorf("steps = %d, want 2", len(turn.Steps))
	}

	// Completed steps stay persisted.
	history, _ := store.Load(context.Background(), "s1")
	if len(history) != 5 {
		t.Errorf("history = %d messages, want 5", len(history))
	}
}

func TestConversation_StepFailureKeepsCompletedSteps(t *testing.T) {
	t.Parallel()

	mdl := provider.NewScriptedModel(
		callMsg(message.CallPart("c1", "create_post_draft", nil)),
		provider.Reply{Err: errors.New("upstream 503")},
	)
	store := memory.NewSessionStore()
	conv := newTestConversation(mdl, store, 0)

	_, err := conv.Send(context.Background(), "s1", "go")
	if err == nil {
		t.Fatal("expected error")
	}

	history, _ := store.Load(context.Background(), "s1")
	if len(history) != 3 {
		t.Errorf("history = %d messages, want user message and first step", len(history))
	}
}

type failingStore struct {
	*memory.SessionStore
}

func (failingStore) Load(context.Context, string) ([]message.Message, error) {
	return nil, session.ErrStoreFailed
}

func TestConversation_StoreError(t *testing.T) {
	t.Parallel()

	conv := newTestConversation(provider.NewScriptedModel(textReply("hi")), failingStore{memory.NewSessionStore()}, 0)
	if _, err := conv.Send(context.Background(), "s1", "hello"); !errors.Is(err, session.ErrStoreFailed) {
		t.Errorf("Send() error = %v, want ErrStoreFailed", err)
	}
}

func TestConversation_LockTimeout(t *testing.T) {
	t.Parallel()

	locker := memory.NewLocker()
	conv := NewConversation(ConversationConfig{
		Locker: locker,
		AgentOptions: []Option{
			WithRegistry(memory.NewToolRegistry()),
			WithModel(provider.NewScriptedModel(textReply("hi"))),
		},
	})

	unlock, err := locker.Lock(context.Background(), "busy")
	if err != nil {
		t.Fatal(err)
	}
	defer unlock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := conv.Send(ctx, "busy", "hello"); err == nil {
		t.Error("expected error while the session is locked")
	}
}
