package postgres

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/felixgeelhaar/agentstep/domain/message"
	"github.com/felixgeelhaar/agentstep/domain/session"
	"github.com/google/uuid"
)

func TestSessionStore_tableName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		schema   string
		expected string
	}{
		{"public", "public.session_messages"},
		{"agents", "agents.session_messages"},
		{"", "public.session_messages"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			t.Parallel()
			if got := NewSessionStore(nil, tt.schema).tableName(); got != tt.expected {
				t.Errorf("tableName() = %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestSessionStore_EmptySessionID(t *testing.T) {
	t.Parallel()

	s := NewSessionStore(nil, "")
	ctx := context.Background()

	if _, err := s.Load(ctx, ""); !errors.Is(err, session.ErrEmptySessionID) {
		t.Errorf("Load() error = %v", err)
	}
	if err := s.Append(ctx, "", message.NewUserText("x")); !errors.Is(err, session.ErrEmptySessionID) {
		t.Errorf("Append() error = %v", err)
	}
	if err := s.Delete(ctx, ""); !errors.Is(err, session.ErrEmptySessionID) {
		t.Errorf("Delete() error = %v", err)
	}
	if err := s.Append(ctx, "s1"); err != nil {
		t.Errorf("Append() with no messages error = %v", err)
	}
}

// TestSessionStore_Integration runs against a live server when
// AGENTSTEP_POSTGRES_DSN is set.
func TestSessionStore_Integration(t *testing.T) {
	dsn := os.Getenv("AGENTSTEP_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("AGENTSTEP_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	pool, err := Connect(ctx, NewConfig(WithDSN(dsn)))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	s := NewSessionStore(pool, "public")
	defer s.Close()

	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	id := uuid.NewString()
	defer func() { _ = s.Delete(ctx, id) }()

	if err := s.Append(ctx, id, message.NewUserText("hi"), message.NewModelText("hello")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := s.Append(ctx, id, message.NewUserText("again")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	msgs, err := s.Load(ctx, id)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(msgs) != 3 || msgs[1].Text() != "hello" || msgs[2].Text() != "again" {
		t.Errorf("Load() = %+v", msgs)
	}
}
