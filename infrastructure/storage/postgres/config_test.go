package postgres

import (
	"errors"
	"testing"
)

func TestNewConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		opts       []ConfigOption
		wantConn   string
		wantSchema string
	}{
		{
			name:       "defaults",
			wantConn:   "host=localhost port=5432 dbname=agent user=postgres password= sslmode=disable",
			wantSchema: "public",
		},
		{
			name:       "dsn wins over discrete fields",
			opts:       []ConfigOption{WithDSN("postgres://agent:secret@db:5432/sessions")},
			wantConn:   "postgres://agent:secret@db:5432/sessions",
			wantSchema: "public",
		},
		{
			name:       "schema",
			opts:       []ConfigOption{WithSchema("agents")},
			wantConn:   "host=localhost port=5432 dbname=agent user=postgres password= sslmode=disable",
			wantSchema: "agents",
		},
		{
			name:       "last option wins",
			opts:       []ConfigOption{WithSchema("a"), WithDSN("postgres://x"), WithSchema("b")},
			wantConn:   "postgres://x",
			wantSchema: "b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := NewConfig(tt.opts...)
			if got := cfg.ConnectionString(); got != tt.wantConn {
				t.Errorf("ConnectionString() = %q, want %q", got, tt.wantConn)
			}
			if cfg.Schema != tt.wantSchema {
				t.Errorf("Schema = %q, want %q", cfg.Schema, tt.wantSchema)
			}
			if got := NewSessionStore(nil, cfg.Schema).tableName(); got != tt.wantSchema+".session_messages" {
				t.Errorf("tableName() = %q", got)
			}
		})
	}
}

func TestConnect_InvalidDSN(t *testing.T) {
	t.Parallel()

	_, err := Connect(t.Context(), NewConfig(WithDSN("postgres://agent@db:notaport/sessions")))
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}
