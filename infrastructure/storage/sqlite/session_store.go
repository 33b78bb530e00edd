package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/agentstep/domain/message"
	"github.com/felixgeelhaar/agentstep/domain/session"
)

// SessionStore is a SQLite-backed implementation of session.Store. Each
// message is one row ordered by a per-session sequence number.
type SessionStore struct {
	db *sql.DB
}

// NewSessionStore opens the database described by cfg.
func NewSessionStore(cfg Config, opts ...Option) (*SessionStore, error) {
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	s := &SessionStore{db: db}
	if cfg.AutoMigrate {
		if err := s.migrate(); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return s, nil
}

// NewSessionStoreFromDB creates a store on an existing connection.
func NewSessionStoreFromDB(db *sql.DB) (*SessionStore, error) {
	s := &SessionStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SessionStore) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS session_messages (
			session_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			role TEXT NOT NULL,
			data BLOB NOT NULL,
			created_at INTEGER NOT NULL,
			PRIMARY KEY (session_id, seq)
		);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return errors.Join(ErrMigrationFailed, err)
	}
	return nil
}

// Load returns the session's messages in order.
func (s *SessionStore) Load(ctx context.Context, sessionID string) ([]message.Message, error) {
	if sessionID == "" {
		return nil, session.ErrEmptySessionID
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM session_messages WHERE session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		return nil, errors.Join(session.ErrStoreFailed, err)
	}
	defer rows.Close()

	msgs := []message.Message{}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, errors.Join(session.ErrStoreFailed, err)
		}
		var m message.Message
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("decode message: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(session.ErrStoreFailed, err)
	}
	return msgs, nil
}

// Append adds messages to the session in a single transaction.
func (s *SessionStore) Append(ctx context.Context, sessionID string, msgs ...message.Message) error {
	if sessionID == "" {
		return session.ErrEmptySessionID
	}
	if len(msgs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Join(session.ErrStoreFailed, err)
	}
	defer func() { _ = tx.Rollback() }()

	var next int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq) + 1, 0) FROM session_messages WHERE session_id = ?`, sessionID,
	).Scan(&next); err != nil {
		return errors.Join(session.ErrStoreFailed, err)
	}

	now := time.Now().Unix()
	for i, m := range msgs {
		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("encode message: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO session_messages (session_id, seq, role, data, created_at) VALUES (?, ?, ?, ?, ?)`,
			sessionID, next+int64(i), string(m.Role), data, now,
		); err != nil {
			return errors.Join(session.ErrStoreFailed, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Join(session.ErrStoreFailed, err)
	}
	return nil
}

// Delete removes all messages of a session.
func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return session.ErrEmptySessionID
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session_messages WHERE session_id = ?`, sessionID); err != nil {
		return errors.Join(session.ErrStoreFailed, err)
	}
	return nil
}

// Close closes the database connection.
func (s *SessionStore) Close() error {
	return s.db.Close()
}
