package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/agentstep/domain/message"
	"github.com/felixgeelhaar/agentstep/domain/session"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionStore is a PostgreSQL-backed implementation of session.Store.
type SessionStore struct {
	pool   *pgxpool.Pool
	schema string
}

// NewSessionStore creates a session store on an existing pool.
func NewSessionStore(pool *pgxpool.Pool, schema string) *SessionStore {
	if schema == "" {
		schema = "public"
	}
	return &SessionStore{pool: pool, schema: schema}
}

func (s *SessionStore) tableName() string {
	return fmt.Sprintf("%s.session_messages", s.schema)
}

// Migrate creates the session table if it does not exist.
func (s *SessionStore) Migrate(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			session_id TEXT NOT NULL,
			seq BIGINT NOT NULL,
			role TEXT NOT NULL,
			data JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (session_id, seq)
		)
	`, s.tableName())

	if _, err := s.pool.Exec(ctx, query); err != nil {
		return errors.Join(ErrMigrationFailed, err)
	}
	return nil
}

// Load returns the session's messages in order.
func (s *SessionStore) Load(ctx context.Context, sessionID string) ([]message.Message, error) {
	if sessionID == "" {
		return nil, session.ErrEmptySessionID
	}

	query := fmt.Sprintf(`SELECT data FROM %s WHERE session_id = $1 ORDER BY seq`, s.tableName())
	rows, err := s.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, s.wrapError(err)
	}
	defer rows.Close()

	msgs := []message.Message{}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, s.wrapError(err)
		}
		var m message.Message
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("decode message: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrapError(err)
	}
	return msgs, nil
}

// Append adds messages to the session in one transaction.
func (s *SessionStore) Append(ctx context.Context, sessionID string, msgs ...message.Message) error {
	if sessionID == "" {
		return session.ErrEmptySessionID
	}
	if len(msgs) == 0 {
		return nil
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var next int64
		seqQuery := fmt.Sprintf(`SELECT COALESCE(MAX(seq) + 1, 0) FROM %s WHERE session_id = $1`, s.tableName())
		if err := tx.QueryRow(ctx, seqQuery, sessionID).Scan(&next); err != nil {
			return s.wrapError(err)
		}

		batch := &pgx.Batch{}
		insert := fmt.Sprintf(`INSERT INTO %s (session_id, seq, role, data) VALUES ($1, $2, $3, $4)`, s.tableName())
		for i, m := range msgs {
			data, err := json.Marshal(m)
			if err != nil {
				return fmt.Errorf("encode message: %w", err)
			}
			batch.Queue(insert, sessionID, next+int64(i), string(m.Role), data)
		}

		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return s.wrapError(err)
		}
		return nil
	})
}

// Delete removes all messages of a session.
func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return session.ErrEmptySessionID
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE session_id = $1`, s.tableName())
	if _, err := s.pool.Exec(ctx, query, sessionID); err != nil {
		return s.wrapError(err)
	}
	return nil
}

// Close releases the pool.
func (s *SessionStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *SessionStore) wrapError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	return errors.Join(session.ErrStoreFailed, err)
}

var _ session.Store = (*SessionStore)(nil)
