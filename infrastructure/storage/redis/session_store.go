package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/agentstep/domain/message"
	"github.com/felixgeelhaar/agentstep/domain/session"
	"github.com/redis/go-redis/v9"
)

// SessionStore keeps each session as a Redis list of JSON-encoded
// messages.
type SessionStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewSessionStore connects to Redis and returns a store.
func NewSessionStore(ctx context.Context, cfg Config, opts ...ConfigOption) (*SessionStore, error) {
	client, cfg, err := NewClient(ctx, cfg, opts...)
	if err != nil {
		return nil, err
	}
	return NewSessionStoreFromClient(client, cfg.KeyPrefix, cfg.TTL), nil
}

// NewSessionStoreFromClient creates a store from an existing client.
func NewSessionStoreFromClient(client *redis.Client, keyPrefix string, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, keyPrefix: keyPrefix, ttl: ttl}
}

func (s *SessionStore) key(sessionID string) string {
	return s.keyPrefix + "session:" + sessionID
}

// Load returns the session's messages in order.
func (s *SessionStore) Load(ctx context.Context, sessionID string) ([]message.Message, error) {
	if sessionID == "" {
		return nil, session.ErrEmptySessionID
	}

	items, err := s.client.LRange(ctx, s.key(sessionID), 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, errors.Join(session.ErrStoreFailed, err)
	}

	msgs := make([]message.Message, 0, len(items))
	for _, item := range items {
		var m message.Message
		if err := json.Unmarshal([]byte(item), &m); err != nil {
			return nil, fmt.Errorf("decode message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// Append pushes messages onto the session list and refreshes its TTL.
func (s *SessionStore) Append(ctx context.Context, sessionID string, msgs ...message.Message) error {
	if sessionID == "" {
		return session.ErrEmptySessionID
	}
	if len(msgs) == 0 {
		return nil
	}

	values := make([]any, 0, len(msgs))
	for _, m := range msgs {
		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("encode message: %w", err)
		}
		values = append(values, data)
	}

	key := s.key(sessionID)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, values...)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return errors.Join(session.ErrStoreFailed, err)
	}
	return nil
}

// Delete removes the session.
func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return session.ErrEmptySessionID
	}
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return errors.Join(session.ErrStoreFailed, err)
	}
	return nil
}

// Close closes the underlying client.
func (s *SessionStore) Close() error {
	return s.client.Close()
}

var _ session.Store = (*SessionStore)(nil)
