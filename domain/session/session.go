// Package session defines persistence for conversation histories.
package session

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/agentstep/domain/message"
)

// Store persists the trajectory of each session.
type Store interface {
	// Load returns the messages of a session in order. Unknown sessions
	// return an empty slice.
	Load(ctx context.Context, sessionID string) ([]message.Message, error)

	// Append adds messages to the end of a session.
	Append(ctx context.Context, sessionID string, msgs ...message.Message) error

	// Delete removes a session.
	Delete(ctx context.Context, sessionID string) error
}

// Locker serializes work on a session.
type Locker interface {
	// Lock blocks until the session is held or ctx is done. The returned
	// function releases it.
	Lock(ctx context.Context, sessionID string) (unlock func(), err error)
}

var (
	// ErrEmptySessionID indicates an operation was given no session id.
	ErrEmptySessionID = errors.New("session id cannot be empty")

	// ErrLockTimeout indicates a session lock could not be acquired in time.
	ErrLockTimeout = errors.New("session lock timeout")

	// ErrStoreFailed indicates the backing store returned an error.
	ErrStoreFailed = errors.New("session store failed")
)
