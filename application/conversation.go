package application

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/agentstep/domain/agent"
	"github.com/felixgeelhaar/agentstep/domain/message"
	"github.com/felixgeelhaar/agentstep/domain/session"
	"github.com/felixgeelhaar/agentstep/infrastructure/logging"
	"github.com/felixgeelhaar/agentstep/infrastructure/storage/memory"
	"github.com/felixgeelhaar/agentstep/infrastructure/telemetry"
)

// DefaultMaxSteps bounds the steps of one user turn.
const DefaultMaxSteps = 10

// Conversation drives stored sessions: it loads a session's trajectory,
// adds the user's message and steps an agent until it is finished.
type Conversation struct {
	store    session.Store
	locker   session.Locker
	maxSteps int
	options  []Option
}

// ConversationConfig contains configuration for a conversation driver.
type ConversationConfig struct {
	Store    session.Store
	Locker   session.Locker
	MaxSteps int

	// AgentOptions are applied to the agent built for every turn.
	AgentOptions []Option
}

// Turn is the outcome of one user message.
type Turn struct {
	SessionID string
	Steps     []agent.StepResult

	// Reply is the text of the final model message.
	Reply string
}

// Messages returns every message the turn appended after the user message.
func (t *Turn) Messages() []message.Message {
	var msgs []message.Message
	for _, s := range t.Steps {
		msgs = append(msgs, s.NewMessages...)
	}
	return msgs
}

// NewConversation creates a conversation driver.
func NewConversation(config ConversationConfig) *Conversation {
	c := &Conversation{
		store:    config.Store,
		locker:   config.Locker,
		maxSteps: config.MaxSteps,
		options:  config.AgentOptions,
	}
	if c.store == nil {
		c.store = memory.NewSessionStore()
	}
	if c.locker == nil {
		c.locker = memory.NewLocker()
	}
	if c.maxSteps < 1 {
		c.maxSteps = DefaultMaxSteps
	}
	return c
}

// Send adds userText to the session and steps until the model produces a
// final answer. An empty sessionID starts a new session. Each step's
// messages are persisted as soon as the step succeeds.
func (c *Conversation) Send(ctx context.Context, sessionID, userText string) (*Turn, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	unlock, err := c.locker.Lock(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	ctx, span := telemetry.StartSpan(ctx, "agent.turn", telemetry.AttrSessionID.String(sessionID))
	turn, err := c.send(ctx, sessionID, userText)
	telemetry.EndSpan(span, err)
	return turn, err
}

func (c *Conversation) send(ctx context.Context, sessionID, userText string) (*Turn, error) {
	history, err := c.store.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	userMsg := message.NewUserText(userText)
	if err := c.store.Append(ctx, sessionID, userMsg); err != nil {
		return nil, fmt.Errorf("save user message: %w", err)
	}

	opts := append(append([]Option(nil), c.options...), WithTrajectory(append(history, userMsg)...))
	a, err := NewAgentWithOptions(opts...)
	if err != nil {
		return nil, err
	}

	logging.Info().
		Add(logging.SessionID(sessionID)).
		Add(logging.MessageCount(len(history) + 1)).
		Msg("turn started")

	turn := &Turn{SessionID: sessionID}
	for i := 0; i < c.maxSteps; i++ {
		result, err := a.Step(ctx)
		if err != nil {
			return turn, err
		}
		turn.Steps = append(turn.Steps, result)

		if err := c.store.Append(ctx, sessionID, result.NewMessages...); err != nil {
			return turn, fmt.Errorf("save step %d: %w", result.StepIndex, err)
		}

		if result.Finished {
			if n := len(result.NewMessages); n > 0 {
				turn.Reply = result.NewMessages[n-1].Text()
			}
			logging.Info().
				Add(logging.SessionID(sessionID)).
				Add(logging.StepIndex(result.StepIndex)).
				Msg("turn finished")
			return turn, nil
		}
	}

	logging.Warn().
		Add(logging.SessionID(sessionID)).
		Add(logging.StepIndex(c.maxSteps)).
		Msg("turn exceeded max steps")
	return turn, fmt.Errorf("%w: %d", agent.ErrMaxStepsExceeded, c.maxSteps)
}

// History returns the stored trajectory of a session.
func (c *Conversation) History(ctx context.Context, sessionID string) ([]message.Message, error) {
	return c.store.Load(ctx, sessionID)
}

// Reset deletes a session.
func (c *Conversation) Reset(ctx context.Context, sessionID string) error {
	return c.store.Delete(ctx, sessionID)
}
