package logging

import (
	"strings"
	"time"

	"github.com/felixgeelhaar/bolt/v3"
)

// Field is a function that applies structured data to a log event.
type Field func(*bolt.Event) *bolt.Event

// SessionID adds the conversation session.
func SessionID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("session_id", id)
	}
}

// StepIndex adds the agent step counter.
func StepIndex(i int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("step", i)
	}
}

// Attempt adds the model invocation attempt within a step.
func Attempt(n int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("attempt", n)
	}
}

// ToolName adds a tool name field.
func ToolName(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("tool", name)
	}
}

// CallID adds the function call identifier.
func CallID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		if id == "" {
			return e
		}
		return e.Str("call_id", id)
	}
}

// Provider adds the model provider.
func Provider(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("provider", id)
	}
}

// Model adds the model identifier.
func Model(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("model", id)
	}
}

// InvalidNames adds the unknown function names a model requested.
func InvalidNames(names []string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("invalid_names", strings.Join(names, ","))
	}
}

// MessageCount adds a message count.
func MessageCount(n int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("messages", n)
	}
}

// Finished adds whether a step ended the turn.
func Finished(done bool) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Bool("finished", done)
	}
}

// Duration adds a duration field in milliseconds.
func Duration(d time.Duration) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int64("duration_ms", d.Milliseconds())
	}
}

// ErrorField adds an error field.
func ErrorField(err error) Field {
	return func(e *bolt.Event) *bolt.Event {
		if err == nil {
			return e
		}
		return e.Err(err)
	}
}

// Reason adds a reason field.
func Reason(reason string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("reason", reason)
	}
}

// Component adds a component field for categorization.
func Component(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("component", name)
	}
}

// Str adds a string field with custom key.
func Str(key, value string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str(key, value)
	}
}
