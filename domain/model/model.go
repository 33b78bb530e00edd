// Package model defines the vendor-neutral boundary to language models.
package model

import (
	"context"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/agentstep/domain/message"
	"github.com/felixgeelhaar/agentstep/domain/tool"
)

// Prompt is everything a model sees for one invocation.
type Prompt struct {
	System   string
	Messages []message.Message
	Tools    []tool.Declaration
}

// Model is a resolved handle to one model of one provider.
type Model interface {
	// Provider returns the provider identifier.
	Provider() string

	// ID returns the model identifier.
	ID() string

	// Invoke sends the prompt and returns the model's message.
	Invoke(ctx context.Context, prompt Prompt) (message.Message, error)
}

// Gateway resolves provider and model identifiers to a Model.
type Gateway interface {
	Resolve(ctx context.Context, providerID, modelID string) (Model, error)
}

var (
	// ErrProviderUnavailable indicates the provider id is unknown or not configured.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrModelUnavailable indicates the provider does not offer the model.
	ErrModelUnavailable = errors.New("model unavailable")

	// ErrModelInvocation indicates a model call failed.
	ErrModelInvocation = errors.New("model invocation failed")
)

// InvocationError wraps a failure returned by a provider.
type InvocationError struct {
	Provider string
	Model    string
	Err      error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("%s: %s/%s: %v", ErrModelInvocation, e.Provider, e.Model, e.Err)
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}

// Is matches ErrModelInvocation.
func (e *InvocationError) Is(target error) bool {
	return target == ErrModelInvocation
}

// NewInvocationError wraps err, leaving existing invocation errors intact.
func NewInvocationError(provider, modelID string, err error) error {
	var inv *InvocationError
	if errors.As(err, &inv) {
		return err
	}
	return &InvocationError{Provider: provider, Model: modelID, Err: err}
}
