package tool

import (
	"context"
	"encoding/json"
	"fmt"
)

// Tool is a capability the model may request by name.
//
// A tool owns its own authorization: CheckPermission is consulted before
// every Execute, and a denied call is never executed.
type Tool interface {
	// Name returns the identifier the tool was registered under.
	Name() string

	// Description returns the human-readable purpose shown to the model.
	Description() string

	// InputSchema returns the JSON Schema describing the tool's arguments.
	InputSchema() Schema

	// OutputSchema returns the JSON Schema describing the tool's result.
	OutputSchema() Schema

	// Annotations returns behavioral hints used by the executor.
	Annotations() Annotations

	// CheckPermission reports whether the given input may be executed.
	CheckPermission(ctx context.Context, input json.RawMessage) Permission

	// Execute runs the tool with the given input.
	Execute(ctx context.Context, input json.RawMessage) (Result, error)
}

// Handler is the function signature for tool execution.
type Handler func(ctx context.Context, input json.RawMessage) (Result, error)

// Definition is the default Tool implementation produced by Builder.
type Definition struct {
	name         string
	description  string
	inputSchema  Schema
	outputSchema Schema
	annotations  Annotations
	permission   PermissionFunc
	handler      Handler
}

func (d *Definition) Name() string { return d.name }
func (d *Definition) Description() string { return d.description }
func (d *Definition) InputSchema() Schema { return d.inputSchema }
func (d *Definition) OutputSchema() Schema { return d.outputSchema }
func (d *Definition) Annotations() Annotations { return d.annotations }

// CheckPermission evaluates the permission predicate. Tools without one
// allow every call.
func (d *Definition) CheckPermission(ctx context.Context, input json.RawMessage) Permission {
	if d.permission == nil {
		return Allow()
	}
	return d.permission(ctx, input)
}

// Execute validates input against the input schema and runs the handler.
func (d *Definition) Execute(ctx context.Context, input json.RawMessage) (Result, error) {
	if d.handler == nil {
		return Result{}, ErrNoHandler
	}
	if len(input) == 0 {
		input = json.RawMessage(`{}`)
	}
	if err := d.inputSchema.Validate(input); err != nil {
		return Result{}, fmt.Errorf("%w: %s: %v", ErrInvalidInput, d.name, err)
	}
	return d.handler(ctx, input)
}

// Builder provides a fluent API for constructing tools.
type Builder struct {
	def *Definition
	err error
}

// NewBuilder creates a new tool builder with the given name.
func NewBuilder(name string) *Builder {
	return &Builder{
		def: &Definition{
			name:         name,
			inputSchema:  EmptySchema(),
			outputSchema: EmptySchema(),
			annotations:  DefaultAnnotations(),
		},
	}
}

// WithDescription sets the tool description.
func (b *Builder) WithDescription(desc string) *Builder {
	if b.err != nil {
		return b
	}
	b.def.description = desc
	return b
}

// WithInputSchema sets the input schema from raw JSON. Invalid schemas are
// reported by Build.
func (b *Builder) WithInputSchema(raw string) *Builder {
	if b.err != nil {
		return b
	}
	schema, err := ParseSchema(json.RawMessage(raw))
	if err != nil {
		b.err = fmt.Errorf("input schema for %q: %w", b.def.name, err)
		return b
	}
	b.def.inputSchema = schema
	return b
}

// WithSchema sets an already constructed input schema.
func (b *Builder) WithSchema(schema Schema) *Builder {
	if b.err != nil {
		return b
	}
	b.def.inputSchema = schema
	return b
}

// WithOutputSchema sets the output schema.
func (b *Builder) WithOutputSchema(schema Schema) *Builder {
	if b.err != nil {
		return b
	}
	b.def.outputSchema = schema
	return b
}

// ReadOnly marks the tool as free of side effects.
func (b *Builder) ReadOnly() *Builder {
	if b.err != nil {
		return b
	}
	b.def.annotations.ReadOnly = true
	b.def.annotations.RiskLevel = RiskNone
	return b
}

// Destructive marks the tool as making hard-to-reverse changes.
func (b *Builder) Destructive() *Builder {
	if b.err != nil {
		return b
	}
	b.def.annotations.Destructive = true
	if b.def.annotations.RiskLevel < RiskHigh {
		b.def.annotations.RiskLevel = RiskHigh
	}
	return b
}

// Idempotent marks the tool as safe to retry.
func (b *Builder) Idempotent() *Builder {
	if b.err != nil {
		return b
	}
	b.def.annotations.Idempotent = true
	return b
}

// WithPermission sets the permission predicate.
func (b *Builder) WithPermission(fn PermissionFunc) *Builder {
	if b.err != nil {
		return b
	}
	b.def.permission = fn
	return b
}

// WithHandler sets the tool handler function.
func (b *Builder) WithHandler(handler Handler) *Builder {
	if b.err != nil {
		return b
	}
	b.def.handler = handler
	return b
}

// WithTags adds tags to the tool.
func (b *Builder) WithTags(tags ...string) *Builder {
	if b.err != nil {
		return b
	}
	b.def.annotations.Tags = append(b.def.annotations.Tags, tags...)
	return b
}

// Build constructs the tool definition.
func (b *Builder) Build() (Tool, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.def.name == "" {
		return nil, ErrEmptyName
	}
	return b.def, nil
}

// MustBuild constructs the tool definition or panics on error.
func (b *Builder) MustBuild() Tool {
	t, err := b.Build()
	if err != nil {
		panic(err)
	}
	return t
}
