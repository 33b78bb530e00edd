package tool

import "errors"

// Domain errors for the tool system.
var (
	// ErrEmptyName indicates a tool was created with an empty name.
	ErrEmptyName = errors.New("tool name cannot be empty")

	// ErrNoHandler indicates a tool was created without a handler.
	ErrNoHandler = errors.New("tool has no handler")

	// ErrToolNotFound indicates the requested tool was not registered.
	ErrToolNotFound = errors.New("tool not found")

	// ErrInvalidInput indicates the input failed schema validation.
	ErrInvalidInput = errors.New("invalid tool input")

	// ErrPermissionDenied indicates a tool refused to run a call.
	ErrPermissionDenied = errors.New("tool permission denied")

	// ErrExecutionFailed indicates a tool handler returned an error.
	ErrExecutionFailed = errors.New("tool execution failed")
)
