package tool

import (
	"context"
	"encoding/json"
)

// Permission is the outcome of a tool's authorization check.
type Permission struct {
	Allowed bool
	Reason  string
}

// PermissionFunc decides whether a call with the given input may run.
type PermissionFunc func(ctx context.Context, input json.RawMessage) Permission

// Allow grants a call.
func Allow() Permission {
	return Permission{Allowed: true}
}

// Deny refuses a call with a reason suitable for logs.
func Deny(reason string) Permission {
	return Permission{Reason: reason}
}
