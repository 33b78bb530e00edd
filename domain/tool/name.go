package tool

import (
	"encoding/json"
	"strings"
)

var nameReplacer = strings.NewReplacer("-", "_", "/", "_")

// SanitizeName maps a tool name onto the character set model vendors accept
// for function names. Every '-' and '/' becomes '_'. It is idempotent.
func SanitizeName(name string) string {
	return nameReplacer.Replace(name)
}

// Declaration is the vendor-neutral description of a tool sent to a model.
type Declaration struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// Declare builds the declaration for a tool under its sanitized name.
func Declare(t Tool) Declaration {
	return Declaration{
		Name:        SanitizeName(t.Name()),
		Description: t.Description(),
		Parameters:  t.InputSchema().Raw(),
	}
}
