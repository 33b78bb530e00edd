package tool

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Schema wraps a JSON Schema document used for tool arguments and results.
type Schema struct {
	raw      json.RawMessage
	compiled *jsonschema.Schema
}

var schemaCache sync.Map

// ParseSchema compiles raw JSON Schema. Compiled schemas are cached by
// their text.
func ParseSchema(raw json.RawMessage) (Schema, error) {
	s := Schema{raw: raw}
	if s.IsEmpty() {
		return s, nil
	}
	compiled, err := compileSchema(raw)
	if err != nil {
		return Schema{}, err
	}
	s.compiled = compiled
	return s, nil
}

// NewSchema creates a schema from raw JSON. A schema that fails to compile
// only checks that input is well-formed JSON.
func NewSchema(raw json.RawMessage) Schema {
	s, err := ParseSchema(raw)
	if err != nil {
		return Schema{raw: raw}
	}
	return s
}

// EmptySchema returns a schema that accepts any object.
func EmptySchema() Schema {
	return Schema{raw: json.RawMessage(`{"type":"object","properties":{}}`)}
}

func compileSchema(raw json.RawMessage) (*jsonschema.Schema, error) {
	key := string(raw)
	if cached, ok := schemaCache.Load(key); ok {
		if compiled, ok := cached.(*jsonschema.Schema); ok {
			return compiled, nil
		}
	}
	compiled, err := jsonschema.CompileString("tool.schema.json", key)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	schemaCache.Store(key, compiled)
	return compiled, nil
}

// Raw returns the underlying JSON schema.
func (s Schema) Raw() json.RawMessage {
	if len(s.raw) == 0 {
		return EmptySchema().raw
	}
	return s.raw
}

// IsEmpty returns true if the schema is empty or nil.
func (s Schema) IsEmpty() bool {
	return len(s.raw) == 0 || string(s.raw) == "{}" || string(s.raw) == "null"
}

// Validate checks data against the schema.
func (s Schema) Validate(data json.RawMessage) error {
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return fmt.Errorf("decode input: %w", err)
	}
	if s.compiled == nil {
		return nil
	}
	return s.compiled.Validate(decoded)
}

// MarshalJSON implements json.Marshaler.
func (s Schema) MarshalJSON() ([]byte, error) {
	return s.Raw(), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Schema) UnmarshalJSON(data []byte) error {
	parsed, err := ParseSchema(append(json.RawMessage(nil), data...))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
