package tool

import (
	"encoding/json"
	"time"
)

// Result contains the output of a tool execution.
type Result struct {
	// Output is the JSON payload returned to the model.
	Output json.RawMessage `json:"output"`

	// Duration is how long the execution took.
	Duration time.Duration `json:"duration"`
}

// NewResult creates a result with the given output.
func NewResult(output json.RawMessage) Result {
	return Result{Output: output}
}

// JSONResult marshals v into a result. Values that cannot be marshaled
// produce an error.
func JSONResult(v any) (Result, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return Result{}, err
	}
	return Result{Output: raw}, nil
}

// Payload returns the output, substituting JSON null for an empty result.
func (r Result) Payload() json.RawMessage {
	if len(r.Output) == 0 {
		return json.RawMessage(`null`)
	}
	return r.Output
}
