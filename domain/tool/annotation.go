// Package tool provides the domain model for callable capabilities.
package tool

// RiskLevel indicates the potential impact of a tool execution.
type RiskLevel int

const (
	RiskNone   RiskLevel = iota // informational
	RiskLow                     // reversible changes
	RiskMedium                  // may need cleanup
	RiskHigh                    // difficult to reverse
)

// String returns the string representation of the risk level.
func (r RiskLevel) String() string {
	switch r {
	case RiskNone:
		return "none"
	case RiskLow:
		return "low"
	case RiskMedium:
		return "medium"
	case RiskHigh:
		return "high"
	default:
		return "unknown"
	}
}

// Annotations carry behavioral hints about a tool.
type Annotations struct {
	ReadOnly    bool      `json:"read_only"`
	Destructive bool      `json:"destructive"`
	Idempotent  bool      `json:"idempotent"`
	RiskLevel   RiskLevel `json:"risk_level"`
	Tags        []string  `json:"tags,omitempty"`
}

// DefaultAnnotations returns annotations for a tool with unknown side effects.
func DefaultAnnotations() Annotations {
	return Annotations{RiskLevel: RiskLow}
}

// CanRetry returns true if a failed execution may be repeated safely.
func (a Annotations) CanRetry() bool {
	return a.Idempotent || a.ReadOnly
}

// HasTag reports whether the tool carries the given tag.
func (a Annotations) HasTag(tag string) bool {
	for _, t := range a.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
