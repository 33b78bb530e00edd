package config

import (
	"encoding/json"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestDuration_JSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    time.Duration
		wantErr bool
	}{
		{input: `"30s"`, want: 30 * time.Second},
		{input: `"1m30s"`, want: 90 * time.Second},
		{input: `"250ms"`, want: 250 * time.Millisecond},
		{input: `null`, want: 0},
		{input: `"soon"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			var d Duration
			err := json.Unmarshal([]byte(tt.input), &d)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal(%s) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && d.Duration() != tt.want {
				t.Errorf("Unmarshal(%s) = %v, want %v", tt.input, d.Duration(), tt.want)
			}
		})
	}

	raw, err := json.Marshal(Duration(2 * time.Minute))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(raw) != `"2m0s"` {
		t.Errorf("Marshal() = %s, want \"2m0s\"", raw)
	}
}

func TestDuration_YAML(t *testing.T) {
	t.Parallel()

	var s struct {
		Timeout Duration `yaml:"timeout"`
	}
	if err := yaml.Unmarshal([]byte("timeout: 45s\n"), &s); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if s.Timeout.Duration() != 45*time.Second {
		t.Errorf("Timeout = %v, want 45s", s.Timeout.Duration())
	}

	if err := yaml.Unmarshal([]byte("timeout: later\n"), &s); err == nil {
		t.Error("expected error for invalid duration")
	}

	out, err := yaml.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(out) != "timeout: 45s\n" {
		t.Errorf("Marshal() = %q", out)
	}
}

func TestApplyDefaults(t *testing.T) {
	t.Parallel()

	cfg := &AgentConfig{
		Name:    "blog",
		Version: "1",
		Agent:   AgentSettings{MaxStepRetries: 5},
	}
	cfg.ApplyDefaults()

	if cfg.Agent.MaxStepRetries != 5 {
		t.Errorf("MaxStepRetries = %d, want explicit 5 kept", cfg.Agent.MaxStepRetries)
	}
	if cfg.Agent.MaxSteps != 10 {
		t.Errorf("MaxSteps = %d, want 10", cfg.Agent.MaxSteps)
	}
	if cfg.Agent.ToolFailurePolicy != "silent" {
		t.Errorf("ToolFailurePolicy = %q, want silent", cfg.Agent.ToolFailurePolicy)
	}
	if cfg.Storage.Backend != "memory" {
		t.Errorf("Storage.Backend = %q, want memory", cfg.Storage.Backend)
	}
	if cfg.Resilience.Timeout.Duration() != 30*time.Second {
		t.Errorf("Resilience.Timeout = %v", cfg.Resilience.Timeout.Duration())
	}
}

func TestDefault_IsValid(t *testing.T) {
	t.Parallel()

	if errs := NewValidator().Validate(Default()); errs.HasErrors() {
		t.Errorf("Default() should validate, got %v", errs)
	}
}
