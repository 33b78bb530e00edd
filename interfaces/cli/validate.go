package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	configloader "github.com/felixgeelhaar/agentstep/infrastructure/config"
)

// validateOptions holds options for the validate command.
type validateOptions struct {
	configPath string
	strict     bool
}

// newValidateCmd creates the validate command.
func (a *App) newValidateCmd() *cobra.Command {
	opts := &validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate [config]",
		Short: "Validate a configuration file",
		Long: `Validate an agent configuration file for correctness.

This command checks:
  - File format (YAML or JSON)
  - Required fields (name, version)
  - Retry, step and failure policy settings
  - Provider and storage settings
  - Environment variable references (in strict mode)

Examples:
  # Validate a configuration file
  agent validate agent.yaml

  # Strict validation (fail on missing env vars)
  agent validate -c agent.yaml --strict`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				opts.configPath = args[0]
			}
			return a.validateConfig(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Enable strict validation (fail on missing env vars)")

	return cmd
}

// validateConfig validates the configuration file.
func (a *App) validateConfig(opts *validateOptions) error {
	if opts.configPath == "" {
		return fmt.Errorf("configuration file path is required")
	}

	loader := configloader.NewLoader(
		configloader.WithValidation(true),
		configloader.WithStrictEnv(opts.strict),
	)
	config, err := loader.LoadFile(opts.configPath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Fprintf(a.stdout, "✓ Configuration is valid\n")
	fmt.Fprintf(a.stdout, "  Name: %s\n", config.Name)
	fmt.Fprintf(a.stdout, "  Version: %s\n", config.Version)

	fmt.Fprintf(a.stdout, "\nConfiguration summary:\n")
	fmt.Fprintf(a.stdout, "  Provider: %s/%s\n", config.Provider.ID, config.Provider.Model)
	fmt.Fprintf(a.stdout, "  Max step retries: %d\n", config.Agent.MaxStepRetries)
	fmt.Fprintf(a.stdout, "  Max steps: %d\n", config.Agent.MaxSteps)
	fmt.Fprintf(a.stdout, "  Tool failure policy: %s\n", config.Agent.ToolFailurePolicy)
	fmt.Fprintf(a.stdout, "  Storage: %s\n", config.Storage.Backend)

	if len(config.Tools.Enabled) > 0 {
		fmt.Fprintf(a.stdout, "  Enabled tools: %s\n", strings.Join(config.Tools.Enabled, ", "))
	}
	if len(config.Tools.Disabled) > 0 {
		fmt.Fprintf(a.stdout, "  Disabled tools: %s\n", strings.Join(config.Tools.Disabled, ", "))
	}
	if config.Telemetry.Tracing {
		fmt.Fprintf(a.stdout, "  Tracing: enabled\n")
	}

	return nil
}
