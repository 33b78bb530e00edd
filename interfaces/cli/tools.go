package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/agentstep/domain/tool"
)

// toolsOptions holds options for the tools command.
type toolsOptions struct {
	configPath string
	jsonOutput bool
}

// newToolsCmd creates the tools command.
func (a *App) newToolsCmd() *cobra.Command {
	opts := &toolsOptions{}

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tools offered to the model",
		Long: `List the tools the agent declares to the model, after the enabled and
disabled filters of the configuration are applied. Names are shown in the
sanitized form the model sees.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.listTools(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output declarations as JSON")

	return cmd
}

func (a *App) listTools(opts *toolsOptions) error {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	registry := buildRegistry(cfg)

	if opts.jsonOutput {
		decls := make([]tool.Declaration, 0, registry.Len())
		for _, t := range registry.List() {
			decls = append(decls, tool.Declare(t))
		}
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(decls)
	}

	w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tRISK\tDESCRIPTION")
	for _, t := range registry.List() {
		fmt.Fprintf(w, "%s\t%s\t%s\n", tool.SanitizeName(t.Name()), t.Annotations().RiskLevel, t.Description())
	}
	return w.Flush()
}
