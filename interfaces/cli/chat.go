package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// chatOptions holds options for the chat command.
type chatOptions struct {
	configPath string
	sessionID  string
	message    string
	providerID string
	modelID    string
	maxRetries int
	trace      bool
	jsonOutput bool
	verbose    bool
}

// newChatCmd creates the chat command.
func (a *App) newChatCmd() *cobra.Command {
	opts := &chatOptions{}

	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Send one message to the agent",
		Long: `Send a user message and step the agent until it answers.

The message is read from the argument or, when omitted, from stdin. Without
a configuration file the offline echo model is used; it turns a line such as
"/create-post-draft {"title":"Hello"}" into a tool call.

Posts created by the sample tools live in memory for a single run. A stored
session keeps the conversation across runs, but post ids it mentions refer
to posts that no longer exist.

Examples:
  # Offline smoke test
  agent chat '/create-post-draft {"title":"Hello"}'

  # Continue a stored session with a real provider
  agent chat -c agent.yaml --session 7f9c "Publish the draft"

  # Print spans to stderr
  agent chat -c agent.yaml --trace "List my drafts"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				opts.message = args[0]
			} else {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read message: %w", err)
				}
				opts.message = strings.TrimSpace(string(data))
			}
			return a.chat(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file")
	cmd.Flags().StringVarP(&opts.sessionID, "session", "s", "", "Session id (a new one is generated when empty)")
	cmd.Flags().StringVar(&opts.providerID, "provider", "", "Provider id (overrides config)")
	cmd.Flags().StringVar(&opts.modelID, "model", "", "Model id (overrides config)")
	cmd.Flags().IntVar(&opts.maxRetries, "max-retries", 0, "Model invocations allowed per step (overrides config)")
	cmd.Flags().BoolVar(&opts.trace, "trace", false, "Print OpenTelemetry spans to stderr")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output the turn as JSON")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Print every step")

	return cmd
}

// chatResult is the JSON shape of a turn.
type chatResult struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`
	Steps     int    `json:"steps"`
	Attempts  int    `json:"attempts"`
	Error     string `json:"error,omitempty"`
}

func (a *App) chat(ctx context.Context, opts *chatOptions) error {
	if opts.message == "" {
		return fmt.Errorf("message is required")
	}

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}

	rt, err := a.buildRuntime(ctx, cfg, runtimeOverrides{
		providerID: opts.providerID,
		modelID:    opts.modelID,
		maxRetries: opts.maxRetries,
		trace:      opts.trace,
	})
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close(context.WithoutCancel(ctx)) }()

	turn, sendErr := rt.conversation.Send(ctx, opts.sessionID, opts.message)
	if turn == nil {
		return sendErr
	}

	attempts := 0
	for _, s := range turn.Steps {
		attempts += s.Attempts
	}

	if opts.jsonOutput {
		res := chatResult{
			SessionID: turn.SessionID,
			Reply:     turn.Reply,
			Steps:     len(turn.Steps),
			Attempts:  attempts,
		}
		if sendErr != nil {
			res.Error = sendErr.Error()
		}
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
		return sendErr
	}

	if opts.verbose {
		for _, s := range turn.Steps {
			fmt.Fprintf(a.stdout, "step %d: %d messages, %d attempts, finished=%v\n",
				s.StepIndex, len(s.NewMessages), s.Attempts, s.Finished)
		}
	}
	if sendErr != nil {
		return sendErr
	}

	fmt.Fprintln(a.stdout, turn.Reply)
	fmt.Fprintf(a.stderr, "session %s: %d steps\n", turn.SessionID, len(turn.Steps))
	return nil
}
