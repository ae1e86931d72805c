// Package cli implements incidentctl, a headless front end to the incident
// engine for simulation runs and one-off queries.
package cli

import (
	"encoding/json"
	"io"
	"log/slog"

	"github.com/couchcryptid/incident-engine/internal/observability"
	"github.com/spf13/cobra"
)

// Execute runs the root command against os.Args.
func Execute() error {
	return NewRootCommand().Execute()
}

// NewRootCommand builds a fresh command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "incidentctl",
		Short:         "Drive and query the incident engine from the command line",
		SilenceUsage: true,
	}
	root.PersistentFlags().String("log-level", "warn", "log level: debug, info, warn, error")

	root.AddCommand(
		newSimulateCommand(),
		newRiskCommand(),
		newSheltersCommand(),
		newVersionCommand(),
	)
	return root
}

func commandLogger(cmd *cobra.Command) *slog.Logger {
	level, _ := cmd.Flags().GetString("log-level")
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: observability.ParseLevel(level),
	}))
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
