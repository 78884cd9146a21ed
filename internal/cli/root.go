// Package cli holds the cobra commands behind cmd/cli and cmd/update-sponsors.
package cli

import (
	"os"

	"biotech-event-study/internal/logging"

	"github.com/spf13/cobra"
)

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// ExecuteUpdateSponsors runs update-sponsors as a standalone binary.
func ExecuteUpdateSponsors() {
	cmd := withLogging(newUpdateSponsorsCmd())
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "cli",
		Short:        "Clinical-trial event studies: pull catalysts, measure CARs, rank tickers",
		SilenceUsage: true,
	}
	cmd.AddCommand(newTrialsCmd(), newStudyCmd(), newRankCmd(), newUpdateSponsorsCmd(), newDemoCmd())
	return withLogging(cmd)
}

// withLogging adds --log-level/--log-format and sends logs to stderr so
// stdout only carries results.
func withLogging(cmd *cobra.Command) *cobra.Command {
	var level, format string
	cmd.PersistentFlags().StringVar(&level, "log-level", "info", "Log level: debug|info|warn|error")
	cmd.PersistentFlags().StringVar(&format, "log-format", "text", "Log format: text|json")
	cmd.PersistentPreRun = func(c *cobra.Command, _ []string) {
		logging.Init(level, format)
		logging.SetOutput(c.ErrOrStderr())
	}
	return cmd
}
