// Package cli implements the newslookout command line interface.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/newslookout/newslookout/internal/logger"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "newslookout",
	Short: "Batch ingestion pipeline for news and regulatory documents",
	Long: `NewsLookout retrieves documents from configured sources, enriches
them through a chain of processing stages and records which URLs have
been fully processed so subsequent runs skip them.`,
	SilenceUsage: true,
	PersistentPreRun: func(*cobra.Command, []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command, exiting non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
