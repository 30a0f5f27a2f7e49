// Package cmd defines and implements the CLI commands for the jobsweep
// executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobsweep",
		Short: "A resilient batch scraper for public job listings.",
		Long: `jobsweep drives one headless Chrome session across every
(search term, location) pair in its configuration, extracts the job
listings each results page renders, and streams one batch per pair to
an HTTP ingestion service. A crashed or disconnected session is
relaunched mid-run; failures are recorded per pair instead of aborting
the batch.`,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./jobsweep.yaml)")

	cmd.AddCommand(newRunCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
