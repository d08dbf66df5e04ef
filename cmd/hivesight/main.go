package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Set by the release build.
var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "hivesight",
		Short: "Hivesight - synthetic survey simulation",
		Long: `hivesight asks a language model to answer a survey question on behalf of
a weighted sample of synthetic personas, then reports the estimate, its 95%
confidence interval and a demographic breakdown.

Settings are read from ~/.hivesight/config.yaml, HIVESIGHT_* environment
variables and a .env file in the working directory.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// A missing .env is fine.
			_ = godotenv.Load()
		},
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON (for agent consumption)")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.hivesight/config.yaml)")
	rootCmd.PersistentFlags().String("personas", "", "Persona dataset CSV (overrides personas.path)")
	rootCmd.PersistentFlags().String("provider", "", "Oracle provider (overrides oracle.provider)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(),
		newPersonasCmd(),
		newHistoryCmd(),
		newServeCmd(),
		newMCPServerCmd(),
		newConfigCmd(),
	)

	return rootCmd
}
