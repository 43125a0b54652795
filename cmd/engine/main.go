// Command engine syncs a recreation provider's activity catalog and serves
// it over a local HTTP API.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	flagDataDir  string
	flagConfig   string
	flagLogLevel string
)

var rootCmd = &cobra.Command{
	Use:           "engine",
	Short:         "Activity catalog sync engine",
	Long:          "Collects activity listings section by section, reconciles them into the catalog, and serves the catalog and sync history over HTTP.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "Data directory (default $ENGINE_DATA_DIR or .)")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default <data-dir>/config.yml)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Override log.level from the config")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
