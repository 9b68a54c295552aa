package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/consilium-health/consilium/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "consilium",
	Short: "Multi-agent MDT discussion assistant for interstitial lung disease",
	Long: `Consilium runs a virtual multidisciplinary team discussion over a
patient case. Role-specific specialist agents (pulmonology, radiology,
pathology, rheumatology, data analysis) analyze the case in parallel,
share and debate their findings under an MDT coordinator, and converge
on a final conclusion.

Core capabilities:
- Parallel specialist analysis with streamed output
- Conflict detection and bounded multi-round discussion
- Consensus scoring against a configurable threshold
- Retrieval from a local medical knowledge base
- Session history, JSON and plain-text export`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig loads configuration honoring the global --config flag.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromPath(configPath)
	}
	return config.Load()
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a config file")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(kbCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
