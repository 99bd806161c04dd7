// Command omectl is a thin CLI exerciser over the matching core's facade. It
// is not part of the core API (spec.md Non-goals: "no bundled CLI or HTTP
// service is part of the matching core's public API") — it exists to drive
// the facade from a terminal the way an external integrator would.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/helpfulengineering/ome-matching-core/internal/logging"
)

var (
	verbose      bool
	configPath   string
	workspaceDir string
	opTimeout    time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "omectl",
	Short: "Exercise the Open Matching Engine core from the command line",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logging.InitDefault(verbose); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config YAML (defaults applied if absent)")
	rootCmd.PersistentFlags().StringVarP(&workspaceDir, "workspace", "w", "", "directory holding taxonomy/ and capability_rules/ (default: current directory)")
	rootCmd.PersistentFlags().DurationVar(&opTimeout, "timeout", 30*time.Second, "per-operation timeout")

	rootCmd.AddCommand(matchCmd, reloadCmd, supplyTreeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
