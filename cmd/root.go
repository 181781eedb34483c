package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/urbansafe/saferoute-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "saferoute-cli",
	Short: "Safety-aware route planning",
	Long:  "Fetches route alternatives from OSRM, scores each against crime, lighting, and population datasets, and ranks them by a blend of safety and distance.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
