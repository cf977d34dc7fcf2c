package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nz-insights/popgrid/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "popgrid",
	Short: "New Zealand 250m population grid analysis pipeline",
	Long:  "Fetches the Stats NZ 250m population grid, chunks it, enriches each chunk with reverse-geocoded place names and Claude-generated analysis, and assembles charts plus a PDF report.",
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
