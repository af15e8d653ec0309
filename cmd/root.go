package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/andes-group/invest-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "invest-cli",
	Short: "Real estate investment report pipeline",
	Long:  "Collects listing, comparable and mortgage data for a Chilean property, computes investment metrics, and generates an analysis report that degrades gracefully when sources fail.",
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
