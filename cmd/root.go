package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/taperedplus/design-intake/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "design-intake",
	Short: "Document intake for tapered insulation design enquiries",
	Long:  "Processes enquiry emails and PDFs, extracts design parameters via an LLM, cross-references the Monday.com enquiry board, and exports results.",
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
