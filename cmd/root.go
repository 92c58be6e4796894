package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/juristec/caseintel/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "caseintel",
	Short: "Judicial case retrieval and intelligence",
	Long:  "Fetches cases and documents from an MNI/CNJ SOAP endpoint, classifies standalone enforcements, computes notice deadlines from certificates, and detects related interlocutory appeals.",
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
