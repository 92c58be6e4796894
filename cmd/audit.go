package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var auditLimit int

var auditCmd = &cobra.Command{
	Use:   "audit <case-number>",
	Short: "List recorded upstream calls for a case, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		entries, err := st.ListAudit(ctx, args[0], auditLimit)
		if err != nil {
			return eris.Wrap(err, "list audit")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	},
}

var cachePurgeCmd = &cobra.Command{
	Use:   "cache-purge",
	Short: "Delete expired cached cases",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		n, err := st.DeleteExpiredCases(ctx)
		if err != nil {
			return eris.Wrap(err, "purge cache")
		}

		zap.L().Info("cache purged", zap.Int("deleted", n))
		return nil
	},
}

func init() {
	auditCmd.Flags().IntVar(&auditLimit, "limit", 50, "max entries to return")
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(cachePurgeCmd)
}
