package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var fetchRawOut string

var fetchCmd = &cobra.Command{
	Use:   "fetch <case-number>",
	Short: "Fetch and decode a single case",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		client, _, err := buildClient()
		if err != nil {
			return err
		}

		c, err := client.FetchCase(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "fetch case")
		}

		zap.L().Info("case fetched",
			zap.String("case", c.Number),
			zap.Int("parties", len(c.Parties)),
			zap.Int("movements", len(c.Movements)),
			zap.Int("documents", len(c.Documents)),
			zap.Bool("standalone_enforcement", c.IsStandaloneEnforcement),
		)

		if fetchRawOut != "" {
			if err := os.WriteFile(fetchRawOut, c.RawXML, 0o644); err != nil {
				return eris.Wrap(err, "write raw xml")
			}
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(c)
	},
}

func init() {
	fetchCmd.Flags().StringVar(&fetchRawOut, "raw-out", "", "also write the raw upstream XML to this file")
	rootCmd.AddCommand(fetchCmd)
}
