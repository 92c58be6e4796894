package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/juristec/caseintel/internal/investigate"
)

var investigateCmd = &cobra.Command{
	Use:   "investigate <case-number>",
	Short: "Run the full intelligence pipeline for a case",
	Long:  "Fetches the case (cache-aware), resolves the origin of a standalone enforcement, computes citation and enforcement-notice deadlines from certificates, and validates related interlocutory appeals.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		client, rs, err := buildClient()
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		cls, err := newClassifier(ctx)
		if err != nil {
			return eris.Wrap(err, "init classifier")
		}

		o := investigate.New(client, rs, cls, st,
			investigate.WithCacheTTL(cfg.Store.CacheTTL()),
			investigate.WithMaxParallel(cfg.MNI.MaxParallel),
		)

		report, err := o.Investigate(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "investigate")
		}

		zap.L().Info("investigation complete",
			zap.String("case", report.CaseNumber),
			zap.Bool("standalone_enforcement", report.Case.IsStandaloneEnforcement),
			zap.Int("accepted_appeals", len(report.AcceptedAppeals)),
			zap.Int64("elapsed_ms", report.ElapsedMS),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func init() {
	rootCmd.AddCommand(investigateCmd)
}
