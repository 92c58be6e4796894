package main

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	docsIDs []string
	docsOut string
)

// docResult is the stdout summary for one requested document.
type docResult struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type,omitempty"`
	Size     int    `json:"size,omitempty"`
	Path     string `json:"path,omitempty"`
	Error    string `json:"error,omitempty"`
}

var docsCmd = &cobra.Command{
	Use:   "docs <case-number>",
	Short: "Fetch document contents for a case",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		client, _, err := buildClient()
		if err != nil {
			return err
		}

		results, err := client.FetchDocuments(ctx, args[0], docsIDs)
		if err != nil {
			return eris.Wrap(err, "fetch documents")
		}

		if docsOut != "" {
			if err := os.MkdirAll(docsOut, 0o755); err != nil {
				return eris.Wrap(err, "create output dir")
			}
		}

		summary := make([]docResult, 0, len(docsIDs))
		for _, id := range docsIDs {
			res := results[id]
			if res.Failed() {
				summary = append(summary, docResult{ID: id, Error: res.Err.Error()})
				continue
			}
			r := docResult{ID: id, MimeType: res.MimeType, Size: len(res.Content)}
			if docsOut != "" {
				r.Path = filepath.Join(docsOut, id)
				if err := os.WriteFile(r.Path, res.Content, 0o644); err != nil {
					return eris.Wrapf(err, "write document %s", id)
				}
			}
			summary = append(summary, r)
		}

		failed := 0
		for _, r := range summary {
			if r.Error != "" {
				failed++
			}
		}
		zap.L().Info("documents fetched",
			zap.String("case", args[0]),
			zap.Int("requested", len(docsIDs)),
			zap.Int("failed", failed),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

func init() {
	docsCmd.Flags().StringSliceVar(&docsIDs, "id", nil, "document id to fetch (repeatable)")
	docsCmd.Flags().StringVar(&docsOut, "out", "", "directory to write document contents into")
	_ = docsCmd.MarkFlagRequired("id")
	rootCmd.AddCommand(docsCmd)
}
