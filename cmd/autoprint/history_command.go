package main

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"autoprint/internal/ledger"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recently finished documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive")
			}
			store, err := ledger.Open(cfg.LedgerPath())
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			records, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("read history: %w", err)
			}
			if asJSON {
				return writeJSON(cmd, records)
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No documents have finished yet")
				return nil
			}
			fmt.Fprintln(out, renderHistory(records, shouldColorize(out)))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of records to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print records as JSON")
	return cmd
}

func renderHistory(records []ledger.Record, colorize bool) string {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		archived := "-"
		if rec.FinalPath != "" {
			archived = filepath.Base(rec.FinalPath)
		}
		rows = append(rows, []string{
			rec.FinishedAt.Local().Format("2006-01-02 15:04"),
			filepath.Base(rec.SourcePath),
			displayLabel(string(rec.Outcome)),
			strconv.Itoa(rec.Attempts),
			archived,
			rec.ErrorKind,
		})
	}
	return renderTable(
		[]string{"Finished", "Document", "Outcome", "Attempts", "Archived As", "Error"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
		colorize,
	)
}
