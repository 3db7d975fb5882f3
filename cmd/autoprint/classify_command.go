package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"autoprint/internal/document"
)

type classifyResult struct {
	Path   string        `json:"path"`
	Kind   document.Kind `json:"kind"`
	Reason string        `json:"reason,omitempty"`
	Error  string        `json:"error,omitempty"`
}

func newClassifyCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "classify <file>...",
		Short: "Show how documents would be routed",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			classifier := document.NewClassifier(cfg.Intake)

			results := make([]classifyResult, 0, len(args))
			for _, path := range args {
				class, err := classifier.Classify(path)
				result := classifyResult{Path: path, Kind: class.Kind, Reason: class.Reason}
				if err != nil {
					result.Error = err.Error()
				}
				results = append(results, result)
			}
			if asJSON {
				return writeJSON(cmd, results)
			}

			rows := make([][]string, 0, len(results))
			for _, r := range results {
				detail := r.Reason
				if r.Error != "" {
					detail = r.Error
				}
				rows = append(rows, []string{filepath.Base(r.Path), describeKind(r.Kind, r.Error != ""), detail})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]string{"Document", "Route", "Detail"}, rows, nil, shouldColorize(out)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print results as JSON")
	return cmd
}

func describeKind(kind document.Kind, unreadable bool) string {
	if unreadable {
		return "unreadable"
	}
	switch kind {
	case document.KindDirectPrint:
		return "print directly"
	case document.KindNeedsConversion:
		return "convert, then print"
	default:
		return "rejected"
	}
}
