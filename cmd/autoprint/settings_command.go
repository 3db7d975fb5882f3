package main

import (
	"fmt"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"autoprint/internal/logging"
	"autoprint/internal/printsettings"
)

func newSettingsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "settings <file name>",
		Short: "Show the print settings a document would be printed with",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store := printsettings.NewStore(cfg.Paths.OverridesFile, printsettings.FromConfig(cfg.PrintSettings), logging.NewNop())
			if err := store.Refresh(); err != nil {
				return fmt.Errorf("load overrides: %w", err)
			}

			name := filepath.Base(args[0])
			resolved := store.Resolve(name)
			if asJSON {
				return writeJSON(cmd, resolved)
			}

			var overridden []string
			if entry, ok := store.Lookup(name); ok {
				overridden = entry.Keys()
			}
			source := func(key string) string {
				if slices.Contains(overridden, key) {
					return "override"
				}
				return "default"
			}
			rows := [][]string{
				{"copies", strconv.Itoa(resolved.Copies), source("copies")},
				{"duplex", yesNo(resolved.Duplex), source("duplex")},
				{"duplex_mode", resolved.DuplexMode, source("duplex_mode")},
				{"paper_size", resolved.PaperSize, source("paper_size")},
				{"color", yesNo(resolved.Color), source("color")},
				{"toner_save", yesNo(resolved.TonerSave), source("toner_save")},
				{"orientation", resolved.Orientation, source("orientation")},
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Settings for %s (overrides: %s)\n", name, store.Path())
			fmt.Fprintln(out, renderTable([]string{"Key", "Value", "Source"}, rows, nil, shouldColorize(out)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print resolved settings as JSON")
	return cmd
}
