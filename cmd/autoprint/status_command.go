package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"autoprint/internal/daemon"
	"autoprint/internal/engine"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, gate and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			status, err := fetchStatus(cmd.Context(), apiBaseURL(cfg.Paths.APIBind))
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, status)
			}
			out := cmd.OutOrStdout()
			fmt.Fprint(out, renderStatus(status, shouldColorize(out)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw status document")
	return cmd
}

func fetchStatus(ctx context.Context, baseURL string) (daemon.Status, error) {
	var status daemon.Status
	reqCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, baseURL+"/api/status", nil)
	if err != nil {
		return status, fmt.Errorf("build status request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return status, fmt.Errorf("connect to daemon at %s: %w; start it with `autoprint run`", baseURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return status, fmt.Errorf("daemon status: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return status, fmt.Errorf("decode daemon status: %w", err)
	}
	return status, nil
}

func renderStatus(status daemon.Status, colorize bool) string {
	var lines []string
	lines = append(lines, renderSectionHeader("System", colorize)...)

	if status.Running {
		lines = append(lines, renderStatusLine("Daemon", statusOK, fmt.Sprintf("running (pid %d, since %s)", status.PID, status.StartedAt.Local().Format(time.DateTime)), colorize))
	} else {
		lines = append(lines, renderStatusLine("Daemon", statusError, "stopped", colorize))
	}

	snap := status.Engine
	if snap != nil {
		lines = append(lines, gateLine("Network", snap.Network, colorize))
		lines = append(lines, gateLine("Printer "+status.Printer, snap.Printer, colorize))
	}
	lines = append(lines, renderStatusLine("Link monitor", statusInfo, yesNo(status.LinkMonitor), colorize))

	if len(status.Dependencies) > 0 {
		lines = append(lines, "")
		lines = append(lines, renderSectionHeader("Dependencies", colorize)...)
		for _, dep := range status.Dependencies {
			kind := statusOK
			message := dep.Command
			if !dep.Available {
				kind = statusError
				if dep.Optional {
					kind = statusWarn
				}
				message = dep.Detail
			}
			lines = append(lines, renderStatusLine(dep.Name, kind, message, colorize))
		}
	}

	if snap == nil {
		return strings.Join(lines, "\n") + "\n"
	}

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Totals", colorize)...)
	lines = append(lines,
		renderStatusLine("Printed", statusInfo, strconv.Itoa(snap.Totals.Printed), colorize),
		renderStatusLine("Needs review", statusInfo, strconv.Itoa(snap.Totals.FailedReview), colorize),
		renderStatusLine("Retried", statusInfo, strconv.Itoa(snap.Totals.Retried), colorize),
		renderStatusLine("Archive errors", statusInfo, strconv.Itoa(snap.Totals.ArchivalErrors), colorize),
		renderStatusLine("Overrides", statusInfo, strconv.Itoa(snap.Overrides), colorize),
	)

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Queue", colorize)...)
	if len(snap.Jobs) == 0 {
		lines = append(lines, statusIndent+"No documents waiting")
		return strings.Join(lines, "\n") + "\n"
	}
	rows := make([][]string, 0, len(snap.Jobs))
	for i, job := range snap.Jobs {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			job.Name,
			paint(displayLabel(string(job.Status)), statusStyles[jobStatusKind(job.Status)].color, colorize),
			fmt.Sprintf("%d/%d", job.Attempts, job.MaxAttempts),
			job.ErrorKind,
		})
	}
	table := renderTable(
		[]string{"#", "Document", "Status", "Attempts", "Last Error"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
		colorize,
	)
	return strings.Join(lines, "\n") + "\n" + table + "\n"
}

func gateLine(label string, view engine.GateView, colorize bool) string {
	if view.CheckedAt.IsZero() {
		return renderStatusLine(label, statusInfo, "not checked yet", colorize)
	}
	state := view.State
	if state == "" {
		state = "down"
		if view.Ready {
			state = "up"
		}
	}
	if view.Ready {
		return renderStatusLine(label, statusOK, displayLabel(state), colorize)
	}
	message := displayLabel(state)
	if view.Fault != "" {
		message += " (" + view.Fault + ")"
	}
	if view.Detail != "" {
		message += ": " + view.Detail
	}
	return renderStatusLine(label, statusWarn, message, colorize)
}
