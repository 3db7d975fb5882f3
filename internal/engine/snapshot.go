package engine

import (
	"time"

	"autoprint/internal/metrics"
	"autoprint/internal/queue"
	"autoprint/internal/services"
)

// GateView is the last observed state of a gate.
type GateView struct {
	Ready     bool      `json:"ready"`
	State     string    `json:"state,omitempty"`
	Fault     string    `json:"fault,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	CheckedAt time.Time `json:"checked_at,omitempty"`
}

// Totals counts terminal outcomes since the engine started.
type Totals struct {
	Printed        int `json:"printed"`
	FailedReview   int `json:"failed_for_review"`
	Retried        int `json:"retried"`
	ArchivalErrors int `json:"archival_errors"`
}

// Snapshot is an immutable view of the engine published after each tick.
type Snapshot struct {
	GeneratedAt time.Time            `json:"generated_at"`
	StartedAt   time.Time            `json:"started_at"`
	Jobs        []queue.JobView      `json:"jobs"`
	Counts      map[queue.Status]int `json:"counts"`
	Network     GateView             `json:"network"`
	Printer     GateView             `json:"printer"`
	Totals      Totals               `json:"totals"`
	Overrides   int                  `json:"overrides"`
}

func (e *Engine) publish(now time.Time) {
	jobs := e.queue.Jobs()
	views := make([]queue.JobView, 0, len(jobs))
	for _, job := range jobs {
		views = append(views, job.View())
	}
	counts := e.queue.CountByStatus()
	snap := &Snapshot{
		GeneratedAt: now,
		StartedAt:   e.startedAt,
		Jobs:        views,
		Counts:      counts,
		Network:     e.networkView,
		Printer:     e.printerView,
		Totals:      e.totals,
		Overrides:   e.deps.Settings.Count(),
	}
	e.snapshot.Store(snap)

	metrics.QueueLength.Reset()
	for status, n := range counts {
		metrics.QueueLength.WithLabelValues(string(status)).Set(float64(n))
	}
}

func viewPrinter(status services.PrinterStatus, now time.Time) GateView {
	return GateView{
		Ready:     status.Ready(),
		State:     string(status.State),
		Fault:     status.Fault,
		Detail:    status.Detail,
		CheckedAt: now,
	}
}
