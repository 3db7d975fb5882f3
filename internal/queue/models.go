package queue

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"autoprint/internal/document"
	"autoprint/internal/printsettings"
)

// Status represents the lifecycle of a print job.
type Status string

const (
	StatusPending           Status = "pending"
	StatusConverting        Status = "converting"
	StatusPrinting          Status = "printing"
	StatusCompleted         Status = "completed"
	StatusFailed            Status = "failed"
	StatusRetrying          Status = "retrying"
	StatusPermanentlyFailed Status = "permanently_failed"
	StatusArchived          Status = "archived"
)

var allowedTransitions = map[Status][]Status{
	StatusPending:    {StatusConverting, StatusPrinting, StatusFailed},
	StatusConverting: {StatusPrinting, StatusFailed},
	StatusPrinting:   {StatusCompleted, StatusFailed},
	StatusFailed:     {StatusRetrying, StatusPermanentlyFailed},
	StatusRetrying:   {StatusPending},
	StatusCompleted:  {StatusArchived},
}

// CanTransition reports whether the lifecycle allows moving from one status to another.
func CanTransition(from, to Status) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a job in this status leaves the queue.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusArchived, StatusPermanentlyFailed:
		return true
	default:
		return false
	}
}

// jobNamespace scopes the name-based job IDs.
var jobNamespace = uuid.MustParse("6f1c4f3e-2a0b-4c55-9d59-3f6c1f9e8a21")

// Job is a single document moving through the print pipeline. Jobs are owned
// and mutated by the engine's control loop only.
type Job struct {
	ID                   string
	SourcePath           string
	Kind                 document.Kind
	Status               Status
	Attempts             int
	MaxAttempts          int
	FirstSeen            time.Time
	EnqueuedAt           time.Time
	LastAttemptStartedAt time.Time
	NotBefore            time.Time
	RenderedPath         string
	Handle               string
	Settings             printsettings.Settings
	LastError            string
	ErrorKind            string
	FailureClass         string
	UpdatedAt            time.Time
}

// JobID derives a stable identifier from the source path and first-seen time.
func JobID(path string, firstSeen time.Time) string {
	name := path + "|" + firstSeen.UTC().Format(time.RFC3339Nano)
	return uuid.NewSHA1(jobNamespace, []byte(name)).String()
}

// NewJob creates a pending job for a classified document.
func NewJob(path string, kind document.Kind, firstSeen time.Time, maxAttempts int, now time.Time) *Job {
	if firstSeen.IsZero() {
		firstSeen = now
	}
	return &Job{
		ID:          JobID(path, firstSeen),
		SourcePath:  path,
		Kind:        kind,
		Status:      StatusPending,
		MaxAttempts: maxAttempts,
		FirstSeen:   firstSeen,
		EnqueuedAt:  now,
		UpdatedAt:   now,
	}
}

// Name returns the document's file name.
func (j *Job) Name() string {
	return filepath.Base(j.SourcePath)
}

// Transition moves the job to a new status, rejecting moves the lifecycle does not allow.
func (j *Job) Transition(to Status, now time.Time) error {
	if !CanTransition(j.Status, to) {
		return fmt.Errorf("job %s: invalid transition %s -> %s", j.ID, j.Status, to)
	}
	j.Status = to
	j.UpdatedAt = now
	return nil
}

// NeedsConversion reports whether the job still has to be rendered to PDF.
func (j *Job) NeedsConversion() bool {
	return j.Kind == document.KindNeedsConversion && j.RenderedPath == ""
}

// PrintPath returns the file submitted to the printer.
func (j *Job) PrintPath() string {
	if j.RenderedPath != "" {
		return j.RenderedPath
	}
	return j.SourcePath
}

// AttemptsRemaining reports whether another transient failure may be retried.
func (j *Job) AttemptsRemaining() bool {
	return j.Attempts < j.MaxAttempts
}

// JobView is the read-only representation exposed through status snapshots.
type JobView struct {
	ID                   string                 `json:"id"`
	Name                 string                 `json:"name"`
	SourcePath           string                 `json:"source_path"`
	Kind                 document.Kind          `json:"kind"`
	Status               Status                 `json:"status"`
	Attempts             int                    `json:"attempts"`
	MaxAttempts          int                    `json:"max_attempts"`
	EnqueuedAt           time.Time              `json:"enqueued_at"`
	LastAttemptStartedAt *time.Time             `json:"last_attempt_started_at,omitempty"`
	NotBefore            *time.Time             `json:"not_before,omitempty"`
	Settings             printsettings.Settings `json:"settings"`
	LastError            string                 `json:"last_error,omitempty"`
	ErrorKind            string                 `json:"error_kind,omitempty"`
	UpdatedAt            time.Time              `json:"updated_at"`
}

// View copies the job's externally visible fields.
func (j *Job) View() JobView {
	view := JobView{
		ID:          j.ID,
		Name:        j.Name(),
		SourcePath:  j.SourcePath,
		Kind:        j.Kind,
		Status:      j.Status,
		Attempts:    j.Attempts,
		MaxAttempts: j.MaxAttempts,
		EnqueuedAt:  j.EnqueuedAt,
		Settings:    j.Settings,
		LastError:   j.LastError,
		ErrorKind:   j.ErrorKind,
		UpdatedAt:   j.UpdatedAt,
	}
	if !j.LastAttemptStartedAt.IsZero() {
		ts := j.LastAttemptStartedAt
		view.LastAttemptStartedAt = &ts
	}
	if !j.NotBefore.IsZero() {
		ts := j.NotBefore
		view.NotBefore = &ts
	}
	return view
}
