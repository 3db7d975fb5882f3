// Package engine runs the print job queue.
//
// A single control loop owns every job. Each tick it either advances the job
// currently in Printing (poll for completion, or fail it once the job timeout
// has elapsed) or picks the oldest eligible job and moves it one step:
// conversion for documents that need it, submission for documents that are
// ready to print. Submission is gated on both the network link and the
// printer; while either gate is closed, conversion of later jobs still
// proceeds.
//
// Failures are classified by the collaborator that produced them. Transient
// failures consume an attempt and send the job to the tail of the queue after
// an exponential backoff; permanent failures and exhausted attempts move the
// document to the failed folder for review. Printed documents are relocated to
// the archive. Every terminal outcome is appended to the history ledger.
//
// After each tick the engine publishes an immutable Snapshot for the status
// API. The queue itself is never shared outside the loop and needs no locks.
package engine
