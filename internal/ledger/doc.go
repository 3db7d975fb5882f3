// Package ledger keeps a SQLite history of terminal jobs: which document was
// printed or set aside for review, where its artifact was moved, and why a
// failed job stopped.
//
// The ledger is an audit trail only. The job queue itself lives in memory and
// is rebuilt from the intake directory on restart; a ledger write failure is
// logged and never changes a job's outcome.
package ledger
