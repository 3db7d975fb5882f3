// Package cups implements the Printer Gate on top of the CUPS command line
// tools.
//
// Readiness comes from `lpstat -p` and `lpstat -a`, jobs are submitted with
// `lp` and tracked by polling the not-completed and completed job lists.
// Timed-out jobs can be withdrawn with `cancel`. All command execution goes
// through an Executor so tests can script tool output.
package cups
