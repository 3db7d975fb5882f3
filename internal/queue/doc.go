// Package queue defines print jobs, their lifecycle, and the ordered queue the
// engine drives.
//
// Status transitions are checked against a fixed table: a job only moves
// forward, and the Retrying -> Pending edge is the single loop. The queue is
// FIFO by enqueue time; a retried job is moved to the tail with a fresh
// enqueue time so it cannot starve the jobs that arrived after it.
//
// The queue is in-memory state owned by one goroutine. It is rebuilt from the
// intake directory after a restart; attempt counters are not persisted.
package queue
