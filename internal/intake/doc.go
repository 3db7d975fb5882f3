// Package intake watches the intake directory and reports write-stable
// documents.
//
// The watcher is polling based: a file is reported only after its size and
// modification time stay unchanged across consecutive polls, which keeps
// half-copied uploads out of the queue. fsnotify events only trigger an early
// poll. Only the top level of the directory is scanned, so the archive
// folders beneath it are never re-ingested.
package intake
