// Package archive relocates documents that reached a terminal state out of
// the intake directory.
//
// Printed documents land in the success folder with a timestamp suffix,
// originals of converted documents land in the converted-original folder and
// documents that failed for good land in the failed-review folder. Existing
// files are never replaced: a collision adds an increasing `_N` suffix. The
// source is removed only after the destination is confirmed, so a document is
// never lost when a move fails halfway.
package archive
