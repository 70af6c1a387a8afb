// Package lkerr defines the sentinel error kinds propagated across lakota's
// layers, following the error-handling design of spec.md §7. Callers use
// errors.Is/errors.As the way the teacher's own code wraps errors with
// fmt.Errorf("...: %w", err) rather than reaching for a third-party errors
// package.
package lkerr

import (
	"errors"
	"fmt"

	"github.com/lakota-db/lakota/digest"
)

// Sentinel error kinds. Higher layers wrap these with context via
// fmt.Errorf("...: %w", Err...) so callers can still errors.Is against them.
var (
	// ErrPodNotFound is returned when a blob or key is absent from a Pod.
	ErrPodNotFound = errors.New("lakota: key not found")
	// ErrPodIO is a transient network or filesystem failure at the Pod layer.
	ErrPodIO = errors.New("lakota: pod i/o error")
	// ErrDataMissing means a revision references a blob absent from the Pod.
	ErrDataMissing = errors.New("lakota: referenced data is missing")
	// ErrSchemaMismatch means a frame's columns don't match the collection schema.
	ErrSchemaMismatch = errors.New("lakota: schema mismatch")
	// ErrEmptyWrite marks a no-op write (empty frame); not surfaced by
	// Series.Write but available for callers that want to detect it.
	ErrEmptyWrite = errors.New("lakota: empty write")
	// ErrDivergentHeads is informational: the changelog currently has more
	// than one head. Not an error at read time (resolved by last-write-wins).
	// No function in this module returns it; the CLI's log command prints a
	// warning instead when changelog.Heads reports more than one head.
	ErrDivergentHeads = errors.New("lakota: divergent heads")
	// ErrRemoteIO is a push/pull transport failure. The operation is
	// idempotent and safe to retry.
	ErrRemoteIO = errors.New("lakota: remote i/o error")
)

// MissingDigest wraps ErrDataMissing with the digest that could not be
// located, so it is never silently dropped.
type MissingDigest struct {
	Digest digest.Digest
	Path   string
}

func (e *MissingDigest) Error() string {
	return fmt.Sprintf("lakota: data missing for digest %s (%s)", e.Digest, e.Path)
}

func (e *MissingDigest) Unwrap() error { return ErrDataMissing }

// NewMissingDigest builds a MissingDigest error.
func NewMissingDigest(d digest.Digest, path string) error {
	return &MissingDigest{Digest: d, Path: path}
}
