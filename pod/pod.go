// Package pod implements the content-addressed blob store abstraction of
// spec.md §4.1: a key→bytes contract with several interchangeable backends
// (in-memory, filesystem, S3-compatible, an embedded Badger store, and a
// cache-pod that chains a fast store in front of a slow one).
//
// Credential handling for the S3 backend is an external collaborator per
// spec.md §1 (the AWS SDK's default credential chain is used as-is; no
// bespoke credential plumbing lives here).
package pod

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/lakota-db/lakota/lkerr"
)

// Pod is the storage contract every backend implements. All methods are
// safe for concurrent use.
type Pod interface {
	// Get returns the bytes stored at key, or an error wrapping
	// lkerr.ErrPodNotFound if absent.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put stores data at key. Put is expected to be idempotent for
	// digest-named keys: overwriting with identical content is a no-op.
	Put(ctx context.Context, key string, data []byte) error
	// List returns the immediate children of prefix, lexicographically
	// sorted. It never recurses.
	List(ctx context.Context, prefix string) ([]string, error)
	// Delete best-effort removes key. Deleting an absent key is not an
	// error.
	Delete(ctx context.Context, key string) error
	// Walk recursively lists every blob key under prefix.
	Walk(ctx context.Context, prefix string) ([]string, error)
	// Sub returns a Pod rooted at prefix/name (spec.md's "cd").
	Sub(name string) Pod
	// Move renames a key, when the backend supports it directly; backends
	// without a native rename fall back to read+write+delete.
	Move(ctx context.Context, from, to string) error
}

// Stater is implemented by backends that can report a key's last-write
// time, used by gc's safety horizon (spec.md §4.6.5) to avoid racing a
// concurrent writer whose blobs are on disk but whose revision isn't yet
// durable. Backends that can't report this (Badger, S3, and CachePOD,
// whatever tiers it wraps) simply don't implement it; gc treats missing Stat
// support as "never old enough to collect" rather than guessing.
type Stater interface {
	Stat(ctx context.Context, key string) (time.Time, error)
}

// join concatenates path segments with "/", skipping empty parts.
func join(parts ...string) string {
	nonEmpty := parts[:0]
	for _, p := range parts {
		p = strings.Trim(p, "/")
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, "/")
}

// sortedCopy returns a sorted copy of ks.
func sortedCopy(ks []string) []string {
	out := make([]string, len(ks))
	copy(out, ks)
	sort.Strings(out)
	return out
}

// notFound wraps lkerr.ErrPodNotFound with the offending key.
func notFound(key string) error {
	return &keyError{key: key, err: lkerr.ErrPodNotFound}
}

type keyError struct {
	key string
	err error
}

func (e *keyError) Error() string { return e.err.Error() + ": " + e.key }
func (e *keyError) Unwrap() error { return e.err }
