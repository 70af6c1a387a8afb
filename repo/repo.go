// Package repo mirrors the collection package one level up (spec.md §4.7:
// "Repo mirrors the same structure at the top level"): a registry series
// mapping collection labels to collection identity digests, over which
// Push/Pull, Pack and GC fan out across every collection and series.
package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/lakota-db/lakota/collection"
	"github.com/lakota-db/lakota/digest"
	"github.com/lakota-db/lakota/frame"
	"github.com/lakota-db/lakota/internal/blobsync"
	"github.com/lakota-db/lakota/lkerr"
	"github.com/lakota-db/lakota/pod"
	"github.com/lakota-db/lakota/schema"
	"github.com/lakota-db/lakota/series"
)

// Repo is the top-level container: a shared blob Pod, a shared changelog
// root Pod (one Sub-prefix per collection identity, itself laid out exactly
// like a Collection's changelog root), and its own registry series
// recording which collection labels currently exist.
type Repo struct {
	Blobs    pod.Pod
	Log      pod.Pod // this repo's own registry changelog
	Registry *series.KVSeries
	changes  pod.Pod // root under which each collection's changelog tree is Sub-rooted
}

// Open wraps an existing (blobs, registryLog, changelogRoot) triple as a
// Repo.
func Open(blobs, registryLog, changelogRoot pod.Pod) *Repo {
	return &Repo{
		Blobs:    blobs,
		Log:      registryLog,
		Registry: series.OpenKV(collection.RegistrySchema(), blobs, registryLog),
		changes:  changelogRoot,
	}
}

func (r *Repo) entries(ctx context.Context) ([]collection.Entry, error) {
	f, err := r.Registry.Read(ctx, nil, nil, nil, series.ClosedBoth, nil)
	if err != nil {
		return nil, fmt.Errorf("repo: read registry: %w", err)
	}
	out := make([]collection.Entry, 0, f.Len())
	for i, label := range f.Cols["label"].Str {
		var d digest.Digest
		copy(d[:], f.Cols["digest"].Bin[i])
		if d.IsZero() {
			continue
		}
		out = append(out, collection.Entry{Label: label, Digest: d, Meta: f.Cols["meta"].Bin[i]})
	}
	return out, nil
}

// List returns the labels of every live collection, in registry order.
func (r *Repo) List(ctx context.Context) ([]string, error) {
	entries, err := r.entries(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Label
	}
	return out, nil
}

func (r *Repo) lookup(ctx context.Context, label string) (collection.Entry, bool, error) {
	entries, err := r.entries(ctx)
	if err != nil {
		return collection.Entry{}, false, err
	}
	for _, e := range entries {
		if e.Label == label {
			return e, true, nil
		}
	}
	return collection.Entry{}, false, nil
}

// open wraps a collection identity digest as a Collection view sharing this
// repo's blob Pod.
func (r *Repo) open(id digest.Digest) *collection.Collection {
	root := r.changes.Sub(id.String())
	return collection.Open(r.Blobs, root.Sub("registry"), root.Sub("series"))
}

// Create registers a new, empty collection under label and returns it
// opened. It fails if label already names a live collection.
func (r *Repo) Create(ctx context.Context, label, author string) (*collection.Collection, error) {
	if _, ok, err := r.lookup(ctx, label); err != nil {
		return nil, err
	} else if ok {
		return nil, fmt.Errorf("repo: collection %q already exists", label)
	}
	id := collection.Identity(label)
	if _, err := r.Registry.Upsert(ctx, map[string]frame.Value{
		"label":  frame.StringValue(label),
		"digest": {Type: schema.Bytes, Bin: id[:]},
		"meta":   {Type: schema.Bytes, Bin: nil},
	}, author); err != nil {
		return nil, fmt.Errorf("repo: register %q: %w", label, err)
	}
	return r.open(id), nil
}

// OpenCollection reopens an existing collection by label.
func (r *Repo) OpenCollection(ctx context.Context, label string) (*collection.Collection, error) {
	e, ok, err := r.lookup(ctx, label)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: collection %q", lkerr.ErrPodNotFound, label)
	}
	return r.open(e.Digest), nil
}

// Drop removes label from the repo registry by writing a zero-digest
// tombstone row over it. The collection's own changelog tree and blobs are
// untouched until a later GC pass finds them unreachable.
func (r *Repo) Drop(ctx context.Context, label, author string) error {
	if _, ok, err := r.lookup(ctx, label); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("%w: collection %q", lkerr.ErrPodNotFound, label)
	}
	if _, err := r.Registry.Upsert(ctx, map[string]frame.Value{
		"label":  frame.StringValue(label),
		"digest": {Type: schema.Bytes, Bin: nil},
		"meta":   {Type: schema.Bytes, Bin: nil},
	}, author); err != nil {
		return fmt.Errorf("repo: drop %q: %w", label, err)
	}
	return nil
}

// Rename moves a live collection from oldLabel to newLabel, preserving its
// identity digest (and therefore its full history).
func (r *Repo) Rename(ctx context.Context, oldLabel, newLabel, author string) error {
	e, ok, err := r.lookup(ctx, oldLabel)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: collection %q", lkerr.ErrPodNotFound, oldLabel)
	}
	if _, ok, err := r.lookup(ctx, newLabel); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("repo: collection %q already exists", newLabel)
	}
	if _, err := r.Registry.Upsert(ctx, map[string]frame.Value{
		"label":  frame.StringValue(newLabel),
		"digest": {Type: schema.Bytes, Bin: e.Digest[:]},
		"meta":   {Type: schema.Bytes, Bin: e.Meta},
	}, author); err != nil {
		return fmt.Errorf("repo: rename %q -> %q: %w", oldLabel, newLabel, err)
	}
	return r.Drop(ctx, oldLabel, author)
}

// Reachable returns the Pod keys reachable from the repo's own registry
// plus every live collection's Reachable set.
func (r *Repo) Reachable(ctx context.Context) (map[string]bool, error) {
	reach, err := r.Registry.Reachable(ctx)
	if err != nil {
		return nil, fmt.Errorf("repo: reachable: registry: %w", err)
	}
	entries, err := r.entries(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		c := r.open(e.Digest)
		cReach, err := c.Reachable(ctx)
		if err != nil {
			return nil, fmt.Errorf("repo: reachable: collection %q: %w", e.Label, err)
		}
		for k := range cReach {
			reach[k] = true
		}
	}
	return reach, nil
}

// GC sweeps the repo's shared blob Pod: any key not reachable from any
// collection/series/registry and old enough to clear horizon is
// soft-deleted, and purged on a later GC (see series.Sweep; spec.md §4.6.5,
// fanned out across the whole repo rather than one series at a time so a
// blob shared by content-address across series is never removed while any
// of them still reference it).
func (r *Repo) GC(ctx context.Context, horizon time.Duration) (int, error) {
	reach, err := r.Reachable(ctx)
	if err != nil {
		return 0, err
	}
	return series.Sweep(ctx, r.Blobs, reach, horizon)
}

// PullCollection copies label's registry row (if missing locally), and
// every one of its live series, from remote into r.
func (r *Repo) PullCollection(ctx context.Context, remote *Repo, label string, workers int) error {
	e, ok, err := remote.lookup(ctx, label)
	if err != nil {
		return fmt.Errorf("repo: pull %q: lookup remote: %w", label, err)
	}
	if !ok {
		return fmt.Errorf("%w: collection %q", lkerr.ErrPodNotFound, label)
	}
	if _, ok, err := r.lookup(ctx, label); err != nil {
		return fmt.Errorf("repo: pull %q: lookup local: %w", label, err)
	} else if !ok {
		if _, err := r.Registry.Upsert(ctx, map[string]frame.Value{
			"label":  frame.StringValue(e.Label),
			"digest": {Type: schema.Bytes, Bin: e.Digest[:]},
			"meta":   {Type: schema.Bytes, Bin: e.Meta},
		}, "pull"); err != nil {
			return fmt.Errorf("repo: pull %q: register locally: %w", label, err)
		}
	}
	return r.open(e.Digest).Pull(ctx, remote.open(e.Digest), workers)
}

// PushCollection is PullCollection in the opposite direction.
func (r *Repo) PushCollection(ctx context.Context, remote *Repo, label string, workers int) error {
	return remote.PullCollection(ctx, r, label, workers)
}

// Pull copies every live collection from remote into r, plus the repo's own
// registry history. Callers whose local and remote heads have diverged for
// a given series should follow Pull with that series' Merge.
func (r *Repo) Pull(ctx context.Context, remote *Repo, workers int) error {
	if err := blobsync.Revisions(ctx, r.Log, remote.Log); err != nil {
		return fmt.Errorf("repo: pull registry: %w", err)
	}
	reach, err := remote.Registry.Reachable(ctx)
	if err != nil {
		return fmt.Errorf("repo: pull registry: remote reachable: %w", err)
	}
	if err := blobsync.Blobs(ctx, r.Blobs, remote.Blobs, reach, workers); err != nil {
		return fmt.Errorf("repo: pull registry: %w", err)
	}
	entries, err := remote.entries(ctx)
	if err != nil {
		return fmt.Errorf("repo: pull: remote entries: %w", err)
	}
	for _, e := range entries {
		if err := r.PullCollection(ctx, remote, e.Label, workers); err != nil {
			return err
		}
	}
	return nil
}

// Push copies every live collection in r into remote.
func (r *Repo) Push(ctx context.Context, remote *Repo, workers int) error {
	return remote.Pull(ctx, r, workers)
}
