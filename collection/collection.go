// Package collection implements a named set of series sharing a Pod, with
// its own KV-flavoured registry changelog mapping each series' label to its
// identity digest and schema (spec.md §4.7). repo mirrors the same layout
// one level up, over collections instead of series.
package collection

import (
	"context"
	"fmt"

	"github.com/lakota-db/lakota/digest"
	"github.com/lakota-db/lakota/frame"
	"github.com/lakota-db/lakota/internal/blobsync"
	"github.com/lakota-db/lakota/lkerr"
	"github.com/lakota-db/lakota/pod"
	"github.com/lakota-db/lakota/schema"
	"github.com/lakota-db/lakota/series"
)

// RegistrySchema is the schema of every registry (collection or repo):
// spec.md §4.7's {label, digest, meta} columns, label as the index.
func RegistrySchema() *schema.Schema {
	sc, err := schema.New(
		schema.Column{Name: "label", Type: schema.String, Index: true},
		schema.Column{Name: "digest", Type: schema.Bytes},
		schema.Column{Name: "meta", Type: schema.Bytes},
	)
	if err != nil {
		// RegistrySchema's columns are fixed and always valid; a failure
		// here means the schema package's own invariants changed under us.
		panic(fmt.Sprintf("collection: invalid registry schema: %v", err))
	}
	return sc
}

// Entry is one materialised registry row.
type Entry struct {
	Label  string
	Digest digest.Digest
	Meta   []byte
}

func (e Entry) tombstoned() bool { return e.Digest.IsZero() }

// Identity derives the stable Pod-path identity of a series or collection
// from its label, used to root its own changelog under the shared
// changelog Pod (spec.md §4.7: "Pod prefix = CHANGELOG_ROOT /
// series_identity_digest").
func Identity(label string) digest.Digest {
	return digest.Sum([]byte(label))
}

// Collection is a named set of series: a shared blob Pod, a shared
// changelog root Pod (one Sub-prefix per series identity), and its own
// registry series recording which labels currently exist.
type Collection struct {
	Blobs    pod.Pod
	Log      pod.Pod // this collection's own registry changelog
	Registry *series.KVSeries
	changes  pod.Pod // root under which each series' changelog is Sub-rooted
}

// Open wraps an existing (blobs, registryLog, changelogRoot) triple as a
// Collection.
func Open(blobs, registryLog, changelogRoot pod.Pod) *Collection {
	return &Collection{
		Blobs:    blobs,
		Log:      registryLog,
		Registry: series.OpenKV(RegistrySchema(), blobs, registryLog),
		changes:  changelogRoot,
	}
}

// entries returns every non-tombstoned registry row.
func (c *Collection) entries(ctx context.Context) ([]Entry, error) {
	f, err := c.Registry.Read(ctx, nil, nil, nil, series.ClosedBoth, nil)
	if err != nil {
		return nil, fmt.Errorf("collection: read registry: %w", err)
	}
	out := make([]Entry, 0, f.Len())
	for i, label := range f.Cols["label"].Str {
		var d digest.Digest
		copy(d[:], f.Cols["digest"].Bin[i])
		e := Entry{Label: label, Digest: d, Meta: f.Cols["meta"].Bin[i]}
		if e.tombstoned() {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// OpenAll opens every live series in the collection, keyed by label, for
// callers (Pack, GC) that need to operate over all of them.
func (c *Collection) OpenAll(ctx context.Context) (map[string]*series.Series, error) {
	entries, err := c.entries(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*series.Series, len(entries))
	for _, e := range entries {
		sc, err := schema.Decode(e.Meta)
		if err != nil {
			return nil, fmt.Errorf("collection: open all: decode schema for %q: %w", e.Label, err)
		}
		out[e.Label] = series.Open(sc, c.Blobs, c.changes.Sub(e.Digest.String()))
	}
	return out, nil
}

// Entries returns every live registry row, for callers (repo's Push/Pull)
// that need each series' identity digest and schema, not just its label.
func (c *Collection) Entries(ctx context.Context) ([]Entry, error) {
	return c.entries(ctx)
}

// List returns the labels of every live series in the collection, sorted.
func (c *Collection) List(ctx context.Context) ([]string, error) {
	entries, err := c.entries(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Label
	}
	return out, nil
}

func (c *Collection) lookup(ctx context.Context, label string) (Entry, bool, error) {
	entries, err := c.entries(ctx)
	if err != nil {
		return Entry{}, false, err
	}
	for _, e := range entries {
		if e.Label == label {
			return e, true, nil
		}
	}
	return Entry{}, false, nil
}

// Create registers a new series under label with the given schema and
// returns it opened. It fails if label already names a live series.
func (c *Collection) Create(ctx context.Context, label string, sc *schema.Schema, author string) (*series.Series, error) {
	if _, ok, err := c.lookup(ctx, label); err != nil {
		return nil, err
	} else if ok {
		return nil, fmt.Errorf("collection: series %q already exists", label)
	}
	meta, err := schema.Encode(sc)
	if err != nil {
		return nil, fmt.Errorf("collection: encode schema for %q: %w", label, err)
	}
	id := Identity(label)
	if _, err := c.Registry.Upsert(ctx, map[string]frame.Value{
		"label":  frame.StringValue(label),
		"digest": {Type: schema.Bytes, Bin: id[:]},
		"meta":   {Type: schema.Bytes, Bin: meta},
	}, author); err != nil {
		return nil, fmt.Errorf("collection: register %q: %w", label, err)
	}
	return series.Open(sc, c.Blobs, c.changes.Sub(id.String())), nil
}

// OpenSeries reopens an existing series by label, reconstructing its schema from
// the registry's stored metadata.
func (c *Collection) OpenSeries(ctx context.Context, label string) (*series.Series, error) {
	e, ok, err := c.lookup(ctx, label)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: series %q", lkerr.ErrPodNotFound, label)
	}
	sc, err := schema.Decode(e.Meta)
	if err != nil {
		return nil, fmt.Errorf("collection: decode schema for %q: %w", label, err)
	}
	return series.Open(sc, c.Blobs, c.changes.Sub(e.Digest.String())), nil
}

// Drop removes label from the registry by writing a zero-digest tombstone
// row over it (spec.md §4.7: "modelled as new registry commits that
// add/remove rows"). The series' own changelog and blobs are untouched
// until a later GC pass finds them unreachable from any live registry
// entry.
func (c *Collection) Drop(ctx context.Context, label, author string) error {
	if _, ok, err := c.lookup(ctx, label); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("%w: series %q", lkerr.ErrPodNotFound, label)
	}
	_, err := c.Registry.Upsert(ctx, map[string]frame.Value{
		"label":  frame.StringValue(label),
		"digest": {Type: schema.Bytes, Bin: nil},
		"meta":   {Type: schema.Bytes, Bin: nil},
	}, author)
	if err != nil {
		return fmt.Errorf("collection: drop %q: %w", label, err)
	}
	return nil
}

// Rename moves a live series from oldLabel to newLabel, preserving its
// identity digest (and therefore its full history) and only changing which
// label the registry maps to it.
func (c *Collection) Rename(ctx context.Context, oldLabel, newLabel, author string) error {
	e, ok, err := c.lookup(ctx, oldLabel)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: series %q", lkerr.ErrPodNotFound, oldLabel)
	}
	if _, ok, err := c.lookup(ctx, newLabel); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("collection: series %q already exists", newLabel)
	}
	if _, err := c.Registry.Upsert(ctx, map[string]frame.Value{
		"label":  frame.StringValue(newLabel),
		"digest": {Type: schema.Bytes, Bin: e.Digest[:]},
		"meta":   {Type: schema.Bytes, Bin: e.Meta},
	}, author); err != nil {
		return fmt.Errorf("collection: rename %q -> %q: %w", oldLabel, newLabel, err)
	}
	return c.Drop(ctx, oldLabel, author)
}

// Reachable returns the Pod keys reachable from every live series' own
// changelog, plus the collection registry's own reachable set, for use by
// repo.GC's cross-collection sweep.
func (c *Collection) Reachable(ctx context.Context) (map[string]bool, error) {
	reach, err := c.Registry.Reachable(ctx)
	if err != nil {
		return nil, fmt.Errorf("collection: reachable: registry: %w", err)
	}
	entries, err := c.entries(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		sc, err := schema.Decode(e.Meta)
		if err != nil {
			return nil, fmt.Errorf("collection: reachable: decode schema for %q: %w", e.Label, err)
		}
		s := series.Open(sc, c.Blobs, c.changes.Sub(e.Digest.String()))
		sReach, err := s.Reachable(ctx)
		if err != nil {
			return nil, fmt.Errorf("collection: reachable: series %q: %w", e.Label, err)
		}
		for k := range sReach {
			reach[k] = true
		}
	}
	return reach, nil
}

// PullSeries copies label's registry row (if missing locally), changelog
// revisions and reachable blobs from remote into c (spec.md §4.8). It is
// safe to call repeatedly: revision and blob copying both skip keys already
// present locally.
func (c *Collection) PullSeries(ctx context.Context, remote *Collection, label string, workers int) error {
	e, ok, err := remote.lookup(ctx, label)
	if err != nil {
		return fmt.Errorf("collection: pull %q: lookup remote: %w", label, err)
	}
	if !ok {
		return fmt.Errorf("%w: series %q", lkerr.ErrPodNotFound, label)
	}
	if _, ok, err := c.lookup(ctx, label); err != nil {
		return fmt.Errorf("collection: pull %q: lookup local: %w", label, err)
	} else if !ok {
		if _, err := c.Registry.Upsert(ctx, map[string]frame.Value{
			"label":  frame.StringValue(e.Label),
			"digest": {Type: schema.Bytes, Bin: e.Digest[:]},
			"meta":   {Type: schema.Bytes, Bin: e.Meta},
		}, "pull"); err != nil {
			return fmt.Errorf("collection: pull %q: register locally: %w", label, err)
		}
	}

	localLog := c.changes.Sub(e.Digest.String())
	remoteLog := remote.changes.Sub(e.Digest.String())
	if err := blobsync.Revisions(ctx, localLog, remoteLog); err != nil {
		return fmt.Errorf("collection: pull %q: %w", label, err)
	}

	sc, err := schema.Decode(e.Meta)
	if err != nil {
		return fmt.Errorf("collection: pull %q: decode schema: %w", label, err)
	}
	remoteSeries := series.Open(sc, remote.Blobs, remoteLog)
	reach, err := remoteSeries.Reachable(ctx)
	if err != nil {
		return fmt.Errorf("collection: pull %q: remote reachable: %w", label, err)
	}
	if err := blobsync.Blobs(ctx, c.Blobs, remote.Blobs, reach, workers); err != nil {
		return fmt.Errorf("collection: pull %q: %w", label, err)
	}
	return nil
}

// PushSeries is PullSeries in the opposite direction: it copies label from c
// into remote.
func (c *Collection) PushSeries(ctx context.Context, remote *Collection, label string, workers int) error {
	return remote.PullSeries(ctx, c, label, workers)
}

// Pull copies every live series (registry row, changelog, reachable blobs)
// from remote into c, plus the collection's own registry history.
func (c *Collection) Pull(ctx context.Context, remote *Collection, workers int) error {
	if err := blobsync.Revisions(ctx, c.Log, remote.Log); err != nil {
		return fmt.Errorf("collection: pull registry: %w", err)
	}
	reach, err := remote.Registry.Reachable(ctx)
	if err != nil {
		return fmt.Errorf("collection: pull registry: remote reachable: %w", err)
	}
	if err := blobsync.Blobs(ctx, c.Blobs, remote.Blobs, reach, workers); err != nil {
		return fmt.Errorf("collection: pull registry: %w", err)
	}
	entries, err := remote.entries(ctx)
	if err != nil {
		return fmt.Errorf("collection: pull: remote entries: %w", err)
	}
	for _, e := range entries {
		if err := c.PullSeries(ctx, remote, e.Label, workers); err != nil {
			return err
		}
	}
	return nil
}

// Push copies every live series in c into remote.
func (c *Collection) Push(ctx context.Context, remote *Collection, workers int) error {
	return remote.Pull(ctx, c, workers)
}
