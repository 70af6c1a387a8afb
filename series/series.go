// Package series implements the versioned columnar timeseries built on top
// of changelog, commit, and segment (spec.md §4.6): read with mask-based
// last-write-wins resolution across a possibly-divergent revision forest,
// split-aware write, merge, defrag, squash, and reachability-based gc.
package series

import (
	"context"
	"fmt"
	"sort"

	"github.com/lakota-db/lakota/changelog"
	"github.com/lakota-db/lakota/commit"
	"github.com/lakota-db/lakota/digest"
	"github.com/lakota-db/lakota/frame"
	"github.com/lakota-db/lakota/lkerr"
	"github.com/lakota-db/lakota/pod"
	"github.com/lakota-db/lakota/schema"
)

// SplitThreshold is the row count above which Write slices a frame into
// several commits instead of one, matching spec.md §4.6.2.
const SplitThreshold = 500_000

// Closed selects which end of a [start, stop] query range is inclusive.
type Closed uint8

const (
	ClosedBoth Closed = iota
	ClosedLeft
	ClosedRight
	ClosedNeither
)

// Series is a versioned columnar timeseries: a changelog of commits sharing
// a schema, materialised on read by masking overlapping commit ranges with
// last-write-wins semantics.
type Series struct {
	Schema *schema.Schema
	// Blobs is the content-addressed store holding commit and segment
	// blobs; it is typically shared across every series of a collection.
	Blobs pod.Pod
	// Log is this series' own changelog prefix (spec.md §4.7: located at
	// CHANGELOG_ROOT/series_identity_digest).
	Log pod.Pod
}

// Open wraps an existing (blobs, log) pair as a Series over sc.
func Open(sc *schema.Schema, blobs, log pod.Pod) *Series {
	return &Series{Schema: sc, Blobs: blobs, Log: log}
}

func putCommit(ctx context.Context, blobs pod.Pod, sc *schema.Schema, c *commit.Commit) (digest.Digest, error) {
	data := commit.Encode(c, sc)
	d := digest.Sum(data)
	if _, err := blobs.Get(ctx, d.Key()); err == nil {
		return d, nil
	}
	if err := blobs.Put(ctx, d.Key(), data); err != nil {
		return digest.Digest{}, fmt.Errorf("series: store commit: %w", err)
	}
	return d, nil
}

func getCommit(ctx context.Context, blobs pod.Pod, sc *schema.Schema, d digest.Digest) (*commit.Commit, error) {
	data, err := pod.GetTolerant(ctx, blobs, d.Key())
	if err != nil {
		return nil, lkerr.NewMissingDigest(d, d.Key())
	}
	return commit.Decode(data, sc)
}

// Write validates column types against the schema (a column of another type
// is rejected, not cast), sorts, and deduplicates rows (via frame.New), splits them
// into at most SplitThreshold-row commits, and appends one revision per
// commit chained off the current head. It returns the new head revision;
// on an empty frame it is a no-op returning the unchanged current head.
func (s *Series) Write(ctx context.Context, cols map[string]frame.Column, author string) (changelog.Revision, error) {
	f, err := frame.New(s.Schema, cols)
	if err != nil {
		return changelog.Revision{}, fmt.Errorf("series: write: %w", err)
	}
	headRev, headNode, err := s.currentHead(ctx)
	if err != nil {
		return changelog.Revision{}, err
	}
	if f.Empty() {
		return headRev, nil
	}

	chunks := splitFrame(f, SplitThreshold)
	var last changelog.Revision
	parent := headNode
	for _, chunk := range chunks {
		epoch := changelog.NextEpoch()
		c, err := commit.Build(ctx, s.Blobs, s.Schema, chunk, author, int64(epoch))
		if err != nil {
			return changelog.Revision{}, fmt.Errorf("series: build commit: %w", err)
		}
		d, err := putCommit(ctx, s.Blobs, s.Schema, c)
		if err != nil {
			return changelog.Revision{}, err
		}
		last, err = changelog.Append(ctx, s.Log, parent, d, epoch)
		if err != nil {
			return changelog.Revision{}, fmt.Errorf("series: append revision: %w", err)
		}
		parent = last.Child()
	}
	return last, nil
}

// currentHead picks the current head per spec.md §4.6.2 step 5: when
// multiple heads exist (divergence), the lexicographically greatest
// revision key is chosen deterministically; this does not merge the
// branches, it just parents new writes off one of them. It returns the
// zero Revision and changelog.Phi when the series has no history yet.
func (s *Series) currentHead(ctx context.Context) (changelog.Revision, string, error) {
	heads, err := changelog.Heads(ctx, s.Log)
	if err != nil {
		return changelog.Revision{}, "", fmt.Errorf("series: heads: %w", err)
	}
	if len(heads) == 0 {
		return changelog.Revision{}, changelog.Phi, nil
	}
	best := heads[0]
	for _, h := range heads[1:] {
		if h.Key() > best.Key() {
			best = h
		}
	}
	return best, best.Child(), nil
}

// splitFrame slices f into consecutive chunks of at most max rows each.
func splitFrame(f *frame.Frame, max int) []*frame.Frame {
	n := f.Len()
	if n <= max {
		return []*frame.Frame{f}
	}
	var out []*frame.Frame
	for i := 0; i < n; i += max {
		j := i + max
		if j > n {
			j = n
		}
		out = append(out, f.Slice(i, j))
	}
	return out
}

// Read materialises the rows in [start, stop] (either bound may be nil for
// unbounded) as of the revisions visible at or before the given epoch
// (before == nil for "now"), resolving overlapping commits with
// last-write-wins (spec.md §4.6.1).
func (s *Series) Read(ctx context.Context, start, stop *frame.Index, before *uint64, closed Closed, columns []string) (*frame.Frame, error) {
	heads, err := changelog.Heads(ctx, s.Log)
	if err != nil {
		return nil, fmt.Errorf("series: read: %w", err)
	}
	if len(heads) == 0 {
		return frame.New(s.Schema, emptyColumns(s.Schema))
	}

	// Walk every current head back to the root and collect the revisions at
	// or before the epoch cutoff, deduplicated across branches, then sort
	// oldest first so that frame.New's dedup-keep-last resolves overlapping
	// index tuples in favour of the newest commit — the same observable
	// result as explicit interval masking, since Series.Write already
	// guarantees commits never carry duplicate index tuples internally.
	// Filtering must happen on the walked ancestors, not on the heads
	// themselves: a branch may have advanced past `before` while still
	// carrying, deeper in its chain, the exact revision that was the head
	// as of `before`.
	seen := make(map[string]changelog.Revision)
	for _, h := range heads {
		chain, err := changelog.Walk(ctx, s.Log, h.Child(), true)
		if err != nil {
			return nil, fmt.Errorf("series: read: walk from head %s: %w", h.Child(), err)
		}
		for _, r := range chain {
			if before != nil && r.Epoch > *before {
				continue
			}
			seen[r.Key()] = r
		}
	}
	if len(seen) == 0 {
		return frame.New(s.Schema, emptyColumns(s.Schema))
	}
	revs := make([]changelog.Revision, 0, len(seen))
	for _, r := range seen {
		revs = append(revs, r)
	}
	sort.Slice(revs, func(i, j int) bool { return revs[i].Epoch < revs[j].Epoch })

	frames := make([]*frame.Frame, 0, len(revs))
	for _, r := range revs {
		c, err := getCommit(ctx, s.Blobs, s.Schema, r.CommitHash)
		if err != nil {
			return nil, fmt.Errorf("series: read commit %s: %w", r.CommitHash, err)
		}
		if !inRange(c, start, stop) {
			continue
		}
		lo, hi := clampRange(c, start, stop)
		sliced, err := c.Slice(ctx, s.Blobs, s.Schema, columns, lo, hi)
		if err != nil {
			return nil, fmt.Errorf("series: slice commit %s: %w", r.CommitHash, err)
		}
		if !sliced.Empty() {
			frames = append(frames, sliced)
		}
	}

	merged := frame.Concat(s.Schema, frames...)
	result, err := frame.New(s.Schema, merged.Cols)
	if err != nil {
		return nil, fmt.Errorf("series: read: rebuild merged frame: %w", err)
	}
	return applyClosed(result, start, stop, closed), nil
}

func inRange(c *commit.Commit, start, stop *frame.Index) bool {
	if start != nil && c.Stop.Less(*start) {
		return false
	}
	if stop != nil && stop.Less(c.Start) {
		return false
	}
	return true
}

func clampRange(c *commit.Commit, start, stop *frame.Index) (frame.Index, frame.Index) {
	lo, hi := c.Start, c.Stop
	if start != nil && start.Compare(lo) > 0 {
		lo = *start
	}
	if stop != nil && stop.Compare(hi) < 0 {
		hi = *stop
	}
	return lo, hi
}

func applyClosed(f *frame.Frame, start, stop *frame.Index, closed Closed) *frame.Frame {
	lo, hi := 0, f.Len()
	if start != nil && (closed == ClosedRight || closed == ClosedNeither) {
		lo = f.SearchIndexRight(*start)
	}
	if stop != nil && (closed == ClosedLeft || closed == ClosedNeither) {
		hi = f.SearchIndex(*stop)
		if hi < lo {
			hi = lo
		}
	}
	return f.Slice(lo, hi)
}

func emptyColumns(sc *schema.Schema) map[string]frame.Column {
	cols := make(map[string]frame.Column, len(sc.Columns()))
	for _, c := range sc.Columns() {
		cols[c.Name] = frame.Column{Type: c.Type}
	}
	return cols
}
