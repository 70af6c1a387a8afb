package series

import (
	"context"
	"fmt"
	"time"

	"github.com/lakota-db/lakota/changelog"
	"github.com/lakota-db/lakota/commit"
	"github.com/lakota-db/lakota/frame"
	"github.com/lakota-db/lakota/pod"
	"github.com/lakota-db/lakota/segment"
)

// DefaultGCHorizon is the minimum age an unreachable blob must reach before
// gc will remove it, protecting a concurrent writer whose column/segment
// blobs are already durable but whose commit and revision are not yet
// (spec.md §4.6.5).
const DefaultGCHorizon = 60 * time.Second

// Merge converges a series' diverged heads (spec.md §4.6.3): for every
// current head it recomputes the materialised view over that head's own
// commit's (start, stop) — not the branch's whole history, just the range
// its most recent write touched — and appends a new commit carrying that
// view, parented off the head. Running Merge again on an already-converged
// head set is safe but not free: segment and column blobs are deduplicated
// by content, but each new commit records a fresh epoch as its timestamp,
// so every call writes a new commit blob and appends a redundant
// (defrag-cleanable) revision per head.
func (s *Series) Merge(ctx context.Context, author string) ([]changelog.Revision, error) {
	heads, err := changelog.Heads(ctx, s.Log)
	if err != nil {
		return nil, fmt.Errorf("series: merge: %w", err)
	}
	if len(heads) < 2 {
		return heads, nil
	}
	return s.rebuildHeads(ctx, heads, author, "merge", s.headOwnRange)
}

// Pack rebuilds the full historical range reachable from every current head
// into one fresh commit each (spec.md §10's supplemented Pack operation:
// defrag's blob-consolidation half without discarding old revisions). Unlike
// Merge it always uses the branch's whole covered range (chainRange), not
// just the head's own commit's range, so repeated small writes that
// individually stayed under commit.EmbedThreshold get coalesced into one
// larger commit (segment-backed once it holds more than
// commit.EmbedThreshold rows, embedded otherwise); and unlike Merge it runs unconditionally,
// not only when heads have diverged. Old revisions and blobs are left
// alone: point-in-time Read(before=...) queries predating a Pack keep
// working, and GC's Reachable walk (which follows every revision, not just
// heads) keeps the superseded blobs alive until a later Defrag/Squash
// actually discards them.
func (s *Series) Pack(ctx context.Context, author string) ([]changelog.Revision, error) {
	heads, err := changelog.Heads(ctx, s.Log)
	if err != nil {
		return nil, fmt.Errorf("series: pack: %w", err)
	}
	return s.rebuildHeads(ctx, heads, author, "pack", s.chainRange)
}

func (s *Series) headOwnRange(ctx context.Context, head changelog.Revision) (frame.Index, frame.Index, error) {
	orig, err := getCommit(ctx, s.Blobs, s.Schema, head.CommitHash)
	if err != nil {
		return frame.Index{}, frame.Index{}, fmt.Errorf("load head commit: %w", err)
	}
	return orig.Start, orig.Stop, nil
}

// rebuildHeads recomputes, for every head, the range rangeFor selects and
// appends a fresh commit+revision carrying that materialised view on top of
// it. Repeated calls are not blob-idempotent: segment.Write skips column and
// manifest blobs that already exist, but the commit carries the new epoch as
// its timestamp, so an already packed/merged head still gets a new commit
// blob with a new digest.
func (s *Series) rebuildHeads(ctx context.Context, heads []changelog.Revision, author, op string, rangeFor func(context.Context, changelog.Revision) (frame.Index, frame.Index, error)) ([]changelog.Revision, error) {
	newHeads := make([]changelog.Revision, 0, len(heads))
	for _, h := range heads {
		start, stop, err := rangeFor(ctx, h)
		if err != nil {
			return nil, fmt.Errorf("series: %s: %w", op, err)
		}
		view, err := s.Read(ctx, &start, &stop, nil, ClosedBoth, nil)
		if err != nil {
			return nil, fmt.Errorf("series: %s: materialise view: %w", op, err)
		}
		if view.Empty() {
			newHeads = append(newHeads, h)
			continue
		}
		epoch := changelog.NextEpoch()
		c, err := commit.Build(ctx, s.Blobs, s.Schema, view, author, int64(epoch))
		if err != nil {
			return nil, fmt.Errorf("series: %s: build commit: %w", op, err)
		}
		d, err := putCommit(ctx, s.Blobs, s.Schema, c)
		if err != nil {
			return nil, err
		}
		rev, err := changelog.Append(ctx, s.Log, h.Child(), d, epoch)
		if err != nil {
			return nil, fmt.Errorf("series: %s: append revision: %w", op, err)
		}
		newHeads = append(newHeads, rev)
	}
	return newHeads, nil
}

// chainRange returns the [min Start, max Stop] span covered by every commit
// reachable from head, across the whole chain rather than just head's own
// commit — a branch built from several sequential Writes has a head commit
// covering only its most recent batch, not the branch's full history.
func (s *Series) chainRange(ctx context.Context, head changelog.Revision) (frame.Index, frame.Index, error) {
	chain, err := changelog.Walk(ctx, s.Log, head.Child(), true)
	if err != nil {
		return frame.Index{}, frame.Index{}, fmt.Errorf("chain range: walk %s: %w", head.Child(), err)
	}
	var start, stop frame.Index
	for i, r := range chain {
		c, err := getCommit(ctx, s.Blobs, s.Schema, r.CommitHash)
		if err != nil {
			return frame.Index{}, frame.Index{}, fmt.Errorf("chain range: load commit %s: %w", r.CommitHash, err)
		}
		if i == 0 || c.Start.Less(start) {
			start = c.Start
		}
		if i == 0 || stop.Less(c.Stop) {
			stop = c.Stop
		}
	}
	return start, stop, nil
}

// Defrag rewrites the entire changelog into a linear chain of
// SplitThreshold-sized commits covering the whole materialised range
// (spec.md §4.6.4), then deletes the old revision keys. It operates over
// the flat revision log rather than per branch; a series with diverged
// heads should be Merge'd first, or Defrag simply linearises whichever
// winners Read would already have produced.
func (s *Series) Defrag(ctx context.Context, author string) (changelog.Revision, error) {
	return s.rewrite(ctx, author, nil)
}

// Squash is Defrag restricted to history older than cutoff (an epoch):
// revisions before cutoff are collapsed into a fresh base chain of
// SplitThreshold-sized commits (a single commit for smaller histories)
// preserving their materialised effect, while revisions at or after cutoff keep their
// own commit blobs, re-parented onto the squashed base (spec.md §4.6.4).
func (s *Series) Squash(ctx context.Context, cutoff uint64, author string) (changelog.Revision, error) {
	return s.rewrite(ctx, author, &cutoff)
}

// rewrite implements both Defrag (cutoff == nil) and Squash (cutoff set).
func (s *Series) rewrite(ctx context.Context, author string, cutoff *uint64) (changelog.Revision, error) {
	all, err := changelog.Log(ctx, s.Log) // newest first
	if err != nil {
		return changelog.Revision{}, fmt.Errorf("series: rewrite: %w", err)
	}
	if len(all) == 0 {
		return changelog.Revision{}, nil
	}

	var kept []changelog.Revision // revisions whose own commit survives unchanged, oldest first
	if cutoff != nil {
		for i := len(all) - 1; i >= 0; i-- {
			if all[i].Epoch >= *cutoff {
				kept = append(kept, all[i])
			}
		}
	}

	var before *uint64
	if cutoff != nil {
		c := *cutoff - 1
		before = &c
	}
	base, err := s.Read(ctx, nil, nil, before, ClosedBoth, nil)
	if err != nil {
		return changelog.Revision{}, fmt.Errorf("series: rewrite: materialise base: %w", err)
	}

	parent := changelog.Phi
	var last changelog.Revision
	haveLast := false
	if !base.Empty() {
		for _, chunk := range splitFrame(base, SplitThreshold) {
			epoch := changelog.NextEpoch()
			c, err := commit.Build(ctx, s.Blobs, s.Schema, chunk, author, int64(epoch))
			if err != nil {
				return changelog.Revision{}, fmt.Errorf("series: rewrite: build base commit: %w", err)
			}
			d, err := putCommit(ctx, s.Blobs, s.Schema, c)
			if err != nil {
				return changelog.Revision{}, err
			}
			last, err = changelog.Append(ctx, s.Log, parent, d, epoch)
			if err != nil {
				return changelog.Revision{}, fmt.Errorf("series: rewrite: append base revision: %w", err)
			}
			parent = last.Child()
			haveLast = true
		}
	}

	for _, r := range kept {
		epoch := changelog.NextEpoch()
		rev, err := changelog.Append(ctx, s.Log, parent, r.CommitHash, epoch)
		if err != nil {
			return changelog.Revision{}, fmt.Errorf("series: rewrite: re-append kept revision: %w", err)
		}
		parent = rev.Child()
		last = rev
		haveLast = true
	}
	if !haveLast {
		return changelog.Revision{}, nil
	}

	// Old revisions are only removed once the replacement chain above is
	// fully durable, so a crash mid-rewrite leaves the original history
	// intact rather than a half-written one.
	for _, r := range all {
		if err := s.Log.Delete(ctx, r.Key()); err != nil {
			return changelog.Revision{}, fmt.Errorf("series: rewrite: delete old revision %s: %w", r.Key(), err)
		}
	}
	return last, nil
}

// Reachable returns the set of Pod keys (commit, segment manifest, and
// column blobs) transitively reachable from every revision currently in
// this series' changelog, keyed by Pod key.
func (s *Series) Reachable(ctx context.Context) (map[string]bool, error) {
	revs, err := changelog.All(ctx, s.Log)
	if err != nil {
		return nil, fmt.Errorf("series: reachable: %w", err)
	}
	reach := make(map[string]bool, len(revs)*2)
	for _, r := range revs {
		reach[r.CommitHash.Key()] = true
		c, err := getCommit(ctx, s.Blobs, s.Schema, r.CommitHash)
		if err != nil {
			return nil, fmt.Errorf("series: reachable: load commit %s: %w", r.CommitHash, err)
		}
		if c.Embedded != nil {
			continue
		}
		keys, err := segment.ReachableKeys(ctx, s.Blobs, c.Segment)
		if err != nil {
			return nil, fmt.Errorf("series: reachable: segment %s: %w", c.Segment, err)
		}
		for _, k := range keys {
			reach[k] = true
		}
	}
	return reach, nil
}

// GC runs sweep over s.Blobs with this series' own reachable set: keys
// outside it that are old enough to clear horizon (spec.md §4.6.5's
// safety window against a concurrent writer) are soft-deleted on one pass
// and purged on a later one. Blobs whose age can't be determined (the
// backend doesn't implement pod.Stater) are left alone. It returns the
// number of blobs permanently removed. repo.GC does not call this; it calls
// Sweep once with a Reachable set unioned across every collection, series
// and registry of the repo.
func (s *Series) GC(ctx context.Context, horizon time.Duration) (int, error) {
	reach, err := s.Reachable(ctx)
	if err != nil {
		return 0, err
	}
	return sweep(ctx, s.Blobs, reach, horizon)
}

// Sweep is the shared, exported form of the deletion pass GC runs against
// a single series' own Reachable set: every key under p not present in
// reach and old enough to clear horizon is soft-deleted, and purged on a
// later pass (see sweep). repo.GC calls this
// directly against a shared blob Pod with a reach set unioned across every
// collection and series so a blob shared (by content-address) across
// series is never deleted while any of them still reference it.
func Sweep(ctx context.Context, p pod.Pod, reach map[string]bool, horizon time.Duration) (int, error) {
	return sweep(ctx, p, reach, horizon)
}

// sweep runs the two-phase soft-delete gc of spec.md §10 (grounded on the
// original implementation's repo.py:gc): a bare, unreachable key old enough
// to clear horizon is first renamed with a timestamp suffix rather than
// removed outright, giving a concurrent reader that resolved it from an
// older view a grace window to still find it via pod.GetTolerant; only a
// key already carrying that suffix, once the suffix's own timestamp clears
// horizon, is permanently deleted. It returns the number of keys
// permanently deleted this pass; soft-deletions performed this pass are not
// counted, since nothing was actually reclaimed yet.
func sweep(ctx context.Context, p pod.Pod, reach map[string]bool, horizon time.Duration) (int, error) {
	keys, err := p.Walk(ctx, "")
	if err != nil {
		return 0, fmt.Errorf("series: gc: walk: %w", err)
	}
	stater, canStat := p.(pod.Stater)
	if !canStat {
		return 0, nil
	}
	deleted := 0
	now := time.Now()
	for _, k := range keys {
		if orig, at, ok := pod.ParseSoftDeleted(k); ok {
			if reach[orig] {
				continue
			}
			if now.Sub(at) < horizon {
				continue
			}
			if err := p.Delete(ctx, k); err != nil {
				return deleted, fmt.Errorf("series: gc: purge %s: %w", k, err)
			}
			deleted++
			continue
		}
		if reach[k] {
			continue
		}
		mtime, err := stater.Stat(ctx, k)
		if err != nil {
			continue
		}
		if now.Sub(mtime) < horizon {
			continue
		}
		if err := pod.SoftDelete(ctx, p, k, now); err != nil {
			return deleted, fmt.Errorf("series: gc: soft delete %s: %w", k, err)
		}
	}
	return deleted, nil
}
