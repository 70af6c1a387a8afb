// Package changelog implements the append-only, lock-free revision graph
// that backs every series, collection, and repo (spec.md §4.5): a forest of
// revision keys under a Pod prefix, each naming its parent and the commit
// digest it carries directly in the key.
package changelog

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/lakota-db/lakota/digest"
	"github.com/lakota-db/lakota/pod"
)

// epochWidth is the fixed hex width of an epoch field, wide enough for a
// 64-bit microsecond timestamp; fixed width keeps lexicographic and
// numeric key ordering identical, exactly as the original implementation's
// fixed-width hextime does for its millisecond epochs.
const epochWidth = 16

// Phi is the zero sentinel: the parent of every root revision.
var Phi = formatNode(0, digest.Zero)

// Revision is one node of the changelog: a parent node reference and this
// revision's own (epoch, digest) node.
type Revision struct {
	Parent     string
	Epoch      uint64
	CommitHash digest.Digest
}

// Key is the revision's Pod path, "<parent>.<epoch>-<digest>".
func (r Revision) Key() string {
	return r.Parent + "." + formatNode(r.Epoch, r.CommitHash)
}

// Child is this revision's own node string, usable as another revision's
// Parent.
func (r Revision) Child() string {
	return formatNode(r.Epoch, r.CommitHash)
}

func formatNode(epoch uint64, d digest.Digest) string {
	return fmt.Sprintf("%0*x-%s", epochWidth, epoch, d.String())
}

func parseNode(s string) (epoch uint64, d digest.Digest, err error) {
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return 0, digest.Digest{}, fmt.Errorf("changelog: malformed node %q", s)
	}
	epoch, err = strconv.ParseUint(parts[0], 16, 64)
	if err != nil {
		return 0, digest.Digest{}, fmt.Errorf("changelog: malformed epoch in %q: %w", s, err)
	}
	d, err = digest.Parse(parts[1])
	if err != nil {
		return 0, digest.Digest{}, fmt.Errorf("changelog: malformed digest in %q: %w", s, err)
	}
	return epoch, d, nil
}

func parseRevision(path string) (Revision, error) {
	parts := strings.SplitN(path, ".", 2)
	if len(parts) != 2 {
		return Revision{}, fmt.Errorf("changelog: malformed revision key %q", path)
	}
	epoch, d, err := parseNode(parts[1])
	if err != nil {
		return Revision{}, err
	}
	return Revision{Parent: parts[0], Epoch: epoch, CommitHash: d}, nil
}

// Append writes a new revision with the given parent node string
// (Phi for a root) carrying commitDigest, timestamped at epoch (caller
// supplies a strictly-increasing-within-process microsecond clock reading;
// see clock.go). The write is idempotent: an identical (epoch, digest) pair
// under the same parent collapses to a single Pod key.
func Append(ctx context.Context, p pod.Pod, parent string, commitDigest digest.Digest, epoch uint64) (Revision, error) {
	rev := Revision{Parent: parent, Epoch: epoch, CommitHash: commitDigest}
	if err := p.Put(ctx, rev.Key(), nil); err != nil {
		return Revision{}, fmt.Errorf("changelog: append revision: %w", err)
	}
	return rev, nil
}

// All lists and parses every revision under p.
func All(ctx context.Context, p pod.Pod) ([]Revision, error) {
	paths, err := p.Walk(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("changelog: walk: %w", err)
	}
	revs := make([]Revision, 0, len(paths))
	for _, path := range paths {
		rev, err := parseRevision(path)
		if err != nil {
			return nil, err
		}
		revs = append(revs, rev)
	}
	return revs, nil
}

// Heads returns every revision that is not itself named as some other
// revision's parent. A healthy changelog has exactly one head; more than
// one means the series has diverged.
func Heads(ctx context.Context, p pod.Pod) ([]Revision, error) {
	revs, err := All(ctx, p)
	if err != nil {
		return nil, err
	}
	isParent := make(map[string]bool, len(revs))
	for _, r := range revs {
		isParent[r.Parent] = true
	}
	var heads []Revision
	for _, r := range revs {
		if !isParent[r.Child()] {
			heads = append(heads, r)
		}
	}
	return heads, nil
}

// Log returns every revision, newest first (by epoch, ties broken by
// commit digest), matching the original implementation's display order.
func Log(ctx context.Context, p pod.Pod) ([]Revision, error) {
	revs, err := All(ctx, p)
	if err != nil {
		return nil, err
	}
	sort.Slice(revs, func(i, j int) bool {
		if revs[i].Epoch != revs[j].Epoch {
			return revs[i].Epoch > revs[j].Epoch
		}
		return revs[i].CommitHash.String() > revs[j].CommitHash.String()
	})
	return revs, nil
}

// Walk follows parent pointers from head's node string back to the root
// (Phi), returning revisions oldest-first when reverse is false and
// newest-first (the natural walk-from-head order) when reverse is true.
func Walk(ctx context.Context, p pod.Pod, head string, reverse bool) ([]Revision, error) {
	revs, err := All(ctx, p)
	if err != nil {
		return nil, err
	}
	byChild := make(map[string]Revision, len(revs))
	for _, r := range revs {
		byChild[r.Child()] = r
	}
	var chain []Revision
	node := head
	for node != Phi {
		r, ok := byChild[node]
		if !ok {
			return nil, fmt.Errorf("changelog: broken chain at node %q", node)
		}
		chain = append(chain, r)
		node = r.Parent
	}
	if !reverse {
		for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
			chain[i], chain[j] = chain[j], chain[i]
		}
	}
	return chain, nil
}
