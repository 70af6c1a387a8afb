package repo

import (
	"context"
	"fmt"
)

// Pack runs series.Series.Pack over every live series in every live
// collection (spec.md §10's supplemented Pack operation), coalescing small
// accumulated blobs into fewer larger commits (segment-backed above
// commit.EmbedThreshold rows, embedded otherwise) without
// discarding any history. It returns the number of series packed.
func (r *Repo) Pack(ctx context.Context, author string) (int, error) {
	entries, err := r.entries(ctx)
	if err != nil {
		return 0, err
	}
	packed := 0
	for _, ce := range entries {
		c := r.open(ce.Digest)
		all, err := c.OpenAll(ctx)
		if err != nil {
			return packed, fmt.Errorf("repo: pack: collection %q: %w", ce.Label, err)
		}
		for label, s := range all {
			if _, err := s.Pack(ctx, author); err != nil {
				return packed, fmt.Errorf("repo: pack: collection %q series %q: %w", ce.Label, label, err)
			}
			packed++
		}
	}
	return packed, nil
}
