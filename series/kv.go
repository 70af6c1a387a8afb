package series

import (
	"context"
	"fmt"

	"github.com/lakota-db/lakota/changelog"
	"github.com/lakota-db/lakota/frame"
	"github.com/lakota-db/lakota/pod"
	"github.com/lakota-db/lakota/schema"
)

// KVSeries is a series variant for label-keyed registries (the
// collection/repo registries of spec.md §4.7). Upsert writes one single-row
// commit through Series.Write; it does not read or merge the existing row.
// The replace-by-label effect comes from Series.Read, which keeps the
// newest row for each index tuple, so other labels written before or after
// are left untouched. KVSeries names this upsert-by-index use, matching the
// original implementation's series.py:KVSeries.
type KVSeries struct {
	*Series
}

// OpenKV wraps blobs/log as a KVSeries over sc.
func OpenKV(sc *schema.Schema, blobs, log pod.Pod) *KVSeries {
	return &KVSeries{Series: Open(sc, blobs, log)}
}

// Upsert writes a single row, keyed by its index columns, that replaces
// any existing row sharing the same index tuple. Non-index columns not
// present in values keep no prior value (registries always supply every
// column; a partial-column upsert is out of scope here).
func (k *KVSeries) Upsert(ctx context.Context, values map[string]frame.Value, author string) (changelog.Revision, error) {
	cols := make(map[string]frame.Column, len(values))
	for name, v := range values {
		cols[name] = singletonColumn(v)
	}
	rev, err := k.Series.Write(ctx, cols, author)
	if err != nil {
		return changelog.Revision{}, fmt.Errorf("kvseries: upsert: %w", err)
	}
	return rev, nil
}

func singletonColumn(v frame.Value) frame.Column {
	switch v.Type {
	case schema.Float64:
		return frame.Column{Type: v.Type, Float64: []float64{v.Float64}}
	case schema.Bool:
		return frame.Column{Type: v.Type, Bool: []bool{v.Bool}}
	case schema.String:
		return frame.Column{Type: v.Type, Str: []string{v.Str}}
	case schema.Bytes:
		return frame.Column{Type: v.Type, Bin: [][]byte{v.Bin}}
	default:
		return frame.Column{Type: v.Type, Int64: []int64{v.Int64}}
	}
}
