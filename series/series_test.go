package series

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakota-db/lakota/changelog"
	"github.com/lakota-db/lakota/commit"
	"github.com/lakota-db/lakota/frame"
	"github.com/lakota-db/lakota/pod"
	"github.com/lakota-db/lakota/schema"
)

func testSchema(t *testing.T) *schema.Schema {
	sc, err := schema.New(
		schema.Column{Name: "timestamp", Type: schema.TimestampS, Index: true},
		schema.Column{Name: "value", Type: schema.Float64},
	)
	require.NoError(t, err)
	return sc
}

// mkCols builds [lo, hi) rows with value = index * mul, so overlapping
// writes with distinct mul are easy to tell apart in a merged read.
func mkCols(lo, hi int64, mul float64) map[string]frame.Column {
	var ts []int64
	var vs []float64
	for i := lo; i < hi; i++ {
		ts = append(ts, i)
		vs = append(vs, float64(i)*mul)
	}
	return map[string]frame.Column{
		"timestamp": {Type: schema.TimestampS, Int64: ts},
		"value":     {Type: schema.Float64, Float64: vs},
	}
}

func idx(v int64) *frame.Index {
	return &frame.Index{Values: []frame.Value{frame.Int64Value(schema.TimestampS, v)}}
}

func newTestSeries(t *testing.T) (*Series, pod.Pod, pod.Pod) {
	sc := testSchema(t)
	blobs := pod.NewMem()
	log := pod.NewMem()
	return Open(sc, blobs, log), blobs, log
}

func TestWriteAndReadRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestSeries(t)

	_, err := s.Write(ctx, mkCols(0, 100, 1), "alice")
	require.NoError(t, err)

	got, err := s.Read(ctx, nil, nil, nil, ClosedBoth, nil)
	require.NoError(t, err)
	require.Equal(t, 100, got.Len())
	assert.Equal(t, int64(0), got.Cols["timestamp"].Int64[0])
	assert.Equal(t, int64(99), got.Cols["timestamp"].Int64[99])
	assert.Equal(t, float64(42), got.Cols["value"].Float64[42])
}

func TestWriteEmptyFrameIsNoop(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestSeries(t)

	rev1, err := s.Write(ctx, mkCols(0, 10, 1), "alice")
	require.NoError(t, err)

	rev2, err := s.Write(ctx, mkCols(0, 0, 1), "alice")
	require.NoError(t, err)
	assert.Equal(t, rev1.Key(), rev2.Key(), "writing an empty frame returns the unchanged head")
}

func TestReadLastWriteWinsOnOverlap(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestSeries(t)

	_, err := s.Write(ctx, mkCols(0, 10, 1), "alice") // rows 0..9, value = i
	require.NoError(t, err)
	_, err = s.Write(ctx, mkCols(5, 15, 100), "bob") // rows 5..14, value = i*100
	require.NoError(t, err)

	got, err := s.Read(ctx, nil, nil, nil, ClosedBoth, nil)
	require.NoError(t, err)
	require.Equal(t, 15, got.Len(), "0..14 with rows 5..9 deduplicated, not doubled")

	for i, ts := range got.Cols["timestamp"].Int64 {
		v := got.Cols["value"].Float64[i]
		if ts >= 5 {
			assert.Equal(t, float64(ts)*100, v, "overlapping rows resolve to the newer write")
		} else {
			assert.Equal(t, float64(ts), v, "non-overlapping rows keep the original write")
		}
	}
}

func TestReadRangeAndClosedPolicy(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestSeries(t)

	_, err := s.Write(ctx, mkCols(0, 20, 1), "alice")
	require.NoError(t, err)

	both, err := s.Read(ctx, idx(5), idx(10), nil, ClosedBoth, nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 6, 7, 8, 9, 10}, both.Cols["timestamp"].Int64)

	neither, err := s.Read(ctx, idx(5), idx(10), nil, ClosedNeither, nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{6, 7, 8, 9}, neither.Cols["timestamp"].Int64)

	left, err := s.Read(ctx, idx(5), idx(10), nil, ClosedLeft, nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 6, 7, 8, 9}, left.Cols["timestamp"].Int64)

	right, err := s.Read(ctx, idx(5), idx(10), nil, ClosedRight, nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{6, 7, 8, 9, 10}, right.Cols["timestamp"].Int64)
}

func TestReadBeforeEpochSeesEarlierState(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestSeries(t)

	rev1, err := s.Write(ctx, mkCols(0, 10, 1), "alice")
	require.NoError(t, err)
	_, err = s.Write(ctx, mkCols(5, 15, 100), "bob")
	require.NoError(t, err)

	before := rev1.Epoch
	got, err := s.Read(ctx, nil, nil, &before, ClosedBoth, nil)
	require.NoError(t, err)
	require.Equal(t, 10, got.Len())
	assert.Equal(t, float64(7), got.Cols["value"].Float64[7], "bob's later write is not yet visible")
}

func TestMergeConvergesDivergedHeads(t *testing.T) {
	ctx := context.Background()
	s, blobs, log := newTestSeries(t)
	sc := testSchema(t)

	cA, err := commit.Build(ctx, blobs, sc, mustFrame(t, sc, mkCols(0, 10, 1)), "a", 1)
	require.NoError(t, err)
	dA, err := putCommit(ctx, blobs, sc, cA)
	require.NoError(t, err)
	_, err = changelog.Append(ctx, log, changelog.Phi, dA, 1)
	require.NoError(t, err)

	cB, err := commit.Build(ctx, blobs, sc, mustFrame(t, sc, mkCols(5, 15, 100)), "b", 2)
	require.NoError(t, err)
	dB, err := putCommit(ctx, blobs, sc, cB)
	require.NoError(t, err)
	_, err = changelog.Append(ctx, log, changelog.Phi, dB, 2)
	require.NoError(t, err)

	heads, err := changelog.Heads(ctx, log)
	require.NoError(t, err)
	require.Len(t, heads, 2, "two independent roots diverge")

	newHeads, err := s.Merge(ctx, "merger")
	require.NoError(t, err)
	require.Len(t, newHeads, 2)

	for _, h := range newHeads {
		c, err := getCommit(ctx, blobs, sc, h.CommitHash)
		require.NoError(t, err)
		f, err := c.Frame(ctx, blobs, sc, nil)
		require.NoError(t, err)
		for i, ts := range f.Cols["timestamp"].Int64 {
			v := f.Cols["value"].Float64[i]
			if ts >= 5 {
				assert.Equal(t, float64(ts)*100, v, "converged view favours the higher-epoch write everywhere")
			}
		}
	}

	again, err := s.Merge(ctx, "merger")
	require.NoError(t, err)
	assert.Len(t, again, 2, "re-merging a converged head set still leaves one head per branch")
}

func TestDefragLinearisesHistoryWithoutChangingContent(t *testing.T) {
	ctx := context.Background()
	s, _, log := newTestSeries(t)

	_, err := s.Write(ctx, mkCols(0, 10, 1), "alice")
	require.NoError(t, err)
	_, err = s.Write(ctx, mkCols(10, 20, 1), "alice")
	require.NoError(t, err)
	_, err = s.Write(ctx, mkCols(20, 30, 1), "alice")
	require.NoError(t, err)

	before, err := changelog.Log(ctx, log)
	require.NoError(t, err)
	require.Len(t, before, 3)

	before2, err := s.Read(ctx, nil, nil, nil, ClosedBoth, nil)
	require.NoError(t, err)

	_, err = s.Defrag(ctx, "defrag")
	require.NoError(t, err)

	after, err := changelog.Log(ctx, log)
	require.NoError(t, err)
	assert.Len(t, after, 1, "defrag collapses history into a single commit under threshold")

	after2, err := s.Read(ctx, nil, nil, nil, ClosedBoth, nil)
	require.NoError(t, err)
	assert.Equal(t, before2.Cols["timestamp"].Int64, after2.Cols["timestamp"].Int64)
	assert.Equal(t, before2.Cols["value"].Float64, after2.Cols["value"].Float64)
}

func TestSquashPreservesRecentRevisionsAndCollapsesOld(t *testing.T) {
	ctx := context.Background()
	s, _, log := newTestSeries(t)

	_, err := s.Write(ctx, mkCols(0, 10, 1), "alice")
	require.NoError(t, err)
	_, err = s.Write(ctx, mkCols(10, 20, 1), "alice")
	require.NoError(t, err)
	rev3, err := s.Write(ctx, mkCols(20, 30, 1), "alice")
	require.NoError(t, err)

	cutoff := rev3.Epoch

	before, err := s.Read(ctx, nil, nil, nil, ClosedBoth, nil)
	require.NoError(t, err)

	_, err = s.Squash(ctx, cutoff, "squash")
	require.NoError(t, err)

	revs, err := changelog.Log(ctx, log)
	require.NoError(t, err)
	require.Len(t, revs, 2, "one squashed base commit plus the one revision at/after cutoff")

	var foundKept bool
	for _, r := range revs {
		if r.CommitHash == rev3.CommitHash {
			foundKept = true
		}
	}
	assert.True(t, foundKept, "the revision at cutoff keeps its original commit blob")

	after, err := s.Read(ctx, nil, nil, nil, ClosedBoth, nil)
	require.NoError(t, err)
	assert.Equal(t, before.Cols["timestamp"].Int64, after.Cols["timestamp"].Int64)
	assert.Equal(t, before.Cols["value"].Float64, after.Cols["value"].Float64)
}

func TestGCRemovesOnlyUnreachableBlobs(t *testing.T) {
	ctx := context.Background()
	s, blobs, _ := newTestSeries(t)

	_, err := s.Write(ctx, mkCols(0, int64(commit.EmbedThreshold)+1, 1), "alice")
	require.NoError(t, err)

	reach, err := s.Reachable(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, reach)

	require.NoError(t, blobs.Put(ctx, "aa/bb/orphan", []byte("garbage")))

	// First pass only soft-deletes (renames) the orphan; nothing is
	// permanently reclaimed yet, matching spec.md §10's grace window.
	deleted, err := s.GC(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)

	_, err = blobs.Get(ctx, "aa/bb/orphan")
	assert.Error(t, err, "orphan blob was renamed out from under its bare key")

	// A second pass finds the already-soft-deleted key past the (zero)
	// horizon and purges it for real.
	deleted, err = s.GC(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	for k := range reach {
		_, err := blobs.Get(ctx, k)
		assert.NoError(t, err, "reachable blob %s survives gc", k)
	}
}

func TestPackConsolidatesSequentialWritesIntoOneCommit(t *testing.T) {
	ctx := context.Background()
	s, _, log := newTestSeries(t)

	for i := int64(0); i < 5; i++ {
		_, err := s.Write(ctx, mkCols(i, i+1, 1), "alice")
		require.NoError(t, err)
	}

	before, err := changelog.Log(ctx, log)
	require.NoError(t, err)
	require.Len(t, before, 5, "five sequential single-row writes chain into five revisions")

	beforeRead, err := s.Read(ctx, nil, nil, nil, ClosedBoth, nil)
	require.NoError(t, err)

	newHeads, err := s.Pack(ctx, "packer")
	require.NoError(t, err)
	require.Len(t, newHeads, 1)

	after, err := changelog.Log(ctx, log)
	require.NoError(t, err)
	assert.Len(t, after, 6, "pack appends one consolidated commit without discarding the originals")

	c, err := getCommit(ctx, s.Blobs, s.Schema, newHeads[0].CommitHash)
	require.NoError(t, err)
	f, err := c.Frame(ctx, s.Blobs, s.Schema, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, f.Len(), "the packed commit alone covers the whole chain's range")

	afterRead, err := s.Read(ctx, nil, nil, nil, ClosedBoth, nil)
	require.NoError(t, err)
	assert.Equal(t, beforeRead.Cols["value"].Float64, afterRead.Cols["value"].Float64, "pack never changes materialised content")
}

func mustFrame(t *testing.T, sc *schema.Schema, cols map[string]frame.Column) *frame.Frame {
	f, err := frame.New(sc, cols)
	require.NoError(t, err)
	return f
}
