package repo

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakota-db/lakota/frame"
	"github.com/lakota-db/lakota/pod"
	"github.com/lakota-db/lakota/schema"
)

func priceSchema(t *testing.T) *schema.Schema {
	sc, err := schema.New(
		schema.Column{Name: "timestamp", Type: schema.TimestampS, Index: true},
		schema.Column{Name: "value", Type: schema.Float64},
	)
	require.NoError(t, err)
	return sc
}

func newTestRepo() *Repo {
	return Open(pod.NewMem(), pod.NewMem(), pod.NewMem())
}

func TestCreateCollectionAndSeriesRoundTrip(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo()
	sc := priceSchema(t)

	c, err := r.Create(ctx, "market", "alice")
	require.NoError(t, err)

	s, err := c.Create(ctx, "prices", sc, "alice")
	require.NoError(t, err)
	_, err = s.Write(ctx, map[string]frame.Column{
		"timestamp": {Type: schema.TimestampS, Int64: []int64{1, 2, 3}},
		"value":     {Type: schema.Float64, Float64: []float64{1.5, 2.5, 3.5}},
	}, "alice")
	require.NoError(t, err)

	reopened, err := r.OpenCollection(ctx, "market")
	require.NoError(t, err)
	rs, err := reopened.OpenSeries(ctx, "prices")
	require.NoError(t, err)
	got, err := rs.Read(ctx, nil, nil, nil, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 2.5, 3.5}, got.Cols["value"].Float64)
}

func TestPullReplicatesCollectionsSeriesAndBlobs(t *testing.T) {
	ctx := context.Background()
	remote := newTestRepo()
	sc := priceSchema(t)

	c, err := remote.Create(ctx, "market", "alice")
	require.NoError(t, err)
	s, err := c.Create(ctx, "prices", sc, "alice")
	require.NoError(t, err)
	_, err = s.Write(ctx, map[string]frame.Column{
		"timestamp": {Type: schema.TimestampS, Int64: []int64{1, 2, 3, 4, 5}},
		"value":     {Type: schema.Float64, Float64: []float64{1, 2, 3, 4, 5}},
	}, "alice")
	require.NoError(t, err)

	local := newTestRepo()
	require.NoError(t, local.Pull(ctx, remote, 4))

	labels, err := local.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"market"}, labels)

	lc, err := local.OpenCollection(ctx, "market")
	require.NoError(t, err)
	ls, err := lc.OpenSeries(ctx, "prices")
	require.NoError(t, err)
	got, err := ls.Read(ctx, nil, nil, nil, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4, 5}, got.Cols["value"].Float64)

	// pulling again is a safe no-op: skip-if-present on both revisions and blobs
	require.NoError(t, local.Pull(ctx, remote, 4))
	got2, err := ls.Read(ctx, nil, nil, nil, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, got.Cols["value"].Float64, got2.Cols["value"].Float64)
}

func TestGCPreservesReachableBlobsAcrossCollections(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo()
	sc := priceSchema(t)

	c1, err := r.Create(ctx, "a", "alice")
	require.NoError(t, err)
	s1, err := c1.Create(ctx, "prices", sc, "alice")
	require.NoError(t, err)
	_, err = s1.Write(ctx, map[string]frame.Column{
		"timestamp": {Type: schema.TimestampS, Int64: []int64{1, 2, 3}},
		"value":     {Type: schema.Float64, Float64: []float64{1, 2, 3}},
	}, "alice")
	require.NoError(t, err)

	require.NoError(t, r.Blobs.Put(ctx, "aa/bb/orphan", []byte("garbage")))

	// First pass soft-deletes (renames) the orphan; second purges it.
	deleted, err := r.GC(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)
	deleted, err = r.GC(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	_, err = r.Blobs.Get(ctx, "aa/bb/orphan")
	assert.Error(t, err)

	got, err := s1.Read(ctx, nil, nil, nil, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, got.Cols["value"].Float64)
}

func TestPackLeavesContentUnchanged(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo()
	sc := priceSchema(t)

	c, err := r.Create(ctx, "market", "alice")
	require.NoError(t, err)
	s, err := c.Create(ctx, "prices", sc, "alice")
	require.NoError(t, err)
	for i := int64(0); i < 5; i++ {
		_, err = s.Write(ctx, map[string]frame.Column{
			"timestamp": {Type: schema.TimestampS, Int64: []int64{i}},
			"value":     {Type: schema.Float64, Float64: []float64{float64(i)}},
		}, "alice")
		require.NoError(t, err)
	}

	before, err := s.Read(ctx, nil, nil, nil, 0, nil)
	require.NoError(t, err)

	packed, err := r.Pack(ctx, "packer")
	require.NoError(t, err)
	assert.Equal(t, 1, packed)

	after, err := s.Read(ctx, nil, nil, nil, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, before.Cols["value"].Float64, after.Cols["value"].Float64)
}

func TestExportImportCSVRoundTrip(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo()
	sc := priceSchema(t)

	c, err := r.Create(ctx, "market", "alice")
	require.NoError(t, err)
	s, err := c.Create(ctx, "prices", sc, "alice")
	require.NoError(t, err)
	_, err = s.Write(ctx, map[string]frame.Column{
		"timestamp": {Type: schema.TimestampS, Int64: []int64{1, 2, 3}},
		"value":     {Type: schema.Float64, Float64: []float64{1.5, 2.5, 3.5}},
	}, "alice")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, ExportCSV(ctx, &buf, s))

	c2, err := r.Create(ctx, "market2", "alice")
	require.NoError(t, err)
	s2, err := c2.Create(ctx, "prices", sc, "alice")
	require.NoError(t, err)
	_, err = ImportCSV(ctx, bytes.NewReader(buf.Bytes()), s2, "alice")
	require.NoError(t, err)

	got, err := s2.Read(ctx, nil, nil, nil, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, got.Cols["timestamp"].Int64)
	assert.Equal(t, []float64{1.5, 2.5, 3.5}, got.Cols["value"].Float64)
}

func TestGCHonoursSafetyHorizonOnMemPOD(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo()
	require.NoError(t, r.Blobs.Put(ctx, "aa/bb/fresh", []byte("garbage")))

	deleted, err := r.GC(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, deleted, "an orphan blob younger than the horizon is left alone")
}
