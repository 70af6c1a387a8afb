package segment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakota-db/lakota/frame"
	"github.com/lakota-db/lakota/pod"
	"github.com/lakota-db/lakota/schema"
)

func testSchema(t *testing.T) *schema.Schema {
	sc, err := schema.New(
		schema.Column{Name: "timestamp", Type: schema.TimestampS, Index: true},
		schema.Column{Name: "value", Type: schema.Float64},
		schema.Column{Name: "tag", Type: schema.String},
	)
	require.NoError(t, err)
	return sc
}

func testFrame(t *testing.T, sc *schema.Schema) *frame.Frame {
	f, err := frame.New(sc, map[string]frame.Column{
		"timestamp": {Type: schema.TimestampS, Int64: []int64{1, 2, 3, 4}},
		"value":     {Type: schema.Float64, Float64: []float64{1.5, 2.5, 3.5, 4.5}},
		"tag":       {Type: schema.String, Str: []string{"a", "b", "a", "b"}},
	})
	require.NoError(t, err)
	return f
}

func TestWriteReadRoundTrip(t *testing.T) {
	ctx := context.Background()
	p := pod.NewMem()
	sc := testSchema(t)
	f := testFrame(t, sc)

	d, err := Write(ctx, p, sc, f)
	require.NoError(t, err)

	got, err := Read(ctx, p, sc, d, nil, -1, -1)
	require.NoError(t, err)
	assert.Equal(t, f.Len(), got.Len())
	assert.Equal(t, f.Cols["timestamp"].Int64, got.Cols["timestamp"].Int64)
	assert.Equal(t, f.Cols["value"].Float64, got.Cols["value"].Float64)
	assert.Equal(t, f.Cols["tag"].Str, got.Cols["tag"].Str)
}

func TestReadSelectedColumns(t *testing.T) {
	ctx := context.Background()
	p := pod.NewMem()
	sc := testSchema(t)
	f := testFrame(t, sc)

	d, err := Write(ctx, p, sc, f)
	require.NoError(t, err)

	got, err := Read(ctx, p, sc, d, []string{"timestamp", "value"}, -1, -1)
	require.NoError(t, err)
	assert.Contains(t, got.Cols, "timestamp")
	assert.Contains(t, got.Cols, "value")
	assert.NotContains(t, got.Cols, "tag")
}

func TestReadRowSlice(t *testing.T) {
	ctx := context.Background()
	p := pod.NewMem()
	sc := testSchema(t)
	f := testFrame(t, sc)

	d, err := Write(ctx, p, sc, f)
	require.NoError(t, err)

	got, err := Read(ctx, p, sc, d, nil, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Len())
	assert.Equal(t, []int64{2, 3}, got.Cols["timestamp"].Int64)
}

func TestWriteDeduplicatesIdenticalColumnBlobs(t *testing.T) {
	ctx := context.Background()
	spyPod := &countingPod{Pod: pod.NewMem()}
	sc, err := schema.New(
		schema.Column{Name: "timestamp", Type: schema.TimestampS, Index: true},
		schema.Column{Name: "value", Type: schema.Float64},
	)
	require.NoError(t, err)
	f, err := frame.New(sc, map[string]frame.Column{
		"timestamp": {Type: schema.TimestampS, Int64: []int64{1, 2}},
		"value":     {Type: schema.Float64, Float64: []float64{1, 1}},
	})
	require.NoError(t, err)

	_, err = Write(ctx, spyPod, sc, f)
	require.NoError(t, err)

	before := spyPod.puts
	_, err = Write(ctx, spyPod, sc, f)
	require.NoError(t, err)
	assert.Equal(t, before, spyPod.puts, "identical content re-writes zero new blobs")
}

type countingPod struct {
	pod.Pod
	puts int
}

func (c *countingPod) Put(ctx context.Context, key string, data []byte) error {
	c.puts++
	return c.Pod.Put(ctx, key, data)
}

func (c *countingPod) Sub(name string) pod.Pod { return &countingPod{Pod: c.Pod.Sub(name)} }
