package commit

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
	)
	require.NoError(t, err)
	return sc
}

func rangeFrame(t *testing.T, sc *schema.Schema, lo, hi int64) *frame.Frame {
	var ts []int64
	var vs []float64
	for i := lo; i < hi; i++ {
		ts = append(ts, i)
		vs = append(vs, float64(i))
	}
	f, err := frame.New(sc, map[string]frame.Column{
		"timestamp": {Type: schema.TimestampS, Int64: ts},
		"value":     {Type: schema.Float64, Float64: vs},
	})
	require.NoError(t, err)
	return f
}

func TestBuildEmbedsSmallFrame(t *testing.T) {
	ctx := context.Background()
	sc := testSchema(t)
	p := pod.NewMem()
	f := rangeFrame(t, sc, 0, 10)

	c, err := Build(ctx, p, sc, f, "alice", 100)
	require.NoError(t, err)
	assert.NotNil(t, c.Embedded)
	assert.True(t, c.Segment.IsZero())
	assert.Equal(t, 10, c.Length)

	keys, err := p.Walk(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, keys, "embedded commits write no segment blobs")

	got, err := c.Frame(ctx, p, sc, nil)
	require.NoError(t, err)
	assert.Equal(t, f.Cols["value"].Float64, got.Cols["value"].Float64)
}

func TestBuildWritesSegmentAboveThreshold(t *testing.T) {
	ctx := context.Background()
	sc := testSchema(t)
	p := pod.NewMem()
	f := rangeFrame(t, sc, 0, EmbedThreshold+1)

	c, err := Build(ctx, p, sc, f, "alice", 100)
	require.NoError(t, err)
	assert.Nil(t, c.Embedded)
	assert.False(t, c.Segment.IsZero())

	got, err := c.Frame(ctx, p, sc, nil)
	require.NoError(t, err)
	assert.Equal(t, f.Len(), got.Len())
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	ctx := context.Background()
	sc := testSchema(t)
	p := pod.NewMem()
	f := rangeFrame(t, sc, 5, 15)

	c, err := Build(ctx, p, sc, f, "bob", 42)
	require.NoError(t, err)

	data := Encode(c, sc)
	got, err := Decode(data, sc)
	require.NoError(t, err)

	assert.Equal(t, c.Length, got.Length)
	assert.Equal(t, c.Author, got.Author)
	assert.Equal(t, c.Timestamp, got.Timestamp)
	assert.Equal(t, 0, c.Start.Compare(got.Start))
	assert.Equal(t, 0, c.Stop.Compare(got.Stop))
	assert.Equal(t, c.Embedded, got.Embedded)
}

func idx(v int64) frame.Index {
	return frame.Index{Values: []frame.Value{frame.Int64Value(schema.TimestampS, v)}}
}

func TestIntersect(t *testing.T) {
	c := &Commit{Start: idx(10), Stop: idx(20)}

	assert.Equal(t, Disjoint, c.Intersect(idx(21), idx(30)))
	assert.Equal(t, Disjoint, c.Intersect(idx(0), idx(9)))
	assert.Equal(t, Equal, c.Intersect(idx(10), idx(20)))
	assert.Equal(t, Contains, c.Intersect(idx(12), idx(18)))
	assert.Equal(t, Contained, c.Intersect(idx(0), idx(30)))
	assert.Equal(t, OverlapLeft, c.Intersect(idx(15), idx(25)))
	assert.Equal(t, OverlapRight, c.Intersect(idx(0), idx(15)))
}
