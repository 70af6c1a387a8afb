package series

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakota-db/lakota/frame"
	"github.com/lakota-db/lakota/pod"
	"github.com/lakota-db/lakota/schema"
)

func registrySchema(t *testing.T) *schema.Schema {
	sc, err := schema.New(
		schema.Column{Name: "label", Type: schema.String, Index: true},
		schema.Column{Name: "digest", Type: schema.Bytes},
		schema.Column{Name: "meta", Type: schema.Bytes},
	)
	require.NoError(t, err)
	return sc
}

func TestKVSeriesUpsertReplacesOnlyMatchingLabel(t *testing.T) {
	ctx := context.Background()
	sc := registrySchema(t)
	k := OpenKV(sc, pod.NewMem(), pod.NewMem())

	_, err := k.Upsert(ctx, map[string]frame.Value{
		"label":  frame.StringValue("prices"),
		"digest": {Type: schema.Bytes, Bin: []byte("d1")},
		"meta":   {Type: schema.Bytes, Bin: nil},
	}, "alice")
	require.NoError(t, err)

	_, err = k.Upsert(ctx, map[string]frame.Value{
		"label":  frame.StringValue("volumes"),
		"digest": {Type: schema.Bytes, Bin: []byte("d2")},
		"meta":   {Type: schema.Bytes, Bin: nil},
	}, "alice")
	require.NoError(t, err)

	_, err = k.Upsert(ctx, map[string]frame.Value{
		"label":  frame.StringValue("prices"),
		"digest": {Type: schema.Bytes, Bin: []byte("d1-v2")},
		"meta":   {Type: schema.Bytes, Bin: nil},
	}, "bob")
	require.NoError(t, err)

	got, err := k.Read(ctx, nil, nil, nil, ClosedBoth, nil)
	require.NoError(t, err)
	require.Equal(t, 2, got.Len())

	byLabel := make(map[string][]byte)
	for i, l := range got.Cols["label"].Str {
		byLabel[l] = got.Cols["digest"].Bin[i]
	}
	assert.Equal(t, []byte("d1-v2"), byLabel["prices"])
	assert.Equal(t, []byte("d2"), byLabel["volumes"])
}
