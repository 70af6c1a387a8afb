package changelog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakota-db/lakota/digest"
	"github.com/lakota-db/lakota/pod"
)

func TestAppendAndHeadsLinear(t *testing.T) {
	ctx := context.Background()
	p := pod.NewMem()

	r1, err := Append(ctx, p, Phi, digest.Sum([]byte("c1")), 1)
	require.NoError(t, err)
	r2, err := Append(ctx, p, r1.Child(), digest.Sum([]byte("c2")), 2)
	require.NoError(t, err)

	heads, err := Heads(ctx, p)
	require.NoError(t, err)
	require.Len(t, heads, 1)
	assert.Equal(t, r2.Child(), heads[0].Child())
}

func TestHeadsDetectsDivergence(t *testing.T) {
	ctx := context.Background()
	p := pod.NewMem()

	root, err := Append(ctx, p, Phi, digest.Sum([]byte("root")), 1)
	require.NoError(t, err)
	_, err = Append(ctx, p, root.Child(), digest.Sum([]byte("branch-a")), 2)
	require.NoError(t, err)
	_, err = Append(ctx, p, root.Child(), digest.Sum([]byte("branch-b")), 3)
	require.NoError(t, err)

	heads, err := Heads(ctx, p)
	require.NoError(t, err)
	assert.Len(t, heads, 2, "two concurrent children of the same parent both remain heads")
}

func TestAppendIsIdempotent(t *testing.T) {
	ctx := context.Background()
	p := pod.NewMem()

	d := digest.Sum([]byte("same"))
	_, err := Append(ctx, p, Phi, d, 5)
	require.NoError(t, err)
	_, err = Append(ctx, p, Phi, d, 5)
	require.NoError(t, err)

	revs, err := All(ctx, p)
	require.NoError(t, err)
	assert.Len(t, revs, 1, "identical (epoch, digest) collapses to one key")
}

func TestLogOrdersNewestFirst(t *testing.T) {
	ctx := context.Background()
	p := pod.NewMem()

	r1, err := Append(ctx, p, Phi, digest.Sum([]byte("c1")), 10)
	require.NoError(t, err)
	r2, err := Append(ctx, p, r1.Child(), digest.Sum([]byte("c2")), 20)
	require.NoError(t, err)

	log, err := Log(ctx, p)
	require.NoError(t, err)
	require.Len(t, log, 2)
	assert.Equal(t, r2.Epoch, log[0].Epoch)
	assert.Equal(t, r1.Epoch, log[1].Epoch)
}

func TestWalkFollowsParentChain(t *testing.T) {
	ctx := context.Background()
	p := pod.NewMem()

	r1, err := Append(ctx, p, Phi, digest.Sum([]byte("c1")), 1)
	require.NoError(t, err)
	r2, err := Append(ctx, p, r1.Child(), digest.Sum([]byte("c2")), 2)
	require.NoError(t, err)
	r3, err := Append(ctx, p, r2.Child(), digest.Sum([]byte("c3")), 3)
	require.NoError(t, err)

	chain, err := Walk(ctx, p, r3.Child(), true)
	require.NoError(t, err)
	require.Len(t, chain, 3)
	assert.Equal(t, r3.Epoch, chain[0].Epoch)
	assert.Equal(t, r1.Epoch, chain[2].Epoch)

	oldestFirst, err := Walk(ctx, p, r3.Child(), false)
	require.NoError(t, err)
	assert.Equal(t, r1.Epoch, oldestFirst[0].Epoch)
}

func TestNextEpochStrictlyIncreases(t *testing.T) {
	prev := NextEpoch()
	for i := 0; i < 100; i++ {
		next := NextEpoch()
		assert.Greater(t, next, prev)
		prev = next
	}
}
