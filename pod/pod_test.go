package pod

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemPODGetPutDelete(t *testing.T) {
	ctx := context.Background()
	p := NewMem()

	_, err := p.Get(ctx, "a")
	assert.Error(t, err)

	require.NoError(t, p.Put(ctx, "a", []byte("hello")))
	data, err := p.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	require.NoError(t, p.Delete(ctx, "a"))
	_, err = p.Get(ctx, "a")
	assert.Error(t, err)
}

func TestMemPODListAndWalk(t *testing.T) {
	ctx := context.Background()
	p := NewMem()
	require.NoError(t, p.Put(ctx, "ab/cd/blob1", []byte("x")))
	require.NoError(t, p.Put(ctx, "ab/ef/blob2", []byte("y")))
	require.NoError(t, p.Put(ctx, "gh/cd/blob3", []byte("z")))

	top, err := p.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"ab", "gh"}, top)

	inner, err := p.List(ctx, "ab")
	require.NoError(t, err)
	assert.Equal(t, []string{"cd", "ef"}, inner)

	all, err := p.Walk(ctx, "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"ab/cd/blob1", "ab/ef/blob2", "gh/cd/blob3"}, all)
}

func TestMemPODSubIsolatesPrefix(t *testing.T) {
	ctx := context.Background()
	root := NewMem()
	sub := root.Sub("series-1")

	require.NoError(t, sub.Put(ctx, "commit1", []byte("a")))
	_, err := root.Get(ctx, "commit1")
	assert.Error(t, err)

	data, err := root.Get(ctx, "series-1/commit1")
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), data)
}

// cachePodSpy wraps a Pod and records List/Walk calls so cache-fallthrough
// semantics can be asserted directly.
type cachePodSpy struct {
	Pod
	listCalls, walkCalls, getCalls int
}

func (s *cachePodSpy) Get(ctx context.Context, key string) ([]byte, error) {
	s.getCalls++
	return s.Pod.Get(ctx, key)
}

func (s *cachePodSpy) List(ctx context.Context, prefix string) ([]string, error) {
	s.listCalls++
	return s.Pod.List(ctx, prefix)
}

func (s *cachePodSpy) Walk(ctx context.Context, prefix string) ([]string, error) {
	s.walkCalls++
	return s.Pod.Walk(ctx, prefix)
}

func (s *cachePodSpy) Sub(name string) Pod { return &cachePodSpy{Pod: s.Pod.Sub(name)} }

func TestCachePODReadsFastThenPopulatesFromSlow(t *testing.T) {
	ctx := context.Background()
	fast := NewMem()
	slow := &cachePodSpy{Pod: NewMem()}
	c := NewCache(fast, slow)

	require.NoError(t, slow.Put(ctx, "k", []byte("v")))

	data, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), data)
	assert.Equal(t, 1, slow.getCalls, "slow queried once on cache miss")

	fastData, err := fast.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), fastData, "fast tier populated after miss")

	_, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 1, slow.getCalls, "second read served from fast, slow not consulted again")
}

func TestCachePODWritesFanOutToBothTiers(t *testing.T) {
	ctx := context.Background()
	fast, slow := NewMem(), NewMem()
	c := NewCache(fast, slow)

	require.NoError(t, c.Put(ctx, "k", []byte("v")))

	fv, err := fast.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), fv)

	sv, err := slow.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), sv)
}

func TestCachePODListAndWalkAlwaysHitSlow(t *testing.T) {
	ctx := context.Background()
	fast := NewMem()
	slow := &cachePodSpy{Pod: NewMem()}
	c := NewCache(fast, slow)

	require.NoError(t, slow.Put(ctx, "a/b", []byte("1")))
	require.NoError(t, fast.Put(ctx, "a/c", []byte("2")))

	names, err := c.List(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, names, "list reflects only slow, ignoring fast's partial state")
	assert.Equal(t, 1, slow.listCalls)

	_, err = c.Walk(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, slow.walkCalls)
}

func TestSoftDeleteAndGetTolerant(t *testing.T) {
	ctx := context.Background()
	p := NewMem()
	require.NoError(t, p.Put(ctx, "aa/bb/orphan", []byte("garbage")))

	at := time.Unix(1_700_000_000, 0)
	require.NoError(t, SoftDelete(ctx, p, "aa/bb/orphan", at))

	_, err := p.Get(ctx, "aa/bb/orphan")
	assert.Error(t, err, "bare key is gone once renamed")

	data, err := GetTolerant(ctx, p, "aa/bb/orphan")
	require.NoError(t, err, "GetTolerant falls back to the soft-deleted rename")
	assert.Equal(t, []byte("garbage"), data)

	names, err := p.List(ctx, "aa/bb")
	require.NoError(t, err)
	require.Len(t, names, 1)
	orig, gotAt, ok := ParseSoftDeleted(names[0])
	require.True(t, ok)
	assert.Equal(t, "orphan", orig)
	assert.True(t, gotAt.Equal(at))
}

func TestGetTolerantPropagatesOriginalErrorWhenNothingToFallBackTo(t *testing.T) {
	ctx := context.Background()
	p := NewMem()
	_, err := GetTolerant(ctx, p, "missing")
	assert.Error(t, err)
}
