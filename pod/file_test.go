package pod

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilePODRoundTrip(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	p, err := NewFile(root)
	require.NoError(t, err)

	require.NoError(t, p.Put(ctx, "ab/cd/blob", []byte("payload")))
	data, err := p.Get(ctx, "ab/cd/blob")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)

	assert.FileExists(t, filepath.Join(root, "ab", "cd", "blob"))

	names, err := p.List(ctx, "ab")
	require.NoError(t, err)
	assert.Equal(t, []string{"cd"}, names)

	require.NoError(t, p.Delete(ctx, "ab/cd/blob"))
	_, err = p.Get(ctx, "ab/cd/blob")
	assert.Error(t, err)
}

func TestFilePODMove(t *testing.T) {
	ctx := context.Background()
	p, err := NewFile(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, p.Put(ctx, "from", []byte("x")))
	require.NoError(t, p.Move(ctx, "from", "to/renamed"))

	_, err = p.Get(ctx, "from")
	assert.Error(t, err)

	data, err := p.Get(ctx, "to/renamed")
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), data)
}
