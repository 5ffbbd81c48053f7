package varstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mokctl/internal/efi"
)

func TestFileStorePersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "vars.json")

	s1, err := OpenFileStore(path)
	require.NoError(t, err)
	require.NoError(t, s1.Set(ctx, efi.MokNew, efi.NVBS, []byte("payload")))

	s2, err := OpenFileStore(path)
	require.NoError(t, err)
	v, err := s2.Get(ctx, efi.MokNew)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), v.Data)
	assert.Equal(t, efi.NVBS, v.Attrs)
}

func TestFileStoreMissingFileStartsEmpty(t *testing.T) {
	s, err := OpenFileStore(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)

	_, err = s.Get(context.Background(), efi.MokNew)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStoreDeleteThenReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "vars.json")

	s1, err := OpenFileStore(path)
	require.NoError(t, err)
	require.NoError(t, s1.Set(ctx, efi.MokDel, efi.NVBS, []byte("x")))
	require.NoError(t, s1.Delete(ctx, efi.MokDel))

	s2, err := OpenFileStore(path)
	require.NoError(t, err)
	_, err = s2.Get(ctx, efi.MokDel)
	assert.ErrorIs(t, err, ErrNotFound)
}
