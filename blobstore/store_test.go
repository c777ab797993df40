package blobstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pfs "github.com/hupe1980/pinegrid/internal/fs"
)

func writeBlob(t *testing.T, s BlobStore, name string, data []byte) {
	t.Helper()
	w, err := s.Create(context.Background(), name)
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Sync())
	require.NoError(t, w.Close())
}

// exerciseStore runs the contract every BlobStore implementation shares.
func exerciseStore(t *testing.T, s BlobStore) {
	ctx := context.Background()
	data := []byte("hello world, this is a grid blob")

	writeBlob(t, s, "grids/dy.pgrd", data)
	require.NoError(t, s.Put(ctx, "grids/ttbar.pgrd.lz4", []byte("0123456789")))
	require.NoError(t, s.Put(ctx, "other/readme", nil))

	blob, err := s.Open(ctx, "grids/dy.pgrd")
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), blob.Size())

	buf := make([]byte, 5)
	n, err := blob.ReadAt(ctx, buf, 6)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "world", string(buf))

	n, err = blob.ReadAt(ctx, make([]byte, 10), int64(len(data)-4))
	assert.Equal(t, 4, n)
	assert.ErrorIs(t, err, io.EOF)

	r, err := blob.ReadRange(ctx, 13, 4)
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, "this", string(got))

	r, err = blob.ReadRange(ctx, int64(len(data)-2), 10)
	require.NoError(t, err)
	got, err = io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, "ob", string(got))

	_, err = blob.ReadRange(ctx, 1000, 5)
	assert.ErrorIs(t, err, io.EOF)
	require.NoError(t, blob.Close())

	all, err := ReadAll(ctx, s, "grids/dy.pgrd")
	require.NoError(t, err)
	assert.Equal(t, data, all)

	empty, err := ReadAll(ctx, s, "other/readme")
	require.NoError(t, err)
	assert.Empty(t, empty)

	names, err := s.List(ctx, "grids/")
	require.NoError(t, err)
	assert.Equal(t, []string{"grids/dy.pgrd", "grids/ttbar.pgrd.lz4"}, names)

	names, err = s.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, names, 3)

	require.NoError(t, s.Delete(ctx, "grids/dy.pgrd"))
	require.NoError(t, s.Delete(ctx, "grids/dy.pgrd"))

	_, err = s.Open(ctx, "grids/dy.pgrd")
	assert.ErrorIs(t, err, ErrNotFound)

	names, err = s.List(ctx, "grids/")
	require.NoError(t, err)
	assert.Equal(t, []string{"grids/ttbar.pgrd.lz4"}, names)
}

func TestLocalStore(t *testing.T) {
	exerciseStore(t, NewLocalStore(t.TempDir()))
}

func TestLocalStore_AtomicOverwrite(t *testing.T) {
	dir := t.TempDir()
	s := NewLocalStore(dir)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "a.pgrd", []byte("old")))

	w, err := s.Create(ctx, "a.pgrd")
	require.NoError(t, err)
	_, err = w.Write([]byte("new contents"))
	require.NoError(t, err)

	// Until Close the old contents stay visible and the partial file is
	// not listed.
	got, err := ReadAll(ctx, s, "a.pgrd")
	require.NoError(t, err)
	assert.Equal(t, "old", string(got))
	names, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.pgrd"}, names)

	require.NoError(t, w.Close())
	got, err = ReadAll(ctx, s, "a.pgrd")
	require.NoError(t, err)
	assert.Equal(t, "new contents", string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLocalStore_FailedPut(t *testing.T) {
	dir := t.TempDir()
	s := NewLocalStore(dir)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "a.pgrd", []byte("old")))

	ffs := pfs.NewFaultyFS(nil)
	ffs.AddRule("a.pgrd", pfs.Fault{FailAfterBytes: -1, FailOnSync: true})
	s.fs = ffs

	require.ErrorIs(t, s.Put(ctx, "a.pgrd", []byte("new contents")), pfs.ErrInjected)

	got, err := ReadAll(ctx, s, "a.pgrd")
	require.NoError(t, err)
	assert.Equal(t, "old", string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLocalStore_Mappable(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "g"), []byte("mapped"), 0o600))

	b, err := NewLocalStore(dir).Open(context.Background(), "g")
	require.NoError(t, err)
	defer b.Close()

	m, ok := b.(Mappable)
	require.True(t, ok)
	data, err := m.Bytes()
	require.NoError(t, err)
	assert.Equal(t, "mapped", string(data))
}

func TestLocalStore_MissingRoot(t *testing.T) {
	names, err := NewLocalStore(filepath.Join(t.TempDir(), "absent")).List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStore_PutCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	data := []byte("abc")
	require.NoError(t, s.Put(ctx, "k", data))
	data[0] = 'x'

	got, err := ReadAll(ctx, s, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

type countingStore struct {
	BlobStore
	opens int
}

func (c *countingStore) Open(ctx context.Context, name string) (Blob, error) {
	c.opens++
	return c.BlobStore.Open(ctx, name)
}

func TestCachingStore(t *testing.T) {
	exerciseStore(t, NewCachingStore(NewMemoryStore(), 1<<20))
}

func TestCachingStore_ServesFromCache(t *testing.T) {
	ctx := context.Background()
	inner := &countingStore{BlobStore: NewMemoryStore()}
	require.NoError(t, inner.Put(ctx, "g", []byte("grid")))

	s := NewCachingStore(inner, 1<<10)
	for range 3 {
		got, err := ReadAll(ctx, s, "g")
		require.NoError(t, err)
		assert.Equal(t, "grid", string(got))
	}
	assert.Equal(t, 1, inner.opens)

	hits, misses := s.Stats()
	assert.Equal(t, int64(2), hits)
	assert.Equal(t, int64(1), misses)

	// Writes through the wrapper invalidate the cached copy.
	writeBlob(t, s, "g", []byte("grid v2"))
	got, err := ReadAll(ctx, s, "g")
	require.NoError(t, err)
	assert.Equal(t, "grid v2", string(got))
	assert.Equal(t, 2, inner.opens)

	require.NoError(t, s.Put(ctx, "g", []byte("grid v3")))
	got, err = ReadAll(ctx, s, "g")
	require.NoError(t, err)
	assert.Equal(t, "grid v3", string(got))
	assert.Equal(t, 2, inner.opens)
}

func TestRateLimitedStore(t *testing.T) {
	exerciseStore(t, NewRateLimitedStore(NewMemoryStore(), 1<<20))
	exerciseStore(t, NewRateLimitedStore(NewMemoryStore(), 0))
}

func TestRateLimitedStore_Cancelled(t *testing.T) {
	s := NewRateLimitedStore(NewMemoryStore(), 16)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Put(ctx, "g", make([]byte, 64))
	require.ErrorIs(t, err, context.Canceled)

	_, err = s.Open(context.Background(), "g")
	assert.ErrorIs(t, err, ErrNotFound)
}
