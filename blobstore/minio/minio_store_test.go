package minio

import (
	"context"
	"io"
	"os"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/pinegrid/blobstore"
)

func TestStore_Keys(t *testing.T) {
	s := NewStore(nil, "bucket", "grids/")
	assert.Equal(t, "grids/dy.pgrd", s.key("dy.pgrd"))
	assert.Equal(t, "dy.pgrd", s.name("grids/dy.pgrd"))
	assert.Equal(t, "lhc/dy.pgrd", s.name("grids/lhc/dy.pgrd"))

	s = NewStore(nil, "bucket", "")
	assert.Equal(t, "dy.pgrd", s.key("dy.pgrd"))
	assert.Equal(t, "dy.pgrd", s.name("dy.pgrd"))
}

func TestMinioWritableBlob_CloseTwice(t *testing.T) {
	pr, pw := io.Pipe()
	b := &minioWritableBlob{pw: pw, done: make(chan error, 1)}
	go func() {
		_, err := io.ReadAll(pr)
		b.done <- err
	}()

	_, err := b.Write([]byte("grid"))
	require.NoError(t, err)
	require.NoError(t, b.Close())
	require.Error(t, b.Close())
	require.NoError(t, b.Abort())
}

// TestStore_Integration needs a MinIO server; set MINIO_ENDPOINT to run it.
func TestStore_Integration(t *testing.T) {
	endpoint := os.Getenv("MINIO_ENDPOINT")
	if endpoint == "" {
		t.Skip("MINIO_ENDPOINT not set")
	}
	bucket := "test-pinegrid"

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
		Secure: false,
	})
	require.NoError(t, err)

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, bucket)
	require.NoError(t, err)
	if !exists {
		require.NoError(t, client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))
	}

	store := NewStore(client, bucket, "test-prefix/")

	data := []byte("hello minio grid")
	require.NoError(t, store.Put(ctx, "dy.pgrd", data))

	got, err := blobstore.ReadAll(ctx, store, "dy.pgrd")
	require.NoError(t, err)
	assert.Equal(t, data, got)

	blob, err := store.Open(ctx, "dy.pgrd")
	require.NoError(t, err)
	buf := make([]byte, 5)
	n, err := blob.ReadAt(ctx, buf, 6)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "minio", string(buf))
	require.NoError(t, blob.Close())

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Contains(t, names, "dy.pgrd")

	wb, err := store.Create(ctx, "stream.pgrd")
	require.NoError(t, err)
	_, err = wb.Write([]byte("streamed data"))
	require.NoError(t, err)
	require.NoError(t, wb.Close())

	blob, err = store.Open(ctx, "stream.pgrd")
	require.NoError(t, err)
	assert.Equal(t, int64(13), blob.Size())

	require.NoError(t, store.Delete(ctx, "dy.pgrd"))
	require.NoError(t, store.Delete(ctx, "stream.pgrd"))
	_, err = store.Open(ctx, "dy.pgrd")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}
