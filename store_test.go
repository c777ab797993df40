package pinegrid

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/pinegrid/blobstore"
	"github.com/hupe1980/pinegrid/compress"
)

func TestSaveLoad(t *testing.T) {
	g := filledGrid(t)

	stores := map[string]blobstore.BlobStore{
		"Memory":  blobstore.NewMemoryStore(),
		"Local":   blobstore.NewLocalStore(t.TempDir()),
		"Caching": blobstore.NewCachingStore(blobstore.NewMemoryStore(), 1<<24),
	}

	for storeName, store := range stores {
		t.Run(storeName, func(t *testing.T) {
			for _, name := range []string{"dy.pgrd", "grids/dy.pgrd.lz4", "grids/dy.pgrd.zst"} {
				require.NoError(t, Save(t.Context(), store, name, g))

				raw, err := blobstore.ReadAll(t.Context(), store, name)
				require.NoError(t, err)
				assert.Equal(t, compress.FromName(name), compress.Detect(raw))

				loaded, err := Load(t.Context(), store, name)
				require.NoError(t, err)
				assert.True(t, g.Equal(loaded), name)
			}

			names, err := store.List(t.Context(), "grids/")
			require.NoError(t, err)
			assert.Equal(t, []string{"grids/dy.pgrd.lz4", "grids/dy.pgrd.zst"}, names)
		})
	}

	t.Run("Missing", func(t *testing.T) {
		metrics := &BasicMetricsCollector{}
		_, err := Load(t.Context(), blobstore.NewMemoryStore(), "nope.pgrd", WithMetricsCollector(metrics))
		assert.ErrorIs(t, err, ErrCodec)
		assert.ErrorIs(t, err, blobstore.ErrNotFound)
		assert.Equal(t, int64(1), metrics.GetStats().CodecErrors)
	})

	t.Run("Metrics", func(t *testing.T) {
		metrics := &BasicMetricsCollector{}
		g := newTestGrid(t, WithMetricsCollector(metrics))
		store := blobstore.NewMemoryStore()

		require.NoError(t, Save(t.Context(), store, "empty.pgrd", g))
		raw, err := blobstore.ReadAll(t.Context(), store, "empty.pgrd")
		require.NoError(t, err)
		assert.Equal(t, int64(len(raw)), metrics.GetStats().BytesWritten)
	})

	t.Run("Canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		store := blobstore.NewRateLimitedStore(blobstore.NewMemoryStore(), 16)
		err := Save(ctx, store, "slow.pgrd", g)
		assert.ErrorIs(t, err, ErrCodec)
	})
}
