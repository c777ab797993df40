package blobstore

import (
	"bytes"
	"context"

	"github.com/hupe1980/pinegrid/internal/cache"
)

// CachingStore wraps a BlobStore and keeps whole blobs in an LRU cache.
// Grids are immutable once written, so a cached blob stays valid until it
// is overwritten or deleted through the same CachingStore.
type CachingStore struct {
	inner BlobStore
	cache *cache.LRU
}

// NewCachingStore creates a CachingStore holding at most capacity bytes.
func NewCachingStore(inner BlobStore, capacity int64) *CachingStore {
	return &CachingStore{
		inner: inner,
		cache: cache.NewLRU(capacity),
	}
}

// Open serves the blob from the cache, fetching it in full on a miss.
func (s *CachingStore) Open(ctx context.Context, name string) (Blob, error) {
	if data, ok := s.cache.Get(name); ok {
		return &memoryBlob{data: data}, nil
	}

	data, err := ReadAll(ctx, s.inner, name)
	if err != nil {
		return nil, err
	}
	s.cache.Set(name, data)
	return &memoryBlob{data: data}, nil
}

// Create passes through to the inner store and invalidates name on Close.
func (s *CachingStore) Create(ctx context.Context, name string) (WritableBlob, error) {
	w, err := s.inner.Create(ctx, name)
	if err != nil {
		return nil, err
	}
	return &invalidatingBlob{WritableBlob: w, invalidate: func() { s.cache.Invalidate(name) }}, nil
}

// Put writes through and caches the new contents.
func (s *CachingStore) Put(ctx context.Context, name string, data []byte) error {
	s.cache.Invalidate(name)
	if err := s.inner.Put(ctx, name, data); err != nil {
		return err
	}
	s.cache.Set(name, bytes.Clone(data))
	return nil
}

// Delete removes the blob from the cache and the inner store.
func (s *CachingStore) Delete(ctx context.Context, name string) error {
	s.cache.Invalidate(name)
	return s.inner.Delete(ctx, name)
}

// List passes through to the inner store.
func (s *CachingStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}

// Stats returns the cache hit and miss counts.
func (s *CachingStore) Stats() (hits, misses int64) {
	return s.cache.Stats()
}

type invalidatingBlob struct {
	WritableBlob
	invalidate func()
}

func (b *invalidatingBlob) Close() error {
	defer b.invalidate()
	return b.WritableBlob.Close()
}
