package blobstore

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

// RateLimitedStore throttles the bytes moved through an inner BlobStore.
// Reads and writes share one token bucket.
type RateLimitedStore struct {
	inner   BlobStore
	limiter *rate.Limiter
}

// NewRateLimitedStore limits inner to bytesPerSec. The burst equals one
// second of traffic. A non-positive rate disables limiting.
func NewRateLimitedStore(inner BlobStore, bytesPerSec int) *RateLimitedStore {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if bytesPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(bytesPerSec), bytesPerSec)
	}
	return &RateLimitedStore{inner: inner, limiter: limiter}
}

// wait blocks until n bytes may pass. Requests larger than the burst are
// split.
func (s *RateLimitedStore) wait(ctx context.Context, n int) error {
	if s.limiter.Limit() == rate.Inf {
		return nil
	}
	burst := s.limiter.Burst()
	for n > 0 {
		chunk := min(n, burst)
		if err := s.limiter.WaitN(ctx, chunk); err != nil {
			return err
		}
		n -= chunk
	}
	return nil
}

func (s *RateLimitedStore) Open(ctx context.Context, name string) (Blob, error) {
	b, err := s.inner.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return &rateLimitedBlob{Blob: b, store: s}, nil
}

func (s *RateLimitedStore) Create(ctx context.Context, name string) (WritableBlob, error) {
	w, err := s.inner.Create(ctx, name)
	if err != nil {
		return nil, err
	}
	return &rateLimitedWriter{WritableBlob: w, store: s, ctx: ctx}, nil
}

func (s *RateLimitedStore) Put(ctx context.Context, name string, data []byte) error {
	if err := s.wait(ctx, len(data)); err != nil {
		return err
	}
	return s.inner.Put(ctx, name, data)
}

func (s *RateLimitedStore) Delete(ctx context.Context, name string) error {
	return s.inner.Delete(ctx, name)
}

func (s *RateLimitedStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}

type rateLimitedBlob struct {
	Blob
	store *RateLimitedStore
}

func (b *rateLimitedBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if err := b.store.wait(ctx, len(p)); err != nil {
		return 0, err
	}
	return b.Blob.ReadAt(ctx, p, off)
}

func (b *rateLimitedBlob) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	r, err := b.Blob.ReadRange(ctx, off, length)
	if err != nil {
		return nil, err
	}
	return &rateLimitedReader{ReadCloser: r, store: b.store, ctx: ctx}, nil
}

type rateLimitedReader struct {
	io.ReadCloser
	store *RateLimitedStore
	ctx   context.Context
}

func (r *rateLimitedReader) Read(p []byte) (int, error) {
	n, err := r.ReadCloser.Read(p)
	if n > 0 {
		if werr := r.store.wait(r.ctx, n); werr != nil {
			return n, werr
		}
	}
	return n, err
}

type rateLimitedWriter struct {
	WritableBlob
	store *RateLimitedStore
	ctx   context.Context
}

func (w *rateLimitedWriter) Write(p []byte) (int, error) {
	if err := w.store.wait(w.ctx, len(p)); err != nil {
		return 0, err
	}
	return w.WritableBlob.Write(p)
}
