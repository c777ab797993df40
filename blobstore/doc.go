// Package blobstore abstracts where grid files live.
//
// A BlobStore holds named, immutable blobs. pinegrid.Save and pinegrid.Load
// move grids through any implementation:
//
//   - LocalStore: a directory, memory-mapped reads, atomic writes
//   - MemoryStore: in-process, for tests and pipelines
//   - minio.Store: MinIO and other S3-compatible servers
//   - s3.Store: Amazon S3 with ranged reads and multipart uploads
//
// Wrappers compose with any of them:
//
//   - CachingStore keeps recently loaded grids in memory
//   - RateLimitedStore throttles transfer bandwidth
//
// Custom backends implement:
//
//	type BlobStore interface {
//	    Open(ctx, name) (Blob, error)
//	    Create(ctx, name) (WritableBlob, error)
//	    Put(ctx, name, data) error
//	    Delete(ctx, name) error
//	    List(ctx, prefix) ([]string, error)
//	}
package blobstore
