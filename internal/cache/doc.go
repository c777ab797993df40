// Package cache keeps recently loaded grid blobs in memory.
//
// LRU evicts the least recently used blobs once the byte capacity is
// exceeded. It backs blobstore.CachingStore, which avoids refetching grids
// from remote object stores.
package cache
