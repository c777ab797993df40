// Package mmap maps grid files read-only into memory.
//
// Decoding a mapped grid reads the container straight from the page cache
// without an intermediate copy:
//
//	m, err := mmap.Open("dy.pgrd")
//	if err != nil { ... }
//	defer m.Close()
//	_ = m.Advise(mmap.AccessSequential)
//	data := m.Bytes()
//
// Unix systems use mmap(2) and madvise(2); Windows uses
// CreateFileMapping and MapViewOfFile; other platforms fall back to reading
// the file into memory.
//
// A Mapping is safe for concurrent reads. Callers must not touch the slice
// returned by Bytes after Close.
package mmap
