// Package fs abstracts the file operations behind atomic grid writes.
//
// [LocalFS] is the production implementation. [FaultyFS] wraps any
// [FileSystem] and injects write, sync, close or rename failures so tests
// can check that a failed write leaves the previous file intact:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule("dy.pgrd", fs.Fault{FailAfterBytes: 128})
//	err := fs.WriteFileAtomic(ffs, path, data) // fails, path unchanged
//
// The interfaces take no context.Context. Local file operations are not
// interruptible at the syscall level; remote stores use blobstore instead.
package fs
