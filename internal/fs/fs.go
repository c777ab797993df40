package fs

import (
	"io"
	"os"
	"path/filepath"
)

// File is a file opened for writing.
type File interface {
	io.WriteCloser
	Name() string
	Sync() error
}

// FileSystem abstracts the file operations used to persist grids.
type FileSystem interface {
	CreateTemp(dir, pattern string) (File, error)
	Rename(oldpath, newpath string) error
	Remove(name string) error
	MkdirAll(path string, perm os.FileMode) error
	Stat(name string) (os.FileInfo, error)
}

// LocalFS implements FileSystem using the os package.
type LocalFS struct{}

func (LocalFS) CreateTemp(dir, pattern string) (File, error) {
	return os.CreateTemp(dir, pattern)
}

func (LocalFS) Rename(oldpath, newpath string) error  { return os.Rename(oldpath, newpath) }
func (LocalFS) Remove(name string) error              { return os.Remove(name) }
func (LocalFS) Stat(name string) (os.FileInfo, error) { return os.Stat(name) }
func (LocalFS) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

// Default is the local file system.
var Default FileSystem = LocalFS{}

// CreateAtomic creates the parent directories of path and a temporary file
// next to it. Commit the file with Commit or drop it with Abort.
func CreateAtomic(fsys FileSystem, path string) (File, error) {
	dir := filepath.Dir(path)
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return fsys.CreateTemp(dir, filepath.Base(path)+".*.tmp")
}

// Commit syncs and closes f and renames it to path. On error the temporary
// file is removed and path is untouched.
func Commit(fsys FileSystem, f File, path string) error {
	if err := f.Sync(); err != nil {
		_ = Abort(fsys, f)
		return err
	}
	if err := f.Close(); err != nil {
		_ = fsys.Remove(f.Name())
		return err
	}
	if err := fsys.Rename(f.Name(), path); err != nil {
		_ = fsys.Remove(f.Name())
		return err
	}
	return nil
}

// Abort closes and removes a temporary file.
func Abort(fsys FileSystem, f File) error {
	_ = f.Close()
	return fsys.Remove(f.Name())
}

// WriteFileAtomic replaces path with data. Readers see either the old
// contents or the new ones.
func WriteFileAtomic(fsys FileSystem, path string, data []byte) error {
	f, err := CreateAtomic(fsys, path)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = Abort(fsys, f)
		return err
	}
	return Commit(fsys, f, path)
}
