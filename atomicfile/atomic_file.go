package atomicfile

import (
	"errors"
	"io"
	"os"
	"path/filepath"
)

// ErrCancelled is returned by calls after Cancel()
var ErrCancelled = errors.New("atomicfile: cancelled")

var _ io.WriteCloser = &File{}

// File is written to a temporary file and renamed to its destination
// on Close.
type File struct {
	dstPath string
	dir     string
	tmp     *os.File
	tmpPath string
	// first error, returned from all subsequent calls
	err error
}

// New creates a temporary file next to path. The directory of path
// must exist.
func New(path string) (*File, error) {
	dir, name := filepath.Split(path)
	if name == "" {
		return nil, &os.PathError{Op: "open", Path: path, Err: os.ErrInvalid}
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	tmp, err := os.CreateTemp(dir, name+".tmp*")
	if err != nil {
		return nil, err
	}
	return &File{
		dstPath: path,
		dir:     dir,
		tmp:     tmp,
		tmpPath: tmp.Name(),
	}, nil
}

func (f *File) closed() bool {
	return f.tmp == nil
}

// fail remembers the first error and removes the temporary file
func (f *File) fail(err error) error {
	if err == nil {
		return nil
	}
	if f.err == nil {
		f.err = err
	}
	_ = f.Close()
	return err
}

func (f *File) Write(d []byte) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	n, err := f.tmp.Write(d)
	return n, f.fail(err)
}

func (f *File) WriteString(s string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	n, err := f.tmp.WriteString(s)
	return n, f.fail(err)
}

// Cancel removes the temporary file without touching the destination.
// It's a no-op after Close so it's meant to be deferred.
func (f *File) Cancel() {
	if f == nil || f.closed() {
		return
	}
	f.err = ErrCancelled
	_ = f.Close()
}

// Close syncs the temporary file and renames it to the destination.
// On error the temporary file is removed. Calling Close again returns
// the result of the first call.
func (f *File) Close() error {
	if f.closed() {
		return f.err
	}
	tmp := f.tmp
	f.tmp = nil

	// https://www.joeshaw.org/dont-defer-close-on-writable-files/
	err := tmp.Sync()
	if errClose := tmp.Close(); err == nil {
		err = errClose
	}
	if f.err == nil && err == nil {
		err = os.Rename(f.tmpPath, f.dstPath)
	}
	if f.err != nil || err != nil {
		_ = os.Remove(f.tmpPath)
		if f.err == nil {
			f.err = err
		}
		return f.err
	}

	// without syncing the directory the rename might not survive a crash.
	// errors are ignored, not all systems support it
	if dir, _ := os.Open(f.dir); dir != nil {
		_ = dir.Sync()
		_ = dir.Close()
	}
	return nil
}

// WriteFile atomically replaces path with d
func WriteFile(path string, d []byte) error {
	f, err := New(path)
	if err != nil {
		return err
	}
	defer f.Cancel()
	if _, err = f.Write(d); err != nil {
		return err
	}
	return f.Close()
}
