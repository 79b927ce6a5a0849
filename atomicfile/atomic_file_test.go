package atomicfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert"
)

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.Mode().IsRegular()
}

func TestWriteFile(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "users.db")
	err := WriteFile(dst, []byte("line 1\n"))
	assert.NoError(t, err)
	d, err := os.ReadFile(dst)
	assert.NoError(t, err)
	assert.Equal(t, "line 1\n", string(d))

	// replaces existing content
	err = WriteFile(dst, []byte("line 2\n"))
	assert.NoError(t, err)
	d, err = os.ReadFile(dst)
	assert.NoError(t, err)
	assert.Equal(t, "line 2\n", string(d))

	// no temporary files left behind
	entries, err := os.ReadDir(filepath.Dir(dst))
	assert.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriteAndClose(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "out.txt")
	f, err := New(dst)
	assert.NoError(t, err)
	assert.True(t, fileExists(f.tmpPath))
	assert.False(t, fileExists(dst))

	n, err := f.WriteString("foo")
	assert.NoError(t, err)
	assert.Equal(t, 3, n)
	err = f.Close()
	assert.NoError(t, err)
	assert.False(t, fileExists(f.tmpPath))
	assert.True(t, fileExists(dst))

	// calling Close twice is a no-op
	assert.NoError(t, f.Close())
	// so is Cancel after Close
	f.Cancel()
	assert.True(t, fileExists(dst))
}

func TestCancel(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "out.txt")
	err := os.WriteFile(dst, []byte("old"), 0644)
	assert.NoError(t, err)

	f, err := New(dst)
	assert.NoError(t, err)
	_, err = f.Write([]byte("new"))
	assert.NoError(t, err)
	f.Cancel()
	assert.False(t, fileExists(f.tmpPath))

	_, err = f.Write([]byte("more"))
	assert.True(t, errors.Is(err, ErrCancelled))
	assert.True(t, errors.Is(f.Close(), ErrCancelled))

	d, err := os.ReadFile(dst)
	assert.NoError(t, err)
	assert.Equal(t, "old", string(d))
}

func TestSimulatedError(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "out.txt")
	f, err := New(dst)
	assert.NoError(t, err)
	_, err = f.Write([]byte("foo"))
	assert.NoError(t, err)
	errSimulated := errors.New("simulated")
	f.err = errSimulated
	assert.Equal(t, errSimulated, f.Close())
	assert.False(t, fileExists(f.tmpPath))
	assert.False(t, fileExists(dst))
	// second Close returns the same error
	assert.Equal(t, errSimulated, f.Close())
}

func TestMissingDir(t *testing.T) {
	// fail early if the file can't be created in the end
	dst := filepath.Join(t.TempDir(), "foo", "bar.txt")
	f, err := New(dst)
	assert.Error(t, err)
	assert.Nil(t, f)
}
