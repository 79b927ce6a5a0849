package u

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/assert"
)

func TestCodecForPath(t *testing.T) {
	tests := []struct {
		path string
		exp  Codec
	}{
		{"users.db", CodecNone},
		{"users.db.gz", CodecGzip},
		{"users.db.GZ", CodecGzip},
		{"users.zst", CodecZstd},
		{"users.zstd", CodecZstd},
		{"x/users.db.br", CodecBrotli},
		{"users.lz4", CodecLz4},
		{"users", CodecNone},
	}
	for _, test := range tests {
		assert.Equal(t, test.exp, CodecForPath(test.path), test.path)
	}
}

func TestCompressRoundtrip(t *testing.T) {
	d := []byte(strings.Repeat(`{"id":1,"name":"juan"}`+"\n", 200))
	dir := t.TempDir()
	for _, ext := range []string{".txt", ".gz", ".zst", ".br", ".lz4"} {
		path := filepath.Join(dir, "sub", "snapshot"+ext)
		err := WriteFileMaybeCompressed(path, d)
		assert.NoError(t, err, ext)
		size := FileSize(path)
		if ext == ".txt" {
			assert.Equal(t, int64(len(d)), size)
		} else {
			assert.True(t, size > 0 && size < int64(len(d)), "%s: size %d", ext, size)
		}
		d2, err := ReadFileMaybeCompressed(path)
		assert.NoError(t, err, ext)
		assert.True(t, bytes.Equal(d, d2), ext)
	}
}

func TestReadMissing(t *testing.T) {
	_, err := ReadFileMaybeCompressed(filepath.Join(t.TempDir(), "missing.gz"))
	assert.True(t, os.IsNotExist(err))
}
