package u

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert"
)

func TestCountLines(t *testing.T) {
	tests := []struct {
		s   string
		exp int
	}{
		{"", 0},
		{"\n\n", 0},
		{"a", 1},
		{"a\n", 1},
		{"a\r\nb", 2},
		{"a\n\nb\n\n", 2},
	}
	for _, test := range tests {
		assert.Equal(t, test.exp, CountLines([]byte(test.s)), "%q", test.s)
	}
}

func TestFileHelpers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	assert.False(t, PathExists(path))
	assert.Equal(t, int64(-1), FileSize(path))

	err := os.WriteFile(path, []byte("abc"), 0644)
	assert.NoError(t, err)
	assert.True(t, FileExists(path))
	assert.Equal(t, int64(3), FileSize(path))

	assert.True(t, PathExists(dir))
	assert.False(t, FileExists(dir))
}
