package linedb

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert"
	"github.com/kjk/linedb/u"
)

func recordTexts(records []Record) []string {
	res := make([]string, len(records))
	for i, r := range records {
		res[i] = r.Text()
	}
	return res
}

func TestParseLog(t *testing.T) {
	tests := []struct {
		content string
		exp     []string
	}{
		{"", []string{}},
		{"\n\n\n", []string{}},
		{"a\nb\n", []string{"a", "b"}},
		// no trailing newline
		{"a\nb", []string{"a", "b"}},
		{"a\r\nb\r\n", []string{"a", "b"}},
		// duplicates collapse, first position is kept
		{"a\nb\na\n", []string{"a", "b"}},
		{"a\nb\ndelete|a\n", []string{"b"}},
		// deleting what's not there is a no-op
		{"delete|x\na\n", []string{"a"}},
		// delete followed by save brings it back, at the end
		{"a\nb\ndelete|a\na\n", []string{"b", "a"}},
		// whitespace in JSON is normalized
		{"{ \"id\": 1 }\n[1, 2]\n", []string{`{"id":1}`, `[1,2]`}},
		// JSON only if the line starts with a bracket
		{" {not json\n", []string{" {not json"}},
		{"delete|{\"id\":1}\n{\"id\":1}\ndelete|{\"id\":1}\n", []string{}},
	}
	for _, test := range tests {
		records, err := parseLog("test.db", test.content)
		assert.NoError(t, err, "%q", test.content)
		assert.Equal(t, test.exp, recordTexts(records), "%q", test.content)
	}
}

func TestParseLogCorruption(t *testing.T) {
	content := "{\"id\":1}\nraw line\n{\"id\":2,\n"
	_, err := parseLog("test.db", content)
	assert.True(t, errors.Is(err, ErrCorrupt))
	var corruptErr *CorruptionError
	assert.True(t, errors.As(err, &corruptErr))
	assert.Equal(t, 3, corruptErr.Line)
	assert.Equal(t, "{\"id\":2,", corruptErr.Text)

	// a corrupt line that was deleted is not an error
	content = "[1,\ndelete|[1,\n"
	records, err := parseLog("test.db", content)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(records))
}

func TestOpenCorruptFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	err := os.WriteFile(path, []byte("{\"a\":1}\n{broken\n"), 0644)
	assert.NoError(t, err)
	s, err := Open(path, nil)
	assert.True(t, errors.Is(err, ErrCorrupt))
	assert.Nil(t, s)
	// file is left alone
	d, err := os.ReadFile(path)
	assert.NoError(t, err)
	assert.Equal(t, "{\"a\":1}\n{broken\n", string(d))
}

// a plain JSON-lines file (e.g. a log) can be opened as a store
func TestOpenPlainLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.log")
	content := "{\"id\":1,\"ev\":\"start\"}\nplain text line\n{\"id\":2,\"ev\":\"stop\"}\n\n"
	assert.NoError(t, os.WriteFile(path, []byte(content), 0644))
	s, err := Open(path, nil)
	assert.NoError(t, err)
	defer s.Close()
	assert.Equal(t, 3, s.Len())
	assert.True(t, s.Exists(ByID(2)))
	assert.True(t, s.Exists(ByValue(Raw("plain text line"))))
	// compacted on open
	assert.Equal(t, 3, len(readLines(t, path)))
}

func TestRestoreBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	bak := backupPath(path)
	// crash after the backup was written and the log was removed
	assert.NoError(t, os.WriteFile(bak, []byte("{\"id\":1}\nx\n"), 0644))
	s, err := Open(path, nil)
	assert.NoError(t, err)
	defer s.Close()
	assert.Equal(t, 2, s.Len())
	assert.False(t, u.FileExists(bak))
}

func TestStaleBackupIgnored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	bak := backupPath(path)
	assert.NoError(t, os.WriteFile(path, []byte("current\n"), 0644))
	assert.NoError(t, os.WriteFile(bak, []byte("stale\n"), 0644))
	s, err := Open(path, nil)
	assert.NoError(t, err)
	defer s.Close()
	assert.Equal(t, []string{"current"}, recordTexts(s.Find(nil)))
	assert.False(t, u.FileExists(bak))
}
