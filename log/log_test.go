package log

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/assert"
)

func TestDailyFileNil(t *testing.T) {
	var w *DailyFile
	assert.NoError(t, w.WriteString("foo"))
	assert.NoError(t, w.Close())
}

func TestDailyFile(t *testing.T) {
	w := NewDailyFile(t.TempDir())
	assert.NoError(t, w.WriteString("line 1\n"))
	assert.NoError(t, w.WriteString("line 2\n"))
	assert.NoError(t, w.Close())

	d, err := os.ReadFile(w.Path(time.Now()))
	assert.NoError(t, err)
	assert.Equal(t, "line 1\nline 2\n", string(d))
}

func TestMarshalEvent(t *testing.T) {
	tm := time.UnixMilli(1704067200000)
	d, err := MarshalEvent("linedb.compact", tm)
	assert.NoError(t, err)
	assert.Equal(t, "linedb.compact 1704067200000 0\n", string(d))

	d, err = MarshalEvent("linedb.compact", tm, "records", 3, "path", "users.db")
	assert.NoError(t, err)
	s := string(d)
	assert.True(t, strings.HasPrefix(s, "linedb.compact 1704067200000 "), s)
	assert.True(t, strings.Contains(s, "records"), s)
	assert.True(t, strings.Contains(s, "users.db"), s)
	assert.True(t, strings.HasSuffix(s, "\n"), s)
}

func TestInitAndEvent(t *testing.T) {
	dir := t.TempDir()
	var logged []string
	Init(&Config{
		Dir: dir,
		OnLog: func(s string) {
			logged = append(logged, s)
		},
	})
	defer Close()

	Logf("hello %d\n", 5)
	Event("linedb.test", "n", 1)
	EventWithDuration("linedb.test", time.Millisecond, "n", 2)

	assert.Equal(t, []string{"hello 5\n"}, logged)
	d, err := os.ReadFile(eventsFile.Path(time.Now()))
	assert.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(d), "linedb.test "))
	assert.True(t, strings.Contains(string(d), "durmicro"))
}

func TestIfErrf(t *testing.T) {
	dir := t.TempDir()
	var logged []string
	Init(&Config{
		Dir: dir,
		OnLog: func(s string) {
			logged = append(logged, s)
		},
	})
	defer Close()

	assert.False(t, IfErrf(nil))
	assert.Equal(t, 0, len(logged))
	assert.True(t, IfErrf(os.ErrNotExist))
	assert.True(t, IfErrf(os.ErrClosed, "failed to close %s", "users.db"))
	assert.Equal(t, 2, len(logged))
	assert.True(t, strings.HasPrefix(logged[0], "file does not exist\n"), logged[0])
	assert.True(t, strings.HasPrefix(logged[1], "failed to close users.db\n"), logged[1])

	d, err := os.ReadFile(errorsFile.Path(time.Now()))
	assert.NoError(t, err)
	assert.True(t, strings.Contains(string(d), "failed to close users.db"))
}
