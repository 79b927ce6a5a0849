package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/assert"
	"github.com/kjk/linedb/linedb"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeTestDB(t *testing.T) string {
	path := filepath.Join(t.TempDir(), "users.db")
	content := `{"id":1,"name":"juan"}
{"id":2,"name":"ana"}
delete|{"id":1,"name":"juan"}
{"id":1,"name":"juan","age":31}
a raw line
`
	assert.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"dump", "stats", "compact", "export", "backup", "restore"} {
		t.Run(name, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{name})
			assert.NoError(t, err)
			assert.Equal(t, name, subCmd.Name())
		})
	}
	f := cmd.PersistentFlags().Lookup("verbose")
	assert.NotNil(t, f)
	assert.Equal(t, "v", f.Shorthand)
}

func TestDumpCommand(t *testing.T) {
	path := writeTestDB(t)
	out, err := runCmd(t, "dump", path)
	assert.NoError(t, err)
	exp := `{"id":2,"name":"ana"}
{"id":1,"name":"juan","age":31}
a raw line
`
	assert.Equal(t, exp, out)

	out, err = runCmd(t, "dump", "-i", path)
	assert.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "{\n  \"id\": 2,\n"))

	// dump doesn't change the file
	d, err := os.ReadFile(path)
	assert.NoError(t, err)
	assert.Equal(t, 5, strings.Count(string(d), "\n"))
}

func TestStatsCommand(t *testing.T) {
	path := writeTestDB(t)
	out, err := runCmd(t, "stats", path)
	assert.NoError(t, err)
	assert.True(t, strings.Contains(out, "lines:   5\n"), out)
	assert.True(t, strings.Contains(out, "records: 3\n"), out)
	assert.True(t, strings.Contains(out, "garbage: 40.0%\n"), out)
}

func TestCompactAndExportCommands(t *testing.T) {
	path := writeTestDB(t)
	_, err := runCmd(t, "compact", path)
	assert.NoError(t, err)
	d, err := os.ReadFile(path)
	assert.NoError(t, err)
	assert.Equal(t, 3, strings.Count(string(d), "\n"))

	dst := filepath.Join(t.TempDir(), "snap.db.zst")
	out, err := runCmd(t, "export", path, dst)
	assert.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "exported 3 records"), out)
	records, err := linedb.ReadSnapshot(dst)
	assert.NoError(t, err)
	assert.Equal(t, 3, len(records))

	// missing files are not created
	_, err = runCmd(t, "compact", filepath.Join(t.TempDir(), "missing.db"))
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "linedb.yaml")
	content := `backup:
  access: key
  secret: secret
  bucket: my-bucket
  endpoint: s3.example.com
  prefix: backups/
`
	assert.NoError(t, os.WriteFile(path, []byte(content), 0644))
	t.Setenv("LINEDB_BACKUP_SECRET", "")
	c, err := loadConfig(path)
	assert.NoError(t, err)
	assert.Equal(t, "my-bucket", c.Backup.Bucket)
	assert.Equal(t, "backups/", c.Backup.Prefix)
	assert.Equal(t, 7, c.Keep)
	assert.NoError(t, c.Backup.Validate())

	t.Setenv("LINEDB_BACKUP_SECRET", "from-env")
	c, err = loadConfig(path)
	assert.NoError(t, err)
	assert.Equal(t, "from-env", c.Backup.Secret)

	_, err = runCmd(t, "backup", "--config", filepath.Join(t.TempDir(), "none.yaml"), path)
	assert.Error(t, err)
}
