package linedb

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/kjk/linedb/log"
	"github.com/kjk/linedb/u"
)

func backupPath(path string) string {
	return path + ".bak.db"
}

// restoreBackup puts the backup written by compaction in place of
// a missing log. A backup next to an existing log is left alone,
// the next compaction overwrites it
func restoreBackup(path string) error {
	bak := backupPath(path)
	if u.FileExists(path) || !u.FileExists(bak) {
		return nil
	}
	log.Logf("linedb: %s is missing, restoring from %s\n", path, bak)
	if err := os.Rename(bak, path); err != nil {
		return fmt.Errorf("linedb: failed to restore backup %s: %w", bak, err)
	}
	return nil
}

// loadRecords reads the log at path. A missing file is an empty store
func loadRecords(path string) ([]Record, error) {
	if err := restoreBackup(path); err != nil {
		return nil, err
	}
	d, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("linedb: failed to read log: %w", err)
	}
	return parseLog(path, string(d))
}

// liveLine is a line of the log that wasn't deleted (yet)
type liveLine struct {
	text    string
	lineNo  int
	deleted bool
}

// parseLog replays the log. Lines are a set of texts: a save adds text
// to the set (no-op if already there), a delete removes it (no-op if
// not there). The last entry for a given text wins.
// Surviving lines are returned in order of first insertion.
func parseLog(path string, content string) ([]Record, error) {
	var lines []*liveLine
	live := map[string]*liveLine{}
	lineNo := 0
	for len(content) > 0 {
		lineNo++
		var line string
		if idx := strings.IndexByte(content, '\n'); idx >= 0 {
			line, content = content[:idx], content[idx+1:]
		} else {
			line, content = content, ""
		}
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			continue
		}
		if text, ok := strings.CutPrefix(line, deletePrefix); ok {
			if l := live[text]; l != nil {
				l.deleted = true
				delete(live, text)
			}
			continue
		}
		if live[line] != nil {
			continue
		}
		l := &liveLine{text: line, lineNo: lineNo}
		live[line] = l
		lines = append(lines, l)
	}

	records := make([]Record, 0, len(live))
	for _, l := range lines {
		if l.deleted {
			continue
		}
		r, err := parseLine(l.text)
		if err != nil {
			return nil, &CorruptionError{
				Path: path,
				Line: l.lineNo,
				Text: l.text,
				Err:  err,
			}
		}
		records = append(records, r)
	}
	log.Verbosef("linedb: replayed %d lines of %s, %d records\n", lineNo, path, len(records))
	return records, nil
}
