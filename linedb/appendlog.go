package linedb

import (
	"fmt"
	"os"
	"path/filepath"
)

// entry is a single line of the log
type entry struct {
	deleted bool
	text    string
}

// format of the log line:
// [delete|]<text>\n
// text is either raw text or JSON
func (e entry) encode() []byte {
	n := len(e.text) + 1
	if e.deleted {
		n += len(deletePrefix)
	}
	d := make([]byte, 0, n)
	if e.deleted {
		d = append(d, deletePrefix...)
	}
	d = append(d, e.text...)
	return append(d, '\n')
}

// appendLog is the log file opened for appending.
// Callers serialize writes and close with Store.lock.
type appendLog struct {
	path string
	file *os.File
	// if true, will call file.Sync() after every write
	sync bool
}

// openAppendLog opens path for appending, creating the file and
// its directory if they don't exist
func openAppendLog(path string, sync bool) (*appendLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("linedb: failed to create directory for %s: %w", path, err)
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("linedb: failed to open log: %w", err)
	}
	return &appendLog{
		path: path,
		file: file,
		sync: sync,
	}, nil
}

// write appends a line in a single Write() so that concurrent appends
// don't interleave within a line
func (l *appendLog) write(e entry) error {
	if l == nil || l.file == nil {
		return ErrClosed
	}
	if _, err := l.file.Write(e.encode()); err != nil {
		return fmt.Errorf("linedb: failed to append to %s: %w", l.path, err)
	}
	if l.sync {
		if err := l.file.Sync(); err != nil {
			return fmt.Errorf("linedb: failed to sync %s: %w", l.path, err)
		}
	}
	return nil
}

func (l *appendLog) close() error {
	if l == nil || l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
