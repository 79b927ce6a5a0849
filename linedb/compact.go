package linedb

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kjk/linedb/atomicfile"
	"github.com/kjk/linedb/log"
	"github.com/zeebo/xxh3"
)

// dedupText serializes records one per line, skipping texts already seen.
// Equality is literal: objects with the same fields in a different
// order are different lines.
func dedupText(records []*Record) (string, int) {
	seen := make(map[uint64][]string, len(records))
	var sb strings.Builder
	n := 0
	for i := range records {
		text := records[i].text
		h := xxh3.HashString(text)
		dup := false
		for _, s := range seen[h] {
			if s == text {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		seen[h] = append(seen[h], text)
		sb.WriteString(text)
		sb.WriteByte('\n')
		n++
	}
	return sb.String(), n
}

// compact rewrites the log to contain only current records.
// It's a no-op if another compaction is running.
func (s *Store) compact() error {
	if !s.compacting.CompareAndSwap(false, true) {
		return nil
	}
	defer s.compacting.Store(false)

	timeStart := time.Now()
	// take the lock before looking at records. A line appended to the old
	// file after the snapshot would be lost by the swap
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.release()

	s.mu.Lock()
	content, nLines := dedupText(s.records)
	nRecords := len(s.records)
	s.mu.Unlock()

	// the backup is complete before the log is touched so that crashing
	// in the middle leaves a copy for restoreBackup
	bak := backupPath(s.path)
	if err := atomicfile.WriteFile(bak, []byte(content)); err != nil {
		return fmt.Errorf("linedb: failed to write backup: %w", err)
	}

	err := s.log.close()
	s.log = nil
	if err == nil {
		err = atomicfile.WriteFile(s.path, []byte(content))
	}
	// reopen even if writing failed, the old file (or the backup) is still valid
	l, errOpen := openAppendLog(s.path, s.opts.SyncWrite)
	s.log = l
	if err != nil {
		return fmt.Errorf("linedb: failed to rewrite log: %w", err)
	}
	if errOpen != nil {
		return errOpen
	}

	s.mu.Lock()
	s.dirty = 0
	s.compactions++
	s.mu.Unlock()

	if err := os.Remove(bak); err != nil {
		log.Errorf("linedb: failed to remove backup %s: %v\n", bak, err)
	}

	dur := time.Since(timeStart)
	log.Verbosef("linedb: compacted %s: %d records, %d lines in %s\n", s.path, nRecords, nLines, dur)
	log.EventWithDuration("linedb.compact", dur, "path", s.path, "records", nRecords, "lines", nLines)
	return nil
}
