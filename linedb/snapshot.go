package linedb

import (
	"bufio"
	"fmt"
	"io"

	"github.com/kjk/linedb/u"
	"github.com/tidwall/pretty"
)

func (s *Store) snapshotText() (string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return dedupText(s.records)
}

// Export writes current records in log format (the same content
// compaction writes) to dstPath. The file is compressed based on
// extension: .gz, .zst, .br or .lz4. Other extensions are not compressed.
func (s *Store) Export(dstPath string) error {
	content, _ := s.snapshotText()
	if err := u.WriteFileMaybeCompressed(dstPath, []byte(content)); err != nil {
		return fmt.Errorf("linedb: export to %s failed: %w", dstPath, err)
	}
	return nil
}

// ReadSnapshot reads records from a file written by Export or from a
// log file, without opening it as a Store
func ReadSnapshot(path string) ([]Record, error) {
	d, err := u.ReadFileMaybeCompressed(path)
	if err != nil {
		return nil, fmt.Errorf("linedb: failed to read snapshot: %w", err)
	}
	return parseLog(path, string(d))
}

// DumpRecords writes records to w, one per line.
// If indent is true, structured records are pretty-printed.
func DumpRecords(w io.Writer, records []Record, indent bool) error {
	bw := bufio.NewWriter(w)
	for i := range records {
		r := &records[i]
		if indent && !r.raw {
			// Pretty adds the trailing newline
			bw.Write(pretty.Pretty([]byte(r.text)))
			continue
		}
		bw.WriteString(r.text)
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// Dump writes all records to w
func (s *Store) Dump(w io.Writer, indent bool) error {
	return DumpRecords(w, s.Find(All()), indent)
}
