// Package linedb is an embeddable record store backed by a single
// append-only text file.
//
// All records live in memory. Every change appends lines to the file
// and the file is periodically rewritten (compacted) to hold only
// current records.
//
// # File Format
//
// One entry per line:
//
//	{"id":1,"name":"juan"}
//	a raw line of text
//	delete|{"id":1,"name":"juan"}
//
// A line without prefix saves a record, a "delete|" line removes the record
// with that exact text. Lines starting with '{' or '[' are JSON and
// must be valid. A file without deletions is a plain value-per-line
// file so existing JSON lines logs can be opened as a store.
//
// Opening a store replays the file (the last entry for a given text wins)
// and compacts it. Before compaction replaces the file, the new content is
// written to <path>.bak.db, which is removed afterwards.
//
// # Basic Usage
//
//	s, err := linedb.Open("data/users.db", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close()
//
//	_, err = s.Insert(linedb.NewObject("id", "juan", "age", 31))
//	_, err = s.Upsert(linedb.NewObject("id", "juan", "age", 40))
//	rec, ok := s.FindOne(linedb.ByID("juan"))
//	adults := s.Find(linedb.ByPredicate(func(r linedb.Record) bool {
//	    var u struct{ Age int }
//	    return r.Decode(&u) == nil && u.Age >= 18
//	}))
//
// # Identity
//
// Two notions of identity are used. The log and compaction compare the
// serialized text of records. Insert, Upsert and Update compare the "id" field.
// Compaction doesn't merge objects that differ only in key order.
//
// # Thread Safety
//
// A Store is safe for concurrent use. Changes to memory are done under a
// mutex, lines are appended afterwards, so the order of lines written by
// concurrent calls is not guaranteed. Only one Store, in one process,
// can use a given file. Use a Registry to share stores by path.
package linedb
