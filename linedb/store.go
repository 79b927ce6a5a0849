package linedb

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/kjk/linedb/log"
	"github.com/kjk/linedb/u"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Store keeps all records in memory and logs every change to a file.
// Open replays the file and compacts it.
// A Store is safe for concurrent use. Only one Store (in one process)
// may use a given file.
type Store struct {
	path string
	opts Options

	// mu protects records, dirty, compactions and closed.
	// it's never held while doing file i/o
	mu          sync.Mutex
	records     []*Record
	dirty       int
	compactions int
	closed      bool

	// lock serializes log writes and excludes them during compaction.
	// log is only accessed with lock held
	lock       *semaphore.Weighted
	log        *appendLog
	compacting atomic.Bool
}

// Stats describes the state of a Store
type Stats struct {
	Path string
	// number of records in memory
	Records int
	// mutating calls since last compaction
	Dirty int
	// compactions since Open, including the one done by Open
	Compactions int
	// size of the log file, -1 if it doesn't exist
	FileSize int64
}

// Open loads the store from path, creating the file (and directories)
// if it doesn't exist. opts can be nil.
func Open(path string, opts *Options) (*Store, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("linedb: failed to get absolute path for %s: %w", path, err)
	}
	records, err := loadRecords(absPath)
	if err != nil {
		return nil, err
	}
	s := &Store{
		path: absPath,
		opts: opts.withDefaults(),
		lock: semaphore.NewWeighted(1),
	}
	for i := range records {
		s.records = append(s.records, &records[i])
	}
	s.log, err = openAppendLog(absPath, s.opts.SyncWrite)
	if err != nil {
		return nil, err
	}
	// a replayed log is not loaded until it's compacted
	if err = s.compact(); err != nil {
		log.IfErrf(s.log.close())
		return nil, err
	}
	return s, nil
}

// Path returns absolute path of the log file
func (s *Store) Path() string {
	return s.path
}

// Close compacts the log and closes the file.
// Calling Close more than once is a no-op.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	errCompact := s.compact()
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.release()
	err := s.log.close()
	s.log = nil
	if errCompact != nil {
		return errCompact
	}
	return err
}

func (s *Store) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Store) acquire() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.LockTimeout)
	defer cancel()
	if err := s.lock.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("%w (%s, %s)", ErrLockTimeout, s.opts.LockTimeout, s.path)
	}
	return nil
}

func (s *Store) release() {
	s.lock.Release(1)
}

// Compact rewrites the log to contain only current records
func (s *Store) Compact() error {
	if s.isClosed() {
		return ErrClosed
	}
	return s.compact()
}

// Stats returns current state of the store
func (s *Store) Stats() Stats {
	s.mu.Lock()
	res := Stats{
		Path:        s.path,
		Records:     len(s.records),
		Dirty:       s.dirty,
		Compactions: s.compactions,
	}
	s.mu.Unlock()
	res.FileSize = u.FileSize(s.path)
	return res
}

// Len returns number of records
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// mutation describes a change done by apply
type mutation struct {
	add []Record
	// records to remove, nil removes nothing
	remove Identity
	// called with s.mu held, before anything changes
	check func() error
}

// apply is the only way records change. With s.mu held it removes
// matching records and appends new ones. Then it logs a delete line for
// each removed record and a save line for each added record.
// Returns number of added minus number of removed records.
func (s *Store) apply(m mutation) (int, error) {
	for i := range m.add {
		if err := m.add[i].validate(); err != nil {
			return 0, err
		}
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, ErrClosed
	}
	s.dirty++
	mustCompact := s.dirty > s.opts.CompactThreshold
	s.mu.Unlock()
	if mustCompact {
		if err := s.compact(); err != nil {
			return 0, err
		}
	}

	s.mu.Lock()
	if m.check != nil {
		if err := m.check(); err != nil {
			s.mu.Unlock()
			return 0, err
		}
	}
	var removed []*Record
	if m.remove != nil {
		kept := s.records[:0]
		for _, r := range s.records {
			if m.remove.matches(r) {
				removed = append(removed, r)
			} else {
				kept = append(kept, r)
			}
		}
		// don't keep removed records alive through the backing array
		clear(s.records[len(kept):])
		s.records = kept
	}
	added := make([]*Record, len(m.add))
	for i := range m.add {
		r := m.add[i]
		added[i] = &r
	}
	s.records = append(s.records, added...)
	s.mu.Unlock()

	// deletes go first: replacing a record with the same text must
	// replay as delete followed by save
	err := s.persist(removed, true)
	if err == nil {
		err = s.persist(added, false)
	}
	return len(added) - len(removed), err
}

// persist appends lines for records concurrently
func (s *Store) persist(records []*Record, deleted bool) error {
	if len(records) == 0 {
		return nil
	}
	var g errgroup.Group
	g.SetLimit(s.opts.PersistConcurrency)
	for _, r := range records {
		e := entry{deleted: deleted, text: r.text}
		g.Go(func() error {
			if err := s.acquire(); err != nil {
				return err
			}
			defer s.release()
			return s.log.write(e)
		})
	}
	return g.Wait()
}

// findIDLocked returns the first record with a given id
func (s *Store) findIDLocked(id any) *Record {
	for _, r := range s.records {
		if r.hasID && r.id == id {
			return r
		}
	}
	return nil
}

// Insert adds records. It fails with DuplicateIDError if a record with
// the same id is already stored, in which case nothing is added.
// Returns number of added records.
func (s *Store) Insert(recs ...Record) (int, error) {
	m := mutation{
		add: recs,
		check: func() error {
			for i := range recs {
				if recs[i].hasID && s.findIDLocked(recs[i].id) != nil {
					id, _ := recs[i].ID()
					return &DuplicateIDError{ID: id}
				}
			}
			return nil
		},
	}
	return s.apply(m)
}

// Upsert adds records, replacing stored records with the same id.
// Returns number of added minus number of replaced records.
func (s *Store) Upsert(recs ...Record) (int, error) {
	return s.apply(upsertMutation(recs))
}

func upsertMutation(recs []Record) mutation {
	m := mutation{add: recs}
	if ids := newIDSet(recs); len(ids) > 0 {
		m.remove = ids
	}
	return m
}

// Update replaces stored records with the same id. It fails with
// NotFoundError if any id is not stored, in which case nothing changes.
func (s *Store) Update(recs ...Record) (int, error) {
	m := upsertMutation(recs)
	m.check = func() error {
		for i := range recs {
			if recs[i].hasID && s.findIDLocked(recs[i].id) == nil {
				id, _ := recs[i].ID()
				return &NotFoundError{ID: id}
			}
		}
		return nil
	}
	return s.apply(m)
}

// Save is Upsert
func (s *Store) Save(recs ...Record) (int, error) {
	return s.Upsert(recs...)
}

// SaveReplacing removes records matching match and adds recs.
// Returns number of added minus number of removed records, which can be negative.
func (s *Store) SaveReplacing(match Identity, recs ...Record) (int, error) {
	if match == nil {
		return s.Upsert(recs...)
	}
	return s.apply(mutation{add: recs, remove: match})
}

// Delete removes matching records and returns how many were removed
func (s *Store) Delete(match Identity) (int, error) {
	if match == nil {
		return 0, nil
	}
	n, err := s.apply(mutation{remove: match})
	return -n, err
}

// Find returns matching records in store order. nil matches all records.
func (s *Store) Find(match Identity) []Record {
	if match == nil {
		match = All()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []Record
	for _, r := range s.records {
		if match.matches(r) {
			res = append(res, *r)
		}
	}
	return res
}

// FindOne returns the first matching record
func (s *Store) FindOne(match Identity) (Record, bool) {
	if match == nil {
		match = All()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if match.matches(r) {
			return *r, true
		}
	}
	return Record{}, false
}

// Exists returns true if any record matches
func (s *Store) Exists(match Identity) bool {
	_, ok := s.FindOne(match)
	return ok
}
