package linedb

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateID is returned by Insert when a record's id is already stored
	ErrDuplicateID = errors.New("linedb: duplicate id")
	// ErrNotFound is returned by Update when a record's id is not stored
	ErrNotFound = errors.New("linedb: id not found")
	// ErrCorrupt is returned by Open when a JSON line in the log doesn't parse
	ErrCorrupt = errors.New("linedb: corrupt log")
	// ErrLockTimeout is returned when the compaction lock was held for longer than Options.LockTimeout.
	// It means overload or a bug, retrying is pointless.
	ErrLockTimeout = errors.New("linedb: timed out waiting for compaction lock")
	// ErrAlreadyOpen is returned by Registry.OpenExclusive
	ErrAlreadyOpen = errors.New("linedb: store is already open")
	// ErrClosed is returned when using a store after Close
	ErrClosed = errors.New("linedb: store is closed")
	// ErrInvalidRecord is returned for records that can't be written to the log
	ErrInvalidRecord = errors.New("linedb: invalid record")
)

// DuplicateIDError is returned by Insert. errors.Is(err, ErrDuplicateID) is true.
type DuplicateIDError struct {
	ID any
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("linedb: duplicate id: %v", e.ID)
}

func (e *DuplicateIDError) Is(target error) bool {
	return target == ErrDuplicateID
}

// NotFoundError is returned by Update. errors.Is(err, ErrNotFound) is true.
type NotFoundError struct {
	ID any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("linedb: id %v is not in the store, use Insert or Upsert", e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// CorruptionError describes a log line that looks like JSON but isn't.
// errors.Is(err, ErrCorrupt) is true.
type CorruptionError struct {
	Path string
	// 1-based line number in the log
	Line int
	Text string
	Err  error
}

func (e *CorruptionError) Error() string {
	text := e.Text
	if len(text) > 64 {
		text = text[:64] + "..."
	}
	return fmt.Sprintf("linedb: corrupt log %s:%d: %v (line: %q)", e.Path, e.Line, e.Err, text)
}

func (e *CorruptionError) Unwrap() error {
	return e.Err
}

func (e *CorruptionError) Is(target error) bool {
	return target == ErrCorrupt
}

func invalidRecordf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRecord, fmt.Sprintf(format, args...))
}
