package linedb

import "time"

const (
	DefaultCompactThreshold   = 10000
	DefaultLockTimeout        = 10 * time.Second
	DefaultPersistConcurrency = 8
)

// Options configures a Store. Zero values mean defaults.
type Options struct {
	// compact the log when the number of mutating calls since the
	// last compaction exceeds this
	CompactThreshold int
	// how long a write waits for a running compaction before failing
	// with ErrLockTimeout
	LockTimeout time.Duration
	// if true, will call file.Sync() after every appended line.
	// this makes writes much slower
	SyncWrite bool
	// max number of concurrent line writes of a single call
	PersistConcurrency int
}

func (o *Options) withDefaults() Options {
	var res Options
	if o != nil {
		res = *o
	}
	if res.CompactThreshold <= 0 {
		res.CompactThreshold = DefaultCompactThreshold
	}
	if res.LockTimeout <= 0 {
		res.LockTimeout = DefaultLockTimeout
	}
	if res.PersistConcurrency <= 0 {
		res.PersistConcurrency = DefaultPersistConcurrency
	}
	return res
}
