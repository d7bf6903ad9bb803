// Package eventlog implements the prefix-forgettable append-only event
// log: a single memory-mapped file (package mmapfile) holding a
// reverse-linked, hierarchically compressed stream of opaque byte-string
// events, addressed by a contiguous 64-bit event index.
package eventlog

import (
	"fmt"

	"github.com/flashlog/eventlog/cache"
	"github.com/flashlog/eventlog/format"
	"github.com/flashlog/eventlog/mmapfile"
)

// FanOut is the maximum, and during cascade emission exact, number of
// children summarized by one branch block.
const FanOut = 16

const (
	defaultCompressionThreshold = 4096
	defaultBlockEventLimit      = 1024
)

// EventFile is the public log. Not safe for concurrent use - see
// Appender for a goroutine-safe wrapper serializing writers.
type EventFile struct {
	id                   uint32
	mf                   *mmapfile.MmapFile
	compressionThreshold int
	blockEventLimit      uint32
	cache                cache.Cache
	skipIndex            *SkipIndex
}

// Option configures Open, following the functional-options style the
// teacher pack uses for constructing segment managers.
type Option func(*EventFile)

// WithSkipIndex attaches an empty SkipIndex to the EventFile. The range
// iterator neither records into nor consults it: every query re-walks
// prev_block/prev_offset links from last_block, with or without it.
func WithSkipIndex() Option {
	return func(ef *EventFile) { ef.skipIndex = NewSkipIndex() }
}

// Open creates or reopens the log at path. id namespaces cache entries
// for this log among others sharing the same Cache. compressionThreshold
// is the cumulative event-byte size in staging that triggers a flush to
// a leaf block; blockEventLimit is the fixed jump-table capacity (and so
// the maximum events per leaf).
func Open(id uint32, path string, userVersion uint32, compressionThreshold int, blockEventLimit uint32, c cache.Cache, opts ...Option) (*EventFile, error) {
	if compressionThreshold <= 0 {
		compressionThreshold = defaultCompressionThreshold
	}
	if blockEventLimit == 0 {
		blockEventLimit = defaultBlockEventLimit
	}
	if c == nil {
		lru, err := cache.New(0, 0)
		if err != nil {
			return nil, fmt.Errorf("eventlog: default cache: %w", err)
		}
		c = lru
	}

	mf, err := mmapfile.Open(path, userVersion)
	if err != nil {
		return nil, fmt.Errorf("eventlog: open %s: %w", path, err)
	}

	ef := &EventFile{
		id:                   id,
		mf:                   mf,
		compressionThreshold: compressionThreshold,
		blockEventLimit:      blockEventLimit,
		cache:                c,
	}
	for _, opt := range opts {
		opt(ef)
	}

	fresh := mf.EndOffset() == mf.StartOffset() && mf.StagingLen() == 0
	if fresh {
		if err := ef.prepStaging(format.NoPrevBlock, 0); err != nil {
			mf.Close()
			return nil, err
		}
	}
	return ef, nil
}

// Flush syncs the underlying mapping to disk.
func (ef *EventFile) Flush() error { return ef.mf.Flush() }

// Close unmaps and closes the underlying file.
func (ef *EventFile) Close() error { return ef.mf.Close() }

// ID returns the cache-namespacing identifier this log was opened with.
func (ef *EventFile) ID() uint32 { return ef.id }

func leafEventStart(capacity uint32) int {
	return format.StagingHeaderLen + 4*int(capacity)
}
