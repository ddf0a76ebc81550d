// Package errlog keeps a bounded, in-memory history of extraction failures
// for diagnostics. Nothing in the scraper reads it to make decisions.
package errlog

import (
	"sync"
	"time"
)

const DefaultCapacity = 20

type Record struct {
	Message   string         `json:"message"`
	Context   map[string]any `json:"context,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// TimestampMs returns the record time as Unix milliseconds.
func (r Record) TimestampMs() int64 {
	return r.Timestamp.UnixMilli()
}

// Log is a fixed-size ring buffer of Records. When full, the oldest record
// is overwritten.
type Log struct {
	mu      sync.Mutex
	records []Record
	next    int
	full    bool
	now     func() time.Time
}

func New(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{
		records: make([]Record, capacity),
		now:     time.Now,
	}
}

// Add appends a record. It never fails.
func (l *Log) Add(message string, context map[string]any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ctx := make(map[string]any, len(context))
	for k, v := range context {
		ctx[k] = v
	}

	l.records[l.next] = Record{
		Message:   message,
		Context:   ctx,
		Timestamp: l.now(),
	}
	l.next = (l.next + 1) % len(l.records)
	if l.next == 0 {
		l.full = true
	}
}

// Entries returns the retained records, oldest first.
func (l *Log) Entries() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.full {
		out := make([]Record, l.next)
		copy(out, l.records[:l.next])
		return out
	}

	out := make([]Record, 0, len(l.records))
	out = append(out, l.records[l.next:]...)
	out = append(out, l.records[:l.next]...)
	return out
}

func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.full {
		return len(l.records)
	}
	return l.next
}

func (l *Log) Cap() int {
	return len(l.records)
}
