// Package detectlog keeps an append-only record of flagged visitors, keyed
// by network origin, for audit. Records never influence a blocking decision;
// that decision is made in the same request that produces the record.
package detectlog

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/scrapeguard/server/internal/score"
)

// Record is one flagged detection event. Immutable after Append.
type Record struct {
	ID          string            `json:"id"`
	Timestamp   time.Time         `json:"timestamp"`
	Origin      string            `json:"origin"`
	UserAgent   string            `json:"user_agent"`
	Score       int               `json:"score"`
	Fingerprint string            `json:"fingerprint"`
	Signals     score.Signals     `json:"signals"`
	Headers     map[string]string `json:"headers"`
}

// Log is a bounded append-only store of detection records indexed by origin.
// When the bound is exceeded the oldest record is dropped.
type Log struct {
	mu       sync.RWMutex
	byOrigin map[string][]*Record
	order    []*Record
	max      int
}

// NewLog creates a log holding at most max records. max <= 0 means unbounded.
func NewLog(max int) *Log {
	return &Log{
		byOrigin: make(map[string][]*Record),
		max:      max,
	}
}

// Append records a detection. ID and Timestamp are filled in when zero.
func (l *Log) Append(rec *Record) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.order = append(l.order, rec)
	l.byOrigin[rec.Origin] = append(l.byOrigin[rec.Origin], rec)

	if l.max > 0 && len(l.order) > l.max {
		l.evictOldest()
	}
}

// ByOrigin returns the records for one origin, oldest first.
func (l *Log) ByOrigin(origin string) []*Record {
	l.mu.RLock()
	defer l.mu.RUnlock()
	recs := l.byOrigin[origin]
	out := make([]*Record, len(recs))
	copy(out, recs)
	return out
}

// All returns every record, oldest first.
func (l *Log) All() []*Record {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*Record, len(l.order))
	copy(out, l.order)
	return out
}

// Len returns the number of retained records.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.order)
}

func (l *Log) evictOldest() {
	oldest := l.order[0]
	l.order = l.order[1:]

	recs := l.byOrigin[oldest.Origin]
	for i, r := range recs {
		if r == oldest {
			l.byOrigin[oldest.Origin] = append(recs[:i], recs[i+1:]...)
			break
		}
	}
	if len(l.byOrigin[oldest.Origin]) == 0 {
		delete(l.byOrigin, oldest.Origin)
	}
}
