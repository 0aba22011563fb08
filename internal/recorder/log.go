package recorder

import (
	"context"
	"sync"
)

// Log is the append-only event log of one document.
type Log interface {
	Append(ctx context.Context, rec Record) error
	Records(ctx context.Context) ([]Record, error)
	Len(ctx context.Context) (int, error)
}

// MemoryLog keeps records in a slice. It is safe for concurrent use.
type MemoryLog struct {
	mu      sync.RWMutex
	records []Record
}

// NewMemoryLog returns an empty log.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{}
}

// Append adds rec to the end of the log.
func (l *MemoryLog) Append(_ context.Context, rec Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, rec)
	return nil
}

// Records returns a snapshot of the log.
func (l *MemoryLog) Records(_ context.Context) ([]Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Record, len(l.records))
	copy(out, l.records)
	return out, nil
}

// Len returns the number of records.
func (l *MemoryLog) Len(_ context.Context) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records), nil
}
