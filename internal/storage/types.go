package storage

import (
	"time"

	"github.com/runnerr0/pagetrace/internal/recorder"
)

// RecordQuery defines filters for querying the trace.
type RecordQuery struct {
	Kind   recorder.Kind
	Since  time.Time
	Until  time.Time
	Limit  int
	Offset int
}

// Stats holds aggregate statistics about one document's trace.
type Stats struct {
	TotalRecords int64
	ByKind       map[recorder.Kind]int64
	First        time.Time
	Last         time.Time
}
