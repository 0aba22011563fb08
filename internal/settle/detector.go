// Package settle decides whether a hosted document has stopped changing: no
// tree mutation within a trailing window and no request in flight.
package settle

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/runnerr0/pagetrace/internal/dom"
)

// Detector holds the settling state of one document. All methods are safe
// for concurrent use; callers polling from another goroutine get a
// consistent value for each field.
type Detector struct {
	clock        func() time.Time
	lastModified atomic.Int64
	pending      atomic.Int64
}

// NewDetector returns a detector whose last-modified time is now. A nil
// clock means time.Now.
func NewDetector(clock func() time.Time) *Detector {
	if clock == nil {
		clock = time.Now
	}
	d := &Detector{clock: clock}
	d.lastModified.Store(clock().UnixMilli())
	return d
}

// Observe installs a document-wide observer that treats every child-list
// mutation batch, at any depth, as activity. It is an on-task call.
func (d *Detector) Observe(doc *dom.Document) *dom.MutationObserver {
	mo := dom.NewMutationObserver(func([]dom.MutationRecord, *dom.MutationObserver) {
		d.Touch()
	})
	mo.Observe(doc, dom.ObserveOptions{ChildList: true, Subtree: true})
	return mo
}

// Touch records activity at the current time.
func (d *Detector) Touch() {
	d.lastModified.Store(d.clock().UnixMilli())
}

// RequestStarted counts one more request in flight.
func (d *Detector) RequestStarted() {
	d.pending.Add(1)
}

// RequestFinished counts one request as done. The count never drops below zero.
func (d *Detector) RequestFinished() {
	for {
		n := d.pending.Load()
		if n <= 0 {
			return
		}
		if d.pending.CompareAndSwap(n, n-1) {
			return
		}
	}
}

// Hooks returns tracker hooks that keep the in-flight count.
func (d *Detector) Hooks() Hooks {
	return Hooks{
		OnStart:    func(*http.Request) { d.RequestStarted() },
		OnComplete: func(*http.Request, error) { d.RequestFinished() },
	}
}

// Pending returns the number of requests in flight.
func (d *Detector) Pending() int {
	return int(d.pending.Load())
}

// LastModified returns the time of the most recent observed mutation.
func (d *Detector) LastModified() time.Time {
	return time.UnixMilli(d.lastModified.Load())
}

// IsPageChanging reports whether the document changed less than timeout ago
// or any request is still in flight.
func (d *Detector) IsPageChanging(timeout time.Duration) bool {
	if d.pending.Load() > 0 {
		return true
	}
	elapsed := d.clock().UnixMilli() - d.lastModified.Load()
	return elapsed < timeout.Milliseconds()
}

// IsSettled is the negation of IsPageChanging.
func (d *Detector) IsSettled(timeout time.Duration) bool {
	return !d.IsPageChanging(timeout)
}
