// Package instrument installs the recorder and the settling detector into a
// hosted document and publishes their accessors on the window.
package instrument

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/runnerr0/pagetrace/internal/dom"
	"github.com/runnerr0/pagetrace/internal/recorder"
	"github.com/runnerr0/pagetrace/internal/settle"
)

// Names of the accessors published on the window.
const (
	GlobalGetEvents      = "getEvents"
	GlobalIsPageChanging = "isPageChanging"
)

// Options configures Install. A zero ID is replaced by a random one.
type Options struct {
	ID     uuid.UUID
	Log    recorder.Log
	Clock  func() time.Time
	Logger *slog.Logger
}

// Instrumentation is the per-document context holding all recording and
// settling state. It lives as long as the document.
type Instrumentation struct {
	id       uuid.UUID
	win      *dom.Window
	recorder *recorder.Recorder
	detector *settle.Detector
	tracker  *settle.Tracker
	observer *dom.MutationObserver
	logger   *slog.Logger
}

// Install wires a recorder and a detector into win. Page requests made
// through win.Client() are tracked from this point on.
func Install(win *dom.Window, opts Options) *Instrumentation {
	id := opts.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("document_id", id.String())

	in := &Instrumentation{
		id:       id,
		win:      win,
		recorder: recorder.New(recorder.Options{Log: opts.Log, Clock: opts.Clock, Logger: logger}),
		detector: settle.NewDetector(opts.Clock),
		tracker:  settle.NewTracker(win.Transport()),
		logger:   logger,
	}

	in.tracker.Subscribe(in.detector.Hooks())
	in.tracker.Subscribe(settle.Hooks{
		OnComplete: func(req *http.Request, err error) {
			if err != nil {
				logger.Debug("page request ended with error", "url", req.URL.String(), "error", err)
			}
		},
	})
	win.SetTransport(in.tracker)

	win.Document().Run(func() {
		in.observer = in.detector.Observe(win.Document())
		in.recorder.Install(win)
	})

	win.SetGlobal(GlobalGetEvents, in.GetEvents)
	win.SetGlobal(GlobalIsPageChanging, in.IsPageChanging)

	logger.Info("instrumentation installed")
	return in
}

// ID identifies the instrumented document.
func (in *Instrumentation) ID() uuid.UUID { return in.id }

// Window returns the instrumented window.
func (in *Instrumentation) Window() *dom.Window { return in.win }

// Detector exposes the settling state.
func (in *Instrumentation) Detector() *settle.Detector { return in.detector }

// GetEvents returns the live event log.
func (in *Instrumentation) GetEvents() recorder.Log { return in.recorder.Events() }

// IsPageChanging reports whether the document mutated within the last
// timeoutMs milliseconds or has a request in flight.
func (in *Instrumentation) IsPageChanging(timeoutMs int) bool {
	return in.detector.IsPageChanging(time.Duration(timeoutMs) * time.Millisecond)
}

// Close releases the event log if it holds resources. Listeners and the
// observer stay installed; the document is expected to be discarded.
func (in *Instrumentation) Close() error {
	if c, ok := in.recorder.Events().(io.Closer); ok {
		return c.Close()
	}
	return nil
}
