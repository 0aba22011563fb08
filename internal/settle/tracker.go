package settle

import (
	"io"
	"net/http"
	"sync"
)

// ReadyState mirrors the XMLHttpRequest states a tracked request moves through.
type ReadyState int

const (
	Unsent ReadyState = iota
	Opened
	HeadersReceived
	Loading
	Done
)

func (s ReadyState) String() string {
	switch s {
	case Unsent:
		return "unsent"
	case Opened:
		return "opened"
	case HeadersReceived:
		return "headers_received"
	case Loading:
		return "loading"
	case Done:
		return "done"
	}
	return "unknown"
}

// Hooks observe the lifecycle of requests passing through a Tracker. Any
// field may be nil. OnComplete runs exactly once per request, when it reaches
// Done, with the error that ended it (nil on a clean read to EOF or Close).
type Hooks struct {
	OnStart       func(req *http.Request)
	OnStateChange func(req *http.Request, state ReadyState)
	OnComplete    func(req *http.Request, err error)
}

// Tracker is an http.RoundTripper that forwards requests unchanged to its
// base transport and reports their lifecycle to subscribers.
type Tracker struct {
	base http.RoundTripper

	mu    sync.RWMutex
	hooks []Hooks
}

// NewTracker wraps base. A nil base means http.DefaultTransport.
func NewTracker(base http.RoundTripper) *Tracker {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Tracker{base: base}
}

// Subscribe adds a set of hooks. It applies to requests started afterwards.
func (t *Tracker) Subscribe(h Hooks) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hooks = append(t.hooks, h)
}

// RoundTrip implements http.RoundTripper. The request is Done when the base
// transport fails (including cancellation), or when the response body is read
// to the end, fails, or is closed, whichever comes first.
func (t *Tracker) RoundTrip(req *http.Request) (*http.Response, error) {
	t.mu.RLock()
	hooks := append([]Hooks(nil), t.hooks...)
	t.mu.RUnlock()

	tr := &tracked{req: req, hooks: hooks}
	tr.start()

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		tr.finish(err)
		return nil, err
	}
	tr.state(HeadersReceived)

	if resp.Body == nil {
		tr.finish(nil)
		return resp, nil
	}
	resp.Body = &trackedBody{rc: resp.Body, tr: tr}
	return resp, nil
}

type tracked struct {
	req     *http.Request
	hooks   []Hooks
	loading sync.Once
	done    sync.Once
}

func (tr *tracked) start() {
	for _, h := range tr.hooks {
		if h.OnStart != nil {
			h.OnStart(tr.req)
		}
	}
	tr.state(Opened)
}

func (tr *tracked) state(s ReadyState) {
	for _, h := range tr.hooks {
		if h.OnStateChange != nil {
			h.OnStateChange(tr.req, s)
		}
	}
}

func (tr *tracked) finish(err error) {
	tr.done.Do(func() {
		tr.state(Done)
		for _, h := range tr.hooks {
			if h.OnComplete != nil {
				h.OnComplete(tr.req, err)
			}
		}
	})
}

type trackedBody struct {
	rc io.ReadCloser
	tr *tracked
}

func (b *trackedBody) Read(p []byte) (int, error) {
	b.tr.loading.Do(func() { b.tr.state(Loading) })
	n, err := b.rc.Read(p)
	switch {
	case err == io.EOF:
		b.tr.finish(nil)
	case err != nil:
		b.tr.finish(err)
	}
	return n, err
}

func (b *trackedBody) Close() error {
	err := b.rc.Close()
	b.tr.finish(nil)
	return err
}
