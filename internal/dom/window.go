package dom

import (
	"net/http"
	"sync"
)

// Window is the global object of a document: event root, scroll position,
// network transport and named globals.
type Window struct {
	doc    *Document
	target eventTarget

	mu        sync.RWMutex
	scrollX   int
	scrollY   int
	transport http.RoundTripper
	globals   map[string]any
}

func newWindow(doc *Document) *Window {
	return &Window{
		doc:       doc,
		transport: http.DefaultTransport,
		globals:   make(map[string]any),
	}
}

// Document returns the window's document.
func (w *Window) Document() *Document { return w.doc }

// AddEventListener registers a listener on the window.
func (w *Window) AddEventListener(typ string, fn Listener, capture bool) {
	w.target.add(typ, fn, capture)
}

// Dispatch runs DispatchEvent as its own task. Use it from outside the document.
func (w *Window) Dispatch(ev *Event) {
	w.doc.Run(func() { w.DispatchEvent(ev) })
}

// DispatchEvent delivers ev synchronously along window, document, the target's
// ancestors and the target. It is an on-task call.
func (w *Window) DispatchEvent(ev *Event) {
	path := []*eventTarget{&w.target, &w.doc.target}
	if ev.Target != nil {
		var chain []*eventTarget
		for p := ev.Target.Parent(); p != nil; p = p.Parent() {
			chain = append(chain, &p.target)
		}
		for i := len(chain) - 1; i >= 0; i-- {
			path = append(path, chain[i])
		}
		path = append(path, &ev.Target.target)
	}

	last := len(path) - 1
	for i := 0; i < last && !ev.stopped; i++ {
		path[i].fire(ev, PhaseCapturing)
	}
	if !ev.stopped {
		path[last].fire(ev, PhaseAtTarget)
	}
	if ev.Bubbles {
		for i := last - 1; i >= 0 && !ev.stopped; i-- {
			path[i].fire(ev, PhaseBubbling)
		}
	}
	ev.phase = PhaseNone
}

// ScrollTo moves the page offsets and fires scroll at the document. It is an
// on-task call.
func (w *Window) ScrollTo(x, y int) {
	w.mu.Lock()
	w.scrollX, w.scrollY = x, y
	w.mu.Unlock()
	w.DispatchEvent(&Event{Type: EventScroll, Bubbles: true})
}

// PageXOffset returns the horizontal scroll offset.
func (w *Window) PageXOffset() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.scrollX
}

// PageYOffset returns the vertical scroll offset.
func (w *Window) PageYOffset() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.scrollY
}

// Transport returns the round tripper page requests currently go through.
func (w *Window) Transport() http.RoundTripper {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.transport
}

// SetTransport replaces the page's round tripper.
func (w *Window) SetTransport(rt http.RoundTripper) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.transport = rt
}

// Client returns an HTTP client for page requests. Its transport resolves the
// window transport on every request, so a later SetTransport applies to
// clients handed out earlier.
func (w *Window) Client() *http.Client {
	return &http.Client{Transport: windowTransport{w: w}}
}

// SetGlobal publishes v under name.
func (w *Window) SetGlobal(name string, v any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.globals[name] = v
}

// Global looks up a published value.
func (w *Window) Global(name string) (any, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	v, ok := w.globals[name]
	return v, ok
}

type windowTransport struct {
	w *Window
}

func (t windowTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.w.Transport().RoundTrip(req)
}
