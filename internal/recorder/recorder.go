// Package recorder captures click, keyup and scroll interactions on a hosted
// document into an append-only log with enough detail to reproduce them.
package recorder

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/runnerr0/pagetrace/internal/dom"
)

// Options configures a Recorder. Zero values select the defaults: a
// MemoryLog, time.Now, a resolver over the installed document, and
// slog.Default.
type Options struct {
	Log      Log
	Clock    func() time.Time
	Resolver Resolver
	Logger   *slog.Logger
}

// Recorder owns the event log and the listeners that fill it.
type Recorder struct {
	log     Log
	clock   func() time.Time
	resolve Resolver
	logger  *slog.Logger

	mu     sync.Mutex
	lastTS int64
}

// New constructs a recorder that is not yet installed.
func New(opts Options) *Recorder {
	r := &Recorder{
		log:     opts.Log,
		clock:   opts.Clock,
		resolve: opts.Resolver,
		logger:  opts.Logger,
	}
	if r.log == nil {
		r.log = NewMemoryLog()
	}
	if r.clock == nil {
		r.clock = time.Now
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Install adds capturing listeners for click, keyup and scroll to win. The
// listeners stay for the lifetime of the window.
func (r *Recorder) Install(win *dom.Window) {
	if r.resolve == nil {
		r.resolve = DocumentResolver(win.Document())
	}
	win.AddEventListener(dom.EventClick, r.onClick, true)
	win.AddEventListener(dom.EventKeyUp, r.onKeyUp, true)
	win.AddEventListener(dom.EventScroll, func(*dom.Event) {
		r.onScroll(win)
	}, true)
}

// Events returns the live log. Callers that keep it see later appends.
func (r *Recorder) Events() Log { return r.log }

func (r *Recorder) onClick(ev *dom.Event) {
	ts := r.now()
	c := Click{X: ev.ClientX, Y: ev.ClientY}
	if t := ev.Target; t != nil {
		c.IsSelect = t.TagName() == "SELECT"
		c.ID, c.ClassName, c.ClassList = rawChannels(t)
		if c.IsSelect {
			r.resolveChannels(ev.Type, selectedText, &c.ID, &c.ClassName, &c.ClassList)
		}
	}
	r.append(ts, c)
}

func (r *Recorder) onKeyUp(ev *dom.Event) {
	ts := r.now()
	k := KeyUp{Key: string(rune(ev.KeyCode)), Shift: ev.ShiftKey}
	if t := ev.Target; t != nil {
		k.ID, k.ClassName, k.ClassList = rawChannels(t)
		r.resolveChannels(ev.Type, value, &k.ID, &k.ClassName, &k.ClassList)
	}
	r.append(ts, k)
}

func (r *Recorder) onScroll(win *dom.Window) {
	ts := r.now()
	r.append(ts, Scroll{X: win.PageXOffset(), Y: win.PageYOffset()})
}

func rawChannels(t *dom.Element) (id, className, classList Channel) {
	return Channel{Raw: t.ID()},
		Channel{Raw: t.ClassName()},
		Channel{Raw: strings.Join(t.ClassList(), " ")}
}

// resolveChannels fills each channel independently. A channel whose lookup
// fails stays undefined; the others are unaffected.
func (r *Recorder) resolveChannels(event string, read func(*dom.Element) (string, bool), id, className, classList *Channel) {
	channels := []struct {
		kind AttrKind
		ch   *Channel
	}{{AttrID, id}, {AttrClassName, className}, {AttrClassList, classList}}

	for _, c := range channels {
		kind, ch := c.kind, c.ch
		if ch.Raw == "" {
			continue
		}
		el, err := r.resolve(kind, ch.Raw)
		if err != nil {
			r.logger.Debug("selector lookup failed",
				"event", event, "channel", kind.String(), "raw", ch.Raw, "error", err)
			continue
		}
		v, ok := read(el)
		if !ok {
			r.logger.Debug("resolved element lacks property",
				"event", event, "channel", kind.String(), "raw", ch.Raw, "tag", el.TagName())
			continue
		}
		ch.Resolved = StringPtr(v)
	}
}

func value(el *dom.Element) (string, bool)        { return el.Value() }
func selectedText(el *dom.Element) (string, bool) { return el.SelectedText() }

// now returns the capture time, never earlier than the previous record.
func (r *Recorder) now() int64 {
	ts := r.clock().UnixMilli()
	r.mu.Lock()
	defer r.mu.Unlock()
	if ts < r.lastTS {
		ts = r.lastTS
	}
	r.lastTS = ts
	return ts
}

func (r *Recorder) append(ts int64, p Payload) {
	rec := Record{Timestamp: ts, Kind: p.Kind(), Payload: p}
	if err := r.log.Append(context.Background(), rec); err != nil {
		r.logger.Error("append event record", "kind", rec.Kind, "error", err)
	}
}
