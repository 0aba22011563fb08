package dom

import "sync"

// Event types the host synthesizes.
const (
	EventClick  = "click"
	EventKeyUp  = "keyup"
	EventScroll = "scroll"
)

// Phase is the dispatch phase an event is in.
type Phase int

const (
	PhaseNone Phase = iota
	PhaseCapturing
	PhaseAtTarget
	PhaseBubbling
)

// Event is one dispatched DOM event. A nil Target means the document itself.
type Event struct {
	Type     string
	Target   *Element
	Bubbles  bool
	ClientX  int
	ClientY  int
	KeyCode  int
	ShiftKey bool

	phase   Phase
	stopped bool
}

// NewClick returns a bubbling click at client coordinates (x, y).
func NewClick(target *Element, x, y int) *Event {
	return &Event{Type: EventClick, Target: target, Bubbles: true, ClientX: x, ClientY: y}
}

// NewKeyUp returns a bubbling keyup for keyCode.
func NewKeyUp(target *Element, keyCode int, shift bool) *Event {
	return &Event{Type: EventKeyUp, Target: target, Bubbles: true, KeyCode: keyCode, ShiftKey: shift}
}

// StopPropagation prevents the event from reaching further targets.
func (e *Event) StopPropagation() { e.stopped = true }

// Phase reports the current dispatch phase.
func (e *Event) Phase() Phase { return e.phase }

// Listener handles a dispatched event.
type Listener func(ev *Event)

type registration struct {
	typ     string
	fn      Listener
	capture bool
}

// eventTarget stores listeners. Registration may happen off-task, so it
// carries its own lock; dispatch works on a copy.
type eventTarget struct {
	mu   sync.Mutex
	regs []registration
}

func (t *eventTarget) add(typ string, fn Listener, capture bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.regs = append(t.regs, registration{typ: typ, fn: fn, capture: capture})
}

func (t *eventTarget) snapshot(typ string) []registration {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []registration
	for _, r := range t.regs {
		if r.typ == typ {
			out = append(out, r)
		}
	}
	return out
}

// fire calls the matching listeners. At the target both kinds run, capture
// listeners first.
func (t *eventTarget) fire(ev *Event, phase Phase) {
	ev.phase = phase
	regs := t.snapshot(ev.Type)
	for _, pass := range []bool{true, false} {
		for _, r := range regs {
			if r.capture != pass {
				continue
			}
			switch phase {
			case PhaseCapturing:
				if !r.capture {
					continue
				}
			case PhaseBubbling:
				if r.capture {
					continue
				}
			}
			r.fn(ev)
		}
	}
}
