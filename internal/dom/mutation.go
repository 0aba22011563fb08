package dom

import "golang.org/x/net/html"

// MutationType names the kind of change a MutationRecord describes.
type MutationType string

const (
	MutationChildList  MutationType = "childList"
	MutationAttributes MutationType = "attributes"
)

// MutationRecord describes one change to the tree.
type MutationRecord struct {
	Type          MutationType
	Target        Node
	Added         int
	Removed       int
	AttributeName string
}

// ObserveOptions selects which mutations an observer receives.
type ObserveOptions struct {
	ChildList  bool
	Attributes bool
	Subtree    bool
}

// MutationCallback receives one batch of records per delivery.
type MutationCallback func(records []MutationRecord, mo *MutationObserver)

// MutationObserver batches tree mutations and reports them at the end of the
// task that caused them.
type MutationObserver struct {
	cb      MutationCallback
	targets []observation
	pending []MutationRecord
	doc     *Document
}

type observation struct {
	node *html.Node
	opts ObserveOptions
}

// NewMutationObserver returns an observer that is not yet watching anything.
func NewMutationObserver(cb MutationCallback) *MutationObserver {
	return &MutationObserver{cb: cb}
}

// Observe starts watching target. Observing the same node again replaces its
// options. All targets of one observer must belong to the same document.
func (mo *MutationObserver) Observe(target Node, opts ObserveOptions) {
	doc := documentOf(target)
	if mo.doc == nil {
		mo.doc = doc
		doc.observers = append(doc.observers, mo)
	}
	n := target.htmlNode()
	for i := range mo.targets {
		if mo.targets[i].node == n {
			mo.targets[i].opts = opts
			return
		}
	}
	mo.targets = append(mo.targets, observation{node: n, opts: opts})
}

// Disconnect stops all observation and drops undelivered records.
func (mo *MutationObserver) Disconnect() {
	mo.targets = nil
	mo.pending = nil
	if mo.doc == nil {
		return
	}
	obs := mo.doc.observers
	for i, o := range obs {
		if o == mo {
			mo.doc.observers = append(obs[:i], obs[i+1:]...)
			break
		}
	}
	mo.doc = nil
}

// TakeRecords returns and clears the undelivered records.
func (mo *MutationObserver) TakeRecords() []MutationRecord {
	recs := mo.pending
	mo.pending = nil
	return recs
}

func (mo *MutationObserver) wants(rec MutationRecord) bool {
	n := rec.Target.htmlNode()
	for _, t := range mo.targets {
		switch rec.Type {
		case MutationChildList:
			if !t.opts.ChildList {
				continue
			}
		case MutationAttributes:
			if !t.opts.Attributes {
				continue
			}
		}
		if t.node == n || (t.opts.Subtree && isAncestor(t.node, n)) {
			return true
		}
	}
	return false
}

func (d *Document) queueMutation(rec MutationRecord) {
	for _, mo := range d.observers {
		if mo.wants(rec) {
			mo.pending = append(mo.pending, rec)
		}
	}
}

// deliverMutations runs observer callbacks until no records remain; a
// callback that mutates the tree schedules another round.
func (d *Document) deliverMutations() {
	for {
		delivered := false
		for _, mo := range append([]*MutationObserver(nil), d.observers...) {
			if len(mo.pending) == 0 {
				continue
			}
			recs := mo.TakeRecords()
			mo.cb(recs, mo)
			delivered = true
		}
		if !delivered {
			return
		}
	}
}

// nodeFor maps a raw node back to the Node a record should carry.
func (d *Document) nodeFor(n *html.Node) Node {
	if n == d.root {
		return d
	}
	return d.wrap(n)
}

func documentOf(n Node) *Document {
	switch v := n.(type) {
	case *Document:
		return v
	case *Element:
		return v.doc
	}
	panic("dom: unknown node type")
}

func isAncestor(ancestor, n *html.Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p == ancestor {
			return true
		}
	}
	return false
}
