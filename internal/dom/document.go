package dom

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Node is anything a mutation observer can watch: a *Document or an *Element.
type Node interface {
	htmlNode() *html.Node
}

// Document is a parsed HTML tree plus the live state a browser keeps beside
// it: element properties, listeners, observers, and the owning window.
type Document struct {
	loop sync.Mutex

	root     *html.Node
	elements map[*html.Node]*Element
	target   eventTarget

	observers []*MutationObserver
	window    *Window
}

// Parse reads an HTML document from r.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return newDocument(root), nil
}

// ParseString is Parse over a string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// NewDocument returns an empty document with html, head and body elements.
func NewDocument() *Document {
	doc, err := ParseString("")
	if err != nil {
		// html.Parse only fails on reader errors.
		panic(err)
	}
	return doc
}

func newDocument(root *html.Node) *Document {
	d := &Document{
		root:     root,
		elements: make(map[*html.Node]*Element),
	}
	d.window = newWindow(d)
	return d
}

func (d *Document) htmlNode() *html.Node { return d.root }

// Window returns the window that owns this document.
func (d *Document) Window() *Window { return d.window }

// Run executes fn as one task and then delivers pending mutation records.
func (d *Document) Run(fn func()) {
	d.loop.Lock()
	defer d.loop.Unlock()

	fn()
	d.deliverMutations()
}

// AddEventListener registers a listener on the document.
func (d *Document) AddEventListener(typ string, fn Listener, capture bool) {
	d.target.add(typ, fn, capture)
}

// DocumentElement returns the root html element.
func (d *Document) DocumentElement() *Element {
	for c := d.root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return d.wrap(c)
		}
	}
	return nil
}

// Body returns the body element, or nil if the document has none.
func (d *Document) Body() *Element {
	el, err := d.QuerySelector("body")
	if err != nil {
		return nil
	}
	return el
}

// CreateElement returns a detached element with the given tag name.
func (d *Document) CreateElement(tag string) *Element {
	tag = strings.ToLower(tag)
	n := &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}
	return d.wrap(n)
}

// GetElementByID returns the first element whose id attribute equals id.
func (d *Document) GetElementByID(id string) *Element {
	var found *html.Node
	walk(d.root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && attr(n, "id") == id {
			found = n
			return false
		}
		return true
	})
	if found == nil {
		return nil
	}
	return d.wrap(found)
}

// QuerySelector returns the first element in document order matching sel.
func (d *Document) QuerySelector(sel string) (*Element, error) {
	m, err := compile(sel)
	if err != nil {
		return nil, err
	}
	n := cascadia.Query(d.root, m)
	if n == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoMatch, sel)
	}
	return d.wrap(n), nil
}

// QuerySelectorAll returns every element matching sel in document order.
func (d *Document) QuerySelectorAll(sel string) ([]*Element, error) {
	m, err := compile(sel)
	if err != nil {
		return nil, err
	}
	nodes := cascadia.QueryAll(d.root, m)
	out := make([]*Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, d.wrap(n))
	}
	return out, nil
}

// Elements returns every element of the document in document order.
func (d *Document) Elements() []*Element {
	var out []*Element
	walk(d.root, func(n *html.Node) bool {
		if n.Type == html.ElementNode {
			out = append(out, d.wrap(n))
		}
		return true
	})
	return out
}

// Render serializes the current tree.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

func compile(sel string) (cascadia.SelectorGroup, error) {
	m, err := cascadia.ParseGroup(sel)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidSelector, sel, err)
	}
	return m, nil
}

func (d *Document) wrap(n *html.Node) *Element {
	if el, ok := d.elements[n]; ok {
		return el
	}
	el := &Element{doc: d, n: n, selectedIndex: -1}
	d.elements[n] = el
	return el
}

// walk visits n's descendants in document order until visit returns false.
func walk(n *html.Node, visit func(*html.Node) bool) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !visit(c) {
			return false
		}
		if !walk(c, visit) {
			return false
		}
	}
	return true
}

func attr(n *html.Node, name string) string {
	v, _ := lookupAttr(n, name)
	return v
}

func lookupAttr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}
