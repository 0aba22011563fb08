package dom

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// Element wraps one element node together with its live properties.
type Element struct {
	doc    *Document
	n      *html.Node
	target eventTarget

	value      string
	valueDirty bool

	selectedIndex int
	selectDirty   bool
}

func (e *Element) htmlNode() *html.Node { return e.n }

// Document returns the owning document.
func (e *Element) Document() *Document { return e.doc }

// TagName returns the upper-case tag name, as browsers report it.
func (e *Element) TagName() string { return strings.ToUpper(e.n.Data) }

// ID returns the id attribute, or "" when absent.
func (e *Element) ID() string { return attr(e.n, "id") }

// ClassName returns the raw class attribute, or "" when absent.
func (e *Element) ClassName() string { return attr(e.n, "class") }

// ClassList returns the whitespace-separated class tokens.
func (e *Element) ClassList() []string { return strings.Fields(e.ClassName()) }

// Attr returns the named attribute and whether it is present.
func (e *Element) Attr(name string) (string, bool) { return lookupAttr(e.n, name) }

// SetAttribute sets or replaces an attribute.
func (e *Element) SetAttribute(name, value string) {
	for i, a := range e.n.Attr {
		if a.Namespace == "" && a.Key == name {
			e.n.Attr[i].Val = value
			e.doc.queueMutation(MutationRecord{Type: MutationAttributes, Target: e, AttributeName: name})
			return
		}
	}
	e.n.Attr = append(e.n.Attr, html.Attribute{Key: name, Val: value})
	e.doc.queueMutation(MutationRecord{Type: MutationAttributes, Target: e, AttributeName: name})
}

// RemoveAttribute deletes an attribute if present.
func (e *Element) RemoveAttribute(name string) {
	for i, a := range e.n.Attr {
		if a.Namespace == "" && a.Key == name {
			e.n.Attr = append(e.n.Attr[:i], e.n.Attr[i+1:]...)
			e.doc.queueMutation(MutationRecord{Type: MutationAttributes, Target: e, AttributeName: name})
			return
		}
	}
}

// Parent returns the parent element, or nil for the root or a detached node.
func (e *Element) Parent() *Element {
	p := e.n.Parent
	if p == nil || p.Type != html.ElementNode {
		return nil
	}
	return e.doc.wrap(p)
}

// Children returns the element children.
func (e *Element) Children() []*Element {
	var out []*Element
	for c := e.n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, e.doc.wrap(c))
		}
	}
	return out
}

// AppendChild moves child to the end of e's children.
func (e *Element) AppendChild(child *Element) {
	if old := child.n.Parent; old != nil {
		old.RemoveChild(child.n)
		e.doc.queueMutation(MutationRecord{Type: MutationChildList, Target: e.doc.nodeFor(old), Removed: 1})
	}
	e.n.AppendChild(child.n)
	e.doc.queueMutation(MutationRecord{Type: MutationChildList, Target: e, Added: 1})
}

// RemoveChild detaches child from e.
func (e *Element) RemoveChild(child *Element) error {
	if child.n.Parent != e.n {
		return ErrNotChild
	}
	e.n.RemoveChild(child.n)
	e.doc.queueMutation(MutationRecord{Type: MutationChildList, Target: e, Removed: 1})
	return nil
}

// Text returns the concatenated text content of e.
func (e *Element) Text() string {
	var b strings.Builder
	collectText(e.n, &b)
	return b.String()
}

// SetText replaces all children of e with a single text node.
func (e *Element) SetText(s string) {
	removed := 0
	for c := e.n.FirstChild; c != nil; c = e.n.FirstChild {
		e.n.RemoveChild(c)
		removed++
	}
	added := 0
	if s != "" {
		e.n.AppendChild(&html.Node{Type: html.TextNode, Data: s})
		added = 1
	}
	if removed+added > 0 {
		e.doc.queueMutation(MutationRecord{Type: MutationChildList, Target: e, Added: added, Removed: removed})
	}
}

// OuterHTML serializes e.
func (e *Element) OuterHTML() string {
	var buf bytes.Buffer
	if err := html.Render(&buf, e.n); err != nil {
		return ""
	}
	return buf.String()
}

// AddEventListener registers a listener on e.
func (e *Element) AddEventListener(typ string, fn Listener, capture bool) {
	e.target.add(typ, fn, capture)
}

// Value returns the live value property. The boolean is false for elements
// that have no value property at all.
func (e *Element) Value() (string, bool) {
	switch e.n.Data {
	case "input", "button":
		if e.valueDirty {
			return e.value, true
		}
		return attr(e.n, "value"), true
	case "textarea":
		if e.valueDirty {
			return e.value, true
		}
		return e.Text(), true
	case "select":
		opts := e.Options()
		idx, _ := e.SelectedIndex()
		if idx < 0 || idx >= len(opts) {
			return "", true
		}
		return opts[idx].Value()
	case "option":
		if v, ok := lookupAttr(e.n, "value"); ok {
			return v, true
		}
		return e.optionText(), true
	}
	return "", false
}

// SetValue assigns the live value property.
func (e *Element) SetValue(v string) error {
	switch e.n.Data {
	case "input", "button", "textarea":
		e.value = v
		e.valueDirty = true
		return nil
	case "select":
		e.selectDirty = true
		e.selectedIndex = -1
		for i, o := range e.Options() {
			if ov, _ := o.Value(); ov == v {
				e.selectedIndex = i
				break
			}
		}
		return nil
	case "option":
		e.SetAttribute("value", v)
		return nil
	}
	return fmt.Errorf("%w: value on <%s>", ErrNoProperty, e.n.Data)
}

// Options returns the option elements of a select, including those nested in
// optgroups. It is empty for any other element.
func (e *Element) Options() []*Element {
	if e.n.Data != "select" {
		return nil
	}
	var out []*Element
	walk(e.n, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "option" {
			out = append(out, e.doc.wrap(n))
		}
		return true
	})
	return out
}

// SelectedIndex returns the selected option index of a select, -1 when none
// is selected. The boolean is false for elements that are not selects.
func (e *Element) SelectedIndex() (int, bool) {
	if e.n.Data != "select" {
		return 0, false
	}
	if e.selectDirty {
		return e.selectedIndex, true
	}
	opts := e.Options()
	for i, o := range opts {
		if _, ok := lookupAttr(o.n, "selected"); ok {
			return i, true
		}
	}
	if len(opts) > 0 {
		return 0, true
	}
	return -1, true
}

// SetSelectedIndex selects the option at i. Out of range clears the selection.
func (e *Element) SetSelectedIndex(i int) error {
	if e.n.Data != "select" {
		return fmt.Errorf("%w: selectedIndex on <%s>", ErrNoProperty, e.n.Data)
	}
	if i < 0 || i >= len(e.Options()) {
		i = -1
	}
	e.selectedIndex = i
	e.selectDirty = true
	return nil
}

// SelectedText returns the visible text of the selected option. The boolean
// is false when e is not a select or nothing is selected.
func (e *Element) SelectedText() (string, bool) {
	idx, ok := e.SelectedIndex()
	if !ok {
		return "", false
	}
	opts := e.Options()
	if idx < 0 || idx >= len(opts) {
		return "", false
	}
	return opts[idx].optionText(), true
}

// optionText mirrors HTMLOptionElement.text: whitespace stripped and collapsed.
func (e *Element) optionText() string {
	return strings.Join(strings.Fields(e.Text()), " ")
}

func collectText(n *html.Node, b *strings.Builder) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			b.WriteString(c.Data)
		case html.ElementNode:
			collectText(c, b)
		}
	}
}
