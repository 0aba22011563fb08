package recorder

import (
	"strings"

	"github.com/runnerr0/pagetrace/internal/dom"
)

// AttrKind names one of the identity channels recorded for a target.
type AttrKind int

const (
	AttrID AttrKind = iota
	AttrClassName
	AttrClassList
)

func (k AttrKind) String() string {
	switch k {
	case AttrID:
		return "id"
	case AttrClassName:
		return "className"
	case AttrClassList:
		return "classList"
	}
	return "unknown"
}

// Resolver finds the element a raw attribute value refers to. It may return
// an element other than the event target.
type Resolver func(kind AttrKind, raw string) (*dom.Element, error)

// Selector builds the CSS selector used to resolve raw. The className channel
// prefixes the attribute verbatim, so "a b" becomes the descendant selector
// ".a b"; the classList channel requires every token on one element.
func Selector(kind AttrKind, raw string) string {
	switch kind {
	case AttrID:
		return "#" + raw
	case AttrClassList:
		return "." + strings.Join(strings.Fields(raw), ".")
	}
	return "." + raw
}

// DocumentResolver resolves against the first match in doc, in document order.
// It must be called on-task.
func DocumentResolver(doc *dom.Document) Resolver {
	return func(kind AttrKind, raw string) (*dom.Element, error) {
		return doc.QuerySelector(Selector(kind, raw))
	}
}
