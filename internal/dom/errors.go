package dom

import "errors"

var (
	// ErrNoMatch is returned when a selector matches no element.
	ErrNoMatch = errors.New("no element matches selector")

	// ErrInvalidSelector is returned when a selector cannot be parsed.
	ErrInvalidSelector = errors.New("invalid selector")

	// ErrNoProperty is returned when an element does not carry the requested
	// live property (for example selectedIndex on a div).
	ErrNoProperty = errors.New("element has no such property")

	// ErrNotChild is returned by RemoveChild for a node that is not a child.
	ErrNotChild = errors.New("node is not a child of this element")
)
