// Package audit checks that the identity attributes of a document resolve
// unambiguously. The recorder resolves a channel to the first element in
// document order that matches it, so an id or class shared by several
// elements attributes one element's value to another's interaction.
package audit

import (
	"strings"

	"github.com/runnerr0/pagetrace/internal/dom"
	"github.com/runnerr0/pagetrace/internal/recorder"
)

// Problem classifies a finding.
type Problem string

const (
	// Ambiguous selectors match more than one element.
	Ambiguous Problem = "ambiguous"
	// Invalid selectors do not parse.
	Invalid Problem = "invalid"
	// Unmatched selectors parse but match nothing, e.g. a className with
	// several classes read as a descendant selector.
	Unmatched Problem = "unmatched"
)

// Finding is one selector that would not resolve to a unique element.
type Finding struct {
	Problem  Problem `json:"problem"`
	Channel  string  `json:"channel"`
	Raw      string  `json:"raw"`
	Selector string  `json:"selector"`
	Matches  int     `json:"matches"`
	Error    string  `json:"error,omitempty"`
}

// Report summarizes an audit.
type Report struct {
	Elements  int       `json:"elements"`
	Selectors int       `json:"selectors"`
	Findings  []Finding `json:"findings"`
}

// Clean reports whether every selector resolves to exactly one element.
func (r Report) Clean() bool { return len(r.Findings) == 0 }

// Count returns how many findings have problem p.
func (r Report) Count(p Problem) int {
	n := 0
	for _, f := range r.Findings {
		if f.Problem == p {
			n++
		}
	}
	return n
}

// Document audits every id, className and classList selector in doc, in
// document order. Each distinct selector is reported at most once.
func Document(doc *dom.Document) Report {
	var r Report
	doc.Run(func() {
		r = audit(doc)
	})
	return r
}

func audit(doc *dom.Document) Report {
	report := Report{Findings: []Finding{}}
	seen := make(map[string]bool)

	for _, el := range doc.Elements() {
		report.Elements++
		channels := []struct {
			kind recorder.AttrKind
			raw  string
		}{
			{recorder.AttrID, el.ID()},
			{recorder.AttrClassName, el.ClassName()},
			{recorder.AttrClassList, strings.Join(el.ClassList(), " ")},
		}

		for _, c := range channels {
			if c.raw == "" {
				continue
			}
			sel := recorder.Selector(c.kind, c.raw)
			if seen[sel] {
				continue
			}
			seen[sel] = true
			report.Selectors++

			f := Finding{Channel: c.kind.String(), Raw: c.raw, Selector: sel}
			matches, err := doc.QuerySelectorAll(sel)
			switch {
			case err != nil:
				f.Problem, f.Error = Invalid, err.Error()
			case len(matches) == 0:
				f.Problem = Unmatched
			case len(matches) > 1:
				f.Problem, f.Matches = Ambiguous, len(matches)
			default:
				continue
			}
			report.Findings = append(report.Findings, f)
		}
	}
	return report
}
