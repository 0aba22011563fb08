package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/runnerr0/pagetrace/internal/audit"
)

// Execute implements the go-flags Commander interface for AuditCommand.
func (c *AuditCommand) Execute(args []string) error {
	doc, err := loadPage(c.Page)
	if err != nil {
		return err
	}

	report := audit.Document(doc)

	if c.globals != nil && c.globals.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		printAuditHuman(c.Page, report)
	}

	if !report.Clean() {
		return fmt.Errorf("%d selector findings in %s", len(report.Findings), c.Page)
	}
	return nil
}

func printAuditHuman(page string, r audit.Report) {
	fmt.Printf("Audit of %s\n", page)
	fmt.Printf("Elements:      %s\n", formatNumber(int64(r.Elements)))
	fmt.Printf("Selectors:     %s\n", formatNumber(int64(r.Selectors)))

	if r.Clean() {
		fmt.Println("Every selector resolves to exactly one element.")
		return
	}

	fmt.Println()
	for _, f := range r.Findings {
		switch f.Problem {
		case audit.Ambiguous:
			fmt.Printf("  %-10s %-10s %-24s matches %d elements\n", f.Problem, f.Channel, f.Selector, f.Matches)
		case audit.Invalid:
			fmt.Printf("  %-10s %-10s %-24s %s\n", f.Problem, f.Channel, f.Selector, f.Error)
		default:
			fmt.Printf("  %-10s %-10s %-24s matches nothing\n", f.Problem, f.Channel, f.Selector)
		}
	}
}
