package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/runnerr0/pagetrace/internal/probe"
)

// statusJSON is the JSON output structure for the status command.
type statusJSON struct {
	Version      string `json:"version"`
	ProbeURL     string `json:"probe_url"`
	ProbeRunning bool   `json:"probe_running"`
	ProbeVersion string `json:"probe_version,omitempty"`
	DocumentID   string `json:"document_id,omitempty"`
	Events       int    `json:"events"`
	Pending      int    `json:"pending"`
	Changing     bool   `json:"changing"`
}

// Execute implements the go-flags Commander interface for StatusCommand.
func (c *StatusCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.globals, false)
	if err != nil {
		return err
	}

	addr := c.Addr
	if addr == "" {
		addr = cfg.Probe.BaseURL()
	}
	return c.executeWithClient(context.Background(), addr, probeClient(cfg, addr))
}

// executeWithClient runs status against a provided client (for testing).
func (c *StatusCommand) executeWithClient(ctx context.Context, addr string, client *probe.Client) error {
	status, err := client.Status(ctx)
	running := err == nil

	out := statusJSON{
		Version:      c.version,
		ProbeURL:     addr,
		ProbeRunning: running,
	}
	if running {
		out.ProbeVersion = status.Version
		out.DocumentID = status.DocumentID
		out.Events = status.Events
		out.Pending = status.Pending
		out.Changing = status.Changing
	}

	if c.globals != nil && c.globals.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	c.printStatusHuman(out)
	return nil
}

func (c *StatusCommand) printStatusHuman(s statusJSON) {
	fmt.Println("Pagetrace Status")
	fmt.Println("================")
	fmt.Printf("Version:       %s\n", s.Version)

	if !s.ProbeRunning {
		fmt.Printf("Probe:         not running (%s)\n", s.ProbeURL)
		return
	}

	fmt.Printf("Probe:         running (%s, %s)\n", s.ProbeURL, s.ProbeVersion)
	fmt.Printf("Document:      %s\n", s.DocumentID)
	fmt.Printf("Events:        %s\n", formatNumber(int64(s.Events)))
	fmt.Printf("Pending:       %d\n", s.Pending)
	if s.Changing {
		fmt.Println("Page:          changing")
	} else {
		fmt.Println("Page:          settled")
	}
}
