package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/runnerr0/pagetrace/internal/probe"
	"github.com/runnerr0/pagetrace/internal/recorder"
)

// Execute implements the go-flags Commander interface for EventsCommand.
func (c *EventsCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.globals, false)
	if err != nil {
		return err
	}
	return c.executeWithClient(context.Background(), probeClient(cfg, c.Addr))
}

// executeWithClient prints the log fetched through client (for testing).
func (c *EventsCommand) executeWithClient(ctx context.Context, client *probe.Client) error {
	var kind recorder.Kind
	if c.Kind != "" {
		k, err := recorder.ParseKind(c.Kind)
		if err != nil {
			return err
		}
		kind = k
	}

	recs, err := client.Events(ctx, kind)
	if err != nil {
		return fmt.Errorf("fetch events: %w", err)
	}

	if c.globals != nil && c.globals.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(recs)
	}

	if len(recs) == 0 {
		fmt.Println("No events recorded.")
		return nil
	}
	for _, rec := range recs {
		fmt.Println(formatRecord(rec))
	}
	fmt.Printf("\n%s events\n", formatNumber(int64(len(recs))))
	return nil
}
