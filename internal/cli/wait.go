package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/runnerr0/pagetrace/internal/config"
	"github.com/runnerr0/pagetrace/internal/probe"
	"github.com/runnerr0/pagetrace/internal/settle"
)

// waitJSON is the JSON output structure for the wait command.
type waitJSON struct {
	Settled   bool   `json:"settled"`
	ElapsedMS int64  `json:"elapsed_ms"`
	Error     string `json:"error,omitempty"`
}

// Execute implements the go-flags Commander interface for WaitCommand.
func (c *WaitCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.globals, false)
	if err != nil {
		return err
	}
	return c.executeWithClient(context.Background(), cfg.Settle, probeClient(cfg, c.Addr))
}

// executeWithClient polls through client; flags override the settle config.
func (c *WaitCommand) executeWithClient(ctx context.Context, defaults config.SettleConfig, client *probe.Client) error {
	timeoutMS := defaults.TimeoutMS
	if c.TimeoutMS > 0 {
		timeoutMS = c.TimeoutMS
	}
	opts := settle.WaitOptions{
		Interval:    time.Duration(defaults.IntervalMS) * time.Millisecond,
		MaxAttempts: defaults.Attempts,
	}
	if c.IntervalMS > 0 {
		opts.Interval = time.Duration(c.IntervalMS) * time.Millisecond
	}
	if c.Attempts > 0 {
		opts.MaxAttempts = c.Attempts
	}

	probeFn := func(ctx context.Context) (bool, error) {
		resp, err := client.Changing(ctx, timeoutMS)
		if err != nil {
			return false, err
		}
		return resp.Changing, nil
	}

	start := time.Now()
	err := settle.Wait(ctx, probeFn, opts)
	elapsed := time.Since(start)

	if c.globals != nil && c.globals.JSON {
		out := waitJSON{Settled: err == nil, ElapsedMS: elapsed.Milliseconds()}
		if err != nil {
			out.Error = err.Error()
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(out); encErr != nil {
			return encErr
		}
		return err
	}

	if err != nil {
		return fmt.Errorf("wait for page: %w", err)
	}
	fmt.Printf("Page settled after %s\n", elapsed.Round(time.Millisecond))
	return nil
}
