package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/runnerr0/pagetrace/internal/config"
	"github.com/runnerr0/pagetrace/internal/dom"
	"github.com/runnerr0/pagetrace/internal/logging"
	"github.com/runnerr0/pagetrace/internal/probe"
	"github.com/runnerr0/pagetrace/internal/recorder"
)

// loadConfig resolves the effective configuration: the --config file, or the
// default path, then dotenv and PAGETRACE_* overrides. With create set, a
// missing default file is written out; otherwise defaults are used in memory.
func loadConfig(g *GlobalFlags, create bool) (*config.Config, error) {
	if g == nil {
		g = &GlobalFlags{}
	}
	if g.EnvFile != "" {
		if err := config.LoadEnvFile(g.EnvFile); err != nil {
			return nil, err
		}
	}

	var (
		cfg *config.Config
		err error
	)
	switch {
	case g.Config != "":
		cfg, err = config.Load(g.Config)
	case create:
		cfg, err = config.LoadOrCreate()
	default:
		cfg, err = loadDefaultIfPresent()
	}
	if err != nil {
		return nil, err
	}

	if err := config.ApplyEnv(cfg); err != nil {
		return nil, fmt.Errorf("apply environment: %w", err)
	}
	if g.Verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

func loadDefaultIfPresent() (*config.Config, error) {
	path, err := config.DefaultPath()
	if err != nil {
		return config.DefaultConfig(), nil
	}
	if _, err := os.Stat(path); err != nil {
		return config.DefaultConfig(), nil
	}
	return config.Load(path)
}

// newLogger builds the command logger. Logs go to stderr so stdout stays
// parseable.
func newLogger(cfg *config.Config) (*slog.Logger, error) {
	return logging.New(logging.FromConfig(cfg.Logging, os.Stderr))
}

// loadPage parses an HTML file into a hosted document.
func loadPage(path string) (*dom.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	defer f.Close()

	doc, err := dom.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse page %s: %w", path, err)
	}
	return doc, nil
}

// probeClient returns a client for addr, or for the configured probe.
func probeClient(cfg *config.Config, addr string) *probe.Client {
	if addr == "" {
		addr = cfg.Probe.BaseURL()
	}
	return probe.NewClient(addr, nil)
}

// formatRecord renders one record on a single line.
func formatRecord(rec recorder.Record) string {
	ts := time.UnixMilli(rec.Timestamp).UTC().Format("15:04:05.000")

	switch p := rec.Payload.(type) {
	case recorder.Click:
		line := fmt.Sprintf("%s  click   (%d,%d)", ts, p.X, p.Y)
		if p.IsSelect {
			line += " select"
		}
		return line + formatChannels(p.ID, p.ClassName, p.ClassList)
	case recorder.KeyUp:
		key := p.Key
		if p.Shift {
			key = "shift+" + key
		}
		return fmt.Sprintf("%s  keyup   %q", ts, key) + formatChannels(p.ID, p.ClassName, p.ClassList)
	case recorder.Scroll:
		return fmt.Sprintf("%s  scroll  (%d,%d)", ts, p.X, p.Y)
	}
	return fmt.Sprintf("%s  %s", ts, rec.Kind)
}

func formatChannels(id, className, classList recorder.Channel) string {
	var b strings.Builder
	for _, c := range []struct {
		name string
		ch   recorder.Channel
	}{{"id", id}, {"class", className}, {"classList", classList}} {
		if c.ch.Raw == "" {
			continue
		}
		fmt.Fprintf(&b, " %s=%s", c.name, c.ch.Raw)
		if c.ch.Resolved != nil {
			fmt.Fprintf(&b, "->%q", *c.ch.Resolved)
		}
	}
	return b.String()
}

// formatNumber formats an int64 with comma separators.
func formatNumber(n int64) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
		if len(s) > remainder {
			result.WriteString(",")
		}
	}
	for i := remainder; i < len(s); i += 3 {
		if i > remainder {
			result.WriteString(",")
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}
