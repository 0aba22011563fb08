package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/runnerr0/pagetrace/internal/audit"
	"github.com/runnerr0/pagetrace/internal/config"
	"github.com/runnerr0/pagetrace/internal/instrument"
	"github.com/runnerr0/pagetrace/internal/probe"
	"github.com/runnerr0/pagetrace/internal/recorder"
	"github.com/runnerr0/pagetrace/internal/storage"
)

const shutdownTimeout = 5 * time.Second

// Execute implements the go-flags Commander interface for ServeCommand.
func (c *ServeCommand) Execute(args []string) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", cfg.Probe.Addr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Probe.Addr(), err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return c.serve(ctx, cfg, logger, ln)
}

// config applies the command's overrides on top of the loaded configuration.
func (c *ServeCommand) config() (*config.Config, error) {
	cfg, err := loadConfig(c.globals, true)
	if err != nil {
		return nil, err
	}
	if c.Host != "" {
		cfg.Probe.Host = c.Host
	}
	if c.Port != 0 {
		cfg.Probe.Port = c.Port
	}
	if c.Backend != "" {
		cfg.Recorder.Backend = c.Backend
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// serve hosts the page on ln until ctx is done.
func (c *ServeCommand) serve(ctx context.Context, cfg *config.Config, logger *slog.Logger, ln net.Listener) error {
	doc, err := loadPage(c.Page)
	if err != nil {
		ln.Close()
		return err
	}

	report := audit.Document(doc)
	for _, f := range report.Findings {
		logger.Warn("selector will not resolve uniquely",
			"problem", f.Problem, "channel", f.Channel, "selector", f.Selector, "matches", f.Matches)
	}

	id := uuid.New()
	log, err := openLog(cfg.Recorder.Backend, id)
	if err != nil {
		ln.Close()
		return err
	}

	in := instrument.Install(doc.Window(), instrument.Options{ID: id, Log: log, Logger: logger})
	defer in.Close()

	probeSrv := probe.New(in, probe.Options{
		Version:       c.version,
		SettleTimeout: time.Duration(cfg.Settle.TimeoutMS) * time.Millisecond,
		Logger:        logger,
	})
	defer probeSrv.Close()

	server := &http.Server{
		Handler:           probeSrv,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("probe listening", "addr", ln.Addr().String(), "page", c.Page, "backend", cfg.Recorder.Backend)
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve probe: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down probe")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown probe: %w", err)
	}

	logTraceSummary(logger, log)
	return nil
}

// openLog creates the event log for one document.
func openLog(backend string, id uuid.UUID) (recorder.Log, error) {
	switch backend {
	case config.BackendSQLite:
		l, err := storage.OpenMemory(id.String())
		if err != nil {
			return nil, fmt.Errorf("open trace store: %w", err)
		}
		return l, nil
	default:
		return recorder.NewMemoryLog(), nil
	}
}

func logTraceSummary(logger *slog.Logger, log recorder.Log) {
	ctx := context.Background()
	if rl, ok := log.(*storage.RecordLog); ok {
		stats, err := rl.Stats(ctx)
		if err != nil {
			logger.Warn("trace stats", "error", err)
			return
		}
		logger.Info("trace summary",
			"records", stats.TotalRecords,
			"click", stats.ByKind[recorder.KindClick],
			"keyup", stats.ByKind[recorder.KindKeyUp],
			"scroll", stats.ByKind[recorder.KindScroll])
		return
	}

	n, err := log.Len(ctx)
	if err != nil {
		logger.Warn("trace length", "error", err)
		return
	}
	logger.Info("trace summary", "records", n)
}
