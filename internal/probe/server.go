// Package probe serves an instrumented document's accessors over HTTP so a
// driver running in another process can poll them.
package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/runnerr0/pagetrace/internal/instrument"
	"github.com/runnerr0/pagetrace/internal/recorder"
	"github.com/runnerr0/pagetrace/internal/storage"
)

const maxPostBodySize = 64 << 10

// Options configures a Server.
type Options struct {
	Version string
	// SettleTimeout is the window /status uses for its "changing" field.
	SettleTimeout time.Duration
	Logger        *slog.Logger
}

// Server is the probe HTTP handler for one instrumented document.
type Server struct {
	in      *instrument.Instrumentation
	version string
	timeout time.Duration
	logger  *slog.Logger
	mux     *http.ServeMux

	ctx     context.Context
	cancel  context.CancelFunc
	fetches sync.WaitGroup
}

// ChangingResponse is the body of GET /changing.
type ChangingResponse struct {
	Changing     bool  `json:"changing"`
	Pending      int   `json:"pending"`
	LastModified int64 `json:"last_modified"`
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Version    string `json:"version"`
	DocumentID string `json:"document_id"`
	Events     int    `json:"events"`
	Pending    int    `json:"pending"`
	Changing   bool   `json:"changing"`
}

// New builds a probe server for in.
func New(in *instrument.Instrumentation, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.SettleTimeout
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		in:      in,
		version: opts.Version,
		timeout: timeout,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
	s.mux = s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/events", s.handleEvents)
	mux.HandleFunc("/changing", s.handleChanging)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/document", s.handleDocument)
	mux.HandleFunc("/dispatch", s.handleDispatch)
	mux.HandleFunc("/fetch", s.handleFetch)
	return mux
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Close cancels background fetches and waits for them to return.
func (s *Server) Close() {
	s.cancel()
	s.fetches.Wait()
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, http.StatusMethodNotAllowed, "GET only")
		return
	}

	var kind recorder.Kind
	if k := r.URL.Query().Get("kind"); k != "" {
		parsed, err := recorder.ParseKind(k)
		if err != nil {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
		kind = parsed
	}

	out, err := s.records(r.Context(), kind)
	if err != nil {
		s.logger.Error("read event log", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to read events")
		return
	}
	jsonResponse(w, http.StatusOK, out)
}

// querier is implemented by logs that filter on their own.
type querier interface {
	Query(ctx context.Context, q storage.RecordQuery) ([]recorder.Record, error)
}

func (s *Server) records(ctx context.Context, kind recorder.Kind) ([]recorder.Record, error) {
	log := s.in.GetEvents()
	if q, ok := log.(querier); ok && kind != "" {
		return q.Query(ctx, storage.RecordQuery{Kind: kind})
	}

	recs, err := log.Records(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]recorder.Record, 0, len(recs))
	for _, rec := range recs {
		if kind == "" || rec.Kind == kind {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *Server) handleChanging(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, http.StatusMethodNotAllowed, "GET only")
		return
	}

	raw := r.URL.Query().Get("timeout")
	if raw == "" {
		jsonError(w, http.StatusBadRequest, "timeout is required")
		return
	}
	ms, err := strconv.Atoi(raw)
	if err != nil || ms < 0 {
		jsonError(w, http.StatusBadRequest, "timeout must be a non-negative integer of milliseconds")
		return
	}

	d := s.in.Detector()
	jsonResponse(w, http.StatusOK, ChangingResponse{
		Changing:     s.in.IsPageChanging(ms),
		Pending:      d.Pending(),
		LastModified: d.LastModified().UnixMilli(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, http.StatusMethodNotAllowed, "GET only")
		return
	}

	n, err := s.in.GetEvents().Len(r.Context())
	if err != nil {
		s.logger.Error("count event log", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to count events")
		return
	}

	jsonResponse(w, http.StatusOK, StatusResponse{
		Version:    s.version,
		DocumentID: s.in.ID().String(),
		Events:     n,
		Pending:    s.in.Detector().Pending(),
		Changing:   s.in.Detector().IsPageChanging(s.timeout),
	})
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, http.StatusMethodNotAllowed, "GET only")
		return
	}

	doc := s.in.Window().Document()
	var (
		buf bytes.Buffer
		err error
	)
	doc.Run(func() {
		err = doc.Render(&buf)
	})
	if err != nil {
		s.logger.Error("render document", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to render document")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

func jsonResponse(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, status int, msg string) {
	jsonResponse(w, status, map[string]string{"error": msg})
}
