package probe

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"unicode/utf8"

	"github.com/runnerr0/pagetrace/internal/dom"
)

// DispatchRequest is the body of POST /dispatch. Selector names the target
// of click and keyup; Value, when set, is assigned to the target before a
// keyup fires. SelectedIndex, when set, selects an option before a click.
type DispatchRequest struct {
	Type          string  `json:"type"`
	Selector      string  `json:"selector,omitempty"`
	X             int     `json:"x,omitempty"`
	Y             int     `json:"y,omitempty"`
	Key           string  `json:"key,omitempty"`
	Shift         bool    `json:"shift,omitempty"`
	Value         *string `json:"value,omitempty"`
	SelectedIndex *int    `json:"selected_index,omitempty"`
}

// FetchRequest is the body of POST /fetch.
type FetchRequest struct {
	URL string `json:"url"`
}

var errBadDispatch = errors.New("bad dispatch request")

func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}

	var req DispatchRequest
	if err := decodeBody(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	doc := s.in.Window().Document()
	var err error
	doc.Run(func() {
		err = s.dispatch(doc, req)
	})

	switch {
	case errors.Is(err, dom.ErrNoMatch):
		jsonError(w, http.StatusNotFound, err.Error())
	case err != nil:
		jsonError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Debug("dispatched event", "type", req.Type, "selector", req.Selector)
		jsonResponse(w, http.StatusOK, map[string]string{"dispatched": req.Type})
	}
}

// dispatch runs on-task.
func (s *Server) dispatch(doc *dom.Document, req DispatchRequest) error {
	win := doc.Window()

	switch req.Type {
	case dom.EventScroll:
		win.ScrollTo(req.X, req.Y)
		return nil
	case dom.EventClick, dom.EventKeyUp:
	default:
		return fmt.Errorf("%w: unsupported type %q", errBadDispatch, req.Type)
	}

	if req.Selector == "" {
		return fmt.Errorf("%w: selector is required for %s", errBadDispatch, req.Type)
	}
	target, err := doc.QuerySelector(req.Selector)
	if err != nil {
		return err
	}

	if req.Type == dom.EventClick {
		if req.SelectedIndex != nil {
			if err := target.SetSelectedIndex(*req.SelectedIndex); err != nil {
				return err
			}
		}
		win.DispatchEvent(dom.NewClick(target, req.X, req.Y))
		return nil
	}

	key, size := utf8.DecodeRuneInString(req.Key)
	if key == utf8.RuneError || size != len(req.Key) {
		return fmt.Errorf("%w: key must be a single character", errBadDispatch)
	}
	if req.Value != nil {
		if err := target.SetValue(*req.Value); err != nil {
			return err
		}
	}
	win.DispatchEvent(dom.NewKeyUp(target, int(key), req.Shift))
	return nil
}

func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}

	var req FetchRequest
	if err := decodeBody(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	u, err := url.Parse(req.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		jsonError(w, http.StatusBadRequest, "url must be an absolute http(s) URL")
		return
	}

	httpReq, err := http.NewRequestWithContext(s.ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.fetches.Add(1)
	go func() {
		defer s.fetches.Done()
		s.fetch(httpReq)
	}()

	jsonResponse(w, http.StatusAccepted, map[string]string{"fetching": u.String()})
}

// fetch issues req through the page client so the detector sees it.
func (s *Server) fetch(req *http.Request) {
	resp, err := s.in.Window().Client().Do(req)
	if err != nil {
		s.logger.Warn("page fetch failed", "url", req.URL.String(), "error", err)
		return
	}
	defer resp.Body.Close()

	n, err := io.Copy(io.Discard, resp.Body)
	if err != nil {
		s.logger.Warn("page fetch body", "url", req.URL.String(), "error", err)
		return
	}
	s.logger.Debug("page fetch done", "url", req.URL.String(), "status", resp.StatusCode, "bytes", n)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxPostBodySize)
	return json.NewDecoder(r.Body).Decode(v)
}
