package probe

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/pagetrace/internal/dom"
	"github.com/runnerr0/pagetrace/internal/instrument"
	"github.com/runnerr0/pagetrace/internal/recorder"
	"github.com/runnerr0/pagetrace/internal/storage"
)

const page = `<html><body>
<div id="a">plain</div>
<input id="name" class="name-field" value="">
<select id="size"><option>Small</option><option>Large</option></select>
</body></html>`

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	srv   *httptest.Server
	in    *instrument.Instrumentation
	clock *manualClock
}

func setup(t *testing.T) *fixture {
	t.Helper()
	return setupWithLog(t, nil)
}

func setupWithLog(t *testing.T, log recorder.Log) *fixture {
	t.Helper()
	doc, err := dom.ParseString(page)
	require.NoError(t, err)

	clock := &manualClock{now: time.UnixMilli(1_700_000_000_000)}
	in := instrument.Install(doc.Window(), instrument.Options{Clock: clock.Now, Log: log})

	probe := New(in, Options{Version: "test", SettleTimeout: 500 * time.Millisecond})
	srv := httptest.NewServer(probe)
	t.Cleanup(func() {
		srv.Close()
		probe.Close()
		in.Close()
	})
	return &fixture{srv: srv, in: in, clock: clock}
}

func (f *fixture) get(t *testing.T, path string, v any) int {
	t.Helper()
	resp, err := http.Get(f.srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

func (f *fixture) post(t *testing.T, path string, body any) (int, map[string]string) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	resp, err := http.Post(f.srv.URL+path, "application/json", &buf)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]string{}
	json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func TestChanging(t *testing.T) {
	f := setup(t)

	var got ChangingResponse
	require.Equal(t, http.StatusOK, f.get(t, "/changing?timeout=1000", &got))
	assert.True(t, got.Changing, "changing right after install")
	assert.Equal(t, 0, got.Pending)
	assert.Equal(t, int64(1_700_000_000_000), got.LastModified)

	f.clock.Advance(time.Second)
	require.Equal(t, http.StatusOK, f.get(t, "/changing?timeout=1000", &got))
	assert.False(t, got.Changing)
}

func TestChanging_BadTimeout(t *testing.T) {
	f := setup(t)

	for _, q := range []string{"", "?timeout=", "?timeout=abc", "?timeout=-5"} {
		assert.Equal(t, http.StatusBadRequest, f.get(t, "/changing"+q, nil), q)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	f := setup(t)

	resp, err := http.Post(f.srv.URL+"/events", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	assert.Equal(t, http.StatusMethodNotAllowed, f.get(t, "/dispatch", nil))
}

func TestDispatchAndEvents(t *testing.T) {
	f := setup(t)

	code, _ := f.post(t, "/dispatch", DispatchRequest{Type: "click", Selector: "#a", X: 10, Y: 20})
	require.Equal(t, http.StatusOK, code)

	value := "Ada"
	code, _ = f.post(t, "/dispatch", DispatchRequest{Type: "keyup", Selector: "#name", Key: "a", Value: &value})
	require.Equal(t, http.StatusOK, code)

	code, _ = f.post(t, "/dispatch", DispatchRequest{Type: "scroll", X: 0, Y: 300})
	require.Equal(t, http.StatusOK, code)

	var recs []recorder.Record
	require.Equal(t, http.StatusOK, f.get(t, "/events", &recs))
	require.Len(t, recs, 3)
	assert.Equal(t, recorder.KindClick, recs[0].Kind)
	assert.Equal(t, recorder.KindKeyUp, recs[1].Kind)
	assert.Equal(t, recorder.KindScroll, recs[2].Kind)

	key := recs[1].Payload.(recorder.KeyUp)
	assert.Equal(t, "a", key.Key)
	require.NotNil(t, key.ID.Resolved)
	assert.Equal(t, "Ada", *key.ID.Resolved)
	assert.Equal(t, recorder.Scroll{X: 0, Y: 300}, recs[2].Payload)

	var keyups []recorder.Record
	require.Equal(t, http.StatusOK, f.get(t, "/events?kind=keyup", &keyups))
	require.Len(t, keyups, 1)
	assert.Equal(t, recorder.KindKeyUp, keyups[0].Kind)

	assert.Equal(t, http.StatusBadRequest, f.get(t, "/events?kind=hover", nil))
}

func TestDispatch_SelectClick(t *testing.T) {
	f := setup(t)

	idx := 1
	code, _ := f.post(t, "/dispatch", DispatchRequest{Type: "click", Selector: "#size", SelectedIndex: &idx})
	require.Equal(t, http.StatusOK, code)

	var recs []recorder.Record
	require.Equal(t, http.StatusOK, f.get(t, "/events", &recs))
	require.Len(t, recs, 1)
	click := recs[0].Payload.(recorder.Click)
	assert.True(t, click.IsSelect)
	require.NotNil(t, click.ID.Resolved)
	assert.Equal(t, "Large", *click.ID.Resolved)
}

func TestDispatch_Errors(t *testing.T) {
	f := setup(t)

	tests := []struct {
		name string
		req  DispatchRequest
		code int
	}{
		{"unknown type", DispatchRequest{Type: "hover", Selector: "#a"}, http.StatusBadRequest},
		{"missing selector", DispatchRequest{Type: "click"}, http.StatusBadRequest},
		{"invalid selector", DispatchRequest{Type: "click", Selector: "bad["}, http.StatusBadRequest},
		{"no match", DispatchRequest{Type: "click", Selector: "#missing"}, http.StatusNotFound},
		{"multi-char key", DispatchRequest{Type: "keyup", Selector: "#name", Key: "ab"}, http.StatusBadRequest},
		{"value on div", DispatchRequest{Type: "keyup", Selector: "#a", Key: "a", Value: recorder.StringPtr("x")}, http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			code, body := f.post(t, "/dispatch", tc.req)
			assert.Equal(t, tc.code, code)
			assert.NotEmpty(t, body["error"])
		})
	}

	var recs []recorder.Record
	require.Equal(t, http.StatusOK, f.get(t, "/events", &recs))
	assert.Empty(t, recs, "rejected dispatches record nothing")
}

func TestFetchDrivesPendingCount(t *testing.T) {
	f := setup(t)
	f.clock.Advance(time.Second)

	release := make(chan struct{})
	var once sync.Once
	unblock := func() { once.Do(func() { close(release) }) }
	defer unblock()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
		io.WriteString(w, "ok")
	}))
	defer upstream.Close()

	code, _ := f.post(t, "/fetch", FetchRequest{URL: upstream.URL})
	require.Equal(t, http.StatusAccepted, code)

	require.Eventually(t, func() bool { return f.in.Detector().Pending() == 1 },
		time.Second, 5*time.Millisecond)

	var status StatusResponse
	require.Equal(t, http.StatusOK, f.get(t, "/status", &status))
	assert.True(t, status.Changing)
	assert.Equal(t, 1, status.Pending)

	unblock()
	require.Eventually(t, func() bool { return f.in.Detector().Pending() == 0 },
		time.Second, 5*time.Millisecond)

	require.Equal(t, http.StatusOK, f.get(t, "/status", &status))
	assert.False(t, status.Changing)
}

func TestFetch_BadURL(t *testing.T) {
	f := setup(t)

	for _, u := range []string{"", "ftp://example.com", "/relative", "http://"} {
		code, _ := f.post(t, "/fetch", FetchRequest{URL: u})
		assert.Equal(t, http.StatusBadRequest, code, u)
	}
}

func TestStatus(t *testing.T) {
	f := setup(t)

	var status StatusResponse
	require.Equal(t, http.StatusOK, f.get(t, "/status", &status))
	assert.Equal(t, "test", status.Version)
	assert.Equal(t, f.in.ID().String(), status.DocumentID)
	assert.Equal(t, 0, status.Events)
	assert.True(t, status.Changing)
}

func TestDocument(t *testing.T) {
	f := setup(t)

	resp, err := http.Get(f.srv.URL + "/document")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, string(body), `<div id="a">plain</div>`)
}

func TestEvents_SQLiteBackendFilters(t *testing.T) {
	log, err := storage.OpenMemory(uuid.NewString())
	require.NoError(t, err)
	f := setupWithLog(t, log)

	for _, req := range []DispatchRequest{
		{Type: "click", Selector: "#a"},
		{Type: "scroll", Y: 40},
		{Type: "click", Selector: "#size"},
	} {
		code, _ := f.post(t, "/dispatch", req)
		require.Equal(t, http.StatusOK, code)
	}

	var clicks []recorder.Record
	require.Equal(t, http.StatusOK, f.get(t, "/events?kind=click", &clicks))
	require.Len(t, clicks, 2)
	assert.True(t, clicks[1].Payload.(recorder.Click).IsSelect)

	var all []recorder.Record
	require.Equal(t, http.StatusOK, f.get(t, "/events", &all))
	assert.Len(t, all, 3)
}
