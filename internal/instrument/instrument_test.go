package instrument

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/pagetrace/internal/dom"
	"github.com/runnerr0/pagetrace/internal/recorder"
	"github.com/runnerr0/pagetrace/internal/storage"
)

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

func setup(t *testing.T, opts Options) (*dom.Document, *Instrumentation, *manualClock) {
	t.Helper()
	doc, err := dom.ParseString(`<html><body><div id="a">hello</div></body></html>`)
	require.NoError(t, err)

	clock := &manualClock{now: time.UnixMilli(1_700_000_000_000)}
	opts.Clock = clock.Now
	in := Install(doc.Window(), opts)
	t.Cleanup(func() { in.Close() })
	return doc, in, clock
}

func TestInstall_EndToEnd(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		io.WriteString(w, "done")
	}))
	defer srv.Close()

	doc, in, clock := setup(t, Options{})
	win := doc.Window()

	win.Dispatch(dom.NewClick(doc.GetElementByID("a"), 10, 20))

	recs, err := in.GetEvents().Records(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	raw, err := json.Marshal(recs[0])
	require.NoError(t, err)
	assert.JSONEq(t, `[1700000000000,"click",[[10,20],false,["a",null],["",null],["",null]]]`, string(raw))

	clock.Advance(2 * time.Second)
	require.False(t, in.IsPageChanging(1000))

	finished := make(chan error, 1)
	go func() {
		resp, err := win.Client().Get(srv.URL)
		if err == nil {
			_, err = io.ReadAll(resp.Body)
			resp.Body.Close()
		}
		finished <- err
	}()

	require.Eventually(t, func() bool { return in.Detector().Pending() == 1 },
		time.Second, 5*time.Millisecond)
	assert.True(t, in.IsPageChanging(1000), "changing while a request is open")

	close(release)
	require.NoError(t, <-finished)
	assert.Equal(t, 0, in.Detector().Pending())

	clock.Advance(time.Second)
	assert.False(t, in.IsPageChanging(1000))
}

func TestInstall_ChangingRightAfterInstall(t *testing.T) {
	_, in, clock := setup(t, Options{})

	assert.True(t, in.IsPageChanging(1))
	assert.True(t, in.IsPageChanging(500))

	clock.Advance(500 * time.Millisecond)
	assert.False(t, in.IsPageChanging(500))
}

func TestInstall_MutationRearmsDetector(t *testing.T) {
	doc, in, clock := setup(t, Options{})
	clock.Advance(time.Second)
	require.False(t, in.IsPageChanging(500))

	doc.Run(func() {
		doc.Body().AppendChild(doc.CreateElement("p"))
	})
	assert.True(t, in.IsPageChanging(500))

	clock.Advance(500 * time.Millisecond)
	assert.False(t, in.IsPageChanging(500))
}

func TestInstall_PublishesGlobals(t *testing.T) {
	doc, in, _ := setup(t, Options{})
	win := doc.Window()

	v, ok := win.Global(GlobalIsPageChanging)
	require.True(t, ok)
	isPageChanging, ok := v.(func(int) bool)
	require.True(t, ok)
	assert.True(t, isPageChanging(1000))

	v, ok = win.Global(GlobalGetEvents)
	require.True(t, ok)
	getEvents, ok := v.(func() recorder.Log)
	require.True(t, ok)

	win.Dispatch(dom.NewKeyUp(doc.GetElementByID("a"), 'x', false))
	n, err := getEvents().Len(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Same(t, in.GetEvents(), getEvents())
}

func TestInstall_KeepsGivenID(t *testing.T) {
	id := uuid.New()
	_, in, _ := setup(t, Options{ID: id})
	assert.Equal(t, id, in.ID())

	_, other, _ := setup(t, Options{})
	assert.NotEqual(t, uuid.Nil, other.ID())
	assert.NotEqual(t, id, other.ID())
}

func TestInstall_SQLiteLog(t *testing.T) {
	id := uuid.New()
	log, err := storage.OpenMemory(id.String())
	require.NoError(t, err)

	doc, in, _ := setup(t, Options{ID: id, Log: log})
	doc.Window().Dispatch(dom.NewClick(doc.GetElementByID("a"), 1, 2))

	stats, err := log.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalRecords)

	require.NoError(t, in.Close())
	_, err = log.Len(context.Background())
	assert.Error(t, err, "log is closed with the document")
}
