package cli

import (
	"bytes"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	goflags "github.com/jessevdk/go-flags"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/pagetrace/internal/dom"
	"github.com/runnerr0/pagetrace/internal/instrument"
	"github.com/runnerr0/pagetrace/internal/probe"
)

const testPage = `<html><body>
<div id="a">plain</div>
<input id="name" class="name-field" value="Ada">
<select id="size"><option>Small</option><option selected>Large</option></select>
</body></html>`

// captureOutput captures stdout during fn execution and returns it as a string.
func captureOutput(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

// noopHandler keeps parser tests from executing commands.
func noopHandler(goflags.Commander, []string) error { return nil }

// writePage writes src to a temporary HTML file.
func writePage(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))
	return path
}

type testProbe struct {
	srv *httptest.Server
	in  *instrument.Instrumentation
	doc *dom.Document
}

// startProbe hosts testPage behind an httptest probe. clock may be nil.
func startProbe(t *testing.T, clock func() time.Time) *testProbe {
	t.Helper()
	doc, err := dom.ParseString(testPage)
	require.NoError(t, err)

	in := instrument.Install(doc.Window(), instrument.Options{Clock: clock})
	p := probe.New(in, probe.Options{Version: "probe-test"})
	srv := httptest.NewServer(p)
	t.Cleanup(func() {
		srv.Close()
		p.Close()
		in.Close()
	})
	return &testProbe{srv: srv, in: in, doc: doc}
}

func (p *testProbe) client() *probe.Client {
	return probe.NewClient(p.srv.URL, nil)
}
