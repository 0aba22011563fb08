package cli

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/pagetrace/internal/dom"
	"github.com/runnerr0/pagetrace/internal/probe"
)

func TestStatus_ProbeRunning(t *testing.T) {
	p := startProbe(t, nil)
	p.in.Window().Dispatch(dom.NewClick(p.doc.GetElementByID("a"), 1, 1))

	cmd := &StatusCommand{globals: &GlobalFlags{}, version: "dev"}

	output := captureOutput(t, func() {
		err := cmd.executeWithClient(context.Background(), p.srv.URL, p.client())
		require.NoError(t, err)
	})

	assert.Contains(t, output, "Pagetrace Status")
	assert.Contains(t, output, "Version:")
	assert.Contains(t, output, "dev")
	assert.Contains(t, output, "running")
	assert.Contains(t, output, "probe-test")
	assert.Contains(t, output, p.in.ID().String())
	assert.Contains(t, output, "Events:        1")
	assert.Contains(t, output, "Pending:       0")
}

func TestStatus_ProbeNotRunning(t *testing.T) {
	cmd := &StatusCommand{globals: &GlobalFlags{}, version: "dev"}
	addr := "http://127.0.0.1:1"
	client := probe.NewClient(addr, &http.Client{Timeout: 200 * time.Millisecond})

	output := captureOutput(t, func() {
		err := cmd.executeWithClient(context.Background(), addr, client)
		require.NoError(t, err)
	})

	assert.Contains(t, output, "not running")
	assert.NotContains(t, output, "Document:")
}

func TestStatus_JSONOutput(t *testing.T) {
	p := startProbe(t, nil)

	cmd := &StatusCommand{globals: &GlobalFlags{JSON: true}, version: "1.0.0"}

	output := captureOutput(t, func() {
		err := cmd.executeWithClient(context.Background(), p.srv.URL, p.client())
		require.NoError(t, err)
	})

	var result statusJSON
	require.NoError(t, json.Unmarshal([]byte(output), &result))

	assert.Equal(t, "1.0.0", result.Version)
	assert.True(t, result.ProbeRunning)
	assert.Equal(t, "probe-test", result.ProbeVersion)
	assert.Equal(t, p.in.ID().String(), result.DocumentID)
	assert.Equal(t, 0, result.Events)
	assert.True(t, result.Changing, "page changing right after install")
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		input    int64
		expected string
	}{
		{0, "0"},
		{1, "1"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
		{100000, "100,000"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, formatNumber(tt.input), "formatNumber(%d)", tt.input)
	}
}
