package cli

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/pagetrace/internal/config"
	"github.com/runnerr0/pagetrace/internal/settle"
)

func TestWait_Settles(t *testing.T) {
	p := startProbe(t, nil)

	cmd := &WaitCommand{TimeoutMS: 50, IntervalMS: 20, Attempts: 100, globals: &GlobalFlags{}}
	output := captureOutput(t, func() {
		require.NoError(t, cmd.executeWithClient(context.Background(), config.DefaultConfig().Settle, p.client()))
	})
	assert.Contains(t, output, "Page settled after")
}

func TestWait_TimesOut(t *testing.T) {
	p := startProbe(t, nil)

	cmd := &WaitCommand{TimeoutMS: 60_000, IntervalMS: 10, Attempts: 2, globals: &GlobalFlags{}}
	err := cmd.executeWithClient(context.Background(), config.DefaultConfig().Settle, p.client())
	require.Error(t, err)
	assert.True(t, errors.Is(err, settle.ErrTimeout))
}

func TestWait_JSONReportsFailure(t *testing.T) {
	p := startProbe(t, nil)

	cmd := &WaitCommand{TimeoutMS: 60_000, IntervalMS: 10, Attempts: 1, globals: &GlobalFlags{JSON: true}}
	var err error
	output := captureOutput(t, func() {
		err = cmd.executeWithClient(context.Background(), config.DefaultConfig().Settle, p.client())
	})
	assert.ErrorIs(t, err, settle.ErrTimeout)

	var result waitJSON
	require.NoError(t, json.Unmarshal([]byte(output), &result))
	assert.False(t, result.Settled)
	assert.Contains(t, result.Error, "timed out")
}

func TestWait_ConfigDefaultsApply(t *testing.T) {
	p := startProbe(t, nil)

	defaults := config.SettleConfig{TimeoutMS: 60_000, IntervalMS: 5, Attempts: 3}
	cmd := &WaitCommand{globals: &GlobalFlags{}}
	err := cmd.executeWithClient(context.Background(), defaults, p.client())
	assert.ErrorIs(t, err, settle.ErrTimeout)
	assert.Contains(t, err.Error(), "after 3 attempts")
}
