package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))
	// Second call is a no-op.
	require.NoError(t, Register(reg))

	IncStart()
	IncKill("SIGTERM")
	IncRestart()
	SetRunning(true)
	IncLogRecord()

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	assert.True(t, names["llmshell_child_starts_total"])
	assert.True(t, names["llmshell_child_kills_total"])
	assert.True(t, names["llmshell_child_restarts_total"])
	assert.True(t, names["llmshell_child_running"])
	assert.True(t, names["llmshell_log_records_total"])
}

func TestHandlerServes(t *testing.T) {
	assert.NotNil(t, Handler())
}
