package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llm-shell/llmshell/internal/logstore"
	"github.com/llm-shell/llmshell/internal/probe"
	"github.com/llm-shell/llmshell/internal/supervisor"
)

func requireUnix(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("tests require sh/sleep on Unix-like systems")
	}
}

// fakeProbe is a deterministic Source for handler tests.
type fakeProbe struct{}

func (fakeProbe) Probe(int) probe.Probe {
	cpu := 1.5
	mem := 12.0
	threads := int32(2)
	files := 3
	conns := 1
	children := 0
	user := "tester"
	env := 7
	return probe.Probe{
		CPUPercent:  &cpu,
		MemoryMB:    &mem,
		Threads:     &threads,
		OpenFiles:   &files,
		Connections: &conns,
		Children:    &children,
		Ports:       []uint32{8080, 9090},
		User:        &user,
		EnvCount:    &env,
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *supervisor.Supervisor) {
	t.Helper()
	store := logstore.New(t.TempDir())
	sup := supervisor.New(supervisor.Config{
		Store:       store,
		SettleDelay: time.Second,
		KillWait:    2 * time.Second,
	})
	router := NewRouter(Config{Sup: sup, Store: store, Probes: fakeProbe{}})
	ts := httptest.NewServer(router.Handler())
	t.Cleanup(func() {
		if st, err := sup.Status(); err == nil && st.State == supervisor.StateRunning {
			_, _ = sup.Kill(supervisor.SigKill)
		}
		ts.Close()
	})
	return ts, sup
}

func post(t *testing.T, url, contentType, body string) (*http.Response, string) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(http.MethodPost, url, reader)
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()
	return resp, string(b)
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()
	return resp, string(b)
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, body := get(t, ts.URL+"/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"healthy"}`, body)
}

func TestStatusBeforeAnyStart(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, body := get(t, ts.URL+"/status")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "error: No process started", body)

	resp, body = get(t, ts.URL+"/status?format=json")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.JSONEq(t, `{"error":"No process started"}`, body)
}

func TestStartFastExitFlow(t *testing.T) {
	requireUnix(t)
	ts, _ := newTestServer(t)

	resp, body := post(t, ts.URL+"/start", "", "echo hello")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "status: exited")
	assert.Contains(t, body, "exit_code: 0")
	// Fast exits carry the captured output inline.
	assert.Contains(t, body, "Logs:")
	assert.Contains(t, body, "hello")

	resp, body = get(t, ts.URL+"/logs?lines=10")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/plain; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Contains(t, body, "hello")

	resp, body = get(t, ts.URL+"/status")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "status: exited")
}

func TestStartJSONBodyAndFormat(t *testing.T) {
	requireUnix(t)
	ts, _ := newTestServer(t)

	resp, body := post(t, ts.URL+"/start?format=json", "application/json", `{"command":"echo json-mode"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var st struct {
		Status   string `json:"status"`
		Command  string `json:"command"`
		ExitCode *int   `json:"exit_code"`
		LogTail  string `json:"log_tail"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &st))
	assert.Equal(t, "exited", st.Status)
	assert.Equal(t, "echo json-mode", st.Command)
	require.NotNil(t, st.ExitCode)
	assert.Equal(t, 0, *st.ExitCode)
	assert.Contains(t, st.LogTail, "json-mode")
}

func TestStartRunningIncludesProbe(t *testing.T) {
	requireUnix(t)
	ts, _ := newTestServer(t)

	resp, body := post(t, ts.URL+"/start", "", "sleep 30")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "status: running")
	assert.Contains(t, body, "user: tester")
	assert.Contains(t, body, "ports: 8080,9090")
	assert.Contains(t, body, "cpu: 1.5")
	assert.Contains(t, body, "mem_mb: 12.0")
	assert.Contains(t, body, "threads: 2")
	assert.Contains(t, body, "env_count: 7")
}

func TestStartEmptyCommand(t *testing.T) {
	ts, _ := newTestServer(t)
	for _, body := range []string{"", "   "} {
		resp, respBody := post(t, ts.URL+"/start", "", body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "error: Command cannot be empty", respBody)
	}
}

func TestStartErrorJSONFormat(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, body := post(t, ts.URL+"/start?format=json", "", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Command cannot be empty"}`, body)
}

func TestDoubleStartConflicts(t *testing.T) {
	requireUnix(t)
	ts, _ := newTestServer(t)

	resp, _ := post(t, ts.URL+"/start", "", "sleep 30")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := post(t, ts.URL+"/start", "", "echo x")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "error: Process already running", body)
}

func TestKillFlow(t *testing.T) {
	requireUnix(t)
	ts, _ := newTestServer(t)

	resp, _ := post(t, ts.URL+"/start", "", "sleep 30")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := post(t, ts.URL+"/kill?type=SIGTERM", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(body, "status: killed\ntype: SIGTERM\n"), body)
	assert.Contains(t, body, "exit_code: -15")

	resp, body = get(t, ts.URL+"/status")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "status: killed")
	assert.Contains(t, body, "kill_type: SIGTERM")
}

func TestKillDefaultsToSigterm(t *testing.T) {
	requireUnix(t)
	ts, _ := newTestServer(t)

	resp, _ := post(t, ts.URL+"/start", "", "sleep 30")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := post(t, ts.URL+"/kill", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "type: SIGTERM")
}

func TestKillValidation(t *testing.T) {
	requireUnix(t)
	ts, _ := newTestServer(t)

	// No run yet: a valid type gets 404.
	resp, body := post(t, ts.URL+"/kill?type=SIGTERM", "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "error: No process to kill", body)

	resp, _ = post(t, ts.URL+"/start", "", "sleep 30")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = post(t, ts.URL+"/kill?type=SIGFOO", "", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "error: Invalid signal type: SIGFOO", body)
}

func TestKillAfterExit(t *testing.T) {
	requireUnix(t)
	ts, _ := newTestServer(t)

	resp, _ := post(t, ts.URL+"/start", "", "true")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := post(t, ts.URL+"/kill", "", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "error: Process already exited", body)
}

func TestRestartFlow(t *testing.T) {
	requireUnix(t)
	ts, _ := newTestServer(t)

	resp, body := post(t, ts.URL+"/start?format=json", "", "while true; do echo tick; sleep 1; done")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var first struct {
		PID     *int   `json:"pid"`
		LogFile string `json:"log_file"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &first))
	require.NotNil(t, first.PID)

	resp, body = post(t, ts.URL+"/restart?timeout=1&format=json", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var second struct {
		Status  string `json:"status"`
		PID     *int   `json:"pid"`
		LogFile string `json:"log_file"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &second))
	assert.Equal(t, "running", second.Status)
	require.NotNil(t, second.PID)
	assert.NotEqual(t, *first.PID, *second.PID)
	assert.NotEqual(t, first.LogFile, second.LogFile)
}

func TestRestartValidation(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, body := post(t, ts.URL+"/restart", "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "error: No process to restart", body)

	resp, body = post(t, ts.URL+"/restart?timeout=-1", "", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "Invalid timeout")

	resp, body = post(t, ts.URL+"/restart?timeout=abc", "", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "Invalid timeout")
}

func TestLogsValidation(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, body := get(t, ts.URL+"/logs?lines=5&seconds=5")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "error: Cannot specify both 'lines' and 'seconds'", body)

	for _, q := range []string{"lines=0", "lines=-1", "lines=abc", "seconds=0", "seconds=x"} {
		resp, _ := get(t, ts.URL+"/logs?"+q)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, q)
	}

	resp, body = get(t, ts.URL+"/logs")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "error: No process started", body)
}

func TestLogsSecondsWindow(t *testing.T) {
	requireUnix(t)
	ts, _ := newTestServer(t)

	resp, _ := post(t, ts.URL+"/start", "", "echo windowed")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := get(t, ts.URL+"/logs?seconds=5")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "windowed")
}
