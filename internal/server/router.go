package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/llm-shell/llmshell/internal/apperr"
	"github.com/llm-shell/llmshell/internal/logstore"
	"github.com/llm-shell/llmshell/internal/metrics"
	"github.com/llm-shell/llmshell/internal/probe"
	"github.com/llm-shell/llmshell/internal/supervisor"
)

// tuiHeader marks dashboard polling requests; they are excluded from
// access logging to keep the log readable.
const tuiHeader = "X-LLM-Shell-TUI"

// logTailLines is how many records a /start response carries when the
// child terminated inside the settle window.
const logTailLines = 100

// Router exposes the supervisor over HTTP.
//
//	POST /start      body: raw command, or {"command": "..."} with JSON content type
//	GET  /status
//	POST /kill       query: type=SIGTERM|SIGKILL
//	POST /restart    query: timeout=<seconds>
//	GET  /logs       query: lines=N or seconds=S (mutually exclusive)
//	GET  /health
//	GET  /metrics
//
// /start, /status, /kill and /restart answer in plain text by default and
// JSON with format=json; /logs is always plain text.
type Router struct {
	sup            *supervisor.Supervisor
	store          *logstore.Store
	probes         probe.Source
	restartTimeout time.Duration
}

// Config wires a Router. Sup and Store are required; Probes defaults to
// the gopsutil source, RestartTimeout to 10 s.
type Config struct {
	Sup            *supervisor.Supervisor
	Store          *logstore.Store
	Probes         probe.Source
	RestartTimeout time.Duration
}

func NewRouter(cfg Config) *Router {
	r := &Router{
		sup:            cfg.Sup,
		store:          cfg.Store,
		probes:         cfg.Probes,
		restartTimeout: cfg.RestartTimeout,
	}
	if r.probes == nil {
		r.probes = probe.SysSource{}
	}
	if r.restartTimeout <= 0 {
		r.restartTimeout = 10 * time.Second
	}
	return r
}

// Handler returns a gin-powered http.Handler that can be mounted in any
// server or mux.
func (r *Router) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	g := gin.New()
	g.Use(gin.Recovery(), accessLog())
	g.POST("/start", r.handleStart)
	g.GET("/status", r.handleStatus)
	g.POST("/kill", r.handleKill)
	g.POST("/restart", r.handleRestart)
	g.GET("/logs", r.handleLogs)
	g.GET("/health", r.handleHealth)
	g.GET("/metrics", gin.WrapH(metrics.Handler()))
	return g
}

// NewServer builds an http.Server on addr with sane timeouts. /start and
// /restart block for their settle and grace windows, so the write timeout
// leaves room for them.
func NewServer(addr string, r *Router) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// accessLog logs client, method, path and status for every request except
// TUI polling.
func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader(tuiHeader) == "1" {
			c.Next()
			return
		}
		c.Next()
		slog.Info("request",
			"client", c.ClientIP(),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status())
	}
}

// --- Handlers ---

func (r *Router) handleStart(c *gin.Context) {
	command, err := readCommand(c)
	if err != nil {
		writeError(c, err)
		return
	}
	st, err := r.sup.Start(command)
	if err != nil {
		writeError(c, err)
		return
	}
	p := r.enrich(st)
	if st.State != supervisor.StateRunning {
		p.LogTail = r.logTail(st.LogFile)
	}
	writeNegotiated(c, p, p.statusText())
}

func (r *Router) handleStatus(c *gin.Context) {
	st, err := r.sup.Status()
	if err != nil {
		writeError(c, err)
		return
	}
	p := r.enrich(st)
	writeNegotiated(c, p, p.statusText())
}

func (r *Router) handleKill(c *gin.Context) {
	kind, err := supervisor.ParseSignalKind(c.Query("type"))
	if err != nil {
		writeError(c, err)
		return
	}
	res, err := r.sup.Kill(kind)
	if err != nil {
		writeError(c, err)
		return
	}
	writeNegotiated(c, res, killText(res))
}

func (r *Router) handleRestart(c *gin.Context) {
	timeout := r.restartTimeout
	if raw := c.Query("timeout"); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil || secs < 0 {
			writeError(c, apperr.BadRequestf("Invalid timeout: %s", raw))
			return
		}
		timeout = time.Duration(secs) * time.Second
	}
	st, err := r.sup.Restart(timeout)
	if err != nil {
		writeError(c, err)
		return
	}
	p := r.enrich(st)
	writeNegotiated(c, p, p.statusText())
}

func (r *Router) handleLogs(c *gin.Context) {
	filter, err := parseLogFilter(c)
	if err != nil {
		writeError(c, err)
		return
	}
	st, err := r.sup.Status()
	if err != nil {
		writeError(c, err)
		return
	}
	result, err := r.store.Read(st.LogFile, filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.String(http.StatusOK, "%s", result.Content)
}

func (r *Router) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// --- Request parsing ---

// readCommand accepts either a JSON body {"command": "..."} (JSON content
// type) or the raw body as the command string.
func readCommand(c *gin.Context) (string, error) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return "", apperr.BadRequestf("Invalid request body")
	}
	command := string(body)
	if strings.Contains(c.ContentType(), "application/json") {
		var req struct {
			Command string `json:"command"`
		}
		if jsonErr := json.Unmarshal(body, &req); jsonErr != nil {
			return "", apperr.BadRequestf("Command cannot be empty")
		}
		command = req.Command
	}
	if strings.TrimSpace(command) == "" {
		return "", apperr.BadRequestf("Command cannot be empty")
	}
	return command, nil
}

// parseLogFilter enforces the query rules for /logs: lines and seconds are
// each positive integers and mutually exclusive; neither means everything.
func parseLogFilter(c *gin.Context) (logstore.Filter, error) {
	rawLines := c.Query("lines")
	rawSeconds := c.Query("seconds")
	if rawLines != "" && rawSeconds != "" {
		return logstore.Filter{}, apperr.BadRequestf("Cannot specify both 'lines' and 'seconds'")
	}
	var f logstore.Filter
	if rawLines != "" {
		n, err := strconv.Atoi(rawLines)
		if err != nil || n < 1 {
			return logstore.Filter{}, apperr.BadRequestf("Invalid lines: %s", rawLines)
		}
		f.Lines = n
	}
	if rawSeconds != "" {
		n, err := strconv.Atoi(rawSeconds)
		if err != nil || n < 1 {
			return logstore.Filter{}, apperr.BadRequestf("Invalid seconds: %s", rawSeconds)
		}
		f.Seconds = n
	}
	return f, nil
}

// enrich attaches a probe of the child's PID when it is still running.
func (r *Router) enrich(st supervisor.Status) statusPayload {
	var pr *probe.Probe
	if st.State == supervisor.StateRunning && st.PID > 0 {
		p := r.probes.Probe(st.PID)
		pr = &p
	}
	return buildStatusPayload(st, pr)
}

// logTail returns the last records of a run's log for fast-exit start
// responses. Best-effort; an unreadable file yields an empty tail.
func (r *Router) logTail(path string) string {
	result, err := r.store.Read(path, logstore.Filter{Lines: logTailLines})
	if err != nil {
		return ""
	}
	return result.Content
}
