package llmshell

import (
	"net/http"
	"time"

	"github.com/llm-shell/llmshell/internal/logstore"
	"github.com/llm-shell/llmshell/internal/server"
	"github.com/llm-shell/llmshell/internal/supervisor"
)

// Re-export core types for external consumers. These are aliases, so
// conversions are zero-cost.

type Status = supervisor.Status

type KillResult = supervisor.KillResult

type SignalKind = supervisor.SignalKind

const (
	SigTerm = supervisor.SigTerm
	SigKill = supervisor.SigKill
)

type LogFilter = logstore.Filter

type LogReadResult = logstore.ReadResult

// Options configures an embedded Shell.
type Options struct {
	LogDir         string        // default "logs"
	RestartTimeout time.Duration // default 10s, the /restart fallback
}

// Shell is an embeddable llmshell instance: one supervised child, its log
// store, and an HTTP handler exposing both.
type Shell struct {
	store  *logstore.Store
	sup    *supervisor.Supervisor
	router *server.Router
}

// New creates an embeddable instance.
func New(opts Options) *Shell {
	if opts.LogDir == "" {
		opts.LogDir = "logs"
	}
	store := logstore.New(opts.LogDir)
	sup := supervisor.New(supervisor.Config{Store: store})
	router := server.NewRouter(server.Config{
		Sup:            sup,
		Store:          store,
		RestartTimeout: opts.RestartTimeout,
	})
	return &Shell{store: store, sup: sup, router: router}
}

// Start launches a command; blocks for up to the settle delay.
func (s *Shell) Start(command string) (Status, error) { return s.sup.Start(command) }

// Status snapshots the current child run.
func (s *Shell) Status() (Status, error) { return s.sup.Status() }

// Kill terminates the running child.
func (s *Shell) Kill(kind SignalKind) (KillResult, error) { return s.sup.Kill(kind) }

// Restart stops the child (graceful up to timeout) and starts the
// remembered command again.
func (s *Shell) Restart(timeout time.Duration) (Status, error) { return s.sup.Restart(timeout) }

// ReadLogs reads the current run's log with the given filter.
func (s *Shell) ReadLogs(filter LogFilter) (LogReadResult, error) {
	st, err := s.sup.Status()
	if err != nil {
		return LogReadResult{}, err
	}
	return s.store.Read(st.LogFile, filter)
}

// Handler returns the HTTP API for mounting in any server or mux.
func (s *Shell) Handler() http.Handler { return s.router.Handler() }

// Shutdown gracefully terminates a running child and drains its output.
func (s *Shell) Shutdown() { s.sup.Shutdown() }
