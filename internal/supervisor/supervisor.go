package supervisor

import (
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/llm-shell/llmshell/internal/apperr"
	"github.com/llm-shell/llmshell/internal/logstore"
	"github.com/llm-shell/llmshell/internal/metrics"
)

const (
	// DefaultSettleDelay is the synchronous wait inside Start. It turns
	// early failures (command not found, bad directory) into synchronous
	// responses instead of silent background deaths. Fixed by design, not
	// a request parameter.
	DefaultSettleDelay = 2 * time.Second

	// DefaultKillWait bounds each wait for a signalled child to exit.
	DefaultKillWait = 5 * time.Second

	// drainWait bounds how long Start waits for the pump to flush the tail
	// of a child that terminated inside the settle window.
	drainWait = time.Second
)

// childRun is one invocation of a command. Mutable fields are guarded by
// the supervisor's state mutex; once the run reaches a terminal state they
// are never changed again.
type childRun struct {
	command   string
	cmd       *exec.Cmd
	pid       int
	createdAt time.Time
	logFile   string
	pump      *logstore.Pump
	waitDone  chan struct{} // closed by the waiter after recording exit

	state     State
	stoppedAt time.Time
	exitCode  int
	exited    bool
	killType  SignalKind
}

// Config wires a Supervisor. Store is required.
type Config struct {
	Store       *logstore.Store
	SettleDelay time.Duration // 0 means DefaultSettleDelay
	KillWait    time.Duration // 0 means DefaultKillWait
}

// Supervisor owns at most one live child at a time. Mutating operations
// (Start, Kill, Restart, Shutdown) serialize on opMu for their whole
// duration; mu guards the slot's fields and is held only briefly, so the
// waiter goroutine and status reads stay responsive while an operation
// blocks on a child.
type Supervisor struct {
	store  *logstore.Store
	settle time.Duration
	kwait  time.Duration

	opMu sync.Mutex
	mu   sync.Mutex
	cur  *childRun
}

func New(cfg Config) *Supervisor {
	s := &Supervisor{
		store:  cfg.Store,
		settle: cfg.SettleDelay,
		kwait:  cfg.KillWait,
	}
	if s.settle <= 0 {
		s.settle = DefaultSettleDelay
	}
	if s.kwait <= 0 {
		s.kwait = DefaultKillWait
	}
	return s
}

// Start spawns command through the shell and waits up to the settle delay
// before reporting; a child that exits inside that window is reported as
// soon as its output is drained. Fails with CONFLICT while a child is running.
func (s *Supervisor) Start(command string) (Status, error) {
	if strings.TrimSpace(command) == "" {
		return Status{}, apperr.BadRequestf("Command cannot be empty")
	}
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	running := s.cur != nil && s.cur.state == StateRunning
	s.mu.Unlock()
	if running {
		return Status{}, apperr.Conflictf("Process already running")
	}
	return s.startLocked(command)
}

// startLocked spawns a new run. Caller holds opMu.
func (s *Supervisor) startLocked(command string) (Status, error) {
	now := time.Now().UTC()
	logFile, err := s.store.Create(now)
	if err != nil {
		return Status{}, err
	}

	pr, pw, err := os.Pipe()
	if err != nil {
		s.store.Close(logFile)
		return Status{}, apperr.Internalf(err, "Failed to start process: %v", err)
	}

	cmd := shellCommand(command)
	cmd.Stdout = pw
	cmd.Stderr = pw
	cmd.SysProcAttr = sysProcAttr()

	if err := cmd.Start(); err != nil {
		_ = pr.Close()
		_ = pw.Close()
		s.store.Close(logFile)
		return Status{}, apperr.Internalf(err, "Failed to start process: %v", err)
	}
	// The child holds its own copy of the write end; releasing ours lets
	// the pump see EOF once the child exits.
	_ = pw.Close()

	run := &childRun{
		command:   command,
		cmd:       cmd,
		pid:       cmd.Process.Pid,
		createdAt: now,
		logFile:   logFile,
		pump:      logstore.NewPump(s.store, logFile, pr),
		waitDone:  make(chan struct{}),
		state:     StateRunning,
	}
	run.pump.Start()

	s.mu.Lock()
	s.cur = run
	s.mu.Unlock()

	metrics.IncStart()
	metrics.SetRunning(true)
	slog.Info("child started", "pid", run.pid, "command", command, "log_file", logFile)
	go s.waitChild(run)

	// Settle window: a child that dies here is reported synchronously. On
	// early termination, drain the pump so the log tail is already on disk
	// when the caller reads it.
	select {
	case <-run.waitDone:
		s.awaitPump(run, drainWait)
	case <-time.After(s.settle):
	}
	return s.snapshot(run), nil
}

// waitChild reaps the child exactly once and records the terminal fields
// before closing waitDone, so any snapshot sees a consistent
// (state, exit_code, stopped_at) triple.
func (s *Supervisor) waitChild(run *childRun) {
	waitErr := run.cmd.Wait()

	code := exitStatus(run.cmd.ProcessState, waitErr)
	s.mu.Lock()
	if !run.exited {
		run.exited = true
		run.exitCode = code
		run.stoppedAt = time.Now().UTC()
		if run.state == StateRunning {
			run.state = StateExited
		}
	}
	s.mu.Unlock()
	close(run.waitDone)

	slog.Info("child exited", "pid", run.pid, "exit_code", code)

	// The pipe can still hold output after the exit is reaped; release the
	// append handle only once the pump has drained it.
	<-run.pump.Done()
	s.store.Close(run.logFile)
	metrics.SetRunning(false)
}

// Status snapshots the current run. NOT_FOUND when nothing was ever
// started. No reap step is needed here: the waiter records terminal fields
// under mu before closing waitDone, so a run can never be observed as stale
// "running" after its exit was reaped.
func (s *Supervisor) Status() (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil {
		return Status{}, apperr.NotFoundf("No process started")
	}
	return s.statusLocked(s.cur), nil
}

// Kill signals the child's process group and waits for it to die. SIGTERM
// escalates to SIGKILL when the grace window expires. The requested kind is
// what gets recorded, even after escalation.
func (s *Supervisor) Kill(kind SignalKind) (KillResult, error) {
	if kind != SigTerm && kind != SigKill {
		return KillResult{}, apperr.BadRequestf("Invalid signal type: %s", kind)
	}
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	run := s.cur
	if run == nil {
		s.mu.Unlock()
		return KillResult{}, apperr.NotFoundf("No process to kill")
	}
	if run.state != StateRunning {
		s.mu.Unlock()
		return KillResult{}, apperr.BadRequestf("Process already exited")
	}
	pid := run.pid
	s.mu.Unlock()

	s.terminate(run, pid, kind, s.kwait)

	s.mu.Lock()
	run.state = StateKilled
	run.killType = kind
	res := KillResult{
		Status:    "killed",
		Type:      kind,
		ExitCode:  run.exitCode,
		StoppedAt: run.stoppedAt,
	}
	s.mu.Unlock()

	metrics.IncKill(string(kind))
	slog.Info("child killed", "pid", pid, "type", kind, "exit_code", res.ExitCode)
	return res, nil
}

// Restart terminates the current child if running (graceful up to timeout,
// then force) and starts the remembered command again with a fresh log
// file. The old run is never reported once Restart returns.
func (s *Supervisor) Restart(timeout time.Duration) (Status, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	run := s.cur
	if run == nil || run.command == "" {
		s.mu.Unlock()
		return Status{}, apperr.NotFoundf("No process to restart")
	}
	command := run.command
	running := run.state == StateRunning
	pid := run.pid
	s.mu.Unlock()

	if running {
		s.terminate(run, pid, SigTerm, timeout)
	}
	metrics.IncRestart()
	return s.startLocked(command)
}

// Shutdown is the lifecycle hook for supervisor exit: gracefully terminate
// a running child and wait for its output to land on disk.
func (s *Supervisor) Shutdown() {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	run := s.cur
	running := run != nil && run.state == StateRunning
	pid := 0
	if run != nil {
		pid = run.pid
	}
	s.mu.Unlock()
	if run == nil {
		return
	}

	if running {
		slog.Info("shutting down, terminating child", "pid", pid)
		s.terminate(run, pid, SigTerm, s.kwait)
		s.mu.Lock()
		run.state = StateKilled
		run.killType = SigTerm
		s.mu.Unlock()
	}
	s.awaitPump(run, drainWait)
}

// terminate sends the signal for kind to the child's process group and
// waits up to grace for the waiter to reap it, escalating a SIGTERM to
// SIGKILL when the grace window runs out. A child that died between the
// state check and the signal is not an error; the waiter has already
// recorded its exit.
func (s *Supervisor) terminate(run *childRun, pid int, kind SignalKind, grace time.Duration) {
	signalGroup(pid, kind)
	if s.waitExit(run, grace) {
		return
	}
	if kind == SigTerm {
		signalGroup(pid, SigKill)
	}
	if s.waitExit(run, s.kwait) {
		return
	}
	// Unreapable child (e.g. stuck in uninterruptible sleep). Record a
	// bounded terminal state rather than blocking the operation forever.
	slog.Error("child did not exit after SIGKILL", "pid", pid)
	s.mu.Lock()
	if !run.exited {
		run.exited = true
		run.exitCode = killedExitCode
		run.stoppedAt = time.Now().UTC()
		if run.state == StateRunning {
			run.state = StateExited
		}
	}
	s.mu.Unlock()
}

// waitExit waits up to d for the waiter to finish. d <= 0 checks without
// blocking, so restart?timeout=0 escalates immediately.
func (s *Supervisor) waitExit(run *childRun, d time.Duration) bool {
	if d <= 0 {
		select {
		case <-run.waitDone:
			return true
		default:
			return false
		}
	}
	select {
	case <-run.waitDone:
		return true
	case <-time.After(d):
		return false
	}
}

// awaitPump waits (bounded) for the run's pump to finish flushing.
func (s *Supervisor) awaitPump(run *childRun, d time.Duration) {
	select {
	case <-run.pump.Done():
	case <-time.After(d):
	}
}

// snapshot takes mu and returns a consistent status copy for run.
func (s *Supervisor) snapshot(run *childRun) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked(run)
}

func (s *Supervisor) statusLocked(run *childRun) Status {
	st := Status{
		Command:   run.command,
		State:     run.state,
		PID:       run.pid,
		CreatedAt: run.createdAt,
		KillType:  run.killType,
		LogFile:   run.logFile,
	}
	if run.exited {
		stopped := run.stoppedAt
		code := run.exitCode
		st.StoppedAt = &stopped
		st.ExitCode = &code
	}
	return st
}
