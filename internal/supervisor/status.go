package supervisor

import (
	"time"

	"github.com/llm-shell/llmshell/internal/apperr"
)

// State is the lifecycle tag of a child run.
type State string

const (
	StateRunning State = "running"
	StateExited  State = "exited"
	StateKilled  State = "killed"
)

// SignalKind selects how a child is terminated.
type SignalKind string

const (
	SigTerm SignalKind = "SIGTERM" // graceful terminate, may escalate
	SigKill SignalKind = "SIGKILL" // force kill
)

// ParseSignalKind validates a kill type from the API. Empty input defaults
// to SIGTERM.
func ParseSignalKind(s string) (SignalKind, error) {
	switch s {
	case "", string(SigTerm):
		return SigTerm, nil
	case string(SigKill):
		return SigKill, nil
	default:
		return "", apperr.BadRequestf("Invalid signal type: %s", s)
	}
}

// Status is a consistent snapshot of the current child run. StoppedAt and
// ExitCode are nil while the child is alive and never cleared once set; a
// subsequent start produces a new run.
type Status struct {
	Command   string     `json:"command"`
	State     State      `json:"status"`
	PID       int        `json:"pid"`
	CreatedAt time.Time  `json:"created_at"`
	StoppedAt *time.Time `json:"stopped_at,omitempty"`
	ExitCode  *int       `json:"exit_code,omitempty"`
	KillType  SignalKind `json:"kill_type,omitempty"`
	LogFile   string     `json:"log_file"`
}

// KillResult is the terminal snapshot returned by Kill.
type KillResult struct {
	Status    string     `json:"status"` // always "killed"
	Type      SignalKind `json:"type"`
	ExitCode  int        `json:"exit_code"`
	StoppedAt time.Time  `json:"stopped_at"`
}
