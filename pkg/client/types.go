package client

import "time"

// Status mirrors the server's JSON status payload for /start, /status and
// /restart. Pointer fields are null when the value is unavailable.
type Status struct {
	Status    string     `json:"status"`
	PID       *int       `json:"pid"`
	Uptime    *int64     `json:"uptime"`
	Command   string     `json:"command"`
	User      *string    `json:"user"`
	Ports     []uint32   `json:"ports"`
	CPU       *float64   `json:"cpu"`
	MemMB     *float64   `json:"mem_mb"`
	Threads   *int32     `json:"threads"`
	OpenFiles *int       `json:"open_files"`
	Conns     *int       `json:"connections"`
	Children  *int       `json:"children"`
	EnvCount  *int       `json:"env_count"`
	CreatedAt *time.Time `json:"created_at"`
	LogFile   string     `json:"log_file"`
	StoppedAt *time.Time `json:"stopped_at"`
	ExitCode  *int       `json:"exit_code"`
	KillType  string     `json:"kill_type"`
	LogTail   string     `json:"log_tail"`
}

// KillResult mirrors the server's /kill response.
type KillResult struct {
	Status    string    `json:"status"`
	Type      string    `json:"type"`
	ExitCode  int       `json:"exit_code"`
	StoppedAt time.Time `json:"stopped_at"`
}

// Health mirrors /health.
type Health struct {
	Status string `json:"status"`
}
