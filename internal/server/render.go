package server

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/llm-shell/llmshell/internal/probe"
	"github.com/llm-shell/llmshell/internal/supervisor"
)

// statusPayload is the response body for /start, /status and /restart.
// Field names double as the plain-text keys.
type statusPayload struct {
	Status    string     `json:"status"`
	PID       *int       `json:"pid"`
	Uptime    *int64     `json:"uptime"` // whole seconds
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
	CreatedAt *time.Time `json:"created_at,omitempty"`
	LogFile   string     `json:"log_file,omitempty"`
	StoppedAt *time.Time `json:"stopped_at,omitempty"`
	ExitCode  *int       `json:"exit_code,omitempty"`
	KillType  string     `json:"kill_type,omitempty"`
	LogTail   string     `json:"log_tail,omitempty"`
}

// buildStatusPayload combines a supervisor snapshot with an optional probe
// of the live PID.
func buildStatusPayload(st supervisor.Status, pr *probe.Probe) statusPayload {
	p := statusPayload{
		Status:  string(st.State),
		Command: st.Command,
		LogFile: st.LogFile,
	}
	if st.PID > 0 {
		pid := st.PID
		p.PID = &pid
	}
	if !st.CreatedAt.IsZero() {
		created := st.CreatedAt
		p.CreatedAt = &created
		if st.State == supervisor.StateRunning {
			up := int64(time.Since(created) / time.Second)
			if up < 0 {
				up = 0
			}
			p.Uptime = &up
		}
	}
	p.StoppedAt = st.StoppedAt
	p.ExitCode = st.ExitCode
	p.KillType = string(st.KillType)
	if pr != nil {
		p.User = pr.User
		p.Ports = pr.Ports
		p.CPU = pr.CPUPercent
		p.MemMB = pr.MemoryMB
		p.Threads = pr.Threads
		p.OpenFiles = pr.OpenFiles
		p.Conns = pr.Connections
		p.Children = pr.Children
		p.EnvCount = pr.EnvCount
	}
	return p
}

// statusText renders the payload as stable-order key-value lines. Missing
// values render as "-".
func (p statusPayload) statusText() string {
	lines := []string{
		"status: " + dash(p.Status),
		"pid: " + dashInt(p.PID),
		"uptime: " + dashUptime(p.Uptime),
		"command: " + dash(p.Command),
		"user: " + dashStr(p.User),
		"ports: " + dashPorts(p.Ports),
		"cpu: " + dashFloat(p.CPU),
		"mem_mb: " + dashFloat(p.MemMB),
		"threads: " + dashInt32(p.Threads),
		"open_files: " + dashInt(p.OpenFiles),
		"connections: " + dashInt(p.Conns),
		"children: " + dashInt(p.Children),
		"env_count: " + dashInt(p.EnvCount),
	}
	if p.StoppedAt != nil {
		lines = append(lines, "stopped_at: "+p.StoppedAt.UTC().Format(time.RFC3339))
	}
	if p.ExitCode != nil {
		lines = append(lines, "exit_code: "+strconv.Itoa(*p.ExitCode))
	}
	if p.KillType != "" {
		lines = append(lines, "kill_type: "+p.KillType)
	}
	out := strings.Join(lines, "\n")
	if p.LogTail != "" {
		out += "\n\nLogs:\n" + p.LogTail
	}
	return out
}

// killText renders a kill result's plain-text form.
func killText(res supervisor.KillResult) string {
	return strings.Join([]string{
		"status: " + res.Status,
		"type: " + string(res.Type),
		"exit_code: " + strconv.Itoa(res.ExitCode),
		"stopped_at: " + res.StoppedAt.UTC().Format(time.RFC3339),
	}, "\n")
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func dashStr(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

func dashInt(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}


func dashInt32(v *int32) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatInt(int64(*v), 10)
}

func dashFloat(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', 1, 64)
}

// dashUptime renders whole seconds in human duration form: 2s, 3m4s, 1h2m3s.
func dashUptime(v *int64) string {
	if v == nil {
		return "-"
	}
	d := time.Duration(*v) * time.Second
	if d < 0 {
		return "-"
	}
	return d.String()
}

// dashPorts renders ports comma-separated, or "-" when unknown or none.
func dashPorts(ports []uint32) string {
	if len(ports) == 0 {
		return "-"
	}
	parts := make([]string, len(ports))
	for i, p := range ports {
		parts[i] = fmt.Sprintf("%d", p)
	}
	return strings.Join(parts, ",")
}
