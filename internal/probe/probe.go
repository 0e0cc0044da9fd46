package probe

import (
	"errors"
	"sort"

	gnet "github.com/shirou/gopsutil/v4/net"
	gops "github.com/shirou/gopsutil/v4/process"
)

// Probe is a point-in-time snapshot of a live process's resource usage.
// Every field is best-effort: nil (or a nil slice for Ports) means the
// value could not be obtained. A probe of an unknown or dead PID is the
// zero Probe with every field unavailable.
type Probe struct {
	CPUPercent  *float64 `json:"cpu_percent"`
	MemoryMB    *float64 `json:"memory_mb"`
	Threads     *int32   `json:"threads"`
	OpenFiles   *int     `json:"open_files"`
	Connections *int     `json:"connections"`
	Children    *int     `json:"children"`
	Ports       []uint32 `json:"ports"`
	User        *string  `json:"user"`
	EnvCount    *int     `json:"env_count"`
}

// Source reports resource usage for a PID.
type Source interface {
	Probe(pid int) Probe
}

// SysSource is the gopsutil-backed Source used in production.
type SysSource struct{}

var _ Source = SysSource{}

// Probe collects each field independently; individual failures leave that
// field unavailable rather than failing the whole snapshot.
func (SysSource) Probe(pid int) Probe {
	proc, err := gops.NewProcess(int32(pid)) // #nosec G115 -- PIDs fit in int32
	if err != nil {
		return Probe{}
	}
	if running, err := proc.IsRunning(); err != nil || !running {
		return Probe{}
	}

	var p Probe
	if cpu, err := proc.CPUPercent(); err == nil {
		p.CPUPercent = &cpu
	}
	if mem, err := proc.MemoryInfo(); err == nil && mem != nil {
		mb := float64(mem.RSS) / (1024 * 1024)
		p.MemoryMB = &mb
	}
	if threads, err := proc.NumThreads(); err == nil {
		p.Threads = &threads
	}
	if files, err := proc.OpenFiles(); err == nil {
		n := len(files)
		p.OpenFiles = &n
	}
	if user, err := proc.Username(); err == nil {
		p.User = &user
	}
	if env, err := proc.Environ(); err == nil {
		n := len(env)
		p.EnvCount = &n
	}

	conns, connErr := proc.Connections()
	if connErr == nil {
		n := len(conns)
		p.Connections = &n
	}

	kids, kidsErr := descendants(proc, 0)
	if kidsErr == nil {
		n := len(kids)
		p.Children = &n
	}

	if connErr == nil {
		p.Ports = listeningPorts(conns, kids)
	}
	return p
}

// maxChildDepth bounds the descendant walk; process trees deeper than this
// are counted only partially.
const maxChildDepth = 8

// descendants walks the process tree recursively. A leaf process is a
// known count of zero, not an error.
func descendants(proc *gops.Process, depth int) ([]*gops.Process, error) {
	if depth >= maxChildDepth {
		return nil, nil
	}
	kids, err := proc.Children()
	if err != nil {
		if errors.Is(err, gops.ErrorNoChildren) {
			return nil, nil
		}
		return nil, err
	}
	out := make([]*gops.Process, 0, len(kids))
	for _, kid := range kids {
		out = append(out, kid)
		grand, _ := descendants(kid, depth+1)
		out = append(out, grand...)
	}
	return out, nil
}

// listeningPorts dedupes LISTEN-state local ports across the process and
// its descendants, ascending.
func listeningPorts(conns []gnet.ConnectionStat, descendants []*gops.Process) []uint32 {
	seen := make(map[uint32]struct{})
	add := func(cs []gnet.ConnectionStat) {
		for _, c := range cs {
			if c.Status == "LISTEN" && c.Laddr.Port > 0 {
				seen[c.Laddr.Port] = struct{}{}
			}
		}
	}
	add(conns)
	for _, kid := range descendants {
		if kc, err := kid.Connections(); err == nil {
			add(kc)
		}
	}
	if len(seen) == 0 {
		return []uint32{}
	}
	ports := make([]uint32, 0, len(seen))
	for port := range seen {
		ports = append(ports, port)
	}
	sort.Slice(ports, func(i, j int) bool { return ports[i] < ports[j] })
	return ports
}
