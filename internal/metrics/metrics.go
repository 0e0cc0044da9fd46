package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register;
// the helpers below no-op until then.
var (
	regOK atomic.Bool

	childStarts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "llmshell",
			Subsystem: "child",
			Name:      "starts_total",
			Help:      "Number of child processes started.",
		},
	)
	childKills = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "llmshell",
			Subsystem: "child",
			Name:      "kills_total",
			Help:      "Number of kill operations, by requested signal.",
		}, []string{"type"},
	)
	childRestarts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "llmshell",
			Subsystem: "child",
			Name:      "restarts_total",
			Help:      "Number of restart operations.",
		},
	)
	childRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "llmshell",
			Subsystem: "child",
			Name:      "running",
			Help:      "1 while a child process is running, else 0.",
		},
	)
	logRecords = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "llmshell",
			Subsystem: "log",
			Name:      "records_total",
			Help:      "Number of captured child output lines.",
		},
	)
)

// Register registers all collectors with r. Safe to call multiple times.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{childStarts, childKills, childRestarts, childRunning, logRecords}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler serves Prometheus metrics for the DefaultGatherer.
func Handler() http.Handler { return promhttp.Handler() }

func IncStart() {
	if regOK.Load() {
		childStarts.Inc()
	}
}

func IncKill(kind string) {
	if regOK.Load() {
		childKills.WithLabelValues(kind).Inc()
	}
}

func IncRestart() {
	if regOK.Load() {
		childRestarts.Inc()
	}
}

func SetRunning(running bool) {
	if regOK.Load() {
		if running {
			childRunning.Set(1)
		} else {
			childRunning.Set(0)
		}
	}
}

func IncLogRecord() {
	if regOK.Load() {
		logRecords.Inc()
	}
}
