package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once     sync.Once
	registry *Registry
)

// Registry holds all palisade metrics.
type Registry struct {
	// Firewall synchronizer
	AppliesTotal   prometheus.Counter
	RollbacksTotal prometheus.Counter
	AllowedEntries prometheus.Gauge

	// Allow-list sources
	RemoteFetches  *prometheus.CounterVec
	EntriesSkipped prometheus.Counter

	// Blocked-traffic monitor
	BlockedEvents    *prometheus.CounterVec
	UniqueSources    prometheus.Gauge
	MonitorRotations prometheus.Counter
	ParseDiscards    prometheus.Counter
}

// Get returns the global metrics registry, creating it if necessary.
func Get() *Registry {
	once.Do(func() {
		registry = newRegistry()
	})
	return registry
}

func newRegistry() *Registry {
	r := &Registry{}

	r.AppliesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "palisade_applies_total",
		Help: "Successful allow-list applies",
	})

	r.RollbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "palisade_rollbacks_total",
		Help: "Failed applies that restored the previous ruleset",
	})

	r.AllowedEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "palisade_allowed_entries",
		Help: "Entries in the last applied allow-list",
	})

	r.RemoteFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "palisade_remote_fetches_total",
		Help: "Remote allow-list fetch attempts by result",
	}, []string{"result"})

	r.EntriesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "palisade_entries_skipped_total",
		Help: "Allow-list entries discarded during normalization",
	})

	r.BlockedEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "palisade_blocked_events_total",
		Help: "Rejected-traffic log events by protocol",
	}, []string{"protocol"})

	r.UniqueSources = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "palisade_blocked_unique_sources",
		Help: "Distinct source addresses seen by the monitor",
	})

	r.MonitorRotations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "palisade_monitor_rotations_total",
		Help: "Log file rotations detected by the monitor",
	})

	r.ParseDiscards = promauto.NewCounter(prometheus.CounterOpts{
		Name: "palisade_parse_discards_total",
		Help: "Matched log lines discarded for missing fields",
	})

	return r
}

// Handler serves the default prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
