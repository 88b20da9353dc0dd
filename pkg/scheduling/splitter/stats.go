package splitter

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// ContextStats holds the diagnostic counters of one execution context.
type ContextStats struct {
	Index         int
	Chunks        uint64 // chunks executed
	Indices       uint64 // subtask indices executed
	Steals        uint64 // successful steals
	StolenIndices uint64 // indices moved by those steals
	FailedLocks   uint64 // steal attempts that lost the victim's lock
	Spins         uint64 // idle rounds without work
	Sleeps        uint64 // blocking waits
}

// Stats is a snapshot of a manager.
type Stats struct {
	Name               string
	Running            bool
	Single             bool
	ActiveWorkloads    int // workloads between Start and End
	FreeWorkloads      int // ended workloads awaiting reuse
	WorkloadsStarted   uint64
	WorkloadsCompleted uint64
	Contexts           []ContextStats
}

// Totals sums the counters of every context. Index is -1.
func (s Stats) Totals() ContextStats {
	t := ContextStats{Index: -1}
	for _, c := range s.Contexts {
		t.Chunks += c.Chunks
		t.Indices += c.Indices
		t.Steals += c.Steals
		t.StolenIndices += c.StolenIndices
		t.FailedLocks += c.FailedLocks
		t.Spins += c.Spins
		t.Sleeps += c.Sleeps
	}
	return t
}

// Stats returns a snapshot of the manager and its contexts. Counters are
// read individually, so a snapshot taken while work runs is not atomic.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	free := len(m.free)
	m.mu.Unlock()

	s := Stats{
		Name:               m.name,
		Running:            m.running.Load(),
		Single:             m.single.Load(),
		ActiveWorkloads:    len(*m.active.Load()),
		FreeWorkloads:      free,
		WorkloadsStarted:   m.started.Load(),
		WorkloadsCompleted: m.completed.Load(),
		Contexts:           make([]ContextStats, len(m.contexts)),
	}
	for i, c := range m.contexts {
		s.Contexts[i] = c.Stats()
	}
	return s
}

// ResetStats zeroes the per-context counters.
func (m *Manager) ResetStats() {
	for _, c := range m.contexts {
		c.counters.reset()
	}
}

// statsCollector exposes the per-context counters as Prometheus metrics.
type statsCollector struct {
	m             *Manager
	chunks        *prometheus.Desc
	indices       *prometheus.Desc
	steals        *prometheus.Desc
	stolenIndices *prometheus.Desc
	failedLocks   *prometheus.Desc
	spins         *prometheus.Desc
	sleeps        *prometheus.Desc
}

func newStatsCollector(m *Manager) *statsCollector {
	labels := prometheus.Labels{"manager": m.name}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(
			prometheus.BuildFQName(m.metrics.Namespace(), "context", name),
			help, []string{"context"}, labels,
		)
	}
	return &statsCollector{
		m:             m,
		chunks:        desc("chunks_total", "Chunks executed by the context."),
		indices:       desc("indices_total", "Subtask indices executed by the context."),
		steals:        desc("steals_total", "Successful steals by the context."),
		stolenIndices: desc("stolen_indices_total", "Indices moved by the context's steals."),
		failedLocks:   desc("failed_locks_total", "Steal attempts that lost the victim's lock."),
		spins:         desc("spins_total", "Idle rounds without work."),
		sleeps:        desc("sleeps_total", "Blocking waits for work."),
	}
}

func (sc *statsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- sc.chunks
	ch <- sc.indices
	ch <- sc.steals
	ch <- sc.stolenIndices
	ch <- sc.failedLocks
	ch <- sc.spins
	ch <- sc.sleeps
}

func (sc *statsCollector) Collect(ch chan<- prometheus.Metric) {
	for _, c := range sc.m.contexts {
		st := c.Stats()
		idx := strconv.Itoa(st.Index)
		counter := func(d *prometheus.Desc, v uint64) {
			ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), idx)
		}
		counter(sc.chunks, st.Chunks)
		counter(sc.indices, st.Indices)
		counter(sc.steals, st.Steals)
		counter(sc.stolenIndices, st.StolenIndices)
		counter(sc.failedLocks, st.FailedLocks)
		counter(sc.spins, st.Spins)
		counter(sc.sleeps, st.Sleeps)
	}
}
