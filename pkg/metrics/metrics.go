// Package metrics provides Prometheus instrumentation for splitflow components.
package metrics

import (
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const defaultNamespace = "splitflow"

// Registry holds all metric instances for splitflow components.
type Registry struct {
	// Scheduler Metrics
	WorkloadsStarted   *prometheus.CounterVec
	WorkloadsCompleted *prometheus.CounterVec
	WorkloadDuration   *prometheus.HistogramVec
	WorkloadsActive    *prometheus.GaugeVec
	TasksSubmitted     *prometheus.CounterVec
	IndicesSubmitted   *prometheus.CounterVec
	Contexts           *prometheus.GaugeVec

	// Reporter Metrics
	ReportsPublished *prometheus.CounterVec
	ReportErrors     *prometheus.CounterVec

	reg prometheus.Registerer
	ns  string
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// DefaultRegistry returns the registry bound to prometheus.DefaultRegisterer.
// It is created on first use.
func DefaultRegistry() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry(prometheus.DefaultRegisterer)
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with the given Prometheus registerer.
func NewRegistry(reg prometheus.Registerer) *Registry {
	return NewRegistryWithConfig(Config{Registry: reg})
}

// NewRegistryWithConfig creates a registry honoring the namespace and constant
// labels of config. A nil config.Registry means prometheus.DefaultRegisterer.
func NewRegistryWithConfig(config Config) *Registry {
	reg := config.Registry
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if len(config.Labels) > 0 {
		reg = prometheus.WrapRegistererWith(config.Labels, reg)
	}
	ns := config.Namespace
	if ns == "" {
		ns = defaultNamespace
	}
	factory := factory{reg: reg}

	return &Registry{
		reg: reg,
		ns:  ns,

		WorkloadsStarted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: "scheduler",
				Name:      "workloads_started_total",
				Help:      "Total number of workloads started",
			},
			[]string{"manager"},
		),

		WorkloadsCompleted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: "scheduler",
				Name:      "workloads_completed_total",
				Help:      "Total number of workloads observed finished",
			},
			[]string{"manager"},
		),

		WorkloadDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: ns,
				Subsystem: "scheduler",
				Name:      "workload_duration_seconds",
				Help:      "Time from workload start until it is observed finished",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
			},
			[]string{"manager"},
		),

		WorkloadsActive: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: ns,
				Subsystem: "scheduler",
				Name:      "workloads_active",
				Help:      "Number of workloads between begin and end",
			},
			[]string{"manager"},
		),

		TasksSubmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: "scheduler",
				Name:      "tasks_submitted_total",
				Help:      "Total number of tasks registered with started workloads",
			},
			[]string{"manager"},
		),

		IndicesSubmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: "scheduler",
				Name:      "indices_submitted_total",
				Help:      "Total number of subtask indices registered with started workloads",
			},
			[]string{"manager"},
		),

		Contexts: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: ns,
				Subsystem: "scheduler",
				Name:      "contexts",
				Help:      "Number of execution contexts owned by the manager",
			},
			[]string{"manager"},
		),

		ReportsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: "reporter",
				Name:      "published_total",
				Help:      "Total number of statistics reports delivered to a sink",
			},
			[]string{"sink"},
		),

		ReportErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: "reporter",
				Name:      "errors_total",
				Help:      "Total number of statistics reports a sink failed to deliver",
			},
			[]string{"sink"},
		),
	}
}

// Namespace returns the metric namespace of the registry.
func (r *Registry) Namespace() string { return r.ns }

// factory registers vectors, reusing the vector already registered under the
// same description so that several registries may share one registerer.
type factory struct {
	reg prometheus.Registerer
}

func (f factory) NewCounterVec(opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	return registerOrExisting(f.reg, prometheus.NewCounterVec(opts, labels))
}

func (f factory) NewGaugeVec(opts prometheus.GaugeOpts, labels []string) *prometheus.GaugeVec {
	return registerOrExisting(f.reg, prometheus.NewGaugeVec(opts, labels))
}

func (f factory) NewHistogramVec(opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	return registerOrExisting(f.reg, prometheus.NewHistogramVec(opts, labels))
}

func registerOrExisting[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// Register registers an additional collector with the registerer backing r.
// Registering the same collector twice is not an error; a different collector
// with the same descriptors is rejected with prometheus.AlreadyRegisteredError.
func (r *Registry) Register(c prometheus.Collector) error {
	if err := r.reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) && are.ExistingCollector == c {
			return nil
		}
		return err
	}
	return nil
}

// Unregister removes a collector previously added with Register.
func (r *Registry) Unregister(c prometheus.Collector) bool {
	return r.reg.Unregister(c)
}
