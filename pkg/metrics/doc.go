// Package metrics provides Prometheus instrumentation for splitflow components.
//
// # Overview
//
// The scheduler records workload-level events (started, completed, duration,
// submitted tasks and indices) through the vectors of a Registry; nothing is
// recorded per chunk. Per-context diagnostic counters are exported by a
// collector in package splitter that reads a statistics snapshot at scrape time.
//
// # Quick Start
//
//	m, err := splitter.New(splitter.Config{
//		Name:    "render",
//		Metrics: metrics.Config{Enabled: true},
//	})
//
// Then expose metrics via HTTP:
//
//	http.Handle("/metrics", promhttp.Handler())
//	log.Fatal(http.ListenAndServe(":8080", nil))
//
// # Custom Registry
//
// Use a custom Prometheus registry for isolation:
//
//	registry := prometheus.NewRegistry()
//	config := metrics.Config{
//		Enabled:  true,
//		Registry: registry,
//	}
//
// # Available Metrics
//
//   - splitflow_scheduler_workloads_started_total{manager}
//   - splitflow_scheduler_workloads_completed_total{manager}
//   - splitflow_scheduler_workload_duration_seconds{manager}
//   - splitflow_scheduler_workloads_active{manager}
//   - splitflow_scheduler_tasks_submitted_total{manager}
//   - splitflow_scheduler_indices_submitted_total{manager}
//   - splitflow_scheduler_contexts{manager}
//   - splitflow_context_chunks_total{manager,context} and friends (collector)
//   - splitflow_reporter_published_total{sink}
//   - splitflow_reporter_errors_total{sink}
package metrics
