/*
Package splitflow provides a work-stealing scheduler for range-splittable work.

Task Scheduling (pkg/scheduling):
  - splitter: Lazy range splitting, cross-context stealing and sync barriers
  - reporter: Cron-driven statistics reports to log and Redis sinks

Observability (pkg/metrics):
  - Prometheus registry shared by the scheduler and the reporter

Tools (cmd):
  - splitbench: Synthetic workloads with per-context statistics

Example usage:

	import (
		"github.com/vnykmshr/splitflow/pkg/scheduling/splitter"
	)

	m, _ := splitter.New(splitter.Config{}) // one context per CPU
	m.Start()
	defer m.Close()

	m.ParallelFor(len(pixels), 64, func(start, count int) {
		shade(pixels[start : start+count])
	})
*/
package splitflow
