/*
Package splitter provides a work-stealing scheduler for range-splittable tasks.

A task is a kernel applied to every index of a range [start, end). The
scheduler never materializes subtasks up front: a context claims one chunk of
Granularity indices from the range it owns and leaves the rest queued, so idle
contexts can steal the remainder. Ranges no larger than EndGame are claimed
whole.

Basic usage:

	m, err := splitter.New(splitter.Config{})
	if err != nil {
		log.Fatal(err)
	}
	m.Start()
	defer m.Close()

	w := m.BeginWorkload()
	w.NewTask(splitter.KernelFunc(func(m *splitter.Manager, c *splitter.ExecContext, start, count int) {
		for i := start; i < start+count; i++ {
			pixels[i] = shade(i)
		}
	}), len(pixels), 0).SetGranularity(64)
	w.Start()
	w.Sync()
	w.End()

Contexts:

A Manager owns a fixed set of execution contexts. Context 0 is the master:
the goroutine calling Workload.Sync or Workload.Help. The others are
background goroutines started by Manager.Start, optionally pinned to CPUs.
Manager.StartSingle runs everything on the master. Each context keeps one
queue per workload; the owner works on its newest entry while thieves take
the oldest, splitting it on a granule boundary when it is large enough.

Syncs:

A Sync is a countdown barrier. Every task added to it with Workload.AddSync
holds it until its whole range has executed; the last release queues the
Sync's continuation task exactly once. Continuations are not started with
the root tasks.

	w := m.BeginWorkload()
	rows := w.NewTask(filterRows, height, 1)
	cols := w.NewTask(filterCols, width, 1)
	merge := w.NewTask(mergePass, 1, 0)
	w.AddSync(rows, w.NewSync(merge))
	...

Workload lifecycle:

	Idle --BeginWorkload--> Ready --Start--> Running --Sync--> Finished --End--> Idle

Tasks and syncs can only be created while Ready. Calls out of this order,
exhausted arenas and stale handles are contract violations: they panic with
a *errors.ContractViolation from package pkg/common/errors.

Observability:

Manager.Stats returns per-context counters (chunks, steals, failed lock
attempts, spins, sleeps). With Config.Metrics enabled the same counters are
exported to Prometheus together with workload counters and durations.
*/
package splitter
