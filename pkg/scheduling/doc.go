/*
Package scheduling provides task scheduling and execution primitives for Go applications.

This package offers components for splitting and observing parallel work:

  - splitter: Work-stealing execution of range tasks with sync barriers
  - reporter: Periodic publishing of scheduler statistics

Splitter:

The splitter runs a kernel over every index of a range, splitting the range
on demand between execution contexts:

	m, _ := splitter.New(splitter.Config{Contexts: 8})
	m.Start()
	defer m.Close()

	w := m.BeginWorkload()
	w.NewTask(kernel, 1000, 0).SetGranularity(64)
	w.Start()
	w.Sync()
	w.End()

Reporter:

The reporter snapshots a manager on a cron schedule:

	r, _ := reporter.New(m, reporter.Config{Schedule: "@every 30s"}, reporter.LogSink{})
	r.Start()
	defer r.Stop()

Workload construction and Sync are driven by a single goroutine per
manager; kernels run concurrently on every context.
*/
package scheduling
