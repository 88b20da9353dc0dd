package splitter

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vnykmshr/splitflow/internal/affinity"
	gferrors "github.com/vnykmshr/splitflow/pkg/common/errors"
	"github.com/vnykmshr/splitflow/pkg/metrics"
)

// Manager owns a fixed set of execution contexts and the workloads that run
// on them. Context 0 is the goroutine calling SyncWorkload and HelpWorkload;
// the others are goroutines started by Start.
//
// A Manager is an explicit value: create as many as needed with New and
// pass them where they are used.
type Manager struct {
	config   Config
	name     string
	logger   *slog.Logger
	contexts []*ExecContext
	wake     *event

	running atomic.Bool
	single  atomic.Bool
	// master is held while the caller's goroutine acts as context 0.
	master atomic.Bool

	lifecycle sync.Mutex // Start, StartSingle, Finish
	bgWg      sync.WaitGroup

	mu     sync.Mutex // guards slots and free
	slots  []*Workload
	free   []int
	active atomic.Pointer[[]*Workload] // running workloads, copy-on-write

	started   atomic.Uint64
	completed atomic.Uint64

	metrics   *metrics.Registry
	collector *statsCollector
}

// New creates a Manager. Zero fields of config take their DefaultConfig
// values. The manager does not run background contexts until Start.
func New(config Config) (*Manager, error) {
	config = config.withDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	m := &Manager{
		config: config,
		name:   config.Name,
		logger: config.Logger.With("manager", config.Name),
		wake:   newEvent(),
	}
	n := config.contextCount()
	m.contexts = make([]*ExecContext, n)
	for i := range m.contexts {
		m.contexts[i] = newExecContext(m, i)
	}
	empty := make([]*Workload, 0)
	m.active.Store(&empty)

	if reg := config.Metrics.Resolve(); reg != nil {
		m.metrics = reg
		m.collector = newStatsCollector(m)
		if err := reg.Register(m.collector); err != nil {
			return nil, fmt.Errorf("splitter: register collector: %w", err)
		}
		reg.Contexts.WithLabelValues(m.name).Set(float64(n))
	}

	m.logger.Debug("manager created", "contexts", n)
	return m, nil
}

// MustNew is like New but panics on an invalid configuration.
func MustNew(config Config) *Manager {
	m, err := New(config)
	if err != nil {
		panic(err)
	}
	return m
}

// Name returns the manager's name.
func (m *Manager) Name() string { return m.name }

// NumContexts returns the number of execution contexts, master included.
func (m *Manager) NumContexts() int { return len(m.contexts) }

// Context returns the execution context with the given index.
func (m *Manager) Context(index int) *ExecContext { return m.contexts[index] }

// Running reports whether the manager has been started and not finished.
func (m *Manager) Running() bool { return m.running.Load() }

// Single reports whether the manager runs in single-context mode.
func (m *Manager) Single() bool { return m.single.Load() }

// Start launches the background contexts. Calling Start on a running
// manager does nothing.
func (m *Manager) Start() {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	if m.running.Load() {
		return
	}
	m.single.Store(false)
	m.wake.reopen()
	m.running.Store(true)

	for _, c := range m.contexts[1:] {
		m.bgWg.Add(1)
		go m.run(c)
	}
	m.logger.Info("manager started", "contexts", len(m.contexts))
}

// StartSingle runs the manager without background contexts: every chunk
// executes on the master inside SyncWorkload.
func (m *Manager) StartSingle() {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	if m.running.Load() {
		return
	}
	m.single.Store(true)
	m.running.Store(true)
	m.logger.Info("manager started", "contexts", 1, "single", true)
}

// Finish stops the background contexts and waits for them to exit. Chunks
// already claimed run to completion first. Workloads still running keep
// their queued work; the master finishes it in SyncWorkload.
func (m *Manager) Finish() {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	if !m.running.Load() {
		return
	}
	m.running.Store(false)
	m.wake.close()
	m.bgWg.Wait()
	m.single.Store(false)
	m.logger.Info("manager finished")
}

// Close finishes the manager and unregisters its metrics collector.
func (m *Manager) Close() error {
	m.Finish()
	if m.collector != nil {
		m.metrics.Unregister(m.collector)
	}
	return nil
}

// run is the main loop of a background context.
func (m *Manager) run(c *ExecContext) {
	defer m.bgWg.Done()

	if m.config.PinThreads {
		if err := affinity.Pin(affinity.CPUFor(c.index)); err != nil {
			m.logger.Warn("pin failed", "context", c.index, "error", err)
		} else {
			defer func() { _ = affinity.Unpin() }()
		}
	}
	if m.config.OnContextStart != nil {
		m.config.OnContextStart(c.index)
	}
	defer func() {
		if m.config.OnContextStop != nil {
			m.config.OnContextStop(c.index)
		}
	}()
	m.logger.Debug("context started", "context", c.index)

	spin := spinWait{limit: m.config.SpinCount}
	for m.running.Load() {
		if m.step(c, nil) {
			spin.Reset()
			continue
		}
		if spin.Spin() {
			c.counters.spins.Add(1)
			continue
		}

		gen := m.wake.prepare()
		if !m.running.Load() {
			m.wake.cancel()
			break
		}
		if m.step(c, nil) {
			m.wake.cancel()
			spin.Reset()
			continue
		}
		c.counters.sleeps.Add(1)
		m.wake.wait(gen)
		spin.Reset()
	}
	m.logger.Debug("context stopped", "context", c.index)
}

// step executes at most one chunk on c. Work of prefer is tried first, then
// every running workload: own queues before stealing.
func (m *Manager) step(c *ExecContext, prefer *Workload) bool {
	if prefer != nil {
		if c.runOwn(prefer) {
			return true
		}
		if c.steal(prefer) {
			return c.runOwn(prefer)
		}
	}
	active := *m.active.Load()
	for _, w := range active {
		if w != prefer && c.runOwn(w) {
			return true
		}
	}
	for _, w := range active {
		if w != prefer && c.steal(w) {
			return c.runOwn(w)
		}
	}
	return false
}

// BeginWorkload returns an empty workload in Ready mode, reusing ended
// workloads before allocating new ones.
func (m *Manager) BeginWorkload() *Workload {
	m.mu.Lock()
	var w *Workload
	if n := len(m.free); n > 0 {
		w = m.slots[m.free[n-1]]
		m.free = m.free[:n-1]
	} else {
		w = newWorkload(m, len(m.slots))
		m.slots = append(m.slots, w)
	}
	m.mu.Unlock()

	w.prepare()
	if m.metrics != nil {
		m.metrics.WorkloadsActive.WithLabelValues(m.name).Inc()
	}
	return w
}

// StartWorkload makes the root tasks of w schedulable and moves it to
// Running. Root tasks are spread round-robin over the contexts while
// background contexts run, and all placed on the master otherwise.
func (m *Manager) StartWorkload(w *Workload) {
	m.owns(w, "Manager.StartWorkload")
	w.mustBeReady("Manager.StartWorkload")

	m.mu.Lock()
	old := *m.active.Load()
	next := make([]*Workload, len(old), len(old)+1)
	copy(next, old)
	next = append(next, w)
	m.active.Store(&next)
	m.mu.Unlock()

	w.startedAt = time.Now()
	spread := m.running.Load() && !m.single.Load()
	indices := w.launch(spread)
	m.started.Add(1)

	if m.metrics != nil {
		m.metrics.WorkloadsStarted.WithLabelValues(m.name).Inc()
		m.metrics.TasksSubmitted.WithLabelValues(m.name).Add(float64(w.nTasks))
		m.metrics.IndicesSubmitted.WithLabelValues(m.name).Add(float64(indices))
	}
}

// SyncWorkload makes the calling goroutine execute work as context 0 until
// every task of w, continuations included, has completed. Work of other
// running workloads may be executed on the way. Calling it again on a
// finished workload returns immediately.
func (m *Manager) SyncWorkload(w *Workload) {
	const op = "Manager.SyncWorkload"
	m.owns(w, op)
	switch w.Mode() {
	case ModeFinished:
		return
	case ModeRunning:
	default:
		gferrors.Violate(op, "workload is %s, want Running", w.Mode())
	}

	m.acquireMaster(op)
	defer m.master.Store(false)

	c := m.contexts[MasterIndex]
	spin := spinWait{limit: m.config.SpinCount}
	for w.tasksLeft.Load() > 0 {
		if m.step(c, w) {
			spin.Reset()
			continue
		}
		c.counters.spins.Add(1)
		if !spin.Spin() {
			spin.Reset()
		}
	}
	m.finished(w)
}

// HelpWorkload executes at most one chunk as context 0, preferring work of
// w, and reports whether w still has tasks left.
func (m *Manager) HelpWorkload(w *Workload) bool {
	const op = "Manager.HelpWorkload"
	m.owns(w, op)
	switch w.Mode() {
	case ModeFinished:
		return false
	case ModeRunning:
	default:
		gferrors.Violate(op, "workload is %s, want Running", w.Mode())
	}

	m.acquireMaster(op)
	c := m.contexts[MasterIndex]
	if w.tasksLeft.Load() > 0 && !m.step(c, w) {
		c.counters.spins.Add(1)
	}
	m.master.Store(false)

	if w.tasksLeft.Load() > 0 {
		return true
	}
	m.finished(w)
	return false
}

// EndWorkload returns w to the free list. w must have no tasks left; its
// arena is cleared and every handle created from it becomes invalid.
func (m *Manager) EndWorkload(w *Workload) {
	const op = "Manager.EndWorkload"
	m.owns(w, op)
	switch w.Mode() {
	case ModeFinished:
	case ModeRunning:
		if left := w.tasksLeft.Load(); left != 0 {
			gferrors.Violate(op, "workload has %d tasks left", left)
		}
		m.finished(w)
	default:
		gferrors.Violate(op, "workload is %s, want Finished", w.Mode())
	}

	m.mu.Lock()
	old := *m.active.Load()
	next := make([]*Workload, 0, len(old))
	for _, a := range old {
		if a != w {
			next = append(next, a)
		}
	}
	m.active.Store(&next)
	m.mu.Unlock()

	w.reset()

	m.mu.Lock()
	m.free = append(m.free, w.slot)
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.WorkloadsActive.WithLabelValues(m.name).Dec()
	}
}

// ParallelFor runs fn over [0, count) as a single task and waits for it.
// granularity <= 0 selects the default split.
func (m *Manager) ParallelFor(count, granularity int, fn func(start, count int)) {
	w := m.BeginWorkload()
	t := w.NewTask(KernelFunc(func(_ *Manager, _ *ExecContext, start, n int) {
		fn(start, n)
	}), count, 0)
	if granularity > 0 {
		t.SetGranularity(granularity)
	}
	w.Start()
	w.Sync()
	w.End()
}

func (m *Manager) finished(w *Workload) {
	if w.Mode() == ModeFinished {
		return
	}
	w.setMode(ModeFinished)
	m.completed.Add(1)
	if m.metrics != nil {
		m.metrics.WorkloadsCompleted.WithLabelValues(m.name).Inc()
		m.metrics.WorkloadDuration.WithLabelValues(m.name).Observe(time.Since(w.startedAt).Seconds())
	}
}

func (m *Manager) owns(w *Workload, op string) {
	if w == nil || w.m != m {
		gferrors.Violate(op, "workload does not belong to manager %s", m.name)
	}
}

func (m *Manager) acquireMaster(op string) {
	if !m.master.CompareAndSwap(false, true) {
		gferrors.Violate(op, "master context is already in use")
	}
}
