package splitter

import (
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// MasterIndex is the index of the context driven by the goroutine that
// calls Workload.Sync and Workload.Help.
const MasterIndex = 0

// ExecContext is one execution context of a Manager. Context 0 is the
// master, run by the caller's goroutine; the others are background
// goroutines started by Manager.Start. Kernels receive the context that runs
// them, which is stable for the duration of one chunk.
type ExecContext struct {
	index int
	m     *Manager

	// busy is set while the context executes a chunk.
	busy atomic.Bool

	_        cpu.CacheLinePad
	counters contextCounters
	_        cpu.CacheLinePad
}

// contextCounters are written by the owning context only.
type contextCounters struct {
	chunks        atomic.Uint64
	indices       atomic.Uint64
	steals        atomic.Uint64
	stolenIndices atomic.Uint64
	failedLocks   atomic.Uint64
	spins         atomic.Uint64
	sleeps        atomic.Uint64
}

func (cc *contextCounters) reset() {
	cc.chunks.Store(0)
	cc.indices.Store(0)
	cc.steals.Store(0)
	cc.stolenIndices.Store(0)
	cc.failedLocks.Store(0)
	cc.spins.Store(0)
	cc.sleeps.Store(0)
}

func newExecContext(m *Manager, index int) *ExecContext {
	return &ExecContext{index: index, m: m}
}

// Index returns the context's stable index; 0 is the master.
func (c *ExecContext) Index() int { return c.index }

// Manager returns the manager owning the context.
func (c *ExecContext) Manager() *Manager { return c.m }

// IsMaster reports whether the context is driven by the caller's goroutine.
func (c *ExecContext) IsMaster() bool { return c.index == MasterIndex }

// Stats returns a snapshot of the context's diagnostic counters.
func (c *ExecContext) Stats() ContextStats {
	return ContextStats{
		Index:         c.index,
		Chunks:        c.counters.chunks.Load(),
		Indices:       c.counters.indices.Load(),
		Steals:        c.counters.steals.Load(),
		StolenIndices: c.counters.stolenIndices.Load(),
		FailedLocks:   c.counters.failedLocks.Load(),
		Spins:         c.counters.spins.Load(),
		Sleeps:        c.counters.sleeps.Load(),
	}
}

// runOwn claims and executes one chunk from the context's own queue in w.
func (c *ExecContext) runOwn(w *Workload) bool {
	task, start, end, rest, ok := w.queues[c.index].claim(c.index, w.tasks)
	if !ok {
		return false
	}
	if rest >= 2*w.tasks[task].granularity {
		c.m.wake.signal()
	}
	c.execute(w, task, start, end)
	return true
}

// steal moves work of w from another context's queue into this context's
// queue. The victim is the context with the most queued indices; when that
// attempt fails the others are tried round-robin from the next index.
func (c *ExecContext) steal(w *Workload) bool {
	n := len(w.queues)
	if n < 2 {
		return false
	}

	best, bestLoad := -1, int64(0)
	for i, q := range w.queues {
		if i == c.index {
			continue
		}
		if load := q.pending.Load(); load > bestLoad {
			best, bestLoad = i, load
		}
	}
	if best < 0 {
		return false
	}
	if c.stealFrom(w, best) {
		return true
	}
	for k := 1; k < n; k++ {
		victim := (c.index + k) % n
		if victim == best {
			continue
		}
		if c.stealFrom(w, victim) {
			return true
		}
	}
	return false
}

func (c *ExecContext) stealFrom(w *Workload, victim int) bool {
	owner := c.m.contexts[victim]
	e, res := w.queues[victim].steal(c.index, w.tasks, owner.busy.Load())
	switch res {
	case stealContended:
		c.counters.failedLocks.Add(1)
		return false
	case stealOK:
	default:
		return false
	}
	c.counters.steals.Add(1)
	c.counters.stolenIndices.Add(uint64(e.size()))
	w.queues[c.index].push(c.index, e)
	return true
}

// execute runs the kernel on [start, end) and settles the completion
// accounting. tasksLeft is decremented last: once it reaches zero the
// workload may be ended and reused, so nothing of w is touched afterwards.
func (c *ExecContext) execute(w *Workload, id int32, start, end int) {
	rec := &w.tasks[id]
	count := end - start

	w.tasksRunning.Add(1)
	c.busy.Store(true)
	c.invoke(rec.kernel, start, count)
	c.busy.Store(false)
	w.tasksRunning.Add(-1)

	c.counters.chunks.Add(1)
	c.counters.indices.Add(uint64(count))

	if rec.remaining.Add(-int64(count)) != 0 {
		return
	}
	for _, ref := range w.syncRefs[rec.syncLo : rec.syncLo+rec.syncN] {
		s := &w.syncs[ref]
		if s.release() {
			w.enqueue(c.index, c.index, s.continueTask)
		}
	}
	w.tasksLeft.Add(-1)
}

func (c *ExecContext) invoke(k Kernel, start, count int) {
	if h := c.m.config.PanicHandler; h != nil {
		defer func() {
			if r := recover(); r != nil {
				h(c, start, count, r)
			}
		}()
	}
	k.Execute(c.m, c, start, count)
}
