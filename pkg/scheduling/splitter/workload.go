package splitter

import (
	"sync/atomic"
	"time"

	gferrors "github.com/vnykmshr/splitflow/pkg/common/errors"
)

// Mode is the lifecycle state of a Workload.
type Mode int32

const (
	// ModeIdle: the workload sits in the manager's free list.
	ModeIdle Mode = iota
	// ModeReady: tasks and syncs may be added.
	ModeReady
	// ModeRunning: tasks are queued and being executed.
	ModeRunning
	// ModeFinished: every task, including continuations, has completed.
	ModeFinished
)

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "Idle"
	case ModeReady:
		return "Ready"
	case ModeRunning:
		return "Running"
	case ModeFinished:
		return "Finished"
	default:
		return "Unknown"
	}
}

// Workload is a batch of tasks sharing one arena and one queue per context.
//
// A workload is obtained with Manager.BeginWorkload, populated with NewTask,
// NewSync and AddSync, then driven through Start, Sync and End in that
// order. Its arena is fixed at construction and reused: ending a workload
// invalidates every Task and Sync handle created from it.
type Workload struct {
	m    *Manager
	slot int
	gen  uint32
	mode atomic.Int32 // Mode, written by the master only

	// Arena. Lengths are fixed; n* count the used prefix.
	tasks    []taskRecord
	syncs    []syncRecord
	syncRefs []int32
	nTasks   int
	nSyncs   int
	nRefs    int

	queues []*taskQueue

	tasksLeft    atomic.Int64
	tasksRunning atomic.Int64

	startedAt time.Time
}

func newWorkload(m *Manager, slot int) *Workload {
	cfg := m.config
	w := &Workload{
		m:        m,
		slot:     slot,
		gen:      1,
		tasks:    make([]taskRecord, cfg.ArenaTasks),
		syncs:    make([]syncRecord, cfg.ArenaSyncs),
		syncRefs: make([]int32, cfg.ArenaSyncRefs),
		queues:   make([]*taskQueue, len(m.contexts)),
	}
	for i := range w.queues {
		w.queues[i] = newTaskQueue(cfg.MaxQueuedPerContext)
	}
	return w
}

func (w *Workload) mustBeReady(op string) {
	if mode := w.Mode(); mode != ModeReady {
		gferrors.Violate(op, "workload is %s, want Ready", mode)
	}
}

// Mode returns the lifecycle state.
func (w *Workload) Mode() Mode { return Mode(w.mode.Load()) }

func (w *Workload) setMode(m Mode) { w.mode.Store(int32(m)) }

// Manager returns the manager the workload belongs to.
func (w *Workload) Manager() *Manager { return w.m }

// TasksLeft returns the number of tasks, continuations included, that have
// not completed their whole range.
func (w *Workload) TasksLeft() int { return int(w.tasksLeft.Load()) }

// TasksRunning returns the number of chunks currently executing.
func (w *Workload) TasksRunning() int { return int(w.tasksRunning.Load()) }

// NumTasks returns the number of tasks allocated in the arena.
func (w *Workload) NumTasks() int { return w.nTasks }

// NewTask allocates a task over the indices [0, count). syncCount reserves
// room for that many AddSync calls on the task. The task becomes schedulable
// when the workload starts.
func (w *Workload) NewTask(k Kernel, count, syncCount int) Task {
	return w.NewRangeTask(k, 0, count, syncCount)
}

// NewRangeTask allocates a task over the indices [start, end).
func (w *Workload) NewRangeTask(k Kernel, start, end, syncCount int) Task {
	const op = "Workload.NewTask"
	w.mustBeReady(op)
	if k == nil {
		gferrors.Violate(op, "nil kernel")
	}
	if end-start <= 0 {
		gferrors.Violate(op, "range [%d, %d) is empty", start, end)
	}
	if syncCount < 0 {
		gferrors.Violate(op, "negative sync count %d", syncCount)
	}
	if w.nTasks == len(w.tasks) {
		gferrors.Violate(op, "task arena exhausted (%d tasks)", len(w.tasks))
	}
	if w.nRefs+syncCount > len(w.syncRefs) {
		gferrors.Violate(op, "sync reference arena exhausted (%d references)", len(w.syncRefs))
	}

	id := int32(w.nTasks)
	w.nTasks++
	rec := &w.tasks[id]
	rec.kernel = k
	rec.start, rec.end = start, end
	rec.syncLo = int32(w.nRefs)
	rec.syncCap = int32(syncCount)
	rec.remaining.Store(int64(end - start))
	w.nRefs += syncCount

	return Task{wl: w, gen: w.gen, id: id}
}

// NewSync allocates a barrier releasing cont. cont must belong to this
// workload and must not already continue another sync; it is not started
// with the root tasks but queued when the barrier reaches zero.
func (w *Workload) NewSync(cont Task) Sync {
	const op = "Workload.NewSync"
	w.mustBeReady(op)
	if cont.wl != w {
		gferrors.Violate(op, "continuation belongs to another workload")
	}
	crec := cont.record(op)
	if crec.continuation {
		gferrors.Violate(op, "task %d already continues another sync", cont.id)
	}
	if w.nSyncs == len(w.syncs) {
		gferrors.Violate(op, "sync arena exhausted (%d syncs)", len(w.syncs))
	}

	id := int32(w.nSyncs)
	w.nSyncs++
	rec := &w.syncs[id]
	rec.refs = 0
	rec.continueTask = cont.id
	crec.continuation = true

	return Sync{wl: w, gen: w.gen, id: id}
}

// AddSync makes s wait for t: once every index of t has been executed, s is
// decremented. t must have been created with a spare sync slot.
func (w *Workload) AddSync(t Task, s Sync) {
	const op = "Workload.AddSync"
	w.mustBeReady(op)
	if t.wl != w || s.wl != w {
		gferrors.Violate(op, "task and sync must belong to this workload")
	}
	trec := t.record(op)
	srec := s.record(op)
	if trec.syncN == trec.syncCap {
		gferrors.Violate(op, "task %d has no free sync slot (capacity %d)", t.id, trec.syncCap)
	}
	if srec.continueTask == t.id {
		gferrors.Violate(op, "task %d cannot wait on its own sync", t.id)
	}
	w.syncRefs[trec.syncLo+trec.syncN] = s.id
	trec.syncN++
	srec.refs++
}

// Start makes every root task schedulable. See Manager.StartWorkload.
func (w *Workload) Start() { w.m.StartWorkload(w) }

// Sync executes work until the workload has finished. See Manager.SyncWorkload.
func (w *Workload) Sync() { w.m.SyncWorkload(w) }

// Help executes at most one chunk and reports whether work is left.
// See Manager.HelpWorkload.
func (w *Workload) Help() bool { return w.m.HelpWorkload(w) }

// End returns the workload to the manager. See Manager.EndWorkload.
func (w *Workload) End() { w.m.EndWorkload(w) }

// prepare moves an idle workload to Ready.
func (w *Workload) prepare() {
	w.setMode(ModeReady)
	w.tasksLeft.Store(0)
	w.tasksRunning.Store(0)
}

// launch fixes task defaults, arms the syncs and distributes the root tasks.
// Continuations of syncs without references are released immediately.
func (w *Workload) launch(spread bool) (indices int) {
	n := len(w.queues)
	for i := 0; i < w.nTasks; i++ {
		rec := &w.tasks[i]
		if rec.granularity == 0 {
			rec.granularity = max(1, (rec.end-rec.start)/(n*w.m.config.SplitFactor))
		}
		if !rec.endGameSet {
			rec.endGame = rec.granularity / 2
		}
		indices += rec.end - rec.start
	}
	w.tasksLeft.Store(int64(w.nTasks))
	w.setMode(ModeRunning)

	target := 0
	next := func() int {
		if !spread {
			return MasterIndex
		}
		q := target
		target = (target + 1) % n
		return q
	}
	for i := 0; i < w.nSyncs; i++ {
		rec := &w.syncs[i]
		rec.count.Store(rec.refs)
		if rec.refs == 0 {
			w.enqueue(MasterIndex, next(), rec.continueTask)
		}
	}
	for i := 0; i < w.nTasks; i++ {
		if !w.tasks[i].continuation {
			w.enqueue(MasterIndex, next(), int32(i))
		}
	}
	return indices
}

// enqueue pushes the whole range of a task into queue q on behalf of
// context by and wakes sleepers.
func (w *Workload) enqueue(by, q int, id int32) {
	rec := &w.tasks[id]
	w.queues[q].push(by, entry{task: id, start: rec.start, end: rec.end})
	w.m.wake.signal()
}

// reset clears the arena and invalidates outstanding handles.
func (w *Workload) reset() {
	clear(w.tasks[:w.nTasks])
	clear(w.syncs[:w.nSyncs])
	clear(w.syncRefs[:w.nRefs])
	w.nTasks, w.nSyncs, w.nRefs = 0, 0, 0
	for _, q := range w.queues {
		q.reset(MasterIndex)
	}
	w.gen++
	w.setMode(ModeIdle)
}
