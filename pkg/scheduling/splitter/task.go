package splitter

import (
	"sync/atomic"

	gferrors "github.com/vnykmshr/splitflow/pkg/common/errors"
)

// Kernel is the work of a task. Execute processes the subtask indices
// [start, start+count). It is called concurrently for disjoint chunks of
// the same task and must not assume any order between them.
type Kernel interface {
	Execute(m *Manager, c *ExecContext, start, count int)
}

// KernelFunc is a function type that implements the Kernel interface.
type KernelFunc func(m *Manager, c *ExecContext, start, count int)

// Execute implements the Kernel interface for KernelFunc.
func (f KernelFunc) Execute(m *Manager, c *ExecContext, start, count int) {
	f(m, c, start, count)
}

// taskRecord is the arena slot of a task.
type taskRecord struct {
	kernel       Kernel
	start, end   int
	granularity  int // 0 until set or defaulted at Start
	endGame      int
	endGameSet   bool
	continuation bool

	syncLo, syncN, syncCap int32

	remaining atomic.Int64
}

// chunkEnd applies the splitting policy to the range [s, e): a range no
// larger than endGame is claimed whole, anything else loses one granule
// from its front. Callers pass an endGame of zero for ranges that stop short
// of the task's end, so every chunk but the last of a task is one granule.
func chunkEnd(s, e, granularity, endGame int) int {
	if e-s <= endGame {
		return e
	}
	return s + min(granularity, e-s)
}

// Task is a handle to a task record in a workload arena. Handles become
// invalid when the workload ends; using one afterwards panics.
type Task struct {
	wl  *Workload
	gen uint32
	id  int32
}

func (t Task) record(op string) *taskRecord {
	if t.wl == nil {
		gferrors.Violate(op, "zero Task handle")
	}
	if t.gen != t.wl.gen {
		gferrors.Violate(op, "task handle from an ended workload")
	}
	return &t.wl.tasks[t.id]
}

// SetGranularity sets the number of indices claimed per chunk when the task
// is split. Only valid before the workload starts.
func (t Task) SetGranularity(g int) Task {
	rec := t.record("Task.SetGranularity")
	t.wl.mustBeReady("Task.SetGranularity")
	if g <= 0 {
		gferrors.Violate("Task.SetGranularity", "granularity %d must be positive", g)
	}
	rec.granularity = g
	return t
}

// SetEndGame sets the range size at or below which the remaining range is
// claimed whole. Only valid before the workload starts.
func (t Task) SetEndGame(n int) Task {
	rec := t.record("Task.SetEndGame")
	t.wl.mustBeReady("Task.SetEndGame")
	if n < 0 {
		gferrors.Violate("Task.SetEndGame", "end game %d cannot be negative", n)
	}
	rec.endGame = n
	rec.endGameSet = true
	return t
}

// Range returns the task's [start, end) index range.
func (t Task) Range() (start, end int) {
	rec := t.record("Task.Range")
	return rec.start, rec.end
}

// Granularity returns the chunk size, or 0 if it will be chosen at start.
func (t Task) Granularity() int {
	return t.record("Task.Granularity").granularity
}

// EndGame returns the whole-claim threshold.
func (t Task) EndGame() int {
	return t.record("Task.EndGame").endGame
}

// Valid reports whether the handle still refers to a live task.
func (t Task) Valid() bool {
	return t.wl != nil && t.gen == t.wl.gen
}
