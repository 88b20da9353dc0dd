package splitter

import (
	"sync/atomic"

	gferrors "github.com/vnykmshr/splitflow/pkg/common/errors"
)

// syncRecord is the arena slot of a sync barrier.
type syncRecord struct {
	refs         int32 // tasks referencing the sync, counted while Ready
	continueTask int32
	count        atomic.Int32
}

// release decrements the outstanding count and reports whether this call
// moved it to zero. Exactly one caller ever observes true.
func (s *syncRecord) release() bool {
	return s.count.Add(-1) == 0
}

// Sync is a handle to a countdown barrier in a workload arena. When every
// task added to it with Workload.AddSync has finished its whole range, the
// continuation task is queued exactly once.
type Sync struct {
	wl  *Workload
	gen uint32
	id  int32
}

func (s Sync) record(op string) *syncRecord {
	if s.wl == nil {
		gferrors.Violate(op, "zero Sync handle")
	}
	if s.gen != s.wl.gen {
		gferrors.Violate(op, "sync handle from an ended workload")
	}
	return &s.wl.syncs[s.id]
}

// Count returns the number of tasks still holding the barrier. Before the
// workload starts it is the number of referencing tasks.
func (s Sync) Count() int {
	rec := s.record("Sync.Count")
	if s.wl.Mode() == ModeReady {
		return int(rec.refs)
	}
	return int(rec.count.Load())
}

// Continuation returns the task released by the barrier.
func (s Sync) Continuation() Task {
	rec := s.record("Sync.Continuation")
	return Task{wl: s.wl, gen: s.gen, id: rec.continueTask}
}

// Valid reports whether the handle still refers to a live sync.
func (s Sync) Valid() bool {
	return s.wl != nil && s.gen == s.wl.gen
}
