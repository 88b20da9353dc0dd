package splitter

import (
	"runtime"
	"sync"
	"sync/atomic"

	gferrors "github.com/vnykmshr/splitflow/pkg/common/errors"
)

// busyRounds is how many lock attempts spin before yielding the processor.
const busyRounds = 16

// spinLock is a non-recursive lock tagged with the index of the context
// holding it. A context locking a spinLock it already holds is a contract
// violation, not a deadlock.
type spinLock struct {
	state atomic.Int32 // 0 unlocked, otherwise owner index + 1
}

func (l *spinLock) Lock(owner int) {
	tag := int32(owner + 1)
	for i := 0; ; i++ {
		cur := l.state.Load()
		if cur == 0 {
			if l.state.CompareAndSwap(0, tag) {
				return
			}
			continue
		}
		if cur == tag {
			gferrors.Violate("spinLock.Lock", "context %d re-entered a lock it already holds", owner)
		}
		if i >= busyRounds {
			runtime.Gosched()
		}
	}
}

// TryLock acquires the lock only if it is free.
func (l *spinLock) TryLock(owner int) bool {
	tag := int32(owner + 1)
	if l.state.Load() == tag {
		gferrors.Violate("spinLock.TryLock", "context %d re-entered a lock it already holds", owner)
	}
	return l.state.CompareAndSwap(0, tag)
}

func (l *spinLock) Unlock(owner int) {
	if !l.state.CompareAndSwap(int32(owner+1), 0) {
		gferrors.Violate("spinLock.Unlock", "context %d released a lock it does not hold", owner)
	}
}

// spinWait is a bounded busy-wait. Spin returns false once limit rounds have
// passed; the second half of the rounds yields the processor.
type spinWait struct {
	n     int
	limit int
}

func (s *spinWait) Spin() bool {
	if s.n >= s.limit {
		return false
	}
	s.n++
	if s.n > s.limit/2 {
		runtime.Gosched()
	}
	return true
}

func (s *spinWait) Reset() { s.n = 0 }

// event is a generation counted wakeup for idle contexts.
//
// A sleeper calls prepare, rescans for work, then either cancel or wait.
// A producer calls signal after publishing work. Because prepare registers
// the sleeper before the rescan, a producer either publishes before the
// rescan or sees the sleeper and bumps the generation.
type event struct {
	mu       sync.Mutex
	cond     *sync.Cond
	gen      uint64
	closed   bool
	sleepers atomic.Int32
}

func newEvent() *event {
	e := &event{}
	e.cond = sync.NewCond(&e.mu)
	return e
}

func (e *event) prepare() uint64 {
	e.sleepers.Add(1)
	e.mu.Lock()
	g := e.gen
	e.mu.Unlock()
	return g
}

func (e *event) cancel() {
	e.sleepers.Add(-1)
}

// wait blocks until the generation moves past g or the event is closed.
func (e *event) wait(g uint64) {
	e.mu.Lock()
	for e.gen == g && !e.closed {
		e.cond.Wait()
	}
	e.mu.Unlock()
	e.sleepers.Add(-1)
}

func (e *event) signal() {
	if e.sleepers.Load() == 0 {
		return
	}
	e.mu.Lock()
	e.gen++
	e.cond.Broadcast()
	e.mu.Unlock()
}

func (e *event) close() {
	e.mu.Lock()
	e.closed = true
	e.gen++
	e.cond.Broadcast()
	e.mu.Unlock()
}

func (e *event) reopen() {
	e.mu.Lock()
	e.closed = false
	e.mu.Unlock()
}
