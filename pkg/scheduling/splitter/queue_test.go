package splitter

import (
	"testing"

	"github.com/vnykmshr/splitflow/internal/testutil"
	gferrors "github.com/vnykmshr/splitflow/pkg/common/errors"
)

func testTasks(end, granularity, endGame int) []taskRecord {
	tasks := make([]taskRecord, 1)
	tasks[0].end = end
	tasks[0].granularity = granularity
	tasks[0].endGame = endGame
	return tasks
}

func TestChunkEnd(t *testing.T) {
	tests := []struct {
		name        string
		s, e, g, eg int
		wantEnd     int
	}{
		{"one granule", 0, 1000, 64, 32, 64},
		{"tail above end game", 960, 1000, 64, 32, 1000},
		{"tail at end game", 968, 1000, 64, 32, 1000},
		{"short range above end game", 0, 50, 64, 32, 50},
		{"no end game", 0, 10, 3, 0, 3},
		{"single index", 5, 6, 1, 0, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testutil.AssertEqual(t, chunkEnd(tt.s, tt.e, tt.g, tt.eg), tt.wantEnd)
		})
	}
}

func TestTaskQueue_ClaimSequence(t *testing.T) {
	tasks := testTasks(1000, 64, 32)
	q := newTaskQueue(4)
	q.push(0, entry{task: 0, start: 0, end: 1000})

	var sizes []int
	for {
		_, start, end, _, ok := q.claim(0, tasks)
		if !ok {
			break
		}
		sizes = append(sizes, end-start)
	}

	testutil.AssertEqual(t, len(sizes), 16)
	for _, s := range sizes[:15] {
		testutil.AssertEqual(t, s, 64)
	}
	testutil.AssertEqual(t, sizes[15], 40)
	testutil.AssertEqual(t, q.pending.Load(), int64(0))
}

func TestTaskQueue_ClaimIsLIFO(t *testing.T) {
	tasks := make([]taskRecord, 2)
	tasks[0].granularity, tasks[1].granularity = 10, 10
	tasks[0].end, tasks[1].end = 10, 10
	q := newTaskQueue(4)
	q.push(0, entry{task: 0, start: 0, end: 10})
	q.push(0, entry{task: 1, start: 0, end: 10})

	task, _, _, _, ok := q.claim(0, tasks)
	testutil.AssertEqual(t, ok, true)
	testutil.AssertEqual(t, task, int32(1))
}

func TestTaskQueue_ClaimRest(t *testing.T) {
	tasks := testTasks(25, 10, 0)
	q := newTaskQueue(4)
	q.push(0, entry{task: 0, start: 0, end: 25})

	_, start, end, rest, _ := q.claim(0, tasks)
	testutil.AssertEqual(t, start, 0)
	testutil.AssertEqual(t, end, 10)
	testutil.AssertEqual(t, rest, 15)
	testutil.AssertEqual(t, q.entries[0].dontSteal, true)
}

func TestTaskQueue_StealSplitsOnGranule(t *testing.T) {
	tasks := testTasks(1000, 64, 32)
	q := newTaskQueue(4)
	q.push(0, entry{task: 0, start: 0, end: 1000})

	stolen, res := q.steal(1, tasks, false)
	testutil.AssertEqual(t, res, stealOK)
	testutil.AssertEqual(t, stolen.start, 448)
	testutil.AssertEqual(t, stolen.end, 1000)
	testutil.AssertEqual(t, q.entries[0].end, 448)
	testutil.AssertEqual(t, q.pending.Load(), int64(448))
}

func TestTaskQueue_EndGameOnlyAtTaskEnd(t *testing.T) {
	tasks := testTasks(100, 4, 16)
	q := newTaskQueue(4)
	q.push(0, entry{task: 0, start: 40, end: 52})
	q.push(0, entry{task: 0, start: 88, end: 100})

	_, start, end, _, _ := q.claim(0, tasks)
	testutil.AssertEqual(t, start, 88)
	testutil.AssertEqual(t, end, 100)

	var sizes []int
	for {
		_, start, end, _, ok := q.claim(0, tasks)
		if !ok {
			break
		}
		sizes = append(sizes, end-start)
	}
	testutil.AssertEqual(t, len(sizes), 3)
	for _, n := range sizes {
		testutil.AssertEqual(t, n, 4)
	}
}

func TestTaskQueue_StealSplitsWithinEndGame(t *testing.T) {
	tasks := testTasks(100, 4, 16)
	q := newTaskQueue(4)
	q.push(1, entry{task: 0, start: 40, end: 52})

	stolen, res := q.steal(2, tasks, false)
	testutil.AssertEqual(t, res, stealOK)
	testutil.AssertEqual(t, stolen.start, 44)
	testutil.AssertEqual(t, stolen.end, 52)
	testutil.AssertEqual(t, q.entries[0].end, 44)
	testutil.AssertEqual(t, q.pending.Load(), int64(4))

	q = newTaskQueue(4)
	q.push(1, entry{task: 0, start: 88, end: 100})
	stolen, res = q.steal(2, tasks, false)
	testutil.AssertEqual(t, res, stealOK)
	testutil.AssertEqual(t, stolen.start, 88)
	testutil.AssertEqual(t, stolen.end, 100)
}

func TestTaskQueue_StealTakesFrontWhole(t *testing.T) {
	tasks := make([]taskRecord, 3)
	for i, end := range []int{15, 5, 8} {
		tasks[i].granularity = 10
		tasks[i].end = end
	}
	q := newTaskQueue(4)
	q.push(0, entry{task: 0, start: 0, end: 15})
	q.push(0, entry{task: 1, start: 0, end: 5})
	q.push(0, entry{task: 2, start: 0, end: 8})

	stolen, res := q.steal(1, tasks, true)
	testutil.AssertEqual(t, res, stealOK)
	testutil.AssertEqual(t, stolen.task, int32(0))
	testutil.AssertEqual(t, stolen.size(), 15)

	testutil.AssertEqual(t, q.count(0), 2)
	testutil.AssertEqual(t, q.entries[0].task, int32(1))
	testutil.AssertEqual(t, q.entries[1].task, int32(2))
}

func TestTaskQueue_DontSteal(t *testing.T) {
	tasks := testTasks(25, 10, 0)
	q := newTaskQueue(4)
	q.push(0, entry{task: 0, start: 0, end: 25})
	q.claim(0, tasks)

	_, res := q.steal(1, tasks, true)
	testutil.AssertEqual(t, res, stealProtected)

	stolen, res := q.steal(1, tasks, false)
	testutil.AssertEqual(t, res, stealOK)
	testutil.AssertEqual(t, stolen.start, 10)
	testutil.AssertEqual(t, stolen.end, 25)
	testutil.AssertEqual(t, stolen.dontSteal, false)
}

func TestTaskQueue_StealContended(t *testing.T) {
	tasks := testTasks(100, 10, 0)
	q := newTaskQueue(4)
	q.push(0, entry{task: 0, start: 0, end: 100})

	q.lock.Lock(0)
	_, res := q.steal(1, tasks, false)
	q.lock.Unlock(0)
	testutil.AssertEqual(t, res, stealContended)

	_, res = newTaskQueue(1).steal(1, tasks, false)
	testutil.AssertEqual(t, res, stealEmpty)
}

func TestSpinLock_ReentryPanics(t *testing.T) {
	var l spinLock
	l.Lock(2)

	r := testutil.AssertPanics(t, func() { l.Lock(2) })
	testutil.AssertEqual(t, gferrors.IsContractViolation(r), true)

	r = testutil.AssertPanics(t, func() { l.TryLock(2) })
	testutil.AssertEqual(t, gferrors.IsContractViolation(r), true)

	testutil.AssertEqual(t, l.TryLock(3), false)
	l.Unlock(2)
	testutil.AssertEqual(t, l.TryLock(3), true)

	r = testutil.AssertPanics(t, func() { l.Unlock(2) })
	testutil.AssertEqual(t, gferrors.IsContractViolation(r), true)
}

func TestSpinWait(t *testing.T) {
	s := spinWait{limit: 4}
	rounds := 0
	for s.Spin() {
		rounds++
	}
	testutil.AssertEqual(t, rounds, 4)

	s.Reset()
	testutil.AssertEqual(t, s.Spin(), true)
}

func TestEvent_SignalWakesSleeper(t *testing.T) {
	e := newEvent()
	gen := e.prepare()
	done := make(chan struct{})
	go func() {
		e.wait(gen)
		close(done)
	}()

	e.signal()
	<-done
	testutil.AssertEqual(t, e.sleepers.Load(), int32(0))
}

func TestEvent_CloseReleasesWaiters(t *testing.T) {
	e := newEvent()
	gen := e.prepare()
	e.close()
	e.wait(gen)

	e.reopen()
	e.prepare()
	e.cancel()
	testutil.AssertEqual(t, e.sleepers.Load(), int32(0))
	testutil.AssertEqual(t, e.closed, false)
}
