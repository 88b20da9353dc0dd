package splitter

import "sync/atomic"

// entry is a queued, not yet claimed part [start, end) of a task.
type entry struct {
	task       int32
	start, end int
	// dontSteal marks a short remainder its owner is about to claim.
	dontSteal bool
}

func (e entry) size() int { return e.end - e.start }

// taskQueue is one context's queue within a workload. The owner pushes and
// claims at the back; thieves remove from the front. Every access holds lock.
type taskQueue struct {
	lock    spinLock
	entries []entry
	// pending is the number of queued indices, read without the lock when
	// choosing a victim.
	pending atomic.Int64
}

func newTaskQueue(capacity int) *taskQueue {
	return &taskQueue{entries: make([]entry, 0, capacity)}
}

func (q *taskQueue) push(owner int, e entry) {
	q.lock.Lock(owner)
	q.entries = append(q.entries, e)
	q.pending.Add(int64(e.size()))
	q.lock.Unlock(owner)
}

// claim takes the next chunk of the most recently pushed entry. The rest of
// the entry stays in place as the new back of the queue, so the owner keeps
// splitting it one granule at a time.
// rest is the size of that remainder, zero when the entry was used up.
func (q *taskQueue) claim(owner int, tasks []taskRecord) (task int32, start, end, rest int, ok bool) {
	q.lock.Lock(owner)
	n := len(q.entries)
	if n == 0 {
		q.lock.Unlock(owner)
		return 0, 0, 0, 0, false
	}
	back := &q.entries[n-1]
	rec := &tasks[back.task]
	task, start = back.task, back.start
	endGame := rec.endGame
	if back.end != rec.end {
		// Only the piece holding the end of the task may be claimed whole.
		endGame = 0
	}
	end = chunkEnd(back.start, back.end, rec.granularity, endGame)
	if end == back.end {
		q.entries[n-1] = entry{}
		q.entries = q.entries[:n-1]
	} else {
		back.start = end
		back.dontSteal = back.size() < 2*rec.granularity
		rest = back.size()
	}
	q.pending.Add(-int64(end - start))
	q.lock.Unlock(owner)
	return task, start, end, rest, true
}

// stealResult reports the outcome of a steal attempt.
type stealResult int

const (
	stealEmpty stealResult = iota
	stealContended
	stealProtected
	stealOK
)

// steal removes work from the front of the queue. An entry of at least two
// granules is split on a granule boundary, unless it holds the end of its
// task and is within the end game: the thief gets the back half and the front
// half stays. ownerBusy enables the dontSteal hint.
func (q *taskQueue) steal(thief int, tasks []taskRecord, ownerBusy bool) (entry, stealResult) {
	if q.pending.Load() == 0 {
		return entry{}, stealEmpty
	}
	if !q.lock.TryLock(thief) {
		return entry{}, stealContended
	}
	if len(q.entries) == 0 {
		q.lock.Unlock(thief)
		return entry{}, stealEmpty
	}
	front := &q.entries[0]
	if front.dontSteal && ownerBusy && len(q.entries) == 1 {
		q.lock.Unlock(thief)
		return entry{}, stealProtected
	}

	rec := &tasks[front.task]
	g := rec.granularity
	granules := front.size() / g
	var stolen entry
	if granules >= 2 && (front.end != rec.end || front.size() > rec.endGame) {
		mid := front.start + (granules/2)*g
		stolen = entry{task: front.task, start: mid, end: front.end}
		front.end = mid
		front.dontSteal = false
	} else {
		stolen = *front
		stolen.dontSteal = false
		copy(q.entries, q.entries[1:])
		q.entries[len(q.entries)-1] = entry{}
		q.entries = q.entries[:len(q.entries)-1]
	}
	q.pending.Add(-int64(stolen.size()))
	q.lock.Unlock(thief)
	return stolen, stealOK
}

// reset drops every entry.
func (q *taskQueue) reset(owner int) {
	q.lock.Lock(owner)
	clear(q.entries)
	q.entries = q.entries[:0]
	q.pending.Store(0)
	q.lock.Unlock(owner)
}

func (q *taskQueue) count(owner int) int {
	q.lock.Lock(owner)
	n := len(q.entries)
	q.lock.Unlock(owner)
	return n
}
