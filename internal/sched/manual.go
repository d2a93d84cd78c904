package sched

import (
	"container/heap"
	"time"
)

// Manual is a deterministic Scheduler driven by virtual time. Nothing runs
// until Advance or Flush is called. It is not safe for concurrent use.
type Manual struct {
	now   time.Time
	seq   uint64
	tasks taskHeap
}

// NewManual creates a manual scheduler whose clock starts at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now returns the virtual time.
func (m *Manual) Now() time.Time {
	return m.now
}

// AfterFunc schedules fn at Now()+d.
func (m *Manual) AfterFunc(d time.Duration, fn func()) Timer {
	if d < 0 {
		d = 0
	}
	m.seq++
	t := &manualTask{at: m.now.Add(d), seq: m.seq, fn: fn}
	heap.Push(&m.tasks, t)
	return t
}

// Post schedules fn at the current virtual time.
func (m *Manual) Post(fn func()) {
	m.AfterFunc(0, fn)
}

// Go runs work immediately and posts its continuation.
func (m *Manual) Go(work func() func()) {
	if done := work(); done != nil {
		m.Post(done)
	}
}

// Advance moves the clock forward by d, running every task that falls due in
// time order. Tasks scheduled while advancing run too if they fall due.
func (m *Manual) Advance(d time.Duration) {
	target := m.now.Add(d)
	for m.tasks.Len() > 0 {
		next := m.tasks[0]
		if next.at.After(target) {
			break
		}
		heap.Pop(&m.tasks)
		if next.at.After(m.now) {
			m.now = next.at
		}
		if next.state == timerPending {
			next.state = timerFired
			next.fn()
		}
	}
	m.now = target
}

// Flush runs every task due at the current time.
func (m *Manual) Flush() {
	m.Advance(0)
}

// Pending reports how many tasks are still waiting to run.
func (m *Manual) Pending() int {
	n := 0
	for _, t := range m.tasks {
		if t.state == timerPending {
			n++
		}
	}
	return n
}

type manualTask struct {
	at    time.Time
	seq   uint64
	fn    func()
	state int32
}

func (t *manualTask) Stop() bool {
	if t.state != timerPending {
		return false
	}
	t.state = timerStopped
	return true
}

type taskHeap []*manualTask

func (h taskHeap) Len() int { return len(h) }
func (h taskHeap) Less(i, j int) bool {
	if !h[i].at.Equal(h[j].at) {
		return h[i].at.Before(h[j].at)
	}
	return h[i].seq < h[j].seq
}
func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *taskHeap) Push(x any) { *h = append(*h, x.(*manualTask)) }

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return t
}
