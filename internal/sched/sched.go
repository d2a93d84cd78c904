// Package sched provides the single-threaded scheduler the playback engine runs on.
//
// Every callback handed to a Scheduler (timers, posted functions, continuations of
// background work) executes on one goroutine, one at a time. Engine components
// therefore keep plain fields without locks and rely on generation tokens to
// discard continuations that were superseded while they waited.
package sched

import "time"

// Timer is a pending delayed continuation.
type Timer interface {
	// Stop prevents the continuation from running. It reports whether the call
	// stopped it, false if it already ran or was stopped before.
	Stop() bool
}

// Scheduler runs continuations on a single logical thread.
type Scheduler interface {
	Now() time.Time
	// AfterFunc runs fn on the scheduler after d.
	AfterFunc(d time.Duration, fn func()) Timer
	// Post runs fn on the scheduler as soon as possible, after already queued work.
	Post(fn func())
	// Go runs work off the scheduler. The continuation it returns, if any, is
	// posted back onto the scheduler.
	Go(work func() (done func()))
}

const (
	timerPending int32 = iota
	timerStopped
	timerFired
)
