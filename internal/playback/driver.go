package playback

import (
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/storyplay/internal/sched"
	"github.com/Faultbox/storyplay/internal/story"
)

// driver owns the play head in autonomous mode. A segment's dwell starts when
// its routes are published; at the end of the dwell the driver advances,
// waits at a transition gate, or holds when the segment does not auto-advance.
type driver struct {
	e *Engine

	visitSeq  uint64
	dwell     sched.Timer
	dwellEnds time.Time
	remaining time.Duration

	armed    bool // dwell and clock started for this visit
	gated    bool // waiting at a transition gate
	holding  bool // dwell ended on a segment without auto-advance
	finished bool // played past the last segment
	lastStop bool // index was clamped; do not advance past it
}

func (d *driver) play() {
	e := d.e
	if len(e.segments) == 0 {
		return
	}

	switch e.state.Status {
	case Playing, WaitingForUser:
		return
	case Idle:
		idx := e.state.CurrentIndex
		if d.finished {
			idx = 0
			d.finished, d.lastStop = false, false
		}
		d.start(idx)
	case Paused:
		if d.holding {
			d.holding = false
			if !d.hasNext() {
				d.finish()
				return
			}
			e.setStatus(Playing)
			e.setPlaying(true)
			d.advance()
			return
		}

		e.clock.Resume(e.sched.Now())
		e.setPlaying(true)
		if d.gated {
			e.setStatus(WaitingForUser)
			return
		}
		e.setStatus(Playing)
		switch {
		case d.armed:
			d.startDwell(d.remaining)
		case e.state.RoutesLoaded:
			d.arm()
		}
	}
}

func (d *driver) playFrom(index int) {
	e := d.e
	if len(e.segments) == 0 {
		return
	}
	target := e.clampIndex(index)
	d.finished = false
	d.lastStop = index >= len(e.segments)
	if d.lastStop {
		e.log.Warn("start index out of range, clamping", zap.Int("index", index), zap.Int("clamped", target))
	}
	d.start(target)
}

func (d *driver) start(index int) {
	d.e.setStatus(Playing)
	d.e.setPlaying(true)
	d.visit(index)
}

func (d *driver) pause() {
	e := d.e
	if e.state.Status != Playing && e.state.Status != WaitingForUser {
		return
	}
	now := e.sched.Now()
	if d.dwell != nil {
		d.remaining = max(d.dwellEnds.Sub(now), 0)
	}
	d.stopDwell()
	e.clock.Pause(now)
	e.setStatus(Paused)
	e.setPlaying(false)
}

func (d *driver) stop() {
	e := d.e
	d.reset()
	d.finished, d.lastStop = false, false
	e.setStatus(Idle)
	e.setPlaying(false)
	e.halt()

	prev := e.state.CurrentIndex
	e.state.CurrentIndex = 0
	if prev != 0 && len(e.segments) > 0 && e.cb.OnSegmentChange != nil {
		e.cb.OnSegmentChange(e.segments[0], 0)
	}
	e.log.Info("playback stopped")
}

func (d *driver) clear() {
	d.reset()
	d.e.setStatus(Idle)
	d.e.setPlaying(false)
	d.e.halt()
}

func (d *driver) continueGate() bool {
	e := d.e
	if !d.gated || e.state.Status != WaitingForUser {
		return false
	}
	d.gated = false
	e.closeGate()
	e.log.Info("gate released", zap.Int("index", e.state.CurrentIndex))
	e.setStatus(Playing)
	d.advance()
	return true
}

func (d *driver) published() {
	if d.armed || !d.e.state.IsPlaying {
		return
	}
	d.arm()
}

func (d *driver) resync(index int) {
	e := d.e
	if index != e.state.CurrentIndex {
		d.lastStop = true
	}
	if e.state.Status == WaitingForUser {
		e.setStatus(Playing)
	}
	d.visit(index)
}

// visit enters a segment with fresh per-visit state.
func (d *driver) visit(index int) {
	e := d.e
	d.reset()
	d.visitSeq++
	e.closeGate()
	e.enter(index)

	seg := e.segments[index]
	if e.state.IsPlaying && seg.RequireUserAction && seg.DurationMs <= 0 {
		d.waitForUser(seg)
	}
}

// arm starts the segment clock and, unless gated, the dwell timer.
func (d *driver) arm() {
	e := d.e
	d.armed = true
	e.clock.Start(e.sched.Now())
	if d.gated {
		return
	}
	d.startDwell(e.segments[e.state.CurrentIndex].Duration())
}

func (d *driver) startDwell(dur time.Duration) {
	e := d.e
	d.stopDwell()
	seq := d.visitSeq
	d.remaining = dur
	d.dwellEnds = e.sched.Now().Add(dur)
	d.dwell = e.sched.AfterFunc(dur, func() {
		if seq != d.visitSeq {
			return
		}
		d.dwell = nil
		d.dwellEnd()
	})
}

func (d *driver) dwellEnd() {
	e := d.e
	d.remaining = 0
	seg := e.segments[e.state.CurrentIndex]

	switch {
	case seg.RequireUserAction:
		d.waitForUser(seg)
	case !seg.AutoAdvance:
		d.holding = true
		e.clock.Pause(e.sched.Now())
		e.setStatus(Paused)
		e.setPlaying(false)
		e.log.Info("holding at segment end", zap.String("segment", seg.ID))
	default:
		d.advance()
	}
}

func (d *driver) waitForUser(seg story.Segment) {
	d.gated = true
	d.e.setStatus(WaitingForUser)
	d.e.openGate(seg)
}

func (d *driver) advance() {
	if !d.hasNext() {
		d.finish()
		return
	}
	d.visit(d.e.state.CurrentIndex + 1)
}

func (d *driver) hasNext() bool {
	return !d.lastStop && d.e.state.CurrentIndex+1 < len(d.e.segments)
}

func (d *driver) finish() {
	e := d.e
	d.stopDwell()
	d.finished = true
	e.clock.Pause(e.sched.Now())
	e.setStatus(Idle)
	e.setPlaying(false)
	e.log.Info("story finished", zap.Int("index", e.state.CurrentIndex))
}

func (d *driver) reset() {
	d.stopDwell()
	d.armed, d.gated, d.holding = false, false, false
	d.remaining = 0
}

func (d *driver) stopDwell() {
	if d.dwell != nil {
		d.dwell.Stop()
		d.dwell = nil
	}
}
