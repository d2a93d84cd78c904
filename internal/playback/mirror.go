package playback

import "go.uber.org/zap"

// mirror reconciles an external (index, playing) pair into the engine. Within
// one update an index change is applied first and absorbs the play state as
// pendingPlay, so stale content never plays. Controlled playback has no local
// gates: continuing is the external driver's next index.
type mirror struct {
	e       *Engine
	synced  bool
	playing bool // last external play state
}

func (m *mirror) reconcile(index int, playing bool) {
	e := m.e
	if len(e.segments) == 0 {
		m.playing = playing
		e.state.PendingPlay = false
		return
	}

	target := e.clampIndex(index)
	if target != index {
		e.log.Warn("controlled index out of range, clamping",
			zap.Int("index", index),
			zap.Int("clamped", target),
		)
	}

	if !m.synced || target != e.state.CurrentIndex {
		m.enter(target, playing)
		return
	}
	if playing == m.playing {
		return
	}
	m.playing = playing
	if playing {
		m.start()
	} else {
		m.halt()
	}
}

func (m *mirror) enter(index int, playing bool) {
	e := m.e
	m.synced = true
	m.playing = playing
	e.setPlaying(false)
	e.setStatus(Paused)
	e.state.PendingPlay = playing
	e.enter(index)
}

// start plays now if the segment's routes are published, otherwise defers.
func (m *mirror) start() {
	e := m.e
	if !e.state.RoutesLoaded {
		e.state.PendingPlay = true
		return
	}
	now := e.sched.Now()
	if e.clock.Started() {
		e.clock.Resume(now)
	} else {
		e.clock.Start(now)
	}
	e.setStatus(Playing)
	e.setPlaying(true)
}

// halt pauses without resetting the segment start.
func (m *mirror) halt() {
	e := m.e
	e.state.PendingPlay = false
	if !e.state.IsPlaying {
		return
	}
	e.clock.Pause(e.sched.Now())
	e.setStatus(Paused)
	e.setPlaying(false)
}

func (m *mirror) published() {
	e := m.e
	if !e.state.PendingPlay {
		return
	}
	e.state.PendingPlay = false
	e.clock.Start(e.sched.Now())
	e.setStatus(Playing)
	e.setPlaying(true)
}

func (m *mirror) play() {
	m.reconcile(m.e.state.CurrentIndex, true)
}

func (m *mirror) playFrom(index int) {
	m.reconcile(index, true)
}

func (m *mirror) pause() {
	if !m.synced {
		return
	}
	m.reconcile(m.e.state.CurrentIndex, false)
}

func (m *mirror) stop() {
	m.clear()
	m.e.state.CurrentIndex = 0
}

func (m *mirror) clear() {
	e := m.e
	m.synced = false
	m.playing = false
	e.setPlaying(false)
	e.setStatus(Idle)
	e.halt()
}

func (m *mirror) continueGate() bool {
	m.e.log.Debug("continue ignored in controlled mode")
	return false
}

func (m *mirror) resync(index int) {
	m.enter(index, m.playing)
}
