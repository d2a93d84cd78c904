// Package playback advances a story map through its segments, coordinating
// camera flights, route animation loading and the play head.
//
// An Engine runs either autonomously on its own timer (authoring preview) or
// as a mirror of an external presenter's (index, playing) pair. Both modes
// share the segment cycle implemented here: clear the previous segment's
// routes, fly the camera, load the new routes and publish them once both the
// camera and the settle window are done.
//
// The Engine is not safe for concurrent use. Every method and callback runs on
// the scheduler it was built with.
package playback

import (
	"go.uber.org/zap"

	"github.com/Faultbox/storyplay/internal/camera"
	"github.com/Faultbox/storyplay/internal/logger"
	"github.com/Faultbox/storyplay/internal/routes"
	"github.com/Faultbox/storyplay/internal/sched"
	"github.com/Faultbox/storyplay/internal/story"
)

// controller is the mode-specific half of the engine.
type controller interface {
	play()
	playFrom(index int)
	pause()
	stop()
	// clear halts playback and removes map artifacts, keeping the index.
	clear()
	continueGate() bool
	// published runs after the current segment's routes were published.
	published()
	// resync re-enters index after the segment list changed under it.
	resync(index int)
}

type invalidator interface {
	Invalidate(mapID, segmentID string)
}

// cycle tracks one camera transition plus route load for a segment.
type cycle struct {
	gen           uint64
	segmentID     string
	cameraSettled bool
	routesReady   bool
	routes        []story.RouteAnimation
	done          bool
}

// Engine is the story playback façade.
type Engine struct {
	sched   sched.Scheduler
	surface Surface
	source  routes.Source
	cam     *camera.Coordinator
	loader  *routes.Loader
	settle  routes.Settle
	timing  Timing
	cb      Callbacks
	log     *zap.Logger

	mapID    string
	segments []story.Segment
	mode     Mode
	ctrl     controller

	state    State
	clock    Clock
	gate     Gate
	visiting bool
	active   []story.RouteAnimation
	cycle    cycle
	dispatch sched.Timer
	ticker   sched.Timer
	tickGen  uint64
	closed   bool
}

// New creates an engine. The mode is fixed for the engine's lifetime.
func New(opts Options) (*Engine, error) {
	switch {
	case opts.Surface == nil:
		return nil, ErrNoSurface
	case opts.Source == nil:
		return nil, ErrNoSource
	case opts.Scheduler == nil:
		return nil, ErrNoScheduler
	}

	log := opts.Logger
	if log == nil {
		log = logger.Named("playback")
	}
	timing := opts.Timing.withDefaults()

	e := &Engine{
		sched:   opts.Scheduler,
		surface: opts.Surface,
		source:  opts.Source,
		settle:  routes.Settle{Dispatch: timing.DispatchDelay, Buffer: timing.SettleBuffer},
		timing:  timing,
		cb:      opts.Callbacks,
		log:     log,
		mapID:   opts.MapID,
	}
	e.cam = camera.NewCoordinator(e.sched, e.surface, camera.Config{
		FlyDuration:   timing.FlyDuration,
		FrameInterval: timing.FrameInterval,
		Logger:        log.Named("camera"),
	})
	e.loader = routes.NewLoader(e.sched, e.source, routes.Config{
		FetchTimeout: timing.FetchTimeout,
		Logger:       log.Named("routes"),
	})
	e.segments = cloneSegments(opts.Segments)

	if opts.Controlled {
		e.mode = Controlled
		e.ctrl = &mirror{e: e}
	} else {
		e.mode = Autonomous
		e.ctrl = &driver{e: e}
		e.state.CurrentIndex = e.clampIndex(opts.StartIndex)
	}
	e.state.Mode = e.mode

	log.Debug("engine created",
		zap.String("map", e.mapID),
		zap.Stringer("mode", e.mode),
		zap.Int("segments", len(e.segments)),
	)
	return e, nil
}

// Play starts or resumes playback. Playing while already playing does nothing.
func (e *Engine) Play() {
	if e.closed {
		return
	}
	e.ctrl.play()
}

// PlayFrom restarts playback at index, clamped to the segment list.
func (e *Engine) PlayFrom(index int) {
	if e.closed {
		return
	}
	e.ctrl.playFrom(index)
}

// Pause pauses playback. Pausing while paused does nothing.
func (e *Engine) Pause() {
	if e.closed {
		return
	}
	e.ctrl.pause()
}

// Stop halts playback, rewinds to the first segment and clears the map.
func (e *Engine) Stop() {
	if e.closed {
		return
	}
	e.ctrl.stop()
}

// ClearMap halts playback and removes every artifact without rewinding.
func (e *Engine) ClearMap() {
	if e.closed {
		return
	}
	e.ctrl.clear()
	e.log.Info("map cleared", zap.Int("index", e.state.CurrentIndex))
}

// Continue releases a transition gate. It reports whether a gate was waiting.
func (e *Engine) Continue() bool {
	if e.closed {
		return false
	}
	return e.ctrl.continueGate()
}

// Sync applies the external driver's play head. It is ignored in autonomous mode.
func (e *Engine) Sync(index int, playing bool) {
	if e.closed {
		return
	}
	m, ok := e.ctrl.(*mirror)
	if !ok {
		e.log.Warn("sync ignored in autonomous mode", zap.Int("index", index), zap.Bool("playing", playing))
		return
	}
	m.reconcile(index, playing)
}

// SetSegments replaces the segment list after an authoring change. Cached
// routes of every old and new segment are dropped. When the current segment
// keeps its index and id its routes are reloaded without moving the camera.
func (e *Engine) SetSegments(segs []story.Segment) {
	if e.closed {
		return
	}
	prev, hadPrev := e.currentSegment()
	e.invalidate(e.segments)
	e.segments = cloneSegments(segs)
	e.invalidate(e.segments)

	if len(e.segments) == 0 {
		e.ctrl.stop()
		e.log.Info("segment list emptied")
		return
	}
	if !e.visiting {
		e.state.CurrentIndex = e.clampIndex(e.state.CurrentIndex)
		return
	}

	idx := e.state.CurrentIndex
	switch {
	case idx >= len(e.segments):
		e.log.Warn("current segment removed, clamping",
			zap.Int("index", idx),
			zap.Int("segments", len(e.segments)),
		)
		e.ctrl.resync(len(e.segments) - 1)
	case !hadPrev || e.segments[idx].ID != prev.ID:
		e.ctrl.resync(idx)
	default:
		e.refresh()
	}
}

// ClickLocation forwards a click on a location of the active segment.
func (e *Engine) ClickLocation(id string) bool {
	if e.closed {
		return false
	}
	seg, ok := e.ActiveSegment()
	if !ok {
		return false
	}
	for _, loc := range seg.Locations {
		if loc.ID == id {
			if e.cb.OnLocationClick != nil {
				e.cb.OnLocationClick(loc)
			}
			return true
		}
	}
	return false
}

// SurfaceReady signals that the map can now accept camera changes.
func (e *Engine) SurfaceReady() {
	e.cam.SurfaceReady()
}

// Close stops all activity, including a pending dwell, and reports playback
// as stopped. The engine ignores commands afterwards.
func (e *Engine) Close() {
	if e.closed {
		return
	}
	e.ctrl.clear()
	e.stopTicker()
	e.closed = true
	e.log.Debug("engine closed")
}

// State returns a snapshot of the play head.
func (e *Engine) State() State {
	s := e.state
	s.SegmentStartTime = e.clock.StartTime()
	return s
}

// Mode returns the engine mode.
func (e *Engine) Mode() Mode { return e.mode }

// Status returns the coarse play state.
func (e *Engine) Status() Status { return e.state.Status }

// IsPlaying reports whether the play head is running.
func (e *Engine) IsPlaying() bool { return e.state.IsPlaying }

// Gate returns the current transition gate.
func (e *Engine) Gate() Gate { return e.gate }

// Segments returns a copy of the segment list.
func (e *Engine) Segments() []story.Segment { return cloneSegments(e.segments) }

// ActiveSegment returns the segment being shown.
func (e *Engine) ActiveSegment() (story.Segment, bool) {
	if !e.visiting {
		return story.Segment{}, false
	}
	return e.currentSegment()
}

// ActiveRouteAnimations returns the published route list of the active
// segment. It is empty from a segment change until that segment's own
// routes are published.
func (e *Engine) ActiveRouteAnimations() []story.RouteAnimation {
	out := make([]story.RouteAnimation, len(e.active))
	copy(out, e.active)
	return out
}

// ElapsedSeconds returns the story position in autonomous mode, zero otherwise.
func (e *Engine) ElapsedSeconds() float64 {
	if e.mode != Autonomous {
		return 0
	}
	return Elapsed(e.segments, e.state.CurrentIndex, e.clock.Elapsed(e.sched.Now())).Seconds()
}

// enter makes index the current segment and starts its cycle. The previous
// segment's routes are cleared before anything else happens.
func (e *Engine) enter(index int) {
	e.cancelCycle()
	e.state.Generation++
	e.state.CurrentIndex = index
	e.visiting = true
	e.state.RoutesLoaded = false
	e.clock.Reset()
	e.clearRoutes()

	seg := e.segments[index]
	e.log.Info("segment change",
		zap.Int("index", index),
		zap.String("segment", seg.ID),
		zap.Uint64("generation", e.state.Generation),
	)
	if e.cb.OnSegmentChange != nil {
		e.cb.OnSegmentChange(seg, index)
	}
	e.beginCycle(seg, camera.Options{Animation: camera.Fly, Duration: e.timing.FlyDuration})
}

// refresh reloads the current segment's routes without re-flying the camera.
func (e *Engine) refresh() {
	seg := e.segments[e.state.CurrentIndex]
	e.cancelCycle()
	e.state.Generation++
	e.log.Debug("segment data refresh", zap.String("segment", seg.ID), zap.Uint64("generation", e.state.Generation))
	e.beginCycle(seg, camera.Options{Animation: camera.Fly, Duration: e.timing.FlyDuration, SkipIfUnchanged: true})
}

// invalidate drops cached routes of segs when the source caches them.
func (e *Engine) invalidate(segs []story.Segment) {
	inv, ok := e.source.(invalidator)
	if !ok {
		return
	}
	for _, seg := range segs {
		inv.Invalidate(e.mapID, seg.ID)
	}
}

func (e *Engine) beginCycle(seg story.Segment, opts camera.Options) {
	gen := e.state.Generation
	e.cycle = cycle{gen: gen, segmentID: seg.ID}

	h := e.cam.Transition(camera.Target{Key: seg.ID, View: camera.Resolve(seg.Camera, e.timing.DefaultView)}, opts)
	settleUntil := e.sched.Now().Add(e.settle.For(h.Duration()))

	h.OnComplete(func() {
		if gen != e.state.Generation {
			return
		}
		e.cycle.cameraSettled = true
		e.tryPublish()
	})

	req := routes.Request{MapID: e.mapID, SegmentID: seg.ID, SettleUntil: settleUntil}
	e.dispatch = e.sched.AfterFunc(e.settle.Dispatch, func() {
		e.dispatch = nil
		if gen != e.state.Generation {
			return
		}
		e.loader.Load(req, func(ras []story.RouteAnimation) {
			if gen != e.state.Generation {
				return
			}
			e.cycle.routes = ras
			e.cycle.routesReady = true
			e.tryPublish()
		})
	})
}

func (e *Engine) tryPublish() {
	c := &e.cycle
	if c.done || !c.cameraSettled || !c.routesReady {
		return
	}
	c.done = true

	e.active = c.routes
	if e.active == nil {
		e.active = []story.RouteAnimation{}
	}
	e.state.RoutesLoaded = true
	e.surface.ShowRoutes(c.segmentID, e.ActiveRouteAnimations())
	e.log.Debug("routes published", zap.String("segment", c.segmentID), zap.Int("count", len(e.active)))
	if e.cb.OnRoutesChange != nil {
		e.cb.OnRoutesChange(c.segmentID, e.ActiveRouteAnimations())
	}
	e.ctrl.published()
}

func (e *Engine) cancelCycle() {
	if e.dispatch != nil {
		e.dispatch.Stop()
		e.dispatch = nil
	}
	e.loader.Cancel()
}

// halt cancels every pending activity and clears the map.
func (e *Engine) halt() {
	e.cancelCycle()
	e.cam.Cancel()
	e.state.Generation++
	e.visiting = false
	e.state.RoutesLoaded = false
	e.state.PendingPlay = false
	e.clock.Reset()
	e.closeGate()
	e.clearRoutes()
}

func (e *Engine) clearRoutes() {
	had := e.active != nil
	e.active = nil
	e.surface.ClearRoutes()
	if had && e.cb.OnRoutesChange != nil {
		e.cb.OnRoutesChange(e.cycle.segmentID, nil)
	}
}

func (e *Engine) setPlaying(playing bool) {
	if e.state.IsPlaying == playing {
		return
	}
	e.state.IsPlaying = playing
	if playing {
		e.startTicker()
	} else {
		e.stopTicker()
	}
	e.log.Info("playing changed", zap.Bool("playing", playing), zap.Int("index", e.state.CurrentIndex))
	if e.cb.OnPlayingChange != nil {
		e.cb.OnPlayingChange(playing)
	}
}

func (e *Engine) setStatus(s Status) {
	if e.state.Status != s {
		e.log.Debug("status", zap.Stringer("from", e.state.Status), zap.Stringer("to", s))
		e.state.Status = s
	}
}

func (e *Engine) openGate(seg story.Segment) {
	e.gate = openGate(seg)
	e.log.Info("waiting for user", zap.String("segment", seg.ID))
	if e.cb.OnGate != nil {
		e.cb.OnGate(e.gate)
	}
}

func (e *Engine) closeGate() {
	if !e.gate.Waiting {
		return
	}
	e.gate = Gate{}
	if e.cb.OnGate != nil {
		e.cb.OnGate(e.gate)
	}
}

func (e *Engine) startTicker() {
	if e.cb.OnProgress == nil || e.mode != Autonomous || e.ticker != nil {
		return
	}
	e.tickGen++
	gen := e.tickGen
	var tick func()
	tick = func() {
		if gen != e.tickGen {
			return
		}
		e.cb.OnProgress(e.ElapsedSeconds())
		e.ticker = e.sched.AfterFunc(e.timing.ProgressInterval, tick)
	}
	e.ticker = e.sched.AfterFunc(e.timing.ProgressInterval, tick)
}

func (e *Engine) stopTicker() {
	e.tickGen++
	if e.ticker != nil {
		e.ticker.Stop()
		e.ticker = nil
	}
}

func (e *Engine) currentSegment() (story.Segment, bool) {
	if e.state.CurrentIndex < 0 || e.state.CurrentIndex >= len(e.segments) {
		return story.Segment{}, false
	}
	return e.segments[e.state.CurrentIndex], true
}

func (e *Engine) clampIndex(index int) int {
	switch {
	case len(e.segments) == 0 || index < 0:
		return 0
	case index >= len(e.segments):
		return len(e.segments) - 1
	default:
		return index
	}
}

func cloneSegments(segs []story.Segment) []story.Segment {
	out := make([]story.Segment, len(segs))
	copy(out, segs)
	story.SortSegments(out)
	return out
}
