package camera

import (
	"fmt"
	"time"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
	"go.uber.org/zap"

	"github.com/Faultbox/storyplay/internal/logger"
	"github.com/Faultbox/storyplay/internal/sched"
)

// Default timings.
const (
	DefaultFlyDuration   = 1500 * time.Millisecond
	DefaultFrameInterval = 16 * time.Millisecond
)

// AnimationType selects how a transition moves the camera.
type AnimationType int

const (
	// Jump applies the target view immediately.
	Jump AnimationType = iota
	// Fly animates towards the target view with easing.
	Fly
)

func (a AnimationType) String() string {
	switch a {
	case Jump:
		return "jump"
	case Fly:
		return "fly"
	default:
		return fmt.Sprintf("AnimationType(%d)", int(a))
	}
}

// Surface is the camera capability of a map.
type Surface interface {
	SetView(v View)
	Ready() bool
}

// Target is a camera destination. Key identifies the owner of the framing
// (a segment id) and drives SkipIfUnchanged.
type Target struct {
	Key  string
	View View
}

// Options controls a single transition.
type Options struct {
	Animation AnimationType
	// Duration of a Fly. Zero selects the coordinator default.
	Duration time.Duration
	// SkipIfUnchanged resolves without moving when Key matches the last transition.
	SkipIfUnchanged bool
}

// Config holds coordinator settings.
type Config struct {
	FlyDuration   time.Duration
	FrameInterval time.Duration
	Easing        ease.TweenFunc
	Logger        *zap.Logger
}

type request struct {
	target Target
	handle *Handle
}

// Coordinator serializes camera transitions against one Surface. At most one
// transition is in flight; a new request supersedes the previous one, whose
// handle is cancelled and never completes.
type Coordinator struct {
	sched   sched.Scheduler
	surface Surface
	cfg     Config
	log     *zap.Logger

	current *Handle
	queued  *request
	frame   sched.Timer
	lastKey string
	hasKey  bool
	view    View
	hasView bool
}

// NewCoordinator creates a coordinator for surface.
func NewCoordinator(s sched.Scheduler, surface Surface, cfg Config) *Coordinator {
	if cfg.FlyDuration <= 0 {
		cfg.FlyDuration = DefaultFlyDuration
	}
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = DefaultFrameInterval
	}
	if cfg.Easing == nil {
		cfg.Easing = ease.InOutCubic
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Named("camera")
	}
	return &Coordinator{sched: s, surface: surface, cfg: cfg, log: log}
}

// Transition moves the camera to target and returns a handle that completes
// when the camera has arrived.
func (c *Coordinator) Transition(target Target, opts Options) *Handle {
	if opts.SkipIfUnchanged && c.hasKey && target.Key == c.lastKey {
		if c.current != nil {
			return c.current
		}
		if c.queued != nil {
			return c.queued.handle
		}
		h := c.newHandle(target.Key, 0)
		c.sched.Post(h.complete)
		c.log.Debug("camera unchanged", zap.String("key", target.Key))
		return h
	}

	c.supersede()

	d := time.Duration(0)
	if opts.Animation == Fly {
		d = opts.Duration
		if d <= 0 {
			d = c.cfg.FlyDuration
		}
		if !c.hasView {
			d = 0
		}
	}

	h := c.newHandle(target.Key, d)
	c.lastKey, c.hasKey = target.Key, true

	if !c.surface.Ready() {
		c.queued = &request{target: target, handle: h}
		c.log.Debug("surface not ready, transition queued", zap.String("key", target.Key))
		return h
	}
	c.start(target, h)
	return h
}

// SurfaceReady replays the queued transition, if any.
func (c *Coordinator) SurfaceReady() {
	req := c.queued
	if req == nil {
		return
	}
	c.queued = nil
	c.log.Debug("replaying queued transition", zap.String("key", req.target.Key))
	c.start(req.target, req.handle)
}

// Cancel stops the in-flight and queued transitions. The next transition
// always moves the camera, even for the same key.
func (c *Coordinator) Cancel() {
	c.supersede()
	c.hasKey = false
	c.lastKey = ""
}

// View returns the last applied view.
func (c *Coordinator) View() (View, bool) {
	return c.view, c.hasView
}

// Busy reports whether a transition is in flight or queued.
func (c *Coordinator) Busy() bool {
	return c.current != nil || c.queued != nil
}

func (c *Coordinator) newHandle(key string, d time.Duration) *Handle {
	return &Handle{sched: c.sched, key: key, duration: d}
}

func (c *Coordinator) supersede() {
	if c.frame != nil {
		c.frame.Stop()
		c.frame = nil
	}
	if c.current != nil {
		c.log.Debug("transition superseded", zap.String("key", c.current.key))
		c.current.cancel()
		c.current = nil
	}
	if c.queued != nil {
		c.queued.handle.cancel()
		c.queued = nil
	}
}

func (c *Coordinator) start(target Target, h *Handle) {
	c.current = h
	to := target.View
	if c.hasView {
		h.distance = c.view.Center.Distance(to.Center)
	}
	c.log.Debug("camera transition",
		zap.String("key", h.key),
		zap.Duration("duration", h.duration),
		zap.Float64("distanceKm", h.distance/1000),
	)

	if h.duration <= 0 || !c.hasView {
		c.apply(to)
		c.sched.Post(func() { c.finish(h) })
		return
	}

	from := c.view
	total := h.duration
	tw := gween.New(0, 1, float32(total.Seconds()), c.cfg.Easing)
	started := c.sched.Now()

	var step func()
	step = func() {
		if c.current != h {
			return
		}
		elapsed := c.sched.Now().Sub(started)
		p, finished := tw.Set(float32(elapsed.Seconds()))
		if finished || elapsed >= total {
			c.frame = nil
			c.apply(to)
			c.finish(h)
			return
		}
		c.apply(lerpView(from, to, float64(p)))
		c.frame = c.sched.AfterFunc(c.nextFrame(total-elapsed), step)
	}
	c.frame = c.sched.AfterFunc(c.nextFrame(total), step)
}

func (c *Coordinator) nextFrame(remaining time.Duration) time.Duration {
	if remaining < c.cfg.FrameInterval {
		return remaining
	}
	return c.cfg.FrameInterval
}

func (c *Coordinator) apply(v View) {
	c.view, c.hasView = v, true
	c.surface.SetView(v)
}

func (c *Coordinator) finish(h *Handle) {
	if c.current == h {
		c.current = nil
	}
	h.complete()
}

// Handle tracks one transition.
type Handle struct {
	sched     sched.Scheduler
	key       string
	duration  time.Duration
	distance  float64
	done      bool
	cancelled bool
	callbacks []func()
}

// Key returns the target key of the transition.
func (h *Handle) Key() string { return h.key }

// Duration returns the planned transition time, zero for a jump.
func (h *Handle) Duration() time.Duration { return h.duration }

// Distance returns how far the camera center travels, in meters. It is zero
// for the first transition and for a transition still queued.
func (h *Handle) Distance() float64 { return h.distance }

// Done reports whether the camera has arrived.
func (h *Handle) Done() bool { return h.done }

// Cancelled reports whether the transition was superseded.
func (h *Handle) Cancelled() bool { return h.cancelled }

// OnComplete registers fn to run on the scheduler once the transition is done.
// It never runs for a cancelled transition.
func (h *Handle) OnComplete(fn func()) {
	switch {
	case h.cancelled:
	case h.done:
		h.sched.Post(fn)
	default:
		h.callbacks = append(h.callbacks, fn)
	}
}

func (h *Handle) complete() {
	if h.done || h.cancelled {
		return
	}
	h.done = true
	cbs := h.callbacks
	h.callbacks = nil
	for _, fn := range cbs {
		fn()
	}
}

func (h *Handle) cancel() {
	if h.done {
		return
	}
	h.cancelled = true
	h.callbacks = nil
}
