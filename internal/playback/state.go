package playback

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/storyplay/internal/camera"
	"github.com/Faultbox/storyplay/internal/routes"
	"github.com/Faultbox/storyplay/internal/sched"
	"github.com/Faultbox/storyplay/internal/story"
)

var (
	ErrNoSurface   = errors.New("playback: no map surface")
	ErrNoSource    = errors.New("playback: no route source")
	ErrNoScheduler = errors.New("playback: no scheduler")
)

// Mode selects who owns the play head.
type Mode int

const (
	// Autonomous runs on the engine's own timer.
	Autonomous Mode = iota
	// Controlled mirrors an external index and play state.
	Controlled
)

func (m Mode) String() string {
	switch m {
	case Autonomous:
		return "autonomous"
	case Controlled:
		return "controlled"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Status is the coarse play state shown to presenters.
type Status int

const (
	Idle Status = iota
	Playing
	Paused
	WaitingForUser
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case WaitingForUser:
		return "waiting"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// State is a snapshot of the engine's play head.
type State struct {
	Mode         Mode
	Status       Status
	CurrentIndex int
	IsPlaying    bool
	// SegmentStartTime is when the current segment's clock began. Zero until
	// the segment's routes are published while playing.
	SegmentStartTime time.Time
	// PendingPlay is a play request waiting for the segment's routes.
	PendingPlay bool
	// RoutesLoaded reports whether the current segment's routes were published.
	RoutesLoaded bool
	// Generation increases with every segment change and data refresh.
	Generation uint64
}

// Surface is the map the engine drives.
type Surface interface {
	camera.Surface
	// ShowRoutes replaces the rendered route artifacts.
	ShowRoutes(segmentID string, ras []story.RouteAnimation)
	// ClearRoutes removes every rendered route artifact.
	ClearRoutes()
}

// Callbacks notify collaborators. Every callback runs on the scheduler.
type Callbacks struct {
	OnSegmentChange func(seg story.Segment, index int)
	OnPlayingChange func(playing bool)
	OnLocationClick func(loc story.Location)
	OnRoutesChange  func(segmentID string, ras []story.RouteAnimation)
	OnProgress      func(elapsedSeconds float64)
	OnGate          func(g Gate)
}

// Timing holds the engine's animation and loading windows. Zero fields take
// the defaults; a negative dispatch delay or settle buffer disables it.
type Timing struct {
	FlyDuration      time.Duration
	FrameInterval    time.Duration
	DispatchDelay    time.Duration
	SettleBuffer     time.Duration
	FetchTimeout     time.Duration
	ProgressInterval time.Duration
	DefaultView      camera.View
}

// DefaultTiming returns the stock timings: a 1500ms fly settles 2s after a segment change.
func DefaultTiming() Timing {
	return Timing{
		FlyDuration:      camera.DefaultFlyDuration,
		FrameInterval:    camera.DefaultFrameInterval,
		DispatchDelay:    routes.DefaultDispatchDelay,
		SettleBuffer:     routes.DefaultSettleBuffer,
		FetchTimeout:     routes.DefaultFetchTimeout,
		ProgressInterval: 250 * time.Millisecond,
		DefaultView:      camera.DefaultView,
	}
}

func (t Timing) withDefaults() Timing {
	def := DefaultTiming()
	if t.FlyDuration <= 0 {
		t.FlyDuration = def.FlyDuration
	}
	if t.FrameInterval <= 0 {
		t.FrameInterval = def.FrameInterval
	}
	switch {
	case t.DispatchDelay == 0:
		t.DispatchDelay = def.DispatchDelay
	case t.DispatchDelay < 0:
		t.DispatchDelay = 0
	}
	switch {
	case t.SettleBuffer == 0:
		t.SettleBuffer = def.SettleBuffer
	case t.SettleBuffer < 0:
		t.SettleBuffer = 0
	}
	if t.FetchTimeout <= 0 {
		t.FetchTimeout = def.FetchTimeout
	}
	if t.ProgressInterval <= 0 {
		t.ProgressInterval = def.ProgressInterval
	}
	if t.DefaultView == (camera.View{}) {
		t.DefaultView = def.DefaultView
	}
	return t
}

// Options configures an Engine.
type Options struct {
	MapID    string
	Segments []story.Segment
	// StartIndex is where autonomous playback begins.
	StartIndex int
	// Controlled selects the remote mirror instead of the local driver.
	Controlled bool

	Surface   Surface
	Source    routes.Source
	Scheduler sched.Scheduler
	Timing    Timing
	Callbacks Callbacks
	Logger    *zap.Logger
}
