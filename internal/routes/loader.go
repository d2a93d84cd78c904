// Package routes loads the route animations of a segment for playback.
package routes

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/storyplay/internal/logger"
	"github.com/Faultbox/storyplay/internal/sched"
	"github.com/Faultbox/storyplay/internal/story"
)

// Default timings.
const (
	DefaultDispatchDelay = 100 * time.Millisecond
	DefaultSettleBuffer  = 400 * time.Millisecond
	DefaultFetchTimeout  = 10 * time.Second
)

// Source returns the route animations of a segment in storage order.
type Source interface {
	GetRouteAnimationsBySegment(ctx context.Context, mapID, segmentID string) ([]story.RouteAnimation, error)
}

// Settle sizes the window between a segment change and route publication.
type Settle struct {
	Dispatch time.Duration
	Buffer   time.Duration
}

// DefaultSettle returns the 100ms dispatch + 400ms buffer window.
func DefaultSettle() Settle {
	return Settle{Dispatch: DefaultDispatchDelay, Buffer: DefaultSettleBuffer}
}

// For returns the settle window for a camera transition of duration d.
func (s Settle) For(d time.Duration) time.Duration {
	return s.Dispatch + d + s.Buffer
}

// Request identifies a load and the earliest time its result may be published.
type Request struct {
	MapID       string
	SegmentID   string
	SettleUntil time.Time
}

// Config holds loader settings.
type Config struct {
	FetchTimeout time.Duration
	Logger       *zap.Logger
}

// Loader fetches route animations off the scheduler and publishes them back on
// it, sorted and held until the request settles. Starting a load cancels the
// previous one; a cancelled load never publishes, even if its fetch returns.
type Loader struct {
	sched sched.Scheduler
	src   Source
	cfg   Config
	log   *zap.Logger

	gen     uint64
	hold    sched.Timer
	loading bool
}

// NewLoader creates a loader reading from src.
func NewLoader(s sched.Scheduler, src Source, cfg Config) *Loader {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Named("routes")
	}
	return &Loader{sched: s, src: src, cfg: cfg, log: log}
}

// Load starts fetching req. publish runs on the scheduler with the sorted list,
// which is empty when the fetch failed.
func (l *Loader) Load(req Request, publish func([]story.RouteAnimation)) {
	l.Cancel()
	gen := l.gen
	l.loading = true

	src, timeout := l.src, l.cfg.FetchTimeout
	l.sched.Go(func() func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		ras, err := src.GetRouteAnimationsBySegment(ctx, req.MapID, req.SegmentID)

		return func() {
			if gen != l.gen {
				l.log.Debug("discarding superseded route load", zap.String("segment", req.SegmentID))
				return
			}
			if err != nil {
				l.log.Warn("route animation fetch failed",
					zap.String("map", req.MapID),
					zap.String("segment", req.SegmentID),
					zap.Error(err),
				)
				ras = nil
			}

			sorted := make([]story.RouteAnimation, len(ras))
			copy(sorted, ras)
			story.SortRouteAnimations(sorted)

			wait := req.SettleUntil.Sub(l.sched.Now())
			if wait <= 0 {
				l.deliver(gen, req.SegmentID, sorted, publish)
				return
			}
			l.hold = l.sched.AfterFunc(wait, func() {
				l.deliver(gen, req.SegmentID, sorted, publish)
			})
		}
	})
}

// Cancel suppresses the result of any load in progress.
func (l *Loader) Cancel() {
	l.gen++
	l.loading = false
	if l.hold != nil {
		l.hold.Stop()
		l.hold = nil
	}
}

// Loading reports whether a load has started and not yet published.
func (l *Loader) Loading() bool {
	return l.loading
}

func (l *Loader) deliver(gen uint64, segmentID string, ras []story.RouteAnimation, publish func([]story.RouteAnimation)) {
	if gen != l.gen {
		return
	}
	l.hold = nil
	l.loading = false
	l.log.Debug("route animations settled", zap.String("segment", segmentID), zap.Int("count", len(ras)))
	publish(ras)
}
