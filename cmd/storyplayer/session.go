package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/storyplay/internal/playback"
	"github.com/Faultbox/storyplay/internal/routes"
	"github.com/Faultbox/storyplay/internal/story"
	"github.com/Faultbox/storyplay/internal/surface"
)

var errQuit = errors.New("quit")

// storySource serves segments and route animations for a map.
type storySource interface {
	routes.Source
	Segments(ctx context.Context, mapID string) ([]story.Segment, error)
	LoadStory(ctx context.Context, mapID string) (*story.Story, error)
	DeleteRouteAnimation(ctx context.Context, id string) error
}

// session binds console commands to an engine. Every method runs on the
// engine's scheduler.
type session struct {
	engine  *playback.Engine
	surface *surface.Headless
	source  storySource
	mapID   string
	out     io.Writer
	log     *zap.Logger
}

func (s *session) callbacks() playback.Callbacks {
	return playback.Callbacks{
		OnSegmentChange: func(seg story.Segment, index int) {
			fmt.Fprintf(s.out, "segment %d: %s\n", index, segmentLabel(seg))
		},
		OnPlayingChange: func(playing bool) {
			fmt.Fprintf(s.out, "playing: %t\n", playing)
		},
		OnLocationClick: func(loc story.Location) {
			fmt.Fprintf(s.out, "location %s: %s\n", loc.Name, loc.Description)
		},
		OnRoutesChange: func(segmentID string, ras []story.RouteAnimation) {
			if ras != nil {
				fmt.Fprintf(s.out, "routes for %s: %d\n", segmentID, len(ras))
			}
		},
		OnGate: func(g playback.Gate) {
			if g.Waiting {
				fmt.Fprintf(s.out, "%s [%s] (type \"continue\")\n", g.OverlayContent, g.TriggerButtonText)
			}
		},
	}
}

func segmentLabel(seg story.Segment) string {
	if seg.Name != "" {
		return seg.Name
	}
	return seg.ID
}

const help = `commands:
  play [index]       start or resume, optionally from a segment
  pause              pause playback
  stop               stop and rewind
  clear              clear the map, keeping the position
  continue           release a "continue" gate
  sync <index> <0|1> apply a presenter's index and play state
  click <location>   click a location of the active segment
  reload             reload segments from storage
  unroute <id>       delete a route animation and reload
  export <file>      write the stored story to a YAML file
  ready              mark the map surface ready
  status             show the play head
  quit               exit`

// exec runs one command line.
func (s *session) exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "play":
		if len(args) == 0 {
			s.engine.Play()
			return nil
		}
		idx, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("play: bad index %q", args[0])
		}
		s.engine.PlayFrom(idx)
	case "pause":
		s.engine.Pause()
	case "stop":
		s.engine.Stop()
	case "clear":
		s.engine.ClearMap()
	case "continue":
		if !s.engine.Continue() {
			fmt.Fprintln(s.out, "nothing to continue")
		}
	case "sync":
		if len(args) != 2 {
			return errors.New("sync: usage: sync <index> <0|1>")
		}
		idx, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("sync: bad index %q", args[0])
		}
		playing, err := strconv.ParseBool(args[1])
		if err != nil {
			return fmt.Errorf("sync: bad play state %q", args[1])
		}
		s.engine.Sync(idx, playing)
	case "click":
		if len(args) != 1 {
			return errors.New("click: usage: click <location>")
		}
		if !s.engine.ClickLocation(args[0]) {
			fmt.Fprintf(s.out, "no location %q on the active segment\n", args[0])
		}
	case "reload":
		return s.reload(ctx)
	case "unroute":
		if len(args) != 1 {
			return errors.New("unroute: usage: unroute <id>")
		}
		return s.unroute(ctx, args[0])
	case "export":
		if len(args) != 1 {
			return errors.New("export: usage: export <file>")
		}
		return s.export(ctx, args[0])
	case "ready":
		s.surface.MarkReady()
		s.engine.SurfaceReady()
	case "status":
		s.status()
	case "help", "?":
		fmt.Fprintln(s.out, help)
	case "quit", "exit":
		return errQuit
	default:
		return fmt.Errorf("unknown command %q (try \"help\")", cmd)
	}
	return nil
}

func (s *session) reload(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	segs, err := s.source.Segments(ctx, s.mapID)
	if err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	s.engine.SetSegments(segs)
	s.log.Info("segments reloaded", zap.Int("count", len(segs)))
	return nil
}

func (s *session) unroute(ctx context.Context, id string) error {
	dctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err := s.source.DeleteRouteAnimation(dctx, id)
	cancel()
	if err != nil {
		return fmt.Errorf("unroute: %w", err)
	}
	fmt.Fprintf(s.out, "route animation %s deleted\n", id)
	return s.reload(ctx)
}

func (s *session) export(ctx context.Context, path string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	st, err := s.source.LoadStory(ctx, s.mapID)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := story.WriteFile(st, path); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	fmt.Fprintf(s.out, "exported %d segments and %d route animations to %s\n",
		len(st.Segments), len(st.RouteAnimations), path)
	return nil
}

func (s *session) status() {
	st := s.engine.State()
	fmt.Fprintf(s.out, "mode=%s status=%s index=%d/%d playing=%t pending=%t routes_loaded=%t\n",
		st.Mode, st.Status, st.CurrentIndex, len(s.engine.Segments()), st.IsPlaying, st.PendingPlay, st.RoutesLoaded)
	if seg, ok := s.engine.ActiveSegment(); ok {
		fmt.Fprintf(s.out, "segment=%s routes=%d", segmentLabel(seg), len(s.engine.ActiveRouteAnimations()))
		if st.Mode == playback.Autonomous {
			fmt.Fprintf(s.out, " elapsed=%.1fs", s.engine.ElapsedSeconds())
		}
		fmt.Fprintln(s.out)
	}
	if g := s.engine.Gate(); g.Waiting {
		fmt.Fprintf(s.out, "waiting: %s [%s]\n", g.OverlayContent, g.TriggerButtonText)
	}
	snap := s.surface.Snapshot()
	fmt.Fprintf(s.out, "camera=(%.4f, %.4f) zoom=%.2f ready=%t\n",
		snap.View.Center.Lng, snap.View.Center.Lat, snap.View.Zoom, snap.Ready)
}
