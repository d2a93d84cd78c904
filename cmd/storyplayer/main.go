// Package main is the entry point for the story map player.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/storyplay/internal/config"
	"github.com/Faultbox/storyplay/internal/logger"
	"github.com/Faultbox/storyplay/internal/playback"
	"github.com/Faultbox/storyplay/internal/routes"
	"github.com/Faultbox/storyplay/internal/sched"
	"github.com/Faultbox/storyplay/internal/storage"
	"github.com/Faultbox/storyplay/internal/storage/memory"
	"github.com/Faultbox/storyplay/internal/story"
	"github.com/Faultbox/storyplay/internal/surface"
)

func main() {
	// Parse CLI flags first
	config.ParseFlags()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if path := config.WriteConfigPath(); path != "" {
		if err := cfg.WriteFile(path); err != nil {
			fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("config written to %s\n", path)
		return
	}

	// Initialize logger
	if err := logger.InitWithFileConfig(cfg.Logging.Level, cfg.LogFile(), true); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== Story Player ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	if err := run(cfg); err != nil {
		logger.Error("player error", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Info("player closed normally")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, mapID, closeSrc, err := openSource(ctx, cfg, config.ImportRequested())
	if err != nil {
		return err
	}
	defer closeSrc()

	segs, err := src.Segments(ctx, mapID)
	if err != nil {
		return fmt.Errorf("loading segments of %q: %w", mapID, err)
	}
	logger.Info("story loaded", zap.String("map", mapID), zap.Int("segments", len(segs)))

	var routeSrc routes.Source = src
	if cfg.Loader.CacheSize > 0 {
		cached, err := routes.NewCachedSource(src, cfg.Loader.CacheSize)
		if err != nil {
			return err
		}
		warmCtx, cancel := context.WithTimeout(ctx, cfg.Loader.FetchTimeout)
		if err := cached.Warm(warmCtx, mapID, segmentIDs(segs)); err != nil {
			logger.Warn("route cache warm-up failed", zap.Error(err))
		}
		cancel()
		routeSrc = cached
	}

	loop := sched.NewLoop()
	surf := surface.NewHeadless(logger.Named("surface"))
	sess := &session{
		surface: surf,
		source:  src,
		mapID:   mapID,
		out:     os.Stdout,
		log:     logger.Named("console"),
	}

	engine, err := playback.New(playback.Options{
		MapID:      mapID,
		Segments:   segs,
		StartIndex: cfg.Playback.StartIndex,
		Controlled: cfg.Controlled(),
		Surface:    surf,
		Source:     routeSrc,
		Scheduler:  loop,
		Timing:     cfg.Timing(),
		Callbacks:  sess.callbacks(),
		Logger:     logger.Named("playback"),
	})
	if err != nil {
		return err
	}
	sess.engine = engine

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// The map style "loads" right after start.
	loop.Post(func() {
		surf.MarkReady()
		engine.SurfaceReady()
	})
	go readCommands(ctx, loop, sess, cancel)

	fmt.Fprintf(os.Stdout, "%s: %d segments, %s mode (type \"help\")\n", mapID, len(segs), engine.Mode())
	err = loop.Run(ctx)
	engine.Close()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// readCommands feeds stdin lines to the session on the loop. EOF quits.
func readCommands(ctx context.Context, loop *sched.Loop, sess *session, quit context.CancelFunc) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		loop.Post(func() {
			err := sess.exec(ctx, line)
			switch {
			case errors.Is(err, errQuit):
				quit()
			case err != nil:
				fmt.Fprintln(os.Stderr, err)
			}
		})
	}
	if err := scanner.Err(); err != nil {
		logger.Warn("reading commands", zap.Error(err))
	}
	// Let queued commands run before quitting.
	loop.Post(quit)
}

// openSource opens the configured story storage and resolves the map to play.
// With importStory the story file is written into the database first.
func openSource(ctx context.Context, cfg *config.Config, importStory bool) (storySource, string, func(), error) {
	mapID := cfg.Playback.MapID

	switch cfg.Storage.Driver {
	case "memory":
		st, err := story.ReadFile(cfg.Storage.StoryFile)
		if err != nil {
			return nil, "", nil, err
		}
		if mapID == "" {
			mapID = st.MapID
		}
		mem := memory.New()
		mem.PutStory(st)
		return mem, mapID, func() {}, nil

	default:
		db, err := storage.Open(cfg.Storage.Path, cfg.StorageOptions())
		if err != nil {
			return nil, "", nil, fmt.Errorf("opening %s: %w", cfg.Storage.Path, err)
		}
		closeDB := func() {
			if err := db.Close(); err != nil {
				logger.Warn("closing database", zap.Error(err))
			}
		}

		if importStory && cfg.Storage.StoryFile != "" {
			st, err := story.ReadFile(cfg.Storage.StoryFile)
			if err != nil {
				closeDB()
				return nil, "", nil, err
			}
			importCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			err = db.SaveStory(importCtx, st)
			cancel()
			if err != nil {
				closeDB()
				return nil, "", nil, fmt.Errorf("importing %s: %w", cfg.Storage.StoryFile, err)
			}
			logger.Info("story imported",
				zap.String("file", cfg.Storage.StoryFile),
				zap.String("map", st.MapID),
			)
			if mapID == "" {
				mapID = st.MapID
			}
		}
		if mapID == "" {
			closeDB()
			return nil, "", nil, errors.New("no map selected (use -map or playback.map_id)")
		}
		return db, mapID, closeDB, nil
	}
}

func segmentIDs(segs []story.Segment) []string {
	ids := make([]string, len(segs))
	for i, seg := range segs {
		ids[i] = seg.ID
	}
	return ids
}
