package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Faultbox/storyplay/internal/config"
)

func TestOpenSourceMemory(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Driver = "memory"
	cfg.Storage.StoryFile = filepath.Join("testdata", "demo.yaml")

	src, mapID, closeSrc, err := openSource(context.Background(), cfg, false)
	if err != nil {
		t.Fatalf("openSource() error = %v", err)
	}
	defer closeSrc()

	if mapID != "danube" {
		t.Errorf("mapID = %q, want danube (from the story file)", mapID)
	}
	segs, err := src.Segments(context.Background(), mapID)
	if err != nil {
		t.Fatalf("Segments() error = %v", err)
	}
	if len(segs) != 3 || segs[0].ID != "source" {
		t.Fatalf("segments = %+v", segs)
	}
	if segs[2].AutoAdvance {
		t.Error("delta should not auto-advance")
	}
	ras, err := src.GetRouteAnimationsBySegment(context.Background(), mapID, "vienna")
	if err != nil || len(ras) != 1 || ras[0].StartTime() != 500 {
		t.Errorf("vienna routes = %+v, %v", ras, err)
	}
}

func TestOpenSourceSQLiteImport(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Path = filepath.Join(t.TempDir(), "stories.db")
	cfg.Storage.StoryFile = filepath.Join("testdata", "demo.yaml")

	src, mapID, closeSrc, err := openSource(context.Background(), cfg, true)
	if err != nil {
		t.Fatalf("openSource(import) error = %v", err)
	}
	closeSrc()
	if mapID != "danube" {
		t.Fatalf("mapID = %q, want danube", mapID)
	}

	// Reopen without importing: the map must be selected explicitly.
	if _, _, _, err := openSource(context.Background(), cfg, false); err == nil {
		t.Fatal("expected error without a map id")
	}

	cfg.Playback.MapID = "danube"
	src, mapID, closeSrc, err = openSource(context.Background(), cfg, false)
	if err != nil {
		t.Fatalf("openSource() error = %v", err)
	}
	defer closeSrc()

	segs, err := src.Segments(context.Background(), mapID)
	if err != nil {
		t.Fatalf("Segments() error = %v", err)
	}
	if len(segs) != 3 || segs[1].Name != "Vienna" || !segs[1].RequireUserAction {
		t.Fatalf("segments = %+v", segs)
	}
	if len(segs[0].Locations) != 1 || segs[0].Locations[0].ID != "spring" {
		t.Errorf("locations = %+v", segs[0].Locations)
	}
	ras, err := src.GetRouteAnimationsBySegment(context.Background(), mapID, "source")
	if err != nil || len(ras) != 1 || len(ras[0].Path) != 3 {
		t.Errorf("source routes = %+v, %v", ras, err)
	}
}

func TestOpenSourceMissingStory(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Driver = "memory"
	cfg.Storage.StoryFile = filepath.Join(t.TempDir(), "missing.yaml")

	if _, _, _, err := openSource(context.Background(), cfg, false); err == nil {
		t.Error("expected error for a missing story file")
	}
}
