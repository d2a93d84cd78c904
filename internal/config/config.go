// Package config handles player configuration loading and management.
package config

import (
	"fmt"
	"time"

	"github.com/Faultbox/storyplay/internal/camera"
	"github.com/Faultbox/storyplay/internal/logger"
	"github.com/Faultbox/storyplay/internal/playback"
	"github.com/Faultbox/storyplay/internal/routes"
	"github.com/Faultbox/storyplay/internal/storage"
	"github.com/Faultbox/storyplay/pkg/geo"
)

// Config holds all player settings.
type Config struct {
	Playback PlaybackConfig `yaml:"playback"`
	Camera   CameraConfig   `yaml:"camera"`
	Loader   LoaderConfig   `yaml:"loader"`
	Storage  StorageConfig  `yaml:"storage"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// PlaybackConfig selects the story and who drives it.
type PlaybackConfig struct {
	MapID            string        `yaml:"map_id"`
	Mode             string        `yaml:"mode"` // "autonomous" or "controlled"
	StartIndex       int           `yaml:"start_index"`
	ProgressInterval time.Duration `yaml:"progress_interval"`
}

// CameraConfig holds camera transition settings.
type CameraConfig struct {
	FlyDuration   time.Duration `yaml:"fly_duration"`
	FrameInterval time.Duration `yaml:"frame_interval"`
	DefaultCenter geo.LngLat    `yaml:"default_center"`
	DefaultZoom   float64       `yaml:"default_zoom"`
}

// LoaderConfig holds route loading settings.
type LoaderConfig struct {
	DispatchDelay time.Duration `yaml:"dispatch_delay"`
	SettleBuffer  time.Duration `yaml:"settle_buffer"`
	FetchTimeout  time.Duration `yaml:"fetch_timeout"`
	CacheSize     int           `yaml:"cache_size"` // 0 disables the route cache
}

// StorageConfig holds story storage settings.
type StorageConfig struct {
	Driver      string        `yaml:"driver"`     // "sqlite" or "memory"
	Path        string        `yaml:"path"`       // SQLite database file
	StoryFile   string        `yaml:"story_file"` // YAML story to load
	BusyTimeout time.Duration `yaml:"busy_timeout"`
	CacheSize   int           `yaml:"cache_size"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
	Format  string `yaml:"format"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Playback: PlaybackConfig{
			Mode:             "autonomous",
			ProgressInterval: 250 * time.Millisecond,
		},
		Camera: CameraConfig{
			FlyDuration:   camera.DefaultFlyDuration,
			FrameInterval: camera.DefaultFrameInterval,
			DefaultCenter: camera.DefaultView.Center,
			DefaultZoom:   camera.DefaultView.Zoom,
		},
		Loader: LoaderConfig{
			DispatchDelay: routes.DefaultDispatchDelay,
			SettleBuffer:  routes.DefaultSettleBuffer,
			FetchTimeout:  routes.DefaultFetchTimeout,
			CacheSize:     128,
		},
		Storage: StorageConfig{
			Driver:      "sqlite",
			Path:        "storyplay.db",
			BusyTimeout: 5 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate reports settings the player cannot run with.
func (c *Config) Validate() error {
	switch c.Playback.Mode {
	case "autonomous", "controlled":
	default:
		return fmt.Errorf("playback.mode: unknown mode %q", c.Playback.Mode)
	}
	switch c.Storage.Driver {
	case "sqlite":
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path: required for the sqlite driver")
		}
	case "memory":
		if c.Storage.StoryFile == "" {
			return fmt.Errorf("storage.story_file: required for the memory driver")
		}
	default:
		return fmt.Errorf("storage.driver: unknown driver %q", c.Storage.Driver)
	}
	if c.Loader.CacheSize < 0 {
		return fmt.Errorf("loader.cache_size: must not be negative")
	}
	return nil
}

// Controlled reports whether playback mirrors an external driver.
func (c *Config) Controlled() bool {
	return c.Playback.Mode == "controlled"
}

// Timing converts the camera and loader sections into engine timings.
func (c *Config) Timing() playback.Timing {
	return playback.Timing{
		FlyDuration:      c.Camera.FlyDuration,
		FrameInterval:    c.Camera.FrameInterval,
		DispatchDelay:    c.Loader.DispatchDelay,
		SettleBuffer:     c.Loader.SettleBuffer,
		FetchTimeout:     c.Loader.FetchTimeout,
		ProgressInterval: c.Playback.ProgressInterval,
		DefaultView: camera.View{
			Center: c.Camera.DefaultCenter,
			Zoom:   c.Camera.DefaultZoom,
		},
	}
}

// StorageOptions returns the SQLite connection options.
func (c *Config) StorageOptions() storage.Options {
	return storage.Options{
		BusyTimeout: c.Storage.BusyTimeout,
		CacheSize:   c.Storage.CacheSize,
	}
}

// LogFile returns the rotating file settings, or a zero value when file
// logging is off.
func (c *Config) LogFile() logger.FileConfig {
	if c.Logging.LogFile == "" {
		return logger.FileConfig{}
	}
	fc := logger.DefaultFileConfig(c.Logging.LogFile)
	if c.Logging.Format != "" {
		fc.Format = c.Logging.Format
	}
	return fc
}
