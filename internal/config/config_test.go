package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Test playback defaults
	if cfg.Playback.Mode != "autonomous" {
		t.Errorf("expected mode autonomous, got %s", cfg.Playback.Mode)
	}
	if cfg.Controlled() {
		t.Error("expected autonomous playback by default")
	}
	if cfg.Playback.ProgressInterval != 250*time.Millisecond {
		t.Errorf("expected progress interval 250ms, got %v", cfg.Playback.ProgressInterval)
	}

	// Test camera and loader defaults
	if cfg.Camera.FlyDuration != 1500*time.Millisecond {
		t.Errorf("expected fly duration 1.5s, got %v", cfg.Camera.FlyDuration)
	}
	if cfg.Loader.DispatchDelay != 100*time.Millisecond {
		t.Errorf("expected dispatch delay 100ms, got %v", cfg.Loader.DispatchDelay)
	}
	if cfg.Loader.SettleBuffer != 400*time.Millisecond {
		t.Errorf("expected settle buffer 400ms, got %v", cfg.Loader.SettleBuffer)
	}

	// Test storage defaults
	if cfg.Storage.Driver != "sqlite" {
		t.Errorf("expected sqlite driver, got %s", cfg.Storage.Driver)
	}

	// Test logging defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "" {
		t.Errorf("expected empty log file, got %s", cfg.Logging.LogFile)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
playback:
  map_id: "silk-road"
  mode: "controlled"
  start_index: 2
  progress_interval: 500ms

camera:
  fly_duration: 2s
  default_center:
    lng: 12.5
    lat: 41.9
  default_zoom: 4

loader:
  dispatch_delay: 50ms
  settle_buffer: 1s
  cache_size: 16

storage:
  driver: "memory"
  story_file: "stories/silk-road.yaml"

logging:
  level: "debug"
  log_file: "storyplay.log"
  format: "json"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Load config
	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Verify values were loaded
	if cfg.Playback.MapID != "silk-road" {
		t.Errorf("expected map silk-road, got %s", cfg.Playback.MapID)
	}
	if !cfg.Controlled() {
		t.Error("expected controlled mode")
	}
	if cfg.Playback.StartIndex != 2 {
		t.Errorf("expected start index 2, got %d", cfg.Playback.StartIndex)
	}

	timing := cfg.Timing()
	if timing.FlyDuration != 2*time.Second {
		t.Errorf("expected fly duration 2s, got %v", timing.FlyDuration)
	}
	if timing.DispatchDelay != 50*time.Millisecond || timing.SettleBuffer != time.Second {
		t.Errorf("unexpected settle timings: %+v", timing)
	}
	if timing.ProgressInterval != 500*time.Millisecond {
		t.Errorf("expected progress interval 500ms, got %v", timing.ProgressInterval)
	}
	if timing.DefaultView.Center.Lng != 12.5 || timing.DefaultView.Zoom != 4 {
		t.Errorf("unexpected default view: %+v", timing.DefaultView)
	}
	// Not in the file, keeps the default.
	if timing.FrameInterval != 16*time.Millisecond {
		t.Errorf("expected frame interval 16ms, got %v", timing.FrameInterval)
	}

	if cfg.Storage.Driver != "memory" || cfg.Storage.StoryFile != "stories/silk-road.yaml" {
		t.Errorf("unexpected storage config: %+v", cfg.Storage)
	}

	fc := cfg.LogFile()
	if fc.Path != "storyplay.log" || fc.Format != "json" {
		t.Errorf("unexpected log file config: %+v", fc)
	}
	if fc.MaxSizeMB == 0 {
		t.Error("expected rotation defaults to be filled in")
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	// Create temporary config file with invalid YAML
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
playback:
  start_index: not a number
  invalid syntax here
`

	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Try to load - should error
	cfg := Default()
	err := loadFromFile(cfg, configPath)
	if err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	err := loadFromFile(cfg, "/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"controlled", func(c *Config) { c.Playback.Mode = "controlled" }, false},
		{"unknown mode", func(c *Config) { c.Playback.Mode = "shuffle" }, true},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "postgres" }, true},
		{"sqlite without path", func(c *Config) { c.Storage.Path = "" }, true},
		{"memory without story", func(c *Config) { c.Storage.Driver = "memory" }, true},
		{"memory with story", func(c *Config) {
			c.Storage.Driver = "memory"
			c.Storage.StoryFile = "story.yaml"
		}, false},
		{"negative cache", func(c *Config) { c.Loader.CacheSize = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLogFileDisabled(t *testing.T) {
	cfg := Default()
	if fc := cfg.LogFile(); fc.Path != "" {
		t.Errorf("expected no file logging, got %+v", fc)
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()

	// Just verify it returns a non-empty path
	// Actual path depends on OS
	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}

	// Verify path is absolute
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	// Save current directory
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)

	// Create temp directory and change to it
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdg"))
	os.Chdir(tmpDir)

	// No config file exists - should return empty
	path := findConfigFile()
	if path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	// Create the config file in current directory
	configPath := filepath.Join(tmpDir, FileName)
	if err := os.WriteFile(configPath, []byte("playback:\n  map_id: demo\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	// Should find it now
	path = findConfigFile()
	if path == "" {
		t.Errorf("expected to find %s in current directory", FileName)
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", FileName)

	cfg := Default()
	cfg.Playback.MapID = "saved"
	cfg.Loader.SettleBuffer = 750 * time.Millisecond
	if err := cfg.WriteFile(path); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read written config: %v", err)
	}
	if !strings.HasPrefix(string(data), fileHeader) {
		t.Errorf("written config lacks header:\n%s", data)
	}
	if !strings.Contains(string(data), "settle_buffer: 750ms") {
		t.Errorf("durations should be written as strings:\n%s", data)
	}

	loaded := Default()
	if err := loadFromFile(loaded, path); err != nil {
		t.Fatalf("failed to reload config: %v", err)
	}
	if loaded.Playback.MapID != "saved" {
		t.Errorf("expected map saved, got %s", loaded.Playback.MapID)
	}
	if loaded.Loader.SettleBuffer != 750*time.Millisecond {
		t.Errorf("expected settle buffer 750ms, got %v", loaded.Loader.SettleBuffer)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the config file, found %d entries", len(entries))
	}
}

func TestWriteFileRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)

	cfg := Default()
	cfg.Storage.Driver = "postgres"
	if err := cfg.WriteFile(path); err == nil {
		t.Fatal("expected error writing invalid config")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("invalid config was written: %v", err)
	}
}

func TestLoadFromFileUnknownKey(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(configPath, []byte("loader:\n  settle_bufer: 1s\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err == nil {
		t.Error("expected error for misspelled key, got nil")
	}
}

func TestLoadFromFileEmpty(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(configPath, nil, 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("loadFromFile() error = %v", err)
	}
	if cfg.Playback.Mode != "autonomous" {
		t.Errorf("empty file changed mode to %q", cfg.Playback.Mode)
	}
}

func TestConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	envPath := filepath.Join(tmpDir, "env.yaml")
	flagPath := filepath.Join(tmpDir, "flag.yaml")

	t.Setenv(EnvConfig, envPath)
	if got := configFile(); got != envPath {
		t.Errorf("configFile() = %q, want env path %q", got, envPath)
	}

	*flagConfig = flagPath
	defer func() { *flagConfig = "" }()
	if got := configFile(); got != flagPath {
		t.Errorf("configFile() = %q, want flag path %q", got, flagPath)
	}
}

func TestLoadFromEnv(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "player.yaml")
	if err := os.WriteFile(configPath, []byte("playback:\n  map_id: from-env\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	t.Setenv(EnvConfig, configPath)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Playback.MapID != "from-env" {
		t.Errorf("expected map from-env, got %s", cfg.Playback.MapID)
	}
}

func TestWriteConfigPath(t *testing.T) {
	if got := WriteConfigPath(); got != "" {
		t.Errorf("WriteConfigPath() = %q without flag, want empty", got)
	}
	*flagWriteCfg = "out.yaml"
	defer func() { *flagWriteCfg = "" }()
	if got := WriteConfigPath(); got != "out.yaml" {
		t.Errorf("WriteConfigPath() = %q, want out.yaml", got)
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name     string
		setup    func()
		verify   func(*Config) error
		teardown func()
	}{
		{
			name: "debug flag",
			setup: func() {
				*flagDebug = true
			},
			verify: func(cfg *Config) error {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
				return nil
			},
			teardown: func() {
				*flagDebug = false
			},
		},
		{
			name: "story flag selects memory store",
			setup: func() {
				*flagStory = "story.yaml"
			},
			verify: func(cfg *Config) error {
				if cfg.Storage.Driver != "memory" {
					t.Errorf("expected memory driver, got %s", cfg.Storage.Driver)
				}
				if cfg.Storage.StoryFile != "story.yaml" {
					t.Errorf("expected story file story.yaml, got %s", cfg.Storage.StoryFile)
				}
				return nil
			},
			teardown: func() {
				*flagStory = ""
			},
		},
		{
			name: "story with import keeps sqlite",
			setup: func() {
				*flagStory = "story.yaml"
				*flagImport = true
			},
			verify: func(cfg *Config) error {
				if cfg.Storage.Driver != "sqlite" {
					t.Errorf("expected sqlite driver, got %s", cfg.Storage.Driver)
				}
				return nil
			},
			teardown: func() {
				*flagStory = ""
				*flagImport = false
			},
		},
		{
			name: "db flag",
			setup: func() {
				*flagDB = "/tmp/maps.db"
			},
			verify: func(cfg *Config) error {
				if cfg.Storage.Driver != "sqlite" || cfg.Storage.Path != "/tmp/maps.db" {
					t.Errorf("unexpected storage config: %+v", cfg.Storage)
				}
				return nil
			},
			teardown: func() {
				*flagDB = ""
			},
		},
		{
			name: "map, controlled and start flags",
			setup: func() {
				*flagMap = "atlas"
				*flagControlled = true
				*flagStart = 3
			},
			verify: func(cfg *Config) error {
				if cfg.Playback.MapID != "atlas" {
					t.Errorf("expected map atlas, got %s", cfg.Playback.MapID)
				}
				if !cfg.Controlled() {
					t.Error("expected controlled mode with controlled flag")
				}
				if cfg.Playback.StartIndex != 3 {
					t.Errorf("expected start index 3, got %d", cfg.Playback.StartIndex)
				}
				return nil
			},
			teardown: func() {
				*flagMap = ""
				*flagControlled = false
				*flagStart = -1
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Setup
			tt.setup()
			defer tt.teardown()

			// Apply flags to default config
			cfg := Default()
			applyFlags(cfg)

			// Verify
			tt.verify(cfg)
		})
	}
}

func TestLoadPriority(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
playback:
  map_id: "from-file"
  start_index: 4
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Set flag to override config file
	*flagConfig = configPath
	*flagMap = "from-flag"
	defer func() {
		*flagConfig = ""
		*flagMap = ""
	}()

	// Load config
	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Map should be from flag, not file
	if cfg.Playback.MapID != "from-flag" {
		t.Errorf("expected map from-flag, got %s", cfg.Playback.MapID)
	}

	// Start index should be from file since no flag override
	if cfg.Playback.StartIndex != 4 {
		t.Errorf("expected start index 4 from file, got %d", cfg.Playback.StartIndex)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("playback:\n  mode: sideways\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	*flagConfig = configPath
	defer func() { *flagConfig = "" }()

	if _, err := Load(); err == nil {
		t.Error("expected error for unknown playback mode")
	}
}
