package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// EnvConfig names the environment variable that points at a config file
// when --config is not given.
const EnvConfig = "STORYPLAY_CONFIG"

// FileName is the config file name looked up in the working directory and
// in ConfigDir.
const FileName = "storyplay.yaml"

// Load builds the effective config: defaults, then the config file, then
// CLI flags. The result is validated.
func Load() (*Config, error) {
	cfg := Default()

	if path := configFile(); path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", path, err)
		}
	}
	applyFlags(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// configFile returns the config file to read. An explicit --config or
// $STORYPLAY_CONFIG is returned even if missing so that Load reports it.
func configFile() string {
	if p := ConfigPath(); p != "" {
		return p
	}
	if p := os.Getenv(EnvConfig); p != "" {
		return p
	}
	return findConfigFile()
}

// findConfigFile returns the first existing file among the search paths.
func findConfigFile() string {
	for _, path := range searchPaths() {
		if st, err := os.Stat(path); err == nil && !st.IsDir() {
			return path
		}
	}
	return ""
}

func searchPaths() []string {
	return []string{
		FileName,
		filepath.Join(ConfigDir(), FileName),
	}
}

// ConfigDir returns the per-user config directory of the player.
func ConfigDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "storyplay")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".storyplay")
}

// loadFromFile merges path into cfg. Unknown keys are an error and an empty
// file changes nothing.
func loadFromFile(cfg *Config, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
