package config

import "flag"

var (
	flagConfig     = flag.String("config", "", "Path to config file")
	flagDebug      = flag.Bool("debug", false, "Enable debug logging")
	flagStory      = flag.String("story", "", "YAML story file to play")
	flagDB         = flag.String("db", "", "SQLite database path")
	flagMap        = flag.String("map", "", "Map id to play")
	flagControlled = flag.Bool("controlled", false, "Mirror an external presenter instead of playing autonomously")
	flagStart      = flag.Int("start", -1, "Segment index to start from")
	flagImport     = flag.Bool("import", false, "Import the story file into the database before playing")
	flagWriteCfg   = flag.String("write-config", "", "Write the effective config to this path and exit")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// ImportRequested reports whether --import was given.
func ImportRequested() bool {
	return *flagImport
}

// WriteConfigPath returns the --write-config target, empty when not given.
func WriteConfigPath() string {
	return *flagWriteCfg
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagStory != "" {
		cfg.Storage.StoryFile = *flagStory
		if *flagDB == "" && !*flagImport {
			cfg.Storage.Driver = "memory"
		}
	}
	if *flagDB != "" {
		cfg.Storage.Driver = "sqlite"
		cfg.Storage.Path = *flagDB
	}
	if *flagMap != "" {
		cfg.Playback.MapID = *flagMap
	}
	if *flagControlled {
		cfg.Playback.Mode = "controlled"
	}
	if *flagStart >= 0 {
		cfg.Playback.StartIndex = *flagStart
	}
}
