package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	DefaultConfigDir   = ".clipshield"
	DefaultPatternsDir = "patterns"
	DefaultRunLogFile  = "runs.jsonl"

	// DefaultSampleTimeout bounds one regex evaluation against one sample.
	DefaultSampleTimeout = 2 * time.Second
)

type Config struct {
	PatternsDir   string
	LogPath       string
	SampleTimeout time.Duration
}

// Load resolves the effective configuration from flag values. An empty
// patternsDir falls back to ./patterns when it exists, then to
// ~/.clipshield/patterns. An empty logPath leaves run logging disabled.
func Load(patternsDir, logPath string, timeout time.Duration) (*Config, error) {
	cfg := &Config{
		LogPath:       logPath,
		SampleTimeout: timeout,
	}
	if cfg.SampleTimeout < 0 {
		cfg.SampleTimeout = 0
	}

	if patternsDir != "" {
		cfg.PatternsDir = patternsDir
		return cfg, nil
	}

	if info, err := os.Stat(DefaultPatternsDir); err == nil && info.IsDir() {
		cfg.PatternsDir = DefaultPatternsDir
		return cfg, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolving patterns dir: %w", err)
	}
	cfg.PatternsDir = filepath.Join(homeDir, DefaultConfigDir, DefaultPatternsDir)
	return cfg, nil
}
