// Package config loads bsync settings from a TOML file.
//
// A config file sets defaults for the CLI. Every key is optional and flags
// given on the command line win over the file:
//
//	strategy        = "randomizedPriority"
//	seed            = 42
//	max_steps       = 10000
//	debug           = false
//	fault_isolation = true
//	database        = "bsync.db"
//	log_level       = "debug"
package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/roach88/bsync/internal/engine"
)

// DefaultFile is read when no path is given and it exists in the working
// directory.
const DefaultFile = "bsync.toml"

// Config holds engine and CLI settings.
type Config struct {
	Strategy       string `toml:"strategy"`
	Seed           int64  `toml:"seed"`
	MaxSteps       int    `toml:"max_steps"`
	Debug          bool   `toml:"debug"`
	FaultIsolation bool   `toml:"fault_isolation"`
	Database       string `toml:"database"`
	LogLevel       string `toml:"log_level"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Strategy: engine.StrategyPriority,
		MaxSteps: engine.DefaultMaxSteps,
		LogLevel: "info",
	}
}

// Load reads path over the defaults. Unknown keys are rejected so typos do
// not silently fall back to a default.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return cfg, decodeError(path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault loads path, or DefaultFile when path is empty and the file
// exists, or returns the defaults.
func LoadOrDefault(path string) (Config, error) {
	if path != "" {
		return Load(path)
	}
	if _, err := os.Stat(DefaultFile); err == nil {
		return Load(DefaultFile)
	}
	return Default(), nil
}

// Validate checks values that the engine would otherwise reject later.
func (c Config) Validate() error {
	if _, err := engine.ParseStrategy(c.Strategy, c.Seed); err != nil {
		return err
	}
	if c.MaxSteps < 0 {
		return fmt.Errorf("max_steps must be non-negative, got %d", c.MaxSteps)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel. Empty means info.
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}

// ProgramOptions turns the engine settings into program options. The
// strategy is not included; it is resolved together with the program's own.
func (c Config) ProgramOptions() []engine.ProgramOption {
	return []engine.ProgramOption{
		engine.WithMaxSteps(c.MaxSteps),
		engine.WithDebug(c.Debug),
		engine.WithFaultIsolation(c.FaultIsolation),
	}
}

func decodeError(path string, err error) error {
	var strict *toml.StrictMissingError
	if errors.As(err, &strict) {
		return fmt.Errorf("%s: unknown keys:\n%s", path, strict.String())
	}
	var derr *toml.DecodeError
	if errors.As(err, &derr) {
		row, col := derr.Position()
		return fmt.Errorf("%s:%d:%d: %w", path, row, col, err)
	}
	return fmt.Errorf("%s: %w", path, err)
}
