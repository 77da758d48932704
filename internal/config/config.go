package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"mediaconv/internal/services"
)

//go:embed sample_config.toml
var sampleConfig string

// General contains daemon-wide settings.
type General struct {
	Workers     int    `toml:"workers"`
	StateDir    string `toml:"state_dir"`
	LogDir      string `toml:"log_dir"`
	MetricsBind string `toml:"metrics_bind"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Media describes the watched directory, the conversion target, and the
// external tools used to get there.
type Media struct {
	InFolder  string `toml:"in_folder"`
	OutFolder string `toml:"out_folder"`
	// ArchiveFolder distinguishes three states: absent (nil) leaves the
	// source in place, empty deletes it, a path moves it there.
	ArchiveFolder  *string        `toml:"archive_folder"`
	PollInterval   float64        `toml:"poll_interval"`
	WatchTimeout   float64        `toml:"watch_timeout"`
	Strategy       string         `toml:"strategy"`
	FFmpeg         string         `toml:"ffmpeg"`
	FFprobe        string         `toml:"ffprobe"`
	Patterns       []string       `toml:"patterns"`
	IgnorePatterns []string       `toml:"ignore_patterns"`
	OutFormat      map[string]any `toml:"out_format"`

	format Format
}

// Stability bounds the file stability wait.
type Stability struct {
	// Timeout in seconds; zero waits forever.
	Timeout float64 `toml:"timeout"`
}

// History controls the SQLite job ledger.
type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Config encapsulates all configuration values for mediaconv.
//
// Configuration sections by subsystem:
//   - General: worker pool size, state/log directories, metrics bind
//   - Logging: log format, level, and retention
//   - Media: watched/output/archive folders, output format, external tools
//   - Stability: optional bound on the stability wait
//   - History: job ledger
type Config struct {
	General   General   `toml:"general"`
	Logging   Logging   `toml:"logging"`
	Media     Media     `toml:"media"`
	Stability Stability `toml:"stability"`
	History   History   `toml:"history"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. Errors carry services.ErrConfiguration.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, services.Wrap(services.ErrConfiguration, "config", "resolve", "", err)
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, services.Wrap(services.ErrConfiguration, "config", "open", resolvedPath, err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, services.Wrap(services.ErrConfiguration, "config", "parse", resolvedPath, err)
		}
	}

	if err := cfg.Normalize(); err != nil {
		return nil, "", false, services.Wrap(services.ErrConfiguration, "config", "normalize", "", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, services.Wrap(services.ErrConfiguration, "config", "validate", "", err)
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("mediaconv.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the daemon writes its own state
// into. Media folders are left to the permission guard.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.General.StateDir, c.General.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// InputFolder returns the watched directory.
func (c *Config) InputFolder() string {
	return c.Media.InFolder
}

// OutputFolder returns the directory converted files are written to.
func (c *Config) OutputFolder() string {
	return c.Media.OutFolder
}

// ArchivePolicy returns the post-success disposition of source files.
func (c *Config) ArchivePolicy() ArchivePolicy {
	if c.Media.ArchiveFolder == nil {
		return ArchivePolicy{Mode: ArchiveNone}
	}
	if *c.Media.ArchiveFolder == "" {
		return ArchivePolicy{Mode: ArchiveDelete}
	}
	return ArchivePolicy{Mode: ArchiveMove, Dir: *c.Media.ArchiveFolder}
}

// OutputFormat returns a copy of the encoding options.
func (c *Config) OutputFormat() Format {
	return c.Media.format.Clone()
}

// PollInterval returns the delay between stability samples.
func (c *Config) PollInterval() time.Duration {
	return seconds(c.Media.PollInterval)
}

// WatchTimeout returns the interval at which the watcher re-checks its input directory.
func (c *Config) WatchTimeout() time.Duration {
	return seconds(c.Media.WatchTimeout)
}

// StabilityTimeout returns the upper bound for the stability wait, zero meaning none.
func (c *Config) StabilityTimeout() time.Duration {
	return seconds(c.Stability.Timeout)
}

// WorkerCount returns the number of conversion workers.
func (c *Config) WorkerCount() int {
	if c.General.Workers <= 0 {
		return defaultWorkers
	}
	return c.General.Workers
}

// StrategyKind returns the configured conversion strategy name.
func (c *Config) StrategyKind() string {
	return c.Media.Strategy
}

// EncoderBinary returns the ffmpeg executable, configured or default.
func (c *Config) EncoderBinary() string {
	if c.Media.FFmpeg != "" {
		return c.Media.FFmpeg
	}
	return defaultFFmpegBinary
}

// ProberBinary returns the ffprobe executable, configured or default.
func (c *Config) ProberBinary() string {
	if c.Media.FFprobe != "" {
		return c.Media.FFprobe
	}
	return defaultFFprobeBinary
}

// Patterns returns the base-name globs a file must match to be converted.
func (c *Config) Patterns() []string {
	return append([]string(nil), c.Media.Patterns...)
}

// IgnorePatterns returns the base-name globs that exclude a file.
func (c *Config) IgnorePatterns() []string {
	return append([]string(nil), c.Media.IgnorePatterns...)
}

// HistoryPath returns the job ledger location, or "" when history is disabled.
func (c *Config) HistoryPath() string {
	if !c.History.Enabled {
		return ""
	}
	return c.History.Path
}

// LockPath returns the single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.General.StateDir, "mediaconv.lock")
}

// PIDPath returns the daemon pid file location.
func (c *Config) PIDPath() string {
	return filepath.Join(c.General.StateDir, "mediaconv.pid")
}

func seconds(v float64) time.Duration {
	if v <= 0 {
		return 0
	}
	return time.Duration(v * float64(time.Second))
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
