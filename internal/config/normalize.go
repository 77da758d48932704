package config

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Normalize expands paths, applies fallbacks, and derives the output format.
// Load calls it; configs built in code must call it before use.
func (c *Config) Normalize() error {
	if err := c.normalizeGeneral(); err != nil {
		return err
	}
	c.normalizeLogging()
	if err := c.normalizeMedia(); err != nil {
		return err
	}
	return c.normalizeHistory()
}

func (c *Config) normalizeGeneral() error {
	var err error
	if strings.TrimSpace(c.General.StateDir) == "" {
		c.General.StateDir = defaultStateDir
	}
	if c.General.StateDir, err = expandPath(c.General.StateDir); err != nil {
		return fmt.Errorf("general.state_dir: %w", err)
	}
	if strings.TrimSpace(c.General.LogDir) == "" {
		c.General.LogDir = filepath.Join(c.General.StateDir, "logs")
	}
	if c.General.LogDir, err = expandPath(c.General.LogDir); err != nil {
		return fmt.Errorf("general.log_dir: %w", err)
	}
	c.General.MetricsBind = strings.TrimSpace(c.General.MetricsBind)
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeMedia() error {
	var err error
	if c.Media.InFolder, err = expandPath(strings.TrimSpace(c.Media.InFolder)); err != nil {
		return fmt.Errorf("media.in_folder: %w", err)
	}
	if c.Media.OutFolder, err = expandPath(strings.TrimSpace(c.Media.OutFolder)); err != nil {
		return fmt.Errorf("media.out_folder: %w", err)
	}
	if c.Media.ArchiveFolder != nil {
		archive := strings.TrimSpace(*c.Media.ArchiveFolder)
		if archive != "" {
			if archive, err = expandPath(archive); err != nil {
				return fmt.Errorf("media.archive_folder: %w", err)
			}
		}
		c.Media.ArchiveFolder = &archive
	}
	c.Media.Strategy = strings.ToLower(strings.TrimSpace(c.Media.Strategy))
	if c.Media.Strategy == "" {
		c.Media.Strategy = defaultStrategy
	}
	c.Media.FFmpeg = strings.TrimSpace(c.Media.FFmpeg)
	c.Media.FFprobe = strings.TrimSpace(c.Media.FFprobe)
	c.Media.Patterns = cleanPatterns(c.Media.Patterns)
	c.Media.IgnorePatterns = cleanPatterns(c.Media.IgnorePatterns)

	format := make(Format, len(c.Media.OutFormat))
	keys := make([]string, 0, len(c.Media.OutFormat))
	for key := range c.Media.OutFormat {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		name := strings.ToLower(strings.TrimSpace(key))
		if name == "" {
			continue
		}
		format[name] = strings.TrimSpace(fmt.Sprint(c.Media.OutFormat[key]))
	}
	if container := format.Container(); container != "" {
		format[FormatKey] = container
	}
	c.Media.format = format
	return nil
}

func (c *Config) normalizeHistory() error {
	var err error
	if strings.TrimSpace(c.History.Path) == "" {
		c.History.Path = filepath.Join(c.General.StateDir, defaultHistoryFile)
	}
	if c.History.Path, err = expandPath(c.History.Path); err != nil {
		return fmt.Errorf("history.path: %w", err)
	}
	return nil
}

func cleanPatterns(patterns []string) []string {
	out := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		if pattern = strings.TrimSpace(pattern); pattern != "" {
			out = append(out, pattern)
		}
	}
	return out
}
