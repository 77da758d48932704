package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateGeneral(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateMedia(); err != nil {
		return err
	}
	if c.Stability.Timeout < 0 {
		return errors.New("stability.timeout must not be negative")
	}
	return nil
}

func (c *Config) validateGeneral() error {
	if c.General.Workers <= 0 {
		return errors.New("general.workers must be positive")
	}
	if c.General.StateDir == "" {
		return errors.New("general.state_dir must be set")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must not be negative")
	}
	return nil
}

func (c *Config) validateMedia() error {
	if c.Media.InFolder == "" {
		return errors.New("media.in_folder must be set")
	}
	if c.Media.OutFolder == "" {
		return errors.New("media.out_folder must be set")
	}
	if err := ensurePositiveMap(map[string]float64{
		"media.poll_interval": c.Media.PollInterval,
		"media.watch_timeout": c.Media.WatchTimeout,
	}); err != nil {
		return err
	}
	switch c.Media.Strategy {
	case StrategyFFmpeg, StrategyDrapto:
	default:
		return fmt.Errorf("media.strategy must be %s or %s, got %q", StrategyFFmpeg, StrategyDrapto, c.Media.Strategy)
	}
	if err := validateFormatValues(c.Media.OutFormat); err != nil {
		return err
	}
	if c.Media.format.Container() == "" {
		return errors.New("media.out_format.format must be set")
	}
	for _, group := range []struct {
		key      string
		patterns []string
	}{
		{"media.patterns", c.Media.Patterns},
		{"media.ignore_patterns", c.Media.IgnorePatterns},
	} {
		for _, pattern := range group.patterns {
			if _, err := filepath.Match(pattern, ""); err != nil {
				return fmt.Errorf("%s: invalid pattern %q: %w", group.key, pattern, err)
			}
		}
	}
	return nil
}

// validateFormatValues rejects nested tables and arrays; encoder options are
// flat name = value pairs such as video_codec = "libx264".
func validateFormatValues(values map[string]any) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		switch values[key].(type) {
		case string, bool, int64, float64:
		default:
			return fmt.Errorf("media.out_format.%s must be a string, number, or boolean, got %T (use flat keys like %s_codec)", key, values[key], key)
		}
	}
	return nil
}

func ensurePositiveMap(values map[string]float64) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
