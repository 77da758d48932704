package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"mediaconv/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a normalized config rooted in a per-test temp directory.
// The input directory exists; the output directory does not, so the
// permission guard has something to create. Stability polling is fast.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.General.StateDir = filepath.Join(base, "state")
	cfgVal.General.LogDir = filepath.Join(base, "logs")
	cfgVal.Media.InFolder = filepath.Join(base, "in")
	cfgVal.Media.OutFolder = filepath.Join(base, "out")
	cfgVal.Media.PollInterval = 0.02
	cfgVal.Media.WatchTimeout = 0.05
	if err := os.MkdirAll(cfgVal.Media.InFolder, 0o755); err != nil {
		t.Fatalf("mkdir input: %v", err)
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.Normalize(); err != nil {
		t.Fatalf("normalize config: %v", err)
	}
	if err := builder.cfg.Validate(); err != nil {
		t.Fatalf("validate config: %v", err)
	}
	return builder.cfg
}

// WithArchiveDelete configures the delete-source archive policy.
func WithArchiveDelete() ConfigOption {
	return func(b *configBuilder) {
		empty := ""
		b.cfg.Media.ArchiveFolder = &empty
	}
}

// WithArchiveDir configures the move archive policy into base/name.
func WithArchiveDir(name string) ConfigOption {
	return func(b *configBuilder) {
		dir := filepath.Join(b.baseDir, name)
		b.cfg.Media.ArchiveFolder = &dir
	}
}

// WithOutFormat replaces the output format options.
func WithOutFormat(format map[string]any) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Media.OutFormat = format
	}
}

// WithStrategy selects the strategy kind.
func WithStrategy(kind string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Media.Strategy = kind
	}
}

// WithWorkers sets the worker pool size.
func WithWorkers(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.General.Workers = n
	}
}

// WithConfig applies an arbitrary mutation before normalization.
func WithConfig(fn func(*config.Config)) ConfigOption {
	return func(b *configBuilder) {
		fn(b.cfg)
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, ffmpeg and ffprobe are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}
		b.t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.General.StateDir)
}
