package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mediaconv/internal/history"
)

type cliEnv struct {
	base       string
	configPath string
	inDir      string
	stateDir   string
}

// setupCLIEnv writes a config rooted in a temp dir with stub tool binaries
// on PATH.
func setupCLIEnv(t *testing.T, extra string) *cliEnv {
	t.Helper()

	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	env := &cliEnv{
		base:       base,
		configPath: filepath.Join(base, "config.toml"),
		inDir:      filepath.Join(base, "in"),
		stateDir:   filepath.Join(base, "state"),
	}
	if err := os.MkdirAll(env.inDir, 0o755); err != nil {
		t.Fatalf("mkdir input: %v", err)
	}

	binDir := filepath.Join(base, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		t.Fatalf("mkdir bin: %v", err)
	}
	for _, name := range []string{"ffmpeg", "ffprobe"} {
		if err := os.WriteFile(filepath.Join(binDir, name), []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
			t.Fatalf("write stub %s: %v", name, err)
		}
	}
	t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))

	content := fmt.Sprintf(`[general]
state_dir = %q
log_dir = %q

[media]
in_folder = %q
out_folder = %q
%s`, env.stateDir, filepath.Join(base, "logs"), env.inDir, filepath.Join(base, "out"), extra)
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

func runCLI(t *testing.T, args []string, configPath string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if configPath != "" {
		args = append([]string{"--config", configPath}, args...)
	}
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String() + stderr.String(), err
}

func requireContains(t *testing.T, out, want string) {
	t.Helper()
	if !strings.Contains(out, want) {
		t.Fatalf("expected output to contain %q, got:\n%s", want, out)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLIEnv(t, "")

	out, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.inDir)

	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	out, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}
	if _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigValidateRejectsUnknownKeys(t *testing.T) {
	env := setupCLIEnv(t, "bogus_key = 1\n")
	if _, err := runCLI(t, []string{"config", "validate"}, env.configPath); err == nil {
		t.Fatal("expected unknown key to fail validation")
	}
}

func TestCheckPassesWithHealthySetup(t *testing.T) {
	env := setupCLIEnv(t, "")

	out, err := runCLI(t, []string{"check"}, env.configPath)
	if err != nil {
		t.Fatalf("check: %v\n%s", err, out)
	}
	requireContains(t, out, "All checks passed")
	requireContains(t, out, "(will be created)")
	if _, statErr := os.Stat(filepath.Join(env.base, "out")); !os.IsNotExist(statErr) {
		t.Fatalf("check must not create the output folder, stat err=%v", statErr)
	}
}

func TestCheckReportsMissingInput(t *testing.T) {
	env := setupCLIEnv(t, "")
	if err := os.Remove(env.inDir); err != nil {
		t.Fatalf("remove input: %v", err)
	}

	out, err := runCLI(t, []string{"check"}, env.configPath)
	if err == nil {
		t.Fatalf("expected check to fail, got:\n%s", out)
	}
	requireContains(t, out, "[FAIL]")
	requireContains(t, out, "Input directory")
}

func TestHistoryListsRecordedJobs(t *testing.T) {
	env := setupCLIEnv(t, "")

	out, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history on empty store: %v", err)
	}
	requireContains(t, out, "No jobs recorded yet")

	store, err := history.Open(filepath.Join(env.stateDir, "history.db"))
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	finished := time.Now()
	entries := []history.Entry{
		{
			JobID: "job-ok", Source: filepath.Join(env.inDir, "movie.avi"), Dest: filepath.Join(env.base, "out", "movie.mp4"),
			Strategy: "ffmpeg", Outcome: "ok", Started: finished.Add(-time.Minute), Finished: finished,
			Duration: time.Minute, OutputSize: 2 << 20,
		},
		{
			JobID: "job-junk", Source: filepath.Join(env.inDir, "junk.txt"), Dest: filepath.Join(env.base, "out", "junk.mp4"),
			Strategy: "ffmpeg", Outcome: "probe_failed", Error: "not a media file",
			Started: finished, Finished: finished.Add(time.Second),
		},
	}
	for _, entry := range entries {
		if err := store.Record(context.Background(), entry); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	out, err = runCLI(t, []string{"history", "--limit", "5"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "movie.avi")
	requireContains(t, out, "Probe Failed")
	requireContains(t, out, "not a media file")
	requireContains(t, out, "2.1 MB")
	requireContains(t, out, "Total jobs: 2")
}

func TestOutcomeLabel(t *testing.T) {
	cases := map[string]string{
		"ok":               "Ok",
		"stability_failed": "Stability Failed",
		"convert_failed":   "Convert Failed",
	}
	for in, want := range cases {
		if got := outcomeLabel(in); got != want {
			t.Fatalf("outcomeLabel(%q) = %q, want %q", in, got, want)
		}
	}
}
