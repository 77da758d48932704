package deps

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mediaconv/internal/config"
	"mediaconv/internal/services"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	notExecutable := filepath.Join(binDir, "plain")
	if err := os.WriteFile(notExecutable, script, 0o644); err != nil {
		t.Fatalf("write plain: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Plain", Command: notExecutable},
		{Name: "Empty"},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Resolved != present {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary to be unavailable with detail, got %#v", results[1])
	}
	if results[2].Available {
		t.Fatalf("expected non-executable file to be unavailable")
	}
	if results[3].Detail != "command not configured" {
		t.Fatalf("unexpected detail for empty command: %q", results[3].Detail)
	}
}

func TestVerifyReportsMissingRequired(t *testing.T) {
	err := Verify([]Status{
		{Name: "FFprobe", Available: true},
		{Name: "FFmpeg", Detail: `binary "ffmpeg" not found`},
		{Name: "Extra", Optional: true},
	})
	if !errors.Is(err, services.ErrExternalToolNotFound) {
		t.Fatalf("expected tool not found, got %v", err)
	}
	if !strings.Contains(err.Error(), "FFmpeg") || strings.Contains(err.Error(), "Extra") {
		t.Fatalf("unexpected message: %v", err)
	}
	if err := Verify([]Status{{Name: "FFmpeg", Available: true}}); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestRequirementsFollowStrategy(t *testing.T) {
	cfg := config.Default()
	cfg.Media.FFmpeg = "/opt/ffmpeg"
	reqs := Requirements(&cfg)
	if len(reqs) != 2 || reqs[1].Command != "/opt/ffmpeg" {
		t.Fatalf("unexpected ffmpeg requirements: %#v", reqs)
	}

	cfg.Media.Strategy = config.StrategyDrapto
	reqs = Requirements(&cfg)
	if len(reqs) != 2 || reqs[1].Command != "ffmpeg" {
		t.Fatalf("unexpected drapto requirements: %#v", reqs)
	}
}
