package logging_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mediaconv/internal/config"
	"mediaconv/internal/logging"
	"mediaconv/internal/services"
)

func newFileLogger(t *testing.T, format, level string) (string, func()) {
	t.Helper()
	logPath := filepath.Join(t.TempDir(), "nested", "test.log")
	logger, closer, err := logging.New(logging.Options{
		Format:      format,
		Level:       level,
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	component := logging.NewComponentLogger(logger, "observer")
	return logPath, func() {
		component.Info("file queued", logging.String(logging.FieldSource, "/in/movie avi"), logging.Int("workers", 2))
		component.Debug("debug detail")
		if err := closer.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}
}

func TestConsoleLoggerFormatsComponentFirst(t *testing.T) {
	logPath, emit := newFileLogger(t, "console", "info")
	emit()

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	if !strings.Contains(line, "INFO  [observer] file queued") {
		t.Fatalf("unexpected console line %q", line)
	}
	if !strings.Contains(line, `source="/in/movie avi"`) {
		t.Fatalf("expected quoted value, got %q", line)
	}
	if strings.Contains(line, "debug detail") {
		t.Fatalf("debug line should be filtered at info level: %q", line)
	}
	if strings.Contains(line, ".go:") {
		t.Fatalf("expected no source location at info level: %q", line)
	}
}

func TestConsoleLoggerIncludesSourceForDebug(t *testing.T) {
	logPath, emit := newFileLogger(t, "console", "debug")
	emit()

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "debug detail") {
		t.Fatalf("expected debug line, got %q", content)
	}
	if !strings.Contains(string(content), ".go:") {
		t.Fatalf("expected source location in debug logs, got %q", content)
	}
}

func TestJSONLoggerUsesCanonicalKeys(t *testing.T) {
	logPath, emit := newFileLogger(t, "json", "info")
	emit()

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(content))), &record); err != nil {
		t.Fatalf("decode json line: %v (%q)", err, content)
	}
	if record["level"] != "info" || record["msg"] != "file queued" || record["component"] != "observer" {
		t.Fatalf("unexpected record %v", record)
	}
	if _, ok := record["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", record)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewFromConfigWritesRunLog(t *testing.T) {
	cfg := config.Default()
	logPath := filepath.Join(t.TempDir(), "run.log")
	logger, closer, err := logging.NewFromConfig(&cfg, logPath)
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	logger.Info("hello")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := closer.Close(); err != nil {
		t.Fatalf("second close should be a no-op: %v", err)
	}
	if data, err := os.ReadFile(logPath); err != nil || !strings.Contains(string(data), "hello") {
		t.Fatalf("expected run log to contain message: %q %v", data, err)
	}
}

func TestWithContextAddsJobFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "ctx.log")
	logger, closer, err := logging.New(logging.Options{Format: "json", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := services.WithStage(services.WithJobID(context.Background(), "job-1"), "convert")
	logging.WithContext(ctx, logger).Info("stage started")
	_ = closer.Close()

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	for _, fragment := range []string{`"job_id":"job-1"`, `"stage":"convert"`} {
		if !strings.Contains(string(data), fragment) {
			t.Fatalf("expected %s in %s", fragment, data)
		}
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "warn.log")
	logger, closer, err := logging.New(logging.Options{Format: "json", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logging.WarnWithContext(logger, "archive failed", "archive_failed")
	logging.WarnWithContext(nil, "ignored", "ignored")
	_ = closer.Close()

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	for _, fragment := range []string{`"event_type":"archive_failed"`, `"error_hint"`, `"impact"`} {
		if !strings.Contains(string(data), fragment) {
			t.Fatalf("expected %s in %s", fragment, data)
		}
	}
}

func TestCleanupOldLogsHonoursRetention(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "mediaconv-old.log")
	fresh := filepath.Join(dir, "mediaconv-new.log")
	kept := filepath.Join(dir, "mediaconv-keep.log")
	other := filepath.Join(dir, "notes.txt")
	for _, path := range []string{old, fresh, kept, other} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	past := time.Now().AddDate(0, 0, -10)
	for _, path := range []string{old, kept, other} {
		if err := os.Chtimes(path, past, past); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	if removed := logging.CleanupOldLogs(logging.NewNop(), dir, "mediaconv-*.log", 0); removed != 0 {
		t.Fatalf("retention 0 must disable pruning, removed %d", removed)
	}
	removed := logging.CleanupOldLogs(logging.NewNop(), dir, "mediaconv-*.log", 5, kept)
	if removed != 1 {
		t.Fatalf("expected exactly one file pruned, got %d", removed)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatal("expected old log removed")
	}
	for _, path := range []string{fresh, kept, other} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s to remain: %v", path, err)
		}
	}
}
