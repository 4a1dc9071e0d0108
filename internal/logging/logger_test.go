package logging_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"concierge/internal/config"
	"concierge/internal/logging"
	"concierge/internal/services"
)

func TestNewFromConfigWritesDaemonLog(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("daemon ready", logging.String(logging.FieldComponent, "daemon"))

	content, err := os.ReadFile(logging.DaemonLogPath(cfg.Paths.LogDir))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "daemon: daemon ready") {
		t.Fatalf("expected component prefix in console output, got %q", content)
	}
}

func TestConsoleLoggerLiftsQueueID(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithQueueID(context.Background(), "0123456789abcdef")
	ctx = services.WithGuestID(ctx, 7)
	logging.WithContext(ctx, logger).Info("guest enriched", logging.Int("vip_score", 6))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	if !strings.Contains(line, "[queue 01234567]") {
		t.Fatalf("expected shortened queue id, got %q", line)
	}
	if !strings.Contains(line, "guest_id=7") || !strings.Contains(line, "vip_score=6") {
		t.Fatalf("expected guest and score fields, got %q", line)
	}
	if strings.Contains(line, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", line)
	}
}

func TestJSONLoggerUsesTimestampKey(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Warn("checkpoint failed", logging.ErrorDetails(services.Wrap(services.ErrPersistence, "queue", "save", "", nil))[1])

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(content, &payload); err != nil {
		t.Fatalf("decode json log: %v (%q)", err, content)
	}
	if _, ok := payload["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", payload)
	}
	if payload["level"] != "warn" {
		t.Fatalf("expected lowercase level, got %v", payload["level"])
	}
	if payload[logging.FieldErrorKind] != "persistence" {
		t.Fatalf("expected error kind, got %v", payload[logging.FieldErrorKind])
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestOpenQueueLogTeesToFile(t *testing.T) {
	dir := t.TempDir()
	basePath := filepath.Join(dir, "base.log")
	base, err := logging.New(logging.Options{Format: "console", OutputPaths: []string{basePath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger, closeFn, err := logging.OpenQueueLog(base, dir, "queue-1")
	if err != nil {
		t.Fatalf("OpenQueueLog: %v", err)
	}
	logger.Debug("detail only in queue log")
	logger.Info("visible everywhere")
	if err := closeFn(); err != nil {
		t.Fatalf("close queue log: %v", err)
	}

	queueLog, err := os.ReadFile(logging.QueueLogPath(dir, "queue-1"))
	if err != nil {
		t.Fatalf("read queue log: %v", err)
	}
	if !strings.Contains(string(queueLog), "detail only in queue log") {
		t.Fatalf("expected debug line in queue log, got %q", queueLog)
	}
	baseLog, err := os.ReadFile(basePath)
	if err != nil {
		t.Fatalf("read base log: %v", err)
	}
	if strings.Contains(string(baseLog), "detail only") {
		t.Fatalf("expected base logger to drop debug, got %q", baseLog)
	}
	if !strings.Contains(string(baseLog), "visible everywhere") {
		t.Fatalf("expected info line in base log, got %q", baseLog)
	}
}

func TestCleanupOldLogs(t *testing.T) {
	dir := t.TempDir()
	oldPath := filepath.Join(dir, "old.log")
	freshPath := filepath.Join(dir, "fresh.log")
	keptPath := filepath.Join(dir, "kept.log")
	for _, p := range []string{oldPath, freshPath, keptPath} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}
	stale := time.Now().AddDate(0, 0, -10)
	for _, p := range []string{oldPath, keptPath} {
		if err := os.Chtimes(p, stale, stale); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	removed := logging.CleanupOldLogs(logging.NewNop(), 5, logging.RetentionTarget{Dir: dir, Pattern: "*.log", Exclude: []string{keptPath}})
	if removed != 1 {
		t.Fatalf("expected 1 removal, got %d", removed)
	}
	if _, err := os.Stat(oldPath); !os.IsNotExist(err) {
		t.Fatalf("expected old log removed, stat err=%v", err)
	}
	for _, p := range []string{freshPath, keptPath} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("expected %s to remain: %v", p, err)
		}
	}
}
