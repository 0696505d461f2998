package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bespoke/internal/config"
	"bespoke/internal/logging"
	"bespoke/internal/services"
)

func TestNewFromConfigConsole(t *testing.T) {
	cfg := config.Default()
	var buf bytes.Buffer

	logger, err := logging.NewFromConfig(&cfg, &buf, false)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Debug("hidden")
	logger.Info("visible", logging.String("key", "value"))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line should be filtered at info level: %q", out)
	}
	if !strings.Contains(out, "INFO visible") || !strings.Contains(out, "key=value") {
		t.Fatalf("unexpected console output: %q", out)
	}
}

func TestVerboseForcesDebug(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.Level = "error"
	var buf bytes.Buffer

	logger, err := logging.NewFromConfig(&cfg, &buf, true)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Debug("debug line")
	if !strings.Contains(buf.String(), "DEBUG debug line") {
		t.Fatalf("expected debug output, got %q", buf.String())
	}
}

func TestConsoleComponentPrefix(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "info", Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.NewComponentLogger(logger, "blocks").Info("matched", logging.Int(logging.FieldBlock, 2))

	out := buf.String()
	if !strings.Contains(out, "INFO blocks: matched") {
		t.Fatalf("expected component prefix, got %q", out)
	}
	if !strings.Contains(out, "block=2") {
		t.Fatalf("expected block attribute, got %q", out)
	}
	if strings.Contains(out, "component=") {
		t.Fatalf("component should not repeat as attribute: %q", out)
	}
	if strings.Contains(out, ".go:") {
		t.Fatalf("info logs should omit source: %q", out)
	}
}

func TestJSONLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "info", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithRunID(context.Background(), "run-1")
	ctx = services.WithStage(ctx, "render")
	logging.WithContext(ctx, logger).Warn("render failed", logging.String(logging.FieldSource, "abc"))

	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &record); err != nil {
		t.Fatalf("decode json log: %v (%q)", err, buf.String())
	}
	checks := map[string]string{
		"level":  "warn",
		"msg":    "render failed",
		"run_id": "run-1",
		"stage":  "render",
		"source": "abc",
	}
	for key, want := range checks {
		if got, _ := record[key].(string); got != want {
			t.Fatalf("%s = %q, want %q", key, got, want)
		}
	}
	if _, ok := record["ts"]; !ok {
		t.Fatalf("expected ts field in %v", record)
	}
}

func TestFileOutputPath(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "nested", "bespoke.log")
	logger, err := logging.New(logging.Options{Level: "info", Format: "console", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("to file")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "to file") {
		t.Fatalf("expected message in log file, got %q", content)
	}
}

func TestUnsupportedFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml", Writer: &bytes.Buffer{}}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestContextFieldsEmpty(t *testing.T) {
	if fields := logging.ContextFields(context.Background()); len(fields) != 0 {
		t.Fatalf("expected no fields, got %v", fields)
	}
	ctx := services.WithSource(context.Background(), "k1")
	fields := logging.ContextFields(ctx)
	if len(fields) != 1 || fields[0].Key != logging.FieldSource {
		t.Fatalf("unexpected fields %v", fields)
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := logging.NewNop()
	if logger.Enabled(context.Background(), 12) {
		t.Fatal("nop logger should not be enabled")
	}
	logging.NewComponentLogger(nil, "x").Error("ignored")
}

func TestProgressSamplerBuckets(t *testing.T) {
	sampler := logging.NewProgressSampler(25)
	var emitted []int
	for done := 1; done <= 8; done++ {
		if sampler.ShouldLog(done, 8) {
			emitted = append(emitted, done)
		}
	}
	want := []int{1, 2, 4, 6, 8}
	if len(emitted) != len(want) {
		t.Fatalf("emitted %v, want %v", emitted, want)
	}
	for i := range want {
		if emitted[i] != want[i] {
			t.Fatalf("emitted %v, want %v", emitted, want)
		}
	}
	if sampler.ShouldLog(1, 0) {
		t.Fatal("zero total should not log")
	}
}
