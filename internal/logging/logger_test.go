package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/config"
	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/logging"
)

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Logging.Format = "json"

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("config logger ready")

	data, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "erc.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "config logger ready") {
		t.Fatalf("expected message in log file, got %q", data)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestConsoleLoggerOmitsSourceForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-info.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", Outputs: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.NewComponentLogger(logger, "annotation").Info("cache reused",
		logging.String(logging.FieldCorpus, "kemdy19"),
		logging.Int("rows", 12),
	)

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	if strings.Contains(line, ".go:") {
		t.Fatalf("expected no source information in info logs, got %q", line)
	}
	for _, want := range []string{"INFO", "annotation: cache reused", "corpus=kemdy19", "rows=12"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %q", want, line)
		}
	}
	if strings.Contains(line, "component=") {
		t.Fatalf("component should render as prefix, got %q", line)
	}
}

func TestConsoleLoggerQuotesValuesWithSpaces(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "quoted.log")
	logger, err := logging.New(logging.Options{Format: "console", Outputs: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("hint", logging.String(logging.FieldErrorHint, "rerun with --force"))

	content, _ := os.ReadFile(logPath)
	if !strings.Contains(string(content), `error_hint="rerun with --force"`) {
		t.Fatalf("expected quoted hint, got %q", content)
	}
}

func TestConsoleLoggerBoundAttrsAndGroups(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "bound.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", Outputs: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger = logging.NewComponentLogger(logger, "preprocess").With(logging.String(logging.FieldMode, "valid"))
	logger.WithGroup("batch").Debug("encoded", logging.Int("rows", 2))
	logger.Info("done", slog.Group("shard", logging.Int("index", 0)))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected two lines, got %q", content)
	}
	for _, want := range []string{"DEBUG preprocess: encoded", ".go:", "mode=valid batch.rows=2"} {
		if !strings.Contains(lines[0], want) {
			t.Fatalf("expected %q in %q", want, lines[0])
		}
	}
	for _, want := range []string{"INFO preprocess: done", "mode=valid shard.index=0"} {
		if !strings.Contains(lines[1], want) {
			t.Fatalf("expected %q in %q", want, lines[1])
		}
	}
}

func TestJSONLoggerLevelFiltering(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "warn", Outputs: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("dropped")
	logger.Warn("kept", logging.String(logging.FieldMode, "train"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %d: %q", len(lines), content)
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("decode json line: %v", err)
	}
	if entry["level"] != "warn" || entry["msg"] != "kept" || entry["mode"] != "train" {
		t.Fatalf("unexpected entry: %#v", entry)
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("expected ts key, got %#v", entry)
	}
}

type captureHandler struct {
	records []slog.Record
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	h.records = append(h.records, r)
	return nil
}

func (h *captureHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h *captureHandler) WithGroup(string) slog.Handler { return h }

func recordAttrs(r slog.Record) map[string]string {
	out := map[string]string{}
	r.Attrs(func(a slog.Attr) bool {
		out[a.Key] = a.Value.String()
		return true
	})
	return out
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	h := &captureHandler{}
	logging.WarnWithContext(slog.New(h), "cache stale", "annotation_cache_stale",
		logging.String(logging.FieldImpact, "cache rebuilt"),
	)
	if len(h.records) != 1 {
		t.Fatalf("expected one record, got %d", len(h.records))
	}
	attrs := recordAttrs(h.records[0])
	if attrs[logging.FieldEventType] != "annotation_cache_stale" {
		t.Fatalf("event_type = %q", attrs[logging.FieldEventType])
	}
	if attrs[logging.FieldErrorHint] == "" {
		t.Fatal("expected default error_hint")
	}
	if attrs[logging.FieldImpact] != "cache rebuilt" {
		t.Fatalf("impact overwritten: %q", attrs[logging.FieldImpact])
	}
}

func TestErrorWithContextKeepsExplicitHint(t *testing.T) {
	h := &captureHandler{}
	logging.ErrorWithContext(slog.New(h), "raw tables missing", "annotation_input_missing",
		logging.String(logging.FieldErrorHint, "check paths.data_root"),
	)
	attrs := recordAttrs(h.records[0])
	if attrs[logging.FieldErrorHint] != "check paths.data_root" {
		t.Fatalf("error_hint = %q", attrs[logging.FieldErrorHint])
	}
	if h.records[0].Level != slog.LevelError {
		t.Fatalf("level = %v, want error", h.records[0].Level)
	}
}

func TestNilLoggerHelpersAreSafe(t *testing.T) {
	logging.WarnWithContext(nil, "ignored", "noop")
	logging.ErrorWithContext(nil, "ignored", "noop")
	logger := logging.NewComponentLogger(nil, "test")
	logger.Info("discarded")
}

func TestDecisionAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	logger.Info("decision", logging.Args(logging.DecisionAttrs("annotation_cache", "hit", "schema valid")...)...)
	out := buf.String()
	for _, want := range []string{"decision_type=annotation_cache", "decision_result=hit", `decision_reason="schema valid"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}
}
