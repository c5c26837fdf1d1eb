package plog

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestTextHandlerIncludesWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(slog.LevelInfo, FormatText, &buf).With("user_id", 42)

	logger.Info("sync finished", "upserted", 3)

	line := buf.String()
	if !strings.HasPrefix(line, "INF sync finished") {
		t.Fatalf("unexpected prefix: %q", line)
	}
	if !strings.Contains(line, "user_id=42") || !strings.Contains(line, "upserted=3") {
		t.Fatalf("expected both attrs in %q", line)
	}
}

func TestTextHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(slog.LevelWarn, FormatText, &buf)

	logger.Info("hidden")
	logger.Warn("shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Fatalf("info line should be filtered: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "WRN shown") {
		t.Fatalf("warn line missing: %q", buf.String())
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(slog.LevelDebug, FormatJSON, &buf)

	logger.Debug("weights loaded", "count", 3)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected json output, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "weights loaded" {
		t.Fatalf("unexpected msg: %v", entry["msg"])
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
