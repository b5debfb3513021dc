package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func captureJSON(t *testing.T) *bytes.Buffer {
	t.Helper()
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
	var buf bytes.Buffer
	SetupWriter(&buf, "debug", "json")
	return &buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decoding log line %q: %v", buf.String(), err)
	}
	return entry
}

func TestWithComponent(t *testing.T) {
	buf := captureJSON(t)
	WithComponent("indexer").Info("index built", "terms", 3)

	entry := decodeLine(t, buf)
	if entry["component"] != "indexer" || entry["terms"] != float64(3) {
		t.Errorf("log entry = %v", entry)
	}
}

func TestFromContextCarriesRequestID(t *testing.T) {
	buf := captureJSON(t)
	ctx := WithRequestID(context.Background(), "req-1")
	FromContext(ctx).Info("search completed")

	entry := decodeLine(t, buf)
	if entry["request_id"] != "req-1" {
		t.Errorf("request_id = %v, want req-1", entry["request_id"])
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"info":  slog.LevelInfo,
		"":      slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
