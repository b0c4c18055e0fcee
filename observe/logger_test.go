package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("failed to parse log output as JSON: %v\nOutput: %s", err, line)
		}
		entries = append(entries, entry)
	}
	return entries
}

// TestLogger_WritesJSON verifies the base entry shape.
func TestLogger_WritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	logger.Info(context.Background(), "request sent", F("host", "acct.blob.example.net"), F("try", 2))

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	e := entries[0]
	if e["msg"] != "request sent" {
		t.Errorf("msg = %v, want 'request sent'", e["msg"])
	}
	if e["level"] != "info" {
		t.Errorf("level = %v, want info", e["level"])
	}
	if e["host"] != "acct.blob.example.net" {
		t.Errorf("host = %v", e["host"])
	}
	if e["try"] != float64(2) {
		t.Errorf("try = %v, want 2", e["try"])
	}
	if _, ok := e["time"]; !ok {
		t.Error("time missing")
	}
}

// TestLogger_LevelFiltering verifies entries below the level are dropped.
func TestLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		level string
		want  int
	}{
		{"debug", 4},
		{"info", 3},
		{"warn", 2},
		{"error", 1},
		{"off", 0},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLoggerWithWriter(tt.level, &buf)
			ctx := context.Background()

			logger.Debug(ctx, "d")
			logger.Info(ctx, "i")
			logger.Warn(ctx, "w")
			logger.Error(ctx, "e")

			if got := len(decodeLines(t, &buf)); got != tt.want {
				t.Errorf("entries = %d, want %d", got, tt.want)
			}
		})
	}
}

// TestLogger_RedactsSensitiveFields verifies credentials never reach the output.
func TestLogger_RedactsSensitiveFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("debug", &buf).With(F("Authorization", "SharedKey acct:abc"))

	logger.Debug(context.Background(), "signed", F("sig", "secret-signature"), F("path", "/c/b"))

	out := buf.String()
	if strings.Contains(out, "abc") || strings.Contains(out, "secret-signature") {
		t.Fatalf("sensitive value leaked: %s", out)
	}
	e := decodeLines(t, &buf)[0]
	if e["path"] != "/c/b" {
		t.Errorf("path = %v, want /c/b", e["path"])
	}
	if e["Authorization"] != "[REDACTED]" {
		t.Errorf("Authorization = %v, want [REDACTED]", e["Authorization"])
	}
}

// TestLogger_WithDoesNotMutateParent verifies With returns an independent logger.
func TestLogger_WithDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := NewLoggerWithWriter("info", &buf)
	_ = parent.With(F("request_id", "r1"))

	parent.Info(context.Background(), "plain")

	e := decodeLines(t, &buf)[0]
	if _, ok := e["request_id"]; ok {
		t.Error("parent logger picked up child field")
	}
}

func TestLogger_FixedKeyOrder(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf).With(F("account", "acct"), F("try", 1))

	logger.Info(context.Background(), "sent", F("try", 2), F("host", "h"), F("msg", "shadow"))

	line := strings.TrimSpace(buf.String())
	want := []string{`{"time":`, `"level":"info","msg":"sent","account":"acct","try":2,"host":"h","field.msg":"shadow"}`}
	if !strings.HasPrefix(line, want[0]) || !strings.HasSuffix(line, want[1]) {
		t.Errorf("entry = %s, want keys in order %v", line, want)
	}
}

func TestLogger_ScrubsValues(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	logger.Info(context.Background(), "done",
		F("url", "https://acct.blob.example.net/c/b?sv=1&sig=abc%2Fdef&se=2"),
		F("error", errors.New("GET https://h/c?sig=zzz failed")),
	)

	out := buf.String()
	if strings.Contains(out, "abc%2Fdef") || strings.Contains(out, "zzz") {
		t.Fatalf("signature leaked: %s", out)
	}
	e := decodeLines(t, &buf)[0]
	if e["url"] != "https://acct.blob.example.net/c/b?sv=1&sig=REDACTED&se=2" {
		t.Errorf("url = %v", e["url"])
	}
	if e["error"] != "GET https://h/c?sig=REDACTED failed" {
		t.Errorf("error = %v, want the error message", e["error"])
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"warning": LevelWarn,
		"error":   LevelError,
		"none":    LevelOff,
		"bogus":   LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLogLevel(in); got != want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLogLevel_Enabled(t *testing.T) {
	if !LevelWarn.Enabled(LevelError) {
		t.Error("warn logger should emit error entries")
	}
	if LevelWarn.Enabled(LevelInfo) {
		t.Error("warn logger should drop info entries")
	}
	if LevelOff.Enabled(LevelError) {
		t.Error("off logger should drop everything")
	}
}
