package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNew_JSONWithServiceAndRedaction(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Output: &buf, Service: "reservations", Level: "debug"})

	log.Debug("hold placed", "slot_id", "s1", "token", "secret-token")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if rec["service"] != "reservations" {
		t.Errorf("expected service attribute, got %v", rec["service"])
	}
	if rec["slot_id"] != "s1" {
		t.Errorf("expected slot_id attribute, got %v", rec["slot_id"])
	}
	if rec["token"] != redacted {
		t.Errorf("expected token to be redacted, got %v", rec["token"])
	}
}

func TestNew_TextFormatAndLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Output: &buf, Format: "TEXT", Level: "warn"})

	log.Info("dropped")
	log.With("court_id", "c1").Warn("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("info record should be filtered at warn level: %q", out)
	}
	if !strings.Contains(out, "msg=kept") || !strings.Contains(out, "court_id=c1") {
		t.Errorf("unexpected text output %q", out)
	}
}
