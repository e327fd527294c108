package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    Level
		wantErr bool
	}{
		{"trace", LevelTrace, false},
		{"debug", LevelDebug, false},
		{"info", LevelInfo, false},
		{"warn", LevelWarn, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"", LevelInfo, false},       // empty defaults to info
		{"TRACE", LevelTrace, false}, // case-insensitive
		{"Debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"invalid", 0, true},
		{"verbose", 0, true},
		{"fatal", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseLevel(%q) should return error", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseLevel(%q) unexpected error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestWarnOnce(t *testing.T) {
	resetWarned()
	t.Cleanup(resetWarned)

	var buf bytes.Buffer
	SetOutput(&buf)
	SetColored(false)
	t.Cleanup(func() {
		SetOutput(nil)
		SetColored(true)
	})

	log := New("test")
	if !log.WarnOnce("launcher-missing", "launcher %s missing", "srt") {
		t.Fatal("first WarnOnce should emit")
	}
	if log.WarnOnce("launcher-missing", "launcher %s missing", "srt") {
		t.Fatal("second WarnOnce with the same key should be suppressed")
	}
	// Keys are shared across loggers.
	if New("other").WarnOnce("launcher-missing", "again") {
		t.Fatal("WarnOnce key should be process-wide")
	}

	out := buf.String()
	if got := strings.Count(out, "launcher srt missing"); got != 1 {
		t.Fatalf("warning emitted %d times, want 1; output:\n%s", got, out)
	}
	if !strings.Contains(out, "[WARN] [test]") {
		t.Errorf("output missing level/prefix: %q", out)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetColored(false)
	SetGlobalLevel(LevelWarn)
	t.Cleanup(func() {
		SetOutput(nil)
		SetColored(true)
		SetGlobalLevel(LevelInfo)
	})

	log := New("filter")
	log.Info("hidden")
	log.Debug("hidden")
	log.Error("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("messages below the global level were written: %q", out)
	}
	if !strings.Contains(out, "[ERROR] [filter] shown") {
		t.Errorf("error message missing: %q", out)
	}
}
