package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestLogLevelString(t *testing.T) {
	cases := []struct {
		level LogLevel
		want  string
	}{
		{DEBUG, "DEBUG"},
		{INFO, "INFO"},
		{WARN, "WARN"},
		{ERROR, "ERROR"},
		{LogLevel(99), "UNKNOWN"},
	}
	for _, c := range cases {
		if got := c.level.String(); got != c.want {
			t.Errorf("LogLevel(%d).String() = %q, want %q", c.level, got, c.want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want LogLevel
	}{
		{"debug", DEBUG},
		{"INFO", INFO},
		{"Warn", WARN},
		{"warning", WARN},
		{"error", ERROR},
		{"fatal", FATAL},
		{"  info ", INFO},
		{"bogus", INFO},
		{"", INFO},
	}
	for _, c := range cases {
		if got := ParseLevel(c.in); got != c.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	l := NewLogger("test")
	var buf bytes.Buffer
	l.SetOutput(&buf)
	l.SetLevel(WARN)

	l.Debugf("debug message")
	l.Infof("info message")
	l.Warnf("warn message")
	l.Errorf("error message")

	out := buf.String()
	if strings.Contains(out, "debug message") {
		t.Errorf("DEBUG message logged at WARN level")
	}
	if strings.Contains(out, "info message") {
		t.Errorf("INFO message logged at WARN level")
	}
	if !strings.Contains(out, "warn message") {
		t.Errorf("WARN message missing at WARN level")
	}
	if !strings.Contains(out, "error message") {
		t.Errorf("ERROR message missing at WARN level")
	}
}

func TestPrefixAndLevelTag(t *testing.T) {
	l := NewLogger("battle-scheduler")
	var buf bytes.Buffer
	l.SetOutput(&buf)

	l.Infof("tick %d", 7)

	out := buf.String()
	if !strings.Contains(out, "[battle-scheduler]") {
		t.Errorf("output missing component prefix: %q", out)
	}
	if !strings.Contains(out, "[INFO]") {
		t.Errorf("output missing level tag: %q", out)
	}
	if !strings.Contains(out, "tick 7") {
		t.Errorf("output missing formatted message: %q", out)
	}
}

func TestSetLevelRoundTrip(t *testing.T) {
	l := NewLogger("x")
	l.SetLevel(ERROR)
	if l.GetLevel() != ERROR {
		t.Fatalf("GetLevel() = %v, want ERROR", l.GetLevel())
	}
}
