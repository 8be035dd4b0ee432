package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  log.Level
	}{
		{"debug", log.DebugLevel},
		{"info", log.InfoLevel},
		{"warn", log.WarnLevel},
		{"warning", log.WarnLevel},
		{"ERROR", log.ErrorLevel},
		{" fatal ", log.FatalLevel},
		{"", log.WarnLevel},
		{"loud", log.WarnLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseFormatter(t *testing.T) {
	tests := []struct {
		input string
		want  log.Formatter
	}{
		{"json", log.JSONFormatter},
		{"logfmt", log.LogfmtFormatter},
		{"text", log.TextFormatter},
		{"JSON", log.JSONFormatter},
		{"", log.TextFormatter},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseFormatter(tt.input); got != tt.want {
				t.Errorf("ParseFormatter(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	if opts.Level != log.WarnLevel {
		t.Errorf("Level: got %v, want warn", opts.Level)
	}
	if opts.Prefix != DefaultPrefix {
		t.Errorf("Prefix: got %q, want %q", opts.Prefix, DefaultPrefix)
	}
	if opts.ReportTimestamp || opts.ReportCaller {
		t.Error("timestamps and caller should be off by default")
	}
}

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	opts := DefaultOptions()
	opts.Output = &buf
	logger := New(opts)

	logger.Debug("hidden")
	logger.Info("hidden too")
	logger.Warn("shown", "id", 3)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("below-level messages written:\n%s", out)
	}
	for _, want := range []string{"todos", "WARN", "shown", "id=3"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestNewJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{
		Level:     log.DebugLevel,
		Formatter: log.JSONFormatter,
		Output:    &buf,
	})
	logger.Debug("store: task created", "id", 1)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if entry["msg"] != "store: task created" {
		t.Errorf("msg: got %v", entry["msg"])
	}
	if entry["id"] != float64(1) {
		t.Errorf("id: got %v", entry["id"])
	}
}

func TestNewFromConfig(t *testing.T) {
	logger := NewFromConfig("debug", "logfmt", true, false, "todos")
	if logger == nil {
		t.Fatal("NewFromConfig returned nil")
	}
	if logger.GetLevel() != log.DebugLevel {
		t.Errorf("level: got %v, want debug", logger.GetLevel())
	}
	if logger.GetPrefix() != "todos" {
		t.Errorf("prefix: got %q, want todos", logger.GetPrefix())
	}
}

func TestNewTest(t *testing.T) {
	var buf bytes.Buffer
	logger := NewTest(&buf)
	logger.Debug("debug line")
	if !strings.Contains(buf.String(), "debug line") {
		t.Errorf("NewTest logger dropped debug output: %q", buf.String())
	}
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	if logger == nil {
		t.Fatal("Discard returned nil")
	}
	logger.Error("dropped", "key", "value")
	logger.With("component", "store").Warn("dropped too")
}
