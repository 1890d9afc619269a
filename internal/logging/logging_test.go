package logging

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewManager_DefaultConfig(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Output = &buf
	mgr, logger := NewManager(cfg)
	defer mgr.Close() //nolint:errcheck

	logger.Info("ready", slog.String("component", "test"))

	if mgr.Config().Level != "info" {
		t.Errorf("expected level info, got %s", mgr.Config().Level)
	}
	if !strings.Contains(buf.String(), "msg=ready") {
		t.Errorf("expected text output, got %q", buf.String())
	}
}

func TestManager_LevelSwap(t *testing.T) {
	mgr, logger := NewManager(Config{Level: "info", Format: "json", Output: &bytes.Buffer{}})
	defer mgr.Close() //nolint:errcheck

	if !logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("expected info to be enabled")
	}
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("expected debug to be disabled")
	}

	if mgr.Reconfigure(Config{Level: "debug", Format: "json", Output: mgr.Config().Output}) {
		t.Error("level-only change should not rebuild the handler")
	}
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("expected debug to be enabled after reconfigure")
	}

	mgr.Reconfigure(Config{Level: "error", Format: "json", Output: mgr.Config().Output})
	if logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("expected info to be disabled when level is error")
	}
}

func TestManager_DerivedLoggersFollowSwap(t *testing.T) {
	var first, second bytes.Buffer
	mgr, logger := NewManager(Config{Level: "info", Format: "text", Output: &first})
	defer mgr.Close() //nolint:errcheck

	component := logger.With(slog.String("component", "filter")).WithGroup("run")

	if !mgr.Reconfigure(Config{Level: "info", Format: "json", Output: &second}) {
		t.Fatal("expected handler rebuild on format change")
	}
	component.Info("done", slog.Int("matches", 3))

	if first.Len() != 0 {
		t.Errorf("old output should be unused after swap, got %q", first.String())
	}
	out := second.String()
	if !strings.Contains(out, `"component":"filter"`) {
		t.Errorf("expected component attr in json output, got %q", out)
	}
	if !strings.Contains(out, `"run":{"matches":3}`) {
		t.Errorf("expected grouped attr in json output, got %q", out)
	}
}

func TestManager_FileOutput(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "recfinder.log")

	mgr, logger := NewManager(Config{
		Level:          "info",
		Format:         "json",
		FilePath:       logFile,
		FileMaxSizeMB:  1,
		FileMaxFiles:   1,
		FileMaxAgeDays: 1,
		Output:         &bytes.Buffer{},
	})

	logger.Info("hello from test")

	if err := mgr.Close(); err != nil {
		t.Fatalf("closing manager: %v", err)
	}

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "hello from test") {
		t.Errorf("expected log file to contain the message, got %q", data)
	}
}

func TestManager_CloseIdempotent(t *testing.T) {
	mgr, _ := NewManager(DefaultConfig())
	if err := mgr.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := mgr.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in  string
		out slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"unknown", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.out {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.out)
		}
	}
}

func TestConfig_String(t *testing.T) {
	cfg := Config{Level: "info", Format: "json"}
	if s := cfg.String(); s != "level=info format=json" {
		t.Errorf("unexpected string: %s", s)
	}

	cfg.FilePath = "/var/log/recfinder.log"
	if s := cfg.String(); s != "level=info format=json file=/var/log/recfinder.log" {
		t.Errorf("unexpected string: %s", s)
	}
}
