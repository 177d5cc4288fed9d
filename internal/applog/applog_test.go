package applog_test

import (
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zsprackett/cursor-usage/internal/applog"
)

// restoreDefaults undoes the global changes Init makes.
func restoreDefaults(t *testing.T) {
	prev := slog.Default()
	prevFlags := log.Flags()
	t.Cleanup(func() {
		slog.SetDefault(prev)
		log.SetOutput(os.Stderr)
		log.SetFlags(prevFlags)
	})
}

func TestInit_CreatesDirAndWrites(t *testing.T) {
	restoreDefaults(t)
	dir := filepath.Join(t.TempDir(), "nested", "logs")

	logger, closer, err := applog.Init(applog.InitConfig{LogDir: dir, LogLevel: "info"})
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("hello from test", "k", "v")
	logger.Debug("should be filtered")
	closer.Close()

	data, err := os.ReadFile(filepath.Join(dir, applog.FileName))
	if err != nil {
		t.Fatalf("log file missing: %v", err)
	}
	if !strings.Contains(string(data), "hello from test") {
		t.Errorf("log line not written: %q", data)
	}
	if strings.Contains(string(data), "should be filtered") {
		t.Error("debug line written at info level")
	}
}

func TestInit_RedirectsDefaults(t *testing.T) {
	restoreDefaults(t)
	dir := t.TempDir()

	_, closer, err := applog.Init(applog.InitConfig{LogDir: dir, LogLevel: "debug"})
	if err != nil {
		t.Fatal(err)
	}
	slog.Debug("via slog default")
	log.Print("via stdlib log")
	closer.Close()

	data, err := os.ReadFile(filepath.Join(dir, applog.FileName))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"via slog default", "via stdlib log"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("missing %q in %q", want, data)
		}
	}
}

func TestInit_BadDir(t *testing.T) {
	restoreDefaults(t)
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := applog.Init(applog.InitConfig{LogDir: filepath.Join(file, "logs")}); err == nil {
		t.Error("expected error when log dir is under a regular file")
	}
}

func TestNewRotatorLimits(t *testing.T) {
	r := applog.NewRotator("/tmp/x")
	if r.Filename != filepath.Join("/tmp/x", applog.FileName) {
		t.Errorf("filename: %q", r.Filename)
	}
	if r.MaxSize != 10 || r.MaxBackups != 7 || r.MaxAge != 7 {
		t.Errorf("limits: %d/%d/%d", r.MaxSize, r.MaxBackups, r.MaxAge)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tc := range tests {
		if got := applog.ParseLevel(tc.in); got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
