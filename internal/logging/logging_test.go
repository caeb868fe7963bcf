package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/idilsaglam/cloudtodo/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]log.Level{
		"debug": log.DebugLevel,
		"warn":  log.WarnLevel,
		"error": log.ErrorLevel,
		"bogus": log.InfoLevel,
		"":      log.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "todo.log")
	logger, closer := New(config.Log{File: path, Level: "info", MaxSizeMB: 1}, "todo")
	logger.Info("hello", "op", "load")
	logger.Debug("hidden")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(b)
	if !strings.Contains(out, "hello") || !strings.Contains(out, "op=load") {
		t.Errorf("log = %q, want message and op field", out)
	}
	if strings.Contains(out, "hidden") {
		t.Error("debug line written at info level")
	}
}
