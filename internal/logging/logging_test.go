package logging

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joaomamede/lowCostHCA/internal/config"
)

func TestSetup_WritesLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "server.log")

	cleanup, err := Setup(config.LoggingConfig{File: path, MaxSizeMB: 1, MaxBackups: 1})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	log.Printf("[Test] hello rotation")
	cleanup()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "[Test] hello rotation") {
		t.Fatalf("log file missing entry: %q", data)
	}
}

func TestSetup_StderrOnly(t *testing.T) {
	cleanup, err := Setup(config.LoggingConfig{})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	cleanup()
	if log.Writer() != os.Stderr {
		t.Fatalf("expected stderr output")
	}
}
