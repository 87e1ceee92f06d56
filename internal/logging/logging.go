// Package logging routes the standard logger to stderr and, optionally, a
// rotated log file.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/joaomamede/lowCostHCA/internal/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Setup configures the standard logger. The returned function closes the
// log file and must be called on shutdown.
func Setup(cfg config.LoggingConfig) (func(), error) {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if cfg.File == "" {
		log.SetOutput(os.Stderr)
		return func() {}, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	// lumberjack handles log rotation
	lj := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		LocalTime:  true,
	}
	log.SetOutput(io.MultiWriter(os.Stderr, lj))

	cleanup := func() {
		log.SetOutput(os.Stderr)
		if err := lj.Close(); err != nil {
			log.Printf("[Logging] failed to close log file: %v", err)
		}
	}
	return cleanup, nil
}
