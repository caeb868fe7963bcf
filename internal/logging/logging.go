// Package logging builds the leveled loggers both binaries use.
package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/idilsaglam/cloudtodo/internal/config"
)

// New returns a logger writing to a rotating file when cfg.File is set,
// else to stderr. The returned closer flushes the file; it is a no-op for stderr.
func New(cfg config.Log, prefix string) (*log.Logger, io.Closer) {
	var (
		w      io.Writer = os.Stderr
		closer io.Closer = nopCloser{}
	)
	if cfg.File != "" {
		_ = os.MkdirAll(filepath.Dir(cfg.File), 0o755)
		lj := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			Compress:   true,
		}
		w, closer = lj, lj
	}

	logger := log.NewWithOptions(w, log.Options{
		Level:           ParseLevel(cfg.Level),
		ReportTimestamp: true,
		Prefix:          prefix,
	})
	if cfg.File != "" {
		logger.SetFormatter(log.LogfmtFormatter)
	}
	return logger, closer
}

// ParseLevel maps a level name to a log.Level; unknown names mean info.
func ParseLevel(s string) log.Level {
	lvl, err := log.ParseLevel(s)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
