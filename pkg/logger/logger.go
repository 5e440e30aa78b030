// Package logger constructs the application-wide slog logger.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Options controls logger construction.
type Options struct {
	// Level is one of debug, info, warn, error.
	Level string
	// Dir, when set, tees log output into a per-day rolling file
	// health-monitor-YYYY-MM-DD.log under this directory.
	Dir string
}

// New builds a text slog logger writing to stdout and, when Options.Dir is
// set, to a daily rolling log file. An unparseable level falls back to info.
func New(opts Options) (*slog.Logger, error) {
	var w io.Writer = os.Stdout
	if opts.Dir != "" {
		rw, err := newRollingWriter(opts.Dir)
		if err != nil {
			return nil, err
		}
		w = io.MultiWriter(os.Stdout, rw)
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: parseLevel(opts.Level)})
	return slog.New(handler), nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// rollingWriter appends to one log file per calendar day, reopening the
// target when the local date changes.
type rollingWriter struct {
	dir string

	mu   sync.Mutex
	day  string
	file *os.File
}

func newRollingWriter(dir string) (*rollingWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("error creating log directory: %w", err)
	}
	w := &rollingWriter{dir: dir}
	if err := w.rotate(time.Now()); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *rollingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	now := time.Now()
	if day := now.Format("2006-01-02"); day != w.day {
		if err := w.rotate(now); err != nil {
			return 0, err
		}
	}
	return w.file.Write(p)
}

func (w *rollingWriter) rotate(now time.Time) error {
	day := now.Format("2006-01-02")
	path := filepath.Join(w.dir, fmt.Sprintf("health-monitor-%s.log", day))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("error opening log file: %w", err)
	}
	if w.file != nil {
		_ = w.file.Close()
	}
	w.file = f
	w.day = day
	return nil
}
