package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
)

const (
	Grey   = "\033[90m"
	Cyan   = "\033[36m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Red    = "\033[31m"
)

const resetColor = "\033[0m"

// Paint wraps s in an ANSI colour.
func Paint(color, s string) string {
	return color + s + resetColor
}

func IsTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		fi, err := f.Stat()
		if err != nil {
			return false
		}
		return (fi.Mode() & os.ModeCharDevice) != 0
	}
	return false
}

// ParseLevel maps a -log-level value onto a slog level. The second result is
// false for "none" and unknown names, meaning logging is off.
func ParseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(s) {
	case "debug", "trace":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelError, false
	}
}

// File is an append-only log file that is reopened on SIGHUP, so it can be
// rotated underneath a running process:
//
//	mv lox.log lox.bak && kill -HUP <pid>
type File struct {
	path string
	fh   *os.File
	sigs chan os.Signal
	mu   sync.Mutex
}

// OpenFile opens path for appending, creating parent directories as needed.
func OpenFile(path string) (*File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory for '%s': %w", path, err)
	}
	fh, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file '%s': %w", path, err)
	}

	f := &File{path: path, fh: fh, sigs: make(chan os.Signal, 1)}
	signal.Notify(f.sigs, syscall.SIGHUP)
	go func() {
		for range f.sigs {
			if err := f.reopen(); err != nil {
				fmt.Fprintf(os.Stderr, "could not reopen log file: %v\n", err)
			}
		}
	}()
	return f, nil
}

func (f *File) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fh.Write(p)
}

func (f *File) reopen() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	fh, err := os.OpenFile(f.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	_ = f.fh.Close()
	f.fh = fh
	return nil
}

func (f *File) Close() error {
	signal.Stop(f.sigs)
	close(f.sigs)

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fh.Close()
}
