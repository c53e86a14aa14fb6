// Package logging routes the standard logger to stderr and a rotating file,
// and drops [DEBUG] lines unless debug logging is enabled.
package logging

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync/atomic"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	// MaxFileSizeMB is the size at which the log file is rotated
	MaxFileSizeMB = 1

	// MaxBackups is how many rotated files are kept
	MaxBackups = 1

	// levelWindow is how far into a line the level tag is searched for,
	// covering the standard logger's date and time prefix.
	levelWindow = 48
)

var debugTag = []byte("[DEBUG]")

// Options configures Setup.
type Options struct {
	// File is the rotating log file; empty logs to Stderr only
	File  string
	Debug bool

	// Stderr defaults to os.Stderr
	Stderr io.Writer
}

// Setup points the standard logger at the configured outputs. Close the
// returned Output to release the log file and restore the previous output.
func Setup(opts Options) (*Output, error) {
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	out := &Output{previous: log.Writer()}
	writers := []io.Writer{stderr}

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		out.file = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    MaxFileSizeMB,
			MaxBackups: MaxBackups,
		}
		writers = append(writers, out.file)
	}

	out.filter = NewLevelFilter(io.MultiWriter(writers...), opts.Debug)
	log.SetOutput(out.filter)
	return out, nil
}

// Output is the installed log destination.
type Output struct {
	filter   *LevelFilter
	file     *lumberjack.Logger
	previous io.Writer
}

// SetDebug toggles [DEBUG] output at runtime.
func (o *Output) SetDebug(debug bool) {
	o.filter.SetDebug(debug)
}

// Close restores the previous log output and closes the log file.
func (o *Output) Close() error {
	log.SetOutput(o.previous)
	if o.file != nil {
		return o.file.Close()
	}
	return nil
}

// LevelFilter drops [DEBUG] lines unless debug is enabled.
type LevelFilter struct {
	w     io.Writer
	debug atomic.Bool
}

func NewLevelFilter(w io.Writer, debug bool) *LevelFilter {
	f := &LevelFilter{w: w}
	f.debug.Store(debug)
	return f
}

func (f *LevelFilter) SetDebug(debug bool) {
	f.debug.Store(debug)
}

// Write implements io.Writer. Filtered lines report success.
func (f *LevelFilter) Write(p []byte) (int, error) {
	if !f.debug.Load() && bytes.Contains(p[:min(len(p), levelWindow)], debugTag) {
		return len(p), nil
	}
	return f.w.Write(p)
}
