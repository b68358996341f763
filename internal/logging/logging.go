// Package logging builds the component loggers used across devsync.
//
// Each subsystem gets a *log.Logger with a bracketed prefix so interleaved
// output stays attributable. Output goes to stderr by default, or to a
// size-rotated file when one is configured.
package logging

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects the log destination.
type Options struct {
	// File receives log output when set; empty means stderr.
	File string

	// MaxSizeMB is the rotation threshold. Zero means lumberjack's default.
	MaxSizeMB int

	// MaxBackups is how many rotated files to keep.
	MaxBackups int
}

// NewWriter returns the shared log destination for the given options.
func NewWriter(opts Options) io.Writer {
	if opts.File == "" {
		return os.Stderr
	}
	return &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
	}
}

// New returns a logger for one component, e.g. New("watcher", w) prefixes
// every line with "[watcher] ".
func New(component string, w io.Writer) *log.Logger {
	return log.New(w, "["+component+"] ", log.LstdFlags)
}
