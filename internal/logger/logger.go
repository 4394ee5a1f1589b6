// Package logger provides verbose logging for the diarymem CLI.
// When verbose mode is enabled via the --verbose flag, debug messages
// are printed to stderr to help users follow indexing, search and
// analysis runs. Errors are always printed.
//
// Output is rendered by a zerolog console writer.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu      sync.RWMutex
	verbose bool
	log     = newLogger(os.Stderr)
)

// newLogger builds a console logger without timestamps or colour so
// output stays stable in pipes and tests.
func newLogger(w io.Writer) zerolog.Logger {
	cw := zerolog.ConsoleWriter{
		Out:          w,
		NoColor:      true,
		PartsExclude: []string{zerolog.TimestampFieldName},
	}
	return zerolog.New(cw).Level(zerolog.DebugLevel)
}

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	log = newLogger(w)
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		log.Debug().Msg(fmt.Sprintf(format, args...))
	}
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		log.Info().Msg(fmt.Sprintf("=== %s ===", name))
	}
}

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		log.Info().Msg(fmt.Sprintf(format, args...))
	}
}

// Warn prints a warning message if verbose mode is enabled.
func Warn(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		log.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

// Error prints an error message regardless of verbose mode.
func Error(err error, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	log.Error().Err(err).Msg(fmt.Sprintf(format, args...))
}
