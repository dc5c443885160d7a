// Package logging provides a shared logger and log utilities to be used in
// all internal packages.
package logging

import (
	"io"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// L is the shared logger. It is initialized to a console logger, and
// adjusted by SetLevel during startup.
var L = newLogger(os.Stderr)

func newLogger(out io.Writer) zerolog.Logger {
	writer := out
	if isTerminal() {
		writer = &zerolog.ConsoleWriter{
			Out:         out,
			TimeFormat:  time.RFC3339,
			FormatLevel: consoleFormatLevel,
		}
	}

	return zerolog.New(writer).With().Timestamp().Caller().Logger()
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}

// SetLevel parses the level string and applies it to L.
func SetLevel(level string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return err
	}
	L = L.Level(lvl)
	return nil
}

// PatchLogger sets the package level logger to write to the writer for the
// duration of the test, and restores the original logger on cleanup.
func PatchLogger(t *testing.T, writer io.Writer) {
	t.Helper()
	origL := L
	L = zerolog.New(writer)

	t.Cleanup(func() {
		L = origL
	})
}

func Debugf(format string, args ...interface{}) {
	L.Debug().CallerSkipFrame(1).Msgf(format, args...)
}

func Infof(format string, args ...interface{}) {
	L.Info().CallerSkipFrame(1).Msgf(format, args...)
}

func Warnf(format string, args ...interface{}) {
	L.Warn().CallerSkipFrame(1).Msgf(format, args...)
}

func Errorf(format string, args ...interface{}) {
	L.Error().CallerSkipFrame(1).Msgf(format, args...)
}
