// Package liblog configures the process wide zerolog logger and hands out
// component scoped children of it.
package liblog

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

var (
	mu   sync.RWMutex
	root = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).With().Timestamp().Logger()
)

// Setup replaces the root logger. With pretty set, output is human readable console text,
// otherwise one JSON object per line.
func Setup(out io.Writer, level Level, pretty bool) zerolog.Logger {
	if out == nil {
		out = os.Stderr
	}
	if pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	logger := zerolog.New(out).Level(ParseLevel(level)).With().Timestamp().Logger()

	mu.Lock()
	root = logger
	mu.Unlock()
	return logger
}

func ParseLevel(level Level) zerolog.Level {
	switch Level(strings.ToLower(string(level))) {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func Root() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root
}

// With returns a child of the root logger tagged with the component name.
func With(component string) zerolog.Logger {
	return Root().With().Str("component", component).Logger()
}
