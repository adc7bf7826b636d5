package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Config holds logger configuration.
type Config struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Output string `json:"output"` // "stdout", "stderr", or file path
	Pretty bool   `json:"pretty"` // human-readable console output
}

// Logger is a structured logger. It accepts key-value pairs after the
// message, e.g. log.Info("cycle done", "symbol", sym, "action", act).
type Logger struct {
	zl zerolog.Logger
}

// New creates a logger from the given configuration.
func New(cfg Config) *Logger {
	var output io.Writer = os.Stdout
	if cfg.Output == "stderr" {
		output = os.Stderr
	} else if cfg.Output != "" && cfg.Output != "stdout" {
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err == nil {
			output = file
		}
	}

	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output}
	}

	level := parseLevel(cfg.Level)
	zl := zerolog.New(output).Level(level).With().Timestamp().Logger()
	return &Logger{zl: zl}
}

// Nop returns a logger that discards everything. Useful in tests.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// WithComponent returns a logger tagged with a component name.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{zl: l.zl.With().Str("component", component).Logger()}
}

// WithField returns a logger with an additional field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{zl: l.zl.With().Interface(key, value).Logger()}
}

// Debug logs a debug message with optional key-value pairs.
func (l *Logger) Debug(msg string, kv ...interface{}) {
	emit(l.zl.Debug(), msg, kv)
}

// Info logs an info message with optional key-value pairs.
func (l *Logger) Info(msg string, kv ...interface{}) {
	emit(l.zl.Info(), msg, kv)
}

// Warn logs a warning message with optional key-value pairs.
func (l *Logger) Warn(msg string, kv ...interface{}) {
	emit(l.zl.Warn(), msg, kv)
}

// Error logs an error message with optional key-value pairs.
func (l *Logger) Error(msg string, kv ...interface{}) {
	emit(l.zl.Error(), msg, kv)
}

// Fatal logs a fatal message and exits.
func (l *Logger) Fatal(msg string, kv ...interface{}) {
	emit(l.zl.Fatal(), msg, kv)
}

func emit(ev *zerolog.Event, msg string, kv []interface{}) {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprintf("arg%d", i)
		}
		if err, isErr := kv[i+1].(error); isErr {
			if err != nil {
				ev = ev.Str(key, err.Error())
			}
			continue
		}
		ev = ev.Interface(key, kv[i+1])
	}
	ev.Msg(msg)
}
