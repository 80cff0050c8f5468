package log

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the process-wide logger. It writes to stderr until Init is called.
var Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

// Level is a log level name
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

var zerologLevels = map[Level]zerolog.Level{
	DebugLevel: zerolog.DebugLevel,
	InfoLevel:  zerolog.InfoLevel,
	WarnLevel:  zerolog.WarnLevel,
	ErrorLevel: zerolog.ErrorLevel,
}

// Config controls Init
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer // Defaults to stderr
}

// ParseLevel maps a level name to a Level. Unknown names give InfoLevel.
func ParseLevel(s string) Level {
	name := Level(strings.ToLower(strings.TrimSpace(s)))
	if name == "warning" {
		return WarnLevel
	}
	if _, ok := zerologLevels[name]; ok {
		return name
	}
	return InfoLevel
}

// Init replaces the global logger
func Init(cfg Config) {
	level, ok := zerologLevels[cfg.Level]
	if !ok {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Stdout is reserved for check output and inspection reports
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if !cfg.JSONOutput {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	Logger = zerolog.New(out).With().Timestamp().Logger()
}

// WithComponent returns a child of the global logger tagged with component
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithRunID adds the check run ID
func WithRunID(l zerolog.Logger, runID string) zerolog.Logger {
	return l.With().Str("run_id", runID).Logger()
}

// WithContext adds the execution context name
func WithContext(l zerolog.Logger, contextName string) zerolog.Logger {
	return l.With().Str("context", contextName).Logger()
}

// WithNamespace adds the network namespace name
func WithNamespace(l zerolog.Logger, namespace string) zerolog.Logger {
	return l.With().Str("namespace", namespace).Logger()
}

// WithRouterID adds the router ID
func WithRouterID(l zerolog.Logger, routerID string) zerolog.Logger {
	return l.With().Str("router_id", routerID).Logger()
}
