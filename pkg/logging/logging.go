// Package logging provides the structured, per-coin-tagged logging the
// wallet daemon and its background processor use: every component
// (walletcore, processor, or a specific coin ticker) gets its own
// prefixed logger, and the wire format can be switched to JSON for
// log-aggregation pipelines without touching a single call site.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Level is a log severity.
type Level = log.Level

const (
	DebugLevel = log.DebugLevel
	InfoLevel  = log.InfoLevel
	WarnLevel  = log.WarnLevel
	ErrorLevel = log.ErrorLevel
	FatalLevel = log.FatalLevel
)

// Format selects the wire encoding a Logger writes.
type Format int

const (
	// TextFormat is human-readable key=value output, the default for
	// a daemon run attached to a terminal.
	TextFormat Format = iota
	// JSONFormat emits one JSON object per line, for daemons running
	// under a log collector.
	JSONFormat
)

func (f Format) formatter() log.Formatter {
	if f == JSONFormat {
		return log.JSONFormatter
	}
	return log.TextFormatter
}

// parseFormat maps a config string ("json"/"text", case-insensitive,
// defaulting to text) to a Format.
func parseFormat(s string) Format {
	if strings.EqualFold(s, "json") {
		return JSONFormat
	}
	return TextFormat
}

// Logger tags every line it writes with a component name (a package
// like "walletcore", or a coin ticker like "BTC") and wraps
// charmbracelet/log for the underlying level/format machinery.
type Logger struct {
	*log.Logger
	timeFormat string
	format     Format
}

// Config holds logger configuration, as loaded from internal/config's
// LOG_LEVEL/LOG_FORMAT keys.
type Config struct {
	Level      string
	Format     string // "text" (default) or "json"
	TimeFormat string
	Prefix     string
	Output     io.Writer
}

// DefaultConfig returns text-format, info-level logging to stderr.
func DefaultConfig() *Config {
	return &Config{
		Level:      "info",
		Format:     "text",
		TimeFormat: time.TimeOnly,
		Output:     os.Stderr,
	}
}

// New builds a Logger from cfg, defaulting any zero-valued field.
func New(cfg *Config) *Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	timeFormat := cfg.TimeFormat
	if timeFormat == "" {
		timeFormat = time.TimeOnly
	}
	format := parseFormat(cfg.Format)

	logger := log.NewWithOptions(output, log.Options{
		ReportTimestamp: true,
		TimeFormat:      timeFormat,
		Prefix:          cfg.Prefix,
		Formatter:       format.formatter(),
	})
	logger.SetLevel(ParseLevel(cfg.Level))

	return &Logger{Logger: logger, timeFormat: timeFormat, format: format}
}

// Default returns a text-format, info-level logger to stderr.
func Default() *Logger {
	return New(DefaultConfig())
}

// ParseLevel maps a config string to a Level, defaulting to info on
// anything unrecognized.
func ParseLevel(level string) Level {
	switch strings.ToLower(level) {
	case "debug":
		return DebugLevel
	case "info":
		return InfoLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	case "fatal":
		return FatalLevel
	default:
		return InfoLevel
	}
}

// With returns a logger carrying the given key-value pairs on every
// subsequent line, same prefix and level.
func (l *Logger) With(keyvals ...interface{}) *Logger {
	return &Logger{Logger: l.Logger.With(keyvals...), timeFormat: l.timeFormat, format: l.format}
}

// Component returns a logger tagged with name as its prefix, at the
// same level and format as l. Used to scope a logger to a package
// ("walletcore", "processor") for the lifetime of the value that
// holds it.
func (l *Logger) Component(name string) *Logger {
	child := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      l.timeFormat,
		Prefix:          name,
		Formatter:       l.format.formatter(),
	})
	child.SetLevel(l.GetLevel())
	return &Logger{Logger: child, timeFormat: l.timeFormat, format: l.format}
}

// ForCoin returns a logger tagged with ticker as its component, the
// form every per-coin operation in the background processor logs
// under.
func (l *Logger) ForCoin(ticker string) *Logger {
	return l.Component(ticker)
}

var defaultLogger = Default()

// SetDefault replaces the process-wide default logger.
func SetDefault(l *Logger) {
	defaultLogger = l
}

// GetDefault returns the process-wide default logger.
func GetDefault() *Logger {
	return defaultLogger
}
