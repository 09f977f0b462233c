// Package logging provides structured logging configuration using zerolog and
// an adapter implementing crm.Logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fivetwenty-io/crm-client/pkg/crm"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"
	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"
	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"
	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	Level LogLevel
	// Pretty enables human-readable console output instead of JSON.
	Pretty bool
	// Output defaults to os.Stderr.
	Output io.Writer
}

// DefaultConfig returns the default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger and returns it.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(ParseLevel(cfg.Level))

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}

	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

// ParseLevel converts a LogLevel to a zerolog.Level. Unknown levels map to info.
func ParseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger returns the global logger tagged with a component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Adapter exposes a zerolog.Logger as a crm.Logger. Field values that look
// like credentials are redacted.
type Adapter struct {
	logger zerolog.Logger
}

var _ crm.Logger = (*Adapter)(nil)

// NewAdapter wraps logger.
func NewAdapter(logger zerolog.Logger) *Adapter {
	return &Adapter{logger: logger}
}

// Debug implements crm.Logger.
func (a *Adapter) Debug(msg string, fields map[string]interface{}) {
	a.write(a.logger.Debug(), msg, fields)
}

// Info implements crm.Logger.
func (a *Adapter) Info(msg string, fields map[string]interface{}) {
	a.write(a.logger.Info(), msg, fields)
}

// Warn implements crm.Logger.
func (a *Adapter) Warn(msg string, fields map[string]interface{}) {
	a.write(a.logger.Warn(), msg, fields)
}

// Error implements crm.Logger.
func (a *Adapter) Error(msg string, fields map[string]interface{}) {
	a.write(a.logger.Error(), msg, fields)
}

func (a *Adapter) write(event *zerolog.Event, msg string, fields map[string]interface{}) {
	if event == nil {
		return
	}

	for key, value := range fields {
		if text, ok := value.(string); ok {
			event = event.Str(key, crm.RedactSecrets(text))

			continue
		}

		event = event.Interface(key, value)
	}

	event.Msg(msg)
}
