package interview

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps zerolog for structured logging
type Logger struct {
	logger zerolog.Logger
}

// LogLevel represents the logging level
type LogLevel int

const (
	TraceLevel LogLevel = iota
	DebugLevel
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

// LogConfig represents the configuration for logging
type LogConfig struct {
	Level     LogLevel
	Pretty    bool
	Output    io.Writer
	File      string // when set, logs also rotate into this file
	AddSource bool
	Fields    map[string]interface{}
}

// DefaultLogConfig returns a default logging configuration
func DefaultLogConfig() *LogConfig {
	return &LogConfig{
		Level:     InfoLevel,
		Pretty:    true,
		Output:    os.Stdout,
		AddSource: false,
		Fields:    make(map[string]interface{}),
	}
}

// NewLogger creates a new structured logger
func NewLogger(config *LogConfig) *Logger {
	if config == nil {
		config = DefaultLogConfig()
	}

	zerolog.TimeFieldFormat = time.RFC3339

	output := config.Output
	if config.File != "" {
		rotating := &lumberjack.Logger{
			Filename:   config.File,
			MaxSize:    20, // megabytes
			MaxBackups: 5,
			MaxAge:     14, // days
		}
		if output != nil {
			output = io.MultiWriter(output, rotating)
		} else {
			output = rotating
		}
	}

	var logger zerolog.Logger
	if config.Pretty {
		logger = log.Output(zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.Kitchen,
		})
	} else {
		logger = zerolog.New(output)
	}

	switch config.Level {
	case TraceLevel:
		logger = logger.Level(zerolog.TraceLevel)
	case DebugLevel:
		logger = logger.Level(zerolog.DebugLevel)
	case InfoLevel:
		logger = logger.Level(zerolog.InfoLevel)
	case WarnLevel:
		logger = logger.Level(zerolog.WarnLevel)
	case ErrorLevel:
		logger = logger.Level(zerolog.ErrorLevel)
	case FatalLevel:
		logger = logger.Level(zerolog.FatalLevel)
	}

	logger = logger.With().Timestamp().Logger()

	if config.AddSource {
		logger = logger.With().Caller().Logger()
	}

	if len(config.Fields) > 0 {
		logger = logger.With().Fields(config.Fields).Logger()
	}

	return &Logger{logger: logger}
}

// WithComponent adds a component field to the logger
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		logger: l.logger.With().Str("component", component).Logger(),
	}
}

// WithField adds a field to the logger
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{
		logger: l.logger.With().Interface(key, value).Logger(),
	}
}

// WithFields adds multiple fields to the logger
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	return &Logger{
		logger: l.logger.With().Fields(fields).Logger(),
	}
}

// WithError adds an error field to the logger
func (l *Logger) WithError(err error) *Logger {
	return &Logger{
		logger: l.logger.With().Err(err).Logger(),
	}
}

func (l *Logger) Trace(msg string) { l.logger.Trace().Msg(msg) }
func (l *Logger) Debug(msg string) { l.logger.Debug().Msg(msg) }
func (l *Logger) Info(msg string)  { l.logger.Info().Msg(msg) }
func (l *Logger) Warn(msg string)  { l.logger.Warn().Msg(msg) }
func (l *Logger) Error(msg string) { l.logger.Error().Msg(msg) }
func (l *Logger) Fatal(msg string) { l.logger.Fatal().Msg(msg) }

func (l *Logger) Debugf(format string, args ...interface{}) {
	l.logger.Debug().Msgf(format, args...)
}

func (l *Logger) Infof(format string, args ...interface{}) {
	l.logger.Info().Msgf(format, args...)
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	l.logger.Warn().Msgf(format, args...)
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.logger.Error().Msgf(format, args...)
}

func (l *Logger) Fatalf(format string, args ...interface{}) {
	l.logger.Fatal().Msgf(format, args...)
}

// LogSignalEvent logs one monitor signal with structured fields
func (l *Logger) LogSignalEvent(signal MonitorSignal) {
	l.logger.Info().
		Str("event_type", "signal").
		Str("channel", string(signal.Channel)).
		Str("level", string(signal.Level)).
		Str("detail", signal.Detail).
		Msg("Monitor signal")
}

// LogSessionEvent logs session lifecycle events
func (l *Logger) LogSessionEvent(event string, state SessionState, fields map[string]interface{}) {
	l.logger.Info().
		Str("event_type", "session").
		Str("event", event).
		Str("state", string(state)).
		Fields(fields).
		Msg("Session event")
}

// LogMessageEvent logs wire protocol events
func (l *Logger) LogMessageEvent(msgType MessageType, fields map[string]interface{}) {
	l.logger.Debug().
		Str("event_type", "message").
		Str("message_type", string(msgType)).
		Fields(fields).
		Msg("Message event")
}

// LogError logs an InterviewError with structured fields
func (l *Logger) LogError(err *InterviewError) {
	l.logger.Error().
		Str("error_code", err.Code).
		Float64("timestamp", err.Timestamp).
		Fields(err.Details).
		Msg(err.Message)
}

// Global logger instance
var globalLogger *Logger

func init() {
	globalLogger = NewLogger(DefaultLogConfig())
}

// GetGlobalLogger returns the global logger instance
func GetGlobalLogger() *Logger {
	return globalLogger
}

// SetGlobalLogger sets the global logger instance
func SetGlobalLogger(logger *Logger) {
	globalLogger = logger
}

// Global logging functions for convenience
func Debug(msg string) { globalLogger.Debug(msg) }
func Info(msg string)  { globalLogger.Info(msg) }
func Warn(msg string)  { globalLogger.Warn(msg) }
func Error(msg string) { globalLogger.Error(msg) }

func Debugf(format string, args ...interface{}) { globalLogger.Debugf(format, args...) }
func Infof(format string, args ...interface{})  { globalLogger.Infof(format, args...) }
func Warnf(format string, args ...interface{})  { globalLogger.Warnf(format, args...) }
func Errorf(format string, args ...interface{}) { globalLogger.Errorf(format, args...) }
