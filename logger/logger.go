/*
The logger package wraps zerolog so that the rest of the codebase never talks
to the logging backend directly. Component loggers are derived from a root
logger and tag every line with their component name, which is how we keep
socket, polling, and subscription chatter distinguishable in one stream.
*/
package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	maxLogFileSizeMB = 100
	maxLogFileCount  = 10
)

type Config struct {
	// Writers that receive human-readable console output, e.g. os.Stdout
	ConsoleWriters []io.Writer

	// Path to a rotated JSON log file; empty disables file logging
	FilePath string
}

type Logger struct {
	logger zerolog.Logger
}

func New(config *Config) (*Logger, error) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs

	writers := []io.Writer{}

	if config.FilePath != "" {
		fileWriter := &lumberjack.Logger{
			Filename:   config.FilePath,
			MaxSize:    maxLogFileSizeMB,
			MaxBackups: maxLogFileCount,
			Compress:   true,
		}
		writers = append(writers, fileWriter)
	}

	for _, writer := range config.ConsoleWriters {
		consoleWriter := zerolog.ConsoleWriter{
			Out:        writer,
			TimeFormat: "2006-01-02T15:04:05.000",
			NoColor:    writer != os.Stdout,
		}
		writers = append(writers, consoleWriter)
	}

	if len(writers) == 0 {
		// Logging must never become a reason the client cannot run
		writers = append(writers, io.Discard)
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger()

	return &Logger{logger: logger}, nil
}

// GetComponentLogger returns a child logger whose lines carry the component name
func (l *Logger) GetComponentLogger(component string) *Logger {
	return &Logger{
		logger: l.logger.With().Str("component", component).Logger(),
	}
}

// AddField returns a child logger that stamps every line with a fixed key/value,
// e.g. the connection attempt id
func (l *Logger) AddField(key string, value string) *Logger {
	return &Logger{
		logger: l.logger.With().Str(key, value).Logger(),
	}
}

func (l *Logger) Trace(msg string) {
	l.logger.Trace().Msg(msg)
}

func (l *Logger) Tracef(format string, a ...any) {
	l.logger.Trace().Msgf(format, a...)
}

func (l *Logger) Debug(msg string) {
	l.logger.Debug().Msg(msg)
}

func (l *Logger) Debugf(format string, a ...any) {
	l.logger.Debug().Msgf(format, a...)
}

func (l *Logger) Info(msg string) {
	l.logger.Info().Msg(msg)
}

func (l *Logger) Infof(format string, a ...any) {
	l.logger.Info().Msgf(format, a...)
}

func (l *Logger) Error(err error) {
	l.logger.Error().Msg(err.Error())
}

func (l *Logger) Errorf(format string, a ...any) {
	l.logger.Error().Msg(fmt.Sprintf(format, a...))
}
