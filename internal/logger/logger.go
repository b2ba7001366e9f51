package logger

import "github.com/rs/zerolog"

type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

var Discard Logger = nopLogger{}

type nopLogger struct{}

func (nopLogger) Debugf(format string, args ...interface{}) {}
func (nopLogger) Infof(format string, args ...interface{})  {}
func (nopLogger) Warnf(format string, args ...interface{})  {}
func (nopLogger) Errorf(format string, args ...interface{}) {}

type zeroLogger struct {
	log zerolog.Logger
}

func (l *zeroLogger) printf(ev *zerolog.Event, format string, args ...interface{}) {
	if ev == nil {
		return
	}
	ev.Msgf(format, args...)
}

func (l *zeroLogger) Debugf(format string, args ...interface{}) {
	l.printf(l.log.Debug(), format, args...)
}

func (l *zeroLogger) Infof(format string, args ...interface{}) {
	l.printf(l.log.Info(), format, args...)
}

func (l *zeroLogger) Warnf(format string, args ...interface{}) {
	l.printf(l.log.Warn(), format, args...)
}

func (l *zeroLogger) Errorf(format string, args ...interface{}) {
	l.printf(l.log.Error(), format, args...)
}

// Zerolog adapts a zerolog.Logger. Messages below the logger's level are
// dropped before formatting.
func Zerolog(l zerolog.Logger) Logger {
	return &zeroLogger{log: l.With().Str("component", "levelkv").Logger()}
}

// With returns l, or Discard if l is nil.
func With(l Logger) Logger {
	if l == nil {
		return Discard
	}
	return l
}
