package levelkv

import (
	"github.com/rs/zerolog"

	"github.com/kezhuw/levelkv/internal/logger"
)

type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// DiscardLogger is a nop Logger.
var DiscardLogger Logger = logger.Discard

// NewLogger returns a Logger writing to l.
func NewLogger(l zerolog.Logger) Logger {
	return logger.Zerolog(l)
}

var _ Logger = (logger.Logger)(nil)
var _ logger.Logger = (Logger)(nil)
