package events

import (
	"github.com/ThreeDotsLabs/watermill"
	"go.uber.org/zap"
)

// ZapLogger adapts a zap logger to watermill
type ZapLogger struct {
	logger *zap.Logger
}

// NewZapLogger wraps l for watermill publishers and subscribers
func NewZapLogger(l *zap.Logger) watermill.LoggerAdapter {
	return &ZapLogger{logger: l.Named("watermill")}
}

func fields(f watermill.LogFields) []zap.Field {
	out := make([]zap.Field, 0, len(f))
	for k, v := range f {
		out = append(out, zap.Any(k, v))
	}
	return out
}

func (z *ZapLogger) Error(msg string, err error, f watermill.LogFields) {
	z.logger.Error(msg, append(fields(f), zap.Error(err))...)
}

func (z *ZapLogger) Info(msg string, f watermill.LogFields) {
	z.logger.Info(msg, fields(f)...)
}

func (z *ZapLogger) Debug(msg string, f watermill.LogFields) {
	z.logger.Debug(msg, fields(f)...)
}

// Trace is logged at debug; zap has no lower level
func (z *ZapLogger) Trace(msg string, f watermill.LogFields) {
	z.logger.Debug(msg, fields(f)...)
}

func (z *ZapLogger) With(f watermill.LogFields) watermill.LoggerAdapter {
	return &ZapLogger{logger: z.logger.With(fields(f)...)}
}
