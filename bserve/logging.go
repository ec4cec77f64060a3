package bserve

import (
	"time"

	"github.com/advdv/bcycle"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger creates a zap logger configured from the environment.
// Uses JSON encoding. BC_LOG_LEVEL controls the level (debug, info, warn, error).
func NewLogger(env Environment) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(env.logLevel())
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

type zapLogger struct{ *zap.Logger }

func (l zapLogger) LogUncaughtError(err error) {
	l.Logger.Error("uncaught handler error", zap.Error(err))
}

func (l zapLogger) LogClientAbort(err error) {
	l.Logger.Debug("client went away", zap.Error(err))
}

func (l zapLogger) LogUnexpectedError(err error) {
	l.Logger.Error("unexpected error outside the pipeline", zap.Error(err))
}

func (l zapLogger) LogBodyReread(method, path string) {
	l.Logger.Warn("request body read twice without caching",
		zap.String("method", method), zap.String("path", path))
}

// NewZapLogger adapts a zap logger to the engine's [bcycle.Logger].
func NewZapLogger(l *zap.Logger) bcycle.Logger {
	return zapLogger{l.Named("bcycle").Named("bserve")}
}

// ZapRequestLogger logs one line per finished request. Server errors are logged at error level.
func ZapRequestLogger(l *zap.Logger) bcycle.RequestLogger {
	l = l.Named("access")
	return func(c *bcycle.Context, elapsed time.Duration) {
		lvl := zapcore.InfoLevel
		if c.StatusCode() >= 500 {
			lvl = zapcore.ErrorLevel
		}

		l.Log(lvl, "request",
			zap.String("request_id", c.RequestID()),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("route", c.Route()),
			zap.Int("status", c.StatusCode()),
			zap.Duration("elapsed", elapsed),
		)
	}
}

const loggerKey = "bserve.logger"

// withRequestLogger stores a logger scoped to the request on the context.
func withRequestLogger(l *zap.Logger) bcycle.HandlerFunc {
	return func(c *bcycle.Context) error {
		c.Set(loggerKey, l.With(zap.String("request_id", c.RequestID())))
		return nil
	}
}

// Log returns the request scoped logger. It returns a no-op logger outside a bserve app.
func Log(c *bcycle.Context) *zap.Logger {
	if v, ok := c.Get(loggerKey); ok {
		return v.(*zap.Logger)
	}
	return zap.NewNop()
}
