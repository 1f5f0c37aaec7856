package logger

import (
	"context"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type contextKey string

const loggerKey contextKey = "logger"

// WithContext returns a copy of ctx carrying log.
func WithContext(ctx context.Context, log *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, log)
}

// Lookup returns the logger carried by ctx, if any.
func Lookup(ctx context.Context) (*zap.Logger, bool) {
	log, ok := ctx.Value(loggerKey).(*zap.Logger)
	return log, ok
}

// FromContext returns the logger carried by ctx, or the global logger.
func FromContext(ctx context.Context) *zap.Logger {
	if log, ok := Lookup(ctx); ok {
		return log
	}
	return zap.L()
}

// FromEcho returns the request logger set by Middleware, or the global
// logger.
func FromEcho(c echo.Context) *zap.Logger {
	if log, ok := c.Get(echoKey).(*zap.Logger); ok {
		return log
	}
	return FromContext(c.Request().Context())
}
