// Package logger builds the zap logger used across minicrm and carries it
// through contexts and echo requests.
package logger

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the level and output style of the logger.
type Config struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Environment string `mapstructure:"environment" yaml:"environment"`
	ServiceName string `mapstructure:"-" yaml:"-"`
}

// Environments.
const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
)

// HeaderRequestID is the header carrying the request id.
const HeaderRequestID = "X-Request-ID"

// echoKey is the echo context key holding the request logger.
const echoKey = "logger"

// ParseLevel maps a level name to a zap level, defaulting to info.
func ParseLevel(s string) zapcore.Level {
	switch s {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// New builds a logger. Production writes JSON with ISO8601 timestamps;
// anything else writes console output, colored when stderr is a terminal.
func New(cfg Config) (*zap.Logger, error) {
	level := zap.NewAtomicLevelAt(ParseLevel(cfg.Level))
	fields := zap.Fields(
		zap.String("service", cfg.ServiceName),
		zap.String("environment", cfg.Environment),
	)

	var zc zap.Config
	if cfg.Environment == EnvProduction {
		zc = zap.NewProductionConfig()
		zc.EncoderConfig.TimeKey = "timestamp"
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		if isatty.IsTerminal(os.Stderr.Fd()) {
			zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
	}
	zc.Level = level
	zc.OutputPaths = []string{"stderr"}

	log, err := zc.Build(fields)
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return log, nil
}

// Init builds a logger and installs it as zap's global logger.
func Init(cfg Config) (*zap.Logger, error) {
	log, err := New(cfg)
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(log)
	return log, nil
}

// Middleware tags every request with a request id, stores a request-scoped
// logger in the echo context, and logs the request when it completes.
func Middleware(base *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			requestID := c.Request().Header.Get(HeaderRequestID)
			if requestID == "" {
				requestID = uuid.New().String()
			}
			c.Response().Header().Set(HeaderRequestID, requestID)

			reqLog := base.With(zap.String("request_id", requestID))
			c.Set(echoKey, reqLog)
			c.SetRequest(c.Request().WithContext(WithContext(c.Request().Context(), reqLog)))

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			reqLog.Info("HTTP Request",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Path()),
				zap.Int("status", c.Response().Status),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", c.RealIP()),
			)
			return nil
		}
	}
}
