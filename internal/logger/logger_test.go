package logger

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("warn"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("info"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("loud"))
}

func TestNew(t *testing.T) {
	for _, env := range []string{EnvProduction, EnvDevelopment, ""} {
		log, err := New(Config{Level: "debug", Environment: env, ServiceName: "minicrm"})
		require.NoError(t, err, env)
		assert.True(t, log.Core().Enabled(zapcore.DebugLevel), env)
	}
}

func TestContext(t *testing.T) {
	_, ok := Lookup(context.Background())
	assert.False(t, ok)
	assert.Same(t, zap.L(), FromContext(context.Background()))

	log := zap.NewNop()
	ctx := WithContext(context.Background(), log)
	got, ok := Lookup(ctx)
	require.True(t, ok)
	assert.Same(t, log, got)
	assert.Same(t, log, FromContext(ctx))
}

func TestMiddleware(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	e := echo.New()
	e.Use(Middleware(zap.New(core)))

	var fromEcho, fromCtx *zap.Logger
	e.GET("/ok", func(c echo.Context) error {
		fromEcho = FromEcho(c)
		fromCtx = FromContext(c.Request().Context())
		return c.NoContent(http.StatusNoContent)
	})
	e.GET("/fail", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusTeapot, "no")
	})
	e.GET("/boom", func(c echo.Context) error {
		return errors.New("boom")
	})

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(HeaderRequestID, "req-1")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "req-1", rec.Header().Get(HeaderRequestID))
	require.NotNil(t, fromEcho)
	assert.Same(t, fromEcho, fromCtx)

	entries := logs.FilterMessage("HTTP Request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "/ok", fields["path"])
	assert.EqualValues(t, http.StatusNoContent, fields["status"])

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fail", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	assert.Equal(t, 3, logs.FilterMessage("HTTP Request").Len())
}
