package bserve

import (
	"net/http"
	"net/http/httptest"

	"github.com/advdv/bcycle"
	"go.uber.org/zap/zapcore"
)

type testEnv struct {
	level   zapcore.Level
	otelExp string
}

func (e testEnv) port() int                   { return 8080 }
func (e testEnv) serviceName() string         { return "test" }
func (e testEnv) healthPath() string          { return "/health" }
func (e testEnv) metricsPath() string         { return "/metrics" }
func (e testEnv) logLevel() zapcore.Level     { return e.level }
func (e testEnv) otelExporter() string        { return e.otelExp }
func (e testEnv) engineConfig() bcycle.Config { return bcycle.DefaultConfig() }

func serve(h http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}
