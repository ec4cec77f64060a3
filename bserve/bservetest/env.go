package bservetest

import (
	"strconv"
	"testing"
)

// Env provides a chainable builder for setting [bserve.BaseEnvironment] env vars
// via t.Setenv. Create one with [SetBaseEnv].
type Env struct {
	t testing.TB
}

// SetBaseEnv sets the [bserve.BaseEnvironment] env vars to test defaults.
// Port is required because each test must use a unique port to avoid collisions.
//
// Defaults:
//   - BC_SERVICE_NAME: "test"
//   - BC_HEALTH_PATH: "/health"
//   - BC_METRICS_PATH: "/metrics"
//   - BC_OTEL_EXPORTER: "none"
//
// Use the returned [Env] to override individual values:
//
//	bservetest.SetBaseEnv(t, 18085).ServiceName("orders").AsyncTimeout("50ms")
func SetBaseEnv(t testing.TB, port int) *Env {
	t.Helper()
	t.Setenv("BC_PORT", strconv.Itoa(port))
	t.Setenv("BC_SERVICE_NAME", "test")
	t.Setenv("BC_HEALTH_PATH", "/health")
	t.Setenv("BC_METRICS_PATH", "/metrics")
	t.Setenv("BC_OTEL_EXPORTER", "none")
	return &Env{t: t}
}

// ServiceName overrides BC_SERVICE_NAME.
func (e *Env) ServiceName(name string) *Env {
	e.t.Helper()
	e.t.Setenv("BC_SERVICE_NAME", name)
	return e
}

// HealthPath overrides BC_HEALTH_PATH.
func (e *Env) HealthPath(path string) *Env {
	e.t.Helper()
	e.t.Setenv("BC_HEALTH_PATH", path)
	return e
}

// AsyncTimeout overrides BC_ASYNC_TIMEOUT.
func (e *Env) AsyncTimeout(d string) *Env {
	e.t.Helper()
	e.t.Setenv("BC_ASYNC_TIMEOUT", d)
	return e
}
