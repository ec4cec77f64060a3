// Package bserve hosts a [bcycle.App] as a complete HTTP service: environment parsing,
// structured logging, OpenTelemetry tracing, Prometheus metrics and graceful shutdown. A
// complete application can be created in a single call:
//
//	bserve.NewApp[Env](func(a *bcycle.App, h *Handlers) {
//	    a.Get("/items", h.ListItems)
//	    a.Get("/items/:id", h.GetItem, "get-item")
//	},
//	    bserve.WithFx(fx.Provide(NewHandlers)),
//	).Run()
//
// # Environment Configuration
//
// Define your environment by embedding [BaseEnvironment]:
//
//	type Env struct {
//	    bserve.BaseEnvironment
//	    UpstreamURL string `env:"UPSTREAM_URL,required"`
//	}
//
// BaseEnvironment provides the following environment variables:
//
//	| Variable          | Required | Default  | Description                              |
//	|-------------------|----------|----------|------------------------------------------|
//	| BC_PORT           | No       | 8080     | Port the HTTP server listens on          |
//	| BC_SERVICE_NAME   | Yes      | -        | Service name for logging and tracing     |
//	| BC_HEALTH_PATH    | No       | /health  | Health endpoint, excluded from tracing   |
//	| BC_METRICS_PATH   | No       | /metrics | Prometheus scrape endpoint               |
//	| BC_LOG_LEVEL      | No       | info     | Log level (debug, info, warn, error)     |
//	| BC_OTEL_EXPORTER  | No       | stdout   | Trace exporter: "stdout" or "none"       |
//
// The engine settings of [bcycle.Config] are read under the same prefix, e.g.
// BC_ASYNC_TIMEOUT or BC_COMPRESSION_BROTLI.
//
// # Runtime
//
// [Runtime] provides access to app-scoped dependencies and should be injected into
// handler constructors via fx:
//   - [Runtime.Env] returns the typed environment configuration
//   - [Runtime.Reverse] generates URLs for named routes
//   - [Runtime.NewRequest] starts an outbound request on the traced transport
//
// # Logging
//
// Every handler can reach a request scoped zap logger with [Log]. Each finished request is
// written to the "access" logger and counted in the bcycle_requests_total and
// bcycle_request_duration_seconds metrics.
//
// # Middleware
//
// The engine only accepts middleware before the first handler is registered. Pass middleware
// with [WithMiddleware]; calling Use from a routing function panics.
//
// # Testing
//
// The bservetest package builds the same graph on fxtest and sets the base environment.
package bserve
