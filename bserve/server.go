package bserve

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/advdv/bcycle"
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

const readHeaderTimeout = 10 * time.Second

// ServerConfig holds optional configuration for the HTTP server.
type ServerConfig struct {
	HealthHandler bcycle.HandlerFunc
	Middleware    []bcycle.Middleware
}

// ServerParams holds the dependencies for creating an HTTP server.
type ServerParams struct {
	fx.In

	Env        Environment
	App        *bcycle.App
	Logger     *zap.Logger
	TracerProv trace.TracerProvider
	Propagator propagation.TextMapPropagator
	Registry   *prometheus.Registry
}

// NewServer creates the HTTP server. The metrics endpoint is served outside the engine, every
// other path goes through the traced app. Cleartext HTTP/2 is accepted next to HTTP/1.1.
func NewServer(params ServerParams) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(params.Env.metricsPath(), promhttp.HandlerFor(params.Registry, promhttp.HandlerOpts{}))
	mux.Handle("/", withTracing(
		params.TracerProv, params.Propagator, params.Env.serviceName(), params.Env.healthPath())(params.App))

	return &http.Server{
		Addr:              ":" + strconv.Itoa(params.Env.port()),
		Handler:           h2c.NewHandler(mux, &http2.Server{}),
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

// registerHealth adds the health endpoint. The handler can be customized with
// [WithHealthHandler]; by default it answers 200 OK with an empty body.
func registerHealth(env Environment, app *bcycle.App, cfg ServerConfig) {
	h := cfg.HealthHandler
	if h == nil {
		h = defaultHealthHandler
	}
	app.Get(env.healthPath(), h, "health")
}

// startServerHook registers lifecycle hooks for the HTTP server.
func startServerHook(lc fx.Lifecycle, server *http.Server, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", server.Addr)
			if err != nil {
				return errors.Wrapf(err, "failed to listen on %s", server.Addr)
			}

			logger.Info("starting server", zap.String("addr", server.Addr))
			go func() {
				if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("server error", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("stopping server")
			return server.Shutdown(ctx)
		},
	})
}

func defaultHealthHandler(c *bcycle.Context) error {
	c.Status(http.StatusOK)
	return nil
}
