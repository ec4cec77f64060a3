package bserve

import (
	"context"
	"net/http"

	"github.com/advdv/bcycle"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// App wraps an fx.App for lifecycle management.
type App struct {
	app *fx.App
}

// AppConfig holds configuration for the app.
type AppConfig struct {
	ServerConfig
	FxOptions []fx.Option
}

// Option configures the App.
type Option func(*AppConfig)

// WithFx adds fx options for dependency injection.
func WithFx(fxOpts ...fx.Option) Option {
	return func(c *AppConfig) {
		c.FxOptions = append(c.FxOptions, fxOpts...)
	}
}

// WithHealthHandler sets a custom health check handler.
// If not set, a default handler returning 200 OK is used.
func WithHealthHandler(h bcycle.HandlerFunc) Option {
	return func(c *AppConfig) {
		c.HealthHandler = h
	}
}

// WithMiddleware wraps every endpoint, including the health endpoint. The engine only accepts
// middleware before the first registration, so routing functions cannot call Use themselves.
func WithMiddleware(mw ...bcycle.Middleware) Option {
	return func(c *AppConfig) {
		c.Middleware = append(c.Middleware, mw...)
	}
}

// EngineParams holds the dependencies for creating the engine.
type EngineParams struct {
	fx.In

	Env     Environment
	Logger  *zap.Logger
	Metrics *RequestMetrics
	Config  ServerConfig
}

// NewEngine creates the lifecycle engine from the environment. Every request is logged, counted
// and gets a request scoped logger, see [Log].
func NewEngine(p EngineParams) *bcycle.App {
	app := bcycle.New(
		bcycle.WithConfig(p.Env.engineConfig()),
		bcycle.WithLogger(NewZapLogger(p.Logger)),
		bcycle.WithRequestLogger(requestLoggers(ZapRequestLogger(p.Logger), p.Metrics.Observe)),
	)

	app.Use(p.Config.Middleware...)
	app.Before("*", withRequestLogger(p.Logger))
	return app
}

// runtimeProviderParams holds dependencies for Runtime.
type runtimeProviderParams[E Environment] struct {
	fx.In

	Env       E
	App       *bcycle.App
	Transport http.RoundTripper
}

// FxOptions returns the fx options that make up a bserve app. [NewApp] and the bservetest
// package build the same graph from it.
func FxOptions[E Environment](routing any, opts ...Option) []fx.Option {
	var cfg AppConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	baseOpts := make([]fx.Option, 0, 16+len(cfg.FxOptions))
	baseOpts = append(baseOpts, []fx.Option{
		fx.NopLogger,
		fx.Provide(ParseEnv[E]()),
		fx.Provide(func(e E) Environment { return e }),
		fx.Provide(func(e E) (*zap.Logger, error) { return NewLogger(e) }),
		fx.Provide(NewTracerProvider),
		fx.Provide(NewPropagator),
		fx.Provide(NewRegistry),
		fx.Provide(func(reg *prometheus.Registry) (*RequestMetrics, error) {
			return NewRequestMetrics(reg)
		}),
		fx.Provide(func(tp trace.TracerProvider, prop propagation.TextMapPropagator) http.RoundTripper {
			return NewHTTPTransport(tp, prop)
		}),
		fx.Provide(NewHTTPClient),
		fx.Supply(cfg.ServerConfig),
		fx.Provide(NewEngine),
		fx.Provide(NewServer),
		fx.Provide(func(p runtimeProviderParams[E]) *Runtime[E] {
			return NewRuntime(p.Env, p.App, p.Transport)
		}),
		fx.Invoke(startServerHook),
		fx.Invoke(routing),
		fx.Invoke(registerHealth),
	}...)

	return append(baseOpts, cfg.FxOptions...)
}

// NewApp creates a batteries-included app with dependency injection.
//
// The routing function can request any types that are provided via fx options.
// At minimum, it should accept *bcycle.App for routing.
//
// Example:
//
//	bserve.NewApp[Env](func(a *bcycle.App, h *Handlers) {
//	    a.Get("/items/:id", h.GetItem, "get-item")
//	},
//	    bserve.WithFx(fx.Provide(NewHandlers)),
//	).Run()
func NewApp[E Environment](routing any, opts ...Option) *App {
	return &App{
		app: fx.New(FxOptions[E](routing, opts...)...),
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() {
	a.app.Run()
}

// Start starts the application and blocks until ctx is done, then stops it.
func (a *App) Start(ctx context.Context) error {
	if err := a.app.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), a.app.StopTimeout())
	defer cancel()

	return a.app.Stop(stopCtx)
}
