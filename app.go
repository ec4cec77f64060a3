package bcycle

import (
	"log"
	"net/http"
	"sync/atomic"
)

// App registers handlers and serves requests through the BEFORE, endpoint, ERROR and AFTER
// cycles. Registration must be complete before the first request is served.
type App struct {
	cfg           Config
	logs          Logger
	requestLogger RequestLogger
	matcher       *PathMatcher
	exceptions    *ExceptionMapper
	errors        *ErrorMapper
	writer        *responseWriter
	reverser      *Reverser
	middlewares   struct {
		captured bool
		buffered []Middleware
	}
	serving atomic.Bool
}

// Option configures an [App] at construction.
type Option func(*App)

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(a *App) { a.cfg = cfg }
}

// WithLogger sets the logger that is informed about unexpected states.
func WithLogger(l Logger) Option {
	return func(a *App) { a.logs = l }
}

// WithRequestLogger sets the function called after every request.
func WithRequestLogger(rl RequestLogger) Option {
	return func(a *App) { a.requestLogger = rl }
}

// New creates an app with the default configuration and a standard library logger.
func New(opts ...Option) *App {
	a := &App{cfg: DefaultConfig(), logs: NewStdLogger(log.Default())}
	for _, opt := range opts {
		opt(a)
	}
	return NewWith(a.cfg, a.logs, a.requestLogger, NewReverser())
}

// NewWith creates an app with custom settings.
func NewWith(cfg Config, logs Logger, rl RequestLogger, reverser *Reverser) *App {
	if err := cfg.Validate(); err != nil {
		panic("bcycle: invalid config: " + err.Error())
	}

	return &App{
		cfg:           cfg,
		logs:          logs,
		requestLogger: rl,
		matcher:       NewPathMatcher(cfg.IgnoreTrailingSlashes),
		exceptions:    NewExceptionMapper(logs),
		errors:        NewErrorMapper(),
		writer:        newResponseWriter(cfg),
		reverser:      reverser,
	}
}

// Config returns the configuration the app was created with.
func (a *App) Config() Config { return a.cfg }

// Matcher exposes the registry, mostly for inspection in tests.
func (a *App) Matcher() *PathMatcher { return a.matcher }

// Reverse returns the url based on the name and parameter values.
func (a *App) Reverse(name string, vals ...string) (string, error) {
	return a.reverser.Reverse(name, vals...)
}

// Use allows providing of middleware. It wraps every endpoint registered after it.
func (a *App) Use(mw ...Middleware) {
	a.ensureConfiguring("middleware")
	a.ensureNoUseAfterHandle()
	a.middlewares.buffered = append(a.middlewares.buffered, mw...)
}

// Before registers a handler that runs ahead of the endpoint for every matching path.
func (a *App) Before(path string, h HandlerFunc) { a.Handle(PhaseBefore, path, h) }

// After registers a handler that runs after the endpoint and the error handlers, even if an
// earlier handler failed.
func (a *App) After(path string, h HandlerFunc) { a.Handle(PhaseAfter, path, h) }

func (a *App) Get(path string, h HandlerFunc, name ...string)     { a.Handle(MethodGet, path, h, name...) }
func (a *App) Post(path string, h HandlerFunc, name ...string)    { a.Handle(MethodPost, path, h, name...) }
func (a *App) Put(path string, h HandlerFunc, name ...string)     { a.Handle(MethodPut, path, h, name...) }
func (a *App) Patch(path string, h HandlerFunc, name ...string)   { a.Handle(MethodPatch, path, h, name...) }
func (a *App) Delete(path string, h HandlerFunc, name ...string)  { a.Handle(MethodDelete, path, h, name...) }
func (a *App) Head(path string, h HandlerFunc, name ...string)    { a.Handle(MethodHead, path, h, name...) }
func (a *App) Options(path string, h HandlerFunc, name ...string) { a.Handle(MethodOptions, path, h, name...) }

// Handle registers h for the handler type and path. Endpoints, not phases, are wrapped with the
// middleware and can be named for reversing. It panics on an invalid or duplicate registration.
func (a *App) Handle(typ HandlerType, path string, h Handler, name ...string) {
	a.ensureConfiguring(string(typ) + " " + path)
	a.middlewares.captured = true

	wrapped := h
	if typ.IsHTTPMethod() {
		wrapped = Wrap(h, a.middlewares.buffered...)
		if len(name) > 0 {
			path = a.reverser.Named(name[0], path)
		}
	}

	e, err := newHandlerEntry(typ, path, a.cfg.IgnoreTrailingSlashes, wrapped, h)
	if err != nil {
		panic("bcycle: " + err.Error())
	}
	if err := a.matcher.Add(e); err != nil {
		panic("bcycle: " + err.Error())
	}
}

// Error registers a handler that runs in the ERROR cycle when the response has the status.
func (a *App) Error(status int, h HandlerFunc) {
	a.ensureConfiguring("error handler")
	a.errors.Register(status, h)
}

// Exception registers fn for errors of the exact type E anywhere in the chain of a handler error.
// The handler of the outermost matching link wins.
func Exception[E error](a *App, fn func(err E, c *Context)) {
	a.ensureConfiguring("exception handler")
	RegisterException(a.exceptions, fn)
}

// ServeHTTP makes the app implement the http.Handler interface. The calling goroutine is parked
// while the request is suspended on a future.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.serving.Store(true)

	c := newContext(w, r, a)
	newPipeline(a, c).serve()
}

func (a *App) ensureConfiguring(what string) {
	if a.serving.Load() {
		panic("bcycle: cannot register " + what + " after serving started")
	}
}

func (a *App) ensureNoUseAfterHandle() {
	if a.middlewares.captured {
		panic("bcycle: cannot call Use() after calling Handle")
	}
}
