package bcycle

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// Context is the per-request state handed to every handler. It is owned by the engine for the
// duration of one request and is never reused. Handlers of one request never run concurrently,
// so the Context itself takes no locks except for its result slot.
type Context struct {
	context.Context
	cancel context.CancelCauseFunc

	req  *http.Request
	resp *transportWriter
	app  *App

	requestID   string
	startedAt   time.Time
	path        string // normalized request path used for matching
	handlerType HandlerType
	matchedPath string
	route       string // pattern of the endpoint that served the request
	pathParams  map[string]string

	query url.Values
	form  url.Values
	body  bodyCache

	result resultHolder
	status int
	header http.Header
	attrs  map[string]any

	finalizing atomic.Bool
}

func newContext(w http.ResponseWriter, r *http.Request, app *App) *Context {
	ctx, cancel := context.WithCancelCause(r.Context())
	c := &Context{
		Context:    ctx,
		cancel:     cancel,
		req:        r,
		resp:       &transportWriter{ResponseWriter: w},
		app:        app,
		requestID:  uuid.NewString(),
		startedAt:  time.Now(),
		path:       app.matcher.normalize(r.URL.Path),
		pathParams: map[string]string{},
		status:     http.StatusOK,
		header:     make(http.Header),
	}
	c.body.limit = app.cfg.MaxRequestSize
	c.body.cacheLimit = app.cfg.MaxCachedBodySize

	if h := app.cfg.RequestIDHeader; h != "" {
		c.header.Set(h, c.requestID)
	}
	return c
}

// Request returns the underlying request.
func (c *Context) Request() *http.Request { return c.req }

// RequestID returns the unique id of this request.
func (c *Context) RequestID() string { return c.requestID }

// Method returns the request method.
func (c *Context) Method() string { return c.req.Method }

// Path returns the request path.
func (c *Context) Path() string { return c.req.URL.Path }

// HandlerType returns the type of the task currently executing, e.g. BEFORE or GET.
func (c *Context) HandlerType() HandlerType { return c.handlerType }

// MatchedPath returns the pattern of the entry currently executing.
func (c *Context) MatchedPath() string { return c.matchedPath }

// Route returns the pattern of the endpoint that served the request. It is empty if no
// endpoint matched.
func (c *Context) Route() string { return c.route }

// PathParam returns the named path parameter of the currently matched entry.
func (c *Context) PathParam(name string) string { return c.pathParams[name] }

// PathParamMap returns all path parameters of the currently matched entry.
func (c *Context) PathParamMap() map[string]string { return c.pathParams }

// RequestHeader returns a request header value.
func (c *Context) RequestHeader(key string) string { return c.req.Header.Get(key) }

// QueryParam returns the first value of the query parameter.
func (c *Context) QueryParam(key string) string { return c.QueryParamMap().Get(key) }

// QueryParams returns every value of the query parameter, in order.
func (c *Context) QueryParams(key string) []string { return c.QueryParamMap()[key] }

// QueryParamMap parses the query string once and returns the cached values.
func (c *Context) QueryParamMap() url.Values {
	if c.query == nil {
		c.query, _ = url.ParseQuery(c.req.URL.RawQuery) // keeps every well-formed pair
	}
	return c.query
}

// FormParam returns the first value of the form parameter.
func (c *Context) FormParam(key string) string { return c.FormParamMap().Get(key) }

// FormParams returns every value of the form parameter, in order.
func (c *Context) FormParams(key string) []string { return c.FormParamMap()[key] }

// FormParamMap parses a url-encoded body once and returns the cached values. Other content
// types yield an empty map.
func (c *Context) FormParamMap() url.Values {
	if c.form != nil {
		return c.form
	}

	c.form = url.Values{}
	if !strings.HasPrefix(c.req.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		return c.form
	}

	body, err := c.Body()
	if err != nil {
		return c.form
	}
	c.form, _ = url.ParseQuery(string(body))
	return c.form
}

// Body reads the request body on first use and caches it, see [bodyCache].
func (c *Context) Body() ([]byte, error) {
	return c.body.read(c.req, func() { c.app.logs.LogBodyReread(c.req.Method, c.req.URL.Path) })
}

// BodyString returns the body as a string, or the empty string if reading fails.
func (c *Context) BodyString() string {
	b, _ := c.Body()
	return string(b)
}

// BindJSON decodes the body into v. Malformed input is reported as a 400.
func (c *Context) BindJSON(v any) error {
	b, err := c.Body()
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return NewError(CodeBadRequest, errors.Wrap(err, "invalid json body"))
	}
	return nil
}

// Status sets the response status.
func (c *Context) Status(code int) *Context {
	c.status = code
	return c
}

// StatusCode returns the response status.
func (c *Context) StatusCode() int { return c.status }

// Header sets a response header.
func (c *Context) Header(key, val string) *Context {
	c.header.Set(key, val)
	return c
}

// ResponseHeader returns a response header value.
func (c *Context) ResponseHeader(key string) string { return c.header.Get(key) }

// ResponseHeaders returns the mutable response headers.
func (c *Context) ResponseHeaders() http.Header { return c.header }

// RemoveHeader deletes a response header.
func (c *Context) RemoveHeader(key string) *Context {
	c.header.Del(key)
	return c
}

// ContentType sets the response content type.
func (c *Context) ContentType(ct string) *Context { return c.Header("Content-Type", ct) }

// Set stores a request scoped attribute.
func (c *Context) Set(key string, val any) {
	if c.attrs == nil {
		c.attrs = make(map[string]any)
	}
	c.attrs[key] = val
}

// Get returns a request scoped attribute.
func (c *Context) Get(key string) (any, bool) {
	v, ok := c.attrs[key]
	return v, ok
}

// Result replaces the result with a stream. An in-flight future it replaces is cancelled.
func (c *Context) Result(r io.Reader) *Context {
	c.result.setPrevious(r)
	return c
}

// String sets a string result.
func (c *Context) String(s string) *Context { return c.Result(strings.NewReader(s)) }

// Bytes sets a byte result.
func (c *Context) Bytes(b []byte) *Context { return c.Result(bytes.NewReader(b)) }

// JSON encodes v as the result and sets the content type.
func (c *Context) JSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "failed to encode json result")
	}
	c.ContentType("application/json")
	c.Bytes(b)
	return nil
}

// ResultBytes drains the current result stream and puts the bytes back so it can be read again.
// It returns nil if no stream was produced.
func (c *Context) ResultBytes() ([]byte, error) {
	rd := c.result.stream()
	if rd == nil {
		return nil, nil
	}

	b, err := io.ReadAll(rd)
	if rc, ok := rd.(io.Closer); ok {
		_ = rc.Close()
	}
	c.result.setPrevious(bytes.NewReader(b))
	if err != nil {
		return b, errors.Wrap(err, "failed to read result")
	}
	return b, nil
}

// Future sets an asynchronous result. The engine suspends the request until f completes, then
// runs the callback and resumes the pipeline. Setting a future while another one is unresolved
// fails with [ErrFutureInFlight], setting one after the request timed out with [ErrRequestEnded].
func (c *Context) Future(f *Future, opts ...FutureOption) error {
	if cause := context.Cause(c); errors.Is(cause, errRequestTimeout) || errors.Is(cause, errRequestDone) {
		return ErrRequestEnded
	}

	pr := &pendingResult{future: f}
	for _, opt := range opts {
		opt(pr)
	}
	return c.result.setPending(pr)
}

// Async runs fn on a new goroutine once the request has been suspended and uses its return
// value as the asynchronous result.
func (c *Context) Async(fn AsyncFunc, opts ...FutureOption) error {
	f := NewFuture()
	return c.Future(f, append([]FutureOption{WithLaunch(launchAsync(c, f, fn))}, opts...)...)
}

// Redirect sets a redirect response and returns [ErrSkip]. Returning that error from a handler
// skips the remaining BEFORE and endpoint handlers without any error response.
func (c *Context) Redirect(location string, code int) error {
	c.Header("Location", location)
	c.Status(code)
	c.Result(nil)
	return ErrSkip
}

// IsCommitted reports whether the status line has been sent to the client.
func (c *Context) IsCommitted() bool { return c.resp.committed.Load() }

// defaultCallback writes the resolved value as the result.
func defaultCallback(c *Context, v any) error {
	switch v := v.(type) {
	case nil:
		return nil
	case string:
		c.String(v)
	case []byte:
		c.Bytes(v)
	case io.Reader:
		c.Result(v)
	default:
		return c.JSON(v)
	}
	return nil
}

// transportWriter records whether anything was sent to the client.
type transportWriter struct {
	http.ResponseWriter
	committed atomic.Bool
}

func (w *transportWriter) WriteHeader(code int) {
	w.committed.Store(true)
	w.ResponseWriter.WriteHeader(code)
}

func (w *transportWriter) Write(b []byte) (int, error) {
	w.committed.Store(true)
	return w.ResponseWriter.Write(b)
}

// Unwrap allows [http.ResponseController] to reach the underlying writer.
func (w *transportWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
