package bcycle

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"syscall"

	"github.com/advdv/bcycle/internal/try"
	"github.com/cockroachdb/errors"
)

const internalErrorMessage = "Internal server error"

type exceptionEntry struct {
	key    any // (*E)(nil) of the registered type
	match  func(error) bool
	handle func(error, *Context)
}

// ExceptionMapper resolves handler errors to registered exception handlers.
type ExceptionMapper struct {
	logs    Logger
	entries []exceptionEntry
}

// NewExceptionMapper inits a mapper without any handlers.
func NewExceptionMapper(logs Logger) *ExceptionMapper {
	return &ExceptionMapper{logs: logs}
}

// RegisterException registers fn for errors of exactly type E. A second registration for the
// same type replaces the first.
func RegisterException[E error](m *ExceptionMapper, fn func(err E, c *Context)) {
	ent := exceptionEntry{
		key: (*E)(nil),
		match: func(err error) bool {
			_, ok := err.(E)
			return ok
		},
		handle: func(err error, c *Context) { fn(err.(E), c) },
	}

	for i, e := range m.entries {
		if e.key == ent.key {
			m.entries[i] = ent
			return
		}
	}
	m.entries = append(m.entries, ent)
}

// find walks the chain of err from the outermost error inwards and returns the handler
// registered for the first link that has one, together with that link.
func (m *ExceptionMapper) find(err error) (func(error, *Context), error) {
	for link := err; link != nil; link = errors.UnwrapOnce(link) {
		for _, e := range m.entries {
			if e.match(link) {
				return e.handle, link
			}
		}
	}
	return nil, nil
}

// Handle maps err onto a response. [ErrSkip] is ignored. A registered handler for a link in the
// error chain wins, then a typed [*Error], then the generic 500.
func (m *ExceptionMapper) Handle(err error, c *Context) {
	if errors.Is(err, ErrSkip) {
		return
	}

	if fn, link := m.find(err); fn != nil {
		if herr := try.Call(func() error { fn(link, c); return nil }); herr != nil {
			m.HandleUnexpected(errors.Wrap(herr, "exception handler failed"), c)
		}
		return
	}

	if herr, ok := asError(err); ok {
		writeErrorResponse(c, herr)
		return
	}

	m.logs.LogUncaughtError(err)
	writeErrorResponse(c, InternalServerError(internalErrorMessage))
}

// HandleFutureError unwraps one level of [*CompletionError] and maps the cause.
func (m *ExceptionMapper) HandleFutureError(err error, c *Context) {
	if cerr, ok := err.(*CompletionError); ok { //nolint:errorlint
		err = cerr.Cause
	}
	m.Handle(err, c)
}

// HandleUnexpected is the last resort for failures outside the managed pipeline. Client
// disconnects are only logged. Anything else is logged and, if nothing has been sent yet,
// turned into a 500. It never panics.
func (m *ExceptionMapper) HandleUnexpected(err error, c *Context) {
	defer func() { _ = recover() }()

	if isClientAbort(err) {
		m.logs.LogClientAbort(err)
		return
	}

	m.logs.LogUnexpectedError(err)
	if c.IsCommitted() {
		return
	}

	if c.finalizing.Load() {
		http.Error(c.resp, internalErrorMessage, http.StatusInternalServerError)
		return
	}

	c.Status(http.StatusInternalServerError)
	c.ContentType("text/plain; charset=utf-8")
	c.String(internalErrorMessage)
}

// isClientAbort reports whether err signals that the client went away or the transport timed out.
func isClientAbort(err error) bool {
	switch {
	case errors.Is(err, context.Canceled),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, net.ErrClosed),
		errors.Is(err, http.ErrAbortHandler):
		return true
	}

	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}

type errorBody struct {
	Title   string            `json:"title"`
	Status  int               `json:"status"`
	Type    string            `json:"type"`
	Details map[string]string `json:"details"`
}

// writeErrorResponse renders a typed error as JSON or plain text, depending on what the client
// accepts.
func writeErrorResponse(c *Context, herr *Error) {
	code := int(herr.Code())
	if code == 0 {
		code = http.StatusInternalServerError
	}
	c.Status(code)

	if !strings.Contains(c.RequestHeader("Accept"), "application/json") {
		c.ContentType("text/plain; charset=utf-8")
		c.String(herr.Message())
		return
	}

	details := herr.Details()
	if details == nil {
		details = map[string]string{}
	}

	b, err := json.Marshal(errorBody{
		Title:   herr.Message(),
		Status:  code,
		Type:    "https://developer.mozilla.org/docs/Web/HTTP/Status/" + strconv.Itoa(code),
		Details: details,
	})
	if err != nil {
		c.ContentType("text/plain; charset=utf-8")
		c.String(herr.Message())
		return
	}

	c.ContentType("application/json")
	c.Bytes(b)
}
