package bcycle

import (
	"net/http"
)

// Handler is invoked with the request context for every task it is matched to. Returning an
// error marks the pipeline as errored and hands the error to the exception mapper.
type Handler interface {
	Handle(c *Context) error
}

// HandlerFunc allow casting a function to imple [Handler].
type HandlerFunc func(c *Context) error

// Handle implements the [Handler] interface.
func (f HandlerFunc) Handle(c *Context) error { return f(c) }

// HandlerType identifies the bucket an entry is registered in. It is either an HTTP method or
// one of the framework phases.
type HandlerType string

const (
	MethodGet     HandlerType = http.MethodGet
	MethodPost    HandlerType = http.MethodPost
	MethodPut     HandlerType = http.MethodPut
	MethodPatch   HandlerType = http.MethodPatch
	MethodDelete  HandlerType = http.MethodDelete
	MethodHead    HandlerType = http.MethodHead
	MethodOptions HandlerType = http.MethodOptions

	PhaseBefore HandlerType = "BEFORE"
	PhaseAfter  HandlerType = "AFTER"
	PhaseError  HandlerType = "ERROR"
)

// methodTypes lists the method types in the order they are reported in Allow headers.
var methodTypes = []HandlerType{
	MethodGet, MethodHead, MethodPost, MethodPut, MethodPatch, MethodDelete, MethodOptions,
}

// IsHTTPMethod reports whether t is an HTTP method rather than a phase.
func (t HandlerType) IsHTTPMethod() bool {
	switch t {
	case MethodGet, MethodPost, MethodPut, MethodPatch, MethodDelete, MethodHead, MethodOptions:
		return true
	}
	return false
}

// handlerTypeOf maps a request method onto its handler type.
func handlerTypeOf(method string) (HandlerType, bool) {
	t := HandlerType(method)
	return t, t.IsHTTPMethod()
}
