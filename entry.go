package bcycle

import (
	"strings"

	"github.com/advdv/bcycle/internal/pathpattern"
	"github.com/cockroachdb/errors"
)

// HandlerEntry is the immutable descriptor of one registration. Entries are created while the
// app is being configured and shared read-only by every request afterwards.
type HandlerEntry struct {
	typ     HandlerType
	path    string
	pattern *pathpattern.Pattern
	handler Handler // with middleware applied
	raw     Handler // as registered
}

func newHandlerEntry(typ HandlerType, path string, ignoreTrailingSlashes bool, handler, raw Handler) (*HandlerEntry, error) {
	if ignoreTrailingSlashes {
		path = trimTrailingSlash(path)
	}

	pat, err := pathpattern.ParsePattern(path)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid %s path", typ)
	}

	return &HandlerEntry{
		typ:     typ,
		path:    path,
		pattern: pat,
		handler: handler,
		raw:     raw,
	}, nil
}

func (e *HandlerEntry) Type() HandlerType { return e.typ }
func (e *HandlerEntry) Path() string      { return e.path }

// RawHandler returns the handler without middleware.
func (e *HandlerEntry) RawHandler() Handler { return e.raw }

// Matches reports whether the concrete request path matches the entry.
func (e *HandlerEntry) Matches(path string) bool {
	if e.path == path {
		return true
	}
	_, ok := e.pattern.Match(path)
	return ok
}

// ExtractPathParams returns the named parameters of path. It returns an empty map if the path
// does not match.
func (e *HandlerEntry) ExtractPathParams(path string) map[string]string {
	params, ok := e.pattern.Match(path)
	if !ok {
		return map[string]string{}
	}
	return params
}

func (e *HandlerEntry) handle(c *Context) error {
	return e.handler.Handle(c)
}

func trimTrailingSlash(path string) string {
	if len(path) <= 1 || !strings.HasSuffix(path, "/") {
		return path
	}
	if path = strings.TrimRight(path, "/"); path == "" {
		return "/"
	}
	return path
}
