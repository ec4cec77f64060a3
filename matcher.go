package bcycle

import (
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
)

// PathMatcher maps handler types and request paths onto the registered entries. It is
// populated during configuration and only read afterwards, so lookups take no locks.
type PathMatcher struct {
	ignoreTrailingSlashes bool
	entries               map[HandlerType][]*HandlerEntry
}

// NewPathMatcher inits an empty matcher.
func NewPathMatcher(ignoreTrailingSlashes bool) *PathMatcher {
	return &PathMatcher{
		ignoreTrailingSlashes: ignoreTrailingSlashes,
		entries:               make(map[HandlerType][]*HandlerEntry),
	}
}

// Add registers the entry under its type. Registering the same (type, path) twice is
// rejected with [ErrDuplicateRoute].
func (m *PathMatcher) Add(e *HandlerEntry) error {
	if e.typ.IsHTTPMethod() {
		if _, dup := lo.Find(m.entries[e.typ], func(o *HandlerEntry) bool { return o.path == e.path }); dup {
			return errors.Wrapf(ErrDuplicateRoute, "%s %s", e.typ, e.path)
		}
	}

	m.entries[e.typ] = append(m.entries[e.typ], e)
	return nil
}

// FindEntries returns, in registration order, the entries of the given type that match path.
func (m *PathMatcher) FindEntries(typ HandlerType, path string) []*HandlerEntry {
	path = m.normalize(path)
	return lo.Filter(m.entries[typ], func(e *HandlerEntry, _ int) bool {
		return e.Matches(path)
	})
}

// FindFirst returns the first registered entry of typ that matches path, if any.
func (m *PathMatcher) FindFirst(typ HandlerType, path string) (*HandlerEntry, bool) {
	path = m.normalize(path)
	return lo.Find(m.entries[typ], func(e *HandlerEntry) bool {
		return e.Matches(path)
	})
}

// MatchingMethods returns every HTTP method that has at least one entry matching path.
func (m *PathMatcher) MatchingMethods(path string) []HandlerType {
	return lo.Filter(methodTypes, func(t HandlerType, _ int) bool {
		_, ok := m.FindFirst(t, path)
		return ok
	})
}

// Entries returns every entry of the given type in registration order.
func (m *PathMatcher) Entries(typ HandlerType) []*HandlerEntry {
	return append([]*HandlerEntry(nil), m.entries[typ]...)
}

func (m *PathMatcher) normalize(path string) string {
	if m.ignoreTrailingSlashes {
		return trimTrailingSlash(path)
	}
	return path
}
