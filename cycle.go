package bcycle

import (
	"net/http"
	"strings"

	"github.com/samber/lo"
)

// cycle is one named stage of the pipeline. Its init is called when the pipeline reaches it
// and submits the tasks of the stage.
type cycle struct {
	name          string
	ignoresErrors bool
	init          func(p *pipeline, submit func(task))
}

// task is one unit of work, normally the invocation of one matched entry.
type task struct {
	cycle *cycle
	typ   HandlerType
	entry *HandlerEntry // nil for tasks that are not bound to a registered entry
	run   func(c *Context) error
}

func entryTask(cy *cycle, e *HandlerEntry) task {
	return task{cycle: cy, typ: e.typ, entry: e, run: e.handle}
}

// defaultCycles returns the stages every request walks through: BEFORE, ROUTE, ERROR, AFTER.
func defaultCycles() []*cycle {
	before := &cycle{name: "before"}
	before.init = func(p *pipeline, submit func(task)) {
		for _, e := range p.app.matcher.FindEntries(PhaseBefore, p.c.path) {
			submit(entryTask(before, e))
		}
	}

	route := &cycle{name: "route"}
	route.init = func(p *pipeline, submit func(task)) {
		if e, ok := findEndpoint(p.app.matcher, p.c.Method(), p.c.path); ok {
			submit(entryTask(route, e))
			return
		}
		submit(task{cycle: route, typ: HandlerType(p.c.Method()), run: func(c *Context) error {
			return resolveNoEndpoint(p.app, c)
		}})
	}

	errs := &cycle{name: "error", ignoresErrors: true}
	errs.init = func(p *pipeline, submit func(task)) {
		submit(task{cycle: errs, typ: PhaseError, run: func(c *Context) error {
			return p.app.errors.Handle(c.StatusCode(), c)
		}})
	}

	after := &cycle{name: "after", ignoresErrors: true}
	after.init = func(p *pipeline, submit func(task)) {
		for _, e := range p.app.matcher.FindEntries(PhaseAfter, p.c.path) {
			submit(entryTask(after, e))
		}
	}

	return []*cycle{before, route, errs, after}
}

// findEndpoint returns the first endpoint for the method. HEAD falls back to GET.
func findEndpoint(m *PathMatcher, method, path string) (*HandlerEntry, bool) {
	typ, ok := handlerTypeOf(method)
	if !ok {
		return nil, false
	}
	if e, ok := m.FindFirst(typ, path); ok {
		return e, true
	}
	if typ == MethodHead {
		return m.FindFirst(MethodGet, path)
	}
	return nil, false
}

// resolveNoEndpoint produces the 405 or 404 for a request without an endpoint.
func resolveNoEndpoint(app *App, c *Context) error {
	allowed := app.matcher.MatchingMethods(c.path)
	if app.cfg.PreferMethodNotAllowed && len(allowed) > 0 {
		names := lo.Map(allowed, func(t HandlerType, _ int) string { return string(t) })
		c.Header("Allow", strings.Join(names, ", "))
		return MethodNotAllowed(http.StatusText(http.StatusMethodNotAllowed), names)
	}
	return NotFound("Endpoint " + c.Method() + " " + c.Path() + " not found")
}
