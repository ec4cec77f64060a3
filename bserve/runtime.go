package bserve

import (
	"net/http"

	"github.com/advdv/bcycle"
	"github.com/carlmjohnson/requests"
)

// Runtime provides access to app-scoped dependencies.
// Inject this into handler constructors via fx instead of pulling them from the request.
//
// Example:
//
//	type Handlers struct {
//	    rt *bserve.Runtime[Env]
//	}
//
//	func (h *Handlers) GetItem(c *bcycle.Context) error {
//	    return c.Async(func(ctx context.Context) (any, error) {
//	        var item Item
//	        err := h.rt.NewRequest().BaseURL(h.rt.Env().UpstreamURL).
//	            Pathf("/items/%s", c.PathParam("id")).ToJSON(&item).Fetch(ctx)
//	        return item, err
//	    })
//	}
type Runtime[E Environment] struct {
	env       E
	app       *bcycle.App
	transport http.RoundTripper
}

// NewRuntime creates a new Runtime with the given dependencies.
func NewRuntime[E Environment](env E, app *bcycle.App, transport http.RoundTripper) *Runtime[E] {
	return &Runtime[E]{env: env, app: app, transport: transport}
}

// Env returns the environment configuration.
func (r *Runtime[E]) Env() E {
	return r.env
}

// Reverse returns the URL for a named route with the given parameters.
func (r *Runtime[E]) Reverse(name string, params ...string) (string, error) {
	return r.app.Reverse(name, params...)
}

// NewRequest returns a fresh [requests.Builder] that sends through the traced transport and
// names the service in its User-Agent.
func (r *Runtime[E]) NewRequest() *requests.Builder {
	return newRequestBuilder(r.transport, r.env.serviceName())
}
