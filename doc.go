// Package bcycle provides an HTTP request lifecycle engine with asynchronous results.
//
// # Overview
//
// Every request walks through four cycles: BEFORE handlers, the endpoint, ERROR
// handlers and AFTER handlers. Handlers receive a [*Context] and return an error.
// The response is assembled on the context and written exactly once, after the
// last cycle ran:
//
//	app := bcycle.New()
//	app.Before("/items/*", func(c *bcycle.Context) error {
//	    c.Header("X-Served-By", "bcycle")
//	    return nil
//	})
//	app.Get("/items/:id", func(c *bcycle.Context) error {
//	    return c.JSON(map[string]string{"id": c.PathParam("id")})
//	}, "get-item")
//
//	http.ListenAndServe(":8080", app)
//
// # Cycles and errors
//
// An error returned by a handler is mapped by the exception mapper and the
// remaining BEFORE handlers and the endpoint are skipped. ERROR and AFTER
// handlers still run:
//
//   - A handler registered with [Exception] for the type of a link in the
//     error chain wins, the outermost link first
//   - An [*Error] (created with [NewError]) sets its status and message, as JSON if
//     the client accepts it
//   - Anything else is logged and becomes a 500
//
// Returning [ErrSkip] stops the current cycle without an error response, as
// [Context.Redirect] does.
//
// Handlers registered with [App.Error] run in the ERROR cycle for the final
// status code, e.g. to render a custom 404 page.
//
// # Asynchronous results
//
// A handler may set a [Future] as the result instead of a body. The engine then
// suspends the request, releases nothing to the client and resumes the
// remaining cycles on the goroutine that completes the future:
//
//	app.Get("/report", func(c *bcycle.Context) error {
//	    return c.Async(func(ctx context.Context) (any, error) {
//	        return buildReport(ctx)
//	    })
//	})
//
// With [Config.AsyncTimeout] set, a request that stays suspended for longer
// gets a 500 "Request timed out" and its future is cancelled. Only one of the
// completion and the timeout produces the response.
//
// # Response writing
//
// The writer sends the status, the headers and the result stream. It answers
// If-None-Match with a 304 for a manually set or, with
// [Config.AutogenerateEtags], a computed ETag, and compresses compressible
// bodies with gzip or brotli.
//
// # Middleware and named routes
//
// [Middleware] wraps endpoint handlers and must be registered with [App.Use]
// before any handler. Endpoints can be given a name for URL generation:
//
//	url, err := app.Reverse("get-item", "123") // returns "/items/123"
package bcycle
