// Package example implements example middleware in an outside package.
package example

import (
	"log/slog"

	"github.com/advdv/bcycle"
)

// attrKey scopes the logger among the request attributes.
const attrKey = "example.slog"

// Middleware provides an example for middleware that stores a logger on the request.
func Middleware(logs *slog.Logger) bcycle.Middleware {
	return func(n bcycle.Handler) bcycle.Handler {
		return bcycle.HandlerFunc(func(c *bcycle.Context) error {
			c.Set(attrKey, logs.With(slog.String("method", c.Method())))
			return n.Handle(c)
		})
	}
}

// Log returns the logger stored by [Middleware], or nil.
func Log(c *bcycle.Context) *slog.Logger {
	v, _ := c.Get(attrKey)
	l, _ := v.(*slog.Logger)
	return l
}
