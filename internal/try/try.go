// Package try turns panics and close failures into ordinary errors.
package try

import (
	"fmt"
	"io"

	"github.com/cockroachdb/errors"
)

// PanicError is produced by [Recover] when a panic is caught.
type PanicError struct {
	Value any
}

func (e PanicError) Error() string {
	return fmt.Sprintf("recovered from panic: %v", e.Value)
}

// Unwrap returns the panic value if it was an error.
func (e PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

// Recover must be deferred. It stores a recovered panic in err, combining it
// with any error that was already set.
func Recover(err *error) {
	r := recover()
	if r == nil {
		return
	}

	perr := errors.WithStackDepth(PanicError{Value: r}, 1)
	if *err == nil {
		*err = perr
		return
	}
	*err = errors.CombineErrors(*err, perr)
}

// Call runs fn and converts a panic into an error.
func Call(fn func() error) (err error) {
	defer Recover(&err)
	return fn()
}

// CloseError wraps the failure of closing a resource.
type CloseError struct {
	Cause error
}

func (e CloseError) Error() string {
	return fmt.Sprintf("failed to close: %s", e.Cause)
}

func (e CloseError) Unwrap() error {
	return e.Cause
}

// Close closes v if it is an [io.Closer] and records the failure in err.
func Close(err *error, v any) {
	c, ok := v.(io.Closer)
	if !ok {
		return
	}

	cerr := c.Close()
	if cerr == nil {
		return
	}

	if *err == nil {
		*err = CloseError{Cause: cerr}
		return
	}
	*err = errors.CombineErrors(*err, CloseError{Cause: cerr})
}
