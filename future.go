package bcycle

import (
	"context"
	"sync"

	"github.com/advdv/bcycle/internal/try"
)

// Future is a one-shot asynchronous result. The first of Resolve, Reject or Cancel wins and
// every later completion is ignored. Listeners run on the goroutine that completes the future.
type Future struct {
	done chan struct{}

	mu        sync.Mutex
	completed bool
	val       any
	err       error
	listeners []func()
}

// NewFuture inits an unresolved future.
func NewFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Resolved returns a future that is already resolved with v.
func Resolved(v any) *Future {
	f := NewFuture()
	f.Resolve(v)
	return f
}

// Resolve completes the future with a value. It reports whether this call completed it.
func (f *Future) Resolve(v any) bool { return f.complete(v, nil) }

// Reject completes the future with an error. Result reports it wrapped in a [*CompletionError].
func (f *Future) Reject(err error) bool {
	return f.complete(nil, &CompletionError{Cause: err})
}

// Cancel completes the future with [ErrFutureCancelled].
func (f *Future) Cancel() bool { return f.complete(nil, ErrFutureCancelled) }

// Done is closed once the future is complete.
func (f *Future) Done() <-chan struct{} { return f.done }

// IsDone reports whether the future is complete.
func (f *Future) IsDone() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Result blocks until the future completes and returns its outcome.
func (f *Future) Result() (any, error) {
	<-f.done
	return f.val, f.err
}

func (f *Future) complete(v any, err error) bool {
	f.mu.Lock()
	if f.completed {
		f.mu.Unlock()
		return false
	}
	f.completed = true
	f.val, f.err = v, err
	listeners := f.listeners
	f.listeners = nil
	close(f.done)
	f.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
	return true
}

// onComplete registers fn to run once the future completes. If it already has, fn runs
// immediately on the calling goroutine.
func (f *Future) onComplete(fn func()) {
	f.mu.Lock()
	if !f.completed {
		f.listeners = append(f.listeners, fn)
		f.mu.Unlock()
		return
	}
	f.mu.Unlock()
	fn()
}

// FutureCallback runs after the future resolved successfully, before the pipeline resumes.
type FutureCallback func(c *Context, v any) error

// FutureOption configures how a future is attached to the context.
type FutureOption func(*pendingResult)

// WithCallback replaces the default callback, which writes the resolved value as the result.
func WithCallback(fn FutureCallback) FutureOption {
	return func(r *pendingResult) { r.callback = fn }
}

// WithLaunch sets the action that starts the asynchronous work. The engine calls it once the
// request has been suspended and the watchdog is armed.
func WithLaunch(fn func()) FutureOption {
	return func(r *pendingResult) { r.launch = fn }
}

// AsyncFunc is the asynchronous work started by [Context.Async]. Its context is cancelled when
// the request times out or finishes.
type AsyncFunc func(ctx context.Context) (any, error)

func launchAsync(ctx context.Context, f *Future, fn AsyncFunc) func() {
	return func() {
		go func() {
			var v any
			err := try.Call(func() (err error) {
				v, err = fn(ctx)
				return err
			})
			if err != nil {
				f.Reject(err)
				return
			}
			f.Resolve(v)
		}()
	}
}
