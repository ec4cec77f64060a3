package bcycle

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/advdv/bcycle/internal/try"
	"github.com/cockroachdb/errors"
)

const timeoutMessage = "Request timed out"

var (
	errRequestTimeout = errors.New("bcycle: request timed out")
	errRequestDone    = errors.New("bcycle: request finished")
)

// pipeline drives one request through its cycles. Tasks run on whichever goroutine currently
// owns the pipeline: the serving goroutine at first, the goroutine that completed a future
// after a suspension. Ownership is handed over only by transitions of the state machine.
type pipeline struct {
	app    *App
	c      *Context
	cycles []*cycle

	nextCycle int
	queue     []task
	errored   bool
	current   *pendingResult // the claimed future the pipeline is suspended on

	mu       sync.Mutex
	st       state
	watchdog *time.Timer
	released chan struct{} // closed once finished, only waited on when detached
	finished atomic.Bool
}

func newPipeline(app *App, c *Context) *pipeline {
	return &pipeline{
		app:      app,
		c:        c,
		cycles:   defaultCycles(),
		released: make(chan struct{}),
	}
}

// serve drives the pipeline on the calling goroutine and, if it suspended, waits until the
// response was finished by whichever goroutine resumed it. A client that goes away while the
// request is suspended aborts it.
func (p *pipeline) serve() {
	p.drive()

	if !p.isDetached() {
		return
	}

	select {
	case <-p.released:
	case <-p.c.req.Context().Done():
		p.fire(eventAbort)
		<-p.released
	}
}

// fire runs one transition under the lock and applies the resulting effects outside of it.
// It reports whether the pipeline is still running on the calling goroutine.
func (p *pipeline) fire(ev event) bool {
	p.mu.Lock()
	next, effs := transition(p.st, ev)
	p.st = next
	p.mu.Unlock()

	for _, eff := range effs {
		p.apply(eff)
	}
	return next.phase == phaseRunning
}

func (p *pipeline) isDetached() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.st.detached
}

// drive pulls and executes tasks until the pipeline suspends or finishes.
func (p *pipeline) drive() {
	for {
		if pr := p.c.result.claimPending(); pr != nil {
			p.current = pr
			p.fire(eventSuspend)
			return
		}

		if !p.fire(eventTaskDone) {
			return
		}

		t, ok := p.pull()
		if !ok {
			p.fire(eventExhausted)
			return
		}
		p.execute(t)
	}
}

// pull returns the next task, advancing through cycles whose init submits nothing.
func (p *pipeline) pull() (task, bool) {
	for len(p.queue) == 0 {
		if p.nextCycle >= len(p.cycles) {
			return task{}, false
		}
		cy := p.cycles[p.nextCycle]
		p.nextCycle++
		cy.init(p, func(t task) { p.queue = append(p.queue, t) })
	}

	t := p.queue[0]
	p.queue = p.queue[1:]
	return t, true
}

// execute runs one task. Tasks of cycles that do not tolerate errors are skipped once the
// pipeline has errored.
func (p *pipeline) execute(t task) {
	if p.errored && !t.cycle.ignoresErrors {
		return
	}

	p.c.handlerType = t.typ
	if t.entry != nil {
		p.c.matchedPath = t.entry.path
		p.c.pathParams = t.entry.ExtractPathParams(p.c.path)
		if t.entry.typ.IsHTTPMethod() {
			p.c.route = t.entry.path
		}
	}

	if err := try.Call(func() error { return t.run(p.c) }); err != nil {
		p.errored = true
		p.handleError(err, p.app.exceptions.Handle)
	}
}

// handleError routes err to the exception mapper and anything escaping that to the last resort.
func (p *pipeline) handleError(err error, handle func(error, *Context)) {
	if herr := try.Call(func() error { handle(err, p.c); return nil }); herr != nil {
		p.app.exceptions.HandleUnexpected(herr, p.c)
	}
}

func (p *pipeline) apply(eff effect) {
	switch eff {
	case effectDetach:
		// released is already waited on by serve once it observes the detached state.
	case effectArmWatchdog:
		if d := p.app.cfg.AsyncTimeout; d > 0 {
			p.mu.Lock()
			p.watchdog = time.AfterFunc(d, func() { p.fire(eventTimeout) })
			p.mu.Unlock()
		}
	case effectLaunch:
		if p.current.launch != nil {
			if err := try.Call(func() error { p.current.launch(); return nil }); err != nil {
				p.current.future.Reject(errors.Wrap(err, "launch failed"))
			}
		}
	case effectChain:
		pr := p.current
		pr.future.onComplete(func() { p.fire(eventResume) })
	case effectContinue:
		p.resume()
	case effectCancelFuture:
		if p.current != nil {
			p.current.future.Cancel()
		}
		p.c.result.cancelOutstanding()
		p.c.cancel(errRequestTimeout)
	case effectTimeoutResponse:
		p.timeoutResponse()
	case effectAbort:
		p.app.exceptions.HandleUnexpected(clientGone(p.c), p.c)
	case effectFinish:
		p.finish()
	}
}

// resume runs the callback of the completed future and continues driving the pipeline.
func (p *pipeline) resume() {
	pr := p.current
	v, err := pr.future.Result()
	switch {
	case err != nil:
		p.errored = true
		p.handleError(err, p.app.exceptions.HandleFutureError)
	default:
		cb := pr.callback
		if cb == nil {
			cb = defaultCallback
		}
		if err := try.Call(func() error { return cb(p.c, v) }); err != nil {
			p.errored = true
			p.handleError(err, p.app.exceptions.Handle)
		}
	}

	p.drive()
}

// timeoutResponse ends the request context and forces the timeout response before running the
// error mapper for it.
func (p *pipeline) timeoutResponse() {
	p.c.cancel(errRequestTimeout)
	p.c.Status(http.StatusInternalServerError)
	p.c.ContentType("text/plain; charset=utf-8")
	p.c.String(timeoutMessage)

	p.c.handlerType = PhaseError
	if err := try.Call(func() error {
		return p.app.errors.Handle(http.StatusInternalServerError, p.c)
	}); err != nil {
		p.app.exceptions.HandleUnexpected(err, p.c)
	}
}

// finish writes the response exactly once, logs the request and releases the serving goroutine.
func (p *pipeline) finish() {
	if !p.finished.CompareAndSwap(false, true) {
		return
	}
	defer close(p.released)

	p.mu.Lock()
	if p.watchdog != nil {
		p.watchdog.Stop()
	}
	p.mu.Unlock()

	p.c.finalizing.Store(true)
	if err := try.Call(func() error {
		return p.app.writer.write(p.c, p.c.result.stream())
	}); err != nil {
		p.app.exceptions.HandleUnexpected(err, p.c)
	}
	p.c.cancel(errRequestDone)

	if rl := p.app.requestLogger; rl != nil {
		if err := try.Call(func() error { rl(p.c, time.Since(p.c.startedAt)); return nil }); err != nil {
			p.app.exceptions.HandleUnexpected(err, p.c)
		}
	}
}

// clientGone returns why the request context of the client ended.
func clientGone(c *Context) error {
	if cause := context.Cause(c.req.Context()); cause != nil {
		return cause
	}
	return context.Canceled
}
