package bcycle

import (
	"io"
	"sync/atomic"
)

type resultKind int

const (
	resultEmpty resultKind = iota
	resultPrevious
	resultPending
)

// result is what will be written back: nothing yet, a produced stream or a pending future.
// Values are never mutated after they are stored, except for the claim flag.
type result struct {
	kind     resultKind
	previous io.Reader
	pending  *pendingResult
}

type pendingResult struct {
	future   *Future
	launch   func()
	callback FutureCallback
	claimed  atomic.Bool
}

// outstanding reports whether r holds a future that has not completed.
func (r *result) outstanding() bool {
	return r.kind == resultPending && !r.pending.future.IsDone()
}

var emptyResult = &result{kind: resultEmpty}

// resultHolder is the per-request result slot. The handler that sets it, the watchdog and
// the future continuation may all write it, so every update is an atomic swap.
type resultHolder struct {
	p atomic.Pointer[result]
}

func (h *resultHolder) load() *result {
	if r := h.p.Load(); r != nil {
		return r
	}
	return emptyResult
}

// setPrevious replaces the result with a stream and cancels an in-flight future that it replaced.
func (h *resultHolder) setPrevious(rd io.Reader) {
	next := emptyResult
	if rd != nil {
		next = &result{kind: resultPrevious, previous: rd}
	}

	if old := h.p.Swap(next); old != nil && old.outstanding() {
		old.pending.future.Cancel()
	}
}

// setPending stores a future. It fails with [ErrFutureInFlight] while another future is
// outstanding and leaves that future untouched.
func (h *resultHolder) setPending(pr *pendingResult) error {
	next := &result{kind: resultPending, pending: pr}
	for {
		old := h.p.Load()
		if old != nil && old.outstanding() {
			return ErrFutureInFlight
		}
		if h.p.CompareAndSwap(old, next) {
			return nil
		}
	}
}

// claimPending returns the pending result if the engine has not chained it yet.
func (h *resultHolder) claimPending() *pendingResult {
	r := h.load()
	if r.kind != resultPending || !r.pending.claimed.CompareAndSwap(false, true) {
		return nil
	}
	return r.pending
}

// cancelOutstanding cancels the current future, if any, and reports whether it did.
func (h *resultHolder) cancelOutstanding() bool {
	r := h.load()
	if !r.outstanding() {
		return false
	}
	return r.pending.future.Cancel()
}

// stream returns the produced stream or nil if nothing was produced.
func (h *resultHolder) stream() io.Reader {
	r := h.load()
	if r.kind != resultPrevious {
		return nil
	}
	return r.previous
}
