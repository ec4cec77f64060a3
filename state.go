package bcycle

// phase is the coarse state of a request pipeline.
type phase int

const (
	phaseRunning   phase = iota // pulling and executing tasks
	phaseSuspended              // parked on a pending future
	phaseFinished               // response written, terminal
)

func (p phase) String() string {
	switch p {
	case phaseRunning:
		return "running"
	case phaseSuspended:
		return "suspended"
	case phaseFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// state is everything the transition function needs to decide what happens next.
type state struct {
	phase    phase
	detached bool // the serving goroutine has been released from driving the pipeline
	timedOut bool // the watchdog fired while a task was executing
	aborted  bool // the client went away while a task was executing
}

type event int

const (
	eventSuspend   event = iota // a task left a pending future behind
	eventResume                 // the pending future completed
	eventTimeout                // the watchdog fired
	eventAbort                  // the transport reported the client is gone
	eventTaskDone               // a task returned without suspending
	eventExhausted              // no cycle has tasks left
)

func (e event) String() string {
	return [...]string{"suspend", "resume", "timeout", "abort", "task-done", "exhausted"}[e]
}

type effect int

const (
	effectDetach          effect = iota // release the serving goroutine
	effectArmWatchdog                   // start the timeout timer
	effectLaunch                        // run the future's launch action
	effectChain                         // attach the continuation to the future
	effectContinue                      // run the future callback and drive the pipeline
	effectCancelFuture                  // cancel the outstanding future and the request context
	effectTimeoutResponse               // write the timeout status and body, run the error mapper
	effectAbort                         // report the client abort
	effectFinish                        // write the response exactly once
)

// transition is the pure state machine of a pipeline. It never performs side effects itself;
// the returned effects are applied, in order, by the caller.
func transition(s state, ev event) (state, []effect) {
	if s.phase == phaseFinished {
		return s, nil
	}

	switch ev {
	case eventSuspend:
		if s.phase != phaseRunning {
			return s, nil
		}
		if next, effs, ok := terminateDeferred(s, effectCancelFuture); ok {
			return next, effs
		}

		next := s
		next.phase = phaseSuspended
		var effs []effect
		if !s.detached {
			next.detached = true
			effs = append(effs, effectDetach, effectArmWatchdog)
		}
		return next, append(effs, effectLaunch, effectChain)

	case eventResume:
		if s.phase != phaseSuspended {
			return s, nil
		}
		next := s
		next.phase = phaseRunning
		return next, []effect{effectContinue}

	case eventTimeout:
		if s.phase == phaseSuspended {
			return finished(s), []effect{effectCancelFuture, effectTimeoutResponse, effectFinish}
		}
		next := s
		next.timedOut = true
		return next, nil

	case eventAbort:
		if s.phase == phaseSuspended {
			return finished(s), []effect{effectCancelFuture, effectAbort, effectFinish}
		}
		next := s
		next.aborted = true
		return next, nil

	case eventTaskDone:
		if s.phase != phaseRunning {
			return s, nil
		}
		if next, effs, ok := terminateDeferred(s); ok {
			return next, effs
		}
		return s, nil

	case eventExhausted:
		if s.phase != phaseRunning {
			return s, nil
		}
		if next, effs, ok := terminateDeferred(s); ok {
			return next, effs
		}
		return finished(s), []effect{effectFinish}
	}

	return s, nil
}

// terminateDeferred applies a timeout or abort that arrived while a task was running.
func terminateDeferred(s state, pre ...effect) (state, []effect, bool) {
	switch {
	case s.timedOut:
		return finished(s), append(pre, effectTimeoutResponse, effectFinish), true
	case s.aborted:
		return finished(s), append(pre, effectAbort, effectFinish), true
	}
	return s, nil, false
}

func finished(s state) state {
	s.phase = phaseFinished
	return s
}
