package control

import "time"

// evalState tracks one rendezvous. Waiting until the worker posts a result
// (done), the loop exits first (dropped), or the controller's deadline
// elapses (still waiting — the controller then detaches the request itself).
type evalState int

const (
	evalWaiting evalState = iota
	evalDone
	evalDropped
)

// evalCode is the effective outcome of a serviced script.
type evalCode int

const (
	evalOK evalCode = iota
	evalFailed
)

// evalRequest is the rendezvous record for one script handoff. It is owned
// by the controller that created it; the worker only ever reads script and
// writes result, code and state while holding the registry lock, and never
// touches the request again once the controller has detached it from the
// handle's pending slot.
type evalRequest struct {
	state  evalState
	script string
	result string
	code   evalCode
}

// Eval hands script to the loop with the given id and blocks until the
// loop services it at a checkpoint, the loop exits, or timeout elapses
// (DefaultEvalTimeout when timeout is not positive).
//
// On success it returns the script's result. A script that itself failed
// returns its failure text plus a *ScriptError, so the script's own status
// propagates as the outcome of the call. Other failures are a
// *NotFoundError (unknown id), ErrEvalPending (the loop already has a
// request outstanding; requests are rejected, not queued), ErrEvalTimeout
// (deadline elapsed; the request is abandoned and any late result is
// discarded), or ErrEvalDropped (the loop exited before servicing).
func (r *Registry) Eval(id, script string, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = DefaultEvalTimeout
	}

	r.mu.Lock()
	h, ok := r.loops[id]
	if !ok {
		r.mu.Unlock()
		return "", &NotFoundError{Kind: "loop", ID: id}
	}
	if h.pending != nil {
		r.mu.Unlock()
		return "", ErrEvalPending
	}

	req := &evalRequest{state: evalWaiting, script: script}
	h.pending = req
	worker := h.worker

	// Wake a worker already blocked in its checkpoint loop (paused, or
	// between servicing rounds) so it picks the request up now.
	r.cond.Broadcast()

	// sync.Cond has no timed wait; a timer broadcast bounds the wait. The
	// waiter re-checks its own condition after every wakeup, so the extra
	// broadcast is indistinguishable from a spurious one for other waiters.
	deadline := time.Now().Add(timeout)
	timer := time.AfterFunc(timeout, func() {
		r.mu.Lock()
		r.cond.Broadcast()
		r.mu.Unlock()
	})
	defer timer.Stop()

	for req.state == evalWaiting && time.Now().Before(deadline) {
		r.cond.Wait()
	}

	switch req.state {
	case evalWaiting:
		// Timed out. Reclaim ownership under the lock: once pending no
		// longer points at req, no worker can be about to write into it.
		if h.pending == req {
			h.pending = nil
		}
		r.mu.Unlock()
		r.record(Event{Kind: EventEvalTimeout, LoopID: id, Worker: worker})
		return "", ErrEvalTimeout

	case evalDropped:
		r.mu.Unlock()
		return "", ErrEvalDropped

	default: // evalDone
		result, code := req.result, req.code
		r.mu.Unlock()
		if code != evalOK {
			r.record(Event{Kind: EventEvalFailed, LoopID: id, Worker: worker, Detail: result})
			return result, &ScriptError{Msg: result}
		}
		r.record(Event{Kind: EventEvalDone, LoopID: id, Worker: worker})
		return result, nil
	}
}
