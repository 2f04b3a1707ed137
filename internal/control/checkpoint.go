package control

import (
	"strings"
	"time"

	"go.uber.org/zap"
)

// Enter registers a new loop hosted by the given worker and returns its
// handle. args is the literal command that started the loop; it is
// snapshotted here because the loop body may mutate or invalidate whatever
// the caller built it from. The loop starts in the Run state.
//
// Every Enter must be paired with exactly one Leave on the same goroutine,
// on every exit path. Callers defer Leave immediately.
func (r *Registry) Enter(w *Worker, ev Evaluator, args ...string) *Handle {
	h := &Handle{
		worker:  w.id,
		started: time.Now(),
		command: strings.Join(args, " "),
		eval:    ev,
		control: Run,
	}

	r.mu.Lock()
	h.id = r.allocLoopID()
	r.loops[h.id] = h
	r.mu.Unlock()

	r.record(Event{Kind: EventEnter, LoopID: h.id, Worker: h.worker, Detail: h.command})
	return h
}

// Checkpoint is called by the owner worker once per loop iteration. It
// increments the iteration count, services any pending eval request
// (evaluating with the lock released, then re-acquiring it to post the
// result), blocks while the loop is paused, and finally reports whether
// the loop was canceled.
//
// Returns nil to proceed with the next iteration, or ErrCanceled, which
// the worker must treat like any other loop-body failure: unwind and call
// Leave.
func (r *Registry) Checkpoint(h *Handle) error {
	late := false

	r.mu.Lock()
	h.iterations++

	for h.pending != nil || h.control == Pause {
		if req := h.pending; req != nil {
			script := req.script
			r.mu.Unlock()

			result, err := h.eval.Eval(script)
			code := evalOK
			if err != nil {
				result = err.Error()
				code = evalFailed
			}

			r.mu.Lock()
			if h.pending != req {
				// The controller gave up ownership (timeout) or a new
				// request replaced the slot. Discard, log only.
				late = true
				r.log.Warn("dropped eval result",
					zap.String("loop", h.id),
					zap.String("result", result))
			} else {
				req.result = result
				req.code = code
				req.state = evalDone
				h.pending = nil
				r.cond.Broadcast()
			}
		}
		if h.control == Pause {
			r.cond.Wait()
		}
	}

	canceled := h.control == Cancel
	r.mu.Unlock()

	if late {
		r.record(Event{Kind: EventLateResult, LoopID: h.id, Worker: h.worker})
	}
	if canceled {
		return ErrCanceled
	}
	return nil
}

// Leave deregisters the loop. If an eval request is still attached, it is
// marked dropped and its controller woken, so a blocked Eval call fails
// promptly with ErrEvalDropped instead of waiting out its deadline.
// Leave runs unconditionally on every exit path of a hosted loop and is
// safe against concurrent lookups of the same id.
func (r *Registry) Leave(h *Handle) {
	dropped := false

	r.mu.Lock()
	if req := h.pending; req != nil {
		req.state = evalDropped
		h.pending = nil
		dropped = true
		r.cond.Broadcast()
	}
	delete(r.loops, h.id)
	r.mu.Unlock()

	if dropped {
		r.record(Event{Kind: EventEvalDropped, LoopID: h.id, Worker: h.worker})
	}
	r.record(Event{Kind: EventLeave, LoopID: h.id, Worker: h.worker})
}
