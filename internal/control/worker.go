package control

import (
	"strconv"

	"go.uber.org/zap"
)

// Worker is the registry entry for one worker goroutine. A worker may host
// many loops over its life, sequentially; the entry itself is created once,
// when the goroutine calls EnsureWorker, and removed by Close when the
// goroutine exits.
//
// The interrupt hook is the worker's abort capability: the evaluator
// integration registers a function that makes the currently running
// evaluation on this worker fail immediately, independent of any loop's
// control state. The control plane only indexes and invokes the hook; it
// never implements the interruption itself.
type Worker struct {
	id string
	r  *Registry

	interrupt func() // guarded by r.mu
}

// EnsureWorker registers the calling goroutine as a worker and returns its
// entry. Goroutines have no ambient identity, so this is an explicit
// operation: a worker goroutine calls it once on startup, threads the
// returned *Worker through its loops, and defers Close.
func (r *Registry) EnsureWorker() *Worker {
	r.mu.Lock()
	var id string
	for {
		id = "t" + strconv.FormatUint(r.nextWorker, 16)
		r.nextWorker++
		if _, exists := r.workers[id]; !exists {
			break
		}
	}
	w := &Worker{id: id, r: r}
	r.workers[id] = w
	r.mu.Unlock()
	return w
}

// ID returns the worker's registry identifier.
func (w *Worker) ID() string { return w.id }

// SetInterrupt registers the worker's abort hook. Registering nil removes
// it. The hook must be safe to call from any goroutine and must not call
// back into the registry.
func (w *Worker) SetInterrupt(fn func()) {
	w.r.mu.Lock()
	w.interrupt = fn
	w.r.mu.Unlock()
}

// Close removes the worker from the registry. The worker goroutine calls
// it on exit, after leaving all its loops.
func (w *Worker) Close() {
	w.r.mu.Lock()
	delete(w.r.workers, w.id)
	w.interrupt = nil
	w.r.mu.Unlock()
}

// Abort raises the given worker's interrupt hook. It is fire-and-forget:
// the caller learns only whether the worker entry existed, never whether
// or when the abort took effect. A worker that registered no hook is
// logged and acknowledged.
func (r *Registry) Abort(workerID string) error {
	r.mu.Lock()
	w, ok := r.workers[workerID]
	if !ok {
		r.mu.Unlock()
		return &NotFoundError{Kind: "worker", ID: workerID}
	}
	fn := w.interrupt
	log := r.log
	r.mu.Unlock()

	if fn == nil {
		log.Warn("abort: no interrupt hook registered", zap.String("worker", workerID))
	} else {
		fn()
	}
	r.record(Event{Kind: EventAbort, Worker: workerID})
	return nil
}
