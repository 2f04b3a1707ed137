// Package control implements the cross-goroutine loop control plane: a
// registry of in-flight loops and their host workers, the run/pause/cancel
// signal protocol checked cooperatively at loop checkpoints, the blocking
// eval rendezvous that hands a script from a controller into a worker and
// returns its result, and the out-of-band abort capability for workers
// whose current evaluation never reaches a checkpoint.
//
// One mutex guards both registries and every Handle's mutable fields; one
// condition variable multiplexes all wakeups (pause release, eval post,
// eval drop). Waiters always re-check their own condition after waking.
// The protected critical sections are O(1) map and field operations, never
// loop bodies or script evaluation.
package control

import (
	"sort"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Control is the signal state of a loop. Controllers write it, the owner
// worker reads it at each checkpoint.
type Control int

const (
	Run    Control = iota // loop proceeds normally
	Pause                 // loop blocks at its next checkpoint
	Cancel                // loop fails at its next checkpoint; terminal
)

// String returns the status word used by Info and the control surface.
func (c Control) String() string {
	switch c {
	case Pause:
		return "paused"
	case Cancel:
		return "canceled"
	default:
		return "running"
	}
}

// DefaultEvalTimeout is the rendezvous deadline used when Eval is called
// with a non-positive timeout.
const DefaultEvalTimeout = 2 * time.Second

// Evaluator runs a script on the worker goroutine that services a
// checkpoint. *eval.Interp satisfies it. A failed evaluation returns the
// failure as the error; the result string is ignored in that case.
type Evaluator interface {
	Eval(src string) (string, error)
}

// EvalFunc adapts a function to the Evaluator interface.
type EvalFunc func(src string) (string, error)

// Eval calls f.
func (f EvalFunc) Eval(src string) (string, error) { return f(src) }

// Handle is the shared state record for one in-flight loop. It is created
// by Enter on the owner worker's goroutine and lives in the registry until
// Leave. All mutable fields are guarded by the registry mutex.
type Handle struct {
	id      string
	worker  string
	started time.Time
	command string
	eval    Evaluator

	control    Control
	iterations uint64
	pending    *evalRequest
}

// ID returns the loop's registry identifier.
func (h *Handle) ID() string { return h.id }

// Info is a point-in-time snapshot of one loop, as reported by the
// control surface.
type Info struct {
	ID         string
	Worker     string
	Started    time.Time
	Iterations uint64
	Status     string
	Command    string
}

// Event is a control-plane audit record. The registry emits one per
// lifecycle transition and control operation to the configured Recorder.
type Event struct {
	Time   time.Time `json:"time"`
	Kind   string    `json:"kind"`
	LoopID string    `json:"loop_id,omitempty"`
	Worker string    `json:"worker_id,omitempty"`
	Detail string    `json:"detail,omitempty"`
}

// Event kinds emitted by the registry.
const (
	EventEnter       = "enter"
	EventLeave       = "leave"
	EventPause       = "pause"
	EventResume      = "resume"
	EventCancel      = "cancel"
	EventAbort       = "abort"
	EventEvalDone    = "eval_done"
	EventEvalFailed  = "eval_failed"
	EventEvalTimeout = "eval_timeout"
	EventEvalDropped = "eval_dropped"
	EventLateResult  = "late_result"
)

// Recorder receives control-plane events. *journal.Journal satisfies it.
// Record is called outside the registry lock and must not block on the
// registry itself.
type Recorder interface {
	Record(Event)
}

// Registry is the process-wide control plane: the loop table, the worker
// table, and the shared lock and condition variable every protocol in this
// package rendezvouses on. Create one with New and share it between the
// worker goroutines hosting loops and the controller goroutines driving
// them.
type Registry struct {
	mu   sync.Mutex
	cond *sync.Cond

	log      *zap.Logger
	recorder Recorder

	loops   map[string]*Handle
	workers map[string]*Worker

	nextLoop   uint64
	nextWorker uint64
}

// New creates an empty registry. Logging defaults to a no-op logger; use
// SetLogger to direct it somewhere.
func New() *Registry {
	r := &Registry{
		log:     zap.NewNop(),
		loops:   make(map[string]*Handle),
		workers: make(map[string]*Worker),
	}
	r.cond = sync.NewCond(&r.mu)
	return r
}

// SetLogger replaces the registry logger. A nil logger resets to no-op.
func (r *Registry) SetLogger(log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	r.mu.Lock()
	r.log = log
	r.mu.Unlock()
}

// SetRecorder installs the audit event sink. A nil recorder disables
// recording.
func (r *Registry) SetRecorder(rec Recorder) {
	r.mu.Lock()
	r.recorder = rec
	r.mu.Unlock()
}

// record emits an audit event. Callers must not hold the registry lock.
func (r *Registry) record(ev Event) {
	r.mu.Lock()
	rec := r.recorder
	r.mu.Unlock()
	if rec != nil {
		ev.Time = time.Now()
		rec.Record(ev)
	}
}

// Loops returns a sorted snapshot of the currently registered loop ids.
// The set may change before the caller acts on it; operations taking an id
// re-validate against the live table.
func (r *Registry) Loops() []string {
	r.mu.Lock()
	ids := make([]string, 0, len(r.loops))
	for id := range r.loops {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	sort.Strings(ids)
	return ids
}

// Workers returns a sorted snapshot of the registered worker ids.
func (r *Registry) Workers() []string {
	r.mu.Lock()
	ids := make([]string, 0, len(r.workers))
	for id := range r.workers {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	sort.Strings(ids)
	return ids
}

// Info returns a snapshot of the loop with the given id.
func (r *Registry) Info(id string) (Info, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.loops[id]
	if !ok {
		return Info{}, &NotFoundError{Kind: "loop", ID: id}
	}
	return Info{
		ID:         h.id,
		Worker:     h.worker,
		Started:    h.started,
		Iterations: h.iterations,
		Status:     h.control.String(),
		Command:    h.command,
	}, nil
}

// Pause asks the loop to block at its next checkpoint.
func (r *Registry) Pause(id string) error { return r.signal(id, Pause, EventPause) }

// Resume releases a paused loop. Resuming a canceled loop is a no-op:
// cancellation is terminal for a handle's lifetime.
func (r *Registry) Resume(id string) error { return r.signal(id, Run, EventResume) }

// Cancel makes the loop's next checkpoint fail with ErrCanceled. The owner
// worker is expected to unwind and Leave; it never resumes running.
func (r *Registry) Cancel(id string) error { return r.signal(id, Cancel, EventCancel) }

func (r *Registry) signal(id string, ctl Control, kind string) error {
	r.mu.Lock()
	h, ok := r.loops[id]
	if !ok {
		r.mu.Unlock()
		return &NotFoundError{Kind: "loop", ID: id}
	}
	if h.control != Cancel {
		h.control = ctl
		r.cond.Broadcast()
	}
	worker := h.worker
	r.mu.Unlock()

	r.record(Event{Kind: kind, LoopID: id, Worker: worker})
	return nil
}

// allocLoopID renders the next value of the loop counter, retrying on the
// (wraparound-only) chance of a collision. Callers must hold the lock.
func (r *Registry) allocLoopID() string {
	for {
		id := strconv.FormatUint(r.nextLoop, 16)
		r.nextLoop++
		if _, exists := r.loops[id]; !exists {
			return id
		}
	}
}
