// Package engine re-implements the counted, conditional, and
// parallel-list loop constructs as controllable loops: each registers with
// the control plane before iterating, checkpoints once per iteration, and
// deregisters on every exit path. The loop semantics themselves are
// ordinary; the point is honoring the checkpoint-host contract so a
// controller can observe, pause, cancel, or script any of them.
package engine

import (
	"errors"
	"strconv"

	"github.com/naviserver-project/nsloopctl/internal/control"
)

// Break stops the enclosing loop without reporting an error, like a break
// statement. Returned from a loop body.
var Break = errors.New("engine: break")

// Continue skips the rest of the current iteration. Returned from a loop
// body.
var Continue = errors.New("engine: continue")

// Host is the loop-control surface the engines drive. *control.Registry
// satisfies it.
type Host interface {
	Enter(w *control.Worker, ev control.Evaluator, args ...string) *control.Handle
	Checkpoint(h *control.Handle) error
	Leave(h *control.Handle)
}

// Runner hosts loops for one worker goroutine. The Evaluator services
// rendezvous scripts handed to any of the runner's loops; it is the same
// interpreter the loop bodies of that worker use.
type Runner struct {
	Host   Host
	Worker *control.Worker
	Eval   control.Evaluator
}

// For runs body count times, checkpointing before each call. The index
// passed to body starts at 0.
func (r *Runner) For(count int, body func(i int) error) error {
	h := r.Host.Enter(r.Worker, r.Eval, "for", strconv.Itoa(count))
	defer r.Host.Leave(h)

	for i := 0; i < count; i++ {
		if err := r.Host.Checkpoint(h); err != nil {
			return err
		}
		if err := body(i); err != nil {
			if errors.Is(err, Break) {
				return nil
			}
			if errors.Is(err, Continue) {
				continue
			}
			return err
		}
	}
	return nil
}

// While runs body as long as cond reports true, checkpointing before each
// body call.
func (r *Runner) While(cond func() (bool, error), body func() error) error {
	h := r.Host.Enter(r.Worker, r.Eval, "while")
	defer r.Host.Leave(h)

	for {
		ok, err := cond()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := r.Host.Checkpoint(h); err != nil {
			return err
		}
		if err := body(); err != nil {
			if errors.Is(err, Break) {
				return nil
			}
			if errors.Is(err, Continue) {
				continue
			}
			return err
		}
	}
}

// ForEach iterates the given value lists in parallel, checkpointing before
// each row. Shorter lists are padded with empty strings, so the iteration
// count is the length of the longest list. body receives one value per
// list.
func (r *Runner) ForEach(lists [][]string, body func(row []string) error) error {
	args := []string{"foreach"}
	for _, list := range lists {
		args = append(args, strconv.Itoa(len(list))+" values")
	}
	h := r.Host.Enter(r.Worker, r.Eval, args...)
	defer r.Host.Leave(h)

	rows := 0
	for _, list := range lists {
		if len(list) > rows {
			rows = len(list)
		}
	}

	row := make([]string, len(lists))
	for j := 0; j < rows; j++ {
		for i, list := range lists {
			if j < len(list) {
				row[i] = list[j]
			} else {
				row[i] = ""
			}
		}
		if err := r.Host.Checkpoint(h); err != nil {
			return err
		}
		if err := body(row); err != nil {
			if errors.Is(err, Break) {
				return nil
			}
			if errors.Is(err, Continue) {
				continue
			}
			return err
		}
	}
	return nil
}
