// Package eval wraps the yaegi Go interpreter as the script evaluator the
// control plane hands rendezvous scripts to. One Interp serves one worker
// goroutine; interpreters are not shared between workers.
package eval

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// ErrAborted is returned by Eval when the evaluation was interrupted by
// the worker's abort capability. It propagates as an ordinary evaluator
// failure; nothing downstream distinguishes it except by message.
var ErrAborted = errors.New("eval: aborted")

// Interp is a yaegi interpreter with an out-of-band interrupt. Interrupt
// cancels the evaluation currently in flight, or, when none is running,
// stays armed so the next Eval fails immediately. That mirrors an async
// mark: raised at any time, observed at the evaluator's next interrupt
// check, independent of any loop checkpoint.
type Interp struct {
	mu      sync.Mutex
	interp  *interp.Interpreter
	cancel  context.CancelFunc // non-nil while an Eval is in flight
	aborted bool               // armed by Interrupt, consumed by Eval
}

// New creates an interpreter with the standard library loaded.
func New() (*Interp, error) {
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("eval: load stdlib: %w", err)
	}
	return &Interp{interp: i}, nil
}

// Eval evaluates src and returns its result rendered as text. A script
// failure comes back as the error; an interrupt raised before or during
// the evaluation comes back as ErrAborted.
//
// Eval must only be called from the interpreter's owning worker goroutine;
// Interrupt may be called from anywhere.
func (it *Interp) Eval(src string) (string, error) {
	it.mu.Lock()
	if it.aborted {
		it.aborted = false
		it.mu.Unlock()
		return "", ErrAborted
	}
	ctx, cancel := context.WithCancel(context.Background())
	it.cancel = cancel
	it.mu.Unlock()

	v, err := it.interp.EvalWithContext(ctx, src)

	it.mu.Lock()
	it.cancel = nil
	interrupted := it.aborted
	it.aborted = false
	it.mu.Unlock()
	cancel()

	if interrupted {
		return "", ErrAborted
	}
	if err != nil {
		return "", err
	}
	if !v.IsValid() {
		return "", nil
	}
	return fmt.Sprintf("%v", v), nil
}

// Interrupt aborts the evaluation currently running on this interpreter.
// If none is running, the interrupt stays armed and fails the next Eval.
// Safe to call from any goroutine; this is the function workers register
// as their abort hook.
func (it *Interp) Interrupt() {
	it.mu.Lock()
	it.aborted = true
	if it.cancel != nil {
		it.cancel()
	}
	it.mu.Unlock()
}
