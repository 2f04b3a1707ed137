package control

import (
	"errors"
	"fmt"
)

// NotFoundError reports an unknown loop or worker id. Kind is "loop" or
// "worker"; ID is the id the caller asked for.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("control: no such %s id: %s", e.Kind, e.ID)
}

var (
	// ErrEvalPending means a second eval was attempted against a loop
	// that already has one outstanding. Requests are rejected, not queued.
	ErrEvalPending = errors.New("control: eval pending")

	// ErrEvalTimeout means the rendezvous deadline elapsed before the
	// loop serviced the request. The request is abandoned; a result the
	// worker produces later is discarded and logged, never delivered.
	ErrEvalTimeout = errors.New("control: eval timeout: result dropped")

	// ErrEvalDropped means the loop exited before servicing the request.
	// Distinct from ErrEvalTimeout so callers can tell "never will
	// finish" from "might still have finished".
	ErrEvalDropped = errors.New("control: eval dropped: loop exited")

	// ErrCanceled is returned by Checkpoint after a Cancel signal. The
	// owner worker treats it like any other loop-body failure: unwind
	// and Leave.
	ErrCanceled = errors.New("control: loop canceled")
)

// ScriptError reports that an evaluated script itself failed. The script's
// failure text is carried as the eval result, so a script can simulate its
// own error status end to end.
type ScriptError struct {
	Msg string
}

func (e *ScriptError) Error() string {
	return "control: script failed: " + e.Msg
}
