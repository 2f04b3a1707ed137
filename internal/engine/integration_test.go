package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/naviserver-project/nsloopctl/internal/control"
	"github.com/naviserver-project/nsloopctl/internal/eval"
)

// These tests run the full stack: an engine loop hosted on a worker with a
// real interpreter, driven by a controller through the registry.

func startInterpretedLoop(t *testing.T, reg *control.Registry) (loopID string, stop func()) {
	t.Helper()

	it, err := eval.New()
	if err != nil {
		t.Fatalf("eval.New: %v", err)
	}

	started := make(chan string, 1)
	done := make(chan error, 1)
	go func() {
		w := reg.EnsureWorker()
		defer w.Close()
		w.SetInterrupt(it.Interrupt)

		run := &Runner{Host: reg, Worker: w, Eval: it}
		first := true
		done <- run.While(
			func() (bool, error) { return true, nil },
			func() error {
				if first {
					first = false
					started <- mustOneLoop(reg)
				}
				time.Sleep(time.Millisecond)
				return nil
			},
		)
	}()

	select {
	case id := <-started:
		return id, func() {
			_ = reg.Cancel(id)
			select {
			case <-done:
			case <-time.After(10 * time.Second):
				t.Fatal("loop did not stop")
			}
		}
	case <-time.After(10 * time.Second):
		t.Fatal("loop never started")
		return "", nil
	}
}

func TestEvalScriptInRunningLoop(t *testing.T) {
	reg := control.New()
	id, stop := startInterpretedLoop(t, reg)
	defer stop()

	start := time.Now()
	result, err := reg.Eval(id, "2+2", 5*time.Second)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if result != "4" {
		t.Errorf("result = %q, want %q", result, "4")
	}
	if elapsed := time.Since(start); elapsed >= 5*time.Second {
		t.Errorf("Eval took %v, want well under the deadline", elapsed)
	}
}

func TestEvalScriptFailurePropagatesStatus(t *testing.T) {
	reg := control.New()
	id, stop := startInterpretedLoop(t, reg)
	defer stop()

	_, err := reg.Eval(id, `this is not go`, 5*time.Second)
	var se *control.ScriptError
	if !errors.As(err, &se) {
		t.Fatalf("Eval err = %v, want *ScriptError", err)
	}
}

func TestAbortInterruptsLongScript(t *testing.T) {
	reg := control.New()
	id, stop := startInterpretedLoop(t, reg)
	defer stop()

	info, err := reg.Info(id)
	if err != nil {
		t.Fatalf("Info: %v", err)
	}

	// Hand the loop a script that never finishes, then abort the worker.
	// The rendezvous must come back with the evaluator's abort failure,
	// not a timeout.
	evalDone := make(chan error, 1)
	go func() {
		_, evalErr := reg.Eval(id, `for {}`, time.Minute)
		evalDone <- evalErr
	}()

	// Wait until the worker is actually inside the script.
	time.Sleep(200 * time.Millisecond)

	if err := reg.Abort(info.Worker); err != nil {
		t.Fatalf("Abort: %v", err)
	}

	select {
	case evalErr := <-evalDone:
		var se *control.ScriptError
		if !errors.As(evalErr, &se) {
			t.Fatalf("Eval err = %v, want *ScriptError from the abort", evalErr)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("abort did not interrupt the script")
	}
}
