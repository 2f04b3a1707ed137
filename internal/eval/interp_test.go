package eval

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestEvalExpression(t *testing.T) {
	it, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	result, err := it.Eval("2+2")
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if result != "4" {
		t.Errorf("result = %q, want %q", result, "4")
	}
}

func TestEvalStatePersistsAcrossCalls(t *testing.T) {
	it, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := it.Eval(`x := 40`); err != nil {
		t.Fatalf("Eval assign: %v", err)
	}
	result, err := it.Eval(`x + 2`)
	if err != nil {
		t.Fatalf("Eval use: %v", err)
	}
	if result != "42" {
		t.Errorf("result = %q, want %q", result, "42")
	}
}

func TestEvalUsesStdlib(t *testing.T) {
	it, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := it.Eval(`import "strings"`); err != nil {
		t.Fatalf("Eval import: %v", err)
	}
	result, err := it.Eval(`strings.ToUpper("ok")`)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if result != "OK" {
		t.Errorf("result = %q, want %q", result, "OK")
	}
}

func TestEvalScriptError(t *testing.T) {
	it, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = it.Eval("no such syntax here (")
	if err == nil {
		t.Fatal("expected an error for invalid source")
	}
	if errors.Is(err, ErrAborted) {
		t.Errorf("script error misreported as abort: %v", err)
	}
}

func TestInterruptArmedBeforeEval(t *testing.T) {
	it, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	it.Interrupt()
	_, err = it.Eval("2+2")
	if !errors.Is(err, ErrAborted) {
		t.Fatalf("Eval err = %v, want ErrAborted", err)
	}

	// The interrupt is consumed; the interpreter is usable again.
	result, err := it.Eval("2+2")
	if err != nil {
		t.Fatalf("Eval after consumed interrupt: %v", err)
	}
	if result != "4" {
		t.Errorf("result = %q, want %q", result, "4")
	}
}

func TestInterruptMidScript(t *testing.T) {
	it, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		// A script that never finishes on its own.
		_, evalErr := it.Eval(`for {}`)
		done <- evalErr
	}()

	// Let the script get going, then interrupt it.
	time.Sleep(100 * time.Millisecond)
	start := time.Now()
	it.Interrupt()

	select {
	case evalErr := <-done:
		if !errors.Is(evalErr, ErrAborted) {
			t.Fatalf("Eval err = %v, want ErrAborted", evalErr)
		}
		if elapsed := time.Since(start); elapsed > 5*time.Second {
			t.Errorf("interrupt delivered after %v, want promptly", elapsed)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("interrupt did not stop the script")
	}
}

func TestEvalEmptyResult(t *testing.T) {
	it, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// A declaration evaluates to no printable value.
	result, err := it.Eval(`y := 1; _ = y`)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if strings.Contains(result, "invalid") {
		t.Errorf("result = %q, want a clean rendering", result)
	}
}
