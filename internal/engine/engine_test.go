package engine

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/naviserver-project/nsloopctl/internal/control"
)

func echoEval(src string) (string, error) { return src, nil }

func newRunner(t *testing.T) (*Runner, *control.Registry) {
	t.Helper()
	reg := control.New()
	w := reg.EnsureWorker()
	t.Cleanup(w.Close)
	return &Runner{Host: reg, Worker: w, Eval: control.EvalFunc(echoEval)}, reg
}

func TestForRunsCountTimes(t *testing.T) {
	r, _ := newRunner(t)

	var got []int
	err := r.For(5, func(i int) error {
		got = append(got, i)
		return nil
	})
	if err != nil {
		t.Fatalf("For: %v", err)
	}
	if want := []int{0, 1, 2, 3, 4}; !reflect.DeepEqual(got, want) {
		t.Errorf("indices = %v, want %v", got, want)
	}
}

func TestForBreakAndContinue(t *testing.T) {
	r, _ := newRunner(t)

	var calls int
	err := r.For(10, func(i int) error {
		calls++
		if i == 1 {
			return Continue
		}
		if i == 3 {
			return Break
		}
		return nil
	})
	if err != nil {
		t.Fatalf("For: %v", err)
	}
	if calls != 4 {
		t.Errorf("body calls = %d, want 4", calls)
	}
}

func TestForBodyErrorStops(t *testing.T) {
	r, _ := newRunner(t)

	boom := errors.New("boom")
	var calls int
	err := r.For(10, func(i int) error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("For err = %v, want boom", err)
	}
	if calls != 1 {
		t.Errorf("body calls = %d, want 1", calls)
	}
}

func TestWhile(t *testing.T) {
	r, _ := newRunner(t)

	n := 0
	err := r.While(
		func() (bool, error) { return n < 3, nil },
		func() error { n++; return nil },
	)
	if err != nil {
		t.Fatalf("While: %v", err)
	}
	if n != 3 {
		t.Errorf("n = %d, want 3", n)
	}
}

func TestWhileCondError(t *testing.T) {
	r, _ := newRunner(t)

	bad := errors.New("bad cond")
	err := r.While(
		func() (bool, error) { return false, bad },
		func() error { return nil },
	)
	if !errors.Is(err, bad) {
		t.Fatalf("While err = %v, want bad cond", err)
	}
}

func TestForEachParallelListsPadded(t *testing.T) {
	r, _ := newRunner(t)

	var rows [][]string
	err := r.ForEach(
		[][]string{{"a", "b", "c"}, {"1"}},
		func(row []string) error {
			rows = append(rows, append([]string(nil), row...))
			return nil
		},
	)
	if err != nil {
		t.Fatalf("ForEach: %v", err)
	}
	want := [][]string{{"a", "1"}, {"b", ""}, {"c", ""}}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("rows = %v, want %v", rows, want)
	}
}

func TestLoopDeregistersOnExit(t *testing.T) {
	r, reg := newRunner(t)

	if err := r.For(3, func(int) error { return nil }); err != nil {
		t.Fatalf("For: %v", err)
	}
	if ids := reg.Loops(); len(ids) != 0 {
		t.Errorf("Loops() after normal exit = %v, want empty", ids)
	}

	_ = r.For(3, func(int) error { return errors.New("boom") })
	if ids := reg.Loops(); len(ids) != 0 {
		t.Errorf("Loops() after error exit = %v, want empty", ids)
	}
}

func TestCancelUnwindsAndDeregisters(t *testing.T) {
	r, reg := newRunner(t)

	started := make(chan string)
	done := make(chan error, 1)
	go func() {
		done <- r.While(
			func() (bool, error) { return true, nil },
			func() error {
				select {
				case started <- mustOneLoop(reg):
				default:
				}
				time.Sleep(time.Millisecond)
				return nil
			},
		)
	}()

	id := <-started
	if err := reg.Cancel(id); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	select {
	case err := <-done:
		if !errors.Is(err, control.ErrCanceled) {
			t.Fatalf("loop err = %v, want ErrCanceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("canceled loop did not unwind")
	}

	if ids := reg.Loops(); len(ids) != 0 {
		t.Errorf("Loops() after cancel = %v, want empty", ids)
	}
}

func mustOneLoop(reg *control.Registry) string {
	ids := reg.Loops()
	if len(ids) != 1 {
		return ""
	}
	return ids[0]
}
