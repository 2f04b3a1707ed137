package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/naviserver-project/nsloopctl/internal/config"
	"github.com/naviserver-project/nsloopctl/internal/control"
	"github.com/naviserver-project/nsloopctl/internal/engine"
	"github.com/naviserver-project/nsloopctl/internal/eval"
	"github.com/naviserver-project/nsloopctl/internal/journal"
	"github.com/naviserver-project/nsloopctl/internal/tui"
)

func demoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Host demo worker loops and open the interactive monitor",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			noTUI, _ := cmd.Flags().GetBool("no-tui")
			return runDemo(cfgPath, noTUI)
		},
	}
	cmd.Flags().String("config", "", "path to loopctl.toml (default: search upward)")
	cmd.Flags().Bool("no-tui", false, "run headless; print loop info until interrupted")
	return cmd
}

func runDemo(cfgPath string, noTUI bool) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := zap.NewNop()
	if noTUI {
		if logger, err = zap.NewDevelopment(); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		defer logger.Sync()
	}

	reg := control.New()
	reg.SetLogger(logger)

	if cfg.Log.Dir != "" {
		j, jErr := journal.Open(cfg.Log.Dir, logger)
		if jErr != nil {
			return jErr
		}
		defer j.Close()
		reg.SetRecorder(j)
		if noTUI {
			logger.Info("journal open", zap.String("path", j.Path()))
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < cfg.Demo.Workers; i++ {
		g.Go(func() error { return runWorker(ctx, reg, cfg.Demo) })
	}
	for i := 0; i < cfg.Demo.Stuck; i++ {
		g.Go(func() error { return runStuckWorker(ctx, reg) })
	}

	if noTUI {
		err = runHeadless(ctx, reg)
	} else {
		program := tea.NewProgram(
			tui.New(reg, cfg.Eval.Timeout(), cfg.TUI.AccentColor),
			tea.WithAltScreen(),
		)
		_, err = program.Run()
	}

	// Wake every worker, including paused ones, so the group drains.
	cancel()
	for _, id := range reg.Loops() {
		_ = reg.Cancel(id)
	}
	if waitErr := g.Wait(); waitErr != nil && (err == nil || errors.Is(err, context.Canceled)) {
		err = waitErr
	}
	return err
}

// runWorker hosts controllable loops on one worker goroutine until the
// context is done. A canceled loop unwinds and a fresh one takes its
// place, the way a request thread hosts many loops over its life.
func runWorker(ctx context.Context, reg *control.Registry, demo config.DemoConfig) error {
	w := reg.EnsureWorker()
	defer w.Close()

	it, err := eval.New()
	if err != nil {
		return err
	}
	w.SetInterrupt(it.Interrupt)

	run := &engine.Runner{Host: reg, Worker: w, Eval: it}
	body := func() error {
		select {
		case <-ctx.Done():
			return engine.Break
		case <-time.After(demo.Tick()):
			return nil
		}
	}

	for ctx.Err() == nil {
		var loopErr error
		if demo.Iterations > 0 {
			loopErr = run.For(demo.Iterations, func(int) error { return body() })
		} else {
			loopErr = run.While(
				func() (bool, error) { return ctx.Err() == nil, nil },
				body,
			)
		}
		switch {
		case loopErr == nil, errors.Is(loopErr, control.ErrCanceled):
			// Host the next loop.
		default:
			return loopErr
		}
	}
	return nil
}

// runStuckWorker hosts a loop that never checkpoints: its body runs
// scripts back to back. Pause and cancel cannot reach it; the abort
// capability is the only way to bring it down, which is exactly what it
// is here to demonstrate.
func runStuckWorker(ctx context.Context, reg *control.Registry) error {
	w := reg.EnsureWorker()
	defer w.Close()

	it, err := eval.New()
	if err != nil {
		return err
	}
	w.SetInterrupt(it.Interrupt)

	if _, err := it.Eval(`import "time"`); err != nil {
		return err
	}

	h := reg.Enter(w, it, "while", "1", "(never checkpoints)")
	defer reg.Leave(h)

	for ctx.Err() == nil {
		if _, evalErr := it.Eval(`time.Sleep(100 * time.Millisecond)`); evalErr != nil {
			// Aborted mid-script: the evaluation fails and the loop
			// unwinds, like any other body failure.
			return nil
		}
	}
	return nil
}

// runHeadless prints a loop table once a second until interrupted.
func runHeadless(ctx context.Context, reg *control.Registry) error {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-sig:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for _, id := range reg.Loops() {
				info, err := reg.Info(id)
				if err != nil {
					continue
				}
				fmt.Printf("loop %-4s worker %-4s %-8s iter %-8d %s\n",
					info.ID, info.Worker, info.Status, info.Iterations, info.Command)
			}
		}
	}
}
