// Package main is the entry point for the loopctl CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/naviserver-project/nsloopctl/internal/config"
	"github.com/naviserver-project/nsloopctl/internal/journal"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "loopctl",
		Short:   "loopctl — observe and control long-running loops",
		Version: version,
	}

	root.AddCommand(
		demoCmd(),
		initCmd(),
		journalCmd(),
	)

	return root
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default loopctl.toml to the current directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("get working directory: %w", err)
			}
			path, err := config.InitFile(dir)
			if err != nil {
				return err
			}
			fmt.Printf("Created %s\n", path)
			return nil
		},
	}
}

func journalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "journal <session-file>",
		Short: "Print the control-plane events recorded in a session journal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := journal.Read(args[0])
			if err != nil {
				return err
			}
			for _, ev := range events {
				line := fmt.Sprintf("%s  %-13s", ev.Time.Format("15:04:05.000"), ev.Kind)
				if ev.LoopID != "" {
					line += "  loop=" + ev.LoopID
				}
				if ev.Worker != "" {
					line += "  worker=" + ev.Worker
				}
				if ev.Detail != "" {
					line += "  " + ev.Detail
				}
				fmt.Println(line)
			}
			return nil
		},
	}
}
