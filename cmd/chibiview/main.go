// Copyright 2026 The chibios-gdb Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Chibiview is a command-line tool for inspecting the ChibiOS/RT
// scheduling state frozen in a core dump of an embedded target: the
// thread registry and per-thread stack usage, the context switch
// trace buffer, the armed virtual timers, and the kernel version.
//
// Usage:
//
//	chibiview -c dump.core -e firmware.elf threads
//	chibiview -c dump.core -e firmware.elf trace 25
//	chibiview -c dump.core -e firmware.elf          (interactive)
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tustvold/chibios-gdb/internal/config"
	"github.com/tustvold/chibios-gdb/internal/logflags"
)

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCommand builds the whole command table. Nothing registers
// itself from init; the table is constructed here and handed to
// whoever drives it (cobra directly, or the interactive loop).
func newRootCommand() *cobra.Command {
	s := &session{out: os.Stdout}

	root := &cobra.Command{
		Use:   "chibiview",
		Short: "inspect ChibiOS/RT kernel state in a core dump",
		Long: `Chibiview reconstructs the scheduling state of a ChibiOS/RT kernel
from a core dump and the matching executable: threads and their stack
usage, the context switch trace, armed virtual timers, and the kernel
version. With no command it starts an interactive session.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := logflags.Setup(s.logFlag, s.logOutput); err != nil {
				return err
			}
			conf, err := config.LoadConfig()
			if err != nil {
				fmt.Fprintf(os.Stderr, "warning: %v\n", err)
			}
			s.conf = conf
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unknown command %q, run 'chibiview help'", args[0])
			}
			return s.interactive(cmd)
		},
	}

	fs := root.PersistentFlags()
	fs.StringVarP(&s.corePath, "core", "c", "", "core dump of the target")
	fs.StringVarP(&s.exePath, "exe", "e", "", "ELF executable the target was running")
	fs.BoolVar(&s.logFlag, "log", false, "enable debug logging")
	fs.StringVar(&s.logOutput, "log-output", "", "comma separated list of components to log (image,walker,commands)")
	root.MarkPersistentFlagRequired("core")
	root.MarkPersistentFlagRequired("exe")

	root.AddCommand(
		&cobra.Command{
			Use:   "threads",
			Short: "list all threads and their stack usage",
			Args:  cobra.NoArgs,
			RunE:  func(cmd *cobra.Command, args []string) error { return s.threads() },
		},
		&cobra.Command{
			Use:   "thread [address]",
			Short: "describe the current thread, or the thread at the given address",
			Args:  cobra.MaximumNArgs(1),
			RunE:  func(cmd *cobra.Command, args []string) error { return s.thread(args) },
		},
		&cobra.Command{
			Use:   "trace [count]",
			Short: "show the last context switch events, oldest first",
			Args:  cobra.MaximumNArgs(1),
			RunE:  func(cmd *cobra.Command, args []string) error { return s.trace(args) },
		},
		&cobra.Command{
			Use:   "timers",
			Short: "list armed virtual timers",
			Args:  cobra.NoArgs,
			RunE:  func(cmd *cobra.Command, args []string) error { return s.timers() },
		},
		&cobra.Command{
			Use:   "version",
			Short: "show the target's kernel version",
			Args:  cobra.NoArgs,
			RunE:  func(cmd *cobra.Command, args []string) error { return s.version() },
		},
		&cobra.Command{
			Use:   "check",
			Short: "check which kernel debug features the target was built with",
			Args:  cobra.NoArgs,
			RunE:  func(cmd *cobra.Command, args []string) error { return s.check() },
		},
	)
	return root
}
