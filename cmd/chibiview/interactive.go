// Copyright 2026 The chibios-gdb Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/tustvold/chibios-gdb/internal/config"
	"github.com/tustvold/chibios-gdb/internal/logflags"
)

// interactive runs commands from stdin against a single opened
// target. On a terminal it is a readline loop with history and
// completion; on a pipe it degrades to plain line reading, so
// scripted sessions work too.
func (s *session) interactive(root *cobra.Command) error {
	// Open the target up front so the operator hears about a bad
	// core file before the first prompt, not after.
	if _, err := s.ensureKernel(); err != nil {
		return err
	}
	log := logflags.CommandsLogger()

	if !isatty.IsTerminal(os.Stdin.Fd()) {
		scan := bufio.NewScanner(os.Stdin)
		for scan.Scan() {
			if done := s.dispatch(root, scan.Text(), log); done {
				return nil
			}
		}
		return scan.Err()
	}

	var completions []readline.PrefixCompleterInterface
	for _, cmd := range root.Commands() {
		completions = append(completions, readline.PcItem(cmd.Name()))
	}
	completions = append(completions, readline.PcItem("help"), readline.PcItem("exit"))

	rl, err := readline.NewEx(&readline.Config{
		Prompt:       "(chibiview) ",
		HistoryFile:  config.HistoryFilePath(),
		AutoComplete: readline.NewPrefixCompleter(completions...),
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	fmt.Fprintf(s.out, "inspecting %s, type 'help' for commands\n", s.corePath)
	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if done := s.dispatch(root, line, log); done {
			return nil
		}
	}
}

// dispatch runs one command line against the command table. Errors
// are reported per command; a failed query never ends the session.
// The returned bool reports whether the session should end.
func (s *session) dispatch(root *cobra.Command, line string, log interface{ Debugf(string, ...interface{}) }) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	name, args := fields[0], fields[1:]
	log.Debugf("dispatch %q %v", name, args)

	switch name {
	case "exit", "quit", "q":
		return true
	case "help", "?":
		fmt.Fprintln(s.out, "commands:")
		for _, cmd := range root.Commands() {
			fmt.Fprintf(s.out, "  %-18s %s\n", cmd.Use, cmd.Short)
		}
		fmt.Fprintf(s.out, "  %-18s %s\n", "exit", "end the session")
		return false
	}

	for _, cmd := range root.Commands() {
		if cmd.Name() != name || cmd.RunE == nil {
			continue
		}
		if cmd.Args != nil {
			if err := cmd.Args(cmd, args); err != nil {
				fmt.Fprintf(s.out, "error: %v\n", err)
				return false
			}
		}
		if err := cmd.RunE(cmd, args); err != nil {
			fmt.Fprintf(s.out, "error: %v\n", err)
		}
		return false
	}
	fmt.Fprintf(s.out, "unknown command %q, type 'help'\n", name)
	return false
}
