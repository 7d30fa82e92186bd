// Copyright 2026 The chibios-gdb Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/tustvold/chibios-gdb/internal/chcore"
	"github.com/tustvold/chibios-gdb/internal/config"
	"github.com/tustvold/chibios-gdb/internal/core"
)

// A session holds the flag values and the lazily opened target.
// Opening the core is the expensive step, so the interactive loop
// shares one kernel across commands; since the image is a frozen
// core file this is still a single point-in-time snapshot.
type session struct {
	corePath  string
	exePath   string
	logFlag   bool
	logOutput string

	conf *config.Config

	kernel *chcore.Kernel
	out    io.Writer
}

func (s *session) ensureKernel() (*chcore.Kernel, error) {
	if s.kernel != nil {
		return s.kernel, nil
	}
	p, err := core.Core(s.corePath, s.exePath)
	if err != nil {
		return nil, err
	}
	for _, w := range p.Warnings() {
		fmt.Fprintf(s.out, "warning: %s\n", w)
	}
	img, err := chcore.NewCoreImage(p)
	if err != nil {
		return nil, err
	}
	s.kernel = chcore.NewKernel(img, s.symbols())
	return s.kernel, nil
}

func (s *session) symbols() chcore.Symbols {
	if s.conf == nil {
		return chcore.Symbols{}
	}
	return chcore.Symbols{
		Registry:    s.conf.Symbols.Registry,
		TimerList:   s.conf.Symbols.TimerList,
		TraceBuffer: s.conf.Symbols.TraceBuffer,
		VersionCell: s.conf.Symbols.VersionCell,
	}
}

func (s *session) threads() error {
	k, err := s.ensureKernel()
	if err != nil {
		return err
	}
	notes, err := k.CheckDebugSupport()
	if err != nil {
		return err
	}
	for _, n := range notes {
		fmt.Fprintf(s.out, "note: %s\n", n)
	}
	results, err := k.Threads()
	if err != nil {
		return err
	}
	t := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(t, "Address\tStkLimit\tStack\tFree/Total\tName\tState\n")
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(t, "%08x\t-\t-\t-\tdecode error: %v\t-\n", uint64(r.Addr), r.Err)
			continue
		}
		printThreadRow(t, r.Snapshot)
	}
	return t.Flush()
}

func printThreadRow(w io.Writer, th *chcore.ThreadSnapshot) {
	free := "-"
	if th.HasStackLimit {
		free = fmt.Sprintf("%d/%d", th.StackUnused, th.StackSize)
	}
	fmt.Fprintf(w, "%08x\t%08x\t%08x\t%s\t%s\t%s\n",
		uint64(th.Addr), uint64(th.StackLimit), uint64(th.StackBase),
		free, th.Name, th.State)
}

func (s *session) thread(args []string) error {
	k, err := s.ensureKernel()
	if err != nil {
		return err
	}
	var th *chcore.ThreadSnapshot
	if len(args) == 0 {
		if th, err = k.Current(); err != nil {
			return err
		}
	} else {
		addr, err := parseAddress(args[0])
		if err != nil {
			return err
		}
		results, err := k.Threads()
		if err != nil {
			return err
		}
		var ok bool
		if th, ok = chcore.LookupThread(results, addr); !ok {
			return fmt.Errorf("no thread with control block at %s", addr)
		}
	}
	t := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(t, "Address\tStkLimit\tStack\tFree/Total\tName\tState\n")
	printThreadRow(t, th)
	if err := t.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "flags %#x  prio %d  refs %d", th.Flags, th.Prio, th.Refs)
	if th.HasTime {
		fmt.Fprintf(s.out, "  time %d ticks", th.Time)
	}
	fmt.Fprintln(s.out)
	return nil
}

func (s *session) trace(args []string) error {
	n := chcore.DefaultTraceEvents
	if s.conf != nil && s.conf.TraceEvents > 0 {
		n = s.conf.TraceEvents
	}
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid event count %q", args[0])
		}
		n = v
	}
	k, err := s.ensureKernel()
	if err != nil {
		return err
	}
	recs, err := k.Trace(n)
	if err != nil {
		return err
	}
	t := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(t, "Time\tSwitched from\tState out\tSwitched to\n")
	for _, r := range recs {
		from := "-"
		if r.HasPrev {
			from = threadLabel(r.Prev, r.PrevAddr)
		}
		state := "?"
		if r.StateErr == nil {
			state = r.State.String()
		}
		fmt.Fprintf(t, "%d\t%s\t%s\t%s\n",
			r.Event.Time, from, state, threadLabel(r.Thread, r.Event.ThreadAddr))
	}
	return t.Flush()
}

func threadLabel(th *chcore.ThreadSnapshot, addr core.Address) string {
	if th == nil {
		return fmt.Sprintf("<unknown> (%08x)", uint64(addr))
	}
	return fmt.Sprintf("%s (%08x)", th.Name, uint64(addr))
}

func (s *session) timers() error {
	k, err := s.ensureKernel()
	if err != nil {
		return err
	}
	timers, err := k.Timers()
	if err != nil {
		return err
	}
	if len(timers) == 0 {
		fmt.Fprintln(s.out, "no virtual timers armed")
		return nil
	}
	t := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(t, "Address\tDeadline\tCallback\tParameter\n")
	for _, vt := range timers {
		fmt.Fprintf(t, "%08x\t%d\t%08x\t%08x\n",
			uint64(vt.Addr), vt.Deadline, uint64(vt.Func), uint64(vt.Param))
	}
	return t.Flush()
}

func (s *session) version() error {
	k, err := s.ensureKernel()
	if err != nil {
		return err
	}
	v, err := k.Version()
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "ChibiOS/RT %s\n", v)
	return nil
}

func (s *session) check() error {
	k, err := s.ensureKernel()
	if err != nil {
		return err
	}
	notes, err := k.CheckDebugSupport()
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, "thread registry: present")
	for _, n := range notes {
		fmt.Fprintf(s.out, "note: %s\n", n)
	}
	if len(notes) == 0 {
		fmt.Fprintln(s.out, "all optional debug features present")
	}
	return nil
}

// parseAddress accepts hex with or without an 0x prefix, the way
// addresses get pasted out of map files and other tools' output.
func parseAddress(s string) (core.Address, error) {
	str := strings.TrimPrefix(strings.ToLower(s), "0x")
	v, err := strconv.ParseUint(str, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("can't parse %q as an address", s)
	}
	return core.Address(v), nil
}
