// Copyright 2026 The chibios-gdb Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chcore

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/tustvold/chibios-gdb/internal/core"
	"github.com/tustvold/chibios-gdb/internal/logflags"
)

// Symbols names the kernel anchors a query starts from. Ports and
// kernel versions occasionally rename these, so they are overridable
// from the config file; the zero value fields fall back to the
// defaults below.
type Symbols struct {
	Registry    string // ready list / thread registry sentinel
	TimerList   string // virtual timer delta list sentinel
	TraceBuffer string // context switch trace buffer
	VersionCell string // packed kernel version integer
}

// DefaultSymbols returns the anchor names used by stock ChibiOS/RT 2.x.
func DefaultSymbols() Symbols {
	return Symbols{
		Registry:    "rlist",
		TimerList:   "vtlist",
		TraceBuffer: "dbg_trace_buffer",
		VersionCell: "ch_version",
	}
}

func (s Symbols) withDefaults() Symbols {
	d := DefaultSymbols()
	if s.Registry == "" {
		s.Registry = d.Registry
	}
	if s.TimerList == "" {
		s.TimerList = d.TimerList
	}
	if s.TraceBuffer == "" {
		s.TraceBuffer = d.TraceBuffer
	}
	if s.VersionCell == "" {
		s.VersionCell = d.VersionCell
	}
	return s
}

// A Kernel answers queries about the ChibiOS instance in a target
// image. It holds no target state of its own: every query re-derives
// its answer from the image, so re-invoking after a torn-read failure
// simply reads again.
type Kernel struct {
	img  Image
	syms Symbols
	log  *logrus.Entry
}

// NewKernel returns a Kernel reading from img, using syms to locate
// the kernel anchors (zero-valued fields use the stock names).
func NewKernel(img Image, syms Symbols) *Kernel {
	return &Kernel{
		img:  img,
		syms: syms.withDefaults(),
		log:  logflags.WalkerLogger(),
	}
}

// CheckDebugSupport verifies that the target kernel carries enough
// debug support for the thread queries, and returns advisory notes
// for the optional features that are absent. The registry links are
// mandatory; without CH_USE_REGISTRY no thread information is
// reachable at all.
func (k *Kernel) CheckDebugSupport() ([]string, error) {
	typ, err := k.img.FindType(threadType)
	if err != nil {
		return nil, err
	}
	if !typ.HasField(fieldNewer) || !typ.HasField(fieldOlder) {
		return nil, &MissingFeatureError{What: "thread registry", Option: "CH_USE_REGISTRY"}
	}
	var notes []string
	if !typ.HasField(fieldStkLimit) {
		notes = append(notes, fmt.Sprintf("no %s in %s; enable CH_DBG_ENABLE_STACK_CHECK for stack usage", fieldStkLimit, threadType))
	}
	if !typ.HasField(fieldTime) {
		notes = append(notes, fmt.Sprintf("no %s in %s; enable CH_DBG_THREADS_PROFILING for thread times", fieldTime, threadType))
	}
	return notes, nil
}

// resolve looks up an anchor symbol in the image.
func (k *Kernel) resolve(name string) (core.Address, error) {
	a, err := k.img.ResolveSymbol(name)
	if err != nil {
		return 0, err
	}
	k.log.WithFields(logrus.Fields{"symbol": name, "addr": a.String()}).Debug("resolved anchor")
	return a, nil
}
