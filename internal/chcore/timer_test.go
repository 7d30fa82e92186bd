// Copyright 2026 The chibios-gdb Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chcore

import (
	"errors"
	"testing"

	"github.com/tustvold/chibios-gdb/internal/core"
)

func timerLayout() *Type {
	return &Type{Name: "VirtualTimer", Size: 20, Kind: KindStruct, Fields: []Field{
		{Name: "vt_next", Off: 0, Type: ptrType()},
		{Name: "vt_prev", Off: 4, Type: ptrType()},
		{Name: "vt_time", Off: 8, Type: u32Type()},
		{Name: "vt_func", Off: 12, Type: ptrType()},
		{Name: "vt_par", Off: 16, Type: ptrType()},
	}}
}

type timerSpec struct {
	addr  core.Address
	time  uint32
	fn    core.Address
	param core.Address
}

// pokeTimerList links the timers into a delta list anchored at
// sentinel and records the timer list symbol.
func pokeTimerList(ti *testImage, sentinel core.Address, timers []timerSpec) {
	ti.syms["vtlist"] = sentinel
	ti.types["VirtualTimer"] = timerLayout()
	n := len(timers)
	link := func(at, next, prev core.Address) {
		ti.pokePtr(at.Add(0), next)
		ti.pokePtr(at.Add(4), prev)
	}
	if n == 0 {
		link(sentinel, sentinel, sentinel)
		return
	}
	link(sentinel, timers[0].addr, timers[n-1].addr)
	for i, tm := range timers {
		next, prev := sentinel, sentinel
		if i < n-1 {
			next = timers[i+1].addr
		}
		if i > 0 {
			prev = timers[i-1].addr
		}
		link(tm.addr, next, prev)
		ti.pokeU32(tm.addr.Add(8), tm.time)
		ti.pokePtr(tm.addr.Add(12), tm.fn)
		ti.pokePtr(tm.addr.Add(16), tm.param)
	}
}

func TestKernelTimers(t *testing.T) {
	ti := newTestImage()
	specs := []timerSpec{
		{addr: 0x5000, time: 10, fn: 0x8000, param: 0x6000},
		{addr: 0x5100, time: 25, fn: 0x8040, param: 0},
		{addr: 0x5200, time: 3, fn: 0x8080, param: 0x6100},
	}
	pokeTimerList(ti, 0x4000, specs)

	timers, err := newTestKernel(ti).Timers()
	if err != nil {
		t.Fatal(err)
	}
	if len(timers) != len(specs) {
		t.Fatalf("got %d timers", len(timers))
	}
	for i, want := range specs {
		got := timers[i]
		if got.Addr != want.addr || got.Deadline != uint64(want.time) ||
			got.Func != want.fn || got.Param != want.param {
			t.Errorf("timer %d = %+v, want %+v", i, got, want)
		}
	}
}

func TestKernelTimersEmpty(t *testing.T) {
	ti := newTestImage()
	pokeTimerList(ti, 0x4000, nil)

	timers, err := newTestKernel(ti).Timers()
	if err != nil {
		t.Fatal(err)
	}
	if len(timers) != 0 {
		t.Errorf("got %d timers from an empty list", len(timers))
	}
}

func TestKernelTimersCorrupt(t *testing.T) {
	ti := newTestImage()
	pokeTimerList(ti, 0x4000, []timerSpec{
		{addr: 0x5000, time: 10},
		{addr: 0x5100, time: 20},
	})
	// Second node's back link no longer points at the first.
	ti.pokePtr(0x5100+4, 0xdead)

	_, err := newTestKernel(ti).Timers()
	var cle *CorruptListError
	if !errors.As(err, &cle) {
		t.Fatalf("got %v, want CorruptListError", err)
	}
	if cle.Node != 0x5100 {
		t.Errorf("Node = %s, want 0x5100", cle.Node)
	}
}

func TestKernelTimersNoSymbol(t *testing.T) {
	// vtlist always exists in a ChibiOS kernel; its absence means the
	// image isn't what it claims to be, not a disabled option.
	ti := newTestImage()
	ti.types["VirtualTimer"] = timerLayout()

	_, err := newTestKernel(ti).Timers()
	var snf *SymbolNotFoundError
	if !errors.As(err, &snf) {
		t.Fatalf("got %v, want SymbolNotFoundError", err)
	}
}
