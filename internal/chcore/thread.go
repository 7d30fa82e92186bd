// Copyright 2026 The chibios-gdb Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chcore

import (
	"fmt"

	"github.com/tustvold/chibios-gdb/internal/core"
)

// Field and type names as they appear in the kernel's debug info.
const (
	threadType    = "Thread"
	readyListType = "ReadyList"

	fieldNewer    = "p_newer"
	fieldOlder    = "p_older"
	fieldCtx      = "p_ctx"
	fieldCtxSP    = "r13"
	fieldStkLimit = "p_stklimit"
	fieldName     = "p_name"
	fieldState    = "p_state"
	fieldFlags    = "p_flags"
	fieldPrio     = "p_prio"
	fieldRefs     = "p_refs"
	fieldTime     = "p_time"

	fieldCurrent = "r_current"
)

// stackFill is the byte the kernel writes over fresh stack space when
// CH_DBG_FILL_THREADS is enabled ('U'). Stack usage is measured as
// the high-water mark of bytes that no longer hold it.
const stackFill = 0x55

// namePlaceholder substitutes for threads with no name set.
const namePlaceholder = "<no name>"

// A ThreadState is one of the kernel's fixed thread states. The
// numeric values are indexes into the kernel's own state table and
// must not be reordered.
type ThreadState int

const (
	StateReady ThreadState = iota
	StateCurrent
	StateSuspended
	StateWtSem
	StateWtMtx
	StateWtCond
	StateSleeping
	StateWtExit
	StateWtOrEvt
	StateWtAndEvt
	StateSndMsgQ
	StateSndMsg
	StateWtMsg
	StateWtQueue
	StateFinal

	numThreadStates = int(StateFinal) + 1
)

var threadStateNames = [numThreadStates]string{
	"READY", "CURRENT", "SUSPENDED", "WTSEM", "WTMTX", "WTCOND", "SLEEPING",
	"WTEXIT", "WTOREVT", "WTANDEVT", "SNDMSGQ", "SNDMSG", "WTMSG", "WTQUEUE",
	"FINAL",
}

func (s ThreadState) String() string {
	if s < 0 || int(s) >= numThreadStates {
		return fmt.Sprintf("ThreadState(%d)", int(s))
	}
	return threadStateNames[s]
}

// decodeThreadState maps a raw state code from the target into a
// ThreadState. Codes outside the table are a decode error, never
// clamped: an impossible state means we are misreading the target.
func decodeThreadState(raw uint64) (ThreadState, error) {
	if raw >= uint64(numThreadStates) {
		return 0, &DecodeError{Type: threadType, Field: fieldState,
			Reason: fmt.Sprintf("state code %d out of range [0,%d]", raw, numThreadStates-1)}
	}
	return ThreadState(raw), nil
}

// A ThreadSnapshot is one kernel thread control block, decoded at a
// single point in time. It is immutable once built and is never
// reused across queries.
//
// StackLimit and Time only exist when the matching debug option was
// compiled into the target; HasStackLimit and HasTime distinguish
// "measured zero" from "not measured".
type ThreadSnapshot struct {
	Addr core.Address // address of the control block; unique per live thread

	StackBase     core.Address // saved stack pointer (top of the private stack)
	StackLimit    core.Address // lowest address of the private stack
	HasStackLimit bool
	StackSize     int64 // StackBase - StackLimit, 0 when limit unknown
	StackUnused   int64 // bytes above StackLimit still holding the fill byte

	Name  string
	State ThreadState
	Flags uint64
	Prio  uint64
	Refs  uint64

	Time    uint64
	HasTime bool
}

// A ThreadResult is one registry entry: either a decoded snapshot or
// the decode error for that entry. A bad entry does not abort the
// rest of the listing.
type ThreadResult struct {
	Addr     core.Address
	Snapshot *ThreadSnapshot
	Err      error
}

// Threads walks the thread registry and decodes every thread.
// The walk itself (pointer chasing, ring consistency) must succeed;
// per-thread decode failures are reported in the individual results.
func (k *Kernel) Threads() ([]ThreadResult, error) {
	if _, err := k.CheckDebugSupport(); err != nil {
		return nil, err
	}
	sentinel, err := k.resolve(k.syms.Registry)
	if err != nil {
		return nil, err
	}
	typ, err := k.img.FindType(threadType)
	if err != nil {
		return nil, err
	}
	var results []ThreadResult
	rg := ring{img: k.img, sentinel: sentinel, typ: typ, forward: fieldNewer, backward: fieldOlder}
	err = rg.walk(func(node core.Address) error {
		t, err := readThread(k.img, typ, node)
		results = append(results, ThreadResult{Addr: node, Snapshot: t, Err: err})
		return nil
	})
	if err != nil {
		return nil, err
	}
	k.log.WithField("threads", len(results)).Debug("walked registry")
	return results, nil
}

// Current returns the thread the kernel was executing at snapshot
// time. It prefers the ready list's current-thread pointer; if the
// debug info has no ReadyList layout it falls back to scanning the
// registry for the CURRENT state.
func (k *Kernel) Current() (*ThreadSnapshot, error) {
	sentinel, err := k.resolve(k.syms.Registry)
	if err != nil {
		return nil, err
	}
	if rl, err := k.img.FindType(readyListType); err == nil && rl.HasField(fieldCurrent) {
		f, err := (region{img: k.img, a: sentinel, typ: rl}).Field(fieldCurrent)
		if err != nil {
			return nil, err
		}
		cur, err := f.Ptr()
		if err != nil {
			return nil, err
		}
		if cur == 0 {
			return nil, fmt.Errorf("target has no current thread")
		}
		return k.Thread(cur)
	}
	results, err := k.Threads()
	if err != nil {
		return nil, err
	}
	for _, r := range results {
		if r.Err == nil && r.Snapshot.State == StateCurrent {
			return r.Snapshot, nil
		}
	}
	return nil, fmt.Errorf("target has no current thread")
}

// Thread decodes the thread control block at addr.
func (k *Kernel) Thread(addr core.Address) (*ThreadSnapshot, error) {
	typ, err := k.img.FindType(threadType)
	if err != nil {
		return nil, err
	}
	return readThread(k.img, typ, addr)
}

// LookupThread finds the snapshot with the given control block
// address in a previously decoded set. The second result reports
// whether a matching thread exists; there is no default snapshot.
func LookupThread(results []ThreadResult, addr core.Address) (*ThreadSnapshot, bool) {
	for _, r := range results {
		if r.Addr == addr && r.Snapshot != nil {
			return r.Snapshot, true
		}
	}
	return nil, false
}

// readThread decodes one registry node into a ThreadSnapshot.
func readThread(img Image, typ *Type, addr core.Address) (*ThreadSnapshot, error) {
	r := region{img: img, a: addr, typ: typ}
	t := &ThreadSnapshot{Addr: addr}

	// The saved stack pointer lives in the port context.
	ctx, err := r.Field(fieldCtx)
	if err != nil {
		return nil, err
	}
	sp, err := ctx.Field(fieldCtxSP)
	if err != nil {
		return nil, err
	}
	if t.StackBase, err = sp.Ptr(); err != nil {
		return nil, err
	}

	// p_stklimit exists only with CH_DBG_ENABLE_STACK_CHECK. Ask the
	// layout before reading; when absent the stack numbers stay at
	// zero and HasStackLimit records that they were never measured.
	if typ.HasField(fieldStkLimit) {
		f, err := r.Field(fieldStkLimit)
		if err != nil {
			return nil, err
		}
		if t.StackLimit, err = f.Ptr(); err != nil {
			return nil, err
		}
		t.HasStackLimit = true
		t.StackSize, t.StackUnused = scanStack(img, t.StackLimit, t.StackBase)
	}

	name, err := r.Field(fieldName)
	if err != nil {
		return nil, err
	}
	if t.Name, err = name.CString(); err != nil {
		return nil, err
	}
	if t.Name == "" {
		t.Name = namePlaceholder
	}

	st, err := r.Field(fieldState)
	if err != nil {
		return nil, err
	}
	raw, err := st.Uint()
	if err != nil {
		return nil, err
	}
	if t.State, err = decodeThreadState(raw); err != nil {
		return nil, err
	}

	if t.Flags, err = readUintField(r, fieldFlags); err != nil {
		return nil, err
	}
	if t.Prio, err = readUintField(r, fieldPrio); err != nil {
		return nil, err
	}
	if t.Refs, err = readUintField(r, fieldRefs); err != nil {
		return nil, err
	}

	// p_time exists only with CH_DBG_THREADS_PROFILING.
	if typ.HasField(fieldTime) {
		if t.Time, err = readUintField(r, fieldTime); err != nil {
			return nil, err
		}
		t.HasTime = true
	}

	return t, nil
}

func readUintField(r region, name string) (uint64, error) {
	f, err := r.Field(name)
	if err != nil {
		return 0, err
	}
	return f.Uint()
}

func readPtrField(r region, name string) (core.Address, error) {
	f, err := r.Field(name)
	if err != nil {
		return 0, err
	}
	return f.Ptr()
}

// scanStack measures a thread's private stack. The range
// [limit, base) was filled with stackFill before first use; the
// offset of the first byte that no longer holds it is the high-water
// mark, so everything below that offset is unused.
//
// A region that is entirely fill bytes means the whole stack is still
// free: unused == size, handled as its own case rather than as the
// accidental result of a scan loop running off the end.
//
// The scan degrades instead of failing: if the bounds are unusable or
// the memory can't be read (a detached or unmapped stack), the thread
// is reported with zero usage data and the listing carries on.
func scanStack(img Image, limit, base core.Address) (size, unused int64) {
	if limit == 0 || base < limit {
		return 0, 0
	}
	size = base.Sub(limit)
	if size == 0 {
		return 0, 0
	}
	buf := make([]byte, size)
	if err := img.ReadAt(buf, limit); err != nil {
		return size, 0
	}
	for i, b := range buf {
		if b != stackFill {
			return size, int64(i)
		}
	}
	return size, size // whole stack still untouched
}
