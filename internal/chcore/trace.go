// Copyright 2026 The chibios-gdb Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chcore

import (
	"errors"
	"fmt"

	"github.com/tustvold/chibios-gdb/internal/core"
)

// Trace buffer layout, present when CH_DBG_ENABLE_TRACE is compiled in.
const (
	traceBufferType = "ch_trace_buffer_t"
	traceEventType  = "ch_swc_event_t"

	fieldTraceSize   = "tb_size"
	fieldTracePtr    = "tb_ptr"
	fieldTraceBuffer = "tb_buffer"

	fieldEventTime   = "se_time"
	fieldEventState  = "se_state"
	fieldEventThread = "se_tp"
)

// DefaultTraceEvents is how many trace events a query shows when the
// operator doesn't ask for a specific count.
const DefaultTraceEvents = 10

// A TraceEvent is one context switch recorded in the kernel's
// circular trace buffer: at Time, the thread at ThreadAddr became
// current, and the thread being switched out entered StateCode.
type TraceEvent struct {
	Time       uint64
	StateCode  uint64
	ThreadAddr core.Address
}

// A TraceRecord is a trace event in its chronological place: the
// event, its decoded state, the thread it resolves to (nil means the
// address matches no registry entry -- an exited or never-registered
// thread, reported as unknown rather than dropped), and the thread
// that was current immediately before it. The very first event of
// the reconstructed sequence has no predecessor; HasPrev is false
// there rather than pointing at an arbitrary thread.
type TraceRecord struct {
	Event    TraceEvent
	State    ThreadState
	StateErr error // set when StateCode is outside the state table

	Thread   *ThreadSnapshot
	PrevAddr core.Address
	Prev     *ThreadSnapshot
	HasPrev  bool
}

// Trace returns the last n context-switch events in chronological
// order (oldest first). n is clamped to the buffer capacity;
// requesting more than the buffer holds returns the whole buffer. A
// negative n is rejected before any target memory is read.
func (k *Kernel) Trace(n int) ([]TraceRecord, error) {
	if n < 0 {
		return nil, &InvalidArgumentError{Reason: fmt.Sprintf("event count %d is negative", n)}
	}

	events, w, err := k.readTraceBuffer()
	if err != nil {
		return nil, err
	}

	recs := linearizeTrace(events, w)

	// Resolve event addresses against the current registry. If the
	// registry itself can't be walked the trace is still useful, just
	// with every thread unknown.
	threads, err := k.Threads()
	if err != nil {
		k.log.WithError(err).Warn("trace: can't resolve thread names")
		threads = nil
	}
	for i := range recs {
		recs[i].Thread, _ = LookupThread(threads, recs[i].Event.ThreadAddr)
		if recs[i].HasPrev {
			recs[i].Prev, _ = LookupThread(threads, recs[i].PrevAddr)
		}
	}

	if n > len(recs) {
		n = len(recs)
	}
	return recs[len(recs)-n:], nil
}

// readTraceBuffer reads the whole circular buffer in raw slot order
// plus the index of the slot the target will write next.
func (k *Kernel) readTraceBuffer() ([]TraceEvent, int, error) {
	addr, err := k.resolve(k.syms.TraceBuffer)
	if err != nil {
		var snf *SymbolNotFoundError
		if errors.As(err, &snf) {
			// The buffer only exists when the trace option is on.
			return nil, 0, &MissingFeatureError{What: "context switch trace buffer", Option: "CH_DBG_ENABLE_TRACE"}
		}
		return nil, 0, err
	}
	typ, err := k.img.FindType(traceBufferType)
	if err != nil {
		return nil, 0, err
	}
	r := region{img: k.img, a: addr, typ: typ}

	size, err := readUintField(r, fieldTraceSize)
	if err != nil {
		return nil, 0, err
	}
	buf, err := r.Field(fieldTraceBuffer)
	if err != nil {
		return nil, 0, err
	}
	if buf.typ.Kind != KindArray || buf.typ.Elem == nil {
		return nil, 0, &DecodeError{Type: traceBufferType, Field: fieldTraceBuffer, Reason: "not an array"}
	}
	capacity := buf.typ.Count
	if int64(size) != capacity {
		return nil, 0, &DecodeError{Type: traceBufferType, Field: fieldTraceSize,
			Reason: fmt.Sprintf("size %d disagrees with array length %d", size, capacity)}
	}

	// The write cursor is stored as a pointer to the next slot;
	// recover the index from its offset into the array.
	ptrField, err := r.Field(fieldTracePtr)
	if err != nil {
		return nil, 0, err
	}
	ptr, err := ptrField.Ptr()
	if err != nil {
		return nil, 0, err
	}
	elemSize := buf.typ.Elem.Size
	off := ptr.Sub(buf.a)
	if ptr < buf.a || off%elemSize != 0 || off/elemSize >= capacity {
		return nil, 0, &DecodeError{Type: traceBufferType, Field: fieldTracePtr,
			Reason: fmt.Sprintf("cursor %s outside buffer [%s,+%d)", ptr, buf.a, capacity*elemSize)}
	}
	w := int(off / elemSize)

	events := make([]TraceEvent, capacity)
	for i := int64(0); i < capacity; i++ {
		slot, err := buf.Index(i)
		if err != nil {
			return nil, 0, err
		}
		if events[i].Time, err = readUintField(slot, fieldEventTime); err != nil {
			return nil, 0, err
		}
		if events[i].StateCode, err = readUintField(slot, fieldEventState); err != nil {
			return nil, 0, err
		}
		tp, err := slot.Field(fieldEventThread)
		if err != nil {
			return nil, 0, err
		}
		if events[i].ThreadAddr, err = tp.Ptr(); err != nil {
			return nil, 0, err
		}
	}
	return events, w, nil
}

// linearizeTrace rotates the raw ring into chronological order and
// pairs every event with its predecessor. Slot w is the next slot to
// be written, so the oldest live event lives there; chronological
// order is buffer[w], ..., buffer[len-1], buffer[0], ..., buffer[w-1].
func linearizeTrace(events []TraceEvent, w int) []TraceRecord {
	n := len(events)
	recs := make([]TraceRecord, 0, n)
	for i := 0; i < n; i++ {
		ev := events[(w+i)%n]
		rec := TraceRecord{Event: ev}
		rec.State, rec.StateErr = decodeThreadState(ev.StateCode)
		if i > 0 {
			rec.PrevAddr = recs[i-1].Event.ThreadAddr
			rec.HasPrev = true
		}
		recs = append(recs, rec)
	}
	return recs
}
