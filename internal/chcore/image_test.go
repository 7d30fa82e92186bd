// Copyright 2026 The chibios-gdb Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chcore

import (
	"encoding/binary"

	"github.com/tustvold/chibios-gdb/internal/core"
)

// testImage is a synthetic target: byte-granular memory poked by the
// tests, hand-built type layouts, and a symbol table. It models a
// little-endian 32-bit part, which is what almost every ChibiOS
// target is.
type testImage struct {
	mem   map[core.Address]byte
	syms  map[string]core.Address
	types map[string]*Type
}

func newTestImage() *testImage {
	return &testImage{
		mem:   make(map[core.Address]byte),
		syms:  make(map[string]core.Address),
		types: make(map[string]*Type),
	}
}

func (ti *testImage) ResolveSymbol(name string) (core.Address, error) {
	if a, ok := ti.syms[name]; ok {
		return a, nil
	}
	return 0, &SymbolNotFoundError{Symbol: name}
}

func (ti *testImage) FindType(name string) (*Type, error) {
	if t, ok := ti.types[name]; ok {
		return t, nil
	}
	return nil, &DecodeError{Type: name, Reason: "no such type in target debug info"}
}

func (ti *testImage) ReadAt(b []byte, a core.Address) error {
	for i := range b {
		v, ok := ti.mem[a.Add(int64(i))]
		if !ok {
			return &core.ReadError{Addr: a, Len: int64(len(b))}
		}
		b[i] = v
	}
	return nil
}

func (ti *testImage) PtrSize() int64 { return 4 }

func (ti *testImage) ByteOrder() binary.ByteOrder { return binary.LittleEndian }

func (ti *testImage) pokeU8(a core.Address, v uint8) {
	ti.mem[a] = v
}

func (ti *testImage) pokeU16(a core.Address, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	ti.pokeBytes(a, b[:])
}

func (ti *testImage) pokeU32(a core.Address, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	ti.pokeBytes(a, b[:])
}

func (ti *testImage) pokePtr(a, v core.Address) {
	ti.pokeU32(a, uint32(v))
}

func (ti *testImage) pokeBytes(a core.Address, b []byte) {
	for i, v := range b {
		ti.mem[a.Add(int64(i))] = v
	}
}

func (ti *testImage) pokeCString(a core.Address, s string) {
	ti.pokeBytes(a, append([]byte(s), 0))
}

// Layout builders matching a 32-bit little-endian kernel build.

func u8Type() *Type  { return &Type{Name: "uint8_t", Size: 1, Kind: KindUint} }
func u32Type() *Type { return &Type{Name: "uint32_t", Size: 4, Kind: KindUint} }
func ptrType() *Type { return &Type{Name: "void *", Size: 4, Kind: KindPtr} }

// threadLayout builds the Thread layout. The optional debug fields
// are only present when asked for, mirroring a target compiled
// without the matching options.
func threadLayout(withStkLimit, withTime bool) *Type {
	ctx := &Type{Name: "Context", Size: 4, Kind: KindStruct, Fields: []Field{
		{Name: "r13", Off: 0, Type: ptrType()},
	}}
	t := &Type{Name: "Thread", Size: 40, Kind: KindStruct}
	t.Fields = []Field{
		{Name: "p_newer", Off: 0, Type: ptrType()},
		{Name: "p_older", Off: 4, Type: ptrType()},
		{Name: "p_name", Off: 8, Type: ptrType()},
		{Name: "p_state", Off: 12, Type: u8Type()},
		{Name: "p_flags", Off: 13, Type: u8Type()},
		{Name: "p_refs", Off: 14, Type: u8Type()},
		{Name: "p_prio", Off: 16, Type: u32Type()},
		{Name: "p_ctx", Off: 20, Type: ctx},
	}
	if withStkLimit {
		t.Fields = append(t.Fields, Field{Name: "p_stklimit", Off: 24, Type: ptrType()})
	}
	if withTime {
		t.Fields = append(t.Fields, Field{Name: "p_time", Off: 28, Type: u32Type()})
	}
	return t
}

// threadSpec describes one fake thread for pokeThread.
type threadSpec struct {
	addr     core.Address
	newer    core.Address
	older    core.Address
	nameAddr core.Address
	state    uint8
	flags    uint8
	refs     uint8
	prio     uint32
	sp       core.Address // saved stack pointer (p_ctx.r13)
	stklimit core.Address
	time     uint32
}

func (ti *testImage) pokeThread(s threadSpec) {
	ti.pokePtr(s.addr.Add(0), s.newer)
	ti.pokePtr(s.addr.Add(4), s.older)
	ti.pokePtr(s.addr.Add(8), s.nameAddr)
	ti.pokeU8(s.addr.Add(12), s.state)
	ti.pokeU8(s.addr.Add(13), s.flags)
	ti.pokeU8(s.addr.Add(14), s.refs)
	ti.pokeU32(s.addr.Add(16), s.prio)
	ti.pokePtr(s.addr.Add(20), s.sp)
	ti.pokePtr(s.addr.Add(24), s.stklimit)
	ti.pokeU32(s.addr.Add(28), s.time)
}

// pokeRegistry links the given threads into a consistent registry
// ring anchored at sentinel and records the registry symbol.
func (ti *testImage) pokeRegistry(sentinel core.Address, threads []threadSpec) {
	ti.syms["rlist"] = sentinel
	n := len(threads)
	if n == 0 {
		ti.pokePtr(sentinel.Add(0), sentinel)
		ti.pokePtr(sentinel.Add(4), sentinel)
		return
	}
	ti.pokePtr(sentinel.Add(0), threads[0].addr)
	ti.pokePtr(sentinel.Add(4), threads[n-1].addr)
	for i := range threads {
		threads[i].newer = sentinel
		if i < n-1 {
			threads[i].newer = threads[i+1].addr
		}
		threads[i].older = sentinel
		if i > 0 {
			threads[i].older = threads[i-1].addr
		}
		ti.pokeThread(threads[i])
	}
}
