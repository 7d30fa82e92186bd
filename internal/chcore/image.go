// Copyright 2026 The chibios-gdb Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package chcore interprets the memory of a target running ChibiOS/RT
// and reconstructs the kernel's scheduling state: the thread registry,
// per-thread stack usage, the context-switch trace buffer, and the
// active virtual timers.
//
// Everything here is a pure function of a point-in-time target image.
// No state is kept across queries, nothing is ever written to the
// target, and a query against a live (non-halted) target that
// observes a torn data structure fails loudly instead of producing a
// plausible-looking wrong answer.
package chcore

import (
	"encoding/binary"

	"github.com/tustvold/chibios-gdb/internal/core"
)

// An Image is the read-only view of the target this package consumes:
// symbol resolution, data structure layouts as actually compiled into
// the target (ChibiOS debug fields are conditional on build options),
// and raw memory. Implemented by CoreImage for ELF core dumps and by
// synthetic images in tests.
type Image interface {
	// ResolveSymbol returns the address of a symbol, or a
	// *SymbolNotFoundError.
	ResolveSymbol(name string) (core.Address, error)

	// FindType returns the layout of the named type, or a
	// *DecodeError if the target's debug info has no such type.
	FindType(name string) (*Type, error)

	// ReadAt fills b with the inferior's memory at address a.
	// It returns a *core.ReadError if the range is not readable.
	ReadAt(b []byte, a core.Address) error

	// PtrSize returns the size in bytes of a target pointer.
	PtrSize() int64

	// ByteOrder returns the byte order of the target.
	ByteOrder() binary.ByteOrder
}

// A Kind describes how the bytes of a value are organized.
type Kind int

const (
	KindInvalid Kind = iota
	KindInt
	KindUint
	KindPtr
	KindArray
	KindStruct
)

// A Type is the layout of a target type, as compiled into the target
// image. Optional kernel fields (p_stklimit, p_time, ...) are simply
// absent from the Fields list when the matching build option is off.
type Type struct {
	Name string
	Size int64 // in bytes
	Kind Kind

	Count int64 // number of elements, for KindArray
	Elem  *Type // element type for KindArray, pointed-to type for KindPtr (may be nil for void*)

	Fields []Field // for KindStruct
}

// A Field is a component of a struct type.
type Field struct {
	Name string
	Off  int64
	Type *Type
}

// HasField reports whether t has a field with the given name.
// This is the layout-reflection query used to detect optionally
// compiled-in fields before attempting to read them; presence is
// never inferred from whether a read happens to succeed.
func (t *Type) HasField(name string) bool {
	for i := range t.Fields {
		if t.Fields[i].Name == name {
			return true
		}
	}
	return false
}

func (t *Type) field(name string) *Field {
	for i := range t.Fields {
		if t.Fields[i].Name == name {
			return &t.Fields[i]
		}
	}
	return nil
}

func (t *Type) String() string {
	return t.Name
}
