// Copyright 2026 The chibios-gdb Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chcore

import (
	"github.com/tustvold/chibios-gdb/internal/core"
)

// A region is a piece of the target's address space together with the
// type of the value that lives there. All field and element access is
// explicit address arithmetic over the reflected layout; a region
// confers no ability to outlive or mutate the target memory it names.
type region struct {
	img Image
	a   core.Address
	typ *Type
}

// Field returns the subregion for the named field of a struct region.
func (r region) Field(name string) (region, error) {
	f := r.typ.field(name)
	if f == nil {
		return region{}, &DecodeError{Type: r.typ.Name, Field: name, Reason: "no such field"}
	}
	return region{img: r.img, a: r.a.Add(f.Off), typ: f.Type}, nil
}

// Index returns the subregion for element i of an array region.
func (r region) Index(i int64) (region, error) {
	if r.typ.Kind != KindArray {
		return region{}, &DecodeError{Type: r.typ.Name, Reason: "not an array"}
	}
	if i < 0 || i >= r.typ.Count {
		return region{}, &DecodeError{Type: r.typ.Name, Reason: "array index out of range"}
	}
	return region{img: r.img, a: r.a.Add(i * r.typ.Elem.Size), typ: r.typ.Elem}, nil
}

// Uint reads the region as an unsigned integer of its own size.
// Integer kernel fields are at most pointer sized, so everything this
// package reads fits in a uint64 regardless of target word size.
func (r region) Uint() (uint64, error) {
	var buf [8]byte
	n := r.typ.Size
	if n <= 0 || n > 8 {
		return 0, &DecodeError{Type: r.typ.Name, Reason: "not a scalar"}
	}
	if err := r.img.ReadAt(buf[:n], r.a); err != nil {
		return 0, err
	}
	switch n {
	case 1:
		return uint64(buf[0]), nil
	case 2:
		return uint64(r.img.ByteOrder().Uint16(buf[:2])), nil
	case 4:
		return uint64(r.img.ByteOrder().Uint32(buf[:4])), nil
	case 8:
		return r.img.ByteOrder().Uint64(buf[:8]), nil
	}
	return 0, &DecodeError{Type: r.typ.Name, Reason: "odd scalar size"}
}

// Ptr reads the region as a target address. The region may be a
// pointer field or any pointer-sized integer (register save slots in
// the thread context are integers holding stack pointers).
func (r region) Ptr() (core.Address, error) {
	v, err := r.Uint()
	return core.Address(v), err
}

// CString reads the region as a char* and returns the NUL-terminated
// string it points to. A NULL pointer reads as the empty string.
func (r region) CString() (string, error) {
	p, err := r.Ptr()
	if err != nil {
		return "", err
	}
	if p == 0 {
		return "", nil
	}
	return readCString(r.img, p, maxNameLen)
}

// maxNameLen bounds string reads from the target. Thread names in
// ChibiOS are short literals; anything longer means we're reading
// garbage, and unbounded reads could walk off into unmapped space.
const maxNameLen = 256

func readCString(img Image, a core.Address, max int64) (string, error) {
	buf := make([]byte, 0, 32)
	var b [1]byte
	for int64(len(buf)) < max {
		if err := img.ReadAt(b[:], a); err != nil {
			if len(buf) > 0 {
				break // string ran off the mapping; keep what we have
			}
			return "", err
		}
		if b[0] == 0 {
			break
		}
		buf = append(buf, b[0])
		a = a.Add(1)
	}
	return string(buf), nil
}
