// Copyright 2026 The chibios-gdb Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package core

import (
	"bytes"
	"fmt"
)

// A ReadError reports that a byte range in the inferior could not be
// read, either because it is not mapped or because the backing data
// is missing from the core file.
type ReadError struct {
	Addr Address
	Len  int64
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("can't read %d bytes at %s: address not mapped", e.Len, e.Addr)
}

// mappingFor returns the mapping containing address a, or nil.
// The page table is page-granular; a page shared by the tail of one
// mapping and the head of another resolves to whichever was added
// last, so on a range mismatch we fall back to a linear scan.
func (p *Process) mappingFor(a Address) *Mapping {
	if m := p.findMapping(a); m != nil && a >= m.min && a < m.max {
		return m
	}
	for _, m := range p.memory.mappings {
		if a >= m.min && a < m.max {
			return m
		}
	}
	return nil
}

// Readable reports whether the address a is readable.
func (p *Process) Readable(a Address) bool {
	return p.mappingFor(a) != nil
}

// ReadableN reports whether the n bytes starting at address a are readable.
func (p *Process) ReadableN(a Address, n int64) bool {
	for n > 0 {
		m := p.mappingFor(a)
		if m == nil || m.perm&Read == 0 {
			return false
		}
		c := m.max.Sub(a)
		if n <= c {
			return true
		}
		n -= c
		a = a.Add(c)
	}
	return true
}

// ReadAt reads len(b) bytes at address a in the inferior.
// It returns a *ReadError if any part of the range is not readable.
func (p *Process) ReadAt(b []byte, a Address) error {
	whole := int64(len(b))
	start := a
	for len(b) > 0 {
		m := p.mappingFor(a)
		if m == nil || m.perm&Read == 0 {
			return &ReadError{Addr: start, Len: whole}
		}
		n := copy(b, m.contents[a.Sub(m.min):])
		if n == 0 {
			return &ReadError{Addr: start, Len: whole}
		}
		b = b[n:]
		a = a.Add(int64(n))
	}
	return nil
}

// ReadUint8 reads a byte at address a.
func (p *Process) ReadUint8(a Address) (uint8, error) {
	var buf [1]byte
	if err := p.ReadAt(buf[:], a); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// ReadUint16 reads a 2-byte unsigned integer at address a.
func (p *Process) ReadUint16(a Address) (uint16, error) {
	var buf [2]byte
	if err := p.ReadAt(buf[:], a); err != nil {
		return 0, err
	}
	return p.byteOrder.Uint16(buf[:]), nil
}

// ReadUint32 reads a 4-byte unsigned integer at address a.
func (p *Process) ReadUint32(a Address) (uint32, error) {
	var buf [4]byte
	if err := p.ReadAt(buf[:], a); err != nil {
		return 0, err
	}
	return p.byteOrder.Uint32(buf[:]), nil
}

// ReadUint64 reads an 8-byte unsigned integer at address a.
func (p *Process) ReadUint64(a Address) (uint64, error) {
	var buf [8]byte
	if err := p.ReadAt(buf[:], a); err != nil {
		return 0, err
	}
	return p.byteOrder.Uint64(buf[:]), nil
}

// ReadPtr reads a pointer-sized unsigned integer at address a.
func (p *Process) ReadPtr(a Address) (Address, error) {
	switch p.ptrSize {
	case 4:
		v, err := p.ReadUint32(a)
		return Address(v), err
	default:
		v, err := p.ReadUint64(a)
		return Address(v), err
	}
}

// ReadCString reads a NUL-terminated string starting at address a,
// reading at most max bytes.
func (p *Process) ReadCString(a Address, max int64) (string, error) {
	// Read in chunks; the string may end long before max, and max may
	// extend past the end of the mapping it starts in.
	const chunk = 64
	var s []byte
	for int64(len(s)) < max {
		n := max - int64(len(s))
		if n > chunk {
			n = chunk
		}
		m := p.mappingFor(a)
		if m == nil || m.perm&Read == 0 {
			if len(s) > 0 {
				break // the string ran off the mapping; keep what we have
			}
			return "", &ReadError{Addr: a, Len: n}
		}
		if c := m.max.Sub(a); n > c {
			n = c
		}
		buf := make([]byte, n)
		if err := p.ReadAt(buf, a); err != nil {
			break
		}
		if i := bytes.IndexByte(buf, 0); i >= 0 {
			return string(append(s, buf[:i]...)), nil
		}
		s = append(s, buf...)
		a = a.Add(n)
	}
	return string(s), nil
}
