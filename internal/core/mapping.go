// Copyright 2026 The chibios-gdb Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package core

import (
	"os"
	"strings"
)

// A Mapping represents a contiguous subset of the inferior's address space.
type Mapping struct {
	min  Address
	max  Address
	perm Perm

	f   *os.File // file backing this region
	off int64    // offset of start of this mapping in f

	// Contents of f at offset off. Length = max-min.
	contents []byte
}

// Min returns the lowest virtual address of the mapping.
func (m *Mapping) Min() Address {
	return m.min
}

// Max returns the virtual address of the byte just beyond the mapping.
func (m *Mapping) Max() Address {
	return m.max
}

// Size returns int64(Max-Min).
func (m *Mapping) Size() int64 {
	return m.max.Sub(m.min)
}

// Perm returns the permissions on the mapping.
func (m *Mapping) Perm() Perm {
	return m.perm
}

// Source returns the backing file and offset for the mapping, or "", 0 if none.
func (m *Mapping) Source() (string, int64) {
	if m.f == nil {
		return "", 0
	}
	return m.f.Name(), m.off
}

// A Perm represents the permissions allowed for a Mapping.
type Perm uint8

const (
	Read Perm = 1 << iota
	Write
	Exec
)

func (p Perm) String() string {
	var a [3]string
	b := a[:0]
	if p&Read != 0 {
		b = append(b, "Read")
	}
	if p&Write != 0 {
		b = append(b, "Write")
	}
	if p&Exec != 0 {
		b = append(b, "Exec")
	}
	if len(b) == 0 {
		b = append(b, "None")
	}
	return strings.Join(b, "|")
}

// splicedMemory accumulates mappings as they are found in the core
// file and the executable. Later mappings override earlier ones where
// they overlap, which lets the (authoritative) core-file contents
// shadow the stale executable image.
type splicedMemory struct {
	mappings []*Mapping
}

func (s *splicedMemory) Add(min, max Address, perm Perm, f *os.File, off int64) {
	if min >= max {
		return
	}
	// Remove or adjust overlapping regions.
	var ms []*Mapping
	for _, m := range s.mappings {
		switch {
		case m.max <= min || m.min >= max:
			// No overlap.
			ms = append(ms, m)
		case m.min >= min && m.max <= max:
			// Completely shadowed, drop.
		case m.min < min && m.max > max:
			// New mapping splits the old one in two.
			right := &Mapping{min: max, max: m.max, perm: m.perm, f: m.f, off: m.off + max.Sub(m.min)}
			m.max = min
			ms = append(ms, m, right)
		case m.min < min:
			// Overlaps the start of the new mapping.
			m.max = min
			ms = append(ms, m)
		default:
			// Overlaps the end of the new mapping.
			m.off += max.Sub(m.min)
			m.min = max
			ms = append(ms, m)
		}
	}
	ms = append(ms, &Mapping{min: min, max: max, perm: perm, f: f, off: off})
	s.mappings = ms
}

// Mappings are always page aligned, so a four-level table indexed by
// the non-page bits of the address finds the mapping for an address
// in a handful of loads. Embedded targets are typically 32-bit, but
// the table covers the full 64-bit space so 64-bit cores work too.
type pageTable0 [1 << 10]*Mapping
type pageTable1 [1 << 10]*pageTable0
type pageTable2 [1 << 10]*pageTable1
type pageTable3 [1 << 10]*pageTable2
type pageTable4 [1 << 12]*pageTable3

const pageSize = 1 << 12

// findMapping is simple enough that it inlines.
func (p *Process) findMapping(a Address) *Mapping {
	t3 := p.pageTable[a>>52]
	if t3 == nil {
		return nil
	}
	t2 := t3[a>>42%(1<<10)]
	if t2 == nil {
		return nil
	}
	t1 := t2[a>>32%(1<<10)]
	if t1 == nil {
		return nil
	}
	t0 := t1[a>>22%(1<<10)]
	if t0 == nil {
		return nil
	}
	return t0[a>>12%(1<<10)]
}

// addMapping records m in the page table. Embedded cores routinely
// contain mappings that are not multiples of the page size (a RAM
// region is however large the chip's RAM is), so coverage is rounded
// out to page boundaries and readers must re-check the byte range
// against the mapping they get back.
func (p *Process) addMapping(m *Mapping) {
	min := m.min &^ (pageSize - 1)
	max := m.max.Align(pageSize)
	for a := min; a < max; a += pageSize {
		i3 := a >> 52
		t3 := p.pageTable[i3]
		if t3 == nil {
			t3 = new(pageTable3)
			p.pageTable[i3] = t3
		}
		i2 := a >> 42 % (1 << 10)
		t2 := t3[i2]
		if t2 == nil {
			t2 = new(pageTable2)
			t3[i2] = t2
		}
		i1 := a >> 32 % (1 << 10)
		t1 := t2[i1]
		if t1 == nil {
			t1 = new(pageTable1)
			t2[i1] = t1
		}
		i0 := a >> 22 % (1 << 10)
		t0 := t1[i0]
		if t0 == nil {
			t0 = new(pageTable0)
			t1[i0] = t0
		}
		t0[a>>12%(1<<10)] = m
	}
}
