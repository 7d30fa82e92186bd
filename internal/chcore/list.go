// Copyright 2026 The chibios-gdb Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chcore

import (
	"github.com/tustvold/chibios-gdb/internal/core"
)

// ChibiOS chains its kernel objects into intrusive circular
// doubly-linked lists: the thread registry (p_newer/p_older) and the
// virtual timer delta list (vt_next/vt_prev) are the same shape with
// different field names. The anchor is a sentinel node that is part
// of the ring but carries no payload.

// A ring describes one such list: the sentinel address, the node
// type, and the names of the forward and backward pointer fields
// within that type. The sentinel itself is accessed through the node
// type's layout, the same trick the kernel itself plays.
type ring struct {
	img      Image
	sentinel core.Address
	typ      *Type
	forward  string
	backward string
}

// walk visits the address of every payload node, in forward order,
// starting at sentinel.forward. An empty ring (the sentinel's forward
// pointer refers back to the sentinel) visits nothing and is not an
// error.
//
// Every time a forward pointer is followed, the destination's
// backward pointer is checked against the node we came from. On a
// mismatch walk stops with a *CorruptListError identifying the
// destination node: the ring is torn (or the target mutated it
// mid-traversal) and no node past the break can be trusted, so no
// partial recovery is attempted. This check also bounds the walk --
// a forward chain that never returns to the sentinel must eventually
// revisit some node from a second predecessor, which cannot match
// that node's single backward pointer.
//
// If visit returns an error, walk stops and returns it.
func (rg ring) walk(visit func(node core.Address) error) error {
	cur := rg.sentinel
	for {
		next, err := rg.link(cur, rg.forward)
		if err != nil {
			return err
		}
		back, err := rg.link(next, rg.backward)
		if err != nil {
			return err
		}
		if back != cur {
			return &CorruptListError{Node: next}
		}
		if next == rg.sentinel {
			return nil
		}
		if err := visit(next); err != nil {
			return err
		}
		cur = next
	}
}

// link reads the named pointer field of the node at a.
func (rg ring) link(a core.Address, field string) (core.Address, error) {
	f, err := region{img: rg.img, a: a, typ: rg.typ}.Field(field)
	if err != nil {
		return 0, err
	}
	return f.Ptr()
}
