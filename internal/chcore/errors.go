// Copyright 2026 The chibios-gdb Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chcore

import (
	"fmt"

	"github.com/tustvold/chibios-gdb/internal/core"
)

// A SymbolNotFoundError reports that a kernel anchor symbol required
// by a query is absent from the target image.
type SymbolNotFoundError struct {
	Symbol string
}

func (e *SymbolNotFoundError) Error() string {
	return fmt.Sprintf("symbol %q not found in target image", e.Symbol)
}

// A MissingFeatureError reports that the target kernel was compiled
// without a debug feature the query needs. Option names the ChibiOS
// build switch that enables it.
type MissingFeatureError struct {
	What   string
	Option string
}

func (e *MissingFeatureError) Error() string {
	return fmt.Sprintf("%s not compiled into target; rebuild with %s enabled", e.What, e.Option)
}

// A CorruptListError reports that an intrusive ring failed its
// consistency check during traversal: following the forward pointer
// reached a node whose backward pointer does not return to where we
// came from. Node is the address at which the inconsistency was
// detected. The ring cannot be trusted past this point, so traversal
// stops rather than guessing.
type CorruptListError struct {
	Node core.Address
}

func (e *CorruptListError) Error() string {
	return fmt.Sprintf("corrupt list: backward pointer mismatch at node %s", e.Node)
}

// A DecodeError reports a field value outside its valid domain, or a
// structural field that could not be read at all.
type DecodeError struct {
	Type   string
	Field  string
	Reason string
}

func (e *DecodeError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("can't decode %s: %s", e.Type, e.Reason)
	}
	return fmt.Sprintf("can't decode %s.%s: %s", e.Type, e.Field, e.Reason)
}

// An InvalidArgumentError reports a malformed operator-supplied
// argument. It is returned before any target memory is touched.
type InvalidArgumentError struct {
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return "invalid argument: " + e.Reason
}

// Memory read failures are reported as *core.ReadError by the image
// itself; this package adds no wrapper type for them. They are fatal
// when they hit structural fields (pointers, discriminants) and
// degrade to "unknown" only in the per-thread stack scan.
