// Copyright 2026 The chibios-gdb Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package core

import "fmt"

// An Address is a location in the inferior's address space.
// The unit is bytes. An Address is just a number; it carries no
// capability to dereference anything. Dereferencing goes through
// a Process (or any other provider of the raw memory).
type Address uint64

// Add adds x to address a.
func (a Address) Add(x int64) Address {
	return a + Address(x)
}

// Sub subtracts b from a. Requires a >= b.
func (a Address) Sub(b Address) int64 {
	return int64(a - b)
}

// Align rounds a up to a multiple of x.
// x must be a power of 2.
func (a Address) Align(x int64) Address {
	return (a + Address(x) - 1) & ^(Address(x) - 1)
}

// Min returns the minimum of a and b.
func (a Address) Min(b Address) Address {
	if a < b {
		return a
	}
	return b
}

// Max returns the maximum of a and b.
func (a Address) Max(b Address) Address {
	if a > b {
		return a
	}
	return b
}

func (a Address) String() string {
	return fmt.Sprintf("%#x", uint64(a))
}
