// Copyright 2026 The chibios-gdb Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux || darwin || freebsd

package core

import (
	"os"

	"golang.org/x/sys/unix"
)

// mapFile returns length bytes of f starting at offset off.
// The contents are memory mapped read-only so a multi-megabyte RAM
// image costs address space, not RSS, until it is actually walked.
func mapFile(f *os.File, off, length int64) ([]byte, error) {
	pagesize := int64(unix.Getpagesize())
	lo := off &^ (pagesize - 1)
	hi := (off + length + pagesize - 1) &^ (pagesize - 1)
	data, err := unix.Mmap(int(f.Fd()), lo, int(hi-lo), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return readFileRange(f, off, length)
	}
	return data[off-lo : off-lo+length], nil
}
