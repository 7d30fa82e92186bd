// Copyright 2026 The chibios-gdb Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chcore

import "fmt"

// A Version is the unpacked kernel version number.
type Version struct {
	Major int
	Minor int
	Patch int
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// DecodeVersion unpacks the kernel's version cell. The layout is
// fixed by the kernel's versioning scheme:
//
//	major = (v >> 11) & 0x1F
//	minor = (v >> 6) & 0x1F
//	patch = v & 0x1F
func DecodeVersion(raw uint64) Version {
	return Version{
		Major: int((raw >> 11) & 0x1F),
		Minor: int((raw >> 6) & 0x1F),
		Patch: int(raw & 0x1F),
	}
}

// Version reads and unpacks the kernel version cell from the target.
// The cell is a 16-bit packed integer.
func (k *Kernel) Version() (Version, error) {
	addr, err := k.resolve(k.syms.VersionCell)
	if err != nil {
		return Version{}, err
	}
	var buf [2]byte
	if err := k.img.ReadAt(buf[:], addr); err != nil {
		return Version{}, err
	}
	return DecodeVersion(uint64(k.img.ByteOrder().Uint16(buf[:]))), nil
}
