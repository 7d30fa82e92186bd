// Copyright 2026 The chibios-gdb Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !linux && !darwin && !freebsd

package core

import "os"

func mapFile(f *os.File, off, length int64) ([]byte, error) {
	return readFileRange(f, off, length)
}
