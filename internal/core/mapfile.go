// Copyright 2026 The chibios-gdb Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package core

import (
	"io"
	"os"
)

// readFileRange is the portable fallback for mapFile: read the range
// into an ordinary byte slice.
func readFileRange(f *os.File, off, length int64) ([]byte, error) {
	data := make([]byte, length)
	n, err := f.ReadAt(data, off)
	if err == io.EOF && int64(n) == length {
		err = nil
	}
	if err != nil && err != io.EOF {
		return nil, err
	}
	return data[:length], nil
}
