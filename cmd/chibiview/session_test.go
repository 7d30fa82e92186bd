// Copyright 2026 The chibios-gdb Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"testing"

	"github.com/tustvold/chibios-gdb/internal/chcore"
	"github.com/tustvold/chibios-gdb/internal/core"
)

func TestParseAddress(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want core.Address
	}{
		{"0x20000418", 0x20000418},
		{"20000418", 0x20000418},
		{"0X20000418", 0x20000418},
		{"deadBEEF", 0xdeadbeef},
		{"0", 0},
	} {
		got, err := parseAddress(tc.in)
		if err != nil {
			t.Errorf("parseAddress(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("parseAddress(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
	for _, in := range []string{"", "0x", "main_thread", "0x20g0"} {
		if _, err := parseAddress(in); err == nil {
			t.Errorf("parseAddress(%q) succeeded", in)
		}
	}
}

func TestThreadLabel(t *testing.T) {
	th := &chcore.ThreadSnapshot{Addr: 0x20000418, Name: "blinker"}
	if got := threadLabel(th, th.Addr); got != "blinker (20000418)" {
		t.Errorf("got %q", got)
	}
	if got := threadLabel(nil, 0x20000418); got != "<unknown> (20000418)" {
		t.Errorf("got %q", got)
	}
}
