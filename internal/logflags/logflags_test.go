// Copyright 2026 The chibios-gdb Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package logflags

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func reset() {
	image = false
	walker = false
	commands = false
}

func TestSetupComponents(t *testing.T) {
	defer reset()
	for _, tc := range []struct {
		logFlag                 bool
		logstr                  string
		image, walker, commands bool
	}{
		{false, "", false, false, false},
		{true, "", true, true, true},
		{false, "walker", false, true, false},
		{true, "image,commands", true, false, true},
	} {
		reset()
		if err := Setup(tc.logFlag, tc.logstr); err != nil {
			t.Fatalf("Setup(%v, %q): %v", tc.logFlag, tc.logstr, err)
		}
		if Image() != tc.image || Walker() != tc.walker || Commands() != tc.commands {
			t.Errorf("Setup(%v, %q): image=%v walker=%v commands=%v",
				tc.logFlag, tc.logstr, Image(), Walker(), Commands())
		}
	}
}

func TestSetupUnknownComponent(t *testing.T) {
	defer reset()
	err := Setup(false, "walker,gc")
	if err == nil || !strings.Contains(err.Error(), "gc") {
		t.Errorf("got %v, want error naming the bad component", err)
	}
}

func TestLoggerGating(t *testing.T) {
	defer reset()
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)

	WalkerLogger().Debug("quiet")
	if buf.Len() != 0 {
		t.Errorf("disabled logger wrote %q", buf.String())
	}

	walker = true
	WalkerLogger().Debug("loud")
	if !strings.Contains(buf.String(), "loud") || !strings.Contains(buf.String(), "walker") {
		t.Errorf("enabled logger wrote %q", buf.String())
	}
}
