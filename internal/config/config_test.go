// Copyright 2026 The chibios-gdb Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigMissingFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	c, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if *c != (Config{}) {
		t.Errorf("got %+v, want zero config", c)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	want := Config{
		Symbols: SymbolOverrides{
			Registry:    "ch_rlist",
			VersionCell: "ch_kernel_version",
		},
		TraceEvents: 25,
	}
	if err := SaveConfig(&want); err != nil {
		t.Fatal(err)
	}
	got, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if *got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestLoadConfigPartial(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, configDirName)
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatal(err)
	}
	body := "symbols:\n  trace-buffer: my_trace\n"
	if err := os.WriteFile(filepath.Join(dir, configFileName), []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if c.Symbols.TraceBuffer != "my_trace" {
		t.Errorf("TraceBuffer = %q", c.Symbols.TraceBuffer)
	}
	if c.Symbols.Registry != "" || c.TraceEvents != 0 {
		t.Errorf("unset fields populated: %+v", c)
	}
}

func TestLoadConfigMalformed(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, configDirName)
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, configFileName), []byte("symbols: ["), 0644); err != nil {
		t.Fatal(err)
	}

	// A file that exists but does not parse must be reported, not
	// silently replaced with defaults.
	if _, err := LoadConfig(); err == nil {
		t.Error("malformed config loaded without error")
	}
}

func TestHistoryFilePath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := HistoryFilePath()
	if path != filepath.Join(home, configDirName, historyName) {
		t.Errorf("got %q", path)
	}
	// The config directory is created as a side effect.
	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		t.Error(err)
	}
}
