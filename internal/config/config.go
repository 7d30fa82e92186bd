// Copyright 2026 The chibios-gdb Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config loads the operator's configuration file. The main
// thing it carries is symbol-name overrides: ports and forks of the
// kernel occasionally rename the anchor symbols, and the overrides
// let the tool follow without recompiling.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

const (
	configDirName  = ".chibiview"
	configFileName = "config.yml"
	historyName    = "history"
)

// SymbolOverrides renames the kernel anchor symbols the queries
// start from. Empty fields keep the stock names.
type SymbolOverrides struct {
	Registry    string `yaml:"registry,omitempty"`
	TimerList   string `yaml:"timer-list,omitempty"`
	TraceBuffer string `yaml:"trace-buffer,omitempty"`
	VersionCell string `yaml:"version-cell,omitempty"`
}

// Config defines all options available in the config file.
type Config struct {
	// Symbol name overrides for the target kernel.
	Symbols SymbolOverrides `yaml:"symbols"`

	// TraceEvents is the number of trace events shown when the
	// operator gives no count. Zero means the built-in default.
	TraceEvents int `yaml:"trace-events,omitempty"`
}

// LoadConfig attempts to populate a Config from the config.yml file.
// A missing or unreadable file yields a usable zero config; a file
// that exists but does not parse is reported, because silently
// ignoring an operator's overrides would be worse.
func LoadConfig() (*Config, error) {
	path, err := configFilePath()
	if err != nil {
		return &Config{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return &Config{}, nil
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return &Config{}, fmt.Errorf("unable to parse %s: %v", path, err)
	}
	return &c, nil
}

// SaveConfig writes conf back to the config file, creating the
// config directory if needed.
func SaveConfig(conf *Config) error {
	out, err := yaml.Marshal(conf)
	if err != nil {
		return err
	}
	path, err := configFilePath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	return os.WriteFile(path, out, 0644)
}

// HistoryFilePath returns the path used for interactive command
// history, creating the config directory if needed.
func HistoryFilePath() string {
	path, err := configFilePath()
	if err != nil {
		return ""
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return ""
	}
	return filepath.Join(filepath.Dir(path), historyName)
}

func configFilePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configDirName, configFileName), nil
}
