// Copyright 2026 The chibios-gdb Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package logflags routes debug logging for the individual components
// to logrus, gated on command line flags. With logging disabled the
// loggers still exist but emit nothing, so call sites never have to
// check.
package logflags

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var (
	image    = false
	walker   = false
	commands = false
)

var logOut io.Writer = os.Stderr

func makeLogger(flag bool, fields logrus.Fields) *logrus.Entry {
	logger := logrus.New()
	logger.Out = logOut
	logger.Formatter = &logrus.TextFormatter{DisableTimestamp: true}
	logger.Level = logrus.PanicLevel
	if flag {
		logger.Level = logrus.DebugLevel
	}
	return logger.WithFields(fields)
}

// Image returns true if the target image layer should log.
func Image() bool {
	return image
}

// ImageLogger returns a logger for the target image layer (symbol
// resolution, layout reflection, memory mapping).
func ImageLogger() *logrus.Entry {
	return makeLogger(image, logrus.Fields{"layer": "image"})
}

// Walker returns true if the kernel structure walkers should log.
func Walker() bool {
	return walker
}

// WalkerLogger returns a logger for the kernel structure walkers.
func WalkerLogger() *logrus.Entry {
	return makeLogger(walker, logrus.Fields{"layer": "walker"})
}

// Commands returns true if command dispatch should log.
func Commands() bool {
	return commands
}

// CommandsLogger returns a logger for command dispatch.
func CommandsLogger() *logrus.Entry {
	return makeLogger(commands, logrus.Fields{"layer": "commands"})
}

// Setup sets the logging flags. logFlag enables every component;
// logstr is a comma separated list of the components to enable
// individually (image, walker, commands).
func Setup(logFlag bool, logstr string) error {
	if logFlag && logstr == "" {
		image = true
		walker = true
		commands = true
		return nil
	}
	if logstr == "" {
		return nil
	}
	for _, component := range strings.Split(logstr, ",") {
		switch component {
		case "image":
			image = true
		case "walker":
			walker = true
		case "commands":
			commands = true
		default:
			return fmt.Errorf("unknown log component %q", component)
		}
	}
	return nil
}

// SetOutput redirects all component loggers created after this call.
func SetOutput(w io.Writer) {
	logOut = w
}
