// Copyright 2026 The chibios-gdb Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chcore

import (
	"github.com/tustvold/chibios-gdb/internal/core"
)

// Virtual timer delta list layout.
const (
	timerType = "VirtualTimer"

	fieldVTNext = "vt_next"
	fieldVTPrev = "vt_prev"
	fieldVTTime = "vt_time"
	fieldVTFunc = "vt_func"
	fieldVTPar  = "vt_par"
)

// A TimerEntry is one armed virtual timer: when the kernel's time
// reaches Deadline it calls Func(Param) from the tick interrupt.
// The fields are raw target values; nothing here owns target memory.
type TimerEntry struct {
	Addr     core.Address
	Deadline uint64
	Func     core.Address
	Param    core.Address
}

// Timers lists the armed virtual timers in delta-list order (nearest
// deadline first). The timer list sentinel is walked with the same
// mechanism as the thread registry, just over different link fields.
func (k *Kernel) Timers() ([]TimerEntry, error) {
	sentinel, err := k.resolve(k.syms.TimerList)
	if err != nil {
		return nil, err
	}
	typ, err := k.img.FindType(timerType)
	if err != nil {
		return nil, err
	}
	var timers []TimerEntry
	rg := ring{img: k.img, sentinel: sentinel, typ: typ, forward: fieldVTNext, backward: fieldVTPrev}
	err = rg.walk(func(node core.Address) error {
		r := region{img: k.img, a: node, typ: typ}
		e := TimerEntry{Addr: node}
		var err error
		if e.Deadline, err = readUintField(r, fieldVTTime); err != nil {
			return err
		}
		if e.Func, err = readPtrField(r, fieldVTFunc); err != nil {
			return err
		}
		if e.Param, err = readPtrField(r, fieldVTPar); err != nil {
			return err
		}
		timers = append(timers, e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	k.log.WithField("timers", len(timers)).Debug("walked timer list")
	return timers, nil
}
