// Copyright 2026 The chibios-gdb Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package core reads ELF core dump files. You can open a core dump
// file and read from addresses in the process that dumped core,
// called the "inferior". There is nothing ChibiOS-specific about this
// package; see ../chcore for the next layer up, which interprets the
// inferior as a ChibiOS/RT kernel.
//
// Embedded cores are usually produced by OpenOCD's gcore, a JTAG
// probe, or gdb's generate-core-file against a remote stub. They
// cover the chip's RAM; flash-resident data (code, rodata, the
// kernel version cell) comes from the ELF executable, which also
// supplies symbols and DWARF.
//
// The Read* operations return a *ReadError if the inferior is not
// readable at the requested address.
package core

import (
	"debug/dwarf"
	"debug/elf"
	"encoding/binary"
	"fmt"
	"os"
)

// A Process represents the memory of the inferior at the time the
// core file was written. It is read-only; nothing here ever mutates
// the underlying files.
type Process struct {
	memory splicedMemory // virtual address mappings

	arch         string           // arm, arm64, 386, amd64, ...
	ptrSize      int64            // 4 or 8
	byteOrder    binary.ByteOrder //
	littleEndian bool             // redundant with byteOrder

	syms     map[string]Address // symbols from the executable
	symErr   error              // an error encountered while reading symbols
	dwarf    *dwarf.Data        // debugging info from the executable
	dwarfErr error              // an error encountered while reading DWARF

	pageTable pageTable4 // for fast address->mapping lookups

	warnings []string // warnings generated during loading
}

// Mappings returns a list of virtual memory mappings for p.
func (p *Process) Mappings() []*Mapping {
	return p.memory.mappings
}

func (p *Process) Arch() string {
	return p.arch
}

// PtrSize returns the size in bytes of a pointer in the inferior.
func (p *Process) PtrSize() int64 {
	return p.ptrSize
}

func (p *Process) ByteOrder() binary.ByteOrder {
	return p.byteOrder
}

func (p *Process) DWARF() (*dwarf.Data, error) {
	return p.dwarf, p.dwarfErr
}

// Symbols returns a mapping from name to inferior address, along with
// any error encountered during reading the symbol information.
// (There may be both an error and some returned symbols.)
func (p *Process) Symbols() (map[string]Address, error) {
	return p.syms, p.symErr
}

func (p *Process) Warnings() []string {
	return p.warnings
}

// Core takes the name of a core file and of the executable that
// produced it, and returns a Process that represents the state of
// the inferior at the time of the dump.
//
// The executable is required: embedded cores carry neither an
// NT_FILE note nor symbols, so the kernel's data structure layouts
// (DWARF) and anchor symbols can only come from the ELF image.
func Core(coreFile, exePath string) (*Process, error) {
	core, err := os.Open(coreFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open core file: %v", err)
	}
	exe, err := os.Open(exePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open executable file: %v", err)
	}

	p := &Process{}

	// Executable first, core second: where they overlap (e.g. .data's
	// load image vs. its RAM contents) the core file wins.
	if err := p.readExec(exe); err != nil {
		return nil, err
	}
	if err := p.readCore(core); err != nil {
		return nil, err
	}
	if err := p.readDebugInfo(exe); err != nil {
		return nil, err
	}

	// Load the contents of every mapping.
	for _, m := range p.memory.mappings {
		size := m.max.Sub(m.min)
		if m.f == nil {
			// No backing data. Could be a NOBITS segment (bss).
			// Read-as-zero matches what the target saw at reset.
			p.warnings = append(p.warnings,
				fmt.Sprintf("no data for addresses [%x %x], assuming all zero", m.min, m.max))
			m.contents = make([]byte, size)
			continue
		}
		data, err := mapFile(m.f, m.off, size)
		if err != nil {
			return nil, fmt.Errorf("can't map %s at %x: %v", m.f.Name(), m.off, err)
		}
		m.contents = data
	}

	// Build page table for mapping lookup.
	for _, m := range p.memory.mappings {
		p.addMapping(m)
	}

	return p, nil
}

func (p *Process) readExec(exe *os.File) error {
	e, err := elf.NewFile(exe)
	if err != nil {
		return err
	}
	if err := p.setArch(e); err != nil {
		return err
	}
	for _, prog := range e.Progs {
		if prog.Type == elf.PT_LOAD {
			if err := p.readLoad(exe, prog); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Process) readCore(core *os.File) error {
	e, err := elf.NewFile(core)
	if err != nil {
		return err
	}
	if e.Type != elf.ET_CORE {
		return fmt.Errorf("%s is not a core file", core.Name())
	}
	if err := p.setArch(e); err != nil {
		return err
	}
	for _, prog := range e.Progs {
		if prog.Type == elf.PT_LOAD {
			if err := p.readLoad(core, prog); err != nil {
				return err
			}
		}
	}
	return nil
}

// setArch records the word size and byte order of the inferior, and
// checks that the core and the executable agree on them.
func (p *Process) setArch(e *elf.File) error {
	var ptrSize int64
	switch e.Class {
	case elf.ELFCLASS32:
		ptrSize = 4
	case elf.ELFCLASS64:
		ptrSize = 8
	default:
		return fmt.Errorf("unknown elf class %s", e.Class)
	}
	var arch string
	switch e.Machine {
	case elf.EM_ARM:
		arch = "arm"
	case elf.EM_AARCH64:
		arch = "arm64"
	case elf.EM_386:
		arch = "386"
	case elf.EM_X86_64:
		arch = "amd64"
	case elf.EM_MIPS:
		arch = "mips"
	case elf.EM_PPC64:
		arch = "ppc64"
	default:
		return fmt.Errorf("unknown arch %s", e.Machine)
	}
	if p.arch != "" && (p.arch != arch || p.ptrSize != ptrSize) {
		return fmt.Errorf("core is %s/%d-bit but executable is %s/%d-bit",
			arch, ptrSize*8, p.arch, p.ptrSize*8)
	}
	p.arch = arch
	p.ptrSize = ptrSize
	p.byteOrder = e.ByteOrder
	p.littleEndian = e.ByteOrder.String() == "LittleEndian"
	return nil
}

func (p *Process) readLoad(f *os.File, prog *elf.Prog) error {
	min := Address(prog.Vaddr)
	max := min.Add(int64(prog.Memsz))
	var perm Perm
	if prog.Flags&elf.PF_R != 0 {
		perm |= Read
	}
	if prog.Flags&elf.PF_W != 0 {
		perm |= Write
	}
	if prog.Flags&elf.PF_X != 0 {
		perm |= Exec
	}
	if perm == 0 {
		return nil
	}
	if prog.Filesz > 0 {
		end := max
		if int64(prog.Filesz) < max.Sub(min) {
			end = min.Add(int64(prog.Filesz))
		}
		p.memory.Add(min, end, perm, f, int64(prog.Off))
		if end < max {
			// Only partial data in the file (bss tail).
			p.memory.Add(end, max, perm, nil, 0)
		}
	} else {
		p.memory.Add(min, max, perm, nil, 0)
	}
	return nil
}

func (p *Process) readDebugInfo(exe *os.File) error {
	p.syms = map[string]Address{}

	e, err := elf.NewFile(exe)
	if err != nil {
		return err
	}
	syms, err := e.Symbols()
	if err != nil {
		p.symErr = fmt.Errorf("can't read symbols from %s: %v", exe.Name(), err)
	}
	for _, s := range syms {
		p.syms[s.Name] = Address(s.Value)
	}

	// An error while reading DWARF info is not an immediate error,
	// but any error will be returned if the caller asks for DWARF.
	dw, err := e.DWARF()
	if err != nil {
		p.dwarfErr = fmt.Errorf("can't read DWARF info from %s: %v", exe.Name(), err)
		return nil
	}
	p.dwarf = dw
	return nil
}
