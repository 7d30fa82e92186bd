// Copyright 2026 The chibios-gdb Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chcore

import (
	"debug/dwarf"
	"encoding/binary"
	"fmt"

	lru "github.com/hashicorp/golang-lru"
	"github.com/sirupsen/logrus"

	"github.com/tustvold/chibios-gdb/internal/core"
	"github.com/tustvold/chibios-gdb/internal/logflags"
)

// A CoreImage is an Image backed by an ELF core dump plus the
// target's executable: symbols come from the ELF symbol tables and
// type layouts from DWARF. Layouts are resolved on demand and
// memoized; they are constants for the lifetime of the image, so the
// cache does not violate the rule that query results are never
// cached.
type CoreImage struct {
	proc  *core.Process
	dw    *dwarf.Data
	types *lru.Cache // type name -> *Type
	log   *logrus.Entry
}

var _ Image = (*CoreImage)(nil)

// NewCoreImage wraps a loaded core.Process as a target image.
func NewCoreImage(p *core.Process) (*CoreImage, error) {
	dw, err := p.DWARF()
	if err != nil {
		return nil, fmt.Errorf("target image has no usable debug info: %v", err)
	}
	types, err := lru.New(128)
	if err != nil {
		return nil, err
	}
	return &CoreImage{proc: p, dw: dw, types: types, log: logflags.ImageLogger()}, nil
}

func (ci *CoreImage) ResolveSymbol(name string) (core.Address, error) {
	syms, err := ci.proc.Symbols()
	if a, ok := syms[name]; ok {
		return a, nil
	}
	if err != nil {
		ci.log.WithError(err).Debug("symbol table incomplete")
	}
	return 0, &SymbolNotFoundError{Symbol: name}
}

func (ci *CoreImage) ReadAt(b []byte, a core.Address) error {
	return ci.proc.ReadAt(b, a)
}

func (ci *CoreImage) PtrSize() int64 {
	return ci.proc.PtrSize()
}

func (ci *CoreImage) ByteOrder() binary.ByteOrder {
	return ci.proc.ByteOrder()
}

// FindType returns the layout of the named type as compiled into the
// target. Conditional debug fields (p_stklimit and friends) appear in
// the returned layout only when the target build included them,
// which is exactly what the HasField queries rely on.
func (ci *CoreImage) FindType(name string) (*Type, error) {
	if t, ok := ci.types.Get(name); ok {
		return t.(*Type), nil
	}
	dt, err := ci.lookupDWARF(name)
	if err != nil {
		return nil, err
	}
	t := ci.convertType(dt, make(map[dwarf.Type]*Type))
	t.Name = name
	ci.types.Add(name, t)
	ci.log.WithFields(logrus.Fields{"type": name, "size": t.Size}).Debug("resolved layout")
	return t, nil
}

// lookupDWARF scans the DWARF info for a typedef, struct, or base
// type with the given name.
func (ci *CoreImage) lookupDWARF(name string) (dwarf.Type, error) {
	r := ci.dw.Reader()
	for {
		e, err := r.Next()
		if err != nil {
			return nil, fmt.Errorf("reading debug info: %v", err)
		}
		if e == nil {
			break
		}
		switch e.Tag {
		case dwarf.TagTypedef, dwarf.TagStructType, dwarf.TagBaseType, dwarf.TagEnumerationType:
			n, _ := e.Val(dwarf.AttrName).(string)
			if n != name {
				continue
			}
			dt, err := ci.dw.Type(e.Offset)
			if err != nil {
				return nil, fmt.Errorf("reading type %s: %v", name, err)
			}
			return dt, nil
		}
	}
	return nil, &DecodeError{Type: name, Reason: "no such type in target debug info"}
}

// convertType maps a DWARF type to this package's layout model.
// memo breaks the cycles that intrusive lists force on us (a Thread
// contains pointers to Thread).
func (ci *CoreImage) convertType(dt dwarf.Type, memo map[dwarf.Type]*Type) *Type {
	if t := memo[dt]; t != nil {
		return t
	}
	switch x := dt.(type) {
	case *dwarf.TypedefType:
		// A typedef is just another name for its underlying layout.
		t := ci.convertType(x.Type, memo)
		memo[dt] = t
		return t
	case *dwarf.StructType:
		t := &Type{Name: x.StructName, Size: x.ByteSize, Kind: KindStruct}
		memo[dt] = t
		for _, f := range x.Field {
			t.Fields = append(t.Fields, Field{
				Name: f.Name,
				Off:  f.ByteOffset,
				Type: ci.convertType(f.Type, memo),
			})
		}
		return t
	case *dwarf.PtrType:
		t := &Type{Name: dt.String(), Size: x.ByteSize, Kind: KindPtr}
		if t.Size <= 0 {
			t.Size = ci.PtrSize()
		}
		memo[dt] = t
		if _, void := x.Type.(*dwarf.VoidType); !void && x.Type != nil {
			t.Elem = ci.convertType(x.Type, memo)
		}
		return t
	case *dwarf.ArrayType:
		t := &Type{Name: dt.String(), Size: x.Size(), Kind: KindArray, Count: x.Count}
		memo[dt] = t
		t.Elem = ci.convertType(x.Type, memo)
		if t.Count < 0 {
			t.Count = 0 // flexible array member
		}
		return t
	case *dwarf.IntType:
		t := &Type{Name: dt.String(), Size: x.ByteSize, Kind: KindInt}
		memo[dt] = t
		return t
	case *dwarf.UintType:
		t := &Type{Name: dt.String(), Size: x.ByteSize, Kind: KindUint}
		memo[dt] = t
		return t
	case *dwarf.CharType, *dwarf.UcharType, *dwarf.BoolType, *dwarf.EnumType:
		t := &Type{Name: dt.String(), Size: dt.Size(), Kind: KindUint}
		memo[dt] = t
		return t
	default:
		// Types this package never dereferences (unions, floats,
		// function types behind pointers). Keep the size so struct
		// layout arithmetic stays right.
		t := &Type{Name: dt.String(), Size: dt.Size(), Kind: KindInvalid}
		memo[dt] = t
		return t
	}
}
