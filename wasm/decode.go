package wasm

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/wippyai/bf2wasm/wasm/internal/binary"
)

// Parsing errors returned by ParseModule.
var (
	ErrInvalidMagic   = errors.New("invalid wasm magic number")
	ErrInvalidVersion = errors.New("invalid wasm version")
)

type sectionDecoder struct {
	name   string
	decode func(r *binary.Reader, m *Module) error
}

var sectionDecoders = map[byte]sectionDecoder{
	SectionCustom:   {"custom", decodeCustom},
	SectionType:     {"type", decodeTypes},
	SectionImport:   {"import", decodeImports},
	SectionFunction: {"function", decodeFuncs},
	SectionMemory:   {"memory", decodeMemories},
	SectionExport:   {"export", decodeExports},
	SectionCode:     {"code", decodeCode},
}

// ParseModule parses a WebAssembly binary module.
// Only the sections this package models are accepted; any other
// section is reported as unsupported.
func ParseModule(data []byte) (*Module, error) {
	r := binary.NewReader(data)

	magic, err := r.ReadU32LE()
	if err != nil {
		return nil, r.WrapError("header", err)
	}
	if magic != Magic {
		return nil, ErrInvalidMagic
	}
	version, err := r.ReadU32LE()
	if err != nil {
		return nil, r.WrapError("header", err)
	}
	if version != Version {
		return nil, ErrInvalidVersion
	}

	m := &Module{}
	var lastSection byte

	for r.Len() > 0 {
		id, _ := r.ReadByte()

		dec, ok := sectionDecoders[id]
		if !ok {
			return nil, fmt.Errorf("unsupported section ID: 0x%02x", id)
		}
		// Custom sections can appear anywhere
		if id != SectionCustom {
			if id <= lastSection {
				return nil, fmt.Errorf("%s section appears out of order", dec.name)
			}
			lastSection = id
		}

		sr, err := r.ReadSized()
		if err != nil {
			return nil, r.WrapError("section data", err)
		}
		if err := dec.decode(sr, m); err != nil {
			return nil, sr.WrapError(dec.name+" section", err)
		}
		if sr.Len() != 0 {
			return nil, sr.WrapError(dec.name+" section", fmt.Errorf("%d trailing bytes", sr.Len()))
		}
	}

	return m, nil
}

// readVec reads a u32 count followed by that many elements. Every
// element takes at least one byte, which bounds the count before any
// allocation.
func readVec[T any](r *binary.Reader, elem func(r *binary.Reader) (T, error)) ([]T, error) {
	n, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	if uint64(n) > uint64(r.Len()) {
		return nil, fmt.Errorf("vector of %d elements in %d bytes: %w", n, r.Len(), io.ErrUnexpectedEOF)
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]T, n)
	for i := range out {
		if out[i], err = elem(r); err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
	}
	return out, nil
}

func decodeCustom(r *binary.Reader, m *Module) error {
	name, err := r.ReadName()
	if err != nil {
		return err
	}
	data := bytes.Clone(r.ReadRemaining())
	m.CustomSections = append(m.CustomSections, CustomSection{Name: name, Data: data})
	return nil
}

func decodeTypes(r *binary.Reader, m *Module) (err error) {
	m.Types, err = readVec(r, func(r *binary.Reader) (FuncType, error) {
		form, err := r.ReadByte()
		if err != nil {
			return FuncType{}, io.ErrUnexpectedEOF
		}
		if form != FuncTypeByte {
			return FuncType{}, fmt.Errorf("unsupported type form 0x%02x", form)
		}
		params, err := readVec(r, readValType)
		if err != nil {
			return FuncType{}, err
		}
		results, err := readVec(r, readValType)
		if err != nil {
			return FuncType{}, err
		}
		return FuncType{Params: params, Results: results}, nil
	})
	return err
}

func readValType(r *binary.Reader) (ValType, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, io.ErrUnexpectedEOF
	}
	return ValType(b), nil
}

func decodeImports(r *binary.Reader, m *Module) (err error) {
	m.Imports, err = readVec(r, func(r *binary.Reader) (Import, error) {
		module, err := r.ReadName()
		if err != nil {
			return Import{}, err
		}
		name, err := r.ReadName()
		if err != nil {
			return Import{}, err
		}
		kind, err := r.ReadByte()
		if err != nil {
			return Import{}, io.ErrUnexpectedEOF
		}

		imp := Import{Module: module, Name: name, Desc: ImportDesc{Kind: kind}}
		switch kind {
		case KindFunc:
			imp.Desc.TypeIdx, err = r.ReadU32()
		case KindMemory:
			var limits Limits
			limits, err = readLimits(r)
			imp.Desc.Memory = &MemoryType{Limits: limits}
		default:
			err = fmt.Errorf("unsupported import kind %d for %s.%s", kind, module, name)
		}
		return imp, err
	})
	return err
}

func decodeFuncs(r *binary.Reader, m *Module) (err error) {
	m.Funcs, err = readVec(r, (*binary.Reader).ReadU32)
	return err
}

func decodeMemories(r *binary.Reader, m *Module) (err error) {
	m.Memories, err = readVec(r, func(r *binary.Reader) (MemoryType, error) {
		limits, err := readLimits(r)
		return MemoryType{Limits: limits}, err
	})
	return err
}

func decodeExports(r *binary.Reader, m *Module) (err error) {
	m.Exports, err = readVec(r, func(r *binary.Reader) (Export, error) {
		name, err := r.ReadName()
		if err != nil {
			return Export{}, err
		}
		kind, err := r.ReadByte()
		if err != nil {
			return Export{}, io.ErrUnexpectedEOF
		}
		if kind > KindGlobal {
			return Export{}, fmt.Errorf("invalid export kind: 0x%02x", kind)
		}
		idx, err := r.ReadU32()
		return Export{Name: name, Kind: kind, Idx: idx}, err
	})
	return err
}

func decodeCode(r *binary.Reader, m *Module) (err error) {
	m.Code, err = readVec(r, func(r *binary.Reader) (FuncBody, error) {
		br, err := r.ReadSized()
		if err != nil {
			return FuncBody{}, err
		}
		locals, err := readVec(br, func(r *binary.Reader) (LocalEntry, error) {
			n, err := r.ReadU32()
			if err != nil {
				return LocalEntry{}, err
			}
			t, err := readValType(r)
			return LocalEntry{Count: n, ValType: t}, err
		})
		if err != nil {
			return FuncBody{}, err
		}
		return FuncBody{Locals: locals, Code: bytes.Clone(br.ReadRemaining())}, nil
	})
	return err
}

func readLimits(r *binary.Reader) (Limits, error) {
	flags, err := r.ReadByte()
	if err != nil {
		return Limits{}, io.ErrUnexpectedEOF
	}
	if flags&^LimitsHasMax != 0 {
		return Limits{}, fmt.Errorf("unsupported limits flags 0x%02x", flags)
	}

	minVal, err := r.ReadU32()
	if err != nil {
		return Limits{}, err
	}
	l := Limits{Min: uint64(minVal)}
	if flags&LimitsHasMax != 0 {
		maxVal, err := r.ReadU32()
		if err != nil {
			return Limits{}, err
		}
		max64 := uint64(maxVal)
		l.Max = &max64
	}

	if l.Max != nil && l.Min > *l.Max {
		return Limits{}, fmt.Errorf("limits min (%d) exceeds max (%d)", l.Min, *l.Max)
	}
	return l, nil
}
