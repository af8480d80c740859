package wasm

import (
	"github.com/wippyai/bf2wasm/wasm/internal/binary"
)

// Encode encodes the module to WebAssembly binary format.
// Sections are written in canonical order; empty sections are omitted.
func (m *Module) Encode() []byte {
	w := binary.NewWriter()

	// Magic number and version
	w.WriteU32LE(Magic)
	w.WriteU32LE(Version)

	// Type section
	if len(m.Types) > 0 {
		sec := binary.NewWriter()
		sec.WriteU32(uint32(len(m.Types)))
		for _, ft := range m.Types {
			sec.Byte(FuncTypeByte)
			writeValTypes(sec, ft.Params)
			writeValTypes(sec, ft.Results)
		}
		w.Section(SectionType, sec)
	}

	// Import section
	if len(m.Imports) > 0 {
		sec := binary.NewWriter()
		sec.WriteU32(uint32(len(m.Imports)))
		for _, imp := range m.Imports {
			sec.WriteName(imp.Module)
			sec.WriteName(imp.Name)
			sec.Byte(imp.Desc.Kind)
			switch imp.Desc.Kind {
			case KindFunc:
				sec.WriteU32(imp.Desc.TypeIdx)
			case KindMemory:
				if imp.Desc.Memory != nil {
					writeLimits(sec, imp.Desc.Memory.Limits)
				}
			}
		}
		w.Section(SectionImport, sec)
	}

	// Function section
	if len(m.Funcs) > 0 {
		sec := binary.NewWriter()
		sec.WriteU32(uint32(len(m.Funcs)))
		for _, typeIdx := range m.Funcs {
			sec.WriteU32(typeIdx)
		}
		w.Section(SectionFunction, sec)
	}

	// Memory section
	if len(m.Memories) > 0 {
		sec := binary.NewWriter()
		sec.WriteU32(uint32(len(m.Memories)))
		for _, mem := range m.Memories {
			writeLimits(sec, mem.Limits)
		}
		w.Section(SectionMemory, sec)
	}

	// Export section
	if len(m.Exports) > 0 {
		sec := binary.NewWriter()
		sec.WriteU32(uint32(len(m.Exports)))
		for _, exp := range m.Exports {
			sec.WriteName(exp.Name)
			sec.Byte(exp.Kind)
			sec.WriteU32(exp.Idx)
		}
		w.Section(SectionExport, sec)
	}

	// Code section
	if len(m.Code) > 0 {
		sec := binary.NewWriter()
		sec.WriteU32(uint32(len(m.Code)))
		for _, body := range m.Code {
			bodyBuf := binary.NewWriter()
			bodyBuf.WriteU32(uint32(len(body.Locals)))
			for _, local := range body.Locals {
				bodyBuf.WriteU32(local.Count)
				bodyBuf.Byte(byte(local.ValType))
			}
			bodyBuf.WriteBytes(body.Code)
			sec.Sized(bodyBuf)
		}
		w.Section(SectionCode, sec)
	}

	// Custom sections (at end)
	for _, cs := range m.CustomSections {
		sec := binary.NewWriter()
		sec.WriteName(cs.Name)
		sec.WriteBytes(cs.Data)
		w.Section(SectionCustom, sec)
	}

	return w.Bytes()
}

// NameMap is one entry of a name section map: an index and its name.
type NameMap struct {
	Name string
	Idx  uint32
}

// LocalNames names the locals of one function.
type LocalNames struct {
	Locals  []NameMap
	FuncIdx uint32
}

// EncodeNameSection builds the payload of a "name" custom section.
// Entries must be sorted by index, as the format requires.
func EncodeNameSection(module string, funcs []NameMap, locals []LocalNames) []byte {
	w := binary.NewWriter()

	if module != "" {
		sub := binary.NewWriter()
		sub.WriteName(module)
		w.Section(NameSubModule, sub)
	}

	if len(funcs) > 0 {
		sub := binary.NewWriter()
		writeNameMap(sub, funcs)
		w.Section(NameSubFunctions, sub)
	}

	if len(locals) > 0 {
		sub := binary.NewWriter()
		sub.WriteU32(uint32(len(locals)))
		for _, fn := range locals {
			sub.WriteU32(fn.FuncIdx)
			writeNameMap(sub, fn.Locals)
		}
		w.Section(NameSubLocals, sub)
	}

	return w.Bytes()
}

func writeNameMap(w *binary.Writer, names []NameMap) {
	w.WriteU32(uint32(len(names)))
	for _, n := range names {
		w.WriteU32(n.Idx)
		w.WriteName(n.Name)
	}
}

func writeValTypes(w *binary.Writer, types []ValType) {
	w.WriteU32(uint32(len(types)))
	for _, t := range types {
		w.Byte(byte(t))
	}
}

func writeLimits(w *binary.Writer, l Limits) {
	var flags byte
	if l.Max != nil {
		flags |= LimitsHasMax
	}
	w.Byte(flags)
	w.WriteU32(uint32(l.Min))
	if l.Max != nil {
		w.WriteU32(uint32(*l.Max))
	}
}
