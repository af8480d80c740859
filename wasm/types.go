package wasm

// Module represents a core WebAssembly module
type Module struct {
	Types          []FuncType
	Imports        []Import
	Funcs          []uint32 // Type indices for declared functions
	Memories       []MemoryType
	Exports        []Export
	Code           []FuncBody
	CustomSections []CustomSection
}

// FuncType represents a WebAssembly function signature with parameter and result types.
type FuncType struct {
	Params  []ValType
	Results []ValType
}

// ValType represents a WebAssembly value type.
// See constants.go for ValI32, ValI64, ValF32, ValF64.
type ValType byte

func (v ValType) String() string {
	switch v {
	case ValI32:
		return "i32"
	case ValI64:
		return "i64"
	case ValF32:
		return "f32"
	case ValF64:
		return "f64"
	default:
		return "unknown"
	}
}

// Import represents an imported function or memory.
type Import struct {
	Desc   ImportDesc
	Module string
	Name   string
}

// ImportDesc describes an imported item.
// Kind uses KindFunc or KindMemory.
type ImportDesc struct {
	Memory  *MemoryType
	TypeIdx uint32
	Kind    byte
}

// MemoryType describes a linear memory with size limits.
type MemoryType struct {
	Limits Limits
}

// Limits describes size constraints for memories, in pages.
type Limits struct {
	Max *uint64
	Min uint64
}

// Export describes an exported item.
// Kind uses KindFunc or KindMemory.
type Export struct {
	Name string
	Kind byte
	Idx  uint32
}

// FuncBody represents a function's local declarations and bytecode.
type FuncBody struct {
	Locals []LocalEntry
	Code   []byte // Raw code bytes including end opcode
}

// LocalEntry represents a group of local variables with the same type.
type LocalEntry struct {
	Count   uint32
	ValType ValType
}

// CustomSection holds a named custom section's data.
type CustomSection struct {
	Name string
	Data []byte
}

// NumImportedFuncs returns the number of imported functions
func (m *Module) NumImportedFuncs() int {
	count := 0
	for _, imp := range m.Imports {
		if imp.Desc.Kind == KindFunc {
			count++
		}
	}
	return count
}

// NumImportedMemories returns the number of imported memories
func (m *Module) NumImportedMemories() int {
	count := 0
	for _, imp := range m.Imports {
		if imp.Desc.Kind == KindMemory {
			count++
		}
	}
	return count
}

// GetFuncType returns the type of a function by its index in the
// function index space (imports first).
func (m *Module) GetFuncType(funcIdx uint32) *FuncType {
	numImported := uint32(m.NumImportedFuncs())
	if funcIdx < numImported {
		for i, imp := range m.Imports {
			if imp.Desc.Kind == KindFunc {
				if funcIdx == 0 {
					return m.typeAt(m.Imports[i].Desc.TypeIdx)
				}
				funcIdx--
			}
		}
	}
	localIdx := funcIdx - numImported
	if int(localIdx) >= len(m.Funcs) {
		return nil
	}
	return m.typeAt(m.Funcs[localIdx])
}

func (m *Module) typeAt(typeIdx uint32) *FuncType {
	if int(typeIdx) >= len(m.Types) {
		return nil
	}
	return &m.Types[typeIdx]
}

// AddType adds a function type and returns its index, reusing existing if equal
func (m *Module) AddType(ft FuncType) uint32 {
	for i, t := range m.Types {
		if typesEqual(t, ft) {
			return uint32(i)
		}
	}
	idx := uint32(len(m.Types))
	m.Types = append(m.Types, ft)
	return idx
}

// FindImport returns the import with the given module and name.
func (m *Module) FindImport(module, name string) (*Import, bool) {
	for i := range m.Imports {
		if m.Imports[i].Module == module && m.Imports[i].Name == name {
			return &m.Imports[i], true
		}
	}
	return nil, false
}

// FindExport returns the export with the given name.
func (m *Module) FindExport(name string) (*Export, bool) {
	for i := range m.Exports {
		if m.Exports[i].Name == name {
			return &m.Exports[i], true
		}
	}
	return nil, false
}

// LocalTypes expands a body's local declarations, prefixed by the
// function's params, into the flat local index space.
func (b *FuncBody) LocalTypes(ft *FuncType) []ValType {
	var out []ValType
	if ft != nil {
		out = append(out, ft.Params...)
	}
	for _, l := range b.Locals {
		for i := uint32(0); i < l.Count; i++ {
			out = append(out, l.ValType)
		}
	}
	return out
}

// Equal reports whether two function types have identical signatures.
func (ft FuncType) Equal(other FuncType) bool {
	return typesEqual(ft, other)
}

func typesEqual(a, b FuncType) bool {
	if len(a.Params) != len(b.Params) || len(a.Results) != len(b.Results) {
		return false
	}
	for i := range a.Params {
		if a.Params[i] != b.Params[i] {
			return false
		}
	}
	for i := range a.Results {
		if a.Results[i] != b.Results[i] {
			return false
		}
	}
	return true
}
