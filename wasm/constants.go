package wasm

// WebAssembly binary format magic number and version.
const (
	// Magic is the WebAssembly binary magic number ("\0asm" in little-endian).
	Magic uint32 = 0x6D736100

	// Version is the supported WebAssembly binary format version.
	Version uint32 = 0x01
)

// Section IDs define the binary identifiers for each module section.
// Sections must appear in increasing order by ID (except custom sections).
const (
	SectionCustom   byte = 0  // Custom section (can appear anywhere)
	SectionType     byte = 1  // Type section (function signatures)
	SectionImport   byte = 2  // Import section
	SectionFunction byte = 3  // Function section (type indices)
	SectionMemory   byte = 5  // Memory section
	SectionExport   byte = 7  // Export section
	SectionCode     byte = 10 // Code section (function bodies)
)

// Import/Export descriptor kinds identify the type of imported or exported item.
const (
	KindFunc   byte = 0 // Function import/export
	KindTable  byte = 1 // Table import/export
	KindMemory byte = 2 // Memory import/export
	KindGlobal byte = 3 // Global import/export
)

// Value type encodings as defined in the WebAssembly binary format.
const (
	ValI32 ValType = 0x7F // 32-bit integer
	ValI64 ValType = 0x7E // 64-bit integer
	ValF32 ValType = 0x7D // 32-bit float
	ValF64 ValType = 0x7C // 64-bit float
)

// FuncTypeByte prefixes every entry of the type section.
const FuncTypeByte byte = 0x60

// Block type constants
const (
	BlockTypeVoid int32 = -64 // 0x40
	BlockTypeI32  int32 = -1  // 0x7F
)

// Control flow opcodes
const (
	OpUnreachable byte = 0x00
	OpNop         byte = 0x01
	OpBlock       byte = 0x02
	OpLoop        byte = 0x03
	OpEnd         byte = 0x0B
	OpBr          byte = 0x0C
	OpBrIf        byte = 0x0D
	OpReturn      byte = 0x0F
	OpCall        byte = 0x10
)

// Parametric opcodes
const (
	OpDrop byte = 0x1A
)

// Variable access opcodes
const (
	OpLocalGet byte = 0x20
	OpLocalSet byte = 0x21
	OpLocalTee byte = 0x22
)

// Memory opcodes
const (
	OpI32Load   byte = 0x28
	OpI32Load8U byte = 0x2D
	OpI32Store  byte = 0x36
	OpI32Store8 byte = 0x3A
)

// Numeric opcodes
const (
	OpI32Const byte = 0x41
	OpI32Eqz   byte = 0x45
	OpI32Eq    byte = 0x46
	OpI32Ne    byte = 0x47
	OpI32Add   byte = 0x6A
	OpI32Sub   byte = 0x6B
	OpI32And   byte = 0x71
)

// Limits flags
const (
	LimitsHasMax byte = 0x01
)

// Memory sizing.
const (
	// PageSize is the size of one WebAssembly memory page in bytes.
	PageSize = 65536

	// MemoryMaxPages32 is the page limit of a 32-bit memory (4GiB).
	MemoryMaxPages32 uint64 = 65536
)

// MaxLocals bounds the declared locals of one function body, matching
// the limit common engines enforce.
const MaxLocals = 50000

// Name section subsection IDs.
const (
	NameSectionName = "name"

	NameSubModule    byte = 0
	NameSubFunctions byte = 1
	NameSubLocals    byte = 2
)
