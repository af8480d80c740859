package wasm

import (
	"fmt"

	"github.com/wippyai/bf2wasm/wasm/internal/binary"
)

// Opcode constants are defined in constants.go

// Instruction represents a decoded WebAssembly instruction
type Instruction struct {
	Imm    interface{}
	Opcode byte
}

// BlockImm holds the block type for block and loop instructions.
type BlockImm struct {
	Type int32 // Block type: -64=void, -1=i32
}

// BranchImm holds the label index for br and br_if instructions.
type BranchImm struct {
	LabelIdx uint32
}

// CallImm holds the function index for call instruction.
type CallImm struct {
	FuncIdx uint32
}

// LocalImm holds the local index for local.get, local.set, local.tee.
type LocalImm struct {
	LocalIdx uint32
}

// MemoryImm holds memory access parameters for load and store instructions.
// Align is the base-2 logarithm of the alignment.
type MemoryImm struct {
	Offset uint32
	Align  uint32
}

// I32Imm holds the constant value for i32.const instruction.
type I32Imm struct {
	Value int32
}

var opcodeNames = map[byte]string{
	OpUnreachable: "unreachable",
	OpNop:         "nop",
	OpBlock:       "block",
	OpLoop:        "loop",
	OpEnd:         "end",
	OpBr:          "br",
	OpBrIf:        "br_if",
	OpReturn:      "return",
	OpCall:        "call",
	OpDrop:        "drop",
	OpLocalGet:    "local.get",
	OpLocalSet:    "local.set",
	OpLocalTee:    "local.tee",
	OpI32Load:     "i32.load",
	OpI32Load8U:   "i32.load8_u",
	OpI32Store:    "i32.store",
	OpI32Store8:   "i32.store8",
	OpI32Const:    "i32.const",
	OpI32Eqz:      "i32.eqz",
	OpI32Eq:       "i32.eq",
	OpI32Ne:       "i32.ne",
	OpI32Add:      "i32.add",
	OpI32Sub:      "i32.sub",
	OpI32And:      "i32.and",
}

// OpcodeName returns the text-format mnemonic for an opcode.
func OpcodeName(op byte) string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("<0x%02x>", op)
}

// KnownOpcode reports whether the opcode belongs to the supported instruction set.
func KnownOpcode(op byte) bool {
	_, ok := opcodeNames[op]
	return ok
}

func (i Instruction) String() string {
	name := OpcodeName(i.Opcode)
	switch imm := i.Imm.(type) {
	case BlockImm:
		if imm.Type == BlockTypeI32 {
			return name + " (result i32)"
		}
		return name
	case BranchImm:
		return fmt.Sprintf("%s %d", name, imm.LabelIdx)
	case CallImm:
		return fmt.Sprintf("%s %d", name, imm.FuncIdx)
	case LocalImm:
		return fmt.Sprintf("%s %d", name, imm.LocalIdx)
	case MemoryImm:
		s := name
		if imm.Offset != 0 {
			s += fmt.Sprintf(" offset=%d", imm.Offset)
		}
		if imm.Align != naturalAlign(i.Opcode) {
			s += fmt.Sprintf(" align=%d", 1<<imm.Align)
		}
		return s
	case I32Imm:
		return fmt.Sprintf("%s %d", name, imm.Value)
	}
	return name
}

func naturalAlign(op byte) uint32 {
	switch op {
	case OpI32Load, OpI32Store:
		return 2
	}
	return 0
}

// GetCallTarget returns the call target if this is a call instruction
func (i Instruction) GetCallTarget() (uint32, bool) {
	if i.Opcode == OpCall {
		if imm, ok := i.Imm.(CallImm); ok {
			return imm.FuncIdx, true
		}
	}
	return 0, false
}

// DecodeInstructions decodes a sequence of instructions from raw bytes
func DecodeInstructions(code []byte) ([]Instruction, error) {
	r := binary.NewReader(code)
	instrs := make([]Instruction, 0, len(code)/2)

	for r.Len() > 0 {
		offset := r.Position()
		op, _ := r.ReadByte()
		instr := Instruction{Opcode: op}

		var err error
		switch op {
		case OpBlock, OpLoop:
			var bt int32
			bt, err = r.ReadS32()
			instr.Imm = BlockImm{Type: bt}

		case OpBr, OpBrIf:
			var idx uint32
			idx, err = r.ReadU32()
			instr.Imm = BranchImm{LabelIdx: idx}

		case OpCall:
			var idx uint32
			idx, err = r.ReadU32()
			instr.Imm = CallImm{FuncIdx: idx}

		case OpLocalGet, OpLocalSet, OpLocalTee:
			var idx uint32
			idx, err = r.ReadU32()
			instr.Imm = LocalImm{LocalIdx: idx}

		case OpI32Load, OpI32Load8U, OpI32Store, OpI32Store8:
			var imm MemoryImm
			if imm.Align, err = r.ReadU32(); err == nil {
				imm.Offset, err = r.ReadU32()
			}
			instr.Imm = imm

		case OpI32Const:
			var v int32
			v, err = r.ReadS32()
			instr.Imm = I32Imm{Value: v}

		default:
			if !KnownOpcode(op) {
				return nil, fmt.Errorf("unsupported opcode 0x%02x at offset %d", op, offset)
			}
		}
		if err != nil {
			return nil, fmt.Errorf("%s at offset %d: %w", OpcodeName(op), offset, err)
		}

		instrs = append(instrs, instr)
	}

	return instrs, nil
}

// AppendInstruction appends the binary encoding of instr to dst.
func AppendInstruction(dst []byte, instr *Instruction) []byte {
	dst = append(dst, instr.Opcode)

	switch instr.Opcode {
	case OpBlock, OpLoop:
		dst = binary.AppendS32(dst, instr.Imm.(BlockImm).Type)

	case OpBr, OpBrIf:
		dst = binary.AppendU32(dst, instr.Imm.(BranchImm).LabelIdx)

	case OpCall:
		dst = binary.AppendU32(dst, instr.Imm.(CallImm).FuncIdx)

	case OpLocalGet, OpLocalSet, OpLocalTee:
		dst = binary.AppendU32(dst, instr.Imm.(LocalImm).LocalIdx)

	case OpI32Load, OpI32Load8U, OpI32Store, OpI32Store8:
		imm := instr.Imm.(MemoryImm)
		dst = binary.AppendU32(dst, imm.Align)
		dst = binary.AppendU32(dst, imm.Offset)

	case OpI32Const:
		dst = binary.AppendS32(dst, instr.Imm.(I32Imm).Value)
	}
	return dst
}

// EncodeInstructions encodes instructions to bytes
func EncodeInstructions(instrs []Instruction) []byte {
	buf := make([]byte, 0, len(instrs)*3)
	for i := range instrs {
		buf = AppendInstruction(buf, &instrs[i])
	}
	return buf
}
