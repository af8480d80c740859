package compiler

import (
	"github.com/wippyai/bf2wasm/compiler/internal/codegen"
	"github.com/wippyai/bf2wasm/errors"
	"github.com/wippyai/bf2wasm/wasm"
)

// Host contract names.
const (
	ImportModule = "env"
	MemoryName   = "memory"
	PutcName     = "putc"
	GetcName     = "getc"
	PointerName  = "pointer"
)

// Function and local indices fixed by the import order.
const (
	putcIdx    uint32 = 0
	getcIdx    uint32 = 1
	mainIdx    uint32 = 2
	pointerIdx uint32 = 0
)

// Assemble wraps generated code in a complete module: the imported
// memory, putc and getc, and one exported function returning an i32
// status. code must not include the function's final end. The module is
// validated before it is returned; a validation failure is a compiler
// defect reported as errors.ErrAssembly.
func Assemble(code []wasm.Instruction, cfg *Config) (*wasm.Module, error) {
	c, err := cfg.resolve()
	if err != nil {
		return nil, err
	}

	m := &wasm.Module{}
	putcType := m.AddType(wasm.FuncType{Params: []wasm.ValType{wasm.ValI32}})
	getcType := m.AddType(wasm.FuncType{Results: []wasm.ValType{wasm.ValI32}})
	mainType := m.AddType(wasm.FuncType{Results: []wasm.ValType{wasm.ValI32}})

	pages := uint64(c.MemoryPages)
	m.Imports = []wasm.Import{
		{
			Module: ImportModule,
			Name:   MemoryName,
			Desc: wasm.ImportDesc{
				Kind:   wasm.KindMemory,
				Memory: &wasm.MemoryType{Limits: wasm.Limits{Min: pages, Max: &pages}},
			},
		},
		{Module: ImportModule, Name: PutcName, Desc: wasm.ImportDesc{Kind: wasm.KindFunc, TypeIdx: putcType}},
		{Module: ImportModule, Name: GetcName, Desc: wasm.ImportDesc{Kind: wasm.KindFunc, TypeIdx: getcType}},
	}

	body := make([]wasm.Instruction, 0, len(code)+5)
	if c.StartOffset != 0 {
		body = append(body,
			wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: int32(c.StartOffset)}},
			wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: pointerIdx}},
		)
	}
	body = append(body, code...)
	body = append(body, statusEpilogue(&c)...)
	body = append(body, wasm.Instruction{Opcode: wasm.OpEnd})

	m.Funcs = []uint32{mainType}
	m.Code = []wasm.FuncBody{{
		Locals: []wasm.LocalEntry{{Count: 1, ValType: wasm.ValI32}},
		Code:   wasm.EncodeInstructions(body),
	}}
	m.Exports = []wasm.Export{{Name: c.ExportName, Kind: wasm.KindFunc, Idx: mainIdx}}

	if c.EmitNames {
		m.CustomSections = append(m.CustomSections, wasm.CustomSection{
			Name: wasm.NameSectionName,
			Data: wasm.EncodeNameSection(c.ModuleName,
				[]wasm.NameMap{
					{Idx: putcIdx, Name: PutcName},
					{Idx: getcIdx, Name: GetcName},
					{Idx: mainIdx, Name: c.ExportName},
				},
				[]wasm.LocalNames{{FuncIdx: mainIdx, Locals: []wasm.NameMap{{Idx: pointerIdx, Name: PointerName}}}},
			),
		})
	}

	if err := m.Validate(); err != nil {
		return nil, errors.New(errors.PhaseAssemble, errors.KindInternal).
			Detail("generated module failed validation").
			Cause(err).
			Build()
	}

	return m, nil
}

func statusEpilogue(c *Config) []wasm.Instruction {
	if c.Status == StatusCell {
		return []wasm.Instruction{
			{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pointerIdx}},
			{Opcode: wasm.OpI32Load8U, Imm: wasm.MemoryImm{}},
		}
	}
	return []wasm.Instruction{{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: c.StatusValue}}}
}

// layout must agree with the import order above.
var layout = codegen.Layout{Pointer: pointerIdx, Putc: putcIdx, Getc: getcIdx}
