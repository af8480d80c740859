// Package wasm provides WebAssembly binary format encoding, parsing and
// validation for the subset of the format the compiler emits.
//
// # Supported Features
//
//	Sections: type, import, function, memory, export, code, custom
//	Imports:  functions and memories
//	Exports:  functions and memories
//	Values:   i32 (other value types are recognized but not produced)
//	Code:     structured control flow (block, loop, br, br_if),
//	          calls, locals, i32 arithmetic and comparison,
//	          8-bit and 32-bit loads and stores
//
// # Building a Module
//
//	m := &wasm.Module{}
//	putc := m.AddType(wasm.FuncType{Params: []wasm.ValType{wasm.ValI32}})
//	m.Imports = append(m.Imports, wasm.Import{
//	    Module: "env",
//	    Name:   "putc",
//	    Desc:   wasm.ImportDesc{Kind: wasm.KindFunc, TypeIdx: putc},
//	})
//
// Function bodies are built as instruction slices and encoded with
// EncodeInstructions. The trailing end opcode is part of the body:
//
//	code := wasm.EncodeInstructions([]wasm.Instruction{
//	    {Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 0}},
//	    {Opcode: wasm.OpEnd},
//	})
//
// # Encoding and Parsing
//
//	data := m.Encode()
//	parsed, err := wasm.ParseModuleValidate(data)
//
// Validate checks index spaces, export names, memory limits and
// type-checks every function body against an operand stack.
//
// # Text Rendering
//
// WriteText prints a module in a text-format approximation suitable for
// inspection. Function names come from the "name" custom section when
// present.
package wasm
