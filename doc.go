// Package bf2wasm compiles Brainfuck programs to WebAssembly modules.
//
// The compiler translates source text directly, command by command, into a
// core WebAssembly module. The module imports its tape and its I/O from the
// host and exports a single entry function.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	bf2wasm/
//	├── compiler/        Compile, Config, module assembly and emission
//	│   └── internal/    token (lexer), ast (IR), parser, codegen
//	├── wasm/            Core WASM module model: encode, decode, validate, text
//	├── runtime/         wazero-backed host that runs compiled modules
//	├── errors/          Structured error types with phase and position
//	└── cmd/
//	    ├── bf2wasm/     Compiler CLI
//	    └── bfrun/       Runner CLI with an interactive mode
//
// # Quick Start
//
// Compile a program:
//
//	wasmBytes, err := compiler.Compile(src, nil)
//	if err != nil {
//	    log.Fatal(err) // e.g. unmatched bracket at 3:14
//	}
//
// Run it:
//
//	rt, err := runtime.New(ctx, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close(ctx)
//
//	res, err := rt.Run(ctx, wasmBytes, os.Stdin, os.Stdout)
//	fmt.Println(res.Status, res.Tape[:8])
//
// # Module Contract
//
// Every compiled module has the same shape:
//
//	(import "env" "memory" (memory N N))    tape, fixed size
//	(import "env" "putc" (func (param i32)))  write one byte
//	(import "env" "getc" (func (result i32))) read one byte
//	(export "main" (func (result i32)))      entry, returns a status
//
// The tape pointer is a local of the entry function. It is never range
// checked: moving off either end of the tape and touching a cell traps in
// the host.
//
// # Thread Safety
//
// Compilation is pure and safe for concurrent use. A Runtime serializes its
// runs, since each run binds the shared "env" namespace.
package bf2wasm
