// Package compiler translates Brainfuck source into a WebAssembly module.
//
// Compilation runs in stages, each consuming the previous one's output:
//
//	source bytes -> tokens -> program tree -> instructions -> module -> bytes
//
// The lexer keeps the eight commands and drops everything else. The
// parser matches brackets with an explicit stack, folds runs of pointer
// moves and cell adjustments, and fails with an unmatched-bracket error
// carrying the source position. The code generator lowers the tree to
// structured control flow over one pointer local. Assemble wraps the
// code in a module and validates it; Emit serializes it.
//
// # Module Contract
//
// The generated module imports
//
//	env.memory  memory, MemoryPages pages, max = min
//	env.putc    (i32) -> ()
//	env.getc    () -> i32
//
// and exports one function, () -> i32, under Config.ExportName. The tape
// is the imported memory starting at offset 0. Cells are bytes and wrap
// modulo 256. The pointer is not range-checked; an access outside the
// memory traps in the host.
//
// # Usage
//
//	wasmBytes, err := compiler.Compile(src, nil)
//	if err != nil {
//	    var e *errors.Error
//	    if stderrors.As(err, &e) && e.Pos != nil {
//	        fmt.Println("at", e.Pos)
//	    }
//	}
//
// Compilation is pure: the same source and Config always produce the same
// bytes. It holds no shared state apart from the logger set by SetLogger.
package compiler
