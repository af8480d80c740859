// Package runtime runs compiled Brainfuck modules on wazero.
//
// # Quick Start
//
//	ctx := context.Background()
//	rt, err := runtime.New(ctx, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close(ctx)
//
//	res, err := rt.Run(ctx, wasmBytes, os.Stdin, os.Stdout)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println("status", res.Status, "cell 0", res.Tape[0])
//
// # Host Contract
//
// A module is accepted only if it imports exactly
//
//	env.memory  memory with max equal to min
//	env.putc    (i32) -> ()
//	env.getc    () -> i32
//
// and exports one () -> i32 function. CheckContract performs this check
// on the decoded module before wazero compiles it.
//
// # Instances
//
// Each run instantiates three modules: the Go putc/getc functions under
// Config.HostModule, an env module that defines the memory and re-exports
// the two functions, and the program itself. All three are closed when the
// run ends, so every run starts from a zeroed tape.
//
// Load compiles a program once for repeated runs:
//
//	mod, err := rt.Load(ctx, wasmBytes)
//	defer mod.Close(ctx)
//	res, err := mod.Run(ctx, strings.NewReader("input"), &out)
//
// # Errors
//
//	errors.ErrContract  module does not match the host contract
//	errors.ErrTrap      execution trapped (e.g. pointer outside the tape)
//	errors.ErrCanceled  ctx was canceled or its deadline passed
package runtime
