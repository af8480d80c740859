package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/tebeka/atexit"
	"go.uber.org/zap"

	"github.com/wippyai/bf2wasm/compiler"
)

type options struct {
	input       string
	output      string
	exportName  string
	status      string
	pages       uint64
	statusValue int64
	names       bool
	wat         bool
	verbose     bool
}

func main() {
	var opts options
	flag.StringVar(&opts.input, "input", "", "Brainfuck source file")
	flag.StringVar(&opts.input, "i", "", "Shorthand for -input")
	flag.StringVar(&opts.output, "output", "", "WebAssembly output file")
	flag.StringVar(&opts.output, "o", "", "Shorthand for -output")
	flag.StringVar(&opts.exportName, "export", compiler.DefaultExportName, "Export name of the entry function")
	flag.Uint64Var(&opts.pages, "pages", compiler.DefaultMemoryPages, "Tape size in 64KiB pages")
	flag.StringVar(&opts.status, "status", "constant", "Entry function result: constant or cell")
	flag.Int64Var(&opts.statusValue, "status-value", 0, "Result returned with -status constant")
	flag.BoolVar(&opts.names, "names", false, "Emit a name section")
	flag.BoolVar(&opts.wat, "wat", false, "Also print the module in text form to stdout")
	flag.BoolVar(&opts.verbose, "v", false, "Verbose logging")
	flag.Parse()

	if opts.input == "" || opts.output == "" {
		fmt.Fprintln(os.Stderr, "Usage: bf2wasm -i <program.bf> -o <program.wasm> [-export name] [-pages n]")
		fmt.Fprintln(os.Stderr, "               [-status constant|cell] [-status-value n] [-names] [-wat] [-v]")
		atexit.Exit(1)
	}

	if err := opts.validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		atexit.Exit(1)
	}

	if opts.verbose {
		logger, err := zap.NewDevelopment()
		if err == nil {
			compiler.SetLogger(logger)
			atexit.Register(func() { _ = logger.Sync() })
		}
	}

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		atexit.Exit(1)
	}
	atexit.Exit(0)
}

// validate rejects numeric flags that do not fit the module's i32/u32 fields.
func (o options) validate() error {
	if o.pages == 0 || o.pages > 1<<16 {
		return fmt.Errorf("-pages must be between 1 and 65536, got %d", o.pages)
	}
	if o.statusValue < math.MinInt32 || o.statusValue > math.MaxInt32 {
		return fmt.Errorf("-status-value must fit in int32, got %d", o.statusValue)
	}
	return nil
}

func run(opts options) error {
	if err := opts.validate(); err != nil {
		return err
	}

	src, err := os.ReadFile(opts.input)
	if err != nil {
		return fmt.Errorf("read source: %w", err)
	}

	policy, err := compiler.ParseStatusPolicy(opts.status)
	if err != nil {
		return err
	}
	cfg := &compiler.Config{
		ExportName:  opts.exportName,
		ModuleName:  moduleName(opts.input),
		MemoryPages: uint32(opts.pages),
		Status:      policy,
		StatusValue: int32(opts.statusValue),
		EmitNames:   opts.names,
	}

	m, err := compiler.CompileModule(src, cfg)
	if err != nil {
		return err
	}

	if opts.wat {
		if err := m.WriteText(os.Stdout); err != nil {
			return fmt.Errorf("write text: %w", err)
		}
	}

	return writeAtomic(opts.output, func(f *os.File) error {
		return compiler.Emit(m, f)
	})
}

// writeAtomic writes through a temp file in the target directory and
// renames it into place, so a failed run leaves no partial output.
func writeAtomic(path string, write func(*os.File) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	cleanup := func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}
	// Exit paths skip deferred calls.
	atexit.Register(cleanup)
	defer cleanup()

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename output: %w", err)
	}
	committed = true
	return nil
}

func moduleName(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}
