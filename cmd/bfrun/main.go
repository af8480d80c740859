package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tebeka/atexit"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/bf2wasm/compiler"
	"github.com/wippyai/bf2wasm/runtime"
)

type options struct {
	file        string
	status      string
	timeout     time.Duration
	pages       uint64
	tape        int
	eof         int64
	interactive bool
	verbose     bool
}

func main() {
	var opts options
	flag.DurationVar(&opts.timeout, "timeout", 0, "Stop the program after this long (0 = no limit); a getc blocked reading stdin is not interrupted")
	flag.Uint64Var(&opts.pages, "pages", compiler.DefaultMemoryPages, "Tape size in 64KiB pages for .bf sources")
	flag.StringVar(&opts.status, "status", "constant", "Entry function result for .bf sources: constant or cell")
	flag.Int64Var(&opts.eof, "eof", 0, "Value getc returns at end of input")
	flag.IntVar(&opts.tape, "tape", 0, "Print this many leading tape cells after the run")
	flag.BoolVar(&opts.interactive, "i", false, "Interactive mode with TUI")
	flag.BoolVar(&opts.verbose, "v", false, "Verbose logging")
	flag.Parse()
	opts.file = flag.Arg(0)

	if opts.file == "" && !opts.interactive {
		fmt.Fprintln(os.Stderr, "Usage: bfrun [-timeout d] [-tape n] [-eof n] <program.bf|program.wasm>")
		fmt.Fprintln(os.Stderr, "       bfrun -i [program.bf]  (interactive mode)")
		atexit.Exit(2)
	}
	if err := opts.validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		atexit.Exit(2)
	}

	if opts.verbose {
		logger, err := zap.NewDevelopment()
		if err == nil {
			compiler.SetLogger(logger)
			runtime.SetLogger(logger)
			atexit.Register(func() { _ = logger.Sync() })
		}
	}

	if opts.interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode needs a terminal")
			atexit.Exit(1)
		}
		if err := runInteractive(opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			atexit.Exit(1)
		}
		atexit.Exit(0)
	}

	status, err := run(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		atexit.Exit(1)
	}
	atexit.Exit(int(status) & 0xff)
}

// validate rejects numeric flags that do not fit the module's i32/u32 fields.
func (o options) validate() error {
	if o.pages == 0 || o.pages > 1<<16 {
		return fmt.Errorf("-pages must be between 1 and 65536, got %d", o.pages)
	}
	if o.eof < math.MinInt32 || o.eof > math.MaxInt32 {
		return fmt.Errorf("-eof must fit in int32, got %d", o.eof)
	}
	return nil
}

func compilerConfig(opts options) (*compiler.Config, error) {
	policy, err := compiler.ParseStatusPolicy(opts.status)
	if err != nil {
		return nil, err
	}
	return &compiler.Config{MemoryPages: uint32(opts.pages), Status: policy}, nil
}

// load returns module bytes for path, compiling Brainfuck sources.
func load(path string, opts options) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".wasm") {
		return data, nil
	}
	cfg, err := compilerConfig(opts)
	if err != nil {
		return nil, err
	}
	return compiler.Compile(data, cfg)
}

func run(opts options) (int32, error) {
	if err := opts.validate(); err != nil {
		return 0, err
	}

	ctx := context.Background()
	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	wasmBytes, err := load(opts.file, opts)
	if err != nil {
		return 0, err
	}

	rt, err := runtime.New(ctx, &runtime.Config{EOFValue: int32(opts.eof)})
	if err != nil {
		return 0, err
	}
	atexit.Register(func() { rt.Close(context.Background()) })
	defer rt.Close(context.Background())

	res, err := rt.Run(ctx, wasmBytes, os.Stdin, os.Stdout)
	if err != nil {
		return 0, err
	}

	if opts.tape > 0 {
		// Keep the report off the program's own output line.
		if term.IsTerminal(int(os.Stdout.Fd())) && res.BytesWritten > 0 {
			fmt.Fprintln(os.Stderr)
		}
		fmt.Fprintf(os.Stderr, "status %d, tape %s\n", res.Status, formatCells(res.Tape, opts.tape))
	}

	return res.Status, nil
}

func formatCells(tape []byte, n int) string {
	if n > len(tape) {
		n = len(tape)
	}
	cells := make([]string, n)
	for i, c := range tape[:n] {
		cells[i] = fmt.Sprintf("%d", c)
	}
	return "[" + strings.Join(cells, " ") + "]"
}
