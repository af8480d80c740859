package runtime

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/sys"
	"go.uber.org/zap"

	"github.com/wippyai/bf2wasm/compiler"
	"github.com/wippyai/bf2wasm/errors"
)

// Module is a compiled program that satisfies the host contract.
type Module struct {
	runtime  *Runtime
	compiled wazero.CompiledModule
	contract Contract
}

// Result describes a finished run.
type Result struct {
	Tape         []byte // copy of the memory after the run
	BytesRead    int64
	BytesWritten int64
	Status       int32
}

func (m *Module) Contract() Contract {
	return m.contract
}

func (m *Module) Close(ctx context.Context) error {
	return m.compiled.Close(ctx)
}

// Run executes the program once against fresh zeroed memory. getc reads
// stdin one byte at a time and blocks like the underlying reader; putc
// output is buffered and flushed before each read and at exit. Runs on
// one Runtime are serialized because they share the env namespace.
//
// A trap, such as the pointer leaving the tape, is reported as
// errors.ErrTrap. Cancellation of ctx stops the program and is reported as
// errors.ErrCanceled. It is observed in guest code only: a getc blocked in
// stdin.Read holds the run until the reader returns.
func (m *Module) Run(ctx context.Context, stdin io.Reader, stdout io.Writer) (*Result, error) {
	r := m.runtime
	r.mu.Lock()
	defer r.mu.Unlock()

	log := Logger()
	h := newHostIO(stdin, stdout, r.cfg.EOFValue)

	host, err := instantiateHost(ctx, r.rt, r.cfg.HostModule, h)
	if err != nil {
		return nil, instantiationError(ctx, "host functions", err)
	}
	defer host.Close(context.Background())

	shim, err := r.envShim(ctx, m.contract.Pages)
	if err != nil {
		return nil, instantiationError(ctx, "env shim", err)
	}
	env, err := r.rt.InstantiateModule(ctx, shim, wazero.NewModuleConfig().WithName(compiler.ImportModule))
	if err != nil {
		return nil, instantiationError(ctx, "env shim", err)
	}
	defer env.Close(context.Background())

	prog, err := r.rt.InstantiateModule(ctx, m.compiled, wazero.NewModuleConfig().WithName("").WithStartFunctions())
	if err != nil {
		return nil, instantiationError(ctx, "program", err)
	}
	defer prog.Close(context.Background())

	fn := prog.ExportedFunction(m.contract.Export)
	if fn == nil {
		return nil, errors.Contract("export %q not found", m.contract.Export)
	}

	log.Debug("run started", zap.String("export", m.contract.Export), zap.Uint32("pages", m.contract.Pages))

	results, callErr := fn.Call(ctx)
	if callErr != nil {
		if h.err != nil {
			return nil, errors.IO(errors.PhaseRuntime, "host stream", h.err)
		}
		// Output produced before the failure is still delivered.
		fields := []zap.Field{zap.Error(callErr), zap.Int64("bytes_written", h.written)}
		if err := h.flush(); err != nil {
			fields = append(fields, zap.NamedError("flush_error", err))
		}
		if canceled(ctx, callErr) {
			log.Debug("run canceled", fields...)
			return nil, errors.Canceled(callErr)
		}
		log.Debug("run trapped", fields...)
		return nil, errors.Trap(callErr)
	}
	if err := h.flush(); err != nil {
		return nil, errors.IO(errors.PhaseRuntime, "write output", err)
	}

	res := &Result{
		BytesRead:    h.read,
		BytesWritten: h.written,
		Status:       api.DecodeI32(results[0]),
	}

	mem := env.ExportedMemory(compiler.MemoryName)
	if mem == nil {
		return nil, errors.Internal(errors.PhaseRuntime, "env shim exports no %s", compiler.MemoryName)
	}
	data, ok := mem.Read(0, mem.Size())
	if !ok {
		return nil, errors.OutOfBounds(errors.PhaseRuntime, []string{compiler.MemoryName}, 0, int(mem.Size()))
	}
	res.Tape = bytes.Clone(data)

	log.Debug("run finished",
		zap.Int32("status", res.Status),
		zap.Int64("bytes_read", res.BytesRead),
		zap.Int64("bytes_written", res.BytesWritten))

	return res, nil
}

func canceled(ctx context.Context, err error) bool {
	var exitErr *sys.ExitError
	if stderrors.As(err, &exitErr) {
		switch exitErr.ExitCode() {
		case sys.ExitCodeContextCanceled, sys.ExitCodeDeadlineExceeded:
			return true
		}
	}
	return ctx.Err() != nil
}

func instantiationError(ctx context.Context, what string, err error) error {
	if ctx.Err() != nil {
		return errors.Canceled(err)
	}
	return errors.Instantiation(what, err)
}
