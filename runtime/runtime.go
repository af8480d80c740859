package runtime

import (
	"context"
	"io"
	"sync"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"

	"github.com/wippyai/bf2wasm/compiler"
	"github.com/wippyai/bf2wasm/errors"
	"github.com/wippyai/bf2wasm/wasm"
)

// DefaultHostModule is the namespace putc and getc are registered under
// before the env shim re-exports them.
const DefaultHostModule = "bf_host"

// Config holds configuration for runtime creation
type Config struct {
	// HostModule names the module holding the Go putc/getc functions.
	// Default "bf_host".
	HostModule string

	// MemoryLimitPages caps the tape size a program may declare, in 64KiB
	// pages. 0 means the wazero default (65536 pages = 4GB).
	MemoryLimitPages uint32

	// EOFValue is what getc returns once input is exhausted. Default 0,
	// which leaves the cell cleared.
	EOFValue int32
}

type Runtime struct {
	rt    wazero.Runtime
	cfg   Config
	shims map[uint32]wazero.CompiledModule
	mu    sync.Mutex
}

// New creates a wazero-backed runtime. A nil cfg uses defaults.
func New(ctx context.Context, cfg *Config) (*Runtime, error) {
	var c Config
	if cfg != nil {
		c = *cfg
	}
	if c.HostModule == "" {
		c.HostModule = DefaultHostModule
	}
	if c.HostModule == compiler.ImportModule {
		return nil, errors.InvalidInput(errors.PhaseLoad, "host module name collides with "+compiler.ImportModule)
	}

	runtimeCfg := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	if c.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(c.MemoryLimitPages)
	}

	return &Runtime{
		rt:    wazero.NewRuntimeWithConfig(ctx, runtimeCfg),
		cfg:   c,
		shims: make(map[uint32]wazero.CompiledModule),
	}, nil
}

// Close releases all runtime resources, including loaded modules.
func (r *Runtime) Close(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rt.Close(ctx)
}

// Load decodes wasmBytes, checks it against the host contract and
// compiles it for repeated runs.
func (r *Runtime) Load(ctx context.Context, wasmBytes []byte) (*Module, error) {
	parsed, err := wasm.ParseModule(wasmBytes)
	if err != nil {
		return nil, errors.New(errors.PhaseDecode, errors.KindInvalidData).
			Path("module").
			Detail("decode module").
			Cause(err).
			Build()
	}

	contract, err := CheckContract(parsed)
	if err != nil {
		return nil, err
	}
	if limit := r.cfg.MemoryLimitPages; limit > 0 && contract.Pages > limit {
		return nil, errors.Contract("module declares %d pages, limit is %d", contract.Pages, limit)
	}

	compiled, err := r.rt.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseLoad, errors.KindInvalidData, err, "compile module")
	}

	Logger().Debug("module loaded",
		zap.String("export", contract.Export),
		zap.Uint32("pages", contract.Pages),
		zap.Int("bytes", len(wasmBytes)))

	return &Module{runtime: r, compiled: compiled, contract: *contract}, nil
}

// Run loads wasmBytes, runs it once and releases it.
func (r *Runtime) Run(ctx context.Context, wasmBytes []byte, stdin io.Reader, stdout io.Writer) (*Result, error) {
	m, err := r.Load(ctx, wasmBytes)
	if err != nil {
		return nil, err
	}
	defer m.Close(context.Background())

	return m.Run(ctx, stdin, stdout)
}

// envShim returns the compiled env module for a tape of pages pages.
// Called with r.mu held.
func (r *Runtime) envShim(ctx context.Context, pages uint32) (wazero.CompiledModule, error) {
	if cm, ok := r.shims[pages]; ok {
		return cm, nil
	}
	cm, err := r.rt.CompileModule(ctx, buildEnvShim(r.cfg.HostModule, pages))
	if err != nil {
		return nil, err
	}
	r.shims[pages] = cm
	return cm, nil
}
