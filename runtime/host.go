package runtime

import (
	"bufio"
	"context"
	stderrors "errors"
	"io"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/bf2wasm/compiler"
)

// hostIO carries one run's streams. putc and getc close over it.
type hostIO struct {
	err     error
	in      io.Reader
	out     *bufio.Writer
	read    int64
	written int64
	eof     int32
	buf     [1]byte
	atEOF   bool
}

func newHostIO(stdin io.Reader, stdout io.Writer, eof int32) *hostIO {
	if stdout == nil {
		stdout = io.Discard
	}
	return &hostIO{in: stdin, out: bufio.NewWriter(stdout), eof: eof}
}

// hostAbort unwinds the guest after a host stream failure. The cause is
// kept in hostIO.err.
type hostAbort struct{}

func (h *hostIO) fail(err error) {
	h.err = err
	panic(hostAbort{})
}

func (h *hostIO) putc(_ context.Context, _ api.Module, stack []uint64) {
	if err := h.out.WriteByte(byte(api.DecodeI32(stack[0]))); err != nil {
		h.fail(err)
	}
	h.written++
}

// getc flushes pending output first so prompts appear before a blocking read.
func (h *hostIO) getc(_ context.Context, _ api.Module, stack []uint64) {
	if err := h.out.Flush(); err != nil {
		h.fail(err)
	}

	if h.in == nil || h.atEOF {
		stack[0] = api.EncodeI32(h.eof)
		return
	}

	_, err := io.ReadFull(h.in, h.buf[:])
	switch {
	case err == nil:
		h.read++
		stack[0] = api.EncodeI32(int32(h.buf[0]))
	case stderrors.Is(err, io.EOF):
		h.atEOF = true
		stack[0] = api.EncodeI32(h.eof)
	default:
		h.fail(err)
	}
}

func (h *hostIO) flush() error {
	if h.err != nil {
		return h.err
	}
	return h.out.Flush()
}

// instantiateHost registers putc and getc under name for one run.
func instantiateHost(ctx context.Context, rt wazero.Runtime, name string, h *hostIO) (api.Module, error) {
	i32 := []api.ValueType{api.ValueTypeI32}

	builder := rt.NewHostModuleBuilder(name)
	builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(h.putc), i32, nil).
		Export(compiler.PutcName)
	builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(h.getc), nil, i32).
		Export(compiler.GetcName)

	return builder.Instantiate(ctx)
}
