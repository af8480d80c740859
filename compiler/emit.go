package compiler

import (
	"io"

	"go.uber.org/zap"

	"github.com/wippyai/bf2wasm/errors"
	"github.com/wippyai/bf2wasm/wasm"
)

// Emit encodes m and writes it to w in a single call. The module is fully
// encoded before anything is written.
func Emit(m *wasm.Module, w io.Writer) error {
	data := m.Encode()

	n, err := w.Write(data)
	if err == nil && n != len(data) {
		err = io.ErrShortWrite
	}
	if err != nil {
		return errors.IO(errors.PhaseEmit, "write module", err)
	}

	Logger().Debug("module emitted", zap.Int("bytes", n))
	return nil
}
