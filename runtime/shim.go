package runtime

import (
	"github.com/wippyai/bf2wasm/compiler"
	"github.com/wippyai/bf2wasm/wasm"
)

// buildEnvShim returns a module that defines the tape memory and
// re-exports putc and getc from the host module, so that a program sees
// all three under one import namespace. wazero host modules cannot
// export memory, hence the extra module.
func buildEnvShim(hostModule string, pages uint32) []byte {
	m := &wasm.Module{}
	putc := m.AddType(putcType)
	getc := m.AddType(getcType)

	m.Imports = []wasm.Import{
		{Module: hostModule, Name: compiler.PutcName, Desc: wasm.ImportDesc{Kind: wasm.KindFunc, TypeIdx: putc}},
		{Module: hostModule, Name: compiler.GetcName, Desc: wasm.ImportDesc{Kind: wasm.KindFunc, TypeIdx: getc}},
	}

	maxPages := uint64(pages)
	m.Memories = []wasm.MemoryType{{Limits: wasm.Limits{Min: uint64(pages), Max: &maxPages}}}

	m.Exports = []wasm.Export{
		{Name: compiler.MemoryName, Kind: wasm.KindMemory, Idx: 0},
		{Name: compiler.PutcName, Kind: wasm.KindFunc, Idx: 0},
		{Name: compiler.GetcName, Kind: wasm.KindFunc, Idx: 1},
	}

	return m.Encode()
}
