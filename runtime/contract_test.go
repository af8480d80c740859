package runtime

import (
	stderrors "errors"
	"testing"

	"github.com/wippyai/bf2wasm/compiler"
	"github.com/wippyai/bf2wasm/errors"
	"github.com/wippyai/bf2wasm/wasm"
)

func compiledModule(t *testing.T) *wasm.Module {
	t.Helper()
	m, err := compiler.CompileModule([]byte("+."), &compiler.Config{MemoryPages: 4, ExportName: "go"})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return m
}

func TestCheckContract(t *testing.T) {
	c, err := CheckContract(compiledModule(t))
	if err != nil {
		t.Fatalf("CheckContract: %v", err)
	}
	if c.Export != "go" || c.Pages != 4 {
		t.Errorf("got %+v", c)
	}
}

func TestCheckContractViolations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(m *wasm.Module)
	}{
		{"extra import", func(m *wasm.Module) {
			m.Imports = append(m.Imports, wasm.Import{Module: "env", Name: "exit", Desc: wasm.ImportDesc{Kind: wasm.KindFunc}})
		}},
		{"duplicate putc", func(m *wasm.Module) { m.Imports = append(m.Imports, m.Imports[1]) }},
		{"foreign namespace", func(m *wasm.Module) { m.Imports[1].Module = "wasi" }},
		{"missing getc", func(m *wasm.Module) { m.Imports = m.Imports[:2] }},
		{"missing memory", func(m *wasm.Module) { m.Imports = m.Imports[1:] }},
		{"growable memory", func(m *wasm.Module) { m.Imports[0].Desc.Memory.Limits.Max = nil }},
		{"putc mistyped", func(m *wasm.Module) { m.Imports[1].Desc.TypeIdx = 1 }},
		{"no export", func(m *wasm.Module) { m.Exports = nil }},
		{"two exports", func(m *wasm.Module) {
			m.Exports = append(m.Exports, wasm.Export{Name: "again", Kind: wasm.KindFunc, Idx: 2})
		}},
		{"export mistyped", func(m *wasm.Module) { m.Exports[0].Idx = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := compiledModule(t)
			tt.mutate(m)
			_, err := CheckContract(m)
			if !stderrors.Is(err, errors.ErrContract) {
				t.Errorf("got %v, want contract error", err)
			}
		})
	}
}

func TestEnvShimValidates(t *testing.T) {
	m, err := wasm.ParseModuleValidate(buildEnvShim(DefaultHostModule, 3))
	if err != nil {
		t.Fatalf("shim: %v", err)
	}
	if len(m.Memories) != 1 || m.Memories[0].Limits.Min != 3 || *m.Memories[0].Limits.Max != 3 {
		t.Errorf("memory: %+v", m.Memories)
	}
	for _, name := range []string{"memory", "putc", "getc"} {
		if _, ok := m.FindExport(name); !ok {
			t.Errorf("shim does not export %s", name)
		}
	}
}
