package runtime

import (
	"github.com/wippyai/bf2wasm/compiler"
	"github.com/wippyai/bf2wasm/errors"
	"github.com/wippyai/bf2wasm/wasm"
)

// Contract is what the host learned from a module that satisfies the
// import/export contract.
type Contract struct {
	Export string // name of the entry function
	Pages  uint32 // tape size the module expects
}

var (
	putcType = wasm.FuncType{Params: []wasm.ValType{wasm.ValI32}}
	getcType = wasm.FuncType{Results: []wasm.ValType{wasm.ValI32}}
	mainType = wasm.FuncType{Results: []wasm.ValType{wasm.ValI32}}
)

// CheckContract verifies that m imports exactly env.memory (fixed size),
// env.putc and env.getc, and exports exactly one () -> i32 function.
func CheckContract(m *wasm.Module) (*Contract, error) {
	c := &Contract{}
	var haveMem, havePutc, haveGetc bool

	seen := make(map[string]bool, len(m.Imports))
	for _, imp := range m.Imports {
		if imp.Module != compiler.ImportModule {
			return nil, errors.Contract("unexpected import %s.%s", imp.Module, imp.Name)
		}
		if seen[imp.Name] {
			return nil, errors.Contract("duplicate import %s.%s", imp.Module, imp.Name)
		}
		seen[imp.Name] = true
		switch {
		case imp.Name == compiler.MemoryName && imp.Desc.Kind == wasm.KindMemory:
			if imp.Desc.Memory == nil {
				return nil, errors.Contract("env.memory has no limits")
			}
			lim := imp.Desc.Memory.Limits
			if lim.Max == nil || *lim.Max != lim.Min {
				return nil, errors.Contract("env.memory must declare max equal to min")
			}
			if lim.Min == 0 || lim.Min > wasm.MemoryMaxPages32 {
				return nil, errors.Contract("env.memory size %d pages out of range", lim.Min)
			}
			c.Pages = uint32(lim.Min)
			haveMem = true

		case imp.Name == compiler.PutcName && imp.Desc.Kind == wasm.KindFunc:
			if err := checkImportType(m, &imp, putcType); err != nil {
				return nil, err
			}
			havePutc = true

		case imp.Name == compiler.GetcName && imp.Desc.Kind == wasm.KindFunc:
			if err := checkImportType(m, &imp, getcType); err != nil {
				return nil, err
			}
			haveGetc = true

		default:
			return nil, errors.Contract("unexpected import %s.%s", imp.Module, imp.Name)
		}
	}

	switch {
	case !haveMem:
		return nil, errors.Contract("missing import env.memory")
	case !havePutc:
		return nil, errors.Contract("missing import env.putc")
	case !haveGetc:
		return nil, errors.Contract("missing import env.getc")
	}

	for _, exp := range m.Exports {
		if exp.Kind != wasm.KindFunc {
			continue
		}
		if c.Export != "" {
			return nil, errors.Contract("more than one exported function (%q, %q)", c.Export, exp.Name)
		}
		ft := m.GetFuncType(exp.Idx)
		if ft == nil || !ft.Equal(mainType) {
			return nil, errors.Contract("export %q must have type () -> i32", exp.Name)
		}
		c.Export = exp.Name
	}
	if c.Export == "" {
		return nil, errors.Contract("no exported function")
	}

	return c, nil
}

func checkImportType(m *wasm.Module, imp *wasm.Import, want wasm.FuncType) error {
	if int(imp.Desc.TypeIdx) >= len(m.Types) || !m.Types[imp.Desc.TypeIdx].Equal(want) {
		return errors.Contract("import %s.%s has the wrong signature", imp.Module, imp.Name)
	}
	return nil
}
