package wasm

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/wippyai/bf2wasm/wasm/internal/binary"
)

// FuncNames decodes the function-name map of the module's "name" custom
// section. A missing or malformed section yields an empty map.
func (m *Module) FuncNames() map[uint32]string {
	names := make(map[uint32]string)
	for _, cs := range m.CustomSections {
		if cs.Name != NameSectionName {
			continue
		}
		r := binary.NewReader(cs.Data)
		for {
			id, err := r.ReadByte()
			if err != nil {
				return names
			}
			sub, err := r.ReadSized()
			if err != nil {
				return names
			}
			if id != NameSubFunctions {
				continue
			}
			count, err := sub.ReadU32()
			if err != nil {
				return names
			}
			for i := uint32(0); i < count; i++ {
				idx, err := sub.ReadU32()
				if err != nil {
					return names
				}
				name, err := sub.ReadName()
				if err != nil {
					return names
				}
				names[idx] = name
			}
		}
	}
	return names
}

// WriteText renders the module in the WebAssembly text format.
// Function bodies are printed as flat instruction sequences indented
// by block depth. The output is meant for reading, not reassembly.
func (m *Module) WriteText(w io.Writer) error {
	bw := bufio.NewWriter(w)
	names := m.FuncNames()

	funcLabel := func(idx uint32) string {
		if n, ok := names[idx]; ok {
			return "$" + n
		}
		return fmt.Sprintf("(;%d;)", idx)
	}

	fmt.Fprintln(bw, "(module")

	for i, ft := range m.Types {
		fmt.Fprintf(bw, "  (type (;%d;) (func%s))\n", i, signature(&ft))
	}

	var funcIdx, memIdx uint32
	for _, imp := range m.Imports {
		switch imp.Desc.Kind {
		case KindFunc:
			fmt.Fprintf(bw, "  (import %q %q (func %s (type %d)))\n", imp.Module, imp.Name, funcLabel(funcIdx), imp.Desc.TypeIdx)
			funcIdx++
		case KindMemory:
			var limits string
			if imp.Desc.Memory != nil {
				limits = formatLimits(imp.Desc.Memory.Limits)
			}
			fmt.Fprintf(bw, "  (import %q %q (memory (;%d;) %s))\n", imp.Module, imp.Name, memIdx, limits)
			memIdx++
		}
	}

	for _, mem := range m.Memories {
		fmt.Fprintf(bw, "  (memory (;%d;) %s)\n", memIdx, formatLimits(mem.Limits))
		memIdx++
	}

	for i := range m.Code {
		idx := funcIdx + uint32(i)
		typeIdx := m.Funcs[i]
		ft := m.typeAt(typeIdx)
		if ft == nil {
			return fmt.Errorf("function %d references invalid type index %d", idx, typeIdx)
		}
		fmt.Fprintf(bw, "  (func %s (type %d)%s\n", funcLabel(idx), typeIdx, signature(ft))
		if err := writeBody(bw, &m.Code[i]); err != nil {
			return fmt.Errorf("function %d: %w", idx, err)
		}
	}

	for _, exp := range m.Exports {
		kind := "func"
		if exp.Kind == KindMemory {
			kind = "memory"
		}
		fmt.Fprintf(bw, "  (export %q (%s %d))\n", exp.Name, kind, exp.Idx)
	}

	fmt.Fprintln(bw, ")")
	return bw.Flush()
}

func writeBody(w *bufio.Writer, body *FuncBody) error {
	for _, l := range body.Locals {
		for i := uint32(0); i < l.Count; i++ {
			fmt.Fprintf(w, "    (local %s)\n", l.ValType)
		}
	}

	instrs, err := DecodeInstructions(body.Code)
	if err != nil {
		return err
	}

	depth := 0
	for i, instr := range instrs {
		// The function's own closing end becomes the closing paren.
		if instr.Opcode == OpEnd && depth == 0 && i == len(instrs)-1 {
			break
		}
		if instr.Opcode == OpEnd && depth > 0 {
			depth--
		}
		fmt.Fprintf(w, "    %s%s\n", strings.Repeat("  ", depth), instr)
		if instr.Opcode == OpBlock || instr.Opcode == OpLoop {
			depth++
		}
	}
	fmt.Fprintln(w, "  )")
	return nil
}

func signature(ft *FuncType) string {
	var sb strings.Builder
	if len(ft.Params) > 0 {
		sb.WriteString(" (param")
		for _, p := range ft.Params {
			sb.WriteString(" " + p.String())
		}
		sb.WriteString(")")
	}
	if len(ft.Results) > 0 {
		sb.WriteString(" (result")
		for _, r := range ft.Results {
			sb.WriteString(" " + r.String())
		}
		sb.WriteString(")")
	}
	return sb.String()
}

func formatLimits(l Limits) string {
	if l.Max != nil {
		return fmt.Sprintf("%d %d", l.Min, *l.Max)
	}
	return fmt.Sprintf("%d", l.Min)
}
