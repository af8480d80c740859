package wasm_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/wippyai/bf2wasm/wasm"
)

func TestWriteText(t *testing.T) {
	m := hostModule([]wasm.Instruction{
		block(wasm.OpBlock),
		block(wasm.OpLoop),
		br(wasm.OpBr, 1),
		op(wasm.OpEnd),
		op(wasm.OpEnd),
		i32(0),
		op(wasm.OpEnd),
	})

	var buf bytes.Buffer
	if err := m.WriteText(&buf); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"(module\n",
		"(type (;0;) (func (param i32)))",
		"(type (;1;) (func (result i32)))",
		`(import "env" "memory" (memory (;0;) 1 1))`,
		`(import "env" "putc" (func (;0;) (type 0)))`,
		`(import "env" "getc" (func (;1;) (type 1)))`,
		"(func (;2;) (type 1) (result i32)\n    (local i32)\n",
		"    block\n      loop\n        br 1\n      end\n    end\n    i32.const 0\n  )\n",
		`(export "main" (func 2))`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if !strings.HasSuffix(out, ")\n") {
		t.Errorf("output not closed:\n%s", out)
	}
}

func TestWriteTextUsesNames(t *testing.T) {
	m := hostModule(echoBody())
	m.CustomSections = []wasm.CustomSection{{
		Name: wasm.NameSectionName,
		Data: wasm.EncodeNameSection("", []wasm.NameMap{{Idx: 0, Name: "putc"}, {Idx: 2, Name: "main"}}, nil),
	}}

	var buf bytes.Buffer
	if err := m.WriteText(&buf); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	out := buf.String()

	for _, want := range []string{"(func $putc (type 0))", "(func (;1;) (type 1))", "(func $main (type 1)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
