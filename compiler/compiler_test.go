package compiler_test

import (
	"bytes"
	"context"
	stderrors "errors"
	"reflect"
	"testing"

	"github.com/tetratelabs/wazero"

	"github.com/wippyai/bf2wasm/compiler"
	"github.com/wippyai/bf2wasm/errors"
	"github.com/wippyai/bf2wasm/wasm"
)

const helloWorld = "++++++++[>++++[>++>+++>+++>+<<<<-]>+>+>->>+[<]<-]>>.>---.+++++++..+++.>>.<-.<.+++.------.--------.>>+.>++."

func mainBody(t *testing.T, m *wasm.Module) []wasm.Instruction {
	t.Helper()
	if len(m.Code) != 1 {
		t.Fatalf("got %d function bodies, want 1", len(m.Code))
	}
	instrs, err := wasm.DecodeInstructions(m.Code[0].Code)
	if err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return instrs
}

func TestCompileDeterministic(t *testing.T) {
	a, err := compiler.Compile([]byte(helloWorld), nil)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	b, err := compiler.Compile([]byte(helloWorld), nil)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("identical source produced different bytes")
	}
}

func TestCompileValidates(t *testing.T) {
	sources := []string{"", "+", "[]", ",[.,]", helloWorld, "[[[[[[[[[[-]]]]]]]]]]"}
	for _, src := range sources {
		data, err := compiler.Compile([]byte(src), nil)
		if err != nil {
			t.Fatalf("Compile(%q): %v", src, err)
		}
		if _, err := wasm.ParseModuleValidate(data); err != nil {
			t.Errorf("Compile(%q) produced invalid module: %v", src, err)
		}
	}
}

func TestWazeroAcceptsModule(t *testing.T) {
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	data, err := compiler.Compile([]byte(helloWorld), &compiler.Config{EmitNames: true, ModuleName: "hello"})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	cm, err := rt.CompileModule(ctx, data)
	if err != nil {
		t.Fatalf("wazero rejected module: %v", err)
	}
	defer cm.Close(ctx)

	if cm.Name() != "hello" {
		t.Errorf("module name: got %q, want %q", cm.Name(), "hello")
	}
	fn, ok := cm.ExportedFunctions()["main"]
	if !ok {
		t.Fatal("main not exported")
	}
	if len(fn.ParamTypes()) != 0 || len(fn.ResultTypes()) != 1 {
		t.Errorf("main signature: params %v results %v", fn.ParamTypes(), fn.ResultTypes())
	}
	if len(cm.ImportedMemories()) != 1 || len(cm.ImportedFunctions()) != 2 {
		t.Errorf("imports: %d memories, %d functions", len(cm.ImportedMemories()), len(cm.ImportedFunctions()))
	}
}

func TestModuleContract(t *testing.T) {
	m, err := compiler.CompileModule([]byte(helloWorld), &compiler.Config{MemoryPages: 3})
	if err != nil {
		t.Fatalf("CompileModule: %v", err)
	}

	if len(m.Types) != 2 {
		t.Errorf("got %d types, want 2 (main shares getc's type)", len(m.Types))
	}

	mem, ok := m.FindImport("env", "memory")
	if !ok || mem.Desc.Kind != wasm.KindMemory {
		t.Fatal("env.memory not imported")
	}
	lim := mem.Desc.Memory.Limits
	if lim.Min != 3 || lim.Max == nil || *lim.Max != 3 {
		t.Errorf("memory limits: min %d max %v, want 3/3", lim.Min, lim.Max)
	}

	putc, ok := m.FindImport("env", "putc")
	if !ok || !m.Types[putc.Desc.TypeIdx].Equal(wasm.FuncType{Params: []wasm.ValType{wasm.ValI32}}) {
		t.Error("env.putc missing or mistyped")
	}
	getc, ok := m.FindImport("env", "getc")
	if !ok || !m.Types[getc.Desc.TypeIdx].Equal(wasm.FuncType{Results: []wasm.ValType{wasm.ValI32}}) {
		t.Error("env.getc missing or mistyped")
	}

	if len(m.Exports) != 1 {
		t.Fatalf("got %d exports, want 1", len(m.Exports))
	}
	exp := m.Exports[0]
	if exp.Name != "main" || exp.Kind != wasm.KindFunc {
		t.Errorf("export: %+v", exp)
	}
	ft := m.GetFuncType(exp.Idx)
	if ft == nil || !ft.Equal(wasm.FuncType{Results: []wasm.ValType{wasm.ValI32}}) {
		t.Errorf("main type: %+v", ft)
	}
	if len(m.CustomSections) != 0 {
		t.Error("name section emitted without EmitNames")
	}
}

func TestEmptyProgram(t *testing.T) {
	m, err := compiler.CompileModule(nil, nil)
	if err != nil {
		t.Fatalf("CompileModule: %v", err)
	}
	want := []wasm.Instruction{
		{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 0}},
		{Opcode: wasm.OpEnd},
	}
	if got := mainBody(t, m); !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestStatusAndPrologue(t *testing.T) {
	tests := []struct {
		name string
		cfg  *compiler.Config
		want []wasm.Instruction
	}{
		{
			"constant",
			&compiler.Config{StatusValue: 42},
			[]wasm.Instruction{
				{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 42}},
				{Opcode: wasm.OpEnd},
			},
		},
		{
			"cell",
			&compiler.Config{Status: compiler.StatusCell},
			[]wasm.Instruction{
				{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: 0}},
				{Opcode: wasm.OpI32Load8U, Imm: wasm.MemoryImm{}},
				{Opcode: wasm.OpEnd},
			},
		},
		{
			"start offset",
			&compiler.Config{StartOffset: 100},
			[]wasm.Instruction{
				{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 100}},
				{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: 0}},
				{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 0}},
				{Opcode: wasm.OpEnd},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := compiler.CompileModule([]byte("no commands"), tt.cfg)
			if err != nil {
				t.Fatalf("CompileModule: %v", err)
			}
			if got := mainBody(t, m); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExportNameAndNames(t *testing.T) {
	cfg := &compiler.Config{ExportName: "run", EmitNames: true}
	data, err := compiler.Compile([]byte("+."), cfg)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	m, err := wasm.ParseModuleValidate(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, ok := m.FindExport("run"); !ok {
		t.Error("export run missing")
	}
	want := map[uint32]string{0: "putc", 1: "getc", 2: "run"}
	if got := m.FuncNames(); !reflect.DeepEqual(got, want) {
		t.Errorf("names: got %v, want %v", got, want)
	}
}

func TestCompileUnmatchedBracket(t *testing.T) {
	for _, src := range []string{"[", "]", "+[[-]", "[]]"} {
		var out bytes.Buffer
		err := compiler.CompileTo(&out, []byte(src), nil)
		if !stderrors.Is(err, errors.ErrUnmatchedBracket) {
			t.Errorf("%q: got %v, want unmatched bracket", src, err)
		}
		if out.Len() != 0 {
			t.Errorf("%q: %d bytes written despite error", src, out.Len())
		}
	}
}

func TestCompileTo(t *testing.T) {
	var out bytes.Buffer
	if err := compiler.CompileTo(&out, []byte(helloWorld), nil); err != nil {
		t.Fatalf("CompileTo: %v", err)
	}
	want, _ := compiler.Compile([]byte(helloWorld), nil)
	if !bytes.Equal(out.Bytes(), want) {
		t.Error("CompileTo and Compile disagree")
	}
}

func TestConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  *compiler.Config
	}{
		{"too many pages", &compiler.Config{MemoryPages: 70000}},
		{"start outside tape", &compiler.Config{StartOffset: wasm.PageSize}},
		{"unknown status", &compiler.Config{Status: compiler.StatusPolicy(7)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compiler.Compile([]byte("+"), tt.cfg)
			var e *errors.Error
			if !stderrors.As(err, &e) || e.Kind != errors.KindInvalidInput {
				t.Errorf("got %v, want invalid input", err)
			}
		})
	}
}

func TestDefaultConfigMatchesZero(t *testing.T) {
	a, err := compiler.Compile([]byte(helloWorld), compiler.DefaultConfig())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	b, err := compiler.Compile([]byte(helloWorld), &compiler.Config{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("DefaultConfig and zero Config produced different modules")
	}
}

func TestParseStatusPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    compiler.StatusPolicy
		wantErr bool
	}{
		{"constant", compiler.StatusConstant, false},
		{"cell", compiler.StatusCell, false},
		{"", compiler.StatusConstant, false},
		{"exit", 0, true},
	}
	for _, tt := range tests {
		got, err := compiler.ParseStatusPolicy(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("%q: err = %v", tt.in, err)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("%q: got %v, want %v", tt.in, got, tt.want)
		}
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, stderrors.New("disk full")
}

type shortWriter struct{}

func (shortWriter) Write(p []byte) (int, error) {
	return len(p) / 2, nil
}

func TestEmitWriteFailure(t *testing.T) {
	m, err := compiler.CompileModule([]byte("+"), nil)
	if err != nil {
		t.Fatalf("CompileModule: %v", err)
	}

	for _, w := range []interface{ Write([]byte) (int, error) }{failingWriter{}, shortWriter{}} {
		err := compiler.Emit(m, w)
		var e *errors.Error
		if !stderrors.As(err, &e) || e.Phase != errors.PhaseEmit || e.Kind != errors.KindIO {
			t.Errorf("%T: got %v, want emit io error", w, err)
		}
	}
}
