package main

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/wippyai/bf2wasm/errors"
	"github.com/wippyai/bf2wasm/wasm"
)

func writeSource(t *testing.T, dir, src string) string {
	t.Helper()
	path := filepath.Join(dir, "prog.bf")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func defaultOptions(in, out string) options {
	return options{input: in, output: out, exportName: "main", status: "constant", pages: 1}
}

func TestRunWritesModule(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "prog.wasm")
	opts := defaultOptions(writeSource(t, dir, "+[-]."), out)
	opts.names = true

	if err := run(opts); err != nil {
		t.Fatalf("run: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	m, err := wasm.ParseModuleValidate(data)
	if err != nil {
		t.Fatalf("output is not a valid module: %v", err)
	}
	if names := m.FuncNames(); names[2] != "main" {
		t.Errorf("names: %v", names)
	}
	assertNoTemp(t, dir, 2)
}

func TestRunUnmatchedLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "prog.wasm")

	err := run(defaultOptions(writeSource(t, dir, "+[."), out))
	if !stderrors.Is(err, errors.ErrUnmatchedBracket) {
		t.Fatalf("got %v, want unmatched bracket", err)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("output written despite compile error")
	}
	assertNoTemp(t, dir, 1)
}

func TestRunRejectsBadFlags(t *testing.T) {
	dir := t.TempDir()
	in := writeSource(t, dir, "+")
	out := filepath.Join(dir, "prog.wasm")

	bad := defaultOptions(in, out)
	bad.status = "exit-code"
	if err := run(bad); err == nil {
		t.Error("expected error for unknown status policy")
	}

	tests := []struct {
		name string
		edit func(o *options)
	}{
		{"zero pages", func(o *options) { o.pages = 0 }},
		{"too many pages", func(o *options) { o.pages = 1<<16 + 1 }},
		{"pages beyond u32", func(o *options) { o.pages = 1<<32 + 1 }},
		{"status value above int32", func(o *options) { o.statusValue = 1<<32 + 7 }},
		{"status value below int32", func(o *options) { o.statusValue = -1<<31 - 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bad := defaultOptions(in, out)
			tt.edit(&bad)
			if err := run(bad); err == nil {
				t.Error("expected error")
			}
			if _, err := os.Stat(out); !os.IsNotExist(err) {
				t.Errorf("output written despite bad flags: %v", err)
			}
		})
	}
}

func TestModuleName(t *testing.T) {
	if got := moduleName("/tmp/hello.world.bf"); got != "hello.world" {
		t.Errorf("got %q", got)
	}
}

// assertNoTemp checks that only the expected files remain in dir.
func assertNoTemp(t *testing.T, dir string, want int) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != want {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("directory holds %v, want %d entries", names, want)
	}
}
