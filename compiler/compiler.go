package compiler

import (
	"io"

	"go.uber.org/zap"

	"github.com/wippyai/bf2wasm/compiler/internal/ast"
	"github.com/wippyai/bf2wasm/compiler/internal/codegen"
	"github.com/wippyai/bf2wasm/compiler/internal/parser"
	"github.com/wippyai/bf2wasm/compiler/internal/token"
	"github.com/wippyai/bf2wasm/wasm"
)

// Compile translates Brainfuck source into a WebAssembly binary.
// A nil cfg uses DefaultConfig.
func Compile(src []byte, cfg *Config) ([]byte, error) {
	m, err := CompileModule(src, cfg)
	if err != nil {
		return nil, err
	}
	data := m.Encode()
	Logger().Debug("module encoded", zap.Int("bytes", len(data)))
	return data, nil
}

// CompileTo compiles src and writes the module to w. Nothing is written
// unless compilation succeeds.
func CompileTo(w io.Writer, src []byte, cfg *Config) error {
	m, err := CompileModule(src, cfg)
	if err != nil {
		return err
	}
	return Emit(m, w)
}

// CompileModule runs every stage except serialization.
func CompileModule(src []byte, cfg *Config) (*wasm.Module, error) {
	log := Logger()

	tokens := token.Tokenize(src)
	log.Debug("lexed", zap.Int("source_bytes", len(src)), zap.Int("commands", len(tokens)))

	prog, err := parser.Parse(tokens)
	if err != nil {
		return nil, err
	}
	logStats(log, prog)

	code, err := codegen.New(layout).Generate(prog.Body)
	if err != nil {
		return nil, err
	}
	log.Debug("generated", zap.Int("instructions", len(code)))

	m, err := Assemble(code, cfg)
	if err != nil {
		return nil, err
	}
	log.Debug("assembled",
		zap.Int("types", len(m.Types)),
		zap.Int("imports", len(m.Imports)),
		zap.String("export", m.Exports[0].Name))

	return m, nil
}

// maxLoggedNodes bounds the tree rendering in debug logs.
const maxLoggedNodes = 256

func logStats(log *zap.Logger, prog *ast.Program) {
	s := prog.Stats
	fields := []zap.Field{
		zap.Int("commands", s.Commands),
		zap.Int("nodes", s.Nodes),
		zap.Int("loops", s.Loops),
		zap.Int("max_depth", s.MaxDepth),
	}
	if s.Nodes <= maxLoggedNodes {
		fields = append(fields, zap.Stringer("tree", ast.Nodes(prog.Body)))
	}
	log.Debug("parsed", fields...)
}
