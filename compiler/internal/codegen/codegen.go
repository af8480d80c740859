package codegen

import (
	"github.com/wippyai/bf2wasm/compiler/internal/ast"
	"github.com/wippyai/bf2wasm/errors"
	"github.com/wippyai/bf2wasm/wasm"
)

// Layout fixes the indices generated code refers to.
type Layout struct {
	Pointer uint32 // local holding the data pointer
	Putc    uint32 // function index of putc
	Getc    uint32 // function index of getc
}

// DefaultLayout matches the module built by the assembler: putc and getc
// are the first two imported functions and the pointer is local 0.
var DefaultLayout = Layout{Pointer: 0, Putc: 0, Getc: 1}

// byte-wide accesses, align 2^0
var mem8 = wasm.MemoryImm{Align: 0, Offset: 0}

// work is a pending item: either a node list to continue or the closing
// instructions of a loop.
type work struct {
	nodes []ast.Node
	next  int
	close bool
}

type Generator struct {
	layout Layout
	out    []wasm.Instruction
}

func New(layout Layout) *Generator {
	return &Generator{layout: layout}
}

// Generate lowers a program tree with the default layout.
func Generate(nodes []ast.Node) ([]wasm.Instruction, error) {
	return New(DefaultLayout).Generate(nodes)
}

// Generate lowers nodes to a flat instruction sequence without the
// function's final end. Loops are expanded with an explicit work stack so
// nesting depth is bounded only by memory.
func (g *Generator) Generate(nodes []ast.Node) ([]wasm.Instruction, error) {
	g.out = make([]wasm.Instruction, 0, len(nodes)*4)
	stack := []work{{nodes: nodes}}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]

		if top.close {
			g.loopExit()
			stack = stack[:len(stack)-1]
			continue
		}
		if top.next >= len(top.nodes) {
			stack = stack[:len(stack)-1]
			continue
		}

		n := top.nodes[top.next]
		top.next++

		switch n := n.(type) {
		case ast.MovePointer:
			g.movePointer(n.Delta)
		case ast.AdjustCell:
			g.adjustCell(n.Delta)
		case ast.Output:
			g.output()
		case ast.Input:
			g.input()
		case *ast.Loop:
			g.loopEnter()
			// top is invalidated by append
			stack = append(stack, work{close: true}, work{nodes: n.Body})
		default:
			return nil, errors.Internal(errors.PhaseCodegen, "unknown node type %T", n)
		}
	}

	return g.out, nil
}

func (g *Generator) emit(instrs ...wasm.Instruction) {
	g.out = append(g.out, instrs...)
}

func (g *Generator) localGet() wasm.Instruction {
	return wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: g.layout.Pointer}}
}

func i32Const(v int32) wasm.Instruction {
	return wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: v}}
}

func call(idx uint32) wasm.Instruction {
	return wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: idx}}
}

func (g *Generator) movePointer(delta int32) {
	g.emit(
		g.localGet(),
		i32Const(delta),
		wasm.Instruction{Opcode: wasm.OpI32Add},
		wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: g.layout.Pointer}},
	)
}

// adjustCell relies on store8 truncating the sum to its low byte.
func (g *Generator) adjustCell(delta int32) {
	g.emit(
		g.localGet(),
		g.localGet(),
		wasm.Instruction{Opcode: wasm.OpI32Load8U, Imm: mem8},
		i32Const(delta),
		wasm.Instruction{Opcode: wasm.OpI32Add},
		wasm.Instruction{Opcode: wasm.OpI32Store8, Imm: mem8},
	)
}

func (g *Generator) output() {
	g.emit(
		g.localGet(),
		wasm.Instruction{Opcode: wasm.OpI32Load8U, Imm: mem8},
		call(g.layout.Putc),
	)
}

func (g *Generator) input() {
	g.emit(
		g.localGet(),
		call(g.layout.Getc),
		wasm.Instruction{Opcode: wasm.OpI32Store8, Imm: mem8},
	)
}

func (g *Generator) loopEnter() {
	g.emit(
		wasm.Instruction{Opcode: wasm.OpBlock, Imm: wasm.BlockImm{Type: wasm.BlockTypeVoid}},
		wasm.Instruction{Opcode: wasm.OpLoop, Imm: wasm.BlockImm{Type: wasm.BlockTypeVoid}},
		g.localGet(),
		wasm.Instruction{Opcode: wasm.OpI32Load8U, Imm: mem8},
		wasm.Instruction{Opcode: wasm.OpI32Eqz},
		wasm.Instruction{Opcode: wasm.OpBrIf, Imm: wasm.BranchImm{LabelIdx: 1}},
	)
}

func (g *Generator) loopExit() {
	g.emit(
		wasm.Instruction{Opcode: wasm.OpBr, Imm: wasm.BranchImm{LabelIdx: 0}},
		wasm.Instruction{Opcode: wasm.OpEnd},
		wasm.Instruction{Opcode: wasm.OpEnd},
	)
}
