package wasm

import "fmt"

// Validate checks the module for structural validity and type-checks
// every function body.
func (m *Module) Validate() error {
	if err := m.validateTypeIndices(); err != nil {
		return err
	}
	if err := m.validateMemories(); err != nil {
		return err
	}
	if err := m.validateExports(); err != nil {
		return err
	}
	if err := m.validateCodeCount(); err != nil {
		return err
	}
	for i := range m.Code {
		funcIdx := uint32(m.NumImportedFuncs() + i)
		if err := m.validateBody(funcIdx, &m.Code[i]); err != nil {
			return fmt.Errorf("function %d: %w", funcIdx, err)
		}
	}
	return nil
}

// ParseModuleValidate parses a WebAssembly binary and validates it.
func ParseModuleValidate(data []byte) (*Module, error) {
	m, err := ParseModule(data)
	if err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Module) validateTypeIndices() error {
	numTypes := uint32(len(m.Types))

	for i, typeIdx := range m.Funcs {
		if typeIdx >= numTypes {
			return fmt.Errorf("function %d references invalid type index %d", i, typeIdx)
		}
	}

	for i, imp := range m.Imports {
		if imp.Desc.Kind == KindFunc && imp.Desc.TypeIdx >= numTypes {
			return fmt.Errorf("import %d (%s.%s) references invalid type index %d", i, imp.Module, imp.Name, imp.Desc.TypeIdx)
		}
	}

	return nil
}

func (m *Module) validateMemories() error {
	total := m.NumImportedMemories() + len(m.Memories)
	if total > 1 {
		return fmt.Errorf("multiple memories not supported (%d declared)", total)
	}

	check := func(what string, l Limits) error {
		if l.Min > MemoryMaxPages32 {
			return fmt.Errorf("%s min %d exceeds %d pages", what, l.Min, MemoryMaxPages32)
		}
		if l.Max != nil {
			if *l.Max > MemoryMaxPages32 {
				return fmt.Errorf("%s max %d exceeds %d pages", what, *l.Max, MemoryMaxPages32)
			}
			if l.Min > *l.Max {
				return fmt.Errorf("%s min %d exceeds max %d", what, l.Min, *l.Max)
			}
		}
		return nil
	}

	for _, imp := range m.Imports {
		if imp.Desc.Kind != KindMemory {
			continue
		}
		if imp.Desc.Memory == nil {
			return fmt.Errorf("memory import %s.%s has no limits", imp.Module, imp.Name)
		}
		if err := check(fmt.Sprintf("memory import %s.%s", imp.Module, imp.Name), imp.Desc.Memory.Limits); err != nil {
			return err
		}
	}
	for i, mem := range m.Memories {
		if err := check(fmt.Sprintf("memory %d", i), mem.Limits); err != nil {
			return err
		}
	}
	return nil
}

func (m *Module) validateExports() error {
	numFuncs := uint32(m.NumImportedFuncs() + len(m.Funcs))
	numMems := uint32(m.NumImportedMemories() + len(m.Memories))

	seen := make(map[string]bool, len(m.Exports))
	for i, exp := range m.Exports {
		if seen[exp.Name] {
			return fmt.Errorf("duplicate export name %q", exp.Name)
		}
		seen[exp.Name] = true

		switch exp.Kind {
		case KindFunc:
			if exp.Idx >= numFuncs {
				return fmt.Errorf("export %d (%s) references invalid function index %d", i, exp.Name, exp.Idx)
			}
		case KindMemory:
			if exp.Idx >= numMems {
				return fmt.Errorf("export %d (%s) references invalid memory index %d", i, exp.Name, exp.Idx)
			}
		default:
			return fmt.Errorf("export %d (%s) has unsupported kind %d", i, exp.Name, exp.Kind)
		}
	}
	return nil
}

func (m *Module) validateCodeCount() error {
	if len(m.Funcs) != len(m.Code) {
		return fmt.Errorf("function count %d does not match code count %d", len(m.Funcs), len(m.Code))
	}
	return nil
}

// valUnknown is the polymorphic operand produced after an unconditional branch.
const valUnknown ValType = 0

type ctrlFrame struct {
	results     []ValType
	height      int
	opcode      byte
	unreachable bool
}

// labelTypes returns the operands a branch to this frame carries.
func (f *ctrlFrame) labelTypes() []ValType {
	if f.opcode == OpLoop {
		return nil
	}
	return f.results
}

type bodyChecker struct {
	locals []ValType
	vals   []ValType
	ctrls  []ctrlFrame
	m      *Module
	hasMem bool
}

func (c *bodyChecker) push(t ValType) {
	c.vals = append(c.vals, t)
}

func (c *bodyChecker) pop() (ValType, error) {
	f := &c.ctrls[len(c.ctrls)-1]
	if len(c.vals) == f.height {
		if f.unreachable {
			return valUnknown, nil
		}
		return 0, fmt.Errorf("operand stack underflow")
	}
	t := c.vals[len(c.vals)-1]
	c.vals = c.vals[:len(c.vals)-1]
	return t, nil
}

func (c *bodyChecker) popExpect(want ValType) error {
	got, err := c.pop()
	if err != nil {
		return err
	}
	if got != valUnknown && got != want {
		return fmt.Errorf("type mismatch: expected %s, got %s", want, got)
	}
	return nil
}

func (c *bodyChecker) popAll(types []ValType) error {
	for i := len(types) - 1; i >= 0; i-- {
		if err := c.popExpect(types[i]); err != nil {
			return err
		}
	}
	return nil
}

func (c *bodyChecker) setUnreachable() {
	f := &c.ctrls[len(c.ctrls)-1]
	c.vals = c.vals[:f.height]
	f.unreachable = true
}

func (c *bodyChecker) label(depth uint32) (*ctrlFrame, error) {
	if int(depth) >= len(c.ctrls) {
		return nil, fmt.Errorf("branch depth %d exceeds nesting %d", depth, len(c.ctrls)-1)
	}
	return &c.ctrls[len(c.ctrls)-1-int(depth)], nil
}

func blockResults(bt int32) ([]ValType, error) {
	switch bt {
	case BlockTypeVoid:
		return nil, nil
	case BlockTypeI32:
		return []ValType{ValI32}, nil
	}
	return nil, fmt.Errorf("unsupported block type %d", bt)
}

func (m *Module) validateBody(funcIdx uint32, body *FuncBody) error {
	ft := m.GetFuncType(funcIdx)
	if ft == nil {
		return fmt.Errorf("missing function type")
	}

	var numLocals uint64
	for _, l := range body.Locals {
		numLocals += uint64(l.Count)
	}
	if numLocals > MaxLocals {
		return fmt.Errorf("%d locals exceeds limit %d", numLocals, MaxLocals)
	}

	instrs, err := DecodeInstructions(body.Code)
	if err != nil {
		return err
	}

	c := &bodyChecker{
		m:      m,
		locals: body.LocalTypes(ft),
		hasMem: m.NumImportedMemories()+len(m.Memories) > 0,
		ctrls:  []ctrlFrame{{opcode: OpBlock, results: ft.Results}},
	}

	for pc, instr := range instrs {
		if len(c.ctrls) == 0 {
			return fmt.Errorf("instruction %d (%s) after final end", pc, OpcodeName(instr.Opcode))
		}
		if err := c.step(instr); err != nil {
			return fmt.Errorf("instruction %d (%s): %w", pc, instr, err)
		}
	}

	if len(c.ctrls) != 0 {
		return fmt.Errorf("function body ends with %d unclosed block(s)", len(c.ctrls))
	}
	return nil
}

func (c *bodyChecker) step(instr Instruction) error {
	switch instr.Opcode {
	case OpUnreachable:
		c.setUnreachable()

	case OpNop:

	case OpBlock, OpLoop:
		results, err := blockResults(instr.Imm.(BlockImm).Type)
		if err != nil {
			return err
		}
		c.ctrls = append(c.ctrls, ctrlFrame{opcode: instr.Opcode, results: results, height: len(c.vals)})

	case OpEnd:
		f := c.ctrls[len(c.ctrls)-1]
		if err := c.popAll(f.results); err != nil {
			return err
		}
		if len(c.vals) != f.height {
			return fmt.Errorf("%d unexpected value(s) left on stack at end of block", len(c.vals)-f.height)
		}
		c.ctrls = c.ctrls[:len(c.ctrls)-1]
		for _, t := range f.results {
			c.push(t)
		}

	case OpBr:
		f, err := c.label(instr.Imm.(BranchImm).LabelIdx)
		if err != nil {
			return err
		}
		if err := c.popAll(f.labelTypes()); err != nil {
			return err
		}
		c.setUnreachable()

	case OpBrIf:
		f, err := c.label(instr.Imm.(BranchImm).LabelIdx)
		if err != nil {
			return err
		}
		if err := c.popExpect(ValI32); err != nil {
			return err
		}
		types := f.labelTypes()
		if err := c.popAll(types); err != nil {
			return err
		}
		for _, t := range types {
			c.push(t)
		}

	case OpReturn:
		if err := c.popAll(c.ctrls[0].results); err != nil {
			return err
		}
		c.setUnreachable()

	case OpCall:
		idx, _ := instr.GetCallTarget()
		ft := c.m.GetFuncType(idx)
		if ft == nil {
			return fmt.Errorf("call to undefined function %d", idx)
		}
		if err := c.popAll(ft.Params); err != nil {
			return err
		}
		for _, t := range ft.Results {
			c.push(t)
		}

	case OpDrop:
		if _, err := c.pop(); err != nil {
			return err
		}

	case OpLocalGet, OpLocalSet, OpLocalTee:
		idx := instr.Imm.(LocalImm).LocalIdx
		if int(idx) >= len(c.locals) {
			return fmt.Errorf("local index %d out of range (%d locals)", idx, len(c.locals))
		}
		t := c.locals[idx]
		switch instr.Opcode {
		case OpLocalGet:
			c.push(t)
		case OpLocalSet:
			return c.popExpect(t)
		case OpLocalTee:
			if err := c.popExpect(t); err != nil {
				return err
			}
			c.push(t)
		}

	case OpI32Load, OpI32Load8U:
		if err := c.checkMemArg(instr); err != nil {
			return err
		}
		if err := c.popExpect(ValI32); err != nil {
			return err
		}
		c.push(ValI32)

	case OpI32Store, OpI32Store8:
		if err := c.checkMemArg(instr); err != nil {
			return err
		}
		return c.popAll([]ValType{ValI32, ValI32})

	case OpI32Const:
		c.push(ValI32)

	case OpI32Eqz:
		if err := c.popExpect(ValI32); err != nil {
			return err
		}
		c.push(ValI32)

	case OpI32Eq, OpI32Ne, OpI32Add, OpI32Sub, OpI32And:
		if err := c.popAll([]ValType{ValI32, ValI32}); err != nil {
			return err
		}
		c.push(ValI32)

	default:
		return fmt.Errorf("unsupported opcode 0x%02x", instr.Opcode)
	}
	return nil
}

func (c *bodyChecker) checkMemArg(instr Instruction) error {
	if !c.hasMem {
		return fmt.Errorf("memory access without a memory")
	}
	imm := instr.Imm.(MemoryImm)
	if imm.Align > naturalAlign(instr.Opcode) {
		return fmt.Errorf("alignment 2^%d exceeds natural alignment", imm.Align)
	}
	return nil
}
