package parser

import (
	"math"

	"github.com/wippyai/bf2wasm/compiler/internal/ast"
	"github.com/wippyai/bf2wasm/compiler/internal/token"
	"github.com/wippyai/bf2wasm/errors"
)

// frame is an open loop body. The root frame has no opening token.
type frame struct {
	open *token.Token
	loop *ast.Loop
	body []ast.Node
}

type Parser struct {
	tokens []token.Token
	frames []frame
	stats  ast.Stats

	// pending run of '>'/'<' or '+'/'-'
	runCmd   token.Command
	runDelta int32
}

func New(tokens []token.Token) *Parser {
	return &Parser{tokens: tokens}
}

// Parse matches brackets and folds runs into a program tree.
func Parse(tokens []token.Token) (*ast.Program, error) {
	return New(tokens).Parse()
}

func (p *Parser) Parse() (*ast.Program, error) {
	p.frames = []frame{{}}
	p.stats = ast.Stats{Commands: len(p.tokens)}

	for i := range p.tokens {
		tok := &p.tokens[i]

		switch tok.Cmd {
		case token.Right, token.Left, token.Inc, token.Dec:
			p.accumulate(tok.Cmd)

		case token.Out:
			p.flush()
			p.emit(ast.Output{})

		case token.In:
			p.flush()
			p.emit(ast.Input{})

		case token.Open:
			p.flush()
			p.frames = append(p.frames, frame{open: tok, loop: &ast.Loop{}})
			if depth := len(p.frames) - 1; depth > p.stats.MaxDepth {
				p.stats.MaxDepth = depth
			}

		case token.Close:
			if len(p.frames) == 1 {
				return nil, errors.UnmatchedBracket(tok.Pos, byte(token.Close))
			}
			p.flush()
			top := p.frames[len(p.frames)-1]
			p.frames = p.frames[:len(p.frames)-1]
			top.loop.Body = top.body
			p.stats.Loops++
			p.emit(top.loop)
		}
	}
	p.flush()

	if len(p.frames) > 1 {
		innermost := p.frames[len(p.frames)-1].open
		return nil, errors.UnmatchedBracket(innermost.Pos, byte(token.Open))
	}

	return &ast.Program{Body: p.frames[0].body, Stats: p.stats}, nil
}

func (p *Parser) emit(n ast.Node) {
	top := &p.frames[len(p.frames)-1]
	top.body = append(top.body, n)
	p.stats.Nodes++
}

func sameRun(a, b token.Command) bool {
	switch a {
	case token.Right, token.Left:
		return b == token.Right || b == token.Left
	case token.Inc, token.Dec:
		return b == token.Inc || b == token.Dec
	}
	return false
}

func (p *Parser) accumulate(cmd token.Command) {
	if p.runCmd != 0 && !sameRun(p.runCmd, cmd) {
		p.flush()
	}

	step := int32(1)
	if cmd == token.Left || cmd == token.Dec {
		step = -1
	}
	// Split runs that would overflow the i32 immediate.
	if (step > 0 && p.runDelta == math.MaxInt32) || (step < 0 && p.runDelta == math.MinInt32) {
		p.flush()
	}

	p.runCmd = cmd
	p.runDelta += step
}

func (p *Parser) flush() {
	cmd, delta := p.runCmd, p.runDelta
	p.runCmd, p.runDelta = 0, 0

	switch cmd {
	case token.Right, token.Left:
		if delta != 0 {
			p.emit(ast.MovePointer{Delta: delta})
		}
	case token.Inc, token.Dec:
		// A net-zero adjust still touches the cell, so an out-of-range
		// pointer faults exactly where the unfolded commands would.
		p.emit(ast.AdjustCell{Delta: delta})
	}
}
