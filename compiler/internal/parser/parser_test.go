package parser

import (
	stderrors "errors"
	"strings"
	"testing"

	"github.com/wippyai/bf2wasm/compiler/internal/ast"
	"github.com/wippyai/bf2wasm/compiler/internal/token"
	"github.com/wippyai/bf2wasm/errors"
)

func parse(t *testing.T, src string) *ast.Program {
	t.Helper()
	prog, err := Parse(token.Tokenize([]byte(src)))
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	return prog
}

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"empty", "", ""},
		{"comments", "no commands here", ""},
		{"move", ">>>", "p+3"},
		{"move back", "<<", "p-2"},
		{"adjust", "+++--", "c+1"},
		{"cancel move", "><<>", ""},
		{"cancel adjust", "+-", "c+0"},
		{"cancel adjust then move", "+--+><", "c+0"},
		{"mixed runs", ">>++<-", "p+2 c+2 p-1 c-1"},
		{"io breaks runs", "+.+,+", "c+1 . c+1 , c+1"},
		{"loop", "+++[>+<-]", "c+3 [ p+1 c+1 p-1 c-1 ]"},
		{"empty loop", "[]", "[]"},
		{"nested", "[[]]", "[ [] ]"},
		{"bracket breaks runs", "+[+]+", "c+1 [ c+1 ] c+1"},
		{"comments inside run", "+ a + b +", "c+3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog := parse(t, tt.src)
			if got := ast.Format(prog.Body); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func countLoops(nodes []ast.Node) int {
	n := 0
	stack := [][]ast.Node{nodes}
	for len(stack) > 0 {
		body := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, node := range body {
			if l, ok := node.(*ast.Loop); ok {
				n++
				stack = append(stack, l.Body)
			}
		}
	}
	return n
}

func TestLoopCountMatchesOpenBrackets(t *testing.T) {
	sources := []string{
		"",
		"[]",
		"[[][]]",
		"++[>++[>+<-]<-]>>.",
		"[-]>[-]<[[[[.]]]]",
		"++++++++[>++++[>++>+++>+++>+<<<<-]>+>+>->>+[<]<-]>>.>---.+++++++..+++.>>.<-.<.+++.------.--------.>>+.>++.",
	}

	for _, src := range sources {
		prog := parse(t, src)
		want := strings.Count(src, "[")
		if got := countLoops(prog.Body); got != want {
			t.Errorf("%q: got %d loops, want %d", src, got, want)
		}
		if prog.Stats.Loops != want {
			t.Errorf("%q: stats report %d loops, want %d", src, prog.Stats.Loops, want)
		}
	}
}

func TestStats(t *testing.T) {
	prog := parse(t, "+[>[-]<]x.")
	want := ast.Stats{Commands: 9, Nodes: 7, Loops: 2, MaxDepth: 2}
	if prog.Stats != want {
		t.Errorf("got %+v, want %+v", prog.Stats, want)
	}
}

func TestUnmatchedBracket(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		detail string
		pos    errors.Position
	}{
		{"lone close", "]", "unexpected ']'", errors.Position{Offset: 0, Line: 1, Column: 1}},
		{"extra close", "+[]]", "unexpected ']'", errors.Position{Offset: 3, Line: 1, Column: 4}},
		{"lone open", "[", "never closed", errors.Position{Offset: 0, Line: 1, Column: 1}},
		{"innermost open", "[\n [+]\n [", "never closed", errors.Position{Offset: 8, Line: 3, Column: 2}},
		{"nested open", "[[]", "never closed", errors.Position{Offset: 0, Line: 1, Column: 1}},
		{"close before open", "][", "unexpected ']'", errors.Position{Offset: 0, Line: 1, Column: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog, err := Parse(token.Tokenize([]byte(tt.src)))
			if err == nil {
				t.Fatalf("expected error, got program %q", ast.Format(prog.Body))
			}
			if !stderrors.Is(err, errors.ErrUnmatchedBracket) {
				t.Fatalf("got %v, want unmatched bracket", err)
			}
			var e *errors.Error
			if !stderrors.As(err, &e) || e.Pos == nil {
				t.Fatalf("error carries no position: %v", err)
			}
			if *e.Pos != tt.pos {
				t.Errorf("position: got %v, want %v", *e.Pos, tt.pos)
			}
			if !strings.Contains(err.Error(), tt.detail) {
				t.Errorf("error %q does not contain %q", err, tt.detail)
			}
		})
	}
}

func TestDeepNesting(t *testing.T) {
	const depth = 100000
	src := strings.Repeat("[", depth) + "+" + strings.Repeat("]", depth)
	prog := parse(t, src)
	if prog.Stats.MaxDepth != depth || prog.Stats.Loops != depth {
		t.Errorf("got %+v", prog.Stats)
	}
}
