package token

import "github.com/wippyai/bf2wasm/errors"

// Command is one of the eight Brainfuck commands.
type Command byte

const (
	Right Command = '>'
	Left  Command = '<'
	Inc   Command = '+'
	Dec   Command = '-'
	Out   Command = '.'
	In    Command = ','
	Open  Command = '['
	Close Command = ']'
)

func (c Command) String() string {
	return string(rune(c))
}

// IsCommand reports whether b is one of the eight commands.
func IsCommand(b byte) bool {
	switch Command(b) {
	case Right, Left, Inc, Dec, Out, In, Open, Close:
		return true
	}
	return false
}

type Token struct {
	Pos errors.Position
	Cmd Command
}

// Tokenize returns the commands in src in order. All other bytes are
// comments and are dropped. Lines and columns are counted in bytes.
func Tokenize(src []byte) []Token {
	var tokens []Token
	line, col := 1, 1

	for i, b := range src {
		if IsCommand(b) {
			tokens = append(tokens, Token{
				Cmd: Command(b),
				Pos: errors.Position{Offset: i, Line: line, Column: col},
			})
		}
		if b == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}

	return tokens
}
