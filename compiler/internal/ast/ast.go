package ast

import (
	"strconv"
	"strings"
)

// Node is one instruction of the program tree. The set of node types is
// closed: MovePointer, AdjustCell, Output, Input and Loop.
type Node interface {
	node()
}

// MovePointer adds Delta to the data pointer.
type MovePointer struct {
	Delta int32
}

// AdjustCell adds Delta to the current cell, wrapping modulo 256.
type AdjustCell struct {
	Delta int32
}

// Output writes the current cell.
type Output struct{}

// Input reads one byte into the current cell.
type Input struct{}

// Loop repeats Body while the current cell is non-zero, testing before
// each iteration.
type Loop struct {
	Body []Node
}

func (MovePointer) node() {}
func (AdjustCell) node()  {}
func (Output) node()      {}
func (Input) node()       {}
func (*Loop) node()       {}

// Program is the root of a parsed program.
type Program struct {
	Body  []Node
	Stats Stats
}

// Stats summarizes a parsed program.
type Stats struct {
	Commands int // commands in the source, before folding
	Nodes    int // nodes in the tree, loops included
	Loops    int
	MaxDepth int
}

// Format renders nodes in a compact form used by tests and debug logs:
// "p+2 c-1 . , [ ... ]".
func Format(nodes []Node) string {
	var sb strings.Builder
	format(&sb, nodes)
	return sb.String()
}

// Nodes formats lazily, for log fields.
type Nodes []Node

func (n Nodes) String() string {
	return Format(n)
}

func format(sb *strings.Builder, nodes []Node) {
	for i, n := range nodes {
		if i > 0 {
			sb.WriteByte(' ')
		}
		switch n := n.(type) {
		case MovePointer:
			sb.WriteString("p" + signed(n.Delta))
		case AdjustCell:
			sb.WriteString("c" + signed(n.Delta))
		case Output:
			sb.WriteByte('.')
		case Input:
			sb.WriteByte(',')
		case *Loop:
			sb.WriteByte('[')
			if len(n.Body) > 0 {
				sb.WriteByte(' ')
				format(sb, n.Body)
				sb.WriteByte(' ')
			}
			sb.WriteByte(']')
		default:
			sb.WriteByte('?')
		}
	}
}

func signed(v int32) string {
	if v >= 0 {
		return "+" + strconv.Itoa(int(v))
	}
	return strconv.Itoa(int(v))
}
