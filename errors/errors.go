package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseParse    Phase = "parse"    // bracket matching
	PhaseCodegen  Phase = "codegen"  // IR to instructions
	PhaseAssemble Phase = "assemble" // module construction and validation
	PhaseEmit     Phase = "emit"     // serialization and output
	PhaseDecode   Phase = "decode"   // WASM binary to module
	PhaseLoad     Phase = "load"     // host contract checks
	PhaseRuntime  Phase = "runtime"  // execution by the host
)

// Kind categorizes the error
type Kind string

const (
	KindUnmatchedBracket Kind = "unmatched_bracket"
	KindInternal         Kind = "internal"
	KindInvalidData      Kind = "invalid_data"
	KindInvalidInput     Kind = "invalid_input"
	KindOutOfBounds      Kind = "out_of_bounds"
	KindContract         Kind = "contract"
	KindInstantiation    Kind = "instantiation"
	KindTrap             Kind = "trap"
	KindCanceled         Kind = "canceled"
	KindIO               Kind = "io"
)

// Position locates an error in Brainfuck source.
type Position struct {
	Offset int // byte offset, 0-based
	Line   int // 1-based
	Column int // 1-based
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d (offset %d)", p.Line, p.Column, p.Offset)
}

// Error is the structured error type used throughout the compiler and host
type Error struct {
	Value  any
	Cause  error
	Pos    *Position
	Phase  Phase
	Kind   Kind
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Pos != nil {
		b.WriteString(" at ")
		b.WriteString(e.Pos.String())
	} else if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// At sets the source position
func (b *Builder) At(pos Position) *Builder {
	b.err.Pos = &pos
	return b
}

// Path sets the location inside a module, e.g. "code", "0", "instr 12"
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// UnmatchedBracket creates the parse error for an unbalanced '[' or ']'
func UnmatchedBracket(pos Position, bracket byte) *Error {
	detail := "unexpected ']' with no open loop"
	if bracket == '[' {
		detail = "'[' is never closed"
	}
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindUnmatchedBracket,
		Pos:    &pos,
		Detail: detail,
		Value:  bracket,
	}
}

// Internal creates an error for a broken compiler invariant.
// These indicate a defect in the compiler, never a problem with the input.
func Internal(phase Phase, detail string, args ...any) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInternal,
		Detail: fmt.Sprintf(detail, args...),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, path []string, index, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Path:   path,
		Detail: fmt.Sprintf("index %d out of bounds (length %d)", index, length),
		Value:  index,
	}
}

// Contract creates an error for a module the host cannot satisfy
func Contract(detail string, args ...any) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindContract,
		Detail: fmt.Sprintf(detail, args...),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// IO creates an error for a failed read or write on a caller-supplied stream
func IO(phase Phase, op string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindIO,
		Detail: op,
		Cause:  cause,
	}
}

// Instantiation creates an instantiation error
func Instantiation(what string, cause error) *Error {
	return &Error{
		Phase:  PhaseRuntime,
		Kind:   KindInstantiation,
		Detail: "instantiate " + what,
		Cause:  cause,
	}
}

// Trap creates an error for an abrupt termination of guest execution
func Trap(cause error) *Error {
	return &Error{
		Phase:  PhaseRuntime,
		Kind:   KindTrap,
		Detail: "program trapped",
		Cause:  cause,
	}
}

// Canceled creates an error for execution stopped by its context
func Canceled(cause error) *Error {
	return &Error{
		Phase:  PhaseRuntime,
		Kind:   KindCanceled,
		Detail: "execution canceled",
		Cause:  cause,
	}
}

// Sentinels for errors.Is matching on Phase and Kind.
var (
	ErrUnmatchedBracket = &Error{Phase: PhaseParse, Kind: KindUnmatchedBracket}
	ErrAssembly         = &Error{Phase: PhaseAssemble, Kind: KindInternal}
	ErrContract         = &Error{Phase: PhaseLoad, Kind: KindContract}
	ErrTrap             = &Error{Phase: PhaseRuntime, Kind: KindTrap}
	ErrCanceled         = &Error{Phase: PhaseRuntime, Kind: KindCanceled}
)
