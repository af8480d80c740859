// Package errors provides structured error types for the compiler and its host.
//
// Errors are categorized by Phase (which pipeline stage failed) and Kind (error
// category). The Error type carries a source position for parse failures, a
// location path for decode failures, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseParse, errors.KindUnmatchedBracket).
//		At(errors.Position{Offset: 4, Line: 1, Column: 5}).
//		Detail("'[' is never closed").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.UnmatchedBracket(pos, ']')
//	err := errors.Internal(errors.PhaseCodegen, "unknown node %T", n)
//
// All errors implement the standard error interface and support errors.Is/As.
// errors.Is matches on Phase and Kind, so the exported sentinels work as targets:
//
//	if errors.Is(err, errors.ErrUnmatchedBracket) { ... }
package errors
