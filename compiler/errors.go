package compiler

import (
	"fmt"

	"opal/ast"
)

// SemanticError is a "semantic error surfaced from the frontend" (spec §7
// kind 2): an empty target_defs list, an unresolved constant, a redefined
// local — something the frontend should have already rejected.
type SemanticError struct {
	Message string
	At      ast.Pos
}

func (e SemanticError) Error() string {
	return fmt.Sprintf("💥 SemanticError at %d:%d: %s", e.At.Line, e.At.Column, e.Message)
}

// DeveloperError is a "compiler bug" (spec §7 kind 1): a node variant the
// visitor cannot handle, an unimplemented primitive, a rejected closure, a
// splat inside yield — any case the pass itself should never reach for
// well-typed input.
type DeveloperError struct {
	Message string
	At      ast.Pos
}

func (e DeveloperError) Error() string {
	return fmt.Sprintf("🤖 DeveloperError at %d:%d: %s", e.At.Line, e.At.Column, e.Message)
}

func bug(at ast.Pos, format string, args ...any) {
	panic(DeveloperError{Message: fmt.Sprintf(format, args...), At: at})
}

func semanticErr(at ast.Pos, format string, args ...any) {
	panic(SemanticError{Message: fmt.Sprintf(format, args...), At: at})
}
