// compile.go is the package's public entry point: given a fully
// type-resolved FileNode, lower it and every def/block it transitively
// reaches, then freeze the session's Context tables into one Bytecode.
// Grounded on the teacher's ASTCompiler.Compile/New two-step shape
// (construct, then run), generalized to the multi-table session this
// core's component split requires.
package compiler

import (
	"opal/ast"
	"opal/rt"
)

// CompileFile lowers file's top-level body as a synthetic Def returning the
// body's final value (spec §4.7 "FileNode") and returns the complete Bytecode: its own
// instruction stream plus every constant, def, block, string, symbol and
// FFI descriptor the session accumulated along the way.
func CompileFile(ctx *Context, file ast.FileNode) *Bytecode {
	top := ast.NewDef("<file>", nil, nil, nil, file.Body, false, file.Body.Type(), file.Position())
	compiled := lowerDef(ctx, top, nil)

	return &Bytecode{
		Instructions:  compiled.Code,
		NameConstants: constantNames(ctx.Constants),
		Strings:       internedStrings(ctx.Strings),
		Symbols:       ctx.Symbols.Names(),
		Defs:          ctx.Defs.All(),
		LibFuncs:      ctx.LibFuncs.All(),
		NodeMap:       nodeMapFor(compiled.NodeMap),
	}
}

func constantNames(t *SlotTable) []string {
	names := make([]string, t.Len())
	for name, idx := range t.index {
		names[idx] = name
	}
	return names
}

func internedStrings(pool *rt.StringPool) []string {
	out := make([]string, pool.Len())
	for i := range out {
		out[i] = pool.Get(i)
	}
	return out
}

func nodeMapFor(m map[int]NodeRef) map[int]NodeRef {
	if m == nil {
		return map[int]NodeRef{}
	}
	return m
}
