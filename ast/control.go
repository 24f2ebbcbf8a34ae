// control.go holds the AST variants that drive control flow: branches,
// loops, non-local exits, calls, blocks and defs.
package ast

import "opal/types"

// If is a conditional expression. StaticCond is filled in by constfold
// (spec §4.7's "compile-time-known truthy/falsy" elision rule, property P8)
// — nil when the frontend cannot prove a constant value.
type If struct {
	base
	Cond       Node
	Then       Node
	Else       Node
	StaticCond *bool
}

func NewIf(cond, then, els Node, t *types.Type, pos Pos) If {
	return If{NewBase(t, pos), cond, then, els, nil}
}

// While is a pretest loop; its value is always Nil unless a Break inside
// carries a value, merged per spec §9 merge-block-break-type.
type While struct {
	base
	Cond Node
	Body Node
}

func NewWhile(cond, body Node, t *types.Type, pos Pos) While {
	return While{NewBase(t, pos), cond, body}
}

// Return exits the enclosing Def (or, if lowered inside a block, the Def the
// block was inlined into) with Value.
type Return struct {
	base
	Value Node
}

func NewReturn(value Node, pos Pos) Return {
	return Return{NewBase(types.NoReturn, pos), value}
}

// Break exits the innermost enclosing While or Block with Value.
type Break struct {
	base
	Value Node
}

func NewBreak(value Node, pos Pos) Break {
	return Break{NewBase(types.NoReturn, pos), value}
}

// Next skips to the next iteration of the innermost enclosing While, or
// returns Value from the innermost enclosing Block back to its yield site.
type Next struct {
	base
	Value Node
}

func NewNext(value Node, pos Pos) Next {
	return Next{NewBase(types.NoReturn, pos), value}
}

// Yield invokes the current def's block with Args.
type Yield struct {
	base
	Args []Node
}

func NewYield(args []Node, t *types.Type, pos Pos) Yield {
	return Yield{NewBase(t, pos), args}
}

// NamedArg pairs a call's keyword argument name with its value expression.
type NamedArg struct {
	Name  string
	Value Node
}

// Call is the densest node kind (spec §4.7): a method call with a resolved
// receiver, positional/named arguments, an optional trailing Block, and the
// non-empty, most-specific-first candidate list the frontend resolved.
type Call struct {
	base
	Receiver    Node // nil for implicit self / top-level calls
	Name        string
	Args        []Node
	NamedArgs   []NamedArg
	Block       *Block
	TargetDefs  []*Def
	IsFFI       bool
	IsPrimitive bool
	PrimitiveOp string
}

func NewCall(receiver Node, name string, args []Node, named []NamedArg, block *Block, targets []*Def, t *types.Type, pos Pos) Call {
	return Call{NewBase(t, pos), receiver, name, args, named, block, targets, false, false, ""}
}

// BlockArg is a single declared parameter of a Block.
type BlockArg struct {
	Name string
	Type *types.Type
}

// Block is an anonymous callable passed to a Call, invoked via Yield and
// inlined into the caller rather than compiled standalone (spec GLOSSARY).
type Block struct {
	base
	Args      []BlockArg
	Vars      map[string]*types.Type
	Body      Node
	BreakType *types.Type // nil when the block body contains no `break`
}

func NewBlock(args []BlockArg, vars map[string]*types.Type, body Node, breakType, t *types.Type, pos Pos) *Block {
	return &Block{NewBase(t, pos), args, vars, body, breakType}
}

// Param is a single declared parameter of a Def.
type Param struct {
	Name string
	Type *types.Type
}

// Def is a method/function definition: parameter list, the var table the
// frontend resolved for its locals, its owner type (nil for top-level defs),
// and whether it accepts a trailing block.
type Def struct {
	base
	Name       string
	Owner      *types.Type
	Params     []Param
	Vars       map[string]*types.Type
	Body       Node
	TakesBlock bool
	IsPrimitive bool
	PrimitiveOp string
}

func NewDef(name string, owner *types.Type, params []Param, vars map[string]*types.Type, body Node, takesBlock bool, t *types.Type, pos Pos) *Def {
	return &Def{NewBase(t, pos), name, owner, params, vars, body, takesBlock, false, ""}
}

// Expressions is a sequence of nodes; only the last one's value is observable
// when the sequence itself is used as a value.
type Expressions struct {
	base
	Nodes []Node
}

func NewExpressions(nodes []Node, pos Pos) Expressions {
	t := types.NilType
	if len(nodes) > 0 {
		t = nodes[len(nodes)-1].Type()
	}
	return Expressions{NewBase(t, pos), nodes}
}

// ExceptionHandler lowers only its Body-then-Ensure path (spec §4.7, §9 Open
// Question — rescue/else are unimplemented and Rescues must stay empty).
type ExceptionHandler struct {
	base
	Body    Node
	Ensure  Node
	Rescues []Node
}

func NewExceptionHandler(body, ensure Node, t *types.Type, pos Pos) ExceptionHandler {
	return ExceptionHandler{NewBase(t, pos), body, ensure, nil}
}

// FileNode wraps a file's top-level body, which compiler.CompileFile lowers
// as a synthetic Def returning the body's final value (spec §4.7 "FileNode").
type FileNode struct {
	base
	Body Node
}

func NewFileNode(body Node, pos Pos) FileNode {
	return FileNode{NewBase(types.NilType, pos), body}
}
