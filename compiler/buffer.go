// buffer.go is the instruction buffer and patcher (spec C1): the flat byte
// vector every other component appends to, plus the back-patch bookkeeping
// forward jumps need. Grounded on the teacher's compiler.go Emit/emitByte
// family and ast_compiler.go's patchJump/emitPlaceholderJump pair.
package compiler

import "opal/ast"

// Buffer accumulates a single CompiledDef's or CompiledBlock's instruction
// stream. One Buffer exists per def/block being lowered; completed buffers
// become a CompiledDef's Code in lowerDef (lower_call.go), and CompileFile
// puts the top-level one into Bytecode.Instructions.
type Buffer struct {
	code    Instructions
	nodeMap map[int]NodeRef
}

// NewBuffer returns an empty instruction buffer.
func NewBuffer() *Buffer {
	return &Buffer{nodeMap: make(map[int]NodeRef)}
}

// Len is the buffer's current byte length, used as the jump target when
// patching a forward branch back to "here".
func (b *Buffer) Len() int {
	return len(b.code)
}

// Bytes returns the accumulated instruction stream.
func (b *Buffer) Bytes() Instructions {
	return b.code
}

// Emit appends one instruction for op with operands, recording node at the
// instruction's starting offset in the node map (spec §3/§6: "Node map"),
// and returns that starting offset so callers can patch it later.
func (b *Buffer) Emit(op Opcode, node ast.Node, operands ...int64) int {
	start := len(b.code)
	bytes, err := AssembleInstruction(op, operands...)
	if err != nil {
		bug(nodePos(node), "buffer: %s", err)
	}
	b.code = append(b.code, bytes...)
	if node != nil {
		pos := node.Position()
		b.nodeMap[start] = NodeRef{Line: pos.Line, Column: pos.Column, Kind: nodeKindName(node)}
	}
	return start
}

// EmitJumpPlaceholder emits op with a placeholder target operand (0) and
// returns the offset of that operand within the buffer, for PatchJump to
// fill in once the real destination is known. Grounded on
// ast_compiler.go's emitPlaceholderJump.
func (b *Buffer) EmitJumpPlaceholder(op Opcode, node ast.Node) int {
	start := b.Emit(op, node, 0)
	return start + 1 // operand immediately follows the single opcode byte
}

// PatchJump overwrites the 4-byte jump operand at operandOffset with target,
// the absolute instruction-buffer offset to jump to. Grounded on
// ast_compiler.go's patchJump.
func (b *Buffer) PatchJump(operandOffset int, target int) {
	putOperand(b.code[operandOffset:operandOffset+4], w4, int64(target))
}

// PatchJumpHere patches the jump operand at operandOffset to the buffer's
// current end, the common "jump past what follows" case.
func (b *Buffer) PatchJumpHere(operandOffset int) {
	b.PatchJump(operandOffset, b.Len())
}

// nodePos extracts a Pos from node, or the zero Pos if node is nil (emitted
// by a synthetic step with no direct source node, e.g. dispatch.go's
// trampoline bodies).
func nodePos(node ast.Node) ast.Pos {
	if node == nil {
		return ast.Pos{}
	}
	return node.Position()
}

// nodeKindName names node's dynamic type for the disassembler/debug map,
// without importing reflect. Only the variants listed below are named; every
// other node kind is reported as "Node".
func nodeKindName(node ast.Node) string {
	switch node.(type) {
	case ast.NilLiteral:
		return "NilLiteral"
	case ast.BoolLiteral:
		return "BoolLiteral"
	case ast.NumberLiteral:
		return "NumberLiteral"
	case ast.CharLiteral:
		return "CharLiteral"
	case ast.StringLiteral:
		return "StringLiteral"
	case ast.SymbolLiteral:
		return "SymbolLiteral"
	case ast.TupleLiteral:
		return "TupleLiteral"
	case ast.NamedTupleLiteral:
		return "NamedTupleLiteral"
	case ast.Var:
		return "Var"
	case ast.InstanceVar:
		return "InstanceVar"
	case ast.ClassVar:
		return "ClassVar"
	case ast.Path:
		return "Path"
	case ast.Assign:
		return "Assign"
	case ast.PointerOf:
		return "PointerOf"
	case ast.SizeOf:
		return "SizeOf"
	case ast.TypeOf:
		return "TypeOf"
	case ast.IsA:
		return "IsA"
	case ast.Cast:
		return "Cast"
	case ast.NilableCast:
		return "NilableCast"
	case ast.Not:
		return "Not"
	case ast.If:
		return "If"
	case ast.While:
		return "While"
	case ast.Return:
		return "Return"
	case ast.Break:
		return "Break"
	case ast.Next:
		return "Next"
	case ast.Yield:
		return "Yield"
	case ast.Call:
		return "Call"
	case *ast.Def:
		return "Def"
	case ast.Expressions:
		return "Expressions"
	case ast.ExceptionHandler:
		return "ExceptionHandler"
	case ast.FileNode:
		return "FileNode"
	default:
		return "Node"
	}
}
