package parser

import (
	"testing"

	"opal/ast"
	"opal/lexer"
	"opal/types"
)

// parse lexes and parses src, failing the test on any lex or parse error.
func parse(t *testing.T, src string) ast.FileNode {
	t.Helper()
	lex := lexer.New(src)
	tokens, err := lex.Scan()
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	file, err := Make(tokens).Parse()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return file
}

func bodyNodes(t *testing.T, file ast.FileNode) []ast.Node {
	t.Helper()
	exprs, ok := file.Body.(ast.Expressions)
	if !ok {
		t.Fatalf("expected file body to be Expressions, got %T", file.Body)
	}
	return exprs.Nodes
}

func TestArithmeticPrecedence(t *testing.T) {
	// 1 + 2 * 3 should parse as 1 + (2 * 3), i.e. the outermost call is add.
	file := parse(t, "1 + 2 * 3;")
	nodes := bodyNodes(t, file)
	if len(nodes) != 1 {
		t.Fatalf("expected 1 top-level statement, got %d", len(nodes))
	}
	call, ok := nodes[0].(ast.Call)
	if !ok {
		t.Fatalf("expected ast.Call, got %T", nodes[0])
	}
	if !call.IsPrimitive || call.PrimitiveOp != "add" {
		t.Fatalf("expected outermost op 'add', got %q", call.PrimitiveOp)
	}
	rhs, ok := call.Args[0].(ast.Call)
	if !ok || rhs.PrimitiveOp != "mul" {
		t.Fatalf("expected rhs to be a 'mul' call, got %#v", call.Args[0])
	}
}

func TestAssignmentTargetLookahead(t *testing.T) {
	file := parse(t, "x = 5; x;")
	nodes := bodyNodes(t, file)
	if len(nodes) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(nodes))
	}
	assign, ok := nodes[0].(ast.Assign)
	if !ok {
		t.Fatalf("expected ast.Assign, got %T", nodes[0])
	}
	v, ok := assign.Target.(ast.Var)
	if !ok || v.Name != "x" {
		t.Fatalf("expected assign target Var(x), got %#v", assign.Target)
	}
	ref, ok := nodes[1].(ast.Var)
	if !ok || ref.Name != "x" {
		t.Fatalf("expected second statement to read Var(x), got %#v", nodes[1])
	}
	if ref.Type().TypeID() != assign.Value.Type().TypeID() {
		t.Fatalf("expected x to carry its assigned Int32 type, got %v", ref.Type())
	}
}

func TestIfElifElseChain(t *testing.T) {
	file := parse(t, "if 1 < 2 then 1 elif 2 < 3 then 2 else 3 end;")
	nodes := bodyNodes(t, file)
	top, ok := nodes[0].(ast.If)
	if !ok {
		t.Fatalf("expected ast.If, got %T", nodes[0])
	}
	elif, ok := top.Else.(ast.If)
	if !ok {
		t.Fatalf("expected elif chain to be a nested If, got %T", top.Else)
	}
	inner, ok := elif.Else.(ast.Expressions)
	if !ok || len(inner.Nodes) != 1 {
		t.Fatalf("expected the innermost else to be a one-statement body, got %#v", elif.Else)
	}
	if _, ok := inner.Nodes[0].(ast.NumberLiteral); !ok {
		t.Fatalf("expected the innermost else to be a literal, got %T", inner.Nodes[0])
	}
}

func TestStaticallyKnownCondition(t *testing.T) {
	file := parse(t, "if true then 1 else 2 end;")
	nodes := bodyNodes(t, file)
	ifNode, ok := nodes[0].(ast.If)
	if !ok {
		t.Fatalf("expected ast.If, got %T", nodes[0])
	}
	if ifNode.StaticCond == nil {
		t.Fatalf("expected StaticCond to be stamped for a literal condition")
	}
	if !*ifNode.StaticCond {
		t.Fatalf("expected StaticCond true for literal `true`, got false")
	}
}

func TestUnknownConditionLeavesStaticCondNil(t *testing.T) {
	file := parse(t, "x = 1; if x < 2 then 1 else 2 end;")
	nodes := bodyNodes(t, file)
	ifNode, ok := nodes[1].(ast.If)
	if !ok {
		t.Fatalf("expected ast.If, got %T", nodes[1])
	}
	if ifNode.StaticCond != nil {
		t.Fatalf("expected StaticCond nil for a non-literal condition, got %v", *ifNode.StaticCond)
	}
}

func TestLogicalAndOrDesugar(t *testing.T) {
	file := parse(t, "true && false;")
	nodes := bodyNodes(t, file)
	andIf, ok := nodes[0].(ast.If)
	if !ok {
		t.Fatalf("expected && to desugar to ast.If, got %T", nodes[0])
	}
	if _, ok := andIf.Cond.(ast.BoolLiteral); !ok {
		t.Fatalf("expected If.Cond to be the left operand, got %T", andIf.Cond)
	}
	if _, ok := andIf.Then.(ast.BoolLiteral); !ok {
		t.Fatalf("expected If.Then to be the right operand for &&, got %T", andIf.Then)
	}
}

func TestClassRequiresIvarsBeforeDefs(t *testing.T) {
	file := parse(t, `
		class Point
			@x : Int32
			@y : Int32
			def sum : Int32
				@x + @y
			end
		end
	`)
	nodes := bodyNodes(t, file)
	decl, ok := nodes[0].(ast.ClassDecl)
	if !ok {
		t.Fatalf("expected ast.ClassDecl, got %T", nodes[0])
	}
	if decl.Name != "Point" {
		t.Fatalf("expected class name Point, got %q", decl.Name)
	}
	if _, _, ok := decl.ClassType.LookupInstanceVar("x"); !ok {
		t.Fatalf("expected Point to declare ivar x")
	}
	if _, _, ok := decl.ClassType.LookupInstanceVar("y"); !ok {
		t.Fatalf("expected Point to declare ivar y")
	}
}

func TestReopenedPrimitiveEnablesMultidispatch(t *testing.T) {
	// spec §8 scenario 6: two `foo` overloads distinguished by receiver
	// type, expressed here as reopened primitives each declaring one
	// instance def named foo.
	src := `
		class Int32
			def foo : Int32
				self
			end
		end
		class String
			def foo : String
				self
			end
		end
	`
	lex := lexer.New(src)
	tokens, err := lex.Scan()
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	p := Make(tokens)
	if _, err := p.Parse(); err != nil {
		t.Fatalf("parse error: %v", err)
	}
	foos := p.defs["foo"]
	if len(foos) != 2 {
		t.Fatalf("expected 2 registered foo overloads, got %d", len(foos))
	}
	owners := map[string]bool{}
	for _, d := range foos {
		owners[d.Owner.Name] = true
	}
	if !owners["Int32"] || !owners["String"] {
		t.Fatalf("expected overloads owned by Int32 and String, got %v", owners)
	}
}

func TestWhileLoop(t *testing.T) {
	file := parse(t, `
		x = 0;
		while x < 10 do
			x = x + 1;
		end;
	`)
	nodes := bodyNodes(t, file)
	loop, ok := nodes[1].(ast.While)
	if !ok {
		t.Fatalf("expected ast.While, got %T", nodes[1])
	}
	cond, ok := loop.Cond.(ast.Call)
	if !ok || cond.PrimitiveOp != "lt" {
		t.Fatalf("expected while condition to be an 'lt' call, got %#v", loop.Cond)
	}
}

func TestDefTakesBlockWhenBodyYields(t *testing.T) {
	src := `
		def twice : Int32
			yield;
			yield
		end
	`
	lex := lexer.New(src)
	tokens, err := lex.Scan()
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	p := Make(tokens)
	if _, err := p.Parse(); err != nil {
		t.Fatalf("parse error: %v", err)
	}
	defs := p.defs["twice"]
	if len(defs) != 1 {
		t.Fatalf("expected 1 registered def, got %d", len(defs))
	}
	if !defs[0].TakesBlock {
		t.Fatalf("expected TakesBlock true for a def whose body yields")
	}
}

func TestCallWithBlockArgument(t *testing.T) {
	src := `
		def each : Int32
			yield(1)
		end
		each() do |n : Int32|
			n;
		end;
	`
	lex := lexer.New(src)
	tokens, err := lex.Scan()
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	p := Make(tokens)
	file, err := p.Parse()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	nodes := bodyNodes(t, file)
	call, ok := nodes[0].(ast.Call)
	if !ok {
		t.Fatalf("expected ast.Call, got %T", nodes[0])
	}
	if call.Block == nil {
		t.Fatalf("expected call to carry a parsed do-block")
	}
	if len(call.Block.Args) != 1 || call.Block.Args[0].Name != "n" {
		t.Fatalf("expected block param 'n', got %#v", call.Block.Args)
	}
}

func TestUnionAndNilableTypeParsing(t *testing.T) {
	src := `
		def pick(x : Int32 | String) : Int32?
			1
		end
	`
	lex := lexer.New(src)
	tokens, err := lex.Scan()
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	p := Make(tokens)
	if _, err := p.Parse(); err != nil {
		t.Fatalf("parse error: %v", err)
	}
	defs := p.defs["pick"]
	if len(defs) != 1 {
		t.Fatalf("expected 1 registered def, got %d", len(defs))
	}
	paramType := defs[0].Params[0].Type
	if paramType.Kind != types.KindMixedUnion {
		t.Fatalf("expected a mixed union param type (Int32 is not reference-like), got %v", paramType.Kind)
	}
}

func TestUnknownIdentifierIsRecoverableParseError(t *testing.T) {
	lex := lexer.New("undeclaredThing;")
	tokens, err := lex.Scan()
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	_, err = Make(tokens).Parse()
	if err == nil {
		t.Fatalf("expected a parse error for an undefined identifier")
	}
}
