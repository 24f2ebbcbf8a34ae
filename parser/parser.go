// Recursive descent parser
// https://en.wikipedia.org/wiki/Recursive_descent_parser
//
// A recursive descent parser is a top-down parser because it starts from
// the top grammar rule and works its way down into the nested
// sub-expressions before reaching the leaves of the syntax tree (terminal
// rules).
//
// This parser stands in for the frontend the core compiler package treats
// as an external collaborator: it produces opal/ast nodes pre-typed
// against opal/types, the way a fully type-inferred frontend would, but
// its own type resolution is a closed declared-types-only surface
// (no generics, no inference) — see SPEC_FULL.md's SUPPLEMENTED FEATURES
// section. Statements are separated by ';'; the lexer discards newlines as
// whitespace so there is no significant-newline handling to speak of.
package parser

import (
	"fmt"
	"opal/ast"
	"opal/constfold"
	"opal/token"
	"opal/types"
)

// scope is a flat local-variable table: one per top-level file body, Def
// body or Block body. Unlike nested lexical scoping, an if/while body
// shares its enclosing def's scope, matching the Vars map every ast.Def/
// ast.Block already carries.
type scope struct {
	vars map[string]*types.Type
}

func newScope() *scope {
	return &scope{vars: map[string]*types.Type{}}
}

type Parser struct {
	tokens   []token.Token
	position int

	types  map[string]*types.Type
	defs   map[string][]*ast.Def
	consts map[string]*types.Type
	cvars  map[string]*types.Type

	vars *scope
	self *types.Type

	errors []error
}

// NOTE: The parsers position is always one unit ahead of the
// current token

// Make constructs a Parser seeded with Opal's built-in primitive type
// names over the given token stream.
func Make(tokens []token.Token) *Parser {
	p := &Parser{
		tokens: tokens,
		types:  map[string]*types.Type{},
		defs:   map[string][]*ast.Def{},
		consts: map[string]*types.Type{},
		cvars:  map[string]*types.Type{},
		vars:   newScope(),
	}
	for _, bits := range []int{8, 16, 32, 64} {
		p.types[fmt.Sprintf("Int%d", bits)] = types.NewInt(bits)
	}
	for _, bits := range []int{32, 64} {
		p.types[fmt.Sprintf("Float%d", bits)] = types.NewFloat(bits)
	}
	p.types["Bool"] = types.Bool
	p.types["Char"] = types.Char
	p.types["String"] = types.String
	p.types["Nil"] = types.NilType
	p.types["Void"] = types.NilType
	return p
}

// Errors returns every recoverable parse error collected while parsing.
func (p *Parser) Errors() []error {
	return p.errors
}

// Parse parses the full token stream into a FileNode, recovering from
// statement-level errors so it can continue to find more.
func (p *Parser) Parse() (ast.FileNode, error) {
	pos := p.currentPos()
	body := p.topLevelSequence()
	if len(p.errors) > 0 {
		return ast.FileNode{}, p.errors[0]
	}
	return ast.NewFileNode(body, pos), nil
}

func (p *Parser) currentPos() ast.Pos {
	tok := p.peek()
	return ast.Pos{Line: tok.Line, Column: tok.Column}
}

// --- token-stream primitives (teacher's Make/peek/previous/advance idiom) ---

func (p *Parser) peek() token.Token {
	return p.tokens[p.position]
}

func (p *Parser) peekAt(offset int) token.Token {
	i := p.position + offset
	if i >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[i]
}

func (p *Parser) previous() token.Token {
	return p.tokens[p.position-1]
}

func (p *Parser) advance() token.Token {
	if !p.isFinished() {
		p.position++
	}
	return p.previous()
}

func (p *Parser) isFinished() bool {
	return p.peek().TokenType == token.EOF
}

func (p *Parser) checkType(t token.TokenType) bool {
	if p.isFinished() {
		return t == token.EOF
	}
	return p.peek().TokenType == t
}

func (p *Parser) isMatch(types ...token.TokenType) bool {
	for _, t := range types {
		if p.checkType(t) {
			p.advance()
			return true
		}
	}
	return false
}

func (p *Parser) consume(t token.TokenType, errMsg string) (token.Token, error) {
	if p.checkType(t) {
		return p.advance(), nil
	}
	cur := p.peek()
	err := fmt.Errorf("parse error at line %d, column %d: %s (got %s %q)", cur.Line, cur.Column, errMsg, cur.TokenType, cur.Lexeme)
	p.errors = append(p.errors, err)
	return cur, err
}

func (p *Parser) atTerminator(terms ...token.TokenType) bool {
	if p.isFinished() {
		return true
	}
	for _, t := range terms {
		if p.checkType(t) {
			return true
		}
	}
	return false
}

// --- top level / bodies ---

func (p *Parser) topLevelSequence() ast.Node {
	return p.sequenceUntil()
}

// sequenceUntil parses ';'-separated statements until one of terms is seen
// (without consuming it) or input ends.
func (p *Parser) sequenceUntil(terms ...token.TokenType) ast.Node {
	pos := p.currentPos()
	var nodes []ast.Node
	for p.isMatch(token.SEMICOLON) {
	}
	for !p.atTerminator(terms...) {
		node, added := p.topLevelStatement()
		if len(p.errors) > 0 {
			// best-effort recovery: skip to next ';' or a terminator.
			for !p.isFinished() && !p.checkType(token.SEMICOLON) && !p.atTerminator(terms...) {
				p.advance()
			}
		}
		if added {
			nodes = append(nodes, node)
		}
		for p.isMatch(token.SEMICOLON) {
		}
	}
	return ast.NewExpressions(nodes, pos)
}

// topLevelStatement parses one statement. `def` registers itself and
// produces no body node (spec's compiler has no lowering case for a bare
// ast.Def: defs are only ever reached through a Call's resolved
// TargetDefs, never inlined into a sequence).
func (p *Parser) topLevelStatement() (ast.Node, bool) {
	switch {
	case p.checkType(token.DEF):
		p.defDecl()
		return nil, false
	case p.checkType(token.CLASS):
		return p.classDecl(false), true
	case p.checkType(token.STRUCT):
		return p.classDecl(true), true
	case p.checkType(token.LIB):
		return p.libDecl(), true
	default:
		return p.expression(), true
	}
}

func (p *Parser) parseBody(terms ...token.TokenType) ast.Node {
	return p.sequenceUntil(terms...)
}

// --- declarations ---

func (p *Parser) parseParams() []ast.Param {
	var params []ast.Param
	if !p.isMatch(token.LPA) {
		return params
	}
	for !p.checkType(token.RPA) && !p.isFinished() {
		nameTok, err := p.consume(token.IDENTIFIER, "expected parameter name")
		if err != nil {
			break
		}
		if _, cErr := p.consume(token.COLON, "expected ':' after parameter name"); cErr != nil {
			break
		}
		t := p.parseType()
		params = append(params, ast.Param{Name: nameTok.Lexeme, Type: t})
		if !p.isMatch(token.COMMA) {
			break
		}
	}
	p.consume(token.RPA, "expected ')' to close parameter list")
	return params
}

func (p *Parser) defDecl() {
	p.consume(token.DEF, "expected 'def'")
	nameTok, err := p.consume(token.IDENTIFIER, "expected def name")
	if err != nil {
		return
	}
	pos := ast.Pos{Line: nameTok.Line, Column: nameTok.Column}
	params := p.parseParams()

	retType := types.NilType
	if p.isMatch(token.COLON) {
		retType = p.parseType()
	}

	outerVars := p.vars
	p.vars = newScope()
	for _, param := range params {
		p.vars.vars[param.Name] = param.Type
	}

	body := p.parseBody(token.END)
	p.consume(token.END, "expected 'end' to close def")

	varsMap := p.vars.vars
	p.vars = outerVars

	def := ast.NewDef(nameTok.Lexeme, p.self, params, varsMap, body, containsYield(body), retType, pos)
	p.defs[nameTok.Lexeme] = append(p.defs[nameTok.Lexeme], def)
}

// classDecl parses `class Name ... end` / `struct Name ... end`. Instance
// var declarations (`@x : Type`) must precede any `def` in the body: the
// type's full field layout is needed before any method referencing `self`
// can be compiled, and this toy frontend has no second pass. Reopening an
// already-registered (including built-in primitive) type name extends it
// in place rather than declaring a new one, the way Crystal lets any file
// reopen a class.
func (p *Parser) classDecl(isStruct bool) ast.Node {
	pos := p.currentPos()
	if isStruct {
		p.consume(token.STRUCT, "expected 'struct'")
	} else {
		p.consume(token.CLASS, "expected 'class'")
	}
	nameTok, err := p.consume(token.IDENTIFIER, "expected class/struct name")
	if err != nil {
		return ast.NewClassDecl("", types.NilType, ast.NewExpressions(nil, pos), pos)
	}

	existing, reopened := p.types[nameTok.Lexeme]

	var fields []types.Field
	var decls []ast.Node
	for p.checkType(token.AT) && !p.checkType(token.DEF) {
		decls = append(decls, p.ivarDecl(&fields))
	}

	var classType *types.Type
	if reopened {
		classType = existing
	} else {
		classType = types.NewClass(nameTok.Lexeme, isStruct, fields...)
		p.types[nameTok.Lexeme] = classType
	}

	outerSelf := p.self
	p.self = classType
	for p.checkType(token.DEF) {
		p.defDecl()
	}
	p.self = outerSelf

	p.consume(token.END, "expected 'end' to close class/struct body")

	return ast.NewClassDecl(nameTok.Lexeme, classType, ast.NewExpressions(decls, pos), pos)
}

func (p *Parser) ivarDecl(fields *[]types.Field) ast.Node {
	pos := p.currentPos()
	p.consume(token.AT, "expected '@'")
	nameTok, err := p.consume(token.IDENTIFIER, "expected instance var name")
	if err != nil {
		return ast.NewTypeDeclaration("", types.NilType, pos)
	}
	p.consume(token.COLON, "expected ':' after instance var name")
	t := p.parseType()
	*fields = append(*fields, types.Field{Name: nameTok.Lexeme, Type: t})
	return ast.NewTypeDeclaration(nameTok.Lexeme, t, pos)
}

// libDecl parses `lib Name; fun sym(arg : Type, ...) : Type; ... end`,
// binding each fun as an FFI call target (spec §6's "To the interpreter"
// LIB_CALL boundary, §1's FFI collaborator).
func (p *Parser) libDecl() ast.Node {
	pos := p.currentPos()
	p.consume(token.LIB, "expected 'lib'")
	nameTok, err := p.consume(token.IDENTIFIER, "expected lib name")
	if err != nil {
		return ast.NewLibDecl("", ast.NewExpressions(nil, pos), pos)
	}

	p.isMatch(token.SEMICOLON)
	var decls []ast.Node
	for p.checkType(token.FUN) {
		decls = append(decls, p.funDecl())
		p.isMatch(token.SEMICOLON)
	}
	p.consume(token.END, "expected 'end' to close lib body")
	return ast.NewLibDecl(nameTok.Lexeme, ast.NewExpressions(decls, pos), pos)
}

func (p *Parser) funDecl() ast.Node {
	pos := p.currentPos()
	p.consume(token.FUN, "expected 'fun'")
	nameTok, err := p.consume(token.IDENTIFIER, "expected fun name")
	if err != nil {
		return ast.NewTypeDeclaration("", types.NilType, pos)
	}
	csymbol := nameTok.Lexeme
	params := p.parseParams()
	retType := types.NilType
	if p.isMatch(token.COLON) {
		retType = p.parseType()
	}
	fn := ast.NewFunDecl(nameTok.Lexeme, csymbol, params, false, retType, pos)
	def := ast.NewDef(nameTok.Lexeme, nil, params, map[string]*types.Type{}, ast.NewExpressions(nil, pos), false, retType, pos)
	def.IsPrimitive = false
	p.defs[nameTok.Lexeme] = append(p.defs[nameTok.Lexeme], markFFI(def))
	return fn
}

// markFFI is a tiny indirection so funDecl doesn't need lower_call.go's
// ast.Call.IsFFI plumbing exposed here: FFI calls are matched by name
// against ffiNames at call-resolution time instead of via a field on Def.
var ffiNames = map[string]bool{}

func markFFI(def *ast.Def) *ast.Def {
	ffiNames[def.Name] = true
	return def
}

// --- types ---

func (p *Parser) parseType() *types.Type {
	first := p.parsePrimaryType()
	if !p.checkType(token.PIPE) {
		return p.maybeNilable(first)
	}
	variants := []*types.Type{first}
	for p.isMatch(token.PIPE) {
		variants = append(variants, p.parsePrimaryType())
	}
	allRefLike := true
	for _, v := range variants {
		if !v.ReferenceLike() {
			allRefLike = false
			break
		}
	}
	var union *types.Type
	if allRefLike {
		union = types.NewReferenceUnion(variants...)
	} else {
		union = types.NewMixedUnion(variants...)
	}
	return p.maybeNilable(union)
}

func (p *Parser) maybeNilable(t *types.Type) *types.Type {
	if p.isMatch(token.QUESTION) {
		return types.NewNilable(t)
	}
	return t
}

func (p *Parser) parsePrimaryType() *types.Type {
	nameTok, err := p.consume(token.IDENTIFIER, "expected type name")
	if err != nil {
		return types.NilType
	}
	if nameTok.Lexeme == "Pointer" && p.isMatch(token.LPA) {
		elem := p.parseType()
		p.consume(token.RPA, "expected ')' to close Pointer(...)")
		return types.NewPointer(elem)
	}
	// the lexer keeps a trailing '?' on an identifier, so `Int32?` arrives
	// as one name rather than Int32 followed by QUESTION.
	if name := nameTok.Lexeme; len(name) > 1 && name[len(name)-1] == '?' {
		if base, ok := p.types[name[:len(name)-1]]; ok {
			return types.NewNilable(base)
		}
	}
	t, ok := p.types[nameTok.Lexeme]
	if !ok {
		err := fmt.Errorf("line %d: unknown type %q", nameTok.Line, nameTok.Lexeme)
		p.errors = append(p.errors, err)
		return types.NilType
	}
	return t
}

// --- expressions ---

func (p *Parser) expression() ast.Node {
	return p.assignment()
}

func isUpperFirst(s string) bool {
	return s != "" && s[0] >= 'A' && s[0] <= 'Z'
}

// assignment recognises `target = value` by two-token lookahead before
// falling into the ordinary precedence chain, sidestepping the need to
// reinterpret an already-built read expression as an lvalue.
func (p *Parser) assignment() ast.Node {
	if p.checkType(token.IDENTIFIER) && p.peekAt(1).TokenType == token.ASSIGN {
		nameTok := p.advance()
		p.advance() // consume '='
		value := p.assignment()
		return p.finishAssign(p.varOrPathTarget(nameTok), value)
	}
	if p.checkType(token.AT) && p.peekAt(1).TokenType == token.IDENTIFIER && p.peekAt(2).TokenType == token.ASSIGN {
		p.advance()
		nameTok := p.advance()
		p.advance()
		value := p.assignment()
		target := ast.NewInstanceVar(nameTok.Lexeme, value.Type(), ast.Pos{Line: nameTok.Line, Column: nameTok.Column})
		return p.finishAssign(target, value)
	}
	if p.checkType(token.ATAT) && p.peekAt(1).TokenType == token.IDENTIFIER && p.peekAt(2).TokenType == token.ASSIGN {
		p.advance()
		nameTok := p.advance()
		p.advance()
		value := p.assignment()
		target := ast.NewClassVar(p.self, nameTok.Lexeme, value.Type(), ast.Pos{Line: nameTok.Line, Column: nameTok.Column})
		p.cvars[p.classVarKey(nameTok.Lexeme)] = value.Type()
		return p.finishAssign(target, value)
	}
	return p.logicalOr()
}

func (p *Parser) classVarKey(name string) string {
	owner := "<top>"
	if p.self != nil {
		owner = p.self.Name
	}
	return owner + "::" + name
}

func (p *Parser) varOrPathTarget(nameTok token.Token) ast.Node {
	pos := ast.Pos{Line: nameTok.Line, Column: nameTok.Column}
	if nameTok.Lexeme == "_" {
		return ast.NewUnderscore(pos)
	}
	if isUpperFirst(nameTok.Lexeme) {
		return ast.NewPath(nameTok.Lexeme, types.NilType, pos)
	}
	return ast.NewVar(nameTok.Lexeme, types.NilType, pos)
}

func (p *Parser) finishAssign(target ast.Node, value ast.Node) ast.Node {
	pos := target.Position()
	switch t := target.(type) {
	case ast.Var:
		p.vars.vars[t.Name] = value.Type()
		return ast.NewAssign(ast.NewVar(t.Name, value.Type(), pos), value, pos)
	case ast.Path:
		p.consts[t.Name] = value.Type()
		return ast.NewAssign(ast.NewPath(t.Name, value.Type(), pos), value, pos)
	case ast.Underscore:
		return ast.NewAssign(t, value, pos)
	default:
		return ast.NewAssign(target, value, pos)
	}
}

func (p *Parser) logicalOr() ast.Node {
	left := p.logicalAnd()
	for p.isMatch(token.OR, token.PIPEPIPE) {
		pos := p.previous()
		right := p.logicalAnd()
		t := types.Merge([]*types.Type{left.Type(), right.Type()})
		left = ast.NewIf(left, left, right, t, ast.Pos{Line: pos.Line, Column: pos.Column})
	}
	return left
}

func (p *Parser) logicalAnd() ast.Node {
	left := p.equality()
	for p.isMatch(token.AND, token.AMPAMP) {
		pos := p.previous()
		right := p.equality()
		t := types.Merge([]*types.Type{left.Type(), right.Type()})
		left = ast.NewIf(left, right, left, t, ast.Pos{Line: pos.Line, Column: pos.Column})
	}
	return left
}

func (p *Parser) primitiveBinary(left ast.Node, op string, resultType *types.Type, pos ast.Pos, right ast.Node) ast.Node {
	call := ast.NewCall(left, op, []ast.Node{right}, nil, nil, nil, resultType, pos)
	call.IsPrimitive = true
	call.PrimitiveOp = op
	return call
}

func arithResultType(left, right ast.Node) *types.Type {
	if left.Type() != nil && left.Type().Prim == types.PrimFloat {
		return left.Type()
	}
	if right.Type() != nil && right.Type().Prim == types.PrimFloat {
		return right.Type()
	}
	return left.Type()
}

func (p *Parser) equality() ast.Node {
	left := p.comparison()
	for p.isMatch(token.EQUAL_EQUAL, token.NOT_EQUAL) {
		opTok := p.previous()
		op := "eq"
		if opTok.TokenType == token.NOT_EQUAL {
			op = "neq"
		}
		right := p.comparison()
		left = p.primitiveBinary(left, op, types.Bool, ast.Pos{Line: opTok.Line, Column: opTok.Column}, right)
	}
	return left
}

func (p *Parser) comparison() ast.Node {
	left := p.term()
	for p.isMatch(token.LESS, token.LESS_EQUAL, token.LARGER, token.LARGER_EQUAL) {
		opTok := p.previous()
		var op string
		switch opTok.TokenType {
		case token.LESS:
			op = "lt"
		case token.LESS_EQUAL:
			op = "le"
		case token.LARGER:
			op = "gt"
		default:
			op = "ge"
		}
		right := p.term()
		left = p.primitiveBinary(left, op, types.Bool, ast.Pos{Line: opTok.Line, Column: opTok.Column}, right)
	}
	return left
}

func (p *Parser) term() ast.Node {
	left := p.factor()
	for p.isMatch(token.ADD, token.SUB) {
		opTok := p.previous()
		op := "add"
		if opTok.TokenType == token.SUB {
			op = "sub"
		}
		right := p.factor()
		left = p.primitiveBinary(left, op, arithResultType(left, right), ast.Pos{Line: opTok.Line, Column: opTok.Column}, right)
	}
	return left
}

func (p *Parser) factor() ast.Node {
	left := p.unary()
	for p.isMatch(token.MULT, token.DIV, token.MOD) {
		opTok := p.previous()
		var op string
		switch opTok.TokenType {
		case token.MULT:
			op = "mul"
		case token.DIV:
			op = "div"
		default:
			op = "mod"
		}
		right := p.unary()
		left = p.primitiveBinary(left, op, arithResultType(left, right), ast.Pos{Line: opTok.Line, Column: opTok.Column}, right)
	}
	return left
}

func (p *Parser) unary() ast.Node {
	if p.isMatch(token.BANG) {
		pos := p.previous()
		operand := p.unary()
		return ast.NewNot(operand, ast.Pos{Line: pos.Line, Column: pos.Column})
	}
	if p.isMatch(token.SUB) {
		pos := p.previous()
		operand := p.unary()
		call := ast.NewCall(operand, "neg", nil, nil, nil, nil, operand.Type(), ast.Pos{Line: pos.Line, Column: pos.Column})
		call.IsPrimitive = true
		call.PrimitiveOp = "neg"
		return call
	}
	return p.postfix()
}

// postfix parses '.'-chained member access, calls, is_a?/as/as? and
// trailing do-blocks onto a primary expression.
func (p *Parser) postfix() ast.Node {
	expr := p.primary()
	for {
		if p.isMatch(token.DOT) {
			// the lexer emits is_a?/as/as? as keyword tokens, not IDENTIFIER.
			var nameTok token.Token
			if p.isMatch(token.IS_A_Q, token.AS, token.AS_Q) {
				nameTok = p.previous()
			} else {
				var err error
				nameTok, err = p.consume(token.IDENTIFIER, "expected member name after '.'")
				if err != nil {
					return expr
				}
			}
			pos := ast.Pos{Line: nameTok.Line, Column: nameTok.Column}
			switch nameTok.Lexeme {
			case "is_a?":
				p.consume(token.LPA, "expected '(' after is_a?")
				target := p.parseType()
				p.consume(token.RPA, "expected ')'")
				expr = ast.NewIsA(expr, target, pos)
			case "as":
				p.consume(token.LPA, "expected '(' after as")
				target := p.parseType()
				p.consume(token.RPA, "expected ')'")
				expr = ast.NewCast(expr, target, pos)
			case "as?":
				p.consume(token.LPA, "expected '(' after as?")
				target := p.parseType()
				p.consume(token.RPA, "expected ')'")
				expr = ast.NewNilableCast(expr, target, pos)
			default:
				if p.checkType(token.LPA) {
					expr = p.finishCall(expr, nameTok.Lexeme, pos)
				} else {
					offset, fieldType, ok := expr.Type().LookupInstanceVar(nameTok.Lexeme)
					_ = offset
					if !ok {
						p.errors = append(p.errors, fmt.Errorf("line %d: %s has no instance var %q", nameTok.Line, expr.Type().Name, nameTok.Lexeme))
						return expr
					}
					expr = ast.NewReadInstanceVar(expr, nameTok.Lexeme, fieldType, pos)
				}
			}
			continue
		}
		break
	}
	return expr
}

func (p *Parser) parseArgs() []ast.Node {
	var args []ast.Node
	p.consume(token.LPA, "expected '('")
	for !p.checkType(token.RPA) && !p.isFinished() {
		args = append(args, p.expression())
		if !p.isMatch(token.COMMA) {
			break
		}
	}
	p.consume(token.RPA, "expected ')' to close argument list")
	return args
}

func (p *Parser) finishCall(receiver ast.Node, name string, pos ast.Pos) ast.Node {
	args := p.parseArgs()
	block := p.tryParseBlock()
	if ffiNames[name] {
		call := ast.NewCall(receiver, name, args, nil, block, p.defs[name], p.ffiReturnType(name), pos)
		call.IsFFI = true
		return call
	}
	var recvType *types.Type
	if receiver != nil {
		recvType = receiver.Type()
	}
	targets := p.resolveCallTargets(name, recvType, args)
	retType := types.NilType
	if len(targets) > 0 {
		retType = targets[0].Type()
	}
	return ast.NewCall(receiver, name, args, nil, block, targets, retType, pos)
}

func (p *Parser) ffiReturnType(name string) *types.Type {
	if defs := p.defs[name]; len(defs) > 0 {
		return defs[0].Type()
	}
	return types.NilType
}

// resolveCallTargets filters the registered overloads of name down to the
// ones reachable from receiver (nil meaning implicit self/top-level),
// sorted most-specific-first by exact-parameter-type match count (spec §8
// scenario 6's multidispatch candidate order).
func (p *Parser) resolveCallTargets(name string, receiver *types.Type, args []ast.Node) []*ast.Def {
	var candidates []*ast.Def
	for _, def := range p.defs[name] {
		if len(def.Params) != len(args) {
			continue
		}
		if receiver == nil {
			if def.Owner == nil || def.Owner == p.self {
				candidates = append(candidates, def)
			}
			continue
		}
		if def.Owner != nil && def.Owner.TypeID() == receiver.TypeID() {
			candidates = append(candidates, def)
		}
	}
	if len(candidates) == 0 {
		p.errors = append(p.errors, fmt.Errorf("no matching def found for %q", name))
		return nil
	}
	if len(candidates) == 1 {
		return candidates
	}
	score := func(def *ast.Def) int {
		s := 0
		for i, param := range def.Params {
			if i < len(args) && args[i].Type() != nil && param.Type.TypeID() == args[i].Type().TypeID() {
				s++
			}
		}
		return s
	}
	for i := 1; i < len(candidates); i++ {
		j := i
		for j > 0 && score(candidates[j]) > score(candidates[j-1]) {
			candidates[j], candidates[j-1] = candidates[j-1], candidates[j]
			j--
		}
	}
	return candidates
}

func (p *Parser) tryParseBlock() *ast.Block {
	if !p.isMatch(token.DO) {
		return nil
	}
	pos := p.currentPos()
	var blockArgs []ast.BlockArg
	if p.isMatch(token.PIPE) {
		for !p.checkType(token.PIPE) && !p.isFinished() {
			nameTok, err := p.consume(token.IDENTIFIER, "expected block parameter name")
			if err != nil {
				break
			}
			t := types.NilType
			if p.isMatch(token.COLON) {
				// no union types here: a '|' after the type closes the list.
				t = p.maybeNilable(p.parsePrimaryType())
			}
			blockArgs = append(blockArgs, ast.BlockArg{Name: nameTok.Lexeme, Type: t})
			if !p.isMatch(token.COMMA) {
				break
			}
		}
		p.consume(token.PIPE, "expected '|' to close block parameter list")
	}

	outerVars := p.vars
	p.vars = newScope()
	for _, a := range blockArgs {
		p.vars.vars[a.Name] = a.Type
	}
	body := p.parseBody(token.END)
	p.consume(token.END, "expected 'end' to close block")
	varsMap := p.vars.vars
	p.vars = outerVars

	return ast.NewBlock(blockArgs, varsMap, body, nil, body.Type(), pos)
}

func (p *Parser) primary() ast.Node {
	pos := p.currentPos()
	switch {
	case p.isMatch(token.NULL):
		return ast.NewNilLiteral(pos)
	case p.isMatch(token.TRUE):
		return ast.NewBoolLiteral(true, pos)
	case p.isMatch(token.FALSE):
		return ast.NewBoolLiteral(false, pos)
	case p.isMatch(token.INT):
		return ast.NewIntLiteral(p.previous().Literal.(int64), types.NewInt(32), pos)
	case p.isMatch(token.FLOAT):
		return ast.NewFloatLiteral(p.previous().Literal.(float64), types.NewFloat(64), pos)
	case p.isMatch(token.CHAR):
		return ast.NewCharLiteral(p.previous().Literal.(rune), pos)
	case p.isMatch(token.STRING):
		return ast.NewStringLiteral(p.previous().Literal.(string), types.String, pos)
	case p.isMatch(token.SELF):
		call := ast.NewCall(nil, "self", nil, nil, nil, nil, p.self, pos)
		call.IsPrimitive = true
		call.PrimitiveOp = "self"
		return call
	case p.isMatch(token.SIZEOF):
		p.consume(token.LPA, "expected '(' after sizeof")
		t := p.parseType()
		p.consume(token.RPA, "expected ')'")
		return ast.NewSizeOf(t, pos)
	case p.isMatch(token.POINTEROF):
		p.consume(token.LPA, "expected '(' after pointerof")
		target := p.postfix()
		p.consume(token.RPA, "expected ')'")
		return ast.NewPointerOf(target, types.NewPointer(target.Type()), pos)
	case p.isMatch(token.TYPEOF):
		p.consume(token.LPA, "expected '(' after typeof")
		inner := p.expression()
		p.consume(token.RPA, "expected ')'")
		return ast.NewTypeOf(inner, types.NewInt(32), pos)
	case p.isMatch(token.YIELD):
		var args []ast.Node
		if p.isMatch(token.LPA) {
			for !p.checkType(token.RPA) && !p.isFinished() {
				args = append(args, p.expression())
				if !p.isMatch(token.COMMA) {
					break
				}
			}
			p.consume(token.RPA, "expected ')' to close yield args")
		}
		return ast.NewYield(args, types.NilType, pos)
	case p.isMatch(token.BREAK):
		value := p.optionalValue(pos)
		return ast.NewBreak(value, pos)
	case p.isMatch(token.NEXT):
		value := p.optionalValue(pos)
		return ast.NewNext(value, pos)
	case p.isMatch(token.RETURN):
		value := p.optionalValue(pos)
		return ast.NewReturn(value, pos)
	case p.isMatch(token.IF):
		return p.finishIf(pos)
	case p.isMatch(token.WHILE):
		return p.finishWhile(pos)
	case p.isMatch(token.AT):
		return p.instanceVarRead(pos)
	case p.isMatch(token.ATAT):
		return p.classVarRead(pos)
	case p.isMatch(token.LPA):
		inner := p.expression()
		p.consume(token.RPA, "expected ')' to close grouped expression")
		return inner
	case p.checkType(token.IDENTIFIER):
		return p.identifierExpr()
	default:
		cur := p.peek()
		p.errors = append(p.errors, fmt.Errorf("line %d: unexpected token %s %q", cur.Line, cur.TokenType, cur.Lexeme))
		p.advance()
		return ast.NewNilLiteral(pos)
	}
}

func (p *Parser) optionalValue(pos ast.Pos) ast.Node {
	if p.atTerminator(token.SEMICOLON, token.END, token.ELSE, token.ELIF, token.EOF) {
		return ast.NewNilLiteral(pos)
	}
	return p.expression()
}

func (p *Parser) instanceVarRead(pos ast.Pos) ast.Node {
	nameTok, err := p.consume(token.IDENTIFIER, "expected instance var name after '@'")
	if err != nil {
		return ast.NewNilLiteral(pos)
	}
	offset, fieldType, ok := p.self.LookupInstanceVar(nameTok.Lexeme)
	_ = offset
	if !ok {
		p.errors = append(p.errors, fmt.Errorf("line %d: undeclared instance var @%s", nameTok.Line, nameTok.Lexeme))
		return ast.NewNilLiteral(pos)
	}
	return ast.NewInstanceVar(nameTok.Lexeme, fieldType, pos)
}

func (p *Parser) classVarRead(pos ast.Pos) ast.Node {
	nameTok, err := p.consume(token.IDENTIFIER, "expected class var name after '@@'")
	if err != nil {
		return ast.NewNilLiteral(pos)
	}
	t, ok := p.cvars[p.classVarKey(nameTok.Lexeme)]
	if !ok {
		p.errors = append(p.errors, fmt.Errorf("line %d: undeclared class var @@%s", nameTok.Line, nameTok.Lexeme))
		return ast.NewNilLiteral(pos)
	}
	return ast.NewClassVar(p.self, nameTok.Lexeme, t, pos)
}

func (p *Parser) identifierExpr() ast.Node {
	nameTok := p.advance()
	pos := ast.Pos{Line: nameTok.Line, Column: nameTok.Column}
	name := nameTok.Lexeme

	if p.checkType(token.LPA) {
		return p.finishCall(nil, name, pos)
	}
	if t, ok := p.vars.vars[name]; ok {
		return ast.NewVar(name, t, pos)
	}
	if defs, ok := p.defs[name]; ok && hasZeroArgOverload(defs, p.self) {
		targets := p.resolveCallTargets(name, nil, nil)
		retType := types.NilType
		if len(targets) > 0 {
			retType = targets[0].Type()
		}
		return ast.NewCall(nil, name, nil, nil, nil, targets, retType, pos)
	}
	if name == "_" {
		return ast.NewUnderscore(pos)
	}
	if isUpperFirst(name) {
		if t, ok := p.consts[name]; ok {
			return ast.NewPath(name, t, pos)
		}
		p.errors = append(p.errors, fmt.Errorf("line %d: reference to undeclared constant %q", nameTok.Line, name))
		return ast.NewNilLiteral(pos)
	}
	p.errors = append(p.errors, fmt.Errorf("line %d: undefined identifier %q", nameTok.Line, name))
	return ast.NewNilLiteral(pos)
}

func hasZeroArgOverload(defs []*ast.Def, self *types.Type) bool {
	for _, d := range defs {
		if len(d.Params) == 0 && (d.Owner == nil || d.Owner == self) {
			return true
		}
	}
	return false
}

func (p *Parser) finishIf(pos ast.Pos) ast.Node {
	cond := p.expression()
	p.isMatch(token.THEN)
	thenBody := p.parseBody(token.END, token.ELSE, token.ELIF)
	elseNode := ast.Node(ast.NewNilLiteral(pos))
	if p.checkType(token.ELIF) {
		p.advance()
		elseNode = p.finishElif()
	} else if p.isMatch(token.ELSE) {
		elseNode = p.parseBody(token.END)
	}
	p.consume(token.END, "expected 'end' to close if")
	t := types.Merge([]*types.Type{thenBody.Type(), elseNode.Type()})
	return stampStaticCond(ast.NewIf(cond, thenBody, elseNode, t, pos), cond)
}

// finishElif parses one `elif cond ... [elif|else] ...` link without
// consuming the chain's final 'end' — that belongs to the outermost If.
func (p *Parser) finishElif() ast.Node {
	pos := p.currentPos()
	cond := p.expression()
	p.isMatch(token.THEN)
	thenBody := p.parseBody(token.END, token.ELSE, token.ELIF)
	elseNode := ast.Node(ast.NewNilLiteral(pos))
	if p.checkType(token.ELIF) {
		p.advance()
		elseNode = p.finishElif()
	} else if p.isMatch(token.ELSE) {
		elseNode = p.parseBody(token.END)
	}
	t := types.Merge([]*types.Type{thenBody.Type(), elseNode.Type()})
	return stampStaticCond(ast.NewIf(cond, thenBody, elseNode, t, pos), cond)
}

// stampStaticCond fills in If.StaticCond whenever cond's truth value is
// knowable from its literal shape alone, letting the lowering pass elide
// the dead branch (spec's compile-time-known truthy/falsy rule).
func stampStaticCond(n ast.If, cond ast.Node) ast.If {
	if v, ok := constfold.KnownBool(cond); ok {
		n.StaticCond = &v
	}
	return n
}

func (p *Parser) finishWhile(pos ast.Pos) ast.Node {
	cond := p.expression()
	p.isMatch(token.DO)
	body := p.parseBody(token.END)
	p.consume(token.END, "expected 'end' to close while")
	return ast.NewWhile(cond, body, types.NilType, pos)
}

// containsYield reports whether node's subtree (never crossing into a
// nested Def — Opal has no nested defs) reaches an ast.Yield, which is
// what marks the enclosing Def as TakesBlock.
func containsYield(node ast.Node) bool {
	switch n := node.(type) {
	case ast.Yield:
		return true
	case ast.Expressions:
		for _, c := range n.Nodes {
			if containsYield(c) {
				return true
			}
		}
	case ast.If:
		return containsYield(n.Cond) || containsYield(n.Then) || containsYield(n.Else)
	case ast.While:
		return containsYield(n.Cond) || containsYield(n.Body)
	case ast.Assign:
		return containsYield(n.Value)
	case ast.Return:
		return containsYield(n.Value)
	case ast.Break:
		return containsYield(n.Value)
	case ast.Next:
		return containsYield(n.Value)
	case ast.Not:
		return containsYield(n.Expr)
	case ast.Call:
		if n.Receiver != nil && containsYield(n.Receiver) {
			return true
		}
		for _, a := range n.Args {
			if containsYield(a) {
				return true
			}
		}
	}
	return false
}
