// defcache.go is the compiled-def cache (spec C6): memoizes a Def's lowered
// bytecode by identity so a def called from many sites is only lowered
// once, except defs that take a block — those are inlined fresh at every
// call site (spec §4.7/§9: "block inlined per call site", never cached) since
// the block body they carry differs per call. Grounded on the teacher's
// compiler.go New()/Make() factory idiom: one constructor, lazily populated
// maps, no external mutation.
package compiler

import "opal/ast"

// CompiledDef is the frozen result of lowering one ast.Def: its instruction
// stream, the frame that assigned its locals' byte offsets, and the calling
// convention the dispatch trampoline and call sites need.
type CompiledDef struct {
	Def           *ast.Def
	Code          Instructions
	NodeMap       map[int]NodeRef
	Frame         *Frame
	ArgsSize      int  // total byte footprint of the argument list on entry
	ReturnsStruct bool // PassedByValue() return: caller must supply a self-pointer slot
}

// DefCache memoizes CompiledDef by the identity of the ast.Def it was built
// from, and assigns every distinct compiled def a stable index for CALL's
// operand to reference. Callers needing a fresh per-call-site lowering
// (defs with a trailing block) bypass the identity cache but still receive
// a fresh slot in All().
type DefCache struct {
	byDef map[*ast.Def]int
	all   []*CompiledDef
}

// NewDefCache returns an empty compiled-def cache.
func NewDefCache() *DefCache {
	return &DefCache{byDef: make(map[*ast.Def]int)}
}

// GetOrCompile returns def's memoized (index, CompiledDef), invoking compile
// to build and cache it on first access. def.TakesBlock defs are never
// memoized by identity: each call gets its own freshly compiled entry and
// index, since the block body inlined into it differs per call site.
func (c *DefCache) GetOrCompile(def *ast.Def, compile func(*ast.Def) *CompiledDef) (int, *CompiledDef) {
	if def.TakesBlock {
		compiled := compile(def)
		c.all = append(c.all, compiled)
		return len(c.all) - 1, compiled
	}
	if idx, ok := c.byDef[def]; ok {
		return idx, c.all[idx]
	}
	compiled := compile(def)
	idx := len(c.all)
	c.all = append(c.all, compiled)
	c.byDef[def] = idx
	return idx, compiled
}

// Lookup returns def's memoized (index, CompiledDef) if already compiled
// and cacheable by identity, without compiling it.
func (c *DefCache) Lookup(def *ast.Def) (int, *CompiledDef, bool) {
	idx, ok := c.byDef[def]
	if !ok {
		return 0, nil, false
	}
	return idx, c.all[idx], true
}

// All returns every compiled def so far, in index order, for embedding into
// the compiled Bytecode's Defs table.
func (c *DefCache) All() []*CompiledDef {
	return append([]*CompiledDef(nil), c.all...)
}
