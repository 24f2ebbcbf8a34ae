// context.go is the shared state one compile session threads through every
// def/block it lowers (spec §5's resource model): the constant and
// class-var slot tables, the compiled-def cache, the symbol and string
// pools, and the FFI descriptor cache. One Context is built per program and
// handed to every Emitter; nothing here is safe for concurrent use from two
// goroutines at once, matching the teacher's own single-threaded
// ASTCompiler session model.
package compiler

import (
	"opal/rt"
)

// Context is the state shared across an entire compile session, as opposed
// to Frame/Buffer which are scoped to a single def or block.
type Context struct {
	Constants *SlotTable
	ClassVars *SlotTable
	Defs      *DefCache
	LibFuncs  *rt.LibFuncCache
	Strings   *rt.StringPool
	Symbols   *SymbolTable
}

// NewContext returns a freshly initialized compile session.
func NewContext() *Context {
	return &Context{
		Constants: NewSlotTable(),
		ClassVars: NewSlotTable(),
		Defs:      NewDefCache(),
		LibFuncs:  rt.NewLibFuncCache(),
		Strings:   rt.NewStringPool(),
		Symbols:   NewSymbolTable(),
	}
}

// SymbolTable interns `:symbol` literal names to stable indices, the same
// shape as rt.StringPool but kept distinct since symbols and strings occupy
// separate constant-pool namespaces in the bytecode (spec §3).
type SymbolTable struct {
	names []string
	index map[string]int
}

// NewSymbolTable returns an empty symbol table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{index: make(map[string]int)}
}

// Intern returns name's stable symbol index, assigning one on first sight.
func (s *SymbolTable) Intern(name string) int {
	if idx, ok := s.index[name]; ok {
		return idx
	}
	idx := len(s.names)
	s.names = append(s.names, name)
	s.index[name] = idx
	return idx
}

// Names returns every interned symbol name in assignment order, for
// embedding into the compiled Bytecode's Symbols table.
func (s *SymbolTable) Names() []string {
	return append([]string(nil), s.names...)
}
