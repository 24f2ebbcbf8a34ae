// libcall.go assembles the per-call FFI descriptor the compiler's LIB_CALL
// opcode references (spec §4.7's FFI rule: "per-argument byte sizes + FFI
// type codes") and backs each LIB_CALL's marshaled arguments (ArgBuffer) with real mapped memory
// via golang.org/x/sys/unix — the one domain dependency neither the teacher
// nor any of its own subsystems import, since its source language calls out
// to the interpreter's own GC rather than the host's virtual memory
// directly.
package rt

import (
	"fmt"

	"golang.org/x/sys/unix"
	"opal/types"
)

// LibFunction is a resolved external C function binding: enough ABI
// metadata for the vm's LIB_CALL handler to marshal arguments and unmarshal
// the return value without consulting the frontend's type system again.
type LibFunction struct {
	Name       string
	CSymbol    string
	ArgTypes   []types.FFIType
	ArgSizes   []int
	ReturnType types.FFIType
	ReturnSize int
	Variadic   bool
}

// NewLibFunction assembles a LibFunction descriptor from an FFI FunDecl's
// resolved parameter and return types.
func NewLibFunction(name, csymbol string, params []*types.Type, ret *types.Type, variadic bool) *LibFunction {
	lf := &LibFunction{Name: name, CSymbol: csymbol, Variadic: variadic}
	for _, p := range params {
		lf.ArgTypes = append(lf.ArgTypes, ffiTypeOf(p))
		lf.ArgSizes = append(lf.ArgSizes, p.AlignedSize())
	}
	lf.ReturnType = ffiTypeOf(ret)
	lf.ReturnSize = ret.AlignedSize()
	return lf
}

func ffiTypeOf(t *types.Type) types.FFIType {
	if t == nil || t.IsNilType() {
		return types.FFIVoid
	}
	if t.IsPointer() || t.ReferenceLike() {
		return types.FFIPointer
	}
	switch t.Prim {
	case types.PrimFloat:
		return types.FFIFloat64
	default:
		if t.BitWidth > 32 {
			return types.FFIInt64
		}
		return types.FFIInt32
	}
}

// LibFuncCache memoizes LibFunction descriptors by C symbol. Variadic
// functions are never cached: each call site may pass a different argument
// shape, so a memoized descriptor from one call site would silently apply
// to the wrong argument count at another (spec §4.7 FFI rule).
type LibFuncCache struct {
	bySymbol map[string]int
	all      []*LibFunction
}

// NewLibFuncCache returns an empty FFI descriptor cache.
func NewLibFuncCache() *LibFuncCache {
	return &LibFuncCache{bySymbol: make(map[string]int)}
}

// GetOrBuild returns csymbol's memoized descriptor and its stable index into
// All(), building and caching it via build on first access. Variadic
// descriptors bypass the cache entirely, are rebuilt on every call, and get
// a fresh index each time (spec §4.7 FFI rule: "variadic never cached").
func (c *LibFuncCache) GetOrBuild(csymbol string, variadic bool, build func() *LibFunction) (int, *LibFunction) {
	if variadic {
		lf := build()
		c.all = append(c.all, lf)
		return len(c.all) - 1, lf
	}
	if idx, ok := c.bySymbol[csymbol]; ok {
		return idx, c.all[idx]
	}
	lf := build()
	idx := len(c.all)
	c.all = append(c.all, lf)
	c.bySymbol[csymbol] = idx
	return idx, lf
}

// All returns every descriptor built so far, in index order, for embedding
// into the compiled Bytecode's LibFuncs table.
func (c *LibFuncCache) All() []*LibFunction {
	return append([]*LibFunction(nil), c.all...)
}

// ArgBuffer is a raw, page-aligned region of host memory backing one
// LIB_CALL's marshaled argument list, mapped directly via mmap rather than
// carved out of the Go heap so its address is stable across the call and
// safe to hand to a C function that may retain the pointer transiently.
type ArgBuffer struct {
	data []byte
}

// AllocateArgBuffer maps size bytes (rounded up to a page) of
// read/write-only, non-executable memory for one FFI call's marshaled
// arguments.
func AllocateArgBuffer(size int) (*ArgBuffer, error) {
	if size <= 0 {
		size = unix.Getpagesize()
	}
	pageSize := unix.Getpagesize()
	if rem := size % pageSize; rem != 0 {
		size += pageSize - rem
	}
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("rt: mmap argument buffer: %w", err)
	}
	return &ArgBuffer{data: data}, nil
}

// Bytes exposes the mapped region for the vm's argument marshaler to write
// into and the FFI call to read from.
func (a *ArgBuffer) Bytes() []byte { return a.data }

// Release unmaps the argument buffer once the call returns.
func (a *ArgBuffer) Release() error {
	return unix.Munmap(a.data)
}
