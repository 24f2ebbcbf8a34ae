// Package rt holds the small pieces of runtime support the compiled output
// depends on but that live outside the compiler package itself: string
// interning and the FFI calling-convention metadata compiler/lower_call.go's lowerFFICall
// assembles descriptors from. Grounded on the teacher's runtime-adjacent
// helpers in vm/ (string handling inlined there); split out here since both
// the compiler (constant pool population) and the vm (PUT_STRING,
// LIB_CALL) need to share one process-lifetime table.
package rt

import "sync"

// StringPool interns string literals for the lifetime of one compile+run
// session (spec §9 Open Question: process-lifetime only, no persistence
// across runs). PUT_STRING's operand is an index into this pool.
type StringPool struct {
	mu      sync.Mutex
	strings []string
	index   map[string]int
}

// NewStringPool returns an empty string pool.
func NewStringPool() *StringPool {
	return &StringPool{index: make(map[string]int)}
}

// Intern returns s's stable index in the pool, assigning one on first sight.
func (p *StringPool) Intern(s string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if idx, ok := p.index[s]; ok {
		return idx
	}
	idx := len(p.strings)
	p.strings = append(p.strings, s)
	p.index[s] = idx
	return idx
}

// Get returns the string stored at idx. Panics on an out-of-range index,
// which would indicate a compiler bug rather than recoverable user error.
func (p *StringPool) Get(idx int) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.strings[idx]
}

// Len reports how many distinct strings have been interned.
func (p *StringPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.strings)
}
