// ffi.go marshals one LIB_CALL's arguments into a real mmap'd host buffer
// via rt.AllocateArgBuffer, laid out byte-for-byte according to the
// rt.LibFunction ABI descriptor the compiler attached to the call (spec
// §4.7's FFI rule: "per-argument byte sizes + FFI type codes"). The
// reference VM stops short of actually invoking the C symbol — it has no
// dlopen/dlsym linkage, only a boxed-any value stack — but the marshaling
// step itself runs for real rather than being skipped, so the byte layout a
// production VM would hand to libffi is exercised end to end.
package vm

import (
	"encoding/binary"
	"math"

	"opal/rt"
	"opal/types"
)

// marshalFFIArgs writes args into a freshly mapped ArgBuffer sized from
// lf.ArgSizes and returns it; the caller is responsible for releasing it.
// Pointer arguments marshal as zeroed slots: PointerVal addresses a Cell in
// the VM's own boxed heap, not a host memory address, so there is nothing
// meaningful to write for it here.
func marshalFFIArgs(lf *rt.LibFunction, args []any) (*rt.ArgBuffer, error) {
	total := 0
	for _, size := range lf.ArgSizes {
		total += size
	}
	buf, err := rt.AllocateArgBuffer(total)
	if err != nil {
		return nil, err
	}

	out := buf.Bytes()
	offset := 0
	for i, t := range lf.ArgTypes {
		size := lf.ArgSizes[i]
		switch t {
		case types.FFIInt32:
			f, _ := asNumber(args[i])
			binary.LittleEndian.PutUint32(out[offset:], uint32(int32(f)))
		case types.FFIInt64:
			f, _ := asNumber(args[i])
			binary.LittleEndian.PutUint64(out[offset:], uint64(int64(f)))
		case types.FFIFloat64:
			f, _ := asNumber(args[i])
			binary.LittleEndian.PutUint64(out[offset:], math.Float64bits(f))
		case types.FFIPointer:
			// no host address to marshal; leave the slot zeroed.
		}
		offset += size
	}
	return buf, nil
}
