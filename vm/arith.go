// arith.go implements the primitive arithmetic/comparison opcodes
// compiler/intrinsics.go emits one-rule-per-op (spec §4.7 rule 2). The
// reference VM boxes every scalar as int64/float64/rune/bool, so these
// operate on the boxed value directly rather than a tagged PrimTag-width
// payload; the PrimTag operand is decoded but not consulted. Float
// arithmetic arrives here as a Go float64 because OP_PUT_F64 boxes float
// literals that way.
package vm

import "opal/compiler"

func asNumber(v any) (f float64, isFloat bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), false
	case rune:
		return float64(n), false
	default:
		return 0, false
	}
}

func arith(op compiler.Opcode, a, b any) any {
	af, aFloat := asNumber(a)
	bf, bFloat := asNumber(b)
	if aFloat || bFloat {
		switch op {
		case compiler.OP_ADD:
			return af + bf
		case compiler.OP_SUB:
			return af - bf
		case compiler.OP_MUL:
			return af * bf
		case compiler.OP_DIV:
			return af / bf
		case compiler.OP_MOD:
			return float64(int64(af) % int64(bf))
		}
	}
	ai := int64(af)
	bi := int64(bf)
	switch op {
	case compiler.OP_ADD:
		return ai + bi
	case compiler.OP_SUB:
		return ai - bi
	case compiler.OP_MUL:
		return ai * bi
	case compiler.OP_DIV:
		if bi == 0 {
			panic(RuntimeError{Message: "division by zero"})
		}
		return ai / bi
	case compiler.OP_MOD:
		if bi == 0 {
			panic(RuntimeError{Message: "division by zero"})
		}
		return ai % bi
	}
	return nil
}

func negate(v any) any {
	switch n := v.(type) {
	case float64:
		return -n
	case int64:
		return -n
	case rune:
		return -n
	default:
		return v
	}
}

func compare(op compiler.Opcode, a, b any) bool {
	af, aFloat := asNumber(a)
	bf, bFloat := asNumber(b)
	if aFloat || bFloat {
		switch op {
		case compiler.OP_CMP_EQ:
			return af == bf
		case compiler.OP_CMP_NEQ:
			return af != bf
		case compiler.OP_CMP_LT:
			return af < bf
		case compiler.OP_CMP_LE:
			return af <= bf
		case compiler.OP_CMP_GT:
			return af > bf
		case compiler.OP_CMP_GE:
			return af >= bf
		}
		return false
	}
	switch op {
	case compiler.OP_CMP_EQ:
		return valuesEqual(a, b)
	case compiler.OP_CMP_NEQ:
		return !valuesEqual(a, b)
	case compiler.OP_CMP_LT:
		return af < bf
	case compiler.OP_CMP_LE:
		return af <= bf
	case compiler.OP_CMP_GT:
		return af > bf
	case compiler.OP_CMP_GE:
		return af >= bf
	}
	return false
}

// valuesEqual handles eq/neq over boxed values: numeric shapes compare by
// value across int64/rune/float64, everything else (bool, string, nil,
// pointer identity) falls back to Go's ==.
func valuesEqual(a, b any) bool {
	if isNumeric(a) && isNumeric(b) {
		af, _ := asNumber(a)
		bf, _ := asNumber(b)
		return af == bf
	}
	return a == b
}

func isNumeric(v any) bool {
	switch v.(type) {
	case float64, int64, rune:
		return true
	default:
		return false
	}
}
