// Package types pins the interface the compiler core requires of the
// external type system (spec §4.3, §6). The real frontend owns entity
// identity, subtyping and id assignment; this package only answers the
// layout and discriminant queries the lowering pass depends on.
package types

import "fmt"

// Kind is the closed set of type discriminants spec §3 lists.
type Kind int

const (
	KindPrimitive Kind = iota
	KindPointer
	KindReferenceUnion
	KindMixedUnion
	KindNilable
	KindNilableReferenceUnion
	KindVirtual
	KindVirtualMetaclass
	KindTuple
	KindNamedTuple
	KindEnum
	KindProc
	KindStaticArray
	KindGenericClassInstance
	KindNonGenericClass
	KindTypeDef
	KindAlias
	KindModule
	KindClassType
	KindLibType
)

func (k Kind) String() string {
	names := [...]string{
		"primitive", "pointer", "reference-union", "mixed-union", "nilable",
		"nilable-reference-union", "virtual", "virtual-metaclass", "tuple",
		"named-tuple", "enum", "proc", "static-array", "generic-class-instance",
		"non-generic-class", "type-def", "alias", "module", "class-type", "lib-type",
	}
	if int(k) < 0 || int(k) >= len(names) {
		return "unknown-kind"
	}
	return names[k]
}

// Primitive distinguishes the scalar variants nested under KindPrimitive
// (spec §3: "integer, float" discriminants, plus bool/char/nil which the
// source treats the same way — as fixed-width scalars with no fields).
type Primitive int

const (
	PrimInt Primitive = iota
	PrimFloat
	PrimBool
	PrimChar
	PrimNilType
	PrimVoid
)

// PointerWidth is the stack footprint of every reference, pointer and
// proc-identity slot. Opal targets a 64-bit host, matching the teacher's
// BigEndian uint16/32 operand conventions scaled up to pointer width.
const PointerWidth = 8

// Field is a single instance variable of a struct/class/tuple/named-tuple,
// already laid out with its byte offset within the owner.
type Field struct {
	Name   string
	Type   *Type
	Offset int
}

// Type is the opaque identity the frontend would otherwise own. Only one
// of the kind-specific fields below is meaningful for any given Kind.
type Type struct {
	Kind Kind
	Name string
	id   int32

	// KindPrimitive
	Prim     Primitive
	BitWidth int // 8/16/32/64 for PrimInt/PrimFloat, 0 otherwise

	// KindNonGenericClass / KindGenericClassInstance / KindTuple / KindNamedTuple
	Fields   []Field
	IsStruct bool // struct?=true: passed by value, mutable in place

	// KindReferenceUnion / KindMixedUnion / KindNilableReferenceUnion
	Variants []*Type

	// KindPointer / KindNilable / KindVirtual / KindVirtualMetaclass / KindStaticArray
	Elem *Type

	// KindStaticArray
	ArrayLen int

	// KindTypeDef / KindAlias: forwards to the underlying type
	Target *Type

	// KindLibType
	FFI FFIType

	// KindProc
	ProcParams []*Type
	ProcReturn *Type
}

// FFIType is the C ABI type tag a KindLibType type maps to.
type FFIType int

const (
	FFIVoid FFIType = iota
	FFIInt32
	FFIInt64
	FFIFloat64
	FFIPointer
)

var nextTypeID int32 = 1

func newID() int32 {
	id := nextTypeID
	nextTypeID++
	return id
}

// TypeID returns the runtime type-id used by virtual dispatch, reference
// unions and mixed-union tags (spec §3, REFERENCE_IS_A/UNION_IS_A operands).
func (t *Type) TypeID() int32 {
	if t == nil {
		return 0
	}
	if t.id == 0 {
		t.id = newID()
	}
	return t.id
}

// NilType is the singleton absence-of-value type.
var NilType = &Type{Kind: KindPrimitive, Prim: PrimNilType, Name: "Nil"}

// NoReturn is the sentinel returned by type_merge when every branch diverges
// (spec §6: "type_merge([t1,t2]) -> t and no_return sentinel").
var NoReturn = &Type{Kind: KindPrimitive, Prim: PrimVoid, Name: "NoReturn"}

func NewInt(bits int) *Type {
	return &Type{Kind: KindPrimitive, Prim: PrimInt, BitWidth: bits, Name: fmt.Sprintf("Int%d", bits)}
}

func NewFloat(bits int) *Type {
	return &Type{Kind: KindPrimitive, Prim: PrimFloat, BitWidth: bits, Name: fmt.Sprintf("Float%d", bits)}
}

var Bool = &Type{Kind: KindPrimitive, Prim: PrimBool, BitWidth: 8, Name: "Bool"}
var Char = &Type{Kind: KindPrimitive, Prim: PrimChar, BitWidth: 32, Name: "Char"}

// String is the built-in reference-like string class every interned
// StringLiteral (spec §4.7: "pointer to the interned object") is typed as.
var String = &Type{Kind: KindNonGenericClass, Name: "String", IsStruct: false}

// NewPointer builds a KindPointer referring to elem.
func NewPointer(elem *Type) *Type {
	return &Type{Kind: KindPointer, Elem: elem, Name: "Pointer(" + elem.Name + ")"}
}

// NewNilable builds a reference-like-or-nil type, represented at runtime by
// pointer null-ness (spec §4.8: "Reference-like -> nilable: no-op").
func NewNilable(elem *Type) *Type {
	return &Type{Kind: KindNilable, Elem: elem, Name: elem.Name + "?"}
}

// NewReferenceUnion builds a union of reference-typed variants, represented
// purely by runtime type-id (no boxing).
func NewReferenceUnion(variants ...*Type) *Type {
	return &Type{Kind: KindReferenceUnion, Variants: variants, Name: unionName(variants)}
}

// NewMixedUnion builds a tagged union with an 8-byte type-id tag followed by
// the widest variant's payload.
func NewMixedUnion(variants ...*Type) *Type {
	return &Type{Kind: KindMixedUnion, Variants: variants, Name: unionName(variants)}
}

func unionName(variants []*Type) string {
	name := ""
	for i, v := range variants {
		if i > 0 {
			name += " | "
		}
		name += v.Name
	}
	return name
}

// NewClass builds either a struct (isStruct=true, passed by value, mutable
// aggregate) or a reference class (passed by reference identity).
func NewClass(name string, isStruct bool, fields ...Field) *Type {
	laidOut := layoutFields(fields)
	return &Type{Kind: KindNonGenericClass, Name: name, IsStruct: isStruct, Fields: laidOut}
}

// NewTuple builds a positional tuple type, laying out its elements
// sequentially as spec §4.7's tuple-literal lowering rule assumes.
func NewTuple(elems ...*Type) *Type {
	fields := make([]Field, len(elems))
	for i, e := range elems {
		fields[i] = Field{Name: fmt.Sprintf("%d", i), Type: e}
	}
	return &Type{Kind: KindTuple, Name: "Tuple", Fields: layoutFields(fields)}
}

// NewNamedTuple builds a tuple type whose elements are addressed by name.
func NewNamedTuple(fields ...Field) *Type {
	return &Type{Kind: KindNamedTuple, Name: "NamedTuple", Fields: layoutFields(fields)}
}

// NewStaticArray builds a fixed-length array of a single element type. Static
// arrays are always struct? (passed_by_value) per §9's needs-struct-pointer
// predicate.
func NewStaticArray(elem *Type, length int) *Type {
	return &Type{Kind: KindStaticArray, Elem: elem, ArrayLen: length, Name: fmt.Sprintf("%s[%d]", elem.Name, length)}
}

// NewVirtual builds the polymorphic supertype of underlying, whose runtime
// variant is identified by type-id rather than boxed storage.
func NewVirtual(underlying *Type) *Type {
	return &Type{Kind: KindVirtual, Elem: underlying, Name: underlying.Name + "+"}
}

// layoutFields assigns sequential byte offsets, aligning each field to its
// own size (a simplification of natural alignment sufficient for the
// deterministic-per-identity contract spec §4.3 requires).
func layoutFields(fields []Field) []Field {
	offset := 0
	out := make([]Field, len(fields))
	for i, f := range fields {
		align := f.Type.AlignedSize()
		if align == 0 {
			align = 1
		}
		if rem := offset % align; rem != 0 {
			offset += align - rem
		}
		f.Offset = offset
		offset += align
		out[i] = f
	}
	return out
}

// AlignedSize is the stack/struct-field footprint of t, including any
// trailing padding a surrounding aggregate's layout depends on.
func (t *Type) AlignedSize() int {
	if t == nil {
		return 0
	}
	switch t.Kind {
	case KindPrimitive:
		switch t.Prim {
		case PrimNilType, PrimVoid:
			return 0
		case PrimBool:
			return 1
		case PrimChar:
			return 4
		default:
			return t.BitWidth / 8
		}
	case KindPointer, KindVirtual, KindVirtualMetaclass, KindNilable, KindProc, KindModule, KindClassType, KindLibType:
		return PointerWidth
	case KindReferenceUnion, KindNilableReferenceUnion:
		return PointerWidth
	case KindMixedUnion:
		return PointerWidth + t.InnerSize()
	case KindTuple, KindNamedTuple:
		total := 0
		for _, f := range t.Fields {
			total += f.Type.AlignedSize()
		}
		return total
	case KindStaticArray:
		return t.Elem.AlignedSize() * t.ArrayLen
	case KindEnum:
		return 4
	case KindNonGenericClass, KindGenericClassInstance:
		if t.IsStruct {
			total := 0
			for _, f := range t.Fields {
				total += f.Type.AlignedSize()
			}
			return total
		}
		return PointerWidth
	case KindTypeDef, KindAlias:
		return t.Target.AlignedSize()
	default:
		return PointerWidth
	}
}

// InnerSize is the payload footprint of t, excluding the 8-byte type-id tag
// a mixed union built from it would carry (spec §3).
func (t *Type) InnerSize() int {
	if t == nil {
		return 0
	}
	if t.Kind == KindMixedUnion {
		widest := 0
		for _, v := range t.Variants {
			if s := v.AlignedSize(); s > widest {
				widest = s
			}
		}
		return widest
	}
	return t.AlignedSize()
}

// PassedByValue reports whether calling/returning t copies its bytes
// (structs, tuples, static arrays) rather than passing a reference.
func (t *Type) PassedByValue() bool {
	if t == nil {
		return false
	}
	switch t.Kind {
	case KindTuple, KindNamedTuple, KindStaticArray:
		return true
	case KindNonGenericClass, KindGenericClassInstance:
		return t.IsStruct
	case KindTypeDef, KindAlias:
		return t.Target.PassedByValue()
	default:
		return false
	}
}

// IsNilType reports whether t is exactly the absence-of-value type.
func (t *Type) IsNilType() bool {
	return t != nil && t.Kind == KindPrimitive && t.Prim == PrimNilType
}

// IsStructType reports "struct?" per spec §3/§9 — a mutable, by-value
// aggregate that mutating methods need a self-pointer for.
func (t *Type) IsStructType() bool {
	if t == nil {
		return false
	}
	switch t.Kind {
	case KindStaticArray, KindTuple, KindNamedTuple:
		return true
	case KindNonGenericClass, KindGenericClassInstance:
		return t.IsStruct
	case KindVirtual:
		return t.Elem.IsStructType()
	case KindTypeDef, KindAlias:
		return t.Target.IsStructType()
	case KindModule:
		return false
	default:
		return false
	}
}

// ReferenceLike reports whether t's runtime representation is a single
// pointer-width reference (classes, modules, procs, virtuals...).
func (t *Type) ReferenceLike() bool {
	if t == nil {
		return false
	}
	switch t.Kind {
	case KindNonGenericClass, KindGenericClassInstance:
		return !t.IsStruct
	case KindVirtual, KindModule, KindProc, KindClassType, KindLibType:
		return true
	case KindReferenceUnion:
		return true
	default:
		return false
	}
}

// IsPointer reports whether t is a raw pointer type.
func (t *Type) IsPointer() bool {
	return t != nil && t.Kind == KindPointer
}

// LookupInstanceVar resolves an instance-variable name to its byte offset
// and declared type within t's layout.
func (t *Type) LookupInstanceVar(name string) (offset int, fieldType *Type, ok bool) {
	if t == nil {
		return 0, nil, false
	}
	if t.Kind == KindTypeDef || t.Kind == KindAlias {
		return t.Target.LookupInstanceVar(name)
	}
	for _, f := range t.Fields {
		if f.Name == name {
			return f.Offset, f.Type, true
		}
	}
	return 0, nil, false
}

// RemoveIndirection strips type-defs and aliases down to the underlying
// type they forward to.
func (t *Type) RemoveIndirection() *Type {
	for t != nil && (t.Kind == KindTypeDef || t.Kind == KindAlias) {
		t = t.Target
	}
	return t
}

// FilterBy narrows t to the subset of its runtime representation compatible
// with target — e.g. narrowing a reference union down to one variant after
// an is_a? check. A union returns its matching variant, or nil if target is
// not one of its members; a virtual t returns target unchanged; any other t
// returns itself when target is t and nil otherwise.
func (t *Type) FilterBy(target *Type) *Type {
	if t == nil || target == nil {
		return target
	}
	switch t.Kind {
	case KindReferenceUnion, KindMixedUnion, KindNilableReferenceUnion:
		for _, v := range t.Variants {
			if v.TypeID() == target.TypeID() {
				return v
			}
		}
		return nil
	case KindNilable:
		if target.IsNilType() {
			return NilType
		}
		return t.Elem
	case KindVirtual:
		return target
	default:
		if t.TypeID() == target.TypeID() {
			return t
		}
		return nil
	}
}

// Merge implements type_merge: the least upper bound the def/block pair can
// observably return (spec §6, §9 merge-block-break-type).
func Merge(ts []*Type) *Type {
	var live []*Type
	for _, t := range ts {
		if t == nil || t == NoReturn {
			continue
		}
		live = append(live, t)
	}
	if len(live) == 0 {
		return NoReturn
	}
	if len(live) == 1 {
		return live[0]
	}
	same := true
	for _, t := range live[1:] {
		if t.TypeID() != live[0].TypeID() {
			same = false
			break
		}
	}
	if same {
		return live[0]
	}
	hasNil := false
	var rest []*Type
	for _, t := range live {
		if t.IsNilType() {
			hasNil = true
			continue
		}
		rest = append(rest, t)
	}
	if hasNil && len(rest) == 1 && rest[0].ReferenceLike() {
		return NewNilable(rest[0])
	}
	return NewMixedUnion(live...)
}
