package types

import "testing"

// TestTypeIDNilSafe grounds the root cause of a real bug elsewhere (a
// multidispatch cascade over free-function overloads, whose candidates
// legitimately carry a nil Owner): TypeID must return 0 for a nil receiver
// rather than panicking, since nil here means "no owner", not "not yet
// computed".
func TestTypeIDNilSafe(t *testing.T) {
	var nilType *Type
	if id := nilType.TypeID(); id != 0 {
		t.Fatalf("expected a nil *Type to report TypeID 0, got %d", id)
	}
}

func TestTypeIDStableAndDistinct(t *testing.T) {
	a := NewInt(32)
	b := NewInt(32)
	if a.TypeID() != a.TypeID() {
		t.Fatalf("expected repeated calls on the same *Type to return the same id")
	}
	if a.TypeID() == b.TypeID() {
		t.Fatalf("expected two distinct *Type values to get distinct ids even with identical shape")
	}
}

func TestAlignedSizePrimitives(t *testing.T) {
	cases := []struct {
		name string
		t    *Type
		want int
	}{
		{"nil type", NilType, 0},
		{"bool", &Type{Kind: KindPrimitive, Prim: PrimBool}, 1},
		{"char", &Type{Kind: KindPrimitive, Prim: PrimChar}, 4},
		{"int32", NewInt(32), 4},
		{"int64", NewInt(64), 8},
		{"float64", NewFloat(64), 8},
		{"pointer", NewPointer(NewInt(32)), PointerWidth},
		{"nilable", NewNilable(NewInt(32)), PointerWidth},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.t.AlignedSize(); got != c.want {
				t.Errorf("got %d, want %d", got, c.want)
			}
		})
	}
}

func TestAlignedSizeMixedUnionIncludesTag(t *testing.T) {
	u := NewMixedUnion(NewInt(32), String)
	if got, want := u.AlignedSize(), PointerWidth+u.InnerSize(); got != want {
		t.Errorf("expected mixed union size to be tag width + widest payload, got %d want %d", got, want)
	}
	if u.InnerSize() < NewInt(32).AlignedSize() {
		t.Errorf("expected inner size to be at least as wide as the widest variant")
	}
}

func TestAlignedSizeStructSumsFields(t *testing.T) {
	s := NewClass("Point", true, Field{Name: "x", Type: NewInt(32)}, Field{Name: "y", Type: NewInt(32)})
	if got, want := s.AlignedSize(), 8; got != want {
		t.Errorf("expected a struct's size to be the sum of its fields, got %d want %d", got, want)
	}
}

func TestAlignedSizeNonStructClassIsPointerWidth(t *testing.T) {
	c := NewClass("Widget", false, Field{Name: "x", Type: NewInt(32)})
	if got := c.AlignedSize(); got != PointerWidth {
		t.Errorf("expected a reference class's size to be pointer width regardless of its fields, got %d", got)
	}
}

func TestMergeSameTypeCollapses(t *testing.T) {
	a := NewInt(32)
	got := Merge([]*Type{a, a, a})
	if got.TypeID() != a.TypeID() {
		t.Fatalf("expected merging identical types to return that type unchanged")
	}
}

func TestMergeNilPlusReferenceLikeIsNilable(t *testing.T) {
	widget := NewClass("Widget", false)
	got := Merge([]*Type{NilType, widget})
	if got.Kind != KindNilable {
		t.Fatalf("expected Nil + a reference-like type to merge to KindNilable, got %v", got.Kind)
	}
}

func TestMergeDistinctTypesIsMixedUnion(t *testing.T) {
	got := Merge([]*Type{NewInt(32), String})
	if got.Kind != KindMixedUnion {
		t.Fatalf("expected merging unrelated types to produce a mixed union, got %v", got.Kind)
	}
}

func TestMergeEmptyIsNoReturn(t *testing.T) {
	got := Merge(nil)
	if got != NoReturn {
		t.Fatalf("expected merging no branches at all to yield the NoReturn sentinel")
	}
}

func TestFilterByNarrowsUnionToVariant(t *testing.T) {
	widget := NewClass("Widget", false)
	gadget := NewClass("Gadget", false)
	union := NewReferenceUnion(widget, gadget)
	if got := union.FilterBy(widget); got.TypeID() != widget.TypeID() {
		t.Fatalf("expected FilterBy to narrow a union down to the matching variant")
	}
	if got := union.FilterBy(NewClass("Other", false)); got != nil {
		t.Fatalf("expected FilterBy to return nil for a type outside the union, got %v", got)
	}
}
