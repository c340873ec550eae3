package types

import "testing"

func TestInternerBuiltins(t *testing.T) {
	in := NewInterner(nil)
	b := in.Builtins()
	if b.Unit == NoTypeID || b.Bool == NoTypeID || b.String == NoTypeID {
		t.Fatalf("builtins not initialized")
	}
	unit, _ := in.Lookup(b.Unit)
	if unit.Kind != KindUnit {
		t.Fatalf("expected unit kind, got %v", unit.Kind)
	}
	if _, ok := in.Lookup(NoTypeID); ok {
		t.Fatalf("NoTypeID must not resolve")
	}
}

func TestInternerDeduplicatesDescriptors(t *testing.T) {
	in := NewInterner(nil)
	elem := in.Builtins().String
	arr1 := in.Intern(MakeArray(elem))
	arr2 := in.Intern(MakeArray(elem))
	if arr1 != arr2 {
		t.Fatalf("array types should be deduplicated")
	}
	fn1 := in.RegisterFn([]TypeID{elem}, in.Builtins().Int)
	fn2 := in.RegisterFn([]TypeID{elem}, in.Builtins().Int)
	if fn1 != fn2 {
		t.Fatalf("fn types should be deduplicated")
	}
}

func TestRegisterNominalKinds(t *testing.T) {
	in := NewInterner(nil)
	name := in.Strings.Intern("Array")
	param := in.RegisterTypeParam(in.Strings.Intern("T"), 7, 0)
	generic := in.RegisterNominal(name, 3, NoTypeID, []TypeID{param})
	plain := in.RegisterNominal(in.Strings.Intern("Point"), 4, NoTypeID, nil)

	if tt := in.MustLookup(generic); tt.Kind != KindBoundGeneric {
		t.Fatalf("expected bound-generic kind, got %v", tt.Kind)
	}
	if tt := in.MustLookup(plain); tt.Kind != KindNominal {
		t.Fatalf("expected nominal kind, got %v", tt.Kind)
	}
	if again := in.RegisterNominal(name, 3, NoTypeID, []TypeID{param}); again != generic {
		t.Fatalf("identical instance should reuse TypeID")
	}
	if other := in.RegisterNominal(name, 3, NoTypeID, []TypeID{in.Builtins().Int}); other == generic {
		t.Fatalf("different args must produce a different TypeID")
	}
	if !in.HasTypeParams(generic) || in.HasTypeParams(plain) {
		t.Fatalf("HasTypeParams mismatch")
	}
	if in.NominalDecl(generic) != 3 {
		t.Fatalf("unexpected decl %d", in.NominalDecl(generic))
	}
}

func TestTypeParamsAreDistinct(t *testing.T) {
	in := NewInterner(nil)
	name := in.Strings.Intern("T")
	a := in.RegisterTypeParam(name, 1, 0)
	b := in.RegisterTypeParam(name, 2, 0)
	if a == b {
		t.Fatalf("archetypes must not be deduplicated")
	}
	info, ok := in.TypeParamInfo(b)
	if !ok || info.Decl != 2 {
		t.Fatalf("unexpected param info %+v ok=%v", info, ok)
	}
}

func TestLabel(t *testing.T) {
	in := NewInterner(nil)
	b := in.Builtins()
	outer := in.RegisterNominal(in.Strings.Intern("Outer"), 1, NoTypeID, nil)
	dict := in.RegisterNominal(in.Strings.Intern("Dict"), 2, outer, []TypeID{b.String, in.Intern(MakeArray(b.Int))})
	fn := in.RegisterFn([]TypeID{dict}, b.Bool)

	if got := Label(in, dict); got != "Outer.Dict<String, [Int]>" {
		t.Fatalf("unexpected label %q", got)
	}
	if got := Label(in, fn); got != "fn(Outer.Dict<String, [Int]>) -> Bool" {
		t.Fatalf("unexpected label %q", got)
	}
	if got := Label(in, NoTypeID); got != "?" {
		t.Fatalf("unexpected label %q", got)
	}
}
