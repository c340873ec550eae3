package lookup

import (
	"testing"

	"conform/internal/conformance"
	"conform/internal/decls"
	"conform/internal/types"
)

type env struct {
	ctx   *conformance.Context
	table *Table
	d     *decls.Table
	b     types.Builtins
	mod   decls.DeclID
	eq    decls.DeclID
	coll  decls.DeclID
	elem  decls.DeclID
	count decls.DeclID
}

// newEnv declares Equatable and Collection { associatedtype Element: Equatable; var count }
// with Int: Equatable registered.
func newEnv(t *testing.T) *env {
	t.Helper()
	d := decls.NewTable(types.NewInterner(nil))
	ctx := conformance.NewContext(d)
	e := &env{ctx: ctx, table: New(ctx), d: d, b: d.Types.Builtins()}
	e.mod = d.NewModule("Main")
	e.eq = d.NewProtocol(e.mod, "Equatable", nil)
	e.coll = d.NewProtocol(e.mod, "Collection", nil)
	e.elem = d.NewAssocType(e.coll, "Element", []decls.DeclID{e.eq})
	e.count = d.NewRequirement(e.coll, "count", decls.KindVar, e.b.Int)
	e.register(t, ctx.NewNormal(e.b.Int, e.eq, e.mod))
	return e
}

func (e *env) register(t *testing.T, c *conformance.NormalConformance) *conformance.NormalConformance {
	t.Helper()
	if c.State() == conformance.StateIncomplete {
		c.Complete()
	}
	if err := e.table.Register(c); err != nil {
		t.Fatalf("register: %v", err)
	}
	return c
}

// array declares Array<T: Equatable>: Collection with Element := T.
func (e *env) array(t *testing.T) (decls.DeclID, *conformance.NormalConformance) {
	t.Helper()
	arr := e.d.NewNominal(e.mod, "Array", []decls.ParamSpec{{Name: "T", Bounds: []decls.DeclID{e.eq}}})
	countImpl := e.d.NewFunc(arr, "count", decls.KindVar, e.b.Int, true)
	tParam := e.d.DeclaredType(e.d.GenericParams(arr)[0])

	c := e.ctx.NewNormal(e.d.DeclaredType(arr), e.coll, arr)
	c.SetTypeWitness(e.elem, conformance.NewSubstitution(e.d.DeclaredType(e.elem), tParam, nil))
	c.SetWitness(e.count, conformance.DeclRef{Decl: countImpl})
	return arr, e.register(t, c)
}

func (e *env) instance(decl decls.DeclID, args ...types.TypeID) types.TypeID {
	return e.d.Types.RegisterNominal(e.d.MustGet(decl).Name, uint32(decl), types.NoTypeID, args)
}

func TestLookupBuiltinAndDeclared(t *testing.T) {
	e := newEnv(t)
	arr, generic := e.array(t)

	c, ok := e.table.LookupConformance(e.b.Int, e.eq, nil)
	if !ok || c.Type() != e.b.Int || c.Kind() != conformance.KindNormal {
		t.Fatalf("Int: Equatable not found")
	}
	if _, ok := e.table.LookupConformance(e.b.String, e.eq, nil); ok {
		t.Fatalf("String: Equatable was never registered")
	}
	c, ok = e.table.LookupConformance(e.d.DeclaredType(arr), e.coll, nil)
	if !ok || c != conformance.Conformance(generic) {
		t.Fatalf("declared type should resolve to the registered conformance")
	}
	if e.table.Derived() != 0 {
		t.Fatalf("no derived records expected")
	}
}

func TestLookupSpecializesGenericInstance(t *testing.T) {
	e := newEnv(t)
	arr, generic := e.array(t)
	arrInt := e.instance(arr, e.b.Int)

	c, ok := e.table.LookupConformance(arrInt, e.coll, nil)
	if !ok {
		t.Fatalf("Array<Int>: Collection not found")
	}
	s, isSpecialized := c.(*conformance.SpecializedConformance)
	if !isSpecialized || s.GenericConformance() != conformance.Conformance(generic) {
		t.Fatalf("expected a specialization of the generic conformance, got %T", c)
	}
	again, _ := e.table.LookupConformance(arrInt, e.coll, nil)
	if again != c {
		t.Fatalf("specialized records must be memoized")
	}

	sub := c.TypeWitness(e.elem, nil)
	if sub.Replacement() != e.b.Int {
		t.Fatalf("Element should be Int, got %s", types.Label(e.d.Types, sub.Replacement()))
	}
	intEq, _ := e.table.LookupConformance(e.b.Int, e.eq, nil)
	if confs := sub.Conformances(); len(confs) != 1 || confs[0] != intEq {
		t.Fatalf("Element witness should carry Int: Equatable, got %v", confs)
	}
	if got := conformance.Describe(e.ctx, c); got != "Array<Int>: Collection (specialized)" {
		t.Fatalf("unexpected description %q", got)
	}
}

func TestLookupRejectsUnsatisfiedArguments(t *testing.T) {
	e := newEnv(t)
	arr, _ := e.array(t)
	if _, ok := e.table.LookupConformance(e.instance(arr, e.b.Float), e.coll, nil); ok {
		t.Fatalf("Array<Float> cannot conform: Float is not Equatable")
	}
}

func TestLookupArchetypeIsAbstract(t *testing.T) {
	e := newEnv(t)
	hashable := e.d.NewProtocol(e.mod, "Hashable", []decls.DeclID{e.eq})
	g := e.d.NewNominal(e.mod, "Box", []decls.ParamSpec{{Name: "T", Bounds: []decls.DeclID{hashable}}})
	tParam := e.d.DeclaredType(e.d.GenericParams(g)[0])

	for _, proto := range []decls.DeclID{hashable, e.eq} {
		c, ok := e.table.LookupConformance(tParam, proto, nil)
		if !ok || c != nil {
			t.Fatalf("archetype should conform abstractly to %s", e.d.Name(proto))
		}
	}
	if _, ok := e.table.LookupConformance(tParam, e.coll, nil); ok {
		t.Fatalf("archetype is not constrained to Collection")
	}
}

func TestLookupInheritsFromSuperclass(t *testing.T) {
	e := newEnv(t)
	base := e.d.NewNominal(e.mod, "Base", nil)
	sub := e.d.NewNominal(e.mod, "Sub", nil)
	e.d.SetSuperclass(sub, e.d.DeclaredType(base))
	baseConf := e.register(t, e.ctx.NewNormal(e.d.DeclaredType(base), e.eq, base))

	c, ok := e.table.LookupConformance(e.d.DeclaredType(sub), e.eq, nil)
	if !ok {
		t.Fatalf("Sub should inherit Base: Equatable")
	}
	in, isInherited := c.(*conformance.InheritedConformance)
	if !isInherited || in.Base() != conformance.Conformance(baseConf) || in.Type() != e.d.DeclaredType(sub) {
		t.Fatalf("expected inherited record over Base, got %T", c)
	}
	if again, _ := e.table.LookupConformance(e.d.DeclaredType(sub), e.eq, nil); again != c {
		t.Fatalf("inherited records must be memoized")
	}
	if _, ok := e.table.LookupConformance(e.d.DeclaredType(sub), e.coll, nil); ok {
		t.Fatalf("neither class conforms to Collection")
	}
}

func TestLookupInheritsSpecializedSuperclass(t *testing.T) {
	e := newEnv(t)
	arr, generic := e.array(t)
	tagged := e.d.NewNominal(e.mod, "IntArray", nil)
	e.d.SetSuperclass(tagged, e.instance(arr, e.b.Int))

	c, ok := e.table.LookupConformance(e.d.DeclaredType(tagged), e.coll, nil)
	if !ok {
		t.Fatalf("IntArray should inherit Array<Int>: Collection")
	}
	if conformance.Root(c) != generic {
		t.Fatalf("root should be the generic Array conformance")
	}
	if got := c.TypeWitness(e.elem, nil).Replacement(); got != e.b.Int {
		t.Fatalf("Element should be Int, got %s", types.Label(e.d.Types, got))
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	e := newEnv(t)
	arr, _ := e.array(t)
	dup := e.ctx.NewNormal(e.d.DeclaredType(arr), e.coll, arr)
	if err := e.table.Register(dup); err == nil {
		t.Fatalf("expected duplicate conformance error")
	}
	if err := e.table.Register(e.ctx.NewNormal(e.b.Int, e.eq, e.mod)); err == nil {
		t.Fatalf("expected duplicate builtin conformance error")
	}
	if got := len(e.table.Registered()); got != 2 {
		t.Fatalf("expected 2 registered conformances, got %d", got)
	}
}
