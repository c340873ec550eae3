package conformance

import (
	"errors"
	"sync"
	"testing"

	"conform/internal/decls"
	"conform/internal/types"
)

// world is a small module:
//
//	protocol Equatable
//	protocol P { associatedtype Assoc: Equatable; func fn() }
//	Int: Equatable, String: Equatable (module-level)
type world struct {
	ctx    *Context
	decls  *decls.Table
	types  *types.Interner
	b      types.Builtins
	mod    decls.DeclID
	eq     decls.DeclID
	p      decls.DeclID
	assoc  decls.DeclID
	fn     decls.DeclID
	lookup *fakeLookup

	intEq    *NormalConformance
	stringEq *NormalConformance
}

func newWorld(t *testing.T) *world {
	t.Helper()
	typesIn := types.NewInterner(nil)
	table := decls.NewTable(typesIn)
	w := &world{
		decls:  table,
		types:  typesIn,
		b:      typesIn.Builtins(),
		lookup: newFakeLookup(),
	}
	w.ctx = NewContext(table)
	w.ctx.SetLookup(w.lookup)
	w.mod = table.NewModule("Main")
	w.eq = table.NewProtocol(w.mod, "Equatable", nil)
	w.p = table.NewProtocol(w.mod, "P", nil)
	w.assoc = table.NewAssocType(w.p, "Assoc", []decls.DeclID{w.eq})
	w.fn = table.NewRequirement(w.p, "fn", decls.KindFunc, types.NoTypeID)

	w.intEq = w.builtinConformance(w.b.Int, w.eq)
	w.stringEq = w.builtinConformance(w.b.String, w.eq)
	return w
}

func (w *world) builtinConformance(typ types.TypeID, proto decls.DeclID) *NormalConformance {
	c := w.ctx.NewNormal(typ, proto, w.mod)
	c.Complete()
	w.lookup.add(typ, proto, c)
	return c
}

func (w *world) archetype(d decls.DeclID) types.TypeID {
	return w.decls.DeclaredType(d)
}

// nominal declares a type with the given generic parameter names, each
// bounded by Equatable, and returns the decl, its declared type and the
// parameter decls.
func (w *world) nominal(name string, params ...string) (decls.DeclID, types.TypeID, []decls.DeclID) {
	specs := make([]decls.ParamSpec, 0, len(params))
	for _, p := range params {
		specs = append(specs, decls.ParamSpec{Name: p, Bounds: []decls.DeclID{w.eq}})
	}
	d := w.decls.NewNominal(w.mod, name, specs)
	return d, w.decls.DeclaredType(d), w.decls.GenericParams(d)
}

func (w *world) instance(nominal decls.DeclID, args ...types.TypeID) types.TypeID {
	d := w.decls.MustGet(nominal)
	return w.types.RegisterNominal(d.Name, uint32(nominal), types.NoTypeID, args)
}

type lookupKey struct {
	typ   types.TypeID
	proto decls.DeclID
}

type fakeLookup struct {
	mu      sync.Mutex
	entries map[lookupKey]Conformance
	calls   int
}

func newFakeLookup() *fakeLookup {
	return &fakeLookup{entries: make(map[lookupKey]Conformance)}
}

func (f *fakeLookup) add(typ types.TypeID, proto decls.DeclID, c Conformance) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[lookupKey{typ, proto}] = c
}

func (f *fakeLookup) LookupConformance(typ types.TypeID, proto decls.DeclID, _ Resolver) (Conformance, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	c, ok := f.entries[lookupKey{typ, proto}]
	return c, ok
}

func (f *fakeLookup) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func mustViolate(t *testing.T, code Code, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected %q violation, got none", code)
		}
		err, ok := r.(error)
		var v *Violation
		if !ok || !errors.As(err, &v) {
			t.Fatalf("expected *Violation panic, got %v", r)
		}
		if v.Code != code {
			t.Fatalf("expected %q violation, got %q (%v)", code, v.Code, v)
		}
	}()
	fn()
}
