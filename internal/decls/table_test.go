package decls

import (
	"testing"

	"conform/internal/types"
)

func newTestTable() (*Table, DeclID) {
	table := NewTable(types.NewInterner(nil))
	return table, table.NewModule("Swiftish")
}

func TestProtocolRequirements(t *testing.T) {
	table, mod := newTestTable()
	equatable := table.NewProtocol(mod, "Equatable", nil)
	seq := table.NewProtocol(mod, "Sequence", nil)
	coll := table.NewProtocol(mod, "Collection", []DeclID{seq})

	elem := table.NewAssocType(coll, "Element", []DeclID{equatable})
	count := table.NewRequirement(coll, "count", KindVar, table.Types.Builtins().Int)

	if got := table.Requirements(coll); len(got) != 2 || got[0] != elem || got[1] != count {
		t.Fatalf("unexpected requirements %v", got)
	}
	if table.RequirementProtocol(elem) != coll || table.RequirementProtocol(count) != coll {
		t.Fatalf("requirements must belong to Collection")
	}
	if !table.IsAssocType(elem) || table.IsAssocType(count) {
		t.Fatalf("assoc type classification wrong")
	}
	if a := table.AssocTypes(coll); len(a) != 1 || a[0] != elem {
		t.Fatalf("unexpected assoc types %v", a)
	}
	if v := table.ValueRequirements(coll); len(v) != 1 || v[0] != count {
		t.Fatalf("unexpected value requirements %v", v)
	}
	if got, ok := table.Member(coll, "Element"); !ok || got != elem {
		t.Fatalf("Member lookup failed")
	}

	archetype := table.DeclaredType(elem)
	if !table.Types.IsTypeParam(archetype) {
		t.Fatalf("assoc type must carry an archetype")
	}
	if table.ArchetypeDecl(archetype) != elem {
		t.Fatalf("archetype should point back at its decl")
	}
	if b := table.ArchetypeBounds(archetype); len(b) != 1 || b[0] != equatable {
		t.Fatalf("unexpected archetype bounds %v", b)
	}
	if table.QualifiedName(elem) != "Collection.Element" {
		t.Fatalf("unexpected qualified name %q", table.QualifiedName(elem))
	}
}

func TestRefinesIsTransitive(t *testing.T) {
	table, mod := newTestTable()
	a := table.NewProtocol(mod, "A", nil)
	b := table.NewProtocol(mod, "B", []DeclID{a})
	c := table.NewProtocol(mod, "C", []DeclID{b})

	if !table.Refines(c, a) || !table.Refines(c, b) || !table.Refines(b, a) {
		t.Fatalf("refinement should be transitive")
	}
	if table.Refines(a, c) || table.Refines(a, a) {
		t.Fatalf("refinement must be strict and directed")
	}
}

func TestNominalDeclaredTypeInContext(t *testing.T) {
	table, mod := newTestTable()
	hashable := table.NewProtocol(mod, "Hashable", nil)
	dict := table.NewNominal(mod, "Dictionary", []ParamSpec{{Name: "Key", Bounds: []DeclID{hashable}}, {Name: "Value"}})
	index := table.NewNominal(dict, "Index", nil)

	params := table.GenericParams(dict)
	if len(params) != 2 {
		t.Fatalf("expected 2 generic params, got %d", len(params))
	}
	if b := table.Bounds(params[0]); len(b) != 1 || b[0] != hashable {
		t.Fatalf("Key should be bounded by Hashable")
	}
	if got := types.Label(table.Types, table.DeclaredType(dict)); got != "Dictionary<Key, Value>" {
		t.Fatalf("unexpected declared type %q", got)
	}
	if got := types.Label(table.Types, table.DeclaredType(index)); got != "Dictionary<Key, Value>.Index" {
		t.Fatalf("unexpected nested declared type %q", got)
	}
	if table.ParentModule(index) != mod {
		t.Fatalf("ParentModule should walk to the module")
	}
	if table.QualifiedName(index) != "Dictionary.Index" {
		t.Fatalf("unexpected qualified name %q", table.QualifiedName(index))
	}
}

func TestExtensionContextType(t *testing.T) {
	table, mod := newTestTable()
	point := table.NewNominal(mod, "Point", nil)
	ext := table.NewExtension(mod, point)
	fn := table.NewFunc(ext, "distance", KindFunc, table.Types.Builtins().Float, false)

	if table.ContextType(ext) != table.DeclaredType(point) {
		t.Fatalf("extension must add members to the extended type")
	}
	if table.IsChecked(fn) {
		t.Fatalf("func declared unchecked")
	}
	table.MarkChecked(fn)
	if !table.IsChecked(fn) {
		t.Fatalf("MarkChecked did not stick")
	}
	if table.QualifiedName(fn) != "Point.distance" {
		t.Fatalf("unexpected qualified name %q", table.QualifiedName(fn))
	}
	if got, ok := table.Find(ext, "distance", KindFunc); !ok || got != fn {
		t.Fatalf("Find failed")
	}
}

func TestInvalidKindPanics(t *testing.T) {
	table, mod := newTestTable()
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for assoc type outside a protocol")
		}
	}()
	table.NewAssocType(mod, "Element", nil)
}
