package decls

import (
	"fmt"
	"slices"
	"sync"

	"fortio.org/safecast"

	"conform/internal/source"
	"conform/internal/types"
)

// Table stores declarations in a compact slice-based arena. Index 0 is
// reserved for NoDeclID. Safe for concurrent use.
type Table struct {
	Strings *source.Interner
	Types   *types.Interner

	mu   sync.RWMutex
	data []Decl
}

// NewTable creates an arena bound to the provided type interner.
func NewTable(typesIn *types.Interner) *Table {
	if typesIn == nil {
		typesIn = types.NewInterner(nil)
	}
	return &Table{
		Strings: typesIn.Strings,
		Types:   typesIn,
		data:    make([]Decl, 1, 64),
	}
}

func (t *Table) add(d *Decl) DeclID {
	t.mu.Lock()
	defer t.mu.Unlock()
	value, err := safecast.Conv[uint32](len(t.data))
	if err != nil {
		panic(fmt.Errorf("decl arena overflow: %w", err))
	}
	t.data = append(t.data, *d)
	return DeclID(value)
}

func (t *Table) update(id DeclID, fn func(d *Decl)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !id.IsValid() || int(id) >= len(t.data) {
		panic(fmt.Sprintf("decls: invalid DeclID %d", id))
	}
	fn(&t.data[id])
}

// Get returns a copy of the declaration.
func (t *Table) Get(id DeclID) (Decl, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if !id.IsValid() || int(id) >= len(t.data) {
		return Decl{}, false
	}
	d := t.data[id]
	d.GenericParams = slices.Clone(d.GenericParams)
	d.Bounds = slices.Clone(d.Bounds)
	d.Members = slices.Clone(d.Members)
	return d, true
}

// MustGet panics when id is invalid.
func (t *Table) MustGet(id DeclID) Decl {
	d, ok := t.Get(id)
	if !ok {
		panic(fmt.Sprintf("decls: invalid DeclID %d", id))
	}
	return d
}

// Len reports the number of declarations excluding the sentinel.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.data) - 1
}

// NewModule declares a module.
func (t *Table) NewModule(name string) DeclID {
	return t.add(&Decl{Kind: KindModule, Name: t.Strings.Intern(name), Flags: FlagChecked})
}

// NewProtocol declares a protocol refining the given protocols.
func (t *Table) NewProtocol(module DeclID, name string, refines []DeclID) DeclID {
	for _, p := range refines {
		t.expectKind(p, KindProtocol)
	}
	return t.add(&Decl{
		Kind:   KindProtocol,
		Name:   t.Strings.Intern(name),
		Parent: module,
		Bounds: slices.Clone(refines),
		Flags:  FlagChecked,
	})
}

// NewAssocType declares an associated type requirement of proto and gives
// it an archetype.
func (t *Table) NewAssocType(proto DeclID, name string, bounds []DeclID) DeclID {
	t.expectKind(proto, KindProtocol)
	nameID := t.Strings.Intern(name)
	id := t.add(&Decl{
		Kind:   KindAssocType,
		Name:   nameID,
		Parent: proto,
		Bounds: slices.Clone(bounds),
		Flags:  FlagChecked,
	})
	archetype := t.Types.RegisterTypeParam(nameID, uint32(id), 0)
	t.update(id, func(d *Decl) { d.Type = archetype })
	t.update(proto, func(d *Decl) { d.Members = append(d.Members, id) })
	return id
}

// NewRequirement declares a value requirement (KindFunc or KindVar) of proto.
func (t *Table) NewRequirement(proto DeclID, name string, kind Kind, typ types.TypeID) DeclID {
	t.expectKind(proto, KindProtocol)
	if kind != KindFunc && kind != KindVar {
		panic(fmt.Sprintf("decls: requirement kind %s is not a value kind", kind))
	}
	id := t.add(&Decl{
		Kind:   kind,
		Name:   t.Strings.Intern(name),
		Parent: proto,
		Type:   typ,
		Flags:  FlagChecked,
	})
	t.update(proto, func(d *Decl) { d.Members = append(d.Members, id) })
	return id
}

// SetDefault records impl as the default implementation of a value requirement.
func (t *Table) SetDefault(req, impl DeclID) {
	t.update(req, func(d *Decl) { d.Default = impl })
}

// SetDefaultType records the default type of an associated type.
func (t *Table) SetDefaultType(assoc DeclID, typ types.TypeID) {
	t.expectKind(assoc, KindAssocType)
	t.update(assoc, func(d *Decl) { d.DefaultType = typ })
}

// NewNominal declares a nominal type inside parent (a module or another
// nominal) with the given generic parameters, and interns its declared type
// in context: the type applied to its own archetypes.
func (t *Table) NewNominal(parent DeclID, name string, params []ParamSpec) DeclID {
	nameID := t.Strings.Intern(name)
	id := t.add(&Decl{Kind: KindNominal, Name: nameID, Parent: parent, Flags: FlagChecked})

	paramIDs := make([]DeclID, 0, len(params))
	args := make([]types.TypeID, 0, len(params))
	for i, spec := range params {
		pName := t.Strings.Intern(spec.Name)
		pid := t.add(&Decl{
			Kind:   KindGenericParam,
			Name:   pName,
			Parent: id,
			Bounds: slices.Clone(spec.Bounds),
			Flags:  FlagChecked,
		})
		index, err := safecast.Conv[uint32](i)
		if err != nil {
			panic(fmt.Errorf("generic param index overflow: %w", err))
		}
		archetype := t.Types.RegisterTypeParam(pName, uint32(pid), index)
		t.update(pid, func(d *Decl) { d.Type = archetype })
		paramIDs = append(paramIDs, pid)
		args = append(args, archetype)
	}

	parentType := types.NoTypeID
	if p, ok := t.Get(parent); ok && p.Kind == KindNominal {
		parentType = p.Type
	}
	declared := t.Types.RegisterNominal(nameID, uint32(id), parentType, args)
	t.update(id, func(d *Decl) {
		d.GenericParams = paramIDs
		d.Type = declared
	})
	return id
}

// SetSuperclass marks nominal as a class inheriting from super.
func (t *Table) SetSuperclass(nominal DeclID, super types.TypeID) {
	t.expectKind(nominal, KindNominal)
	t.update(nominal, func(d *Decl) {
		d.Superclass = super
		d.Flags |= FlagClass
	})
}

// NewExtension declares an extension of nominal inside module.
func (t *Table) NewExtension(module, nominal DeclID) DeclID {
	t.expectKind(nominal, KindNominal)
	n := t.MustGet(nominal)
	return t.add(&Decl{Kind: KindExtension, Name: n.Name, Parent: module, Extended: nominal, Flags: FlagChecked})
}

// NewFunc declares a function or property (kind) in ctx. Declarations that
// are not checked yet must go through a resolver before use as witnesses.
func (t *Table) NewFunc(ctx DeclID, name string, kind Kind, typ types.TypeID, checked bool) DeclID {
	if kind != KindFunc && kind != KindVar {
		panic(fmt.Sprintf("decls: %s is not a value kind", kind))
	}
	var flags Flags
	if checked {
		flags = FlagChecked
	}
	return t.add(&Decl{Kind: kind, Name: t.Strings.Intern(name), Parent: ctx, Type: typ, Flags: flags})
}

// SetType records the type of a declaration once checked.
func (t *Table) SetType(id DeclID, typ types.TypeID) {
	t.update(id, func(d *Decl) { d.Type = typ })
}

// MarkChecked flags a declaration as fully type-checked.
func (t *Table) MarkChecked(id DeclID) {
	t.update(id, func(d *Decl) { d.Flags |= FlagChecked })
}

func (t *Table) expectKind(id DeclID, kind Kind) {
	d, ok := t.Get(id)
	if !ok || d.Kind != kind {
		panic(fmt.Sprintf("decls: %d is %s, expected %s", id, d.Kind, kind))
	}
}
