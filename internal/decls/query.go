package decls

import (
	"strings"

	"conform/internal/types"
)

// Kind returns the declaration kind or KindInvalid.
func (t *Table) Kind(id DeclID) Kind {
	d, ok := t.Get(id)
	if !ok {
		return KindInvalid
	}
	return d.Kind
}

// Name returns the declared name.
func (t *Table) Name(id DeclID) string {
	d, ok := t.Get(id)
	if !ok {
		return "?"
	}
	name, ok := t.Strings.Lookup(d.Name)
	if !ok || name == "" {
		return "?"
	}
	return name
}

// QualifiedName joins names up to (excluding) the module, e.g. "Collection.Element".
func (t *Table) QualifiedName(id DeclID) string {
	var parts []string
	for cur := id; cur.IsValid(); {
		d, ok := t.Get(cur)
		if !ok || d.Kind == KindModule {
			break
		}
		if d.Kind == KindExtension {
			cur = d.Extended
			continue
		}
		parts = append(parts, t.Name(cur))
		cur = d.Parent
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, ".")
}

// Parent returns the enclosing declaration context.
func (t *Table) Parent(id DeclID) DeclID {
	d, ok := t.Get(id)
	if !ok {
		return NoDeclID
	}
	return d.Parent
}

// ParentModule walks the context chain up to the owning module.
func (t *Table) ParentModule(id DeclID) DeclID {
	for cur := id; cur.IsValid(); {
		d, ok := t.Get(cur)
		if !ok {
			return NoDeclID
		}
		if d.Kind == KindModule {
			return cur
		}
		cur = d.Parent
	}
	return NoDeclID
}

// RequirementProtocol returns the protocol declaring req, or NoDeclID when
// req is not a protocol requirement.
func (t *Table) RequirementProtocol(req DeclID) DeclID {
	d, ok := t.Get(req)
	if !ok {
		return NoDeclID
	}
	if t.Kind(d.Parent) != KindProtocol {
		return NoDeclID
	}
	return d.Parent
}

// IsAssocType reports whether id is an associated type requirement.
func (t *Table) IsAssocType(id DeclID) bool {
	return t.Kind(id) == KindAssocType
}

// IsChecked reports whether id has been fully type-checked.
func (t *Table) IsChecked(id DeclID) bool {
	d, ok := t.Get(id)
	return ok && d.Flags&FlagChecked != 0
}

// Bounds returns the protocols a generic parameter or associated type is
// constrained to, or the protocols a protocol refines.
func (t *Table) Bounds(id DeclID) []DeclID {
	d, ok := t.Get(id)
	if !ok {
		return nil
	}
	return d.Bounds
}

// ArchetypeDecl returns the declaration that introduced an archetype.
func (t *Table) ArchetypeDecl(archetype types.TypeID) DeclID {
	info, ok := t.Types.TypeParamInfo(archetype)
	if !ok {
		return NoDeclID
	}
	return DeclID(info.Decl)
}

// ArchetypeBounds returns the protocols an archetype must conform to.
func (t *Table) ArchetypeBounds(archetype types.TypeID) []DeclID {
	decl := t.ArchetypeDecl(archetype)
	if !decl.IsValid() {
		return nil
	}
	return t.Bounds(decl)
}

// Refines reports whether proto refines other, directly or transitively.
func (t *Table) Refines(proto, other DeclID) bool {
	if proto == other {
		return false
	}
	seen := make(map[DeclID]struct{})
	stack := t.Bounds(proto)
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == other {
			return true
		}
		if _, ok := seen[cur]; ok {
			continue
		}
		seen[cur] = struct{}{}
		stack = append(stack, t.Bounds(cur)...)
	}
	return false
}

// Requirements returns all requirements of proto in declaration order.
func (t *Table) Requirements(proto DeclID) []DeclID {
	d, ok := t.Get(proto)
	if !ok || d.Kind != KindProtocol {
		return nil
	}
	return d.Members
}

// AssocTypes returns the associated type requirements of proto.
func (t *Table) AssocTypes(proto DeclID) []DeclID {
	var out []DeclID
	for _, m := range t.Requirements(proto) {
		if t.IsAssocType(m) {
			out = append(out, m)
		}
	}
	return out
}

// ValueRequirements returns the function and property requirements of proto.
func (t *Table) ValueRequirements(proto DeclID) []DeclID {
	var out []DeclID
	for _, m := range t.Requirements(proto) {
		if !t.IsAssocType(m) {
			out = append(out, m)
		}
	}
	return out
}

// Member finds a requirement of proto by name.
func (t *Table) Member(proto DeclID, name string) (DeclID, bool) {
	for _, m := range t.Requirements(proto) {
		if t.Name(m) == name {
			return m, true
		}
	}
	return NoDeclID, false
}

// Default returns the default implementation of a value requirement.
func (t *Table) Default(req DeclID) DeclID {
	d, ok := t.Get(req)
	if !ok {
		return NoDeclID
	}
	return d.Default
}

// DefaultType returns the default type of an associated type.
func (t *Table) DefaultType(assoc DeclID) types.TypeID {
	d, ok := t.Get(assoc)
	if !ok {
		return types.NoTypeID
	}
	return d.DefaultType
}

// DeclaredType returns the declared type of a nominal (in context) or the
// type of any other typed declaration.
func (t *Table) DeclaredType(id DeclID) types.TypeID {
	d, ok := t.Get(id)
	if !ok {
		return types.NoTypeID
	}
	return d.Type
}

// ContextType returns the type a declaration context adds members to:
// the nominal itself or the nominal an extension extends.
func (t *Table) ContextType(ctx DeclID) types.TypeID {
	d, ok := t.Get(ctx)
	if !ok {
		return types.NoTypeID
	}
	switch d.Kind {
	case KindNominal:
		return d.Type
	case KindExtension:
		return t.DeclaredType(d.Extended)
	default:
		return types.NoTypeID
	}
}

// GenericParams returns the generic parameter list of a nominal.
func (t *Table) GenericParams(nominal DeclID) []DeclID {
	d, ok := t.Get(nominal)
	if !ok || d.Kind != KindNominal {
		return nil
	}
	return d.GenericParams
}

// Superclass returns the superclass type of a class, or NoTypeID.
func (t *Table) Superclass(nominal DeclID) types.TypeID {
	d, ok := t.Get(nominal)
	if !ok {
		return types.NoTypeID
	}
	return d.Superclass
}

// Find looks up a direct child of parent by name and kind.
func (t *Table) Find(parent DeclID, name string, kind Kind) (DeclID, bool) {
	nameID := t.Strings.Intern(name)
	t.mu.RLock()
	defer t.mu.RUnlock()
	for i := 1; i < len(t.data); i++ {
		d := &t.data[i]
		if d.Parent == parent && d.Name == nameID && d.Kind == kind {
			return DeclID(i), true //nolint:gosec
		}
	}
	return NoDeclID, false
}
