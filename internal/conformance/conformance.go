package conformance

import (
	"fmt"
	"maps"
	"slices"

	"conform/internal/decls"
	"conform/internal/types"
)

// Conformance is the read contract shared by every record shape. The set of
// implementations is closed: NormalConformance, SpecializedConformance and
// InheritedConformance.
type Conformance interface {
	ID() ConformanceID
	Kind() Kind
	// Type is the conforming type.
	Type() types.TypeID
	Protocol() decls.DeclID
	// DeclContext is the nominal or extension declaring the conformance.
	DeclContext() decls.DeclID
	State() State
	// TypeWitness returns the witness of an associated type. Panics with
	// CodeUnresolved when no witness exists.
	TypeWitness(assoc decls.DeclID, r Resolver) *Substitution
	// Witness returns the witness of a value requirement. Panics with
	// CodeUnresolved when no witness exists.
	Witness(req decls.DeclID, r Resolver) DeclRef
	HasTypeWitness(assoc decls.DeclID) bool
	HasWitness(req decls.DeclID) bool
	InheritedConformances() InheritedMap
	UsesDefaultDefinition(req decls.DeclID) bool
	// GenericParams returns the generic parameters of the conforming type's
	// declaration when the type is that declaration's type in context.
	GenericParams() []decls.DeclID

	sealed()
}

var (
	_ Conformance = (*NormalConformance)(nil)
	_ Conformance = (*SpecializedConformance)(nil)
	_ Conformance = (*InheritedConformance)(nil)
)

// DeclRef names a witness declaration, with the substitutions applied to it
// when the declaration is generic.
type DeclRef struct {
	Decl decls.DeclID
	Subs []Substitution
}

// IsValid reports whether the reference names a declaration.
func (r DeclRef) IsValid() bool { return r.Decl.IsValid() }

// Equal compares declarations and substitutions.
func (r DeclRef) Equal(o DeclRef) bool {
	return r.Decl == o.Decl && slices.EqualFunc(r.Subs, o.Subs, Substitution.Equal)
}

// InheritedMap maps a refined protocol to the conformance satisfying it.
type InheritedMap map[decls.DeclID]Conformance

// Protocols returns the keys in ascending DeclID order.
func (m InheritedMap) Protocols() []decls.DeclID {
	return slices.Sorted(maps.Keys(m))
}

// Resolver lazily completes witnesses of conformances still being checked.
// Calls are synchronous and happen on the reader's goroutine.
type Resolver interface {
	// ResolveDecl type-checks a declaration far enough to use it as a witness.
	ResolveDecl(d decls.DeclID)
	// ResolveTypeWitness records the witness for assoc on c, if it can.
	ResolveTypeWitness(c *NormalConformance, assoc decls.DeclID)
	// ResolveWitness records the witness for req on c, if it can.
	ResolveWitness(c *NormalConformance, req decls.DeclID)
}

// LookupService finds the conformance of a type to a protocol. A nil
// conformance with true means the type is an archetype that conforms
// abstractly through its constraints.
type LookupService interface {
	LookupConformance(t types.TypeID, proto decls.DeclID, r Resolver) (Conformance, bool)
}

// Root walks specialized and inherited records down to the normal
// conformance they are derived from.
func Root(c Conformance) *NormalConformance {
	for {
		switch cur := c.(type) {
		case *NormalConformance:
			return cur
		case *SpecializedConformance:
			c = cur.generic
		case *InheritedConformance:
			c = cur.base
		case nil:
			return nil
		default:
			panic(fmt.Sprintf("conformance: unexpected record %T", c))
		}
	}
}

// Describe renders c as "Type: Protocol (kind)".
func Describe(ctx *Context, c Conformance) string {
	if c == nil {
		return "<abstract>"
	}
	return fmt.Sprintf("%s: %s (%s)",
		types.Label(ctx.Types, c.Type()),
		ctx.Decls.QualifiedName(c.Protocol()),
		c.Kind())
}
