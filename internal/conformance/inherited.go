package conformance

import (
	"conform/internal/decls"
	"conform/internal/types"
)

// InheritedConformance is the conformance a subclass receives from a
// superclass. Queries are answered by the base conformance.
type InheritedConformance struct {
	id   ConformanceID
	typ  types.TypeID
	base Conformance
}

func (*InheritedConformance) sealed() {}

func (c *InheritedConformance) ID() ConformanceID { return c.id }
func (c *InheritedConformance) Kind() Kind        { return KindInherited }

// Type is the inheriting class, not the superclass.
func (c *InheritedConformance) Type() types.TypeID { return c.typ }

// Base returns the superclass conformance.
func (c *InheritedConformance) Base() Conformance { return c.base }

func (c *InheritedConformance) Protocol() decls.DeclID    { return c.base.Protocol() }
func (c *InheritedConformance) DeclContext() decls.DeclID { return c.base.DeclContext() }
func (c *InheritedConformance) State() State              { return c.base.State() }

func (c *InheritedConformance) TypeWitness(assoc decls.DeclID, r Resolver) *Substitution {
	return c.base.TypeWitness(assoc, r)
}

func (c *InheritedConformance) Witness(req decls.DeclID, r Resolver) DeclRef {
	return c.base.Witness(req, r)
}

func (c *InheritedConformance) HasTypeWitness(assoc decls.DeclID) bool {
	return c.base.HasTypeWitness(assoc)
}

func (c *InheritedConformance) HasWitness(req decls.DeclID) bool {
	return c.base.HasWitness(req)
}

func (c *InheritedConformance) InheritedConformances() InheritedMap {
	return c.base.InheritedConformances()
}

func (c *InheritedConformance) UsesDefaultDefinition(req decls.DeclID) bool {
	return c.base.UsesDefaultDefinition(req)
}

// GenericParams is nil for inherited conformances.
func (c *InheritedConformance) GenericParams() []decls.DeclID { return nil }
