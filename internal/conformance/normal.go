package conformance

import (
	"maps"

	"conform/internal/decls"
	"conform/internal/types"
)

// NormalConformance is a conformance written by the type checker. Each
// requirement's witness is recorded at most once, and only while the record
// is incomplete. Once Complete or Invalidate is called the record is
// read-only and may be shared between goroutines.
type NormalConformance struct {
	ctx   *Context
	id    ConformanceID
	typ   types.TypeID
	proto decls.DeclID
	dc    decls.DeclID
	state State

	typeWitnesses map[decls.DeclID]*Substitution
	witnesses     map[decls.DeclID]DeclRef
	inherited     InheritedMap
}

func (*NormalConformance) sealed() {}

func (c *NormalConformance) ID() ConformanceID         { return c.id }
func (c *NormalConformance) Kind() Kind                { return KindNormal }
func (c *NormalConformance) Type() types.TypeID        { return c.typ }
func (c *NormalConformance) Protocol() decls.DeclID    { return c.proto }
func (c *NormalConformance) DeclContext() decls.DeclID { return c.dc }
func (c *NormalConformance) State() State              { return c.state }

// IsComplete reports whether the record reached StateComplete.
func (c *NormalConformance) IsComplete() bool { return c.state == StateComplete }

// IsInvalid reports whether checking the conformance failed.
func (c *NormalConformance) IsInvalid() bool { return c.state == StateInvalid }

// SetTypeWitness records the witness for an associated type of Protocol.
func (c *NormalConformance) SetTypeWitness(assoc decls.DeclID, sub Substitution) {
	const op = "SetTypeWitness"
	if !c.ctx.Decls.IsAssocType(assoc) || c.ctx.Decls.RequirementProtocol(assoc) != c.proto {
		violate(op, CodeWrongProtocol, "%s is not an associated type of %s",
			c.ctx.Decls.QualifiedName(assoc), c.ctx.Decls.QualifiedName(c.proto))
	}
	if _, ok := c.typeWitnesses[assoc]; ok {
		violate(op, CodeAlreadySet, "%s", c.ctx.Decls.QualifiedName(assoc))
	}
	if c.state.IsFrozen() {
		violate(op, CodeFrozen, "%s is %s", Describe(c.ctx, c), c.state)
	}
	sub.conformances = c.ctx.Arena.AllocateCopy(sub.conformances)
	c.typeWitnesses[assoc] = &sub
}

// SetWitness records the witness for a value requirement of Protocol.
func (c *NormalConformance) SetWitness(req decls.DeclID, witness DeclRef) {
	const op = "SetWitness"
	if c.ctx.Decls.IsAssocType(req) {
		violate(op, CodeTypeWitnessViaSetWitness, "%s", c.ctx.Decls.QualifiedName(req))
	}
	if c.ctx.Decls.RequirementProtocol(req) != c.proto {
		violate(op, CodeWrongProtocol, "%s is not a requirement of %s",
			c.ctx.Decls.QualifiedName(req), c.ctx.Decls.QualifiedName(c.proto))
	}
	if _, ok := c.witnesses[req]; ok {
		violate(op, CodeAlreadySet, "%s", c.ctx.Decls.QualifiedName(req))
	}
	if c.state.IsFrozen() {
		violate(op, CodeFrozen, "%s is %s", Describe(c.ctx, c), c.state)
	}
	witness.Subs = cloneSubstitutions(witness.Subs)
	c.witnesses[req] = witness
}

// SetInheritedConformance records the conformance satisfying proto, a
// protocol that Protocol refines.
func (c *NormalConformance) SetInheritedConformance(proto decls.DeclID, inherited Conformance) {
	const op = "SetInheritedConformance"
	if !c.ctx.Decls.Refines(c.proto, proto) {
		violate(op, CodeNotRefined, "%s does not refine %s",
			c.ctx.Decls.QualifiedName(c.proto), c.ctx.Decls.QualifiedName(proto))
	}
	if inherited == nil || inherited.Protocol() != proto {
		violate(op, CodeProtocolMismatch, "conformance for %s expected", c.ctx.Decls.QualifiedName(proto))
	}
	if _, ok := c.inherited[proto]; ok {
		violate(op, CodeAlreadySet, "%s", c.ctx.Decls.QualifiedName(proto))
	}
	if c.state.IsFrozen() {
		violate(op, CodeFrozen, "%s is %s", Describe(c.ctx, c), c.state)
	}
	c.inherited[proto] = inherited
}

// Complete freezes the record as fully checked.
func (c *NormalConformance) Complete() {
	c.freeze("Complete", StateComplete)
}

// Invalidate freezes the record as failed. Witnesses that were never set
// stay absent.
func (c *NormalConformance) Invalidate() {
	c.freeze("Invalidate", StateInvalid)
}

func (c *NormalConformance) freeze(op string, to State) {
	if c.state.IsFrozen() {
		violate(op, CodeFrozen, "%s is %s", Describe(c.ctx, c), c.state)
	}
	c.state = to
}

// HasTypeWitness reports whether a witness for assoc was recorded.
func (c *NormalConformance) HasTypeWitness(assoc decls.DeclID) bool {
	_, ok := c.typeWitnesses[assoc]
	return ok
}

// HasWitness reports whether a witness for req was recorded.
func (c *NormalConformance) HasWitness(req decls.DeclID) bool {
	_, ok := c.witnesses[req]
	return ok
}

// TypeWitness returns the recorded witness for assoc. While the record is
// incomplete, a missing witness is first requested from r.
func (c *NormalConformance) TypeWitness(assoc decls.DeclID, r Resolver) *Substitution {
	if sub, ok := c.typeWitnesses[assoc]; ok {
		return sub
	}
	if r != nil && c.state == StateIncomplete {
		r.ResolveTypeWitness(c, assoc)
		if sub, ok := c.typeWitnesses[assoc]; ok {
			return sub
		}
	}
	violate("TypeWitness", CodeUnresolved, "%s in %s", c.ctx.Decls.QualifiedName(assoc), Describe(c.ctx, c))
	return nil
}

// Witness returns the recorded witness for req. While the record is
// incomplete, a missing witness is first requested from r. A witness
// declaration that is not fully checked yet is handed to r.ResolveDecl.
func (c *NormalConformance) Witness(req decls.DeclID, r Resolver) DeclRef {
	ref, ok := c.witnesses[req]
	if !ok && r != nil && c.state == StateIncomplete {
		r.ResolveWitness(c, req)
		ref, ok = c.witnesses[req]
	}
	if !ok {
		violate("Witness", CodeUnresolved, "%s in %s", c.ctx.Decls.QualifiedName(req), Describe(c.ctx, c))
	}
	if r != nil && ref.IsValid() && !c.ctx.Decls.IsChecked(ref.Decl) {
		r.ResolveDecl(ref.Decl)
	}
	return ref
}

// InheritedConformances returns a copy of the refined-protocol map.
func (c *NormalConformance) InheritedConformances() InheritedMap {
	return maps.Clone(c.inherited)
}

// UsesDefaultDefinition reports whether the witness for req is the
// protocol's default: the default implementation of a value requirement or
// the default type of an associated type.
func (c *NormalConformance) UsesDefaultDefinition(req decls.DeclID) bool {
	if c.ctx.Decls.IsAssocType(req) {
		sub, ok := c.typeWitnesses[req]
		if !ok {
			return false
		}
		def := c.ctx.Decls.DefaultType(req)
		return def != types.NoTypeID && sub.replacement == def
	}
	ref, ok := c.witnesses[req]
	if !ok {
		return false
	}
	def := c.ctx.Decls.Default(req)
	return def.IsValid() && ref.Decl == def
}

// GenericParams walks the conforming type and its enclosing nominal types
// and returns the generic parameters of the first bound generic one. That
// type must be its declaration's type in context; conformances of
// constrained instances are not supported.
func (c *NormalConformance) GenericParams() []decls.DeclID {
	for t := c.typ; t != types.NoTypeID; {
		info, ok := c.ctx.Types.NominalInfo(t)
		if !ok {
			return nil
		}
		if tt, _ := c.ctx.Types.Lookup(t); tt.Kind == types.KindBoundGeneric {
			decl := decls.DeclID(info.Decl)
			if c.ctx.Decls.DeclaredType(decl) != t {
				violate("GenericParams", CodeConstrainedGeneric, "%s", types.Label(c.ctx.Types, t))
			}
			return c.ctx.Decls.GenericParams(decl)
		}
		t = info.Parent
	}
	return nil
}
