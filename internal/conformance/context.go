package conformance

import (
	"conform/internal/decls"
	"conform/internal/trace"
	"conform/internal/types"
)

// Context carries what records need beyond their own fields: the type
// interner, the declaration table, the lookup service consulted during
// specialization, the arena owning the records, and a tracer.
type Context struct {
	Types  *types.Interner
	Decls  *decls.Table
	Arena  *Arena
	Tracer trace.Tracer

	lookup LookupService
}

// NewContext creates a context over declTable with a fresh arena.
func NewContext(declTable *decls.Table) *Context {
	return &Context{
		Types:  declTable.Types,
		Decls:  declTable,
		Arena:  NewArena(),
		Tracer: trace.Nop,
	}
}

// SetLookup installs the lookup service. It must be set before any
// specialized record computes a type witness.
func (c *Context) SetLookup(l LookupService) {
	c.lookup = l
}

// Lookup returns the installed lookup service.
func (c *Context) Lookup() LookupService {
	return c.lookup
}

func (c *Context) tracer() trace.Tracer {
	if c.Tracer == nil {
		return trace.Nop
	}
	return c.Tracer
}

// NewSubstitution builds a substitution whose conformance list is owned by the arena.
func (c *Context) NewSubstitution(param, replacement types.TypeID, conformances []Conformance) Substitution {
	return Substitution{
		param:        param,
		replacement:  replacement,
		conformances: c.Arena.AllocateCopy(conformances),
	}
}

// NewNormal allocates an incomplete conformance of typ to proto declared in
// dc: a nominal, an extension, or a module for builtin types.
func (c *Context) NewNormal(typ types.TypeID, proto, dc decls.DeclID) *NormalConformance {
	if c.Decls.Kind(proto) != decls.KindProtocol {
		violate("NewNormal", CodeBadContext, "%d is not a protocol", proto)
	}
	if k := c.Decls.Kind(dc); k != decls.KindNominal && k != decls.KindExtension && k != decls.KindModule {
		violate("NewNormal", CodeBadContext, "declaration context %d is a %s", dc, k)
	}
	n := &NormalConformance{
		ctx:           c,
		typ:           typ,
		proto:         proto,
		dc:            dc,
		typeWitnesses: make(map[decls.DeclID]*Substitution),
		witnesses:     make(map[decls.DeclID]DeclRef),
		inherited:     make(InheritedMap),
	}
	n.id = c.Arena.add(n)
	return n
}

// NewSpecialized allocates the conformance of typ obtained by applying subs
// to generic.
func (c *Context) NewSpecialized(typ types.TypeID, generic Conformance, subs []Substitution) *SpecializedConformance {
	if generic == nil {
		violate("NewSpecialized", CodeBadContext, "nil generic conformance")
	}
	s := &SpecializedConformance{
		ctx:     c,
		typ:     typ,
		generic: generic,
		subs:    cloneSubstitutions(subs),
		cache:   make(map[decls.DeclID]*Substitution),
	}
	s.id = c.Arena.add(s)
	return s
}

// NewInherited allocates the conformance typ inherits from base, the
// conformance of one of its superclasses.
func (c *Context) NewInherited(typ types.TypeID, base Conformance) *InheritedConformance {
	if base == nil {
		violate("NewInherited", CodeBadContext, "nil base conformance")
	}
	in := &InheritedConformance{typ: typ, base: base}
	in.id = c.Arena.add(in)
	return in
}

func cloneSubstitutions(subs []Substitution) []Substitution {
	if len(subs) == 0 {
		return nil
	}
	out := make([]Substitution, len(subs))
	copy(out, subs)
	return out
}
