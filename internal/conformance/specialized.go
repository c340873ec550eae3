package conformance

import (
	"slices"
	"sync"

	"conform/internal/decls"
	"conform/internal/trace"
	"conform/internal/types"
)

// SpecializedConformance is a generic conformance viewed through a
// substitution of its generic parameters, e.g. Array<Int>: Collection
// derived from Array<T>: Collection with T := Int.
//
// Type witnesses are computed on first request and cached; every later
// request for the same associated type returns the same *Substitution, also
// under concurrent access.
type SpecializedConformance struct {
	ctx     *Context
	id      ConformanceID
	typ     types.TypeID
	generic Conformance
	subs    []Substitution

	mu    sync.RWMutex
	cache map[decls.DeclID]*Substitution
}

func (*SpecializedConformance) sealed() {}

func (s *SpecializedConformance) ID() ConformanceID         { return s.id }
func (s *SpecializedConformance) Kind() Kind                { return KindSpecialized }
func (s *SpecializedConformance) Type() types.TypeID        { return s.typ }
func (s *SpecializedConformance) Protocol() decls.DeclID    { return s.generic.Protocol() }
func (s *SpecializedConformance) DeclContext() decls.DeclID { return s.generic.DeclContext() }
func (s *SpecializedConformance) State() State              { return s.generic.State() }

// GenericConformance returns the conformance being specialized.
func (s *SpecializedConformance) GenericConformance() Conformance { return s.generic }

// Substitutions returns a copy of the generic parameter substitutions.
func (s *SpecializedConformance) Substitutions() []Substitution {
	return cloneSubstitutions(s.subs)
}

// HasTypeWitness reports whether the generic conformance has a witness for assoc.
func (s *SpecializedConformance) HasTypeWitness(assoc decls.DeclID) bool {
	return s.generic.HasTypeWitness(assoc)
}

// HasWitness reports whether the generic conformance has a witness for req.
func (s *SpecializedConformance) HasWitness(req decls.DeclID) bool {
	return s.generic.HasWitness(req)
}

// TypeWitness returns the generic witness for assoc with the substitutions
// applied. When substitution leaves the type unchanged the generic entry
// itself is returned.
func (s *SpecializedConformance) TypeWitness(assoc decls.DeclID, r Resolver) *Substitution {
	s.mu.RLock()
	cached, ok := s.cache[assoc]
	s.mu.RUnlock()
	if ok {
		if tr := s.ctx.tracer(); tr.Enabled() {
			trace.Point(tr, trace.ScopeWitness, "witness-cache-hit", s.ctx.Decls.QualifiedName(assoc), 0)
		}
		return cached
	}

	computed := s.specializeTypeWitness(assoc, r)

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.cache[assoc]; ok {
		return existing
	}
	s.cache[assoc] = computed
	return computed
}

func (s *SpecializedConformance) specializeTypeWitness(assoc decls.DeclID, r Resolver) *Substitution {
	tr := s.ctx.tracer()
	mapping := make(map[types.TypeID]types.TypeID, len(s.subs))
	for _, sub := range s.subs {
		mapping[sub.param] = sub.replacement
	}
	subst := types.NewSubst(s.ctx.Types, mapping)

	span := trace.Begin(tr, trace.ScopeConformance, "specialize", 0)
	if tr.Enabled() {
		span.WithExtra("conformance", Describe(s.ctx, s)).
			WithExtra("assoc", s.ctx.Decls.QualifiedName(assoc)).
			WithExtra("subst", subst.DebugString())
	}

	generic := s.generic.TypeWitness(assoc, r)
	specialized := subst.Type(generic.replacement)

	if specialized == generic.replacement {
		trace.Point(tr, trace.ScopeWitness, "witness-identity", types.Label(s.ctx.Types, specialized), span.ID())
		span.End("identity")
		return generic
	}

	lookup := s.ctx.Lookup()
	bounds := s.ctx.Decls.ArchetypeBounds(generic.param)
	conformances := make([]Conformance, 0, len(bounds))
	for _, proto := range bounds {
		var (
			found Conformance
			ok    bool
		)
		if lookup != nil {
			found, ok = lookup.LookupConformance(specialized, proto, r)
		}
		if !ok {
			span.End("unsound")
			violate("TypeWitness", CodeUnsound, "%s does not conform to %s",
				types.Label(s.ctx.Types, specialized), s.ctx.Decls.QualifiedName(proto))
		}
		conformances = append(conformances, found)
	}

	sub := s.ctx.NewSubstitution(generic.param, specialized, conformances)
	span.End(types.Label(s.ctx.Types, specialized))
	return &sub
}

// Witness forwards to the generic conformance. The returned reference is
// not specialized.
func (s *SpecializedConformance) Witness(req decls.DeclID, r Resolver) DeclRef {
	return s.generic.Witness(req, r)
}

// InheritedConformances forwards to the generic conformance.
func (s *SpecializedConformance) InheritedConformances() InheritedMap {
	return s.generic.InheritedConformances()
}

// UsesDefaultDefinition forwards to the generic conformance.
func (s *SpecializedConformance) UsesDefaultDefinition(req decls.DeclID) bool {
	return s.generic.UsesDefaultDefinition(req)
}

// GenericParams is nil: a specialized conformance has no parameters of its own.
func (s *SpecializedConformance) GenericParams() []decls.DeclID { return nil }

// CachedTypeWitnesses returns the associated types computed so far, sorted.
func (s *SpecializedConformance) CachedTypeWitnesses() []decls.DeclID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]decls.DeclID, 0, len(s.cache))
	for assoc := range s.cache {
		out = append(out, assoc)
	}
	slices.Sort(out)
	return out
}
