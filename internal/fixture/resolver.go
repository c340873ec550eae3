package fixture

import (
	"sync"

	"conform/internal/conformance"
	"conform/internal/decls"
	"conform/internal/types"
)

// Resolver completes lazy conformances on first read. Witnesses of a
// conformance declared with lazy = true are parsed at load time but only
// recorded when a reader asks for them, mimicking a checker that defers
// witness matching until a witness is needed.
type Resolver struct {
	m *Module

	mu          sync.Mutex
	types       map[*conformance.NormalConformance]map[decls.DeclID]types.TypeID
	values      map[*conformance.NormalConformance]map[decls.DeclID]decls.DeclID
	declsDone   int
	witnessDone int
}

var _ conformance.Resolver = (*Resolver)(nil)

func newResolver(m *Module) *Resolver {
	return &Resolver{
		m:      m,
		types:  make(map[*conformance.NormalConformance]map[decls.DeclID]types.TypeID),
		values: make(map[*conformance.NormalConformance]map[decls.DeclID]decls.DeclID),
	}
}

func (r *Resolver) deferWitnesses(c *conformance.NormalConformance, typeWitnesses map[decls.DeclID]types.TypeID, values map[decls.DeclID]decls.DeclID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[c] = typeWitnesses
	r.values[c] = values
}

// ResolveDecl marks a witness declaration as checked.
func (r *Resolver) ResolveDecl(d decls.DeclID) {
	r.m.Decls.MarkChecked(d)
	r.mu.Lock()
	r.declsDone++
	r.mu.Unlock()
}

// ResolveTypeWitness records a deferred associated type witness, if any.
func (r *Resolver) ResolveTypeWitness(c *conformance.NormalConformance, assoc decls.DeclID) {
	r.mu.Lock()
	typ, ok := r.types[c][assoc]
	r.mu.Unlock()
	if !ok {
		return
	}
	sub, err := r.m.typeWitness(assoc, typ)
	if err != nil {
		// Leave the witness unset; the reader reports it as unresolved.
		return
	}
	c.SetTypeWitness(assoc, sub)
	r.resolved()
}

// ResolveWitness records a deferred value witness, if any.
func (r *Resolver) ResolveWitness(c *conformance.NormalConformance, req decls.DeclID) {
	r.mu.Lock()
	impl, ok := r.values[c][req]
	r.mu.Unlock()
	if !ok {
		return
	}
	c.SetWitness(req, conformance.DeclRef{Decl: impl})
	r.resolved()
}

func (r *Resolver) resolved() {
	r.mu.Lock()
	r.witnessDone++
	r.mu.Unlock()
}

// Stats reports how many declarations and witnesses were resolved lazily.
func (r *Resolver) Stats() (declsResolved, witnessesResolved int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.declsDone, r.witnessDone
}
