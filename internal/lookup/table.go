// Package lookup answers "does type T conform to protocol P" for a module,
// deriving specialized and inherited conformances from the normal ones the
// checker registered.
package lookup

import (
	"fmt"
	"slices"
	"sync"

	"conform/internal/conformance"
	"conform/internal/decls"
	"conform/internal/trace"
	"conform/internal/types"
)

type declKey struct {
	decl  decls.DeclID
	proto decls.DeclID
}

type typeKey struct {
	typ   types.TypeID
	proto decls.DeclID
}

// Table is the conformance lookup service of one module. Normal
// conformances are registered per nominal declaration (or per builtin
// type); lookups for generic instances and subclasses derive specialized
// and inherited records on demand and memoize them.
type Table struct {
	ctx *conformance.Context

	mu       sync.RWMutex
	normals  map[declKey]*conformance.NormalConformance
	builtins map[typeKey]*conformance.NormalConformance
	derived  map[typeKey]conformance.Conformance
	order    []*conformance.NormalConformance
}

// New creates a table and installs it as ctx's lookup service.
func New(ctx *conformance.Context) *Table {
	t := &Table{
		ctx:      ctx,
		normals:  make(map[declKey]*conformance.NormalConformance),
		builtins: make(map[typeKey]*conformance.NormalConformance),
		derived:  make(map[typeKey]conformance.Conformance),
	}
	ctx.SetLookup(t)
	return t
}

// Register makes c visible to lookups. Conformances of nominal types are
// keyed by declaration, so an instance of a generic type finds the
// conformance of its declared type.
func (t *Table) Register(c *conformance.NormalConformance) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if decl := t.nominalDecl(c.Type()); decl.IsValid() {
		key := declKey{decl: decl, proto: c.Protocol()}
		if prev, ok := t.normals[key]; ok {
			return fmt.Errorf("duplicate conformance %s (first declared as %s)",
				conformance.Describe(t.ctx, c), conformance.Describe(t.ctx, prev))
		}
		t.normals[key] = c
	} else {
		key := typeKey{typ: c.Type(), proto: c.Protocol()}
		if _, ok := t.builtins[key]; ok {
			return fmt.Errorf("duplicate conformance %s", conformance.Describe(t.ctx, c))
		}
		t.builtins[key] = c
	}
	t.order = append(t.order, c)
	return nil
}

// Registered returns the registered conformances in registration order.
func (t *Table) Registered() []*conformance.NormalConformance {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.order)
}

// Derived reports how many specialized or inherited records were built.
func (t *Table) Derived() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.derived)
}

// LookupConformance implements conformance.LookupService.
func (t *Table) LookupConformance(typ types.TypeID, proto decls.DeclID, r conformance.Resolver) (conformance.Conformance, bool) {
	c, ok := t.lookup(typ, proto, r)
	if tr := t.ctx.Tracer; tr != nil && tr.Enabled() {
		detail := types.Label(t.ctx.Types, typ) + ": " + t.ctx.Decls.QualifiedName(proto)
		if !ok {
			detail += " (none)"
		}
		trace.Point(tr, trace.ScopeConformance, "lookup", detail, 0)
	}
	return c, ok
}

func (t *Table) lookup(typ types.TypeID, proto decls.DeclID, r conformance.Resolver) (conformance.Conformance, bool) {
	if t.ctx.Types.IsTypeParam(typ) {
		return nil, t.archetypeConforms(typ, proto)
	}

	decl := t.nominalDecl(typ)
	if !decl.IsValid() {
		t.mu.RLock()
		c, ok := t.builtins[typeKey{typ: typ, proto: proto}]
		t.mu.RUnlock()
		if !ok {
			return nil, false
		}
		return c, true
	}

	key := typeKey{typ: typ, proto: proto}
	t.mu.RLock()
	normal, hasNormal := t.normals[declKey{decl: decl, proto: proto}]
	memo, hasMemo := t.derived[key]
	t.mu.RUnlock()
	if hasMemo {
		return memo, true
	}
	if hasNormal && normal.Type() == typ {
		return normal, true
	}

	var derived conformance.Conformance
	if hasNormal {
		subs, ok := t.substitutions(typ, r)
		if !ok {
			return nil, false
		}
		derived = t.ctx.NewSpecialized(typ, normal, subs)
	} else {
		super := t.superclass(typ, decl)
		if super == types.NoTypeID {
			return nil, false
		}
		base, ok := t.LookupConformance(super, proto, r)
		if !ok || base == nil {
			return nil, false
		}
		derived = t.ctx.NewInherited(typ, base)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if existing, ok := t.derived[key]; ok {
		return existing, true
	}
	t.derived[key] = derived
	return derived, true
}

// archetypeConforms checks the archetype's constraints, including the
// protocols they refine.
func (t *Table) archetypeConforms(archetype types.TypeID, proto decls.DeclID) bool {
	for _, bound := range t.ctx.Decls.ArchetypeBounds(archetype) {
		if bound == proto || t.ctx.Decls.Refines(bound, proto) {
			return true
		}
	}
	return false
}

// substitutions maps the generic parameters of every bound generic type on
// typ's parent chain to its arguments. Each replacement must satisfy its
// parameter's constraints; otherwise typ does not conform.
func (t *Table) substitutions(typ types.TypeID, r conformance.Resolver) ([]conformance.Substitution, bool) {
	var subs []conformance.Substitution
	for cur := typ; cur != types.NoTypeID; {
		info, ok := t.ctx.Types.NominalInfo(cur)
		if !ok {
			break
		}
		params := t.ctx.Decls.GenericParams(decls.DeclID(info.Decl))
		if len(params) != len(info.Args) {
			return nil, false
		}
		for i, param := range params {
			arg := info.Args[i]
			bounds := t.ctx.Decls.Bounds(param)
			confs := make([]conformance.Conformance, 0, len(bounds))
			for _, bound := range bounds {
				c, ok := t.LookupConformance(arg, bound, r)
				if !ok {
					return nil, false
				}
				confs = append(confs, c)
			}
			subs = append(subs, t.ctx.NewSubstitution(t.ctx.Decls.DeclaredType(param), arg, confs))
		}
		cur = info.Parent
	}
	return subs, true
}

// superclass returns typ's superclass with typ's generic arguments applied.
func (t *Table) superclass(typ types.TypeID, decl decls.DeclID) types.TypeID {
	super := t.ctx.Decls.Superclass(decl)
	if super == types.NoTypeID || typ == t.ctx.Decls.DeclaredType(decl) {
		return super
	}
	mapping := make(map[types.TypeID]types.TypeID)
	for cur := typ; cur != types.NoTypeID; {
		info, ok := t.ctx.Types.NominalInfo(cur)
		if !ok {
			break
		}
		params := t.ctx.Decls.GenericParams(decls.DeclID(info.Decl))
		for i := range min(len(params), len(info.Args)) {
			mapping[t.ctx.Decls.DeclaredType(params[i])] = info.Args[i]
		}
		cur = info.Parent
	}
	return types.NewSubst(t.ctx.Types, mapping).Type(super)
}

func (t *Table) nominalDecl(typ types.TypeID) decls.DeclID {
	return decls.DeclID(t.ctx.Types.NominalDecl(typ))
}
