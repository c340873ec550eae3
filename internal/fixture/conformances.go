package fixture

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"conform/internal/conformance"
	"conform/internal/decls"
	"conform/internal/types"
)

// pending is a conformance between creation and freezing.
type pending struct {
	where   string
	section conformanceSection
	c       *conformance.NormalConformance
	scope   map[string]types.TypeID
	// typeWitnesses are parsed replacements, recorded once every
	// conformance is registered so their own conformances can be looked up.
	typeWitnesses map[decls.DeclID]types.TypeID
}

func (m *Module) declareConformances(f *file) error {
	var all []*pending
	for i, cs := range f.Conformances {
		p, err := m.createConformance(i, cs)
		if err != nil {
			return err
		}
		all = append(all, p)
	}
	for _, p := range all {
		if err := m.completeConformance(p); err != nil {
			return err
		}
	}
	return nil
}

// createConformance allocates and registers the record and records its
// value witnesses.
func (m *Module) createConformance(i int, cs conformanceSection) (*pending, error) {
	typeName, protoName := ident(cs.Type), ident(cs.Protocol)
	where := fmt.Sprintf("[[conformance]] #%d (%s: %s)", i+1, typeName, protoName)
	proto, err := m.protocol(protoName)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", where, err)
	}

	var (
		typ   types.TypeID
		dc    decls.DeclID
		scope map[string]types.TypeID
	)
	if b, ok := m.builtinType(typeName); ok {
		if cs.Extension {
			return nil, fmt.Errorf("%s: builtin types cannot be extended here", where)
		}
		typ, dc = b, m.ModuleID
	} else {
		nominal, ok := m.nominals[typeName]
		if !ok {
			return nil, fmt.Errorf("%s: unknown type %s", where, typeName)
		}
		typ, dc = m.Decls.DeclaredType(nominal), nominal
		scope = m.genericScope(nominal)
		if cs.Extension {
			dc = m.Decls.NewExtension(m.ModuleID, nominal)
		}
	}

	var c *conformance.NormalConformance
	if err := capture(func() { c = m.Ctx.NewNormal(typ, proto, dc) }); err != nil {
		return nil, fmt.Errorf("%s: %w", where, err)
	}
	if err := m.Lookup.Register(c); err != nil {
		return nil, fmt.Errorf("%s: %w", where, err)
	}

	p := &pending{
		where:         where,
		section:       cs,
		c:             c,
		scope:         scope,
		typeWitnesses: make(map[decls.DeclID]types.TypeID),
	}
	if err := m.collectWitnesses(p, proto, typeName); err != nil {
		return nil, fmt.Errorf("%s: %w", where, err)
	}
	return p, nil
}

func (m *Module) collectWitnesses(p *pending, proto decls.DeclID, typeName string) error {
	cs := p.section
	for _, key := range sortedKeys(cs.Types) {
		assoc, ok := m.Decls.Member(proto, ident(key))
		if !ok || !m.Decls.IsAssocType(assoc) {
			return fmt.Errorf("types.%s: not an associated type of %s", key, cs.Protocol)
		}
		typ, err := m.parseType(cs.Types[key], p.scope)
		if err != nil {
			return fmt.Errorf("types.%s: %w", key, err)
		}
		p.typeWitnesses[assoc] = typ
	}

	values := make(map[decls.DeclID]decls.DeclID)
	for _, key := range sortedKeys(cs.Witnesses) {
		req, ok := m.Decls.Member(proto, ident(key))
		if !ok {
			return fmt.Errorf("witnesses.%s: not a requirement of %s", key, cs.Protocol)
		}
		impl, err := m.funcRef(typeName, cs.Witnesses[key])
		if err != nil {
			return fmt.Errorf("witnesses.%s: %w", key, err)
		}
		values[req] = impl
	}

	for _, name := range cs.Defaults {
		req, ok := m.Decls.Member(proto, ident(name))
		if !ok {
			return fmt.Errorf("defaults: %s is not a requirement of %s", name, cs.Protocol)
		}
		if m.Decls.IsAssocType(req) {
			def := m.Decls.DefaultType(req)
			if def == types.NoTypeID {
				return fmt.Errorf("defaults: %s has no default type", name)
			}
			p.typeWitnesses[req] = def
			continue
		}
		def := m.Decls.Default(req)
		if !def.IsValid() {
			return fmt.Errorf("defaults: %s has no default implementation", name)
		}
		values[req] = def
	}

	if cs.Lazy {
		m.Resolver.deferWitnesses(p.c, p.typeWitnesses, values)
		p.typeWitnesses = nil
		return nil
	}
	for _, req := range slices.Sorted(maps.Keys(values)) {
		impl := values[req]
		if err := capture(func() { p.c.SetWitness(req, conformance.DeclRef{Decl: impl}) }); err != nil {
			return err
		}
	}
	return nil
}

// completeConformance records type witnesses, attaches the conformances to
// refined protocols and freezes the record in its requested state.
func (m *Module) completeConformance(p *pending) error {
	c := p.c
	proto := c.Protocol()
	for _, assoc := range m.Decls.AssocTypes(proto) {
		typ, ok := p.typeWitnesses[assoc]
		if !ok {
			continue
		}
		sub, err := m.typeWitness(assoc, typ)
		if err != nil {
			return fmt.Errorf("%s: types.%s: %w", p.where, m.Decls.Name(assoc), err)
		}
		if err := capture(func() { c.SetTypeWitness(assoc, sub) }); err != nil {
			return fmt.Errorf("%s: %w", p.where, err)
		}
	}

	for _, refined := range m.refinedProtocols(proto) {
		inherited, ok := m.Lookup.LookupConformance(c.Type(), refined, m.Resolver)
		if !ok || inherited == nil {
			return fmt.Errorf("%s: %s does not conform to refined protocol %s",
				p.where, types.Label(m.Types, c.Type()), m.Decls.QualifiedName(refined))
		}
		if err := capture(func() { c.SetInheritedConformance(refined, inherited) }); err != nil {
			return fmt.Errorf("%s: %w", p.where, err)
		}
	}

	state := strings.TrimSpace(p.section.State)
	if p.section.Lazy && state != "" && state != "incomplete" {
		return fmt.Errorf("%s: lazy conformances stay incomplete", p.where)
	}
	switch state {
	case "", "complete":
		if p.section.Lazy {
			return nil
		}
		if missing := m.missingWitnesses(c); len(missing) > 0 {
			return fmt.Errorf("%s: missing witnesses for %s", p.where, strings.Join(missing, ", "))
		}
		return capture(c.Complete)
	case "invalid":
		return capture(c.Invalidate)
	case "incomplete":
		return nil
	default:
		return fmt.Errorf("%s: unknown state %q", p.where, state)
	}
}

// typeWitness builds the witness substitution for assoc, looking up the
// replacement's conformance to each protocol the associated type requires.
func (m *Module) typeWitness(assoc decls.DeclID, typ types.TypeID) (conformance.Substitution, error) {
	bounds := m.Decls.Bounds(assoc)
	confs := make([]conformance.Conformance, 0, len(bounds))
	for _, bound := range bounds {
		c, ok := m.Lookup.LookupConformance(typ, bound, m.Resolver)
		if !ok {
			return conformance.Substitution{}, fmt.Errorf("%s does not conform to %s",
				types.Label(m.Types, typ), m.Decls.QualifiedName(bound))
		}
		confs = append(confs, c)
	}
	return m.Ctx.NewSubstitution(m.Decls.DeclaredType(assoc), typ, confs), nil
}

// refinedProtocols lists every protocol proto refines, directly or not, in
// declaration order.
func (m *Module) refinedProtocols(proto decls.DeclID) []decls.DeclID {
	var out []decls.DeclID
	for _, id := range m.protocols {
		if m.Decls.Refines(proto, id) {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

func (m *Module) missingWitnesses(c *conformance.NormalConformance) []string {
	var missing []string
	for _, req := range m.Decls.Requirements(c.Protocol()) {
		if m.Decls.IsAssocType(req) && !c.HasTypeWitness(req) || !m.Decls.IsAssocType(req) && !c.HasWitness(req) {
			missing = append(missing, m.Decls.Name(req))
		}
	}
	return missing
}

// capture turns a builder violation into an error.
func capture(fn func()) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		var v *conformance.Violation
		if e, ok := r.(error); ok && errors.As(e, &v) {
			err = v
			return
		}
		panic(r)
	}()
	fn()
	return nil
}
