// Package fixture loads a module description from TOML or YAML and builds its
// declarations and conformances through the builder API, the way a type
// checker would: witnesses are recorded requirement by requirement, refined
// protocol conformances are attached, and each conformance is frozen.
package fixture

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"conform/internal/conformance"
	"conform/internal/decls"
	"conform/internal/lookup"
	"conform/internal/source"
	"conform/internal/trace"
	"conform/internal/types"
)

// Module is a loaded fixture: declarations, frozen (or lazily resolved)
// conformances and the queries to run against them.
type Module struct {
	Path     string
	Name     string
	Strings  *source.Interner
	Types    *types.Interner
	Decls    *decls.Table
	Ctx      *conformance.Context
	Lookup   *lookup.Table
	Resolver *Resolver
	Queries  []Query
	ModuleID decls.DeclID

	protocols map[string]decls.DeclID
	nominals  map[string]decls.DeclID
	funcs     map[string]decls.DeclID
}

// Query asks for one witness of a type's conformance to a protocol.
// Exactly one of Assoc and Requirement is set.
type Query struct {
	Index       int
	TypeText    string
	Type        types.TypeID
	Protocol    decls.DeclID
	Assoc       decls.DeclID
	Requirement decls.DeclID
	// Expect is the expected witness label; empty means unchecked.
	Expect string
}

// Options tune how a fixture is built.
type Options struct {
	Tracer trace.Tracer
}

// Load reads and builds the fixture at path.
func Load(path string, opts Options) (*Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read fixture: %w", path, err)
	}
	return Parse(path, data, opts)
}

// Parse builds a fixture from TOML or YAML source; the extension of path
// selects the syntax and path is used in error messages.
func Parse(path string, data []byte, opts Options) (*Module, error) {
	f, err := decode(path, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	m := newModule(path, ident(f.Module.Name), opts)
	steps := []func(*file) error{
		m.declareProtocols,
		m.declareTypes,
		m.declareFuncs,
		m.attachDefaults,
		m.declareConformances,
		m.declareQueries,
	}
	for _, step := range steps {
		if err := step(f); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return m, nil
}

func newModule(path, name string, opts Options) *Module {
	strs := source.NewInterner()
	typesIn := types.NewInterner(strs)
	table := decls.NewTable(typesIn)
	ctx := conformance.NewContext(table)
	if opts.Tracer != nil {
		ctx.Tracer = opts.Tracer
	}
	m := &Module{
		Path:      path,
		Name:      name,
		Strings:   strs,
		Types:     typesIn,
		Decls:     table,
		Ctx:       ctx,
		Lookup:    lookup.New(ctx),
		protocols: make(map[string]decls.DeclID),
		nominals:  make(map[string]decls.DeclID),
		funcs:     make(map[string]decls.DeclID),
	}
	m.Resolver = newResolver(m)
	m.ModuleID = table.NewModule(name)
	return m
}

// Conformances returns the conformances declared by the fixture.
func (m *Module) Conformances() []*conformance.NormalConformance {
	return m.Lookup.Registered()
}

// HasIncomplete reports whether some conformance is still being resolved.
// Such records must not be read from several goroutines.
func (m *Module) HasIncomplete() bool {
	for _, c := range m.Conformances() {
		if c.State() == conformance.StateIncomplete {
			return true
		}
	}
	return false
}

// Protocol resolves a protocol by name.
func (m *Module) Protocol(name string) (decls.DeclID, bool) {
	id, ok := m.protocols[ident(name)]
	return id, ok
}

// ParseType resolves a type expression without generic parameters in scope.
func (m *Module) ParseType(expr string) (types.TypeID, error) {
	return m.parseType(expr, nil)
}

// WitnessLabel renders the answer to q. Specialized or inherited records
// are looked up on the fly.
func (m *Module) WitnessLabel(c conformance.Conformance, q Query) string {
	if q.Assoc.IsValid() {
		return types.Label(m.Types, c.TypeWitness(q.Assoc, m.Resolver).Replacement())
	}
	ref := c.Witness(q.Requirement, m.Resolver)
	if !ref.IsValid() {
		return "<none>"
	}
	return m.Decls.QualifiedName(ref.Decl)
}

func (m *Module) protocol(name string) (decls.DeclID, error) {
	id, ok := m.protocols[ident(name)]
	if !ok {
		return decls.NoDeclID, fmt.Errorf("unknown protocol %s", name)
	}
	return id, nil
}

func (m *Module) protocolList(names []string) ([]decls.DeclID, error) {
	out := make([]decls.DeclID, 0, len(names))
	for _, name := range names {
		id, err := m.protocol(name)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

func valueKind(kind string) (decls.Kind, error) {
	switch strings.TrimSpace(kind) {
	case "", "func":
		return decls.KindFunc, nil
	case "var":
		return decls.KindVar, nil
	default:
		return decls.KindInvalid, fmt.Errorf("unknown kind %q (expected func or var)", kind)
	}
}

func (m *Module) declareProtocols(f *file) error {
	for i, ps := range f.Protocols {
		name := ident(ps.Name)
		if name == "" {
			return fmt.Errorf("[[protocol]] #%d: missing name", i+1)
		}
		if _, dup := m.protocols[name]; dup {
			return fmt.Errorf("[[protocol]] %s: declared twice", name)
		}
		refines, err := m.protocolList(ps.Refines)
		if err != nil {
			return fmt.Errorf("[[protocol]] %s: refines: %w", name, err)
		}
		m.protocols[name] = m.Decls.NewProtocol(m.ModuleID, name, refines)
	}
	// Associated types may be bounded by protocols declared later.
	for _, ps := range f.Protocols {
		proto := m.protocols[ident(ps.Name)]
		for _, as := range ps.Assoc {
			bounds, err := m.protocolList(as.Bounds)
			if err != nil {
				return fmt.Errorf("[[protocol]] %s: assoc %s: %w", ps.Name, as.Name, err)
			}
			m.Decls.NewAssocType(proto, ident(as.Name), bounds)
		}
		for _, rs := range ps.Requirements {
			kind, err := valueKind(rs.Kind)
			if err != nil {
				return fmt.Errorf("[[protocol]] %s: requirement %s: %w", ps.Name, rs.Name, err)
			}
			m.Decls.NewRequirement(proto, ident(rs.Name), kind, types.NoTypeID)
		}
	}
	return nil
}

func (m *Module) declareTypes(f *file) error {
	for i, ts := range f.Types {
		name := ident(ts.Name)
		if name == "" {
			return fmt.Errorf("[[type]] #%d: missing name", i+1)
		}
		if _, builtin := m.builtinType(name); builtin {
			return fmt.Errorf("[[type]] %s: redeclares a builtin type", name)
		}
		parent := m.ModuleID
		qualified := name
		if p := ident(ts.Parent); p != "" {
			pid, ok := m.nominals[p]
			if !ok {
				return fmt.Errorf("[[type]] %s: unknown parent %s", name, p)
			}
			parent = pid
			qualified = p + "." + name
		}
		if _, dup := m.nominals[qualified]; dup {
			return fmt.Errorf("[[type]] %s: declared twice", qualified)
		}
		specs := make([]decls.ParamSpec, 0, len(ts.Params))
		for _, ps := range ts.Params {
			bounds, err := m.protocolList(ps.Bounds)
			if err != nil {
				return fmt.Errorf("[[type]] %s: param %s: %w", qualified, ps.Name, err)
			}
			specs = append(specs, decls.ParamSpec{Name: ident(ps.Name), Bounds: bounds})
		}
		m.nominals[qualified] = m.Decls.NewNominal(parent, name, specs)
	}
	// Superclasses may name types declared later.
	for _, ts := range f.Types {
		if strings.TrimSpace(ts.Superclass) == "" {
			continue
		}
		qualified := ident(ts.Name)
		if p := ident(ts.Parent); p != "" {
			qualified = p + "." + qualified
		}
		decl := m.nominals[qualified]
		super, err := m.parseType(ts.Superclass, m.genericScope(decl))
		if err != nil {
			return fmt.Errorf("[[type]] %s: superclass: %w", qualified, err)
		}
		m.Decls.SetSuperclass(decl, super)
	}
	return nil
}

// genericScope maps the generic parameter names visible in decl, including
// those of enclosing types, to their archetypes.
func (m *Module) genericScope(decl decls.DeclID) map[string]types.TypeID {
	scope := make(map[string]types.TypeID)
	for cur := decl; m.Decls.Kind(cur) == decls.KindNominal; cur = m.Decls.Parent(cur) {
		for _, p := range m.Decls.GenericParams(cur) {
			name := m.Decls.Name(p)
			if _, shadowed := scope[name]; !shadowed {
				scope[name] = m.Decls.DeclaredType(p)
			}
		}
	}
	return scope
}

func (m *Module) declareFuncs(f *file) error {
	for i, fs := range f.Funcs {
		name := ident(fs.Name)
		ctxName := ident(fs.Context)
		if name == "" || ctxName == "" {
			return fmt.Errorf("[[func]] #%d: name and context are required", i+1)
		}
		ctx, ok := m.nominals[ctxName]
		if !ok {
			if ctx, ok = m.protocols[ctxName]; !ok {
				return fmt.Errorf("[[func]] %s: unknown context %s", name, ctxName)
			}
		}
		kind, err := valueKind(fs.Kind)
		if err != nil {
			return fmt.Errorf("[[func]] %s.%s: %w", ctxName, name, err)
		}
		key := ctxName + "." + name
		if _, dup := m.funcs[key]; dup {
			return fmt.Errorf("[[func]] %s: declared twice", key)
		}
		checked := fs.Checked == nil || *fs.Checked
		m.funcs[key] = m.Decls.NewFunc(ctx, name, kind, types.NoTypeID, checked)
	}
	return nil
}

func (m *Module) attachDefaults(f *file) error {
	for _, ps := range f.Protocols {
		protoName := ident(ps.Name)
		proto := m.protocols[protoName]
		for _, as := range ps.Assoc {
			if strings.TrimSpace(as.Default) == "" {
				continue
			}
			typ, err := m.parseType(as.Default, nil)
			if err != nil {
				return fmt.Errorf("[[protocol]] %s: assoc %s default: %w", protoName, as.Name, err)
			}
			assoc, _ := m.Decls.Member(proto, ident(as.Name))
			m.Decls.SetDefaultType(assoc, typ)
		}
		for _, rs := range ps.Requirements {
			if strings.TrimSpace(rs.Default) == "" {
				continue
			}
			impl, err := m.funcRef(protoName, rs.Default)
			if err != nil {
				return fmt.Errorf("[[protocol]] %s: requirement %s default: %w", protoName, rs.Name, err)
			}
			req, _ := m.Decls.Member(proto, ident(rs.Name))
			m.Decls.SetDefault(req, impl)
		}
	}
	return nil
}

// funcRef resolves a function name relative to ctxName, falling back to a
// fully qualified "Context.name".
func (m *Module) funcRef(ctxName, name string) (decls.DeclID, error) {
	name = ident(name)
	if id, ok := m.funcs[ctxName+"."+name]; ok {
		return id, nil
	}
	if id, ok := m.funcs[name]; ok {
		return id, nil
	}
	return decls.NoDeclID, fmt.Errorf("unknown func %s", name)
}

func (m *Module) declareQueries(f *file) error {
	for i, qs := range f.Queries {
		where := fmt.Sprintf("[[query]] #%d", i+1)
		typ, err := m.parseType(qs.Type, nil)
		if err != nil {
			return fmt.Errorf("%s: %w", where, err)
		}
		proto, err := m.protocol(qs.Protocol)
		if err != nil {
			return fmt.Errorf("%s: %w", where, err)
		}
		q := Query{
			Index:    i,
			TypeText: strings.TrimSpace(qs.Type),
			Type:     typ,
			Protocol: proto,
			Expect:   strings.TrimSpace(qs.Expect),
		}
		assoc, req := ident(qs.Assoc), ident(qs.Requirement)
		switch {
		case assoc != "" && req == "":
			id, ok := m.Decls.Member(proto, assoc)
			if !ok || !m.Decls.IsAssocType(id) {
				return fmt.Errorf("%s: %s has no associated type %s", where, qs.Protocol, assoc)
			}
			q.Assoc = id
		case req != "" && assoc == "":
			id, ok := m.Decls.Member(proto, req)
			if !ok || m.Decls.IsAssocType(id) {
				return fmt.Errorf("%s: %s has no requirement %s", where, qs.Protocol, req)
			}
			q.Requirement = id
		default:
			return fmt.Errorf("%s: exactly one of assoc and requirement must be set", where)
		}
		m.Queries = append(m.Queries, q)
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
