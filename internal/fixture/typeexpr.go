package fixture

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"conform/internal/decls"
	"conform/internal/types"
)

// ident trims and NFC-normalizes an identifier so that visually equal
// names intern to the same StringID.
func ident(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// typeParser reads type expressions:
//
//	type  = "[" type "]" | path
//	path  = name args? ("." name args?)*
//	args  = "<" type ("," type)* ">"
//
// Names resolve to builtins, then to generic parameters in scope, then to
// nominal types declared by the fixture.
type typeParser struct {
	m     *Module
	scope map[string]types.TypeID
	src   []rune
	pos   int
}

func (m *Module) parseType(expr string, scope map[string]types.TypeID) (types.TypeID, error) {
	p := &typeParser{m: m, scope: scope, src: []rune(norm.NFC.String(expr))}
	p.skipSpace()
	if p.eof() {
		return types.NoTypeID, fmt.Errorf("empty type expression")
	}
	id, err := p.parseType()
	if err != nil {
		return types.NoTypeID, fmt.Errorf("type %q: %w", expr, err)
	}
	p.skipSpace()
	if !p.eof() {
		return types.NoTypeID, fmt.Errorf("type %q: unexpected %q at %d", expr, string(p.src[p.pos]), p.pos)
	}
	return id, nil
}

func (p *typeParser) eof() bool { return p.pos >= len(p.src) }

func (p *typeParser) skipSpace() {
	for !p.eof() && unicode.IsSpace(p.src[p.pos]) {
		p.pos++
	}
}

func (p *typeParser) accept(r rune) bool {
	p.skipSpace()
	if !p.eof() && p.src[p.pos] == r {
		p.pos++
		return true
	}
	return false
}

func (p *typeParser) name() (string, error) {
	p.skipSpace()
	start := p.pos
	for !p.eof() {
		r := p.src[p.pos]
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.Is(unicode.Mn, r) {
			break
		}
		p.pos++
	}
	if start == p.pos || unicode.IsDigit(p.src[start]) {
		return "", fmt.Errorf("expected a name at %d", start)
	}
	return string(p.src[start:p.pos]), nil
}

func (p *typeParser) parseType() (types.TypeID, error) {
	if p.accept('[') {
		elem, err := p.parseType()
		if err != nil {
			return types.NoTypeID, err
		}
		if !p.accept(']') {
			return types.NoTypeID, fmt.Errorf("missing ']' at %d", p.pos)
		}
		return p.m.Types.Intern(types.MakeArray(elem)), nil
	}
	return p.parsePath()
}

func (p *typeParser) parseArgs() ([]types.TypeID, error) {
	if !p.accept('<') {
		return nil, nil
	}
	var args []types.TypeID
	for {
		arg, err := p.parseType()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.accept('>') {
			return args, nil
		}
		if !p.accept(',') {
			return nil, fmt.Errorf("expected ',' or '>' at %d", p.pos)
		}
	}
}

func (p *typeParser) parsePath() (types.TypeID, error) {
	first, err := p.name()
	if err != nil {
		return types.NoTypeID, err
	}
	args, err := p.parseArgs()
	if err != nil {
		return types.NoTypeID, err
	}

	if len(args) == 0 && !p.peek('.') {
		if id, ok := p.m.builtinType(first); ok {
			return id, nil
		}
		if id, ok := p.scope[first]; ok {
			return id, nil
		}
	}

	qualified := first
	parent := types.NoTypeID
	for {
		decl, ok := p.m.nominals[qualified]
		if !ok {
			return types.NoTypeID, fmt.Errorf("unknown type %s", qualified)
		}
		id, err := p.m.applyNominal(decl, parent, args)
		if err != nil {
			return types.NoTypeID, err
		}
		if !p.accept('.') {
			return id, nil
		}
		member, err := p.name()
		if err != nil {
			return types.NoTypeID, err
		}
		if args, err = p.parseArgs(); err != nil {
			return types.NoTypeID, err
		}
		qualified += "." + member
		parent = id
	}
}

func (p *typeParser) peek(r rune) bool {
	save := p.pos
	defer func() { p.pos = save }()
	return p.accept(r)
}

func (m *Module) builtinType(name string) (types.TypeID, bool) {
	b := m.Types.Builtins()
	switch name {
	case "Int":
		return b.Int, true
	case "String":
		return b.String, true
	case "Bool":
		return b.Bool, true
	case "Float":
		return b.Float, true
	case "Unit":
		return b.Unit, true
	}
	return types.NoTypeID, false
}

// applyNominal instantiates decl nested in parent with args.
func (m *Module) applyNominal(decl decls.DeclID, parent types.TypeID, args []types.TypeID) (types.TypeID, error) {
	params := m.Decls.GenericParams(decl)
	if len(params) != len(args) {
		return types.NoTypeID, fmt.Errorf("%s expects %d type arguments, got %d",
			m.Decls.QualifiedName(decl), len(params), len(args))
	}
	d := m.Decls.MustGet(decl)
	return m.Types.RegisterNominal(d.Name, uint32(decl), parent, args), nil
}
