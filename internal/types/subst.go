package types

import (
	"maps"
	"slices"
	"strings"
)

// Subst maps archetypes to replacement types. Archetypes missing from the
// map are left untouched. A type not mentioning any mapped archetype keeps
// its TypeID, so callers may compare results by identity.
type Subst struct {
	Types   *Interner
	Mapping map[TypeID]TypeID

	cache map[TypeID]TypeID
}

// NewSubst builds a substitution over the provided mapping.
func NewSubst(in *Interner, mapping map[TypeID]TypeID) *Subst {
	return &Subst{Types: in, Mapping: maps.Clone(mapping)}
}

// Type applies type substitution to a type ID.
func (s *Subst) Type(id TypeID) TypeID {
	if s == nil || s.Types == nil || len(s.Mapping) == 0 || id == NoTypeID {
		return id
	}
	if s.cache == nil {
		s.cache = make(map[TypeID]TypeID, 16)
	} else if cached, ok := s.cache[id]; ok {
		return cached
	}

	out := s.typeNoCache(id)
	s.cache[id] = out
	return out
}

func (s *Subst) typeNoCache(id TypeID) TypeID {
	tt, ok := s.Types.Lookup(id)
	if !ok {
		return id
	}

	switch tt.Kind {
	case KindGenericParam:
		if repl, ok := s.Mapping[id]; ok && repl != NoTypeID {
			return repl
		}
		return id

	case KindArray:
		elem := s.Type(tt.Elem)
		if elem == tt.Elem {
			return id
		}
		return s.Types.Intern(MakeArray(elem))

	case KindFn:
		info, ok := s.Types.FnInfo(id)
		if !ok {
			return id
		}
		params := make([]TypeID, len(info.Params))
		changed := false
		for i := range info.Params {
			params[i] = s.Type(info.Params[i])
			changed = changed || params[i] != info.Params[i]
		}
		result := s.Type(info.Result)
		changed = changed || result != info.Result
		if !changed {
			return id
		}
		return s.Types.RegisterFn(params, result)

	case KindNominal, KindBoundGeneric:
		info, ok := s.Types.NominalInfo(id)
		if !ok {
			return id
		}
		parent := s.Type(info.Parent)
		changed := parent != info.Parent
		newArgs := make([]TypeID, len(info.Args))
		for i := range info.Args {
			newArgs[i] = s.Type(info.Args[i])
			changed = changed || newArgs[i] != info.Args[i]
		}
		if !changed {
			return id
		}
		return s.Types.RegisterNominal(info.Name, info.Decl, parent, newArgs)

	default:
		return id
	}
}

// DebugString renders the mapping as "T := Int, U := String", ordered by
// archetype label.
func (s *Subst) DebugString() string {
	if s == nil || len(s.Mapping) == 0 {
		return "<identity>"
	}
	pairs := make([]string, 0, len(s.Mapping))
	for param, repl := range s.Mapping {
		pairs = append(pairs, Label(s.Types, param)+" := "+Label(s.Types, repl))
	}
	slices.Sort(pairs)
	return strings.Join(pairs, ", ")
}
