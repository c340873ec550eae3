package types

import "conform/internal/source"

// TypeParamInfo stores metadata about an archetype. Decl is the generic
// parameter or associated type declaration that introduced it; Index is the
// position inside the owner's generic parameter list (0 for associated types).
type TypeParamInfo struct {
	Name  source.StringID
	Decl  uint32
	Index uint32
}

// RegisterTypeParam allocates a new archetype. Archetypes are never deduplicated.
func (in *Interner) RegisterTypeParam(name source.StringID, decl, index uint32) TypeID {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.params = append(in.params, TypeParamInfo{Name: name, Decl: decl, Index: index})
	slot := slotFor(in.params, "type param")
	return in.internLocked(Type{Kind: KindGenericParam, Payload: slot})
}

// TypeParamInfo returns metadata for the provided archetype.
func (in *Interner) TypeParamInfo(id TypeID) (TypeParamInfo, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if id == NoTypeID || int(id) >= len(in.types) {
		return TypeParamInfo{}, false
	}
	tt := in.types[id]
	if tt.Kind != KindGenericParam || tt.Payload == 0 || int(tt.Payload) >= len(in.params) {
		return TypeParamInfo{}, false
	}
	return in.params[tt.Payload], true
}

// IsTypeParam reports whether id is an archetype.
func (in *Interner) IsTypeParam(id TypeID) bool {
	tt, ok := in.Lookup(id)
	return ok && tt.Kind == KindGenericParam
}

// HasTypeParams reports whether id mentions any archetype.
func (in *Interner) HasTypeParams(id TypeID) bool {
	return in.hasTypeParamsDepth(id, 0)
}

func (in *Interner) hasTypeParamsDepth(id TypeID, depth int) bool {
	if depth > 64 {
		return false
	}
	tt, ok := in.Lookup(id)
	if !ok {
		return false
	}
	switch tt.Kind {
	case KindGenericParam:
		return true
	case KindArray:
		return in.hasTypeParamsDepth(tt.Elem, depth+1)
	case KindFn:
		info, ok := in.FnInfo(id)
		if !ok {
			return false
		}
		for _, p := range info.Params {
			if in.hasTypeParamsDepth(p, depth+1) {
				return true
			}
		}
		return in.hasTypeParamsDepth(info.Result, depth+1)
	case KindNominal, KindBoundGeneric:
		info, ok := in.NominalInfo(id)
		if !ok {
			return false
		}
		for _, a := range info.Args {
			if in.hasTypeParamsDepth(a, depth+1) {
				return true
			}
		}
		return info.Parent != NoTypeID && in.hasTypeParamsDepth(info.Parent, depth+1)
	default:
		return false
	}
}
