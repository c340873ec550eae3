package types

import (
	"slices"

	"conform/internal/source"
)

// NominalInfo stores metadata for nominal and bound-generic types.
// Decl is the owning declaration in the decl table; Parent is the enclosing
// nominal type for nested declarations.
type NominalInfo struct {
	Name   source.StringID
	Decl   uint32
	Parent TypeID
	Args   []TypeID
}

// RegisterNominal returns the TypeID for decl nested in parent and applied to
// args. Types without args are KindNominal, the rest KindBoundGeneric.
// Identical (decl, parent, args) triples share a TypeID.
func (in *Interner) RegisterNominal(name source.StringID, decl uint32, parent TypeID, args []TypeID) TypeID {
	in.mu.Lock()
	defer in.mu.Unlock()
	if id, ok := in.findNominalLocked(decl, parent, args); ok {
		return id
	}
	kind := KindNominal
	if len(args) > 0 {
		kind = KindBoundGeneric
	}
	in.nominals = append(in.nominals, NominalInfo{
		Name:   name,
		Decl:   decl,
		Parent: parent,
		Args:   cloneTypeArgs(args),
	})
	slot := slotFor(in.nominals, "nominal info")
	return in.internLocked(Type{Kind: kind, Payload: slot})
}

// FindNominal returns an already registered instance of decl.
func (in *Interner) FindNominal(decl uint32, parent TypeID, args []TypeID) (TypeID, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.findNominalLocked(decl, parent, args)
}

func (in *Interner) findNominalLocked(decl uint32, parent TypeID, args []TypeID) (TypeID, bool) {
	for id := TypeID(1); int(id) < len(in.types); id++ {
		tt := in.types[id]
		if tt.Kind != KindNominal && tt.Kind != KindBoundGeneric {
			continue
		}
		info := in.nominals[tt.Payload]
		if info.Decl != decl || info.Parent != parent {
			continue
		}
		if slices.Equal(info.Args, args) {
			return id, true
		}
	}
	return NoTypeID, false
}

// NominalInfo returns a copy of the metadata for a nominal or bound-generic type.
func (in *Interner) NominalInfo(id TypeID) (NominalInfo, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if id == NoTypeID || int(id) >= len(in.types) {
		return NominalInfo{}, false
	}
	tt := in.types[id]
	if tt.Kind != KindNominal && tt.Kind != KindBoundGeneric {
		return NominalInfo{}, false
	}
	if tt.Payload == 0 || int(tt.Payload) >= len(in.nominals) {
		return NominalInfo{}, false
	}
	info := in.nominals[tt.Payload]
	info.Args = cloneTypeArgs(info.Args)
	return info, true
}

// NominalDecl returns the declaration behind a nominal type, or 0.
func (in *Interner) NominalDecl(id TypeID) uint32 {
	info, ok := in.NominalInfo(id)
	if !ok {
		return 0
	}
	return info.Decl
}

func cloneTypeArgs(args []TypeID) []TypeID {
	if len(args) == 0 {
		return nil
	}
	return slices.Clone(args)
}
