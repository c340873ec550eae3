package types

import (
	"fmt"
	"sync"

	"fortio.org/safecast"

	"conform/internal/source"
)

// Builtins stores TypeIDs for common primitive types.
type Builtins struct {
	Invalid TypeID
	Unit    TypeID
	Bool    TypeID
	String  TypeID
	Int     TypeID
	Float   TypeID
}

// Interner provides stable TypeIDs by hashing structural descriptors.
// Nominal, function and generic-parameter types live in side tables indexed
// by Type.Payload. All methods are safe for concurrent use: specialization
// may intern new types while frozen conformances are read in parallel.
type Interner struct {
	Strings *source.Interner

	mu       sync.RWMutex
	types    []Type
	index    map[Type]TypeID
	builtins Builtins
	nominals []NominalInfo
	params   []TypeParamInfo
	fns      []FnInfo
}

// NewInterner constructs an interner seeded with built-in primitives.
// A nil strings interner gets a private one.
func NewInterner(strs *source.Interner) *Interner {
	if strs == nil {
		strs = source.NewInterner()
	}
	in := &Interner{
		Strings: strs,
		index:   make(map[Type]TypeID, 64),
	}
	// slot 0 of every side table is the invalid sentinel
	in.nominals = append(in.nominals, NominalInfo{})
	in.params = append(in.params, TypeParamInfo{})
	in.fns = append(in.fns, FnInfo{})
	in.builtins.Invalid = in.internRaw(Type{Kind: KindInvalid})
	in.builtins.Unit = in.Intern(Type{Kind: KindUnit})
	in.builtins.Bool = in.Intern(Type{Kind: KindBool})
	in.builtins.String = in.Intern(Type{Kind: KindString})
	in.builtins.Int = in.Intern(Type{Kind: KindInt})
	in.builtins.Float = in.Intern(Type{Kind: KindFloat})
	return in
}

// Builtins returns TypeIDs for primitive types.
func (in *Interner) Builtins() Builtins {
	return in.builtins
}

// Intern ensures the provided structural descriptor has a stable TypeID.
func (in *Interner) Intern(t Type) TypeID {
	if t.Kind == KindInvalid {
		return NoTypeID
	}
	in.mu.RLock()
	id, ok := in.index[t]
	in.mu.RUnlock()
	if ok {
		return id
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	if id, ok := in.index[t]; ok {
		return id
	}
	return in.internLocked(t)
}

// internRaw adds the descriptor to the storage without consulting the map.
func (in *Interner) internRaw(t Type) TypeID {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.internLocked(t)
}

func (in *Interner) internLocked(t Type) TypeID {
	n, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("len(types) overflow: %w", err))
	}
	id := TypeID(n)
	in.types = append(in.types, t)
	in.index[t] = id
	return id
}

// Lookup returns the descriptor for a TypeID.
func (in *Interner) Lookup(id TypeID) (Type, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if id == NoTypeID || int(id) >= len(in.types) {
		return Type{}, false
	}
	return in.types[id], true
}

// MustLookup panics when id is invalid.
func (in *Interner) MustLookup(id TypeID) Type {
	tt, ok := in.Lookup(id)
	if !ok {
		panic("types: invalid TypeID")
	}
	return tt
}

// Len reports the number of interned types including the invalid sentinel.
func (in *Interner) Len() int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return len(in.types)
}

func slotFor[T any](table []T, what string) uint32 {
	slot, err := safecast.Conv[uint32](len(table) - 1)
	if err != nil {
		panic(fmt.Errorf("%s overflow: %w", what, err))
	}
	return slot
}
