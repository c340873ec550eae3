package types //nolint:revive

import "slices"

// FnInfo stores metadata for function types.
type FnInfo struct {
	Params []TypeID // Parameter types (in order)
	Result TypeID   // Return type
}

// RegisterFn creates or finds a function type.
func (in *Interner) RegisterFn(params []TypeID, result TypeID) TypeID {
	in.mu.Lock()
	defer in.mu.Unlock()
	for id := TypeID(1); int(id) < len(in.types); id++ {
		tt := in.types[id]
		if tt.Kind != KindFn {
			continue
		}
		info := in.fns[tt.Payload]
		if info.Result == result && slices.Equal(info.Params, params) {
			return id
		}
	}
	in.fns = append(in.fns, FnInfo{
		Params: cloneTypeArgs(params),
		Result: result,
	})
	slot := slotFor(in.fns, "fn info")
	return in.internLocked(Type{Kind: KindFn, Payload: slot})
}

// FnInfo retrieves function type metadata by TypeID.
func (in *Interner) FnInfo(id TypeID) (FnInfo, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if id == NoTypeID || int(id) >= len(in.types) {
		return FnInfo{}, false
	}
	tt := in.types[id]
	if tt.Kind != KindFn || tt.Payload == 0 || int(tt.Payload) >= len(in.fns) {
		return FnInfo{}, false
	}
	info := in.fns[tt.Payload]
	info.Params = cloneTypeArgs(info.Params)
	return info, true
}
