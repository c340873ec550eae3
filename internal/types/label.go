package types

import (
	"strings"

	"conform/internal/source"
)

// Label returns a user-friendly label for a TypeID.
func Label(typesIn *Interner, id TypeID) string {
	return labelDepth(typesIn, id, 0)
}

func labelDepth(typesIn *Interner, id TypeID, depth int) string {
	if id == NoTypeID {
		return "?"
	}
	if depth > 6 {
		return "..."
	}
	if typesIn == nil {
		return "?"
	}
	tt, ok := typesIn.Lookup(id)
	if !ok {
		return "?"
	}
	switch tt.Kind {
	case KindUnit:
		return "()"
	case KindBool:
		return "Bool"
	case KindString:
		return "String"
	case KindInt:
		return "Int"
	case KindFloat:
		return "Float"
	case KindArray:
		return "[" + labelDepth(typesIn, tt.Elem, depth+1) + "]"
	case KindFn:
		info, ok := typesIn.FnInfo(id)
		if !ok {
			return "fn(?)"
		}
		params := make([]string, len(info.Params))
		for i, param := range info.Params {
			params[i] = labelDepth(typesIn, param, depth+1)
		}
		ret := labelDepth(typesIn, info.Result, depth+1)
		return "fn(" + strings.Join(params, ", ") + ") -> " + ret
	case KindNominal, KindBoundGeneric:
		return formatNominalType(typesIn, id, depth)
	case KindGenericParam:
		if info, ok := typesIn.TypeParamInfo(id); ok {
			if name, ok := lookupName(typesIn.Strings, info.Name); ok {
				return name
			}
		}
		return "T"
	default:
		return "?"
	}
}

func formatNominalType(typesIn *Interner, id TypeID, depth int) string {
	info, ok := typesIn.NominalInfo(id)
	if !ok {
		return "?"
	}
	name := lookupNameFallback(typesIn.Strings, info.Name)
	if info.Parent != NoTypeID {
		name = labelDepth(typesIn, info.Parent, depth+1) + "." + name
	}
	if len(info.Args) == 0 {
		return name
	}
	args := make([]string, len(info.Args))
	for i, arg := range info.Args {
		args[i] = labelDepth(typesIn, arg, depth+1)
	}
	return name + "<" + strings.Join(args, ", ") + ">"
}

func lookupName(stringsIn *source.Interner, id source.StringID) (string, bool) {
	if stringsIn == nil {
		return "", false
	}
	name, ok := stringsIn.Lookup(id)
	if !ok || name == "" {
		return "", false
	}
	return name, true
}

func lookupNameFallback(stringsIn *source.Interner, id source.StringID) string {
	if name, ok := lookupName(stringsIn, id); ok {
		return name
	}
	return "?"
}
