package types

import "fmt"

// TypeID uniquely identifies a type inside the interner.
type TypeID uint32

// NoTypeID marks the absence of a type.
const NoTypeID TypeID = 0

// Kind enumerates all supported kinds of types.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindUnit
	KindBool
	KindString
	KindInt
	KindFloat
	KindArray
	KindFn
	// KindNominal is a non-generic nominal type, possibly nested in a parent.
	KindNominal
	// KindBoundGeneric is a generic nominal type applied to arguments.
	KindBoundGeneric
	// KindGenericParam is an archetype: a generic parameter or an associated type placeholder.
	KindGenericParam
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindUnit:
		return "unit"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindArray:
		return "array"
	case KindFn:
		return "fn"
	case KindNominal:
		return "nominal"
	case KindBoundGeneric:
		return "bound-generic"
	case KindGenericParam:
		return "generic-param"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Type is a compact descriptor for any supported type.
type Type struct {
	Kind    Kind
	Elem    TypeID // for arrays
	Payload uint32 // slot in the side table for nominal, fn and generic params
}

// MakeArray describes [Elem].
func MakeArray(elem TypeID) Type {
	return Type{Kind: KindArray, Elem: elem}
}
