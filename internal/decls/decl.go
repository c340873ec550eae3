package decls

import (
	"conform/internal/source"
	"conform/internal/types"
)

// Kind classifies a declaration.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindModule
	KindProtocol
	KindAssocType
	KindFunc
	KindVar
	KindNominal
	KindExtension
	KindGenericParam
)

func (k Kind) String() string {
	switch k {
	case KindModule:
		return "module"
	case KindProtocol:
		return "protocol"
	case KindAssocType:
		return "associatedtype"
	case KindFunc:
		return "func"
	case KindVar:
		return "var"
	case KindNominal:
		return "type"
	case KindExtension:
		return "extension"
	case KindGenericParam:
		return "generic-param"
	default:
		return "invalid"
	}
}

// IsContext reports whether declarations of this kind can contain other declarations.
func (k Kind) IsContext() bool {
	switch k {
	case KindModule, KindProtocol, KindNominal, KindExtension:
		return true
	}
	return false
}

// Flags encode misc attributes for quick checks.
type Flags uint8

const (
	// FlagChecked marks a declaration whose signature has been fully type-checked.
	FlagChecked Flags = 1 << iota
	// FlagClass marks a nominal type that may have a superclass.
	FlagClass
)

// Decl describes one declaration. Which fields are meaningful depends on Kind:
//
//   - Protocol: Bounds holds refined protocols, Members its requirements.
//   - AssocType: Type is its archetype, Bounds its protocol constraints, DefaultType the default.
//   - Func/Var: Type is the declared type, Default the default implementation of a requirement.
//   - Nominal: Type is the declared type in context, GenericParams its parameters, Superclass for classes.
//   - Extension: Extended is the extended nominal.
//   - GenericParam: Type is its archetype, Bounds its protocol constraints.
type Decl struct {
	Kind          Kind
	Name          source.StringID
	Parent        DeclID
	Type          types.TypeID
	GenericParams []DeclID
	Bounds        []DeclID
	Members       []DeclID
	Default       DeclID
	DefaultType   types.TypeID
	Superclass    types.TypeID
	Extended      DeclID
	Flags         Flags
}

// ParamSpec describes a generic parameter when declaring a nominal type.
type ParamSpec struct {
	Name   string
	Bounds []DeclID
}
