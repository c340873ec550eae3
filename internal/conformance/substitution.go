package conformance

import (
	"slices"

	"conform/internal/types"
)

// Substitution replaces one archetype with a concrete type, together with
// the conformances of the replacement to each protocol the archetype is
// constrained to. It doubles as the stored witness of an associated type.
// Values are immutable; build them with NewSubstitution or Context.NewSubstitution.
type Substitution struct {
	param        types.TypeID
	replacement  types.TypeID
	conformances []Conformance
}

// NewSubstitution builds a substitution owning a private copy of conformances.
func NewSubstitution(param, replacement types.TypeID, conformances []Conformance) Substitution {
	return Substitution{
		param:        param,
		replacement:  replacement,
		conformances: slices.Clone(conformances),
	}
}

// Param is the archetype being replaced.
func (s Substitution) Param() types.TypeID { return s.param }

// Replacement is the type standing in for Param.
func (s Substitution) Replacement() types.TypeID { return s.replacement }

// Conformances returns a copy of the replacement's conformances, in the
// order of Param's protocol constraints. A nil entry is an abstract
// conformance of an archetype replacement.
func (s Substitution) Conformances() []Conformance {
	return slices.Clone(s.conformances)
}

// NumConformances avoids the copy made by Conformances.
func (s Substitution) NumConformances() int { return len(s.conformances) }

// Equal compares param, replacement and conformance identities.
func (s Substitution) Equal(o Substitution) bool {
	return s.param == o.param && s.replacement == o.replacement && slices.Equal(s.conformances, o.conformances)
}
