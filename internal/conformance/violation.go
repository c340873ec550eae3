package conformance

import "fmt"

// Code classifies a Violation.
type Code uint8

const (
	// CodeWrongProtocol: the requirement belongs to another protocol.
	CodeWrongProtocol Code = iota + 1
	// CodeAlreadySet: a witness for the requirement was recorded before.
	CodeAlreadySet
	// CodeFrozen: the conformance is complete or invalid.
	CodeFrozen
	// CodeTypeWitnessViaSetWitness: associated types go through SetTypeWitness.
	CodeTypeWitnessViaSetWitness
	// CodeNotRefined: an inherited conformance for a protocol that is not refined.
	CodeNotRefined
	// CodeProtocolMismatch: the inherited conformance is for another protocol.
	CodeProtocolMismatch
	// CodeUnresolved: a witness was read before it was recorded.
	CodeUnresolved
	// CodeUnsound: specialization could not re-derive a conformance the
	// substitution implies.
	CodeUnsound
	// CodeConstrainedGeneric: the conforming type is a bound generic type
	// that is not its declaration's type in context.
	CodeConstrainedGeneric
	// CodeBadContext: a record was created with an invalid protocol or context.
	CodeBadContext
)

func (c Code) String() string {
	switch c {
	case CodeWrongProtocol:
		return "requirement in wrong protocol"
	case CodeAlreadySet:
		return "witness already known"
	case CodeFrozen:
		return "conformance already complete"
	case CodeTypeWitnessViaSetWitness:
		return "associated type requires a type witness"
	case CodeNotRefined:
		return "protocol not refined"
	case CodeProtocolMismatch:
		return "conformance protocol mismatch"
	case CodeUnresolved:
		return "witness not resolved"
	case CodeUnsound:
		return "improperly checked substitution"
	case CodeConstrainedGeneric:
		return "conformance for constrained generic type"
	case CodeBadContext:
		return "invalid conformance context"
	default:
		return fmt.Sprintf("Code(%d)", c)
	}
}

// Violation is the panic value for misuse of conformance records.
type Violation struct {
	Op     string
	Code   Code
	Detail string
}

func (v *Violation) Error() string {
	if v.Detail == "" {
		return fmt.Sprintf("conformance: %s: %s", v.Op, v.Code)
	}
	return fmt.Sprintf("conformance: %s: %s: %s", v.Op, v.Code, v.Detail)
}

func violate(op string, code Code, format string, args ...any) {
	panic(&Violation{Op: op, Code: code, Detail: fmt.Sprintf(format, args...)})
}
