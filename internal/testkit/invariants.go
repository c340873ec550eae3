// Package testkit holds structural checks shared by conformance tests.
package testkit

import (
	"errors"
	"fmt"

	"conform/internal/conformance"
	"conform/internal/types"
)

// CheckConformance verifies the structural invariants of c:
//   - the record kind matches its concrete type
//   - a complete record answers every requirement of its protocol
//   - every type witness carries one conformance per bound of its associated type
//   - inherited conformances are keyed by protocols the conformed protocol refines
//   - substitutions of specialized records replace generic parameters
//
// Reads go through r, so lazily resolved records are filled in as a side effect.
func CheckConformance(ctx *conformance.Context, c conformance.Conformance, r conformance.Resolver) (err error) {
	if c == nil {
		return fmt.Errorf("nil conformance")
	}
	defer func() {
		if rec := recover(); rec != nil {
			var v *conformance.Violation
			if e, ok := rec.(error); ok && errors.As(e, &v) {
				err = fmt.Errorf("%s: %w", conformance.Describe(ctx, c), v)
				return
			}
			panic(rec)
		}
	}()

	if err := checkKind(c); err != nil {
		return err
	}
	label := conformance.Describe(ctx, c)
	proto := c.Protocol()

	if c.State() == conformance.StateComplete {
		for _, assoc := range ctx.Decls.AssocTypes(proto) {
			if !c.HasTypeWitness(assoc) {
				return fmt.Errorf("%s: complete record lacks type witness %s", label, ctx.Decls.QualifiedName(assoc))
			}
			sub := c.TypeWitness(assoc, r)
			if sub == nil || sub.Replacement() == types.NoTypeID {
				return fmt.Errorf("%s: empty type witness %s", label, ctx.Decls.QualifiedName(assoc))
			}
			if want := len(ctx.Decls.Bounds(assoc)); sub.NumConformances() != want {
				return fmt.Errorf("%s: type witness %s carries %d conformances, want %d",
					label, ctx.Decls.QualifiedName(assoc), sub.NumConformances(), want)
			}
		}
		for _, req := range ctx.Decls.ValueRequirements(proto) {
			if !c.HasWitness(req) {
				return fmt.Errorf("%s: complete record lacks witness %s", label, ctx.Decls.QualifiedName(req))
			}
		}
	}

	for p, inherited := range c.InheritedConformances() {
		if !ctx.Decls.Refines(proto, p) {
			return fmt.Errorf("%s: inherited %s is not refined", label, ctx.Decls.QualifiedName(p))
		}
		if inherited != nil && inherited.Protocol() != p {
			return fmt.Errorf("%s: inherited entry %s holds %s", label,
				ctx.Decls.QualifiedName(p), conformance.Describe(ctx, inherited))
		}
	}

	if spec, ok := c.(*conformance.SpecializedConformance); ok {
		if spec.Protocol() != spec.GenericConformance().Protocol() {
			return fmt.Errorf("%s: protocol differs from generic record", label)
		}
		for _, sub := range spec.Substitutions() {
			if !ctx.Types.IsTypeParam(sub.Param()) {
				return fmt.Errorf("%s: substitution replaces non-parameter %s", label, types.Label(ctx.Types, sub.Param()))
			}
			if want := len(ctx.Decls.ArchetypeBounds(sub.Param())); sub.NumConformances() != want {
				return fmt.Errorf("%s: substitution for %s carries %d conformances, want %d",
					label, types.Label(ctx.Types, sub.Param()), sub.NumConformances(), want)
			}
		}
	}
	return nil
}

func checkKind(c conformance.Conformance) error {
	var want conformance.Kind
	switch c.(type) {
	case *conformance.NormalConformance:
		want = conformance.KindNormal
	case *conformance.SpecializedConformance:
		want = conformance.KindSpecialized
	case *conformance.InheritedConformance:
		want = conformance.KindInherited
	}
	if c.Kind() != want {
		return fmt.Errorf("record %T reports kind %s", c, c.Kind())
	}
	return nil
}
