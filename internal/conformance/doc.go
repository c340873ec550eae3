// Package conformance records which types satisfy which protocols and with
// which witnesses.
//
// A conformance is stored in one of three shapes behind the Conformance
// interface:
//
//   - NormalConformance: built by the type checker, requirement by
//     requirement, then frozen with Complete or Invalidate.
//   - SpecializedConformance: a generic conformance seen through a
//     substitution of its type parameters. Type witnesses are derived on
//     first access and cached for good.
//   - InheritedConformance: a conformance a subclass gets from its superclass.
//
// All records are owned by an Arena and share a Context that gives them
// access to the type interner, the declaration table, the lookup service used
// to re-derive conformances during specialization, and a tracer.
//
// Misuse of the builder API (double writes, writes after freezing, witnesses
// for another protocol's requirements) panics with a *Violation. These are
// bugs in the caller, not conditions to handle.
package conformance
