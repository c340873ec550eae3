package conformance

import (
	"testing"

	"conform/internal/decls"
	"conform/internal/types"
)

func TestNormalConformanceRecordsWitnesses(t *testing.T) {
	w := newWorld(t)
	xDecl, x, _ := w.nominal("X")
	xfn := w.decls.NewFunc(xDecl, "fn", decls.KindFunc, types.NoTypeID, true)

	c := w.ctx.NewNormal(x, w.p, xDecl)
	if c.State() != StateIncomplete || c.Kind() != KindNormal {
		t.Fatalf("fresh record should be incomplete normal, got %s %s", c.State(), c.Kind())
	}
	c.SetTypeWitness(w.assoc, NewSubstitution(w.archetype(w.assoc), w.b.Int, []Conformance{w.intEq}))
	c.SetWitness(w.fn, DeclRef{Decl: xfn})
	c.Complete()

	sub := c.TypeWitness(w.assoc, nil)
	if sub.Param() != w.archetype(w.assoc) || sub.Replacement() != w.b.Int {
		t.Fatalf("unexpected type witness %v -> %v", sub.Param(), sub.Replacement())
	}
	if confs := sub.Conformances(); len(confs) != 1 || confs[0] != Conformance(w.intEq) {
		t.Fatalf("unexpected witness conformances %v", confs)
	}
	if c.TypeWitness(w.assoc, nil) != sub {
		t.Fatalf("type witness must be returned by reference")
	}
	if got := c.Witness(w.fn, nil); !got.Equal(DeclRef{Decl: xfn}) {
		t.Fatalf("unexpected witness %+v", got)
	}
	if !c.IsComplete() || c.IsInvalid() {
		t.Fatalf("record should be complete")
	}
	if c.Type() != x || c.Protocol() != w.p || c.DeclContext() != xDecl {
		t.Fatalf("accessors mismatch")
	}
}

func TestNormalConformanceSingleWrite(t *testing.T) {
	w := newWorld(t)
	xDecl, x, _ := w.nominal("X")
	xfn := w.decls.NewFunc(xDecl, "fn", decls.KindFunc, types.NoTypeID, true)
	other := w.decls.NewFunc(xDecl, "other", decls.KindFunc, types.NoTypeID, true)

	c := w.ctx.NewNormal(x, w.p, xDecl)
	c.SetTypeWitness(w.assoc, NewSubstitution(w.archetype(w.assoc), w.b.Int, nil))
	c.SetWitness(w.fn, DeclRef{Decl: xfn})

	mustViolate(t, CodeAlreadySet, func() {
		c.SetTypeWitness(w.assoc, NewSubstitution(w.archetype(w.assoc), w.b.String, nil))
	})
	mustViolate(t, CodeAlreadySet, func() {
		c.SetWitness(w.fn, DeclRef{Decl: other})
	})

	if c.TypeWitness(w.assoc, nil).Replacement() != w.b.Int {
		t.Fatalf("rejected write must not change the type witness")
	}
	if c.Witness(w.fn, nil).Decl != xfn {
		t.Fatalf("rejected write must not change the witness")
	}
}

func TestNormalConformanceFreeze(t *testing.T) {
	for _, tc := range []struct {
		name   string
		freeze func(c *NormalConformance)
		state  State
	}{
		{"complete", (*NormalConformance).Complete, StateComplete},
		{"invalidate", (*NormalConformance).Invalidate, StateInvalid},
	} {
		t.Run(tc.name, func(t *testing.T) {
			w := newWorld(t)
			xDecl, x, _ := w.nominal("X")
			xfn := w.decls.NewFunc(xDecl, "fn", decls.KindFunc, types.NoTypeID, true)
			c := w.ctx.NewNormal(x, w.p, xDecl)
			tc.freeze(c)

			mustViolate(t, CodeFrozen, func() {
				c.SetTypeWitness(w.assoc, NewSubstitution(w.archetype(w.assoc), w.b.Int, nil))
			})
			mustViolate(t, CodeFrozen, func() { c.SetWitness(w.fn, DeclRef{Decl: xfn}) })
			mustViolate(t, CodeFrozen, c.Complete)
			mustViolate(t, CodeFrozen, c.Invalidate)

			if c.State() != tc.state {
				t.Fatalf("state changed to %s", c.State())
			}
			if c.HasTypeWitness(w.assoc) || c.HasWitness(w.fn) {
				t.Fatalf("frozen record gained a witness")
			}
		})
	}
}

func TestNormalConformanceProtocolMembership(t *testing.T) {
	w := newWorld(t)
	q := w.decls.NewProtocol(w.mod, "Q", nil)
	qAssoc := w.decls.NewAssocType(q, "Other", nil)
	qReq := w.decls.NewRequirement(q, "g", decls.KindFunc, types.NoTypeID)
	xDecl, x, _ := w.nominal("X")
	xg := w.decls.NewFunc(xDecl, "g", decls.KindFunc, types.NoTypeID, true)

	c := w.ctx.NewNormal(x, w.p, xDecl)
	mustViolate(t, CodeWrongProtocol, func() {
		c.SetTypeWitness(qAssoc, NewSubstitution(w.archetype(qAssoc), w.b.Int, nil))
	})
	mustViolate(t, CodeWrongProtocol, func() { c.SetWitness(qReq, DeclRef{Decl: xg}) })
	mustViolate(t, CodeTypeWitnessViaSetWitness, func() { c.SetWitness(w.assoc, DeclRef{Decl: xg}) })
	mustViolate(t, CodeTypeWitnessViaSetWitness, func() { c.SetWitness(qAssoc, DeclRef{Decl: xg}) })
	mustViolate(t, CodeWrongProtocol, func() {
		c.SetTypeWitness(w.fn, NewSubstitution(w.b.Int, w.b.Int, nil))
	})

	if c.HasTypeWitness(qAssoc) || c.HasWitness(qReq) || c.HasWitness(w.assoc) {
		t.Fatalf("rejected writes must leave no trace")
	}
}

func TestNormalConformanceBadContext(t *testing.T) {
	w := newWorld(t)
	_, x, _ := w.nominal("X")
	mustViolate(t, CodeBadContext, func() { w.ctx.NewNormal(x, w.assoc, w.mod) })
	mustViolate(t, CodeBadContext, func() { w.ctx.NewNormal(x, w.p, w.fn) })
}

type recordingResolver struct {
	w          *world
	typeCalls  int
	valueCalls int
	resolved   []decls.DeclID
	witness    decls.DeclID
}

func (r *recordingResolver) ResolveDecl(d decls.DeclID) {
	r.resolved = append(r.resolved, d)
	r.w.decls.MarkChecked(d)
}

func (r *recordingResolver) ResolveTypeWitness(c *NormalConformance, assoc decls.DeclID) {
	r.typeCalls++
	c.SetTypeWitness(assoc, NewSubstitution(r.w.archetype(assoc), r.w.b.String, nil))
}

func (r *recordingResolver) ResolveWitness(c *NormalConformance, req decls.DeclID) {
	r.valueCalls++
	c.SetWitness(req, DeclRef{Decl: r.witness})
}

func TestNormalConformanceResolvesDeferredWitnesses(t *testing.T) {
	w := newWorld(t)
	xDecl, x, _ := w.nominal("X")
	lazy := w.decls.NewFunc(xDecl, "fn", decls.KindFunc, types.NoTypeID, false)
	r := &recordingResolver{w: w, witness: lazy}

	c := w.ctx.NewNormal(x, w.p, xDecl)
	if got := c.TypeWitness(w.assoc, r).Replacement(); got != w.b.String {
		t.Fatalf("resolver witness not returned, got %v", got)
	}
	if got := c.Witness(w.fn, r); got.Decl != lazy {
		t.Fatalf("resolver witness not returned, got %+v", got)
	}
	c.TypeWitness(w.assoc, r)
	c.Witness(w.fn, r)

	if r.typeCalls != 1 || r.valueCalls != 1 {
		t.Fatalf("resolver should run once per requirement, got %d/%d", r.typeCalls, r.valueCalls)
	}
	if len(r.resolved) != 1 || r.resolved[0] != lazy {
		t.Fatalf("unchecked witness decl should be resolved once, got %v", r.resolved)
	}
}

func TestNormalConformanceMissingWitness(t *testing.T) {
	w := newWorld(t)
	xDecl, x, _ := w.nominal("X")

	c := w.ctx.NewNormal(x, w.p, xDecl)
	mustViolate(t, CodeUnresolved, func() { c.TypeWitness(w.assoc, nil) })
	mustViolate(t, CodeUnresolved, func() { c.Witness(w.fn, nil) })

	c.Invalidate()
	r := &recordingResolver{w: w}
	mustViolate(t, CodeUnresolved, func() { c.TypeWitness(w.assoc, r) })
	mustViolate(t, CodeUnresolved, func() { c.Witness(w.fn, r) })
	if r.typeCalls != 0 || r.valueCalls != 0 {
		t.Fatalf("invalid record must not consult the resolver")
	}
}

func TestNormalConformanceInheritedConformances(t *testing.T) {
	w := newWorld(t)
	base := w.decls.NewProtocol(w.mod, "Base", nil)
	mid := w.decls.NewProtocol(w.mod, "Mid", []decls.DeclID{base})
	top := w.decls.NewProtocol(w.mod, "Top", []decls.DeclID{mid})
	xDecl, x, _ := w.nominal("X")

	baseConf := w.ctx.NewNormal(x, base, xDecl)
	midConf := w.ctx.NewNormal(x, mid, xDecl)
	c := w.ctx.NewNormal(x, top, xDecl)

	mustViolate(t, CodeNotRefined, func() { c.SetInheritedConformance(w.p, baseConf) })
	mustViolate(t, CodeProtocolMismatch, func() { c.SetInheritedConformance(mid, baseConf) })

	c.SetInheritedConformance(mid, midConf)
	c.SetInheritedConformance(base, baseConf)
	mustViolate(t, CodeAlreadySet, func() { c.SetInheritedConformance(base, baseConf) })

	got := c.InheritedConformances()
	if len(got) != 2 || got[mid] != Conformance(midConf) || got[base] != Conformance(baseConf) {
		t.Fatalf("unexpected inherited map %v", got)
	}
	if ps := got.Protocols(); len(ps) != 2 || ps[0] != base || ps[1] != mid {
		t.Fatalf("protocols should be sorted, got %v", ps)
	}
	delete(got, base)
	if len(c.InheritedConformances()) != 2 {
		t.Fatalf("InheritedConformances must return a copy")
	}
}

func TestNormalConformanceUsesDefaultDefinition(t *testing.T) {
	w := newWorld(t)
	xDecl, x, _ := w.nominal("X")
	def := w.decls.NewFunc(w.p, "fnDefault", decls.KindFunc, types.NoTypeID, true)
	own := w.decls.NewFunc(xDecl, "fn", decls.KindFunc, types.NoTypeID, true)
	w.decls.SetDefault(w.fn, def)
	w.decls.SetDefaultType(w.assoc, w.b.Int)

	c := w.ctx.NewNormal(x, w.p, xDecl)
	if c.UsesDefaultDefinition(w.fn) || c.UsesDefaultDefinition(w.assoc) {
		t.Fatalf("unset witnesses are not defaults")
	}
	c.SetWitness(w.fn, DeclRef{Decl: def})
	c.SetTypeWitness(w.assoc, NewSubstitution(w.archetype(w.assoc), w.b.Int, nil))
	if !c.UsesDefaultDefinition(w.fn) || !c.UsesDefaultDefinition(w.assoc) {
		t.Fatalf("default witnesses not detected")
	}

	y := w.ctx.NewNormal(x, w.p, xDecl)
	y.SetWitness(w.fn, DeclRef{Decl: own})
	y.SetTypeWitness(w.assoc, NewSubstitution(w.archetype(w.assoc), w.b.String, nil))
	if y.UsesDefaultDefinition(w.fn) || y.UsesDefaultDefinition(w.assoc) {
		t.Fatalf("own witnesses reported as defaults")
	}
}

func TestNormalConformanceGenericParams(t *testing.T) {
	w := newWorld(t)
	_, x, _ := w.nominal("X")
	gDecl, g, gParams := w.nominal("G", "T")
	outer := w.decls.NewNominal(w.mod, "Outer", []decls.ParamSpec{{Name: "U"}})
	inner := w.decls.NewNominal(outer, "Inner", nil)

	if got := w.ctx.NewNormal(x, w.p, gDecl).GenericParams(); got != nil {
		t.Fatalf("non-generic type has no generic params, got %v", got)
	}
	if got := w.ctx.NewNormal(g, w.p, gDecl).GenericParams(); len(got) != 1 || got[0] != gParams[0] {
		t.Fatalf("unexpected generic params %v", got)
	}
	innerType := w.decls.DeclaredType(inner)
	got := w.ctx.NewNormal(innerType, w.p, inner).GenericParams()
	if want := w.decls.GenericParams(outer); len(got) != 1 || got[0] != want[0] {
		t.Fatalf("nested type should report the parent's params, got %v want %v", got, want)
	}

	constrained := w.ctx.NewNormal(w.instance(gDecl, w.b.Int), w.p, gDecl)
	mustViolate(t, CodeConstrainedGeneric, func() { constrained.GenericParams() })
}
