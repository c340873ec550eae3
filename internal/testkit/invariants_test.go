package testkit

import (
	"testing"

	"conform/internal/conformance"
	"conform/internal/decls"
	"conform/internal/types"
)

func TestCheckConformanceRejectsNil(t *testing.T) {
	ctx := conformance.NewContext(decls.NewTable(nil))
	if err := CheckConformance(ctx, nil, nil); err == nil {
		t.Fatalf("expected error for nil conformance")
	}
}

func TestCheckConformanceIncompleteRecord(t *testing.T) {
	table := decls.NewTable(nil)
	mod := table.NewModule("M")
	proto := table.NewProtocol(mod, "P", nil)
	table.NewRequirement(proto, "run", decls.KindFunc, types.NoTypeID)
	nominal := table.NewNominal(mod, "S", nil)

	ctx := conformance.NewContext(table)
	c := ctx.NewNormal(table.DeclaredType(nominal), proto, nominal)
	if err := CheckConformance(ctx, c, nil); err != nil {
		t.Fatalf("incomplete record without witnesses is valid: %v", err)
	}

	c.Invalidate()
	if err := CheckConformance(ctx, c, nil); err != nil {
		t.Fatalf("invalid record may lack witnesses: %v", err)
	}
}
