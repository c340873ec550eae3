package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"conform/internal/conformance"
	"conform/internal/decls"
	"conform/internal/fixture"
	"conform/internal/trace"
	"conform/internal/types"
)

var explainCmd = &cobra.Command{
	Use:   "explain <fixture.toml> <type> <protocol>",
	Short: "Show how a type conforms to a protocol",
	Long: `Looks up the conformance of <type> to <protocol> in the fixture and prints
its witnesses, inherited conformances and the chain of records it was derived from`,
	Args: cobra.ExactArgs(3),
	RunE: runExplain,
}

var (
	headerColor  = color.New(color.FgCyan, color.Bold)
	sectionColor = color.New(color.Bold)
	errorColor   = color.New(color.FgRed)
	dimColor     = color.New(color.Faint)
)

func runExplain(cmd *cobra.Command, args []string) (err error) {
	stopProfiling, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	defer stopProfiling()

	cleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer func() { cleanup(err) }()

	m, err := fixture.Load(args[0], fixture.Options{Tracer: trace.FromContext(cmd.Context())})
	if err != nil {
		return err
	}
	typ, err := m.ParseType(args[1])
	if err != nil {
		return err
	}
	proto, ok := m.Protocol(args[2])
	if !ok {
		return fmt.Errorf("unknown protocol %q", args[2])
	}

	c, ok := m.Lookup.LookupConformance(typ, proto, m.Resolver)
	if !ok {
		return fmt.Errorf("%s does not conform to %s", types.Label(m.Types, typ), m.Decls.QualifiedName(proto))
	}
	return writeExplanation(cmd.OutOrStdout(), m, c)
}

func writeExplanation(w io.Writer, m *fixture.Module, c conformance.Conformance) error {
	var b strings.Builder
	b.WriteString(headerColor.Sprint(conformance.Describe(m.Ctx, c)))
	b.WriteByte('\n')
	if c == nil {
		b.WriteString(dimColor.Sprint("  satisfied by the generic parameter's requirements"))
		b.WriteByte('\n')
		_, err := io.WriteString(w, b.String())
		return err
	}
	fmt.Fprintf(&b, "  state: %s\n", c.State())

	proto := c.Protocol()
	if assocs := m.Decls.AssocTypes(proto); len(assocs) > 0 {
		b.WriteString(sectionColor.Sprint("  associated types:"))
		b.WriteByte('\n')
		for _, assoc := range assocs {
			label, err := guard(func() string {
				return types.Label(m.Types, c.TypeWitness(assoc, m.Resolver).Replacement())
			})
			writeEntry(&b, m.Decls.Name(assoc), label, err)
		}
	}
	if reqs := m.Decls.ValueRequirements(proto); len(reqs) > 0 {
		b.WriteString(sectionColor.Sprint("  requirements:"))
		b.WriteByte('\n')
		for _, req := range reqs {
			label, err := guard(func() string {
				ref := c.Witness(req, m.Resolver)
				if !ref.IsValid() {
					return "<none>"
				}
				out := m.Decls.QualifiedName(ref.Decl)
				if c.UsesDefaultDefinition(req) {
					out += dimColor.Sprint(" (default)")
				}
				return out
			})
			writeEntry(&b, m.Decls.Name(req), label, err)
		}
	}
	inherited := c.InheritedConformances()
	if len(inherited) > 0 {
		b.WriteString(sectionColor.Sprint("  inherited:"))
		b.WriteByte('\n')
		for _, p := range inherited.Protocols() {
			writeEntry(&b, m.Decls.Name(p), conformance.Describe(m.Ctx, inherited[p]), nil)
		}
	}

	b.WriteString(sectionColor.Sprint("  derivation:"))
	b.WriteByte('\n')
	writeDerivation(&b, m, c, 2)

	_, err := io.WriteString(w, b.String())
	return err
}

func writeDerivation(b *strings.Builder, m *fixture.Module, c conformance.Conformance, depth int) {
	indent := strings.Repeat("  ", depth)
	switch rec := c.(type) {
	case *conformance.SpecializedConformance:
		fmt.Fprintf(b, "%sspecialized %s\n", indent, types.Label(m.Types, rec.Type()))
		for _, sub := range rec.Substitutions() {
			fmt.Fprintf(b, "%s  %s := %s", indent, types.Label(m.Types, sub.Param()), types.Label(m.Types, sub.Replacement()))
			if n := sub.NumConformances(); n > 0 {
				fmt.Fprintf(b, " [%d conformances]", n)
			}
			b.WriteByte('\n')
		}
		writeDerivation(b, m, rec.GenericConformance(), depth+1)
	case *conformance.InheritedConformance:
		fmt.Fprintf(b, "%sinherited by %s\n", indent, types.Label(m.Types, rec.Type()))
		writeDerivation(b, m, rec.Base(), depth+1)
	case *conformance.NormalConformance:
		fmt.Fprintf(b, "%snormal %s in %s\n", indent, types.Label(m.Types, rec.Type()), contextName(m.Decls, rec.DeclContext()))
	}
}

func contextName(table *decls.Table, dc decls.DeclID) string {
	if table.Kind(dc) == decls.KindExtension {
		return "extension of " + types.Label(table.Types, table.ContextType(dc))
	}
	return table.QualifiedName(dc)
}

func writeEntry(b *strings.Builder, name, value string, err error) {
	if err != nil {
		fmt.Fprintf(b, "    %s: %s\n", name, errorColor.Sprint(err.Error()))
		return
	}
	fmt.Fprintf(b, "    %s: %s\n", name, value)
}

// guard runs fn and converts a conformance violation into an error.
func guard(fn func() string) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			var v *conformance.Violation
			if e, ok := r.(error); ok && errors.As(e, &v) {
				err = v
				return
			}
			panic(r)
		}
	}()
	return fn(), nil
}
