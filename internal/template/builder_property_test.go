//go:build property
// +build property

package template

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/weftlabs/weft/pkg/tmpl"
)

// genTree emits a random host-element tree and records what the builder
// must produce for it: one expectation per dynamic point, in document
// order, plus the flat expression list.
type genTree struct {
	r    *rand.Rand
	out  strings.Builder
	next int

	kinds []tmpl.PartKind
	exprs []string
}

func (g *genTree) ident(prefix string) string {
	g.next++
	return fmt.Sprintf("%s%d", prefix, g.next)
}

func (g *genTree) expr() string {
	name := g.ident("x")
	g.exprs = append(g.exprs, name)
	return name
}

func (g *genTree) attr() {
	switch g.r.Intn(7) {
	case 0:
		fmt.Fprintf(&g.out, ` %s="lit"`, g.ident("s"))
	case 1:
		g.kinds = append(g.kinds, tmpl.PartAttr)
		fmt.Fprintf(&g.out, ` %s={%s}`, g.ident("a"), g.expr())
	case 2:
		g.kinds = append(g.kinds, tmpl.PartBoolAttr)
		fmt.Fprintf(&g.out, ` ?%s={%s}`, g.ident("b"), g.expr())
	case 3:
		g.kinds = append(g.kinds, tmpl.PartProp)
		fmt.Fprintf(&g.out, ` .%s={%s}`, g.ident("p"), g.expr())
	case 4:
		g.kinds = append(g.kinds, tmpl.PartEvent)
		fmt.Fprintf(&g.out, ` @%s={%s}`, g.ident("e"), g.expr())
	case 5:
		g.kinds = append(g.kinds, tmpl.PartAttr)
		fmt.Fprintf(&g.out, ` %s="l {%s} m {%s} r"`, g.ident("m"), g.expr(), g.expr())
	case 6:
		g.kinds = append(g.kinds, tmpl.PartSpread)
		fmt.Fprintf(&g.out, ` {...%s}`, g.expr())
	}
}

func (g *genTree) element(depth int) {
	if depth <= 0 {
		switch g.r.Intn(3) {
		case 0:
			g.out.WriteString("<span>leaf</span>")
		case 1:
			g.out.WriteString("<b>leaf</b>")
		case 2:
			g.out.WriteString("<span/>")
		}
		return
	}

	g.out.WriteString("<div")
	for i := g.r.Intn(4); i > 0; i-- {
		g.attr()
	}
	g.out.WriteString(">")
	for i := g.r.Intn(4); i > 0; i-- {
		switch g.r.Intn(3) {
		case 0:
			g.out.WriteString("text")
		case 1:
			g.kinds = append(g.kinds, tmpl.PartChild)
			fmt.Fprintf(&g.out, "{%s}", g.expr())
		case 2:
			g.element(depth - 1)
		}
	}
	g.out.WriteString("</div>")
}

func randomSource(seed int64, depth int) (source string, kinds []tmpl.PartKind, exprs []string) {
	g := &genTree{r: rand.New(rand.NewSource(seed))}
	g.out.WriteString("const V = ")
	g.element(depth)
	g.out.WriteString(";")
	return g.out.String(), g.kinds, g.exprs
}

func TestBuildProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("parts mirror the generated dynamic points", prop.ForAll(
		func(seed int64, depth int) bool {
			source, kinds, exprs := randomSource(seed, depth)
			e := setup(t, source)
			b := e.buildRoot(t, "div")
			if b.Template == nil {
				return false
			}
			if e.diags.Len() != 0 {
				return false
			}

			if len(b.Template.Parts) != len(kinds) {
				return false
			}
			for i, p := range b.Template.Parts {
				if p.Kind != kinds[i] || p.Index != i {
					return false
				}
			}

			if len(b.Values) != b.Template.NValues() || len(b.Values) != len(exprs) {
				return false
			}
			for i, v := range b.Values {
				if v.Kind != ValueExpr || v.Expr != exprs[i] {
					return false
				}
			}

			if len(kinds) == 0 {
				return b.Template.IsStatic() && len(b.Values) == 0
			}
			return !b.Template.IsStatic()
		},
		gen.Int64Range(0, 1<<62),
		gen.IntRange(1, 4),
	))

	properties.Property("every part owns exactly one skeleton marker", prop.ForAll(
		func(seed int64, depth int) bool {
			source, _, _ := randomSource(seed, depth)
			e := setup(t, source)
			b := e.buildRoot(t, "div")

			skel := b.Template.Skeleton
			for _, p := range b.Template.Parts {
				marker := fmt.Sprintf("$w%d$", p.Index)
				if strings.Count(skel, marker) != 1 {
					return false
				}
				if p.Kind == tmpl.PartChild &&
					strings.Count(skel, "<!--"+marker+"-->") != 1 {
					return false
				}
			}
			// generated static text never contains a dollar sign, so
			// every one in the skeleton belongs to a marker
			return strings.Count(skel, "$") == 2*len(b.Template.Parts)
		},
		gen.Int64Range(0, 1<<62),
		gen.IntRange(1, 4),
	))

	properties.Property("building the same source twice is deterministic", prop.ForAll(
		func(seed int64, depth int) bool {
			source, _, _ := randomSource(seed, depth)
			first := setup(t, source).buildRoot(t, "div")
			second := setup(t, source).buildRoot(t, "div")
			return first.Template.Skeleton == second.Template.Skeleton &&
				first.Template.ShapeKey() == second.Template.ShapeKey()
		},
		gen.Int64Range(0, 1<<62),
		gen.IntRange(1, 3),
	))

	properties.Property("an svg wrapper switches the dialect, nothing else", prop.ForAll(
		func(seed int64) bool {
			source, kinds, _ := randomSource(seed, 2)
			inner := strings.TrimSuffix(strings.TrimPrefix(source, "const V = "), ";")
			e := setup(t, "const V = <svg>"+inner+"</svg>;")
			b := e.buildRoot(t, "svg")
			if b.Dialect != tmpl.DialectSVG {
				return false
			}
			return len(b.Template.Parts) == len(kinds)
		},
		gen.Int64Range(0, 1<<62),
	))

	properties.TestingRun(t)
}
