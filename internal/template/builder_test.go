package template

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/weftlabs/weft/internal/classify"
	"github.com/weftlabs/weft/internal/diag"
	"github.com/weftlabs/weft/internal/patch"
	"github.com/weftlabs/weft/internal/resolve"
	"github.com/weftlabs/weft/internal/syntax"
	"github.com/weftlabs/weft/pkg/tmpl"
)

type env struct {
	b     *Builder
	file  *syntax.File
	src   *patch.Set
	diags *diag.List
}

func setup(t *testing.T, source string) *env {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.wx")
	f, err := syntax.Parse(path, []byte(source))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	load := func(p string) (*syntax.File, error) {
		if p == path {
			return f, nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		return syntax.Parse(p, data)
	}
	res := resolve.New(resolve.NewCache(), load, resolve.DefaultModuleResolver)
	var diags diag.List
	cls := classify.New(res, f, &diags)
	src := patch.NewSet(f.Src)
	return &env{b: NewBuilder(f, cls, src), file: f, src: src, diags: &diags}
}

// buildRoot builds the markup root with the given tag name
func (e *env) buildRoot(t *testing.T, tag string) *Built {
	t.Helper()
	for _, m := range e.file.Markups {
		if m.Root.Tag == tag {
			return e.b.Build(m.Root, m.Scope)
		}
	}
	t.Fatalf("no <%s> root", tag)
	return nil
}

const factories = `import { defineComponent, defineElement } from "weft";
const Widget = defineComponent(() => <article/>);
const Chip = defineElement("x-chip");
`

func TestBuild_StaticSkeleton(t *testing.T) {
	e := setup(t, `const V = <div class="box"><p>hi</p></div>;`)
	b := e.buildRoot(t, "div")
	if b.Template == nil {
		t.Fatal("want template form")
	}
	if got := b.Template.Skeleton; got != `<div class="box"><p>hi</p></div>` {
		t.Errorf("skeleton = %q", got)
	}
	if !b.Template.IsStatic() || len(b.Values) != 0 {
		t.Errorf("want static template, got %d parts %d values", len(b.Template.Parts), len(b.Values))
	}
	if b.Dialect != tmpl.DialectGeneral {
		t.Errorf("dialect = %s", b.Dialect)
	}
}

func TestBuild_AttributeKinds(t *testing.T) {
	e := setup(t, `const V = <input type="text" ?disabled={locked} .value={text} @input={onInput} title={tip}/>;`)
	b := e.buildRoot(t, "input")

	want := `<input type="text" disabled="$w0$" value="$w1$" input="$w2$" title="$w3$">`
	if got := b.Template.Skeleton; got != want {
		t.Errorf("skeleton = %q, want %q", got, want)
	}

	kinds := []tmpl.PartKind{tmpl.PartBoolAttr, tmpl.PartProp, tmpl.PartEvent, tmpl.PartAttr}
	names := []string{"disabled", "value", "input", "title"}
	exprs := []string{"locked", "text", "onInput", "tip"}
	if len(b.Template.Parts) != 4 {
		t.Fatalf("parts = %d, want 4", len(b.Template.Parts))
	}
	for i, p := range b.Template.Parts {
		if p.Kind != kinds[i] || p.Name != names[i] || p.Index != i {
			t.Errorf("part %d = %s %q index %d", i, p.Kind, p.Name, p.Index)
		}
		if b.Values[i].Expr != exprs[i] {
			t.Errorf("value %d = %q, want %q", i, b.Values[i].Expr, exprs[i])
		}
	}
}

func TestBuild_MultiInterpolationAttr(t *testing.T) {
	e := setup(t, `const V = <div class="card {size} tone {tone}"/>;`)
	b := e.buildRoot(t, "div")

	if got := b.Template.Skeleton; got != `<div class="$w0$"></div>` {
		t.Errorf("skeleton = %q", got)
	}
	if len(b.Template.Parts) != 1 {
		t.Fatalf("parts = %d, want 1", len(b.Template.Parts))
	}
	p := b.Template.Parts[0]
	wantFrags := []string{"card ", " tone ", ""}
	if len(p.Strings) != 3 {
		t.Fatalf("fragments = %v", p.Strings)
	}
	for i, f := range wantFrags {
		if p.Strings[i] != f {
			t.Errorf("fragment %d = %q, want %q", i, p.Strings[i], f)
		}
	}
	if p.NValues() != 2 || len(b.Values) != 2 {
		t.Errorf("values = %d/%d, want 2/2", p.NValues(), len(b.Values))
	}
	if b.Values[0].Expr != "size" || b.Values[1].Expr != "tone" {
		t.Errorf("values = %q, %q", b.Values[0].Expr, b.Values[1].Expr)
	}
}

func TestBuild_ChildInterpolation(t *testing.T) {
	e := setup(t, `const V = <ul><li>a</li>{items}<li>b</li></ul>;`)
	b := e.buildRoot(t, "ul")
	if got := b.Template.Skeleton; got != `<ul><li>a</li><!--$w0$--><li>b</li></ul>` {
		t.Errorf("skeleton = %q", got)
	}
	if b.Template.Parts[0].Kind != tmpl.PartChild {
		t.Errorf("part kind = %s", b.Template.Parts[0].Kind)
	}
	if b.Values[0].Expr != "items" {
		t.Errorf("value = %q", b.Values[0].Expr)
	}
}

func TestBuild_SpreadAttr(t *testing.T) {
	e := setup(t, `const V = <div {...rest} id="a"/>;`)
	b := e.buildRoot(t, "div")
	if got := b.Template.Skeleton; got != `<div $w0$ id="a"></div>` {
		t.Errorf("skeleton = %q", got)
	}
	if b.Template.Parts[0].Kind != tmpl.PartSpread {
		t.Errorf("part kind = %s", b.Template.Parts[0].Kind)
	}
	if b.Values[0].Expr != "rest" {
		t.Errorf("value = %q", b.Values[0].Expr)
	}
}

func TestBuild_DynamicTag(t *testing.T) {
	e := setup(t, factories+`const V = <section><Chip class="x">hi</Chip></section>;`)
	b := e.buildRoot(t, "section")

	if got := b.Template.Skeleton; got != `<section><w-dyn0 class="x">hi</w-dyn0></section>` {
		t.Errorf("skeleton = %q", got)
	}
	if len(b.Template.Parts) != 1 || b.Template.Parts[0].Kind != tmpl.PartTagName {
		t.Fatalf("parts = %v", b.Template.Parts)
	}
	if b.Values[0].Expr != "Chip" {
		t.Errorf("tag value = %q", b.Values[0].Expr)
	}
}

func TestBuild_DynamicTagAttrOrder(t *testing.T) {
	// the tag part precedes the attribute parts of the same element
	e := setup(t, factories+`const V = <div><Chip title={t}/></div>;`)
	b := e.buildRoot(t, "div")
	if got := b.Template.Skeleton; got != `<div><w-dyn0 title="$w1$"></w-dyn0></div>` {
		t.Errorf("skeleton = %q", got)
	}
	kinds := []tmpl.PartKind{tmpl.PartTagName, tmpl.PartAttr}
	for i, p := range b.Template.Parts {
		if p.Kind != kinds[i] {
			t.Errorf("part %d = %s, want %s", i, p.Kind, kinds[i])
		}
	}
}

func TestBuild_ComponentRoot(t *testing.T) {
	e := setup(t, factories+`const V = <Widget title="T" count={n} {...extra}>text {x}</Widget>;`)
	b := e.buildRoot(t, "Widget")

	if b.Call == nil {
		t.Fatal("want call form")
	}
	c := b.Call
	if c.Name != "Widget" {
		t.Errorf("name = %q", c.Name)
	}
	if len(c.Fields) != 3 {
		t.Fatalf("fields = %d, want 3", len(c.Fields))
	}
	if c.Fields[0].Name != "title" || c.Fields[0].Value.Text != "T" {
		t.Errorf("field 0 = %+v", c.Fields[0])
	}
	if c.Fields[1].Name != "count" || c.Fields[1].Value.Expr != "n" {
		t.Errorf("field 1 = %+v", c.Fields[1])
	}
	if !c.Fields[2].Spread || c.Fields[2].Value.Expr != "extra" {
		t.Errorf("field 2 = %+v", c.Fields[2])
	}
	if len(c.Children) != 2 {
		t.Fatalf("children = %d, want 2", len(c.Children))
	}
	if c.Children[0].Kind != ValueText || c.Children[0].Text != "text " {
		t.Errorf("child 0 = %+v", c.Children[0])
	}
	if c.Children[1].Kind != ValueExpr || c.Children[1].Expr != "x" {
		t.Errorf("child 1 = %+v", c.Children[1])
	}
}

func TestBuild_ComponentChild(t *testing.T) {
	e := setup(t, factories+`const V = <div><Widget label={l}/></div>;`)
	b := e.buildRoot(t, "div")

	if got := b.Template.Skeleton; got != `<div><!--$w0$--></div>` {
		t.Errorf("skeleton = %q", got)
	}
	v := b.Values[0]
	if v.Kind != ValueSub || v.Sub == nil || v.Sub.Call == nil {
		t.Fatalf("value = %+v", v)
	}
	if v.Sub.Call.Name != "Widget" {
		t.Errorf("call name = %q", v.Sub.Call.Name)
	}
}

func TestBuild_NestedMarkupInExpression(t *testing.T) {
	e := setup(t, `const V = <ul>{items.map(i => <li>{i}</li>)}</ul>;`)

	// markup roots complete inner first, so compiling in record order
	// makes each outer expression see its inner replacements
	var ulBuilt *Built
	for _, m := range e.file.Markups {
		b := e.b.Build(m.Root, m.Scope)
		if m.Root.Tag == "li" {
			e.src.Add(m.Root.Loc.Start, m.Root.Loc.End, "__li(i)")
			continue
		}
		ulBuilt = b
	}
	if ulBuilt == nil {
		t.Fatal("ul root not built")
	}
	if got := ulBuilt.Values[0].Expr; got != "items.map(i => __li(i))" {
		t.Errorf("outer value = %q", got)
	}
}

func TestBuild_SvgDialect(t *testing.T) {
	e := setup(t, factories+`const V = <svg viewBox="0 0 8 8"><circle r={r}/><Chip/></svg>;`)
	b := e.buildRoot(t, "svg")

	if b.Dialect != tmpl.DialectSVG {
		t.Fatalf("dialect = %s", b.Dialect)
	}
	// the dynamic-tag child cannot use a tag marker here and becomes a
	// component call child instead
	want := `<svg viewBox="0 0 8 8"><circle r="$w0$"></circle><!--$w1$--></svg>`
	if got := b.Template.Skeleton; got != want {
		t.Errorf("skeleton = %q, want %q", got, want)
	}
	if b.Values[1].Kind != ValueSub || b.Values[1].Sub.Call == nil {
		t.Errorf("value 1 = %+v", b.Values[1])
	}
}

func TestBuild_Whitespace(t *testing.T) {
	e := setup(t, "const V = <div>\n  <p>one\n     two</p>\n  <b>x</b> <i>y</i>\n</div>;")
	b := e.buildRoot(t, "div")
	want := `<div><p>one two</p><b>x</b> <i>y</i></div>`
	if got := b.Template.Skeleton; got != want {
		t.Errorf("skeleton = %q, want %q", got, want)
	}
}

func TestBuild_Escaping(t *testing.T) {
	e := setup(t, `const V = <p title="a & b">x & y</p>;`)
	b := e.buildRoot(t, "p")
	want := `<p title="a &amp; b">x &amp; y</p>`
	if got := b.Template.Skeleton; got != want {
		t.Errorf("skeleton = %q, want %q", got, want)
	}
}

func TestBuild_ValuesMatchParts(t *testing.T) {
	sources := []string{
		`const V = <div/>;`,
		`const V = <div a="1" b={x} c="l {m} r" ?d={e} {...f}>{g}<p>{h}</p></div>;`,
		factories + `const V = <div><Chip a={b}/><Widget/></div>;`,
	}
	for _, src := range sources {
		e := setup(t, src)
		b := e.buildRoot(t, "div")
		if b.Template == nil {
			t.Fatalf("want template form for %q", src)
		}
		if got, want := len(b.Values), b.Template.NValues(); got != want {
			t.Errorf("values = %d, parts need %d in %q", got, want, src)
		}
		for i, p := range b.Template.Parts {
			if p.Index != i {
				t.Errorf("part %d has index %d in %q", i, p.Index, src)
			}
		}
	}
}

func TestBuild_IdempotentSkeletons(t *testing.T) {
	src := factories + `
const A = defineComponent(() => <div class="row"><Widget/></div>);
const B = defineComponent(() => <div class="row"><Widget/></div>);
`
	e := setup(t, src)
	var skels []string
	var shapes []string
	for _, m := range e.file.Markups {
		if m.Root.Tag != "div" {
			continue
		}
		b := e.b.Build(m.Root, m.Scope)
		skels = append(skels, b.Template.Skeleton)
		shapes = append(shapes, b.Template.ShapeKey())
	}
	if len(skels) != 2 {
		t.Fatalf("div roots = %d, want 2", len(skels))
	}
	if skels[0] != skels[1] {
		t.Errorf("skeletons differ: %q vs %q", skels[0], skels[1])
	}
	if shapes[0] != shapes[1] {
		t.Error("shape keys differ for identical markup")
	}
}

func TestBuild_InterpolatedAttrOnComponent(t *testing.T) {
	e := setup(t, factories+"const V = <Widget class=\"a {x} b\"/>;")
	b := e.buildRoot(t, "Widget")
	f := b.Call.Fields[0]
	if f.Value.Kind != ValueExpr || !strings.Contains(f.Value.Expr, "${x}") {
		t.Errorf("field value = %+v", f.Value)
	}
	if f.Value.Expr != "`a ${x} b`" {
		t.Errorf("template literal = %q", f.Value.Expr)
	}
}
