// Package classify decides three things about markup nodes before the
// template builder runs: whether a subtree is fully static, which markup
// dialect a tree renders in, and what kind of thing a tag name refers
// to. Classification never fails; names that cannot be pinned down
// degrade to component calls and the reason lands in the diagnostics.
package classify

import (
	"github.com/weftlabs/weft/internal/diag"
	"github.com/weftlabs/weft/internal/resolve"
	"github.com/weftlabs/weft/internal/syntax"
	"github.com/weftlabs/weft/pkg/tmpl"
)

// NodeKind says how an element node compiles.
type NodeKind uint8

const (
	// KindHost is a plain platform element emitted into the skeleton
	KindHost NodeKind = iota
	// KindComponent compiles to a direct function call
	KindComponent
	// KindDynamic is an element whose tag is decided at runtime, bound
	// through tag markers
	KindDynamic
)

var nodeKindNames = [...]string{"host", "component", "dynamic"}

func (k NodeKind) String() string {
	if int(k) < len(nodeKindNames) {
		return nodeKindNames[k]
	}
	return "invalid"
}

// Classifier answers classification queries for one file's markup. It
// memoizes per node and per (scope, name), and reports degradations to
// the injected diagnostic list exactly once per name and scope.
type Classifier struct {
	res    *resolve.Resolver
	file   *syntax.File
	diags  *diag.List
	static map[*syntax.Element]bool
	names  map[*syntax.Scope]map[string]resolve.Origin
}

func New(res *resolve.Resolver, file *syntax.File, diags *diag.List) *Classifier {
	return &Classifier{
		res:    res,
		file:   file,
		diags:  diags,
		static: make(map[*syntax.Element]bool),
		names:  make(map[*syntax.Scope]map[string]resolve.Origin),
	}
}

// Static reports whether n renders entirely from literal text: no
// expressions, no components, no dynamic tags anywhere beneath it
func (c *Classifier) Static(n syntax.Node) bool {
	switch n := n.(type) {
	case *syntax.Text:
		return true
	case *syntax.Interp:
		return false
	case *syntax.Element:
		if v, ok := c.static[n]; ok {
			return v
		}
		v := c.elementStatic(n)
		c.static[n] = v
		return v
	}
	return false
}

func (c *Classifier) elementStatic(el *syntax.Element) bool {
	if syntax.IsComponentName(el.Tag) {
		return false
	}
	for _, a := range el.Attrs {
		if a.Dynamic() {
			return false
		}
	}
	for _, child := range el.Children {
		if !c.Static(child) {
			return false
		}
	}
	return true
}

// Kind classifies el's tag as seen from scope. Host elements return a
// zero origin; everything else carries the resolution result for
// definition sites and custom element tags.
func (c *Classifier) Kind(el *syntax.Element, scope *syntax.Scope) (NodeKind, resolve.Origin) {
	if !syntax.IsComponentName(el.Tag) {
		return KindHost, resolve.Origin{}
	}
	o := c.resolveName(el, scope)
	if o.Kind == resolve.OriginElement {
		return KindDynamic, o
	}
	return KindComponent, o
}

func (c *Classifier) resolveName(el *syntax.Element, scope *syntax.Scope) resolve.Origin {
	byName := c.names[scope]
	if byName == nil {
		byName = make(map[string]resolve.Origin)
		c.names[scope] = byName
	}
	if o, ok := byName[el.Tag]; ok {
		return o
	}

	o := c.res.ResolveName(c.file, scope, el.Tag)
	byName[el.Tag] = o
	if o.Resolved() {
		return o
	}

	span := syntax.Span{Start: el.TagOff, End: el.TagOff + len(el.Tag)}
	switch {
	case o.Cause == resolve.CauseMalformed:
		c.diags.Add(diag.At(diag.Warning, diag.CodeFactory, c.file, span,
			"factory call defining '%s' passes no usable arguments; compiled as a component call", el.Tag))
	case o.Cause == resolve.CauseCycle:
		c.diags.Add(diag.At(diag.Warning, diag.CodeCycle, c.file, span,
			"import cycle while resolving '%s'; compiled as a component call", el.Tag))
	case !o.Cause.Deliberate():
		c.diags.Add(diag.At(diag.Warning, diag.CodeUnresolved, c.file, span,
			"cannot resolve '%s' (%s); compiled as a component call", el.Tag, o.Cause))
	default:
		c.diags.Add(diag.At(diag.Info, diag.CodeDynamic, c.file, span,
			"'%s' is dynamic; compiled as a component call", el.Tag))
	}
	return o
}

// Dialect infers the rendering dialect of a markup root from its tag.
// Trees rooted at a dialect-only tag, like a bare <circle>, belong to
// that dialect even without the umbrella element around them.
func Dialect(root *syntax.Element) tmpl.Dialect {
	switch {
	case root.Tag == "svg" || svgOnly[root.Tag]:
		return tmpl.DialectSVG
	case root.Tag == "math" || mathOnly[root.Tag]:
		return tmpl.DialectMath
	}
	return tmpl.DialectGeneral
}

// ChildDialect computes the dialect below tag when the surrounding tree
// renders in parent. Embedded roots switch in, and the foreign-content
// elements switch back out.
func ChildDialect(parent tmpl.Dialect, tag string) tmpl.Dialect {
	switch parent {
	case tmpl.DialectSVG:
		if tag == "foreignObject" {
			return tmpl.DialectGeneral
		}
	case tmpl.DialectMath:
		if tag == "annotation-xml" {
			return tmpl.DialectGeneral
		}
	default:
		switch {
		case tag == "svg":
			return tmpl.DialectSVG
		case tag == "math":
			return tmpl.DialectMath
		}
	}
	return parent
}

// svgOnly lists tags that only exist in the SVG namespace, used to infer
// the dialect of detached roots
var svgOnly = map[string]bool{
	"circle": true, "ellipse": true, "line": true, "polygon": true,
	"polyline": true, "rect": true, "path": true, "g": true,
	"defs": true, "use": true, "symbol": true, "marker": true,
	"mask": true, "clipPath": true, "linearGradient": true,
	"radialGradient": true, "stop": true, "tspan": true,
	"textPath": true, "filter": true, "foreignObject": true,
}

// mathOnly lists tags that only exist in MathML
var mathOnly = map[string]bool{
	"mi": true, "mn": true, "mo": true, "mrow": true, "msup": true,
	"msub": true, "mfrac": true, "msqrt": true, "mroot": true,
	"mtext": true, "munder": true, "mover": true, "munderover": true,
	"mtable": true, "mtr": true, "mtd": true, "semantics": true,
	"annotation": true, "annotation-xml": true,
}
