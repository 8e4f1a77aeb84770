// Package template compiles markup trees into skeleton/parts templates
// and component call descriptions. One markup root becomes one Built:
// either a template with an ordered value list, or a function call when
// the root is a component. Parts and values are appended in a single
// left-to-right depth-first walk; the runtime pairs them positionally,
// so the walk order here is a wire contract.
package template

import (
	"strings"

	"github.com/weftlabs/weft/internal/classify"
	"github.com/weftlabs/weft/internal/patch"
	"github.com/weftlabs/weft/internal/syntax"
	"github.com/weftlabs/weft/pkg/tmpl"
)

// Built is the compiled form of one markup root. Exactly one of
// Template and Call is set: Call for a component root, Template for a
// host or dynamic-tag root.
type Built struct {
	// Dialect selects the emission form for Template roots
	Dialect tmpl.Dialect

	// Template is the skeleton and part list of a host-rooted tree
	Template *tmpl.Template

	// Values supplies the part values in part order; its length equals
	// Template.NValues()
	Values []Value

	// Call describes a direct component invocation
	Call *Call

	// Root is the source element this was built from
	Root *syntax.Element
}

// Call is a function-component invocation with its props and children.
type Call struct {
	Name     string
	Fields   []Field
	Children []Value
}

// Field is one property of a component call.
type Field struct {
	// Name is the field name with any sigil stripped; empty for spreads
	Name string

	// Spread marks an object-spread field
	Spread bool

	Value Value
}

// ValueKind discriminates the operand forms a call site can supply.
type ValueKind uint8

const (
	// ValueExpr is a rendered expression, taken from the source with any
	// nested markup already compiled
	ValueExpr ValueKind = iota
	// ValueText is literal character data, quoted at emission
	ValueText
	// ValueSub is a nested compiled subtree
	ValueSub
)

// Value is one generated operand.
type Value struct {
	Kind ValueKind
	Expr string
	Text string
	Sub  *Built
}

func exprValue(expr string) Value { return Value{Kind: ValueExpr, Expr: expr} }
func textValue(text string) Value { return Value{Kind: ValueText, Text: text} }
func subValue(b *Built) Value     { return Value{Kind: ValueSub, Sub: b} }

// Builder compiles the markup roots of one file. It consults the
// classifier for tag kinds and renders expression spans through the
// patch set so markup nested inside an expression arrives compiled.
type Builder struct {
	file *syntax.File
	cls  *classify.Classifier
	src  *patch.Set
}

func NewBuilder(file *syntax.File, cls *classify.Classifier, src *patch.Set) *Builder {
	return &Builder{file: file, cls: cls, src: src}
}

// Build compiles one markup root as seen from scope. Roots nested
// inside expressions of this root must have been built and patched
// before this call, or their markup passes through uncompiled.
func (b *Builder) Build(root *syntax.Element, scope *syntax.Scope) *Built {
	kind, _ := b.cls.Kind(root, scope)
	if kind == classify.KindComponent {
		return &Built{Call: b.call(root, scope), Root: root}
	}
	d := classify.Dialect(root)
	w := walker{b: b, scope: scope}
	w.element(root, kind, d)
	return &Built{
		Dialect:  d,
		Template: &tmpl.Template{Skeleton: w.sk.String(), Parts: w.parts},
		Values:   w.vals,
		Root:     root,
	}
}

func (b *Builder) render(sp syntax.Span) string {
	return b.src.Render(sp.Start, sp.End)
}

func (b *Builder) callBuilt(el *syntax.Element, scope *syntax.Scope) *Built {
	return &Built{Call: b.call(el, scope), Root: el}
}

// call assembles the props object and children of a component use
func (b *Builder) call(el *syntax.Element, scope *syntax.Scope) *Call {
	c := &Call{Name: el.Tag}
	for _, a := range el.Attrs {
		switch a.Form {
		case syntax.AttrStatic:
			if a.Static == "" {
				c.Fields = append(c.Fields, Field{Name: a.Name, Value: exprValue("true")})
			} else {
				c.Fields = append(c.Fields, Field{Name: a.Name, Value: textValue(a.Static)})
			}
		case syntax.AttrExpr:
			c.Fields = append(c.Fields, Field{Name: a.Name, Value: exprValue(b.render(a.Chunks[0].Expr.Span))})
		case syntax.AttrInterp:
			c.Fields = append(c.Fields, Field{Name: a.Name, Value: exprValue(b.templateLiteral(a.Chunks))})
		case syntax.AttrSpreadForm:
			c.Fields = append(c.Fields, Field{Spread: true, Value: exprValue(b.render(a.Spread.Span))})
		}
	}
	for _, ch := range el.Children {
		switch n := ch.(type) {
		case *syntax.Text:
			if t := collapseText(n.Value); t != "" {
				c.Children = append(c.Children, textValue(t))
			}
		case *syntax.Interp:
			c.Children = append(c.Children, exprValue(b.render(n.Expr.Span)))
		case *syntax.Element:
			c.Children = append(c.Children, subValue(b.Build(n, scope)))
		}
	}
	return c
}

// templateLiteral renders a mixed attribute value as a backtick string
func (b *Builder) templateLiteral(chunks []syntax.Chunk) string {
	var sb strings.Builder
	sb.WriteByte('`')
	for _, ch := range chunks {
		if ch.IsExpr {
			sb.WriteString("${")
			sb.WriteString(b.render(ch.Expr.Span))
			sb.WriteByte('}')
			continue
		}
		sb.WriteString(escapeTemplateLiteral(ch.Text))
	}
	sb.WriteByte('`')
	return sb.String()
}

// walker accumulates one template's skeleton, parts, and values
type walker struct {
	b     *Builder
	scope *syntax.Scope
	sk    strings.Builder
	parts []tmpl.Part
	vals  []Value
}

// element writes el and its subtree into the skeleton. d is the dialect
// governing el's children.
func (w *walker) element(el *syntax.Element, kind classify.NodeKind, d tmpl.Dialect) {
	tag := el.Tag
	if kind == classify.KindDynamic {
		idx := len(w.parts)
		tag = tmpl.TagMarker(idx)
		w.parts = append(w.parts, tmpl.Part{Kind: tmpl.PartTagName, Index: idx})
		w.vals = append(w.vals, exprValue(el.Tag))
	}
	w.sk.WriteByte('<')
	w.sk.WriteString(tag)
	for _, a := range el.Attrs {
		w.attr(a)
	}
	w.sk.WriteByte('>')
	if kind != classify.KindDynamic && syntax.IsVoid(el.Tag) {
		return
	}
	for _, ch := range el.Children {
		w.child(ch, d)
	}
	w.sk.WriteString("</")
	w.sk.WriteString(tag)
	w.sk.WriteByte('>')
}

func (w *walker) attr(a *syntax.Attr) {
	switch a.Form {
	case syntax.AttrStatic:
		w.sk.WriteByte(' ')
		w.sk.WriteString(a.Name)
		if a.Static != "" {
			w.sk.WriteString(`="`)
			w.sk.WriteString(escapeAttr(a.Static))
			w.sk.WriteByte('"')
		}
	case syntax.AttrSpreadForm:
		idx := len(w.parts)
		w.sk.WriteByte(' ')
		w.sk.WriteString(tmpl.AttrMarker(idx))
		w.parts = append(w.parts, tmpl.Part{Kind: tmpl.PartSpread, Index: idx})
		w.vals = append(w.vals, exprValue(w.b.render(a.Spread.Span)))
	default:
		idx := len(w.parts)
		p := tmpl.Part{Kind: partKindFor(a.Sigil), Index: idx, Name: a.Name}
		if a.Form == syntax.AttrInterp {
			p.Strings = literalFragments(a.Chunks)
		}
		w.sk.WriteByte(' ')
		w.sk.WriteString(a.Name)
		w.sk.WriteString(`="`)
		w.sk.WriteString(tmpl.AttrMarker(idx))
		w.sk.WriteByte('"')
		w.parts = append(w.parts, p)
		for _, ch := range a.Chunks {
			if ch.IsExpr {
				w.vals = append(w.vals, exprValue(w.b.render(ch.Expr.Span)))
			}
		}
	}
}

func (w *walker) child(n syntax.Node, d tmpl.Dialect) {
	switch n := n.(type) {
	case *syntax.Text:
		if t := collapseText(n.Value); t != "" {
			w.sk.WriteString(escapeText(t))
		}
	case *syntax.Interp:
		idx := len(w.parts)
		w.sk.WriteString(tmpl.ChildMarker(idx))
		w.parts = append(w.parts, tmpl.Part{Kind: tmpl.PartChild, Index: idx})
		w.vals = append(w.vals, exprValue(w.b.render(n.Expr.Span)))
	case *syntax.Element:
		kind, _ := w.b.cls.Kind(n, w.scope)
		cd := classify.ChildDialect(d, n.Tag)
		// dynamic tag names have no marker form outside general markup,
		// so inside svg or math they fall back to a component call
		if kind == classify.KindComponent || (kind == classify.KindDynamic && cd != tmpl.DialectGeneral) {
			idx := len(w.parts)
			w.sk.WriteString(tmpl.ChildMarker(idx))
			w.parts = append(w.parts, tmpl.Part{Kind: tmpl.PartChild, Index: idx})
			w.vals = append(w.vals, subValue(w.b.callBuilt(n, w.scope)))
			return
		}
		w.element(n, kind, cd)
	}
}

func partKindFor(sigil byte) tmpl.PartKind {
	switch sigil {
	case '?':
		return tmpl.PartBoolAttr
	case '.':
		return tmpl.PartProp
	case '@':
		return tmpl.PartEvent
	}
	return tmpl.PartAttr
}

// literalFragments extracts the static pieces straddling the holes of a
// mixed attribute; len(result) = number of holes + 1
func literalFragments(chunks []syntax.Chunk) []string {
	frags := []string{""}
	for _, ch := range chunks {
		if ch.IsExpr {
			frags = append(frags, "")
			continue
		}
		frags[len(frags)-1] += ch.Text
	}
	return frags
}

// collapseText applies the whitespace policy for child text: runs that
// are pure whitespace spanning a newline disappear, and any whitespace
// run containing a newline inside mixed text becomes a single space.
func collapseText(s string) string {
	if strings.TrimSpace(s) == "" {
		if strings.ContainsRune(s, '\n') {
			return ""
		}
		return s
	}
	if !strings.ContainsRune(s, '\n') {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); {
		if !isSpaceByte(s[i]) {
			sb.WriteByte(s[i])
			i++
			continue
		}
		j := i
		newline := false
		for j < len(s) && isSpaceByte(s[j]) {
			if s[j] == '\n' {
				newline = true
			}
			j++
		}
		if newline {
			sb.WriteByte(' ')
		} else {
			sb.WriteString(s[i:j])
		}
		i = j
	}
	return sb.String()
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;")
	attrEscaper = strings.NewReplacer("&", "&amp;", `"`, "&quot;")
	tplEscaper  = strings.NewReplacer(`\`, `\\`, "`", "\\`", "${", `\${`)
)

func escapeText(s string) string            { return textEscaper.Replace(s) }
func escapeAttr(s string) string            { return attrEscaper.Replace(s) }
func escapeTemplateLiteral(s string) string { return tplEscaper.Replace(s) }
