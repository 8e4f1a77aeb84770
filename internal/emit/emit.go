// Package emit serializes compiled templates into the output module.
// Each markup root's span is replaced by its call-site form, a table of
// shared template definitions is inserted after the imports, and module
// specifiers are rewritten to their compiled names. The emitted shapes
// are a wire contract with the runtime: __weft.tmpl defines a table
// entry, __weft.bind instantiates one, and __weft.svg / __weft.math
// construct the single-call dialect forms.
package emit

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/weftlabs/weft/internal/patch"
	"github.com/weftlabs/weft/internal/syntax"
	"github.com/weftlabs/weft/internal/template"
	"github.com/weftlabs/weft/pkg/tmpl"
)

const (
	runtimeModule = "weft/runtime"
	runtimeNS     = "__weft"
	tablePrefix   = "__weft$t"
)

// Stats summarizes what emission produced for one file.
type Stats struct {
	// Templates is the number of distinct table entries
	Templates int `json:"templates"`
	// Inline counts svg and math constructor forms, which take no entry
	Inline int `json:"inline"`
	// Parts is the total part count across table entries
	Parts int `json:"parts"`
	// CallSites is the number of markup roots replaced
	CallSites int `json:"call_sites"`
}

// Emitter produces the compiled text of one file.
type Emitter struct {
	file    *syntax.File
	src     *patch.Set
	b       *template.Builder
	table   []*tmpl.Template
	byShape map[string]int
	inline  int
	runtime bool
}

func New(file *syntax.File, src *patch.Set, b *template.Builder) *Emitter {
	return &Emitter{file: file, src: src, b: b, byShape: make(map[string]int)}
}

// File compiles every markup root, rewrites imports, inserts the table
// prelude, and returns the patched module text. Roots are processed in
// recorded order, which places nested roots before their containers so
// container expressions render with the nested output in place.
func (e *Emitter) File() string {
	for _, m := range e.file.Markups {
		built := e.b.Build(m.Root, m.Scope)
		e.src.Add(m.Root.Loc.Start, m.Root.Loc.End, e.callSite(built))
	}
	e.rewriteSpecifiers()
	e.insertPrelude()
	return e.src.Apply()
}

// Stats reports emission totals; call after File.
func (e *Emitter) Stats() Stats {
	s := Stats{
		Templates: len(e.table),
		Inline:    e.inline,
		CallSites: len(e.file.Markups),
	}
	for _, t := range e.table {
		s.Parts += len(t.Parts)
	}
	return s
}

// callSite renders the replacement expression for one compiled root
func (e *Emitter) callSite(b *template.Built) string {
	if b.Call != nil {
		return e.callExpr(b.Call)
	}
	switch b.Dialect {
	case tmpl.DialectSVG:
		return e.inlineForm("svg", b)
	case tmpl.DialectMath:
		return e.inlineForm("math", b)
	}
	e.runtime = true
	name := e.tableFor(b.Template)
	var sb strings.Builder
	sb.WriteString(runtimeNS)
	sb.WriteString(".bind(")
	sb.WriteString(name)
	sb.WriteString(", [")
	e.writeValues(&sb, b.Values)
	sb.WriteString("])")
	return sb.String()
}

// inlineForm renders the specialized constructor used by the svg and
// math dialects; the skeleton travels at the call site, not the table
func (e *Emitter) inlineForm(ctor string, b *template.Built) string {
	e.runtime = true
	e.inline++
	var sb strings.Builder
	sb.WriteString(runtimeNS)
	sb.WriteByte('.')
	sb.WriteString(ctor)
	sb.WriteByte('(')
	sb.WriteString(quoteJS(b.Template.Skeleton))
	sb.WriteString(", [")
	e.writeValues(&sb, b.Values)
	sb.WriteString("])")
	return sb.String()
}

func (e *Emitter) writeValues(sb *strings.Builder, values []template.Value) {
	for i, v := range values {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(e.value(v))
	}
}

func (e *Emitter) value(v template.Value) string {
	switch v.Kind {
	case template.ValueText:
		return quoteJS(v.Text)
	case template.ValueSub:
		return e.callSite(v.Sub)
	}
	return v.Expr
}

// callExpr renders a component invocation: Name({props, children})
func (e *Emitter) callExpr(c *template.Call) string {
	var sb strings.Builder
	sb.WriteString(c.Name)
	sb.WriteString("({")
	for i, f := range c.Fields {
		if i > 0 {
			sb.WriteString(", ")
		}
		if f.Spread {
			sb.WriteString("...")
			sb.WriteString(e.value(f.Value))
			continue
		}
		sb.WriteString(fieldName(f.Name))
		sb.WriteString(": ")
		sb.WriteString(e.value(f.Value))
	}
	if len(c.Children) > 0 {
		if len(c.Fields) > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("children: ")
		if len(c.Children) == 1 {
			sb.WriteString(e.value(c.Children[0]))
		} else {
			sb.WriteByte('[')
			e.writeValues(&sb, c.Children)
			sb.WriteByte(']')
		}
	}
	sb.WriteString("})")
	return sb.String()
}

// tableFor returns the table variable for t, adding an entry unless an
// interchangeable one exists already
func (e *Emitter) tableFor(t *tmpl.Template) string {
	key := t.ShapeKey()
	idx, ok := e.byShape[key]
	if !ok {
		idx = len(e.table)
		e.table = append(e.table, t)
		e.byShape[key] = idx
	}
	return tablePrefix + strconv.Itoa(idx)
}

// rewriteSpecifiers maps source module specifiers to their compiled
// names: a .wx suffix becomes .js, and extensionless relative imports
// gain .js. Bare package specifiers pass through.
func (e *Emitter) rewriteSpecifiers() {
	rewrite := func(spec string, span syntax.Span) {
		out, changed := compiledSpecifier(spec)
		if changed {
			e.src.Add(span.Start, span.End, out)
		}
	}
	for _, imp := range e.file.Imports {
		rewrite(imp.Specifier, imp.SpecSpan)
	}
	for _, exp := range e.file.Exports {
		if exp.From != "" {
			rewrite(exp.From, exp.SpecSpan)
		}
	}
}

func compiledSpecifier(spec string) (string, bool) {
	if !strings.HasPrefix(spec, "./") && !strings.HasPrefix(spec, "../") {
		return spec, false
	}
	if strings.HasSuffix(spec, ".wx") {
		return spec[:len(spec)-len(".wx")] + ".js", true
	}
	if strings.Contains(lastSegment(spec), ".") {
		return spec, false
	}
	return spec + ".js", true
}

func lastSegment(spec string) string {
	if i := strings.LastIndexByte(spec, '/'); i >= 0 {
		return spec[i+1:]
	}
	return spec
}

// insertPrelude writes the runtime import and the template table just
// past the original import block
func (e *Emitter) insertPrelude() {
	if !e.runtime && len(e.table) == 0 {
		return
	}
	var sb strings.Builder
	if e.file.ImportEnd > 0 {
		sb.WriteByte('\n')
	}
	fmt.Fprintf(&sb, "import * as %s from %s;\n", runtimeNS, quoteJS(runtimeModule))
	for i, t := range e.table {
		fmt.Fprintf(&sb, "const %s%d = %s.tmpl(%s, [", tablePrefix, i, runtimeNS, quoteJS(t.Skeleton))
		for j, p := range t.Parts {
			if j > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(partJS(p))
		}
		sb.WriteString("]);\n")
	}
	e.src.Add(e.file.ImportEnd, e.file.ImportEnd, sb.String())
}

// partJS renders one part descriptor in the compact array form the
// runtime decodes: [kind, name?, strings?]
func partJS(p tmpl.Part) string {
	var sb strings.Builder
	sb.WriteByte('[')
	sb.WriteString(strconv.Itoa(int(p.Kind)))
	if p.Name != "" || len(p.Strings) > 0 {
		sb.WriteString(", ")
		sb.WriteString(quoteJS(p.Name))
	}
	if len(p.Strings) > 0 {
		sb.WriteString(", [")
		for i, s := range p.Strings {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(quoteJS(s))
		}
		sb.WriteByte(']')
	}
	sb.WriteByte(']')
	return sb.String()
}

// fieldName renders an object key, quoting names that are not plain
// identifiers
func fieldName(name string) string {
	if isJSIdent(name) {
		return name
	}
	return quoteJS(name)
}

func isJSIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '$':
		case r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// quoteJS renders s as a double-quoted JS string literal. U+2028 and
// U+2029 are escaped since they terminate lines in older JS parsers.
func quoteJS(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		case '\u2028':
			sb.WriteString(`\u2028`)
		case '\u2029':
			sb.WriteString(`\u2029`)
		default:
			if r < 0x20 {
				fmt.Fprintf(&sb, `\u%04x`, r)
			} else {
				sb.WriteRune(r)
			}
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
