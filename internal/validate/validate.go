// Package validate checks document-structure legality of literal markup
// before codegen. Compiled skeletons are re-parsed by an HTML parser at
// runtime, and that parser silently restructures trees with illegal
// containment, which would break the positional pairing of markers and
// values. Violations are therefore fatal for the file. Component tags
// are exempt on either side of a pair since their rendered output is
// opaque here, and unknown tags carry no rules.
package validate

import (
	"golang.org/x/net/html/atom"

	"github.com/weftlabs/weft/internal/diag"
	"github.com/weftlabs/weft/internal/syntax"
)

// childRules lists the only child tags a parent accepts.
var childRules = map[atom.Atom][]atom.Atom{
	atom.Ul:       {atom.Li, atom.Script, atom.Template},
	atom.Ol:       {atom.Li, atom.Script, atom.Template},
	atom.Menu:     {atom.Li, atom.Script, atom.Template},
	atom.Table:    {atom.Caption, atom.Colgroup, atom.Thead, atom.Tbody, atom.Tfoot, atom.Tr, atom.Script, atom.Template},
	atom.Thead:    {atom.Tr, atom.Script, atom.Template},
	atom.Tbody:    {atom.Tr, atom.Script, atom.Template},
	atom.Tfoot:    {atom.Tr, atom.Script, atom.Template},
	atom.Tr:       {atom.Td, atom.Th, atom.Script, atom.Template},
	atom.Colgroup: {atom.Col, atom.Template},
	atom.Select:   {atom.Option, atom.Optgroup, atom.Hr, atom.Script, atom.Template},
	atom.Optgroup: {atom.Option, atom.Script, atom.Template},
	atom.Dl:       {atom.Dt, atom.Dd, atom.Div, atom.Script, atom.Template},
	atom.Picture:  {atom.Source, atom.Img, atom.Script, atom.Template},
}

// parentRules lists the only parents a child may appear under.
var parentRules = map[atom.Atom][]atom.Atom{
	atom.Li:         {atom.Ul, atom.Ol, atom.Menu},
	atom.Td:         {atom.Tr},
	atom.Th:         {atom.Tr},
	atom.Tr:         {atom.Table, atom.Thead, atom.Tbody, atom.Tfoot},
	atom.Caption:    {atom.Table},
	atom.Colgroup:   {atom.Table},
	atom.Col:        {atom.Colgroup},
	atom.Thead:      {atom.Table},
	atom.Tbody:      {atom.Table},
	atom.Tfoot:      {atom.Table},
	atom.Option:     {atom.Select, atom.Optgroup, atom.Datalist},
	atom.Optgroup:   {atom.Select},
	atom.Dt:         {atom.Dl, atom.Div},
	atom.Dd:         {atom.Dl, atom.Div},
	atom.Summary:    {atom.Details},
	atom.Figcaption: {atom.Figure},
	atom.Legend:     {atom.Fieldset},
	atom.Source:     {atom.Picture, atom.Audio, atom.Video},
}

// descendantRules bars a tag anywhere beneath an ancestor. These are the
// pairs the HTML parser resolves by closing the ancestor early.
var descendantRules = map[atom.Atom][]atom.Atom{
	atom.A:      {atom.A, atom.Button},
	atom.Button: {atom.A, atom.Button, atom.Form},
	atom.Form:   {atom.Form},
	atom.P: {
		atom.Address, atom.Article, atom.Aside, atom.Blockquote,
		atom.Details, atom.Div, atom.Dl, atom.Fieldset, atom.Figure,
		atom.Footer, atom.Form, atom.H1, atom.H2, atom.H3, atom.H4,
		atom.H5, atom.H6, atom.Header, atom.Hr, atom.Main, atom.Nav,
		atom.Ol, atom.P, atom.Pre, atom.Section, atom.Table, atom.Ul,
	},
}

// File checks every literal parent/child pair in every markup root of f
// and reports violations as fatal structure diagnostics. It reports
// whether the file is safe to emit.
func File(f *syntax.File, diags *diag.List) bool {
	v := &validator{f: f, diags: diags, ok: true}
	for _, m := range f.Markups {
		v.element(m.Root, 0, nil)
	}
	return v.ok
}

type validator struct {
	f     *syntax.File
	diags *diag.List
	ok    bool
}

// element validates el against its parent atom and literal ancestor
// stack, then descends. Components and template elements reset both:
// their content renders outside this tree position.
func (v *validator) element(el *syntax.Element, parent atom.Atom, stack []atom.Atom) {
	if syntax.IsComponentName(el.Tag) {
		for _, ch := range el.Children {
			if sub, ok := ch.(*syntax.Element); ok {
				v.element(sub, 0, nil)
			}
		}
		return
	}

	a := atom.Lookup([]byte(el.Tag))
	if a != 0 && parent != 0 {
		if allowed, ok := childRules[parent]; ok && !containsAtom(allowed, a) {
			v.report(el, parent)
		} else if required, ok := parentRules[a]; ok && !containsAtom(required, parent) {
			v.report(el, parent)
		}
	}
	if a != 0 {
		for _, anc := range stack {
			if barred, ok := descendantRules[anc]; ok && containsAtom(barred, a) {
				v.reportNested(el, anc)
				break
			}
		}
	}

	if a == atom.Template {
		for _, ch := range el.Children {
			if sub, ok := ch.(*syntax.Element); ok {
				v.element(sub, 0, nil)
			}
		}
		return
	}

	if a != 0 {
		stack = append(stack, a)
	}
	for _, ch := range el.Children {
		if sub, ok := ch.(*syntax.Element); ok {
			v.element(sub, a, stack)
		}
	}
}

func (v *validator) report(el *syntax.Element, parent atom.Atom) {
	v.ok = false
	span := syntax.Span{Start: el.TagOff, End: el.TagOff + len(el.Tag)}
	v.diags.Add(diag.At(diag.Fatal, diag.CodeStructure, v.f, span,
		"element <%s> is not permitted inside <%s>", el.Tag, parent))
}

func (v *validator) reportNested(el *syntax.Element, anc atom.Atom) {
	v.ok = false
	span := syntax.Span{Start: el.TagOff, End: el.TagOff + len(el.Tag)}
	v.diags.Add(diag.At(diag.Fatal, diag.CodeStructure, v.f, span,
		"element <%s> cannot be nested inside <%s>", el.Tag, anc))
}

func containsAtom(set []atom.Atom, a atom.Atom) bool {
	for _, s := range set {
		if s == a {
			return true
		}
	}
	return false
}
