package syntax

// parseImport parses an import statement after the keyword and declares
// its bindings into the module scope
func (p *parser) parseImport(kw token) error {
	imp := &Import{Span: Span{Start: kw.start}}

	t, err := p.next()
	if err != nil {
		return err
	}

	// side-effect import: import "x"
	if t.kind == tokString {
		imp.Specifier = unquote(t.text)
		imp.SpecSpan = Span{Start: t.start + 1, End: t.end - 1}
		imp.Span.End = p.optSemi(t.end)
		p.file.Imports = append(p.file.Imports, imp)
		p.file.ImportEnd = imp.Span.End
		return nil
	}

	for {
		switch {
		case t.kind == tokIdent && t.text != "from":
			imp.Default = t.text
		case t.isPunct("*"):
			as, err := p.next()
			if err != nil {
				return err
			}
			if !as.is(tokIdent, "as") {
				return p.errorAt(as.start, "expected 'as' after '*'")
			}
			name, err := p.next()
			if err != nil {
				return err
			}
			if name.kind != tokIdent {
				return p.errorAt(name.start, "expected namespace name")
			}
			imp.Namespace = name.text
		case t.isPunct("{"):
			if err := p.parseImportNames(imp); err != nil {
				return err
			}
		default:
			return p.errorAt(t.start, "unexpected token in import")
		}

		t, err = p.next()
		if err != nil {
			return err
		}
		if t.isPunct(",") {
			t, err = p.next()
			if err != nil {
				return err
			}
			continue
		}
		break
	}

	if !t.is(tokIdent, "from") {
		return p.errorAt(t.start, "expected 'from'")
	}
	spec, err := p.next()
	if err != nil {
		return err
	}
	if spec.kind != tokString {
		return p.errorAt(spec.start, "expected module specifier")
	}
	imp.Specifier = unquote(spec.text)
	imp.SpecSpan = Span{Start: spec.start + 1, End: spec.end - 1}
	imp.Span.End = p.optSemi(spec.end)

	p.file.Imports = append(p.file.Imports, imp)
	p.file.ImportEnd = imp.Span.End

	if imp.Default != "" {
		p.file.Scope.Declare(&Binding{
			Kind: BindImport, Name: imp.Default, Offset: kw.start,
			Module: imp.Specifier, Imported: "default",
		})
	}
	if imp.Namespace != "" {
		p.file.Scope.Declare(&Binding{
			Kind: BindImport, Name: imp.Namespace, Offset: kw.start,
			Module: imp.Specifier, Imported: "*",
		})
	}
	for _, n := range imp.Named {
		p.file.Scope.Declare(&Binding{
			Kind: BindImport, Name: n.Local, Offset: n.Offset,
			Module: imp.Specifier, Imported: n.Imported,
		})
	}
	return nil
}

// parseImportNames parses the braced clause of an import, the opening
// brace already consumed
func (p *parser) parseImportNames(imp *Import) error {
	for {
		t, err := p.next()
		if err != nil {
			return err
		}
		if t.isPunct("}") {
			return nil
		}
		var imported string
		switch t.kind {
		case tokIdent:
			imported = t.text
		case tokString:
			imported = unquote(t.text)
		default:
			return p.errorAt(t.start, "expected import name")
		}
		name := ImportName{Local: imported, Imported: imported, Offset: t.start}

		nt, err := p.peek()
		if err != nil {
			return err
		}
		if nt.is(tokIdent, "as") {
			p.next()
			local, err := p.next()
			if err != nil {
				return err
			}
			if local.kind != tokIdent {
				return p.errorAt(local.start, "expected local name after 'as'")
			}
			name.Local = local.text
			name.Offset = local.start
		}
		imp.Named = append(imp.Named, name)

		nt, err = p.peek()
		if err != nil {
			return err
		}
		if nt.isPunct(",") {
			p.next()
		}
	}
}

// parseExport parses an export statement after the keyword. Exported
// declarations also declare into the module scope; re-export clauses are
// recorded for cross-file resolution.
func (p *parser) parseExport(kw token) error {
	t, err := p.next()
	if err != nil {
		return err
	}

	switch {
	case t.isPunct("*"):
		ex := &Export{Span: Span{Start: kw.start}, All: true}
		t, err = p.next()
		if err != nil {
			return err
		}
		if t.is(tokIdent, "as") {
			// export * as ns: the names are not forwarded individually
			ex.All = false
			if _, err = p.next(); err != nil {
				return err
			}
			t, err = p.next()
			if err != nil {
				return err
			}
		}
		if !t.is(tokIdent, "from") {
			return p.errorAt(t.start, "expected 'from'")
		}
		spec, err := p.next()
		if err != nil {
			return err
		}
		if spec.kind != tokString {
			return p.errorAt(spec.start, "expected module specifier")
		}
		ex.From = unquote(spec.text)
		ex.SpecSpan = Span{Start: spec.start + 1, End: spec.end - 1}
		ex.Span.End = p.optSemi(spec.end)
		p.file.Exports = append(p.file.Exports, ex)
		return nil

	case t.isPunct("{"):
		ex := &Export{Span: Span{Start: kw.start}}
		if err := p.parseExportNames(ex); err != nil {
			return err
		}
		end := ex.Span.Start
		nt, err := p.peek()
		if err != nil {
			return err
		}
		if nt.is(tokIdent, "from") {
			p.next()
			spec, err := p.next()
			if err != nil {
				return err
			}
			if spec.kind != tokString {
				return p.errorAt(spec.start, "expected module specifier")
			}
			ex.From = unquote(spec.text)
			ex.SpecSpan = Span{Start: spec.start + 1, End: spec.end - 1}
			end = spec.end
		}
		ex.Span.End = p.optSemi(end)
		p.file.Exports = append(p.file.Exports, ex)
		return nil

	case t.is(tokIdent, "default"):
		return p.parseDefaultExport()

	case t.is(tokIdent, "const"), t.is(tokIdent, "let"), t.is(tokIdent, "var"):
		return p.parseDeclList()

	case t.is(tokIdent, "function"):
		_, err := p.parseFunctionRest(true)
		return err

	case t.is(tokIdent, "async"):
		nt, err := p.peek()
		if err != nil {
			return err
		}
		if !nt.is(tokIdent, "function") {
			return p.errorAt(t.start, "unexpected token after 'export'")
		}
		p.next()
		_, err = p.parseFunctionRest(true)
		return err

	case t.is(tokIdent, "class"):
		return p.parseClassDecl()
	}
	return p.errorAt(t.start, "unexpected token after 'export'")
}

// parseExportNames parses the braced clause of an export, the opening
// brace already consumed. Local names may be strings only in re-exports;
// treating them uniformly here keeps the clause parser simple.
func (p *parser) parseExportNames(ex *Export) error {
	for {
		t, err := p.next()
		if err != nil {
			return err
		}
		if t.isPunct("}") {
			return nil
		}
		var local string
		switch t.kind {
		case tokIdent:
			local = t.text
		case tokString:
			local = unquote(t.text)
		default:
			return p.errorAt(t.start, "expected export name")
		}
		name := ExportName{Local: local, Exported: local, Offset: t.start}

		nt, err := p.peek()
		if err != nil {
			return err
		}
		if nt.is(tokIdent, "as") {
			p.next()
			out, err := p.next()
			if err != nil {
				return err
			}
			switch out.kind {
			case tokIdent:
				name.Exported = out.text
			case tokString:
				name.Exported = unquote(out.text)
			default:
				return p.errorAt(out.start, "expected exported name after 'as'")
			}
		}
		ex.Named = append(ex.Named, name)

		nt, err = p.peek()
		if err != nil {
			return err
		}
		if nt.isPunct(",") {
			p.next()
		}
	}
}

// parseDefaultExport handles export default. Named function and class
// forms declare their name as usual; the default slot records what the
// module's default resolves to.
func (p *parser) parseDefaultExport() error {
	t, err := p.peek()
	if err != nil {
		return err
	}

	switch {
	case t.is(tokIdent, "function"):
		p.next()
		name, err := p.parseFunctionRest(false)
		if err != nil {
			return err
		}
		p.file.Default = defaultExprFor(name)
		return nil
	case t.is(tokIdent, "async"):
		p.next()
		nt, err := p.peek()
		if err != nil {
			return err
		}
		if nt.is(tokIdent, "function") {
			p.next()
			name, err := p.parseFunctionRest(false)
			if err != nil {
				return err
			}
			p.file.Default = defaultExprFor(name)
			return nil
		}
		// async arrow: fall through to the expression scan with the
		// keyword already consumed
	case t.is(tokIdent, "class"):
		p.next()
		nt, err := p.peek()
		if err != nil {
			return err
		}
		name := ""
		if nt.kind == tokIdent {
			name = nt.text
		}
		if err := p.skipClassRest(name); err != nil {
			return err
		}
		p.file.Default = defaultExprFor(name)
		return nil
	}

	expr, stopTok, err := p.parseInitExpr()
	if err != nil {
		return err
	}
	p.file.Default = expr
	switch {
	case stopTok.isPunct(";"), stopTok.kind == tokEOF:
	default:
		p.pushback(stopTok)
	}
	return nil
}

// skipClassRest consumes a class expression body, binding name when the
// class is named
func (p *parser) skipClassRest(name string) error {
	if name != "" {
		return p.parseClassDecl()
	}
	// anonymous: skip straight to the body
	for {
		t, err := p.next()
		if err != nil {
			return err
		}
		if t.kind == tokEOF {
			return p.errorAt(t.start, "expected class body")
		}
		if t.isPunct("{") {
			stop, err := p.scanRegion(stopSet{})
			if err != nil {
				return err
			}
			if !stop.isPunct("}") {
				return p.errorAt(stop.start, "unterminated class body")
			}
			return nil
		}
	}
}

func defaultExprFor(name string) *Expr {
	if name == "" {
		return &Expr{Kind: ExprOpaque}
	}
	return &Expr{Kind: ExprIdent, Ident: name, Text: name}
}
