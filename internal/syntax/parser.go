package syntax

import "strings"

// parser drives the lexer over code regions and hands markup regions to the
// byte-level element parser. One parser handles one file.
type parser struct {
	lx     *lexer
	src    string
	path   string
	file   *File
	scope  *Scope
	peeked *token
}

// Parse parses src as a weft module and returns its structure: imports,
// exports, top-level bindings, and every markup root with the scope it
// appeared in
func Parse(path string, src []byte) (*File, error) {
	text := string(src)
	lines := newLineTable(text)
	file := &File{
		Path:  path,
		Src:   text,
		Scope: NewScope(nil),
		lines: lines,
	}
	p := &parser{
		lx:    newLexer(path, text, lines),
		src:   text,
		path:  path,
		file:  file,
		scope: file.Scope,
	}
	stop, err := p.scanRegion(stopSet{})
	if err != nil {
		return nil, err
	}
	if stop.kind != tokEOF {
		return nil, p.errorAt(stop.start, "unexpected '"+stop.text+"'")
	}
	return file, nil
}

func (p *parser) errorAt(offset int, msg string) error {
	return &Error{Path: p.path, Pos: p.file.lines.pos(offset), Msg: msg}
}

func (p *parser) next() (token, error) {
	if p.peeked != nil {
		t := *p.peeked
		p.peeked = nil
		return t, nil
	}
	return p.lx.next()
}

func (p *parser) peek() (token, error) {
	if p.peeked == nil {
		t, err := p.lx.next()
		if err != nil {
			return token{}, err
		}
		p.peeked = &t
	}
	return *p.peeked, nil
}

func (p *parser) pushback(t token) {
	p.peeked = &t
}

// resync repositions the lexer past a byte region consumed outside it,
// dropping any lookahead
func (p *parser) resync(pos int, prev tokKind, prevText string) {
	p.peeked = nil
	p.lx.resync(pos, prev, prevText)
}

// optSemi consumes a trailing semicolon if present and returns the end
// offset of the statement
func (p *parser) optSemi(prevEnd int) int {
	t, err := p.peek()
	if err == nil && t.isPunct(";") {
		p.next()
		return t.end
	}
	return prevEnd
}

// stopSet controls where scanRegion hands control back to its caller. A
// closing bracket that would take any depth negative always ends the
// region regardless of the set.
type stopSet struct {
	comma bool // stop at ',' at region depth zero
	semi  bool // stop at ';' at region depth zero
	asi   bool // stop at a newline statement boundary at depth zero
}

// arrowMark records an arrow-function scope pushed mid-region so it can be
// popped when the arrow's body ends. For block bodies bd is the brace
// depth the region returns to when the body closes; for expression bodies
// all three depths identify where a separator terminates the body.
type arrowMark struct {
	block bool
	pd    int
	bd    int
	kd    int
}

// beginsStatement reports whether tok could start a new statement for the
// purpose of automatic statement termination at newlines
func beginsStatement(t token) bool {
	switch t.kind {
	case tokIdent:
		switch t.text {
		case "in", "instanceof", "of", "as":
			return false
		}
		return true
	case tokNumber, tokString, tokRegex:
		return true
	case tokPunct:
		return t.text == "{"
	}
	return false
}

// scanRegion walks one code region: it tracks bracket depths, declares
// statement-level bindings into the current scope, pushes and pops arrow
// scopes, and records markup roots. The token that ended the region is
// returned already consumed; callers push it back when it belongs to an
// enclosing construct.
func (p *parser) scanRegion(stop stopSet) (token, error) {
	entry := p.scope
	defer func() { p.scope = entry }()

	var (
		pd, bd, kd int
		openParens []int
		lastParen  = -1
		marks      []arrowMark
		prev       token
		atStmt     = true
	)

	// popSeparator pops expression-body arrow scopes terminated by a
	// separator at exactly their depths
	popSeparator := func() {
		for len(marks) > 0 {
			m := marks[len(marks)-1]
			if m.block || m.pd != pd || m.bd != bd || m.kd != kd {
				return
			}
			marks = marks[:len(marks)-1]
			p.scope = p.scope.Parent
		}
	}

	// popCloser pops arrow scopes whose body a closing bracket just ended
	popCloser := func() {
		for len(marks) > 0 {
			m := marks[len(marks)-1]
			if m.block {
				if bd > m.bd {
					return
				}
			} else if pd >= m.pd && bd >= m.bd && kd >= m.kd {
				return
			}
			marks = marks[:len(marks)-1]
			p.scope = p.scope.Parent
		}
	}

	for {
		t, err := p.next()
		if err != nil {
			return token{}, err
		}
		if t.kind == tokEOF {
			return t, nil
		}

		if stop.asi && t.nl && pd == 0 && bd == 0 && kd == 0 &&
			prev.kind != tokEOF && !exprPosAfter(prev.kind, prev.text) &&
			beginsStatement(t) {
			return t, nil
		}

		if atStmt && t.kind == tokIdent {
			handled, err := p.statementKeyword(t, pd, bd, kd)
			if err != nil {
				return token{}, err
			}
			if handled {
				prev = token{}
				atStmt = true
				continue
			}
		}

		if t.kind == tokPunct {
			switch t.text {
			case "(":
				pd++
				openParens = append(openParens, t.start)
				prev, atStmt = t, false
				continue
			case ")":
				if pd == 0 {
					return t, nil
				}
				pd--
				if n := len(openParens); n > 0 {
					lastParen = openParens[n-1]
					openParens = openParens[:n-1]
				}
				popCloser()
				prev, atStmt = t, false
				continue
			case "[":
				kd++
				prev, atStmt = t, false
				continue
			case "]":
				if kd == 0 {
					return t, nil
				}
				kd--
				popCloser()
				prev, atStmt = t, false
				continue
			case "{":
				bd++
				prev, atStmt = t, true
				continue
			case "}":
				if bd == 0 {
					return t, nil
				}
				bd--
				popCloser()
				prev, atStmt = t, true
				continue
			case ",":
				popSeparator()
				if stop.comma && pd == 0 && bd == 0 && kd == 0 {
					return t, nil
				}
				prev, atStmt = t, false
				continue
			case ";":
				popSeparator()
				if stop.semi && pd == 0 && bd == 0 && kd == 0 {
					return t, nil
				}
				prev, atStmt = t, true
				continue
			case "=>":
				var params []string
				if prev.kind == tokIdent {
					params = []string{prev.text}
				} else if prev.isPunct(")") && lastParen >= 0 {
					params = parseParams(p.src[lastParen+1 : prev.start])
				}
				child := NewScope(p.scope)
				for _, name := range params {
					child.Declare(&Binding{Kind: BindParam, Name: name, Offset: t.start})
				}
				p.scope = child
				nt, err := p.peek()
				if err != nil {
					return token{}, err
				}
				if nt.isPunct("{") {
					p.next()
					marks = append(marks, arrowMark{block: true, bd: bd})
					bd++
					prev, atStmt = nt, true
				} else {
					marks = append(marks, arrowMark{block: false, pd: pd, bd: bd, kd: kd})
					prev, atStmt = t, false
				}
				continue
			case "<":
				if exprPosAfter(prev.kind, prev.text) {
					el, end, err := p.parseElementAt(t.start)
					if err != nil {
						return token{}, err
					}
					p.file.Markups = append(p.file.Markups, &MarkupExpr{Root: el, Scope: p.scope})
					p.resync(end, tokPunct, ")")
					prev = token{kind: tokPunct, start: end, end: end, text: ")"}
					atStmt = false
					continue
				}
			}
		}

		prev, atStmt = t, false
	}
}

// statementKeyword handles declaration statements met at statement
// position inside a region. It reports whether the token was consumed as
// a declaration.
func (p *parser) statementKeyword(t token, pd, bd, kd int) (bool, error) {
	atModuleTop := p.scope == p.file.Scope && pd == 0 && bd == 0 && kd == 0

	switch t.text {
	case "import":
		if !atModuleTop {
			return false, nil
		}
		nt, err := p.peek()
		if err != nil {
			return false, err
		}
		// dynamic import() and import.meta are plain expressions
		if nt.isPunct("(") || nt.isPunct(".") {
			return false, nil
		}
		return true, p.parseImport(t)

	case "export":
		if !atModuleTop {
			return false, nil
		}
		return true, p.parseExport(t)

	case "const", "let", "var":
		nt, err := p.peek()
		if err != nil {
			return false, err
		}
		if nt.kind != tokIdent && !nt.isPunct("{") && !nt.isPunct("[") {
			return false, nil
		}
		return true, p.parseDeclList()

	case "function":
		nt, err := p.peek()
		if err != nil {
			return false, err
		}
		if nt.kind != tokIdent && !nt.isPunct("*") {
			return false, nil
		}
		_, err = p.parseFunctionRest(true)
		return true, err

	case "async":
		nt, err := p.peek()
		if err != nil {
			return false, err
		}
		if !nt.is(tokIdent, "function") {
			return false, nil
		}
		p.next()
		nt2, err := p.peek()
		if err != nil {
			return false, err
		}
		if nt2.kind != tokIdent && !nt2.isPunct("*") {
			// anonymous async function expression; already consumed the
			// keyword, so scan its remainder generically
			return true, p.skipFunctionRest()
		}
		_, err = p.parseFunctionRest(true)
		return true, err

	case "class":
		nt, err := p.peek()
		if err != nil {
			return false, err
		}
		if nt.kind != tokIdent {
			return false, nil
		}
		return true, p.parseClassDecl()
	}
	return false, nil
}

// parseDeclList parses the declarators of a const/let/var statement, the
// keyword already consumed
func (p *parser) parseDeclList() error {
	for {
		t, err := p.next()
		if err != nil {
			return err
		}
		names, single, err := p.parsePattern(t)
		if err != nil {
			return err
		}

		var init *Expr
		var stopTok token
		nt, err := p.peek()
		if err != nil {
			return err
		}
		if nt.isPunct("=") {
			p.next()
			init, stopTok, err = p.parseInitExpr()
			if err != nil {
				return err
			}
		} else {
			stopTok, err = p.next()
			if err != nil {
				return err
			}
		}

		if single != "" {
			p.scope.Declare(&Binding{Kind: BindLocal, Name: single, Offset: t.start, Init: init})
		}
		for _, n := range names {
			p.scope.Declare(&Binding{Kind: BindLocal, Name: n, Offset: t.start})
		}

		switch {
		case stopTok.isPunct(","):
			continue
		case stopTok.isPunct(";"), stopTok.kind == tokEOF:
			return nil
		default:
			p.pushback(stopTok)
			return nil
		}
	}
}

// parsePattern consumes one binding pattern. A plain identifier comes back
// in single; destructuring patterns come back as the flat name list.
func (p *parser) parsePattern(t token) (names []string, single string, err error) {
	switch {
	case t.kind == tokIdent:
		return nil, t.text, nil
	case t.isPunct("{"), t.isPunct("["):
		names, err = p.scanPatternNames(t)
		return names, "", err
	default:
		return nil, "", p.errorAt(t.start, "expected declaration name")
	}
}

// scanPatternNames walks a destructuring pattern collecting the names it
// binds. Renames bind the value side ({a: x} binds x); default values are
// skipped up to the next separator.
func (p *parser) scanPatternNames(open token) ([]string, error) {
	var names []string
	depth := 1
	skipping := false
	skipDepth := 0
	var pending string

	flush := func() {
		if pending != "" {
			names = append(names, pending)
			pending = ""
		}
	}

	for depth > 0 {
		t, err := p.next()
		if err != nil {
			return nil, err
		}
		if t.kind == tokEOF {
			return nil, p.errorAt(open.start, "unterminated destructuring pattern")
		}
		if t.kind == tokPunct {
			switch t.text {
			case "{", "[", "(":
				depth++
			case "}", "]", ")":
				depth--
				if skipping && depth < skipDepth {
					skipping = false
				}
				if depth == 0 {
					flush()
				}
			case ",":
				if skipping && depth == skipDepth {
					skipping = false
				}
				flush()
			case ":":
				pending = ""
			case "=":
				flush()
				if !skipping {
					skipping = true
					skipDepth = depth
				}
			}
			continue
		}
		if t.kind == tokIdent && !skipping && !isReserved(t.text) {
			pending = t.text
		}
	}
	flush()
	return names, nil
}

// parseInitExpr scans one initializer expression and classifies its shape.
// The token that terminated the expression is returned consumed.
func (p *parser) parseInitExpr() (*Expr, token, error) {
	first, err := p.peek()
	if err != nil {
		return nil, token{}, err
	}
	start := first.start
	stopTok, err := p.scanRegion(stopSet{comma: true, semi: true, asi: true})
	if err != nil {
		return nil, token{}, err
	}
	expr := p.shapeOf(Span{Start: start, End: stopTok.start})
	return expr, stopTok, nil
}

// parseFunctionRest parses a function declaration after the keyword: an
// optional generator star, the name (required when nameRequired), the
// parameter list, and the body in a child scope
func (p *parser) parseFunctionRest(nameRequired bool) (string, error) {
	t, err := p.next()
	if err != nil {
		return "", err
	}
	if t.isPunct("*") {
		t, err = p.next()
		if err != nil {
			return "", err
		}
	}
	name := ""
	if t.kind == tokIdent {
		name = t.text
		p.scope.Declare(&Binding{Kind: BindFunc, Name: name, Offset: t.start})
		t, err = p.next()
		if err != nil {
			return "", err
		}
	} else if nameRequired {
		return "", p.errorAt(t.start, "expected function name")
	}
	if !t.isPunct("(") {
		return "", p.errorAt(t.start, "expected '(' after function name")
	}
	params, err := p.scanPatternNames(t)
	if err != nil {
		return "", err
	}
	body, err := p.next()
	if err != nil {
		return "", err
	}
	if !body.isPunct("{") {
		return "", p.errorAt(body.start, "expected function body")
	}
	child := NewScope(p.scope)
	for _, n := range params {
		child.Declare(&Binding{Kind: BindParam, Name: n, Offset: body.start})
	}
	old := p.scope
	p.scope = child
	stop, err := p.scanRegion(stopSet{})
	p.scope = old
	if err != nil {
		return "", err
	}
	if !stop.isPunct("}") {
		return "", p.errorAt(stop.start, "unterminated function body")
	}
	return name, nil
}

// skipFunctionRest consumes an anonymous function expression's parameter
// list and body without binding a name
func (p *parser) skipFunctionRest() error {
	_, err := p.parseFunctionRest(false)
	return err
}

// parseClassDecl binds the class name and scans the body generically so
// markup inside methods is still found
func (p *parser) parseClassDecl() error {
	t, err := p.next()
	if err != nil {
		return err
	}
	if t.kind != tokIdent {
		return p.errorAt(t.start, "expected class name")
	}
	p.scope.Declare(&Binding{Kind: BindLocal, Name: t.text, Offset: t.start})

	// skip heritage clause up to the class body
	pd, kd := 0, 0
	for {
		t, err = p.next()
		if err != nil {
			return err
		}
		if t.kind == tokEOF {
			return p.errorAt(t.start, "expected class body")
		}
		if t.kind != tokPunct {
			continue
		}
		switch t.text {
		case "(":
			pd++
		case ")":
			pd--
		case "[":
			kd++
		case "]":
			kd--
		case "{":
			if pd == 0 && kd == 0 {
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
}

// parseParams extracts bound names from raw parameter-list text. It reuses
// the lexer so strings and comments inside default values cannot confuse
// the walk; overcollecting in odd corners is harmless since parameters
// only ever resolve conservatively.
func parseParams(src string) []string {
	lx := newLexer("", src, newLineTable(src))
	var toks []token
	for {
		t, err := lx.next()
		if err != nil || t.kind == tokEOF {
			break
		}
		toks = append(toks, t)
	}

	var names []string
	depth := 0
	skipping := false
	skipDepth := 0
	for i, t := range toks {
		if t.kind == tokPunct {
			switch t.text {
			case "(", "[", "{":
				depth++
			case ")", "]", "}":
				depth--
				if skipping && depth < skipDepth {
					skipping = false
				}
			case ",":
				if skipping && depth <= skipDepth {
					skipping = false
				}
			case "=":
				if !skipping {
					skipping = true
					skipDepth = depth
				}
			}
			continue
		}
		if t.kind != tokIdent || skipping || isReserved(t.text) {
			continue
		}
		if i > 0 && toks[i-1].isPunct(".") {
			continue
		}
		if i+1 < len(toks) && toks[i+1].isPunct(":") {
			continue
		}
		names = append(names, t.text)
	}
	return names
}

// reservedNames are identifiers that never name a resolvable binding
var reservedNames = map[string]bool{
	"true": true, "false": true, "null": true, "undefined": true,
	"this": true, "new": true, "typeof": true, "void": true,
	"function": true, "class": true, "await": true, "yield": true,
	"in": true, "of": true, "instanceof": true, "delete": true,
	"import": true, "export": true, "super": true,
}

func isReserved(name string) bool {
	return reservedNames[name]
}

// shapeOf classifies the expression in span as an identifier reference, a
// simple call, an inline markup element, or opaque text. The span is
// trimmed to the expression's exact extent.
func (p *parser) shapeOf(span Span) *Expr {
	text := p.src[span.Start:span.End]
	trimmed := strings.TrimLeft(text, " \t\r\n")
	span.Start += len(text) - len(trimmed)
	trimmed = strings.TrimRight(trimmed, " \t\r\n;")
	span.End = span.Start + len(trimmed)

	e := &Expr{Span: span, Text: trimmed, Kind: ExprOpaque}
	if trimmed == "" {
		return e
	}

	if trimmed[0] == '<' {
		for _, m := range p.file.Markups {
			if m.Root.Loc.Start == span.Start && m.Root.Loc.End == span.End {
				e.Kind = ExprMarkup
				e.Markup = m.Root
				return e
			}
		}
		return e
	}

	// blank out embedded markup spans, length-preserved, so closing tags
	// inside them cannot derail the re-lex below
	cleaned := trimmed
	if strings.Contains(trimmed, "<") {
		var b []byte
		for _, m := range p.file.Markups {
			if m.Root.Loc.Start >= span.Start && m.Root.Loc.End <= span.End {
				if b == nil {
					b = []byte(trimmed)
				}
				lo := m.Root.Loc.Start - span.Start
				b[lo] = '0'
				for i := lo + 1; i < m.Root.Loc.End-span.Start; i++ {
					b[i] = ' '
				}
			}
		}
		if b != nil {
			cleaned = string(b)
		}
	}

	toks, ok := lexAll(cleaned)
	if !ok || len(toks) == 0 {
		return e
	}

	if len(toks) == 1 && toks[0].kind == tokIdent && !isReserved(toks[0].text) {
		e.Kind = ExprIdent
		e.Ident = toks[0].text
		return e
	}

	// dotted-path call: ident(.ident)* ( args ) spanning the whole text
	if toks[0].kind != tokIdent || isReserved(toks[0].text) {
		return e
	}
	last := 0
	calleeParts := []string{toks[0].text}
	for last+2 < len(toks) && toks[last+1].isPunct(".") && toks[last+2].kind == tokIdent {
		calleeParts = append(calleeParts, toks[last+2].text)
		last += 2
	}
	open := last + 1
	if open >= len(toks) || !toks[open].isPunct("(") || !toks[len(toks)-1].isPunct(")") {
		return e
	}

	var args []Arg
	depth := 0
	argStart := -1
	argSpread := false
	closeArg := func(endOff int) {
		if argStart < 0 {
			return
		}
		s := Span{Start: span.Start + argStart, End: span.Start + endOff}
		argText := strings.TrimSpace(p.src[s.Start:s.End])
		if argText != "" {
			args = append(args, Arg{Span: s, Text: argText, Spread: argSpread})
		}
		argStart = -1
		argSpread = false
	}
	for i := open; i < len(toks); i++ {
		t := toks[i]
		if t.kind == tokPunct {
			switch t.text {
			case "(", "[", "{":
				depth++
				if depth == 1 && t.text == "(" {
					continue
				}
			case ")", "]", "}":
				depth--
				if depth == 0 && t.text == ")" {
					if i != len(toks)-1 {
						return e // call is a prefix, not the whole text
					}
					closeArg(t.start)
					continue
				}
			case ",":
				if depth == 1 {
					closeArg(t.start)
					continue
				}
			case "...":
				if depth == 1 && argStart < 0 {
					argStart = t.start
					argSpread = true
					continue
				}
			}
		}
		if depth >= 1 && argStart < 0 {
			argStart = t.start
		}
	}

	e.Kind = ExprCall
	e.Callee = strings.Join(calleeParts, ".")
	e.Args = args
	return e
}

// lexAll tokenizes a standalone snippet, reporting failure instead of an
// error so callers can fall back to an opaque classification
func lexAll(src string) ([]token, bool) {
	lx := newLexer("", src, newLineTable(src))
	var toks []token
	for {
		t, err := lx.next()
		if err != nil {
			return nil, false
		}
		if t.kind == tokEOF {
			return toks, true
		}
		toks = append(toks, t)
	}
}
