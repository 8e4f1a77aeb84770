package syntax

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// tokKind classifies lexical tokens of the module language
type tokKind uint8

const (
	tokEOF tokKind = iota
	tokIdent
	tokNumber
	tokString
	tokTemplate
	tokRegex
	tokPunct
)

// token is one lexical token; text aliases the source
type token struct {
	kind  tokKind
	start int
	end   int
	text  string
	nl    bool // a line break separates this token from the previous one
}

func (t token) is(kind tokKind, text string) bool {
	return t.kind == kind && t.text == text
}

func (t token) isPunct(text string) bool {
	return t.kind == tokPunct && t.text == text
}

// lexer produces tokens on demand. The parser repositions it freely, since
// markup regions are consumed by the byte-level element parser instead of
// the lexer. prevKind/prevText carry the previous significant token for the
// regex-versus-division decision.
type lexer struct {
	src      string
	path     string
	lines    *lineTable
	pos      int
	prevKind tokKind
	prevText string
}

func newLexer(path, src string, lines *lineTable) *lexer {
	return &lexer{src: src, path: path, lines: lines}
}

func (lx *lexer) errorAt(offset int, msg string) error {
	return &Error{Path: lx.path, Pos: lx.lines.pos(offset), Msg: msg}
}

// resync repositions the lexer after a region was consumed outside it.
// prev approximates the token that ended the region, so that a following
// slash is read as division rather than a regex opener.
func (lx *lexer) resync(pos int, prev tokKind, prevText string) {
	lx.pos = pos
	lx.prevKind = prev
	lx.prevText = prevText
}

// skipTrivia advances over whitespace and comments, reporting whether a
// line break was crossed
func (lx *lexer) skipTrivia() (bool, error) {
	nl := false
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\f' || c == '\v':
			lx.pos++
		case c == '\n':
			nl = true
			lx.pos++
		case c == '/' && lx.pos+1 < len(lx.src) && lx.src[lx.pos+1] == '/':
			for lx.pos < len(lx.src) && lx.src[lx.pos] != '\n' {
				lx.pos++
			}
		case c == '/' && lx.pos+1 < len(lx.src) && lx.src[lx.pos+1] == '*':
			end := strings.Index(lx.src[lx.pos+2:], "*/")
			if end < 0 {
				return nl, lx.errorAt(lx.pos, "unterminated block comment")
			}
			if strings.Contains(lx.src[lx.pos:lx.pos+2+end], "\n") {
				nl = true
			}
			lx.pos += 2 + end + 2
		default:
			return nl, nil
		}
	}
	return nl, nil
}

// next returns the next token
func (lx *lexer) next() (token, error) {
	nl, err := lx.skipTrivia()
	if err != nil {
		return token{}, err
	}
	if lx.pos >= len(lx.src) {
		return token{kind: tokEOF, start: lx.pos, end: lx.pos, nl: nl}, nil
	}

	start := lx.pos
	c := lx.src[lx.pos]
	var t token

	switch {
	case isIdentStart(c) || c >= utf8.RuneSelf:
		lx.pos = scanIdent(lx.src, lx.pos)
		t = token{kind: tokIdent, start: start, end: lx.pos}

	case c >= '0' && c <= '9',
		c == '.' && lx.pos+1 < len(lx.src) && lx.src[lx.pos+1] >= '0' && lx.src[lx.pos+1] <= '9':
		lx.pos = scanNumber(lx.src, lx.pos)
		t = token{kind: tokNumber, start: start, end: lx.pos}

	case c == '"' || c == '\'':
		end, err := scanString(lx.src, lx.pos)
		if err != nil {
			return token{}, lx.errorAt(start, err.Error())
		}
		lx.pos = end
		t = token{kind: tokString, start: start, end: end}

	case c == '`':
		end, err := scanTemplate(lx.src, lx.pos)
		if err != nil {
			return token{}, lx.errorAt(start, err.Error())
		}
		lx.pos = end
		t = token{kind: tokTemplate, start: start, end: end}

	case c == '/' && exprPosAfter(lx.prevKind, lx.prevText):
		end, err := scanRegex(lx.src, lx.pos)
		if err != nil {
			return token{}, lx.errorAt(start, err.Error())
		}
		lx.pos = end
		t = token{kind: tokRegex, start: start, end: end}

	default:
		lx.pos = start + punctLen(lx.src, start)
		t = token{kind: tokPunct, start: start, end: lx.pos}
	}

	t.text = lx.src[t.start:t.end]
	t.nl = nl
	lx.prevKind, lx.prevText = t.kind, t.text
	return t, nil
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func scanIdent(src string, pos int) int {
	for pos < len(src) {
		c := src[pos]
		if isIdentPart(c) {
			pos++
			continue
		}
		if c >= utf8.RuneSelf {
			r, size := utf8.DecodeRuneInString(src[pos:])
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				pos += size
				continue
			}
		}
		break
	}
	return pos
}

// scanNumber is deliberately lenient: it accepts every JS numeric form
// (hex, octal, binary, exponents, separators, bigint) without validating
func scanNumber(src string, pos int) int {
	if src[pos] == '0' && pos+1 < len(src) {
		switch src[pos+1] | 0x20 {
		case 'x', 'o', 'b':
			pos += 2
			for pos < len(src) && (isHexDigit(src[pos]) || src[pos] == '_') {
				pos++
			}
			if pos < len(src) && src[pos] == 'n' {
				pos++
			}
			return pos
		}
	}
	pos = scanDigits(src, pos)
	if pos < len(src) && src[pos] == '.' {
		pos = scanDigits(src, pos+1)
	}
	if pos < len(src) && (src[pos] == 'e' || src[pos] == 'E') {
		p := pos + 1
		if p < len(src) && (src[p] == '+' || src[p] == '-') {
			p++
		}
		if p < len(src) && src[p] >= '0' && src[p] <= '9' {
			pos = scanDigits(src, p)
		}
	}
	if pos < len(src) && src[pos] == 'n' {
		pos++
	}
	return pos
}

func scanDigits(src string, pos int) int {
	for pos < len(src) && (src[pos] >= '0' && src[pos] <= '9' || src[pos] == '_') {
		pos++
	}
	return pos
}

func isHexDigit(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}

func scanString(src string, pos int) (int, error) {
	quote := src[pos]
	pos++
	for pos < len(src) {
		c := src[pos]
		switch c {
		case quote:
			return pos + 1, nil
		case '\\':
			pos += 2
		case '\n':
			return pos, errStr("unterminated string literal")
		default:
			pos++
		}
	}
	return pos, errStr("unterminated string literal")
}

// scanTemplate consumes a template literal including nested ${} holes and
// nested templates inside them
func scanTemplate(src string, pos int) (int, error) {
	pos++ // opening backtick
	for pos < len(src) {
		switch src[pos] {
		case '`':
			return pos + 1, nil
		case '\\':
			pos += 2
		case '$':
			if pos+1 < len(src) && src[pos+1] == '{' {
				end, err := scanTemplateHole(src, pos+2)
				if err != nil {
					return pos, err
				}
				pos = end
			} else {
				pos++
			}
		default:
			pos++
		}
	}
	return pos, errStr("unterminated template literal")
}

// scanTemplateHole consumes the expression inside ${...}, tracking nested
// braces, strings, templates, and comments
func scanTemplateHole(src string, pos int) (int, error) {
	depth := 1
	for pos < len(src) {
		c := src[pos]
		switch {
		case c == '{':
			depth++
			pos++
		case c == '}':
			depth--
			pos++
			if depth == 0 {
				return pos, nil
			}
		case c == '"' || c == '\'':
			end, err := scanString(src, pos)
			if err != nil {
				return pos, err
			}
			pos = end
		case c == '`':
			end, err := scanTemplate(src, pos)
			if err != nil {
				return pos, err
			}
			pos = end
		case c == '/' && pos+1 < len(src) && src[pos+1] == '/':
			for pos < len(src) && src[pos] != '\n' {
				pos++
			}
		case c == '/' && pos+1 < len(src) && src[pos+1] == '*':
			end := strings.Index(src[pos+2:], "*/")
			if end < 0 {
				return pos, errStr("unterminated block comment")
			}
			pos += 2 + end + 2
		case c == '\\':
			pos += 2
		default:
			pos++
		}
	}
	return pos, errStr("unterminated template literal")
}

func scanRegex(src string, pos int) (int, error) {
	pos++ // opening slash
	inClass := false
	for pos < len(src) {
		c := src[pos]
		switch {
		case c == '\\':
			pos += 2
		case c == '[':
			inClass = true
			pos++
		case c == ']':
			inClass = false
			pos++
		case c == '/' && !inClass:
			pos++
			// flags
			for pos < len(src) && isIdentPart(src[pos]) {
				pos++
			}
			return pos, nil
		case c == '\n':
			return pos, errStr("unterminated regular expression")
		default:
			pos++
		}
	}
	return pos, errStr("unterminated regular expression")
}

// multiPuncts is ordered longest-first so prefixes never shadow a longer
// operator
var multiPuncts = []string{
	">>>=",
	"===", "!==", "**=", "<<=", ">>=", "&&=", "||=", "??=", ">>>", "...",
	"=>", "==", "!=", "<=", ">=", "&&", "||", "??", "?.", "**", "++", "--",
	"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "<<", ">>",
}

func punctLen(src string, pos int) int {
	rest := src[pos:]
	for _, p := range multiPuncts {
		if strings.HasPrefix(rest, p) {
			// ?. followed by a digit is a ternary, not optional chaining
			if p == "?." && pos+2 < len(src) && src[pos+2] >= '0' && src[pos+2] <= '9' {
				continue
			}
			return len(p)
		}
	}
	return 1
}

// exprPosKeywords are keywords after which an expression (and therefore a
// regex literal or a markup element) may begin
var exprPosKeywords = map[string]bool{
	"return": true, "case": true, "typeof": true, "instanceof": true,
	"in": true, "of": true, "new": true, "delete": true, "void": true,
	"do": true, "else": true, "yield": true, "await": true, "throw": true,
}

// exprPosAfter reports whether an expression may start after the given
// previous token. Used both for regex disambiguation and for deciding
// whether '<' opens a markup element.
func exprPosAfter(prev tokKind, prevText string) bool {
	switch prev {
	case tokEOF:
		return true
	case tokPunct:
		switch prevText {
		case ")", "]", "}", "++", "--":
			return false
		}
		return true
	case tokIdent:
		return exprPosKeywords[prevText]
	default:
		return false
	}
}

// errStr is a bare message carrier; the lexer wraps it with a position
type errStr string

func (e errStr) Error() string { return string(e) }

// unquote decodes a string literal token into its value. Escapes beyond
// the common single-character ones pass through undecoded, which is fine
// for module specifiers.
func unquote(text string) string {
	if len(text) < 2 {
		return text
	}
	body := text[1 : len(text)-1]
	if !strings.ContainsRune(body, '\\') {
		return body
	}
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' || i+1 >= len(body) {
			b.WriteByte(c)
			continue
		}
		i++
		switch body[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '\\', '\'', '"', '`':
			b.WriteByte(body[i])
		case '\n':
			// line continuation
		default:
			b.WriteByte('\\')
			b.WriteByte(body[i])
		}
	}
	return b.String()
}
