package syntax

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// parseElementAt parses one markup element starting at the '<' byte at
// start. It works on bytes rather than tokens so element interiors are
// never mistaken for operators; embedded {expressions} hand control back
// to the token scanner. Returns the element and the offset just past it.
func (p *parser) parseElementAt(start int) (*Element, int, error) {
	pos := start + 1
	tag, pos := p.scanTagName(pos)
	if tag == "" {
		if pos < len(p.src) && p.src[pos] == '>' {
			return nil, 0, p.errorAt(start, "fragments are not supported")
		}
		return nil, 0, p.errorAt(start, "expected tag name after '<'")
	}
	if pos < len(p.src) && p.src[pos] == '.' {
		return nil, 0, p.errorAt(start, "member expression tags are not supported")
	}

	el := &Element{
		Tag:    tag,
		TagOff: start + 1,
		Loc:    Span{Start: start},
	}

	// attributes
	for {
		pos = p.skipMarkupSpace(pos)
		if pos >= len(p.src) {
			return nil, 0, p.errorAt(start, "unclosed element <"+tag+">")
		}
		c := p.src[pos]
		if c == '/' && pos+1 < len(p.src) && p.src[pos+1] == '>' {
			el.SelfClosing = true
			el.Loc.End = pos + 2
			return el, el.Loc.End, nil
		}
		if c == '>' {
			pos++
			if voidElements[tag] {
				el.SelfClosing = true
				el.Loc.End = pos
				return el, el.Loc.End, nil
			}
			break
		}
		if c == '{' {
			attr, next, err := p.parseSpreadAttr(pos)
			if err != nil {
				return nil, 0, err
			}
			el.Attrs = append(el.Attrs, attr)
			pos = next
			continue
		}
		attr, next, err := p.parseAttr(pos)
		if err != nil {
			return nil, 0, err
		}
		el.Attrs = append(el.Attrs, attr)
		pos = next
	}

	// children
	for {
		if pos >= len(p.src) {
			return nil, 0, p.errorAt(start, "unclosed element <"+tag+">")
		}
		if strings.HasPrefix(p.src[pos:], "</") {
			namePos := pos + 2
			closing, after := p.scanTagName(namePos)
			after = p.skipMarkupSpace(after)
			if after >= len(p.src) || p.src[after] != '>' {
				return nil, 0, p.errorAt(pos, "malformed closing tag")
			}
			if closing != tag {
				return nil, 0, p.errorAt(namePos,
					"mismatched closing tag: expected </"+tag+">, got </"+closing+">")
			}
			el.Loc.End = after + 1
			return el, el.Loc.End, nil
		}
		if strings.HasPrefix(p.src[pos:], "<!--") {
			end := strings.Index(p.src[pos+4:], "-->")
			if end < 0 {
				return nil, 0, p.errorAt(pos, "unterminated comment")
			}
			pos += 4 + end + 3
			continue
		}
		if p.src[pos] == '<' && pos+1 < len(p.src) && isTagStart(p.src[pos+1]) {
			child, next, err := p.parseElementAt(pos)
			if err != nil {
				return nil, 0, err
			}
			el.Children = append(el.Children, child)
			pos = next
			continue
		}
		if p.src[pos] == '{' {
			expr, next, err := p.scanInterpExpr(pos)
			if err != nil {
				return nil, 0, err
			}
			if expr.Text != "" {
				el.Children = append(el.Children, &Interp{
					Expr: *expr,
					Loc:  Span{Start: pos, End: next},
				})
			}
			pos = next
			continue
		}
		text, next := p.scanText(pos)
		if text != "" {
			el.Children = append(el.Children, &Text{
				Value: text,
				Loc:   Span{Start: pos, End: next},
			})
		}
		pos = next
	}
}

// parseAttr parses one attribute at pos: an optional sigil, the name, and
// an optional value in quoted, interpolated, or expression form
func (p *parser) parseAttr(pos int) (*Attr, int, error) {
	attr := &Attr{Offset: pos}
	switch p.src[pos] {
	case '?', '.', '@':
		attr.Sigil = p.src[pos]
		pos++
	}

	name, pos := p.scanAttrName(pos)
	if name == "" {
		return nil, 0, p.errorAt(pos, "expected attribute name")
	}
	attr.Name = name

	pos = p.skipMarkupSpace(pos)
	if pos >= len(p.src) || p.src[pos] != '=' {
		if attr.Sigil != 0 {
			return nil, 0, p.errorAt(attr.Offset,
				"attribute '"+string(attr.Sigil)+name+"' requires an expression value")
		}
		attr.Form = AttrStatic
		return attr, pos, nil
	}
	pos = p.skipMarkupSpace(pos + 1)
	if pos >= len(p.src) {
		return nil, 0, p.errorAt(attr.Offset, "missing attribute value")
	}

	switch c := p.src[pos]; c {
	case '{':
		expr, next, err := p.scanInterpExpr(pos)
		if err != nil {
			return nil, 0, err
		}
		if expr.Text == "" {
			return nil, 0, p.errorAt(pos, "expected expression in attribute value")
		}
		attr.Form = AttrExpr
		attr.Chunks = []Chunk{{IsExpr: true, Expr: *expr}}
		return attr, next, nil

	case '"', '\'':
		chunks, static, next, err := p.parseQuotedValue(pos, c)
		if err != nil {
			return nil, 0, err
		}
		if chunks == nil {
			if attr.Sigil != 0 {
				return nil, 0, p.errorAt(attr.Offset,
					"attribute '"+string(attr.Sigil)+name+"' requires an expression value")
			}
			attr.Form = AttrStatic
			attr.Static = static
		} else {
			if attr.Sigil != 0 {
				return nil, 0, p.errorAt(attr.Offset,
					"attribute '"+string(attr.Sigil)+name+"' requires an expression value")
			}
			attr.Form = AttrInterp
			attr.Chunks = chunks
		}
		return attr, next, nil

	default:
		return nil, 0, p.errorAt(pos, "expected attribute value")
	}
}

// parseQuotedValue scans a quoted attribute value. A value with no
// embedded expressions comes back as static text with nil chunks.
func (p *parser) parseQuotedValue(pos int, quote byte) ([]Chunk, string, int, error) {
	open := pos
	pos++
	var chunks []Chunk
	var text strings.Builder
	dynamic := false

	flushText := func() {
		if text.Len() > 0 {
			chunks = append(chunks, Chunk{Text: text.String()})
			text.Reset()
		}
	}

	for pos < len(p.src) {
		c := p.src[pos]
		switch c {
		case quote:
			if !dynamic {
				return nil, text.String(), pos + 1, nil
			}
			flushText()
			return chunks, "", pos + 1, nil
		case '{':
			expr, next, err := p.scanInterpExpr(pos)
			if err != nil {
				return nil, "", 0, err
			}
			flushText()
			chunks = append(chunks, Chunk{IsExpr: true, Expr: *expr})
			dynamic = true
			pos = next
		default:
			text.WriteByte(c)
			pos++
		}
	}
	return nil, "", 0, p.errorAt(open, "unterminated attribute value")
}

// parseSpreadAttr parses a {...expr} attribute at pos
func (p *parser) parseSpreadAttr(pos int) (*Attr, int, error) {
	attr := &Attr{Offset: pos, Form: AttrSpreadForm}

	p.resync(pos+1, tokPunct, "{")
	t, err := p.next()
	if err != nil {
		return nil, 0, err
	}
	if !t.isPunct("...") {
		return nil, 0, p.errorAt(pos, "expected '...' in attribute spread")
	}
	exprStart := t.end
	stop, err := p.scanRegion(stopSet{})
	if err != nil {
		return nil, 0, err
	}
	if !stop.isPunct("}") {
		return nil, 0, p.errorAt(pos, "unterminated attribute spread")
	}
	attr.Spread = p.shapeOf(Span{Start: exprStart, End: stop.start})
	if attr.Spread.Text == "" {
		return nil, 0, p.errorAt(pos, "expected expression in attribute spread")
	}
	return attr, stop.end, nil
}

// scanInterpExpr scans a braced expression at pos via the token scanner,
// so strings, templates, nested markup, and arrow scopes inside it are
// all handled. Returns the shaped expression and the offset past the
// closing brace.
func (p *parser) scanInterpExpr(pos int) (*Expr, int, error) {
	p.resync(pos+1, tokPunct, "{")
	first, err := p.peek()
	if err != nil {
		return nil, 0, err
	}
	start := first.start
	stop, err := p.scanRegion(stopSet{})
	if err != nil {
		return nil, 0, err
	}
	if !stop.isPunct("}") {
		return nil, 0, p.errorAt(pos, "unterminated expression")
	}
	expr := p.shapeOf(Span{Start: start, End: stop.start})
	return expr, stop.end, nil
}

// scanText scans literal child text up to the next element, expression,
// comment, or closing tag. A bare '<' that opens none of those stays
// text.
func (p *parser) scanText(pos int) (string, int) {
	start := pos
	for pos < len(p.src) {
		c := p.src[pos]
		if c == '{' {
			break
		}
		if c == '<' && pos+1 < len(p.src) {
			n := p.src[pos+1]
			if isTagStart(n) || n == '/' || strings.HasPrefix(p.src[pos:], "<!--") {
				break
			}
		}
		pos++
	}
	return p.src[start:pos], pos
}

// voidElements close implicitly: <br> needs no </br>
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true,
	"embed": true, "hr": true, "img": true, "input": true,
	"link": true, "meta": true, "source": true, "track": true,
	"wbr": true,
}

// IsVoid reports whether tag is a void element that takes no closing tag
func IsVoid(tag string) bool {
	return voidElements[tag]
}

// scanTagName scans a tag name at pos. Names start with a letter or
// underscore; later bytes may add digits and dashes.
func (p *parser) scanTagName(pos int) (string, int) {
	start := pos
	for pos < len(p.src) {
		c := p.src[pos]
		if c < utf8.RuneSelf {
			if isTagStart(c) || (pos > start && (c >= '0' && c <= '9' || c == '-')) {
				pos++
				continue
			}
			break
		}
		r, size := utf8.DecodeRuneInString(p.src[pos:])
		if unicode.IsLetter(r) {
			pos += size
			continue
		}
		break
	}
	return p.src[start:pos], pos
}

// scanAttrName scans an attribute name at pos. Dashes and colons are
// allowed so data-*, aria-* and namespaced names parse whole.
func (p *parser) scanAttrName(pos int) (string, int) {
	start := pos
	for pos < len(p.src) {
		c := p.src[pos]
		if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' ||
			c >= '0' && c <= '9' || c == '-' || c == '_' || c == ':' {
			pos++
			continue
		}
		break
	}
	return p.src[start:pos], pos
}

// skipMarkupSpace skips whitespace between attributes and inside tags
func (p *parser) skipMarkupSpace(pos int) int {
	for pos < len(p.src) {
		switch p.src[pos] {
		case ' ', '\t', '\r', '\n':
			pos++
		default:
			return pos
		}
	}
	return pos
}

func isTagStart(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_' || c >= utf8.RuneSelf
}
