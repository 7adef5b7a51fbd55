package parser

import (
	"fmt"
	"strings"
)

// Parse scans text in a single forward pass and returns the element tree
// with 1-based source spans. It never fails hard: malformed input yields
// a partial tree plus a ParseError list.
func Parse(text string) ParseResult {
	p := &docParser{sc: newScanner(text)}
	root := p.parseDocument()

	result := ParseResult{
		Root:       root,
		Errors:     p.errors,
		Namespaces: map[string]string{},
	}
	if root != nil {
		for _, attr := range root.Attributes {
			if attr.Name == "xmlns" {
				result.Namespaces[""] = attr.Value
			} else if strings.HasPrefix(attr.Name, "xmlns:") {
				result.Namespaces[attr.Name[len("xmlns:"):]] = attr.Value
			}
		}
	}
	return result
}

type docParser struct {
	sc     *scanner
	errors []ParseError
}

func (p *docParser) recordError(msg string, pos Position) {
	// A mismatched closing tag is seen once per unwound ancestor; keep
	// only the first diagnostic for a given position.
	if n := len(p.errors); n > 0 {
		last := p.errors[n-1]
		if last.Line == pos.Line && last.Column == pos.Column {
			return
		}
	}
	p.errors = append(p.errors, ParseError{Message: msg, Line: pos.Line, Column: pos.Column})
}

func (p *docParser) parseDocument() *Element {
	for !p.sc.eof() {
		p.skipInterElement()
		if p.sc.eof() {
			return nil
		}
		if p.sc.startsWith("</") {
			pos := p.sc.position()
			p.recordError("unexpected closing tag before root element", pos)
			p.skipPastTagEnd()
			continue
		}
		if p.sc.peek() == '<' {
			el, ok := p.parseElement(nil)
			if ok && el != nil {
				return el
			}
			if !ok {
				// A stray closing tag was left in the stream; consume it.
				p.skipPastTagEnd()
			}
			continue
		}
		p.recordError("unexpected content before root element", p.sc.position())
		p.sc.advance()
	}
	return nil
}

// skipInterElement consumes whitespace, comments and the optional prolog
// between top-level constructs. Comments are excluded from all spans.
func (p *docParser) skipInterElement() {
	for {
		p.sc.skipSpace()
		switch {
		case p.sc.startsWith("<!--"):
			p.skipComment()
		case p.sc.startsWith("<?"):
			p.skipProlog()
		default:
			return
		}
	}
}

func (p *docParser) skipComment() {
	p.sc.advanceN(len("<!--"))
	for !p.sc.eof() {
		if p.sc.startsWith("-->") {
			p.sc.advanceN(len("-->"))
			return
		}
		p.sc.advance()
	}
	p.recordError("unterminated comment", p.sc.lastPosition())
}

func (p *docParser) skipProlog() {
	p.sc.advanceN(len("<?"))
	for !p.sc.eof() {
		if p.sc.startsWith("?>") {
			p.sc.advanceN(len("?>"))
			return
		}
		p.sc.advance()
	}
	p.recordError("unterminated prolog", p.sc.lastPosition())
}

func (p *docParser) skipPastTagEnd() {
	for !p.sc.eof() {
		if p.sc.advance() == '>' {
			return
		}
	}
}

// parseElement parses one element starting at '<'. The second return is
// false when the subtree was discarded at a mismatched closing tag; the
// closing tag is left unconsumed so an ancestor can claim it.
func (p *docParser) parseElement(parent *Element) (*Element, bool) {
	start := p.sc.position()
	p.sc.advance() // '<'

	full, prefix, local := p.readQualifiedName()
	if full == "" {
		p.recordError("malformed tag name", p.sc.position())
		p.skipPastTagEnd()
		return nil, true
	}

	el := &Element{
		TagName:         local,
		NamespacePrefix: prefix,
		FullName:        full,
		Parent:          parent,
		Span:            SourceSpan{Start: start},
	}

	if done := p.parseAttributes(el); done {
		return el, true
	}

	p.parseChildren(el)
	return elOrDiscard(el)
}

// parseAttributes consumes up to and including the '>' or '/>' of the
// open tag. It returns true when the element is complete (self-closing
// or truncated input).
func (p *docParser) parseAttributes(el *Element) bool {
	for {
		p.sc.skipSpace()
		if p.sc.eof() {
			p.recordError(fmt.Sprintf("unexpected end of input in <%s>", el.FullName), p.sc.lastPosition())
			el.Span.End = p.sc.lastPosition()
			el.Recovered = true
			return true
		}
		switch p.sc.peek() {
		case '/':
			el.Span.End = p.sc.position()
			p.sc.advance()
			if !p.sc.eof() && p.sc.peek() == '>' {
				p.sc.advance()
			} else {
				p.recordError(fmt.Sprintf("expected '>' after '/' in <%s>", el.FullName), p.sc.position())
			}
			el.SelfClosing = true
			return true
		case '>':
			p.sc.advance()
			return false
		}

		name := p.readAttrName()
		if name == "" {
			p.recordError(fmt.Sprintf("malformed attribute in <%s>", el.FullName), p.sc.position())
			p.sc.advance()
			continue
		}
		value := "true" // bare boolean-style attribute
		p.sc.skipSpace()
		if !p.sc.eof() && p.sc.peek() == '=' {
			p.sc.advance()
			p.sc.skipSpace()
			value = p.readAttrValue()
		}
		el.setAttr(name, value)
	}
}

func (p *docParser) parseChildren(el *Element) {
	var text strings.Builder
	defer func() {
		if t := strings.TrimSpace(text.String()); t != "" {
			el.TextContent = t
		}
	}()

	for {
		if p.sc.eof() {
			p.recordError(fmt.Sprintf("unclosed element <%s>", el.FullName), p.sc.lastPosition())
			el.Span.End = p.sc.lastPosition()
			el.Recovered = true
			return
		}
		if p.sc.startsWith("<!--") {
			p.skipComment()
			continue
		}
		if p.sc.startsWith("</") {
			mark := p.sc.mark()
			closePos := p.sc.position()
			p.sc.advanceN(2)
			closeName, _, _ := p.readQualifiedName()
			p.sc.skipSpace()
			if closeName == el.FullName && !p.sc.eof() && p.sc.peek() == '>' {
				el.Span.End = p.sc.position()
				p.sc.advance()
				return
			}
			// Mismatched closing tag: stop descending. The subtree is
			// discarded and the tag stays in the stream for an ancestor.
			p.recordError(fmt.Sprintf("closing tag </%s> does not match <%s>", closeName, el.FullName), closePos)
			p.sc.restore(mark)
			el.Recovered = true
			return
		}
		if p.sc.peek() == '<' {
			child, ok := p.parseElement(el)
			if !ok {
				// Child unwound at a closing tag which may be ours;
				// re-examine it on the next iteration.
				continue
			}
			if child != nil {
				el.Children = append(el.Children, child)
			}
			continue
		}
		for !p.sc.eof() && p.sc.peek() != '<' {
			text.WriteRune(p.sc.advance())
		}
	}
}

// elOrDiscard drops an element whose children loop unwound at a
// mismatched closing tag without ever finding its own.
func elOrDiscard(el *Element) (*Element, bool) {
	if el.Recovered && el.Span.End == (Position{}) {
		return nil, false
	}
	return el, true
}

func (p *docParser) readQualifiedName() (full, prefix, local string) {
	var b strings.Builder
	for !p.sc.eof() && isNameRune(p.sc.peek()) {
		b.WriteRune(p.sc.advance())
	}
	full = b.String()
	if i := strings.IndexByte(full, ':'); i >= 0 {
		return full, full[:i], full[i+1:]
	}
	return full, "", full
}

func (p *docParser) readAttrName() string {
	var b strings.Builder
	for !p.sc.eof() && isNameRune(p.sc.peek()) {
		b.WriteRune(p.sc.advance())
	}
	return b.String()
}

// readAttrValue accepts single-quoted, double-quoted and unquoted values
// verbatim; the parser is permissive, not validating.
func (p *docParser) readAttrValue() string {
	if p.sc.eof() {
		return ""
	}
	var b strings.Builder
	quote := p.sc.peek()
	if quote == '"' || quote == '\'' {
		p.sc.advance()
		for !p.sc.eof() && p.sc.peek() != quote {
			b.WriteRune(p.sc.advance())
		}
		if p.sc.eof() {
			p.recordError("unterminated attribute value", p.sc.lastPosition())
		} else {
			p.sc.advance()
		}
		return b.String()
	}
	for !p.sc.eof() {
		c := p.sc.peek()
		if c == '>' || c == '/' || isSpaceRune(c) {
			break
		}
		b.WriteRune(p.sc.advance())
	}
	return b.String()
}

func isNameRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == ':' || r == '.' || r == '_' || r == '-':
		return true
	}
	return false
}

func isSpaceRune(r rune) bool {
	return r == ' ' || r == '\t' || r == '\r' || r == '\n'
}

// scanner walks the source rune by rune, tracking 1-based line/column.
type scanner struct {
	src      []rune
	pos      int
	line     int
	col      int
	prevLine int
	prevCol  int
}

type scannerMark struct {
	pos, line, col, prevLine, prevCol int
}

func newScanner(text string) *scanner {
	return &scanner{src: []rune(text), line: 1, col: 1, prevLine: 1, prevCol: 1}
}

func (s *scanner) eof() bool { return s.pos >= len(s.src) }

func (s *scanner) peek() rune { return s.src[s.pos] }

func (s *scanner) advance() rune {
	r := s.src[s.pos]
	s.pos++
	s.prevLine, s.prevCol = s.line, s.col
	if r == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	return r
}

func (s *scanner) advanceN(n int) {
	for i := 0; i < n && !s.eof(); i++ {
		s.advance()
	}
}

func (s *scanner) skipSpace() {
	for !s.eof() && isSpaceRune(s.peek()) {
		s.advance()
	}
}

func (s *scanner) startsWith(prefix string) bool {
	if s.pos+len(prefix) > len(s.src) {
		return false
	}
	for i, r := range prefix {
		if s.src[s.pos+i] != r {
			return false
		}
	}
	return true
}

// position addresses the next unconsumed rune.
func (s *scanner) position() Position {
	return Position{Line: s.line, Column: s.col}
}

// lastPosition addresses the most recently consumed rune.
func (s *scanner) lastPosition() Position {
	return Position{Line: s.prevLine, Column: s.prevCol}
}

func (s *scanner) mark() scannerMark {
	return scannerMark{pos: s.pos, line: s.line, col: s.col, prevLine: s.prevLine, prevCol: s.prevCol}
}

func (s *scanner) restore(m scannerMark) {
	s.pos, s.line, s.col, s.prevLine, s.prevCol = m.pos, m.line, m.col, m.prevLine, m.prevCol
}
