package parser

// Position is a 1-based line/column location in the previewed document.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// SourceSpan covers the region of text an element was parsed from.
// Start addresses the opening '<'; End addresses the final structural
// token of the element ('/' of a self-close, '>' of a closing tag).
type SourceSpan struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Contains reports whether pos falls inside the span, bounds inclusive.
func (s SourceSpan) Contains(pos Position) bool {
	if pos.Line < s.Start.Line || pos.Line > s.End.Line {
		return false
	}
	if pos.Line == s.Start.Line && pos.Column < s.Start.Column {
		return false
	}
	if pos.Line == s.End.Line && pos.Column > s.End.Column {
		return false
	}
	return true
}

// ContainsSpan reports whether other lies entirely within s.
func (s SourceSpan) ContainsSpan(other SourceSpan) bool {
	return s.Contains(other.Start) && s.Contains(other.End)
}

// Attribute is a single name="value" pair. Order of declaration is
// preserved by the element's attribute slice.
type Attribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Element is a node in the parsed markup tree.
type Element struct {
	TagName         string
	NamespacePrefix string
	FullName        string
	Attributes      []Attribute
	Children        []*Element
	Parent          *Element
	Span            SourceSpan
	TextContent     string
	SelfClosing     bool
	// Recovered marks an element whose span may violate parent
	// containment because it was rebuilt during error recovery.
	Recovered bool
}

// Attr returns the value of the named attribute. Names are case-sensitive.
func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.Attributes {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// AttrDefault returns the named attribute value or def when absent.
func (e *Element) AttrDefault(name, def string) string {
	if v, ok := e.Attr(name); ok {
		return v
	}
	return def
}

func (e *Element) setAttr(name, value string) {
	for i, a := range e.Attributes {
		if a.Name == name {
			e.Attributes[i].Value = value
			return
		}
	}
	e.Attributes = append(e.Attributes, Attribute{Name: name, Value: value})
}

// Walk visits e and every descendant in document order. Returning false
// from fn stops descent into that element's children.
func (e *Element) Walk(fn func(*Element) bool) {
	if e == nil {
		return
	}
	if !fn(e) {
		return
	}
	for _, child := range e.Children {
		child.Walk(fn)
	}
}

// ParseError is a recoverable parse diagnostic. The tree built up to the
// point of the error is still returned.
type ParseError struct {
	Message string `json:"message"`
	Line    int    `json:"line"`
	Column  int    `json:"column"`
}

// ParseResult is the outcome of a parse. Errors is non-fatal: Root may be
// a partial tree alongside a non-empty error list.
type ParseResult struct {
	Root       *Element
	Errors     []ParseError
	Namespaces map[string]string
}
