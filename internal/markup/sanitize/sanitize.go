package sanitize

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Warning describes one fidelity-reducing rewrite. Warnings never block
// rendering.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	WarnWindowRoot       = "window-root"
	WarnUnknownNamespace = "unknown-namespace"
	WarnResourceRemoved  = "resource-entry-removed"
	WarnAttachedRemoved  = "attached-property-removed"
)

// maxReplaceIterations bounds the innermost-first replacement loop so
// adversarially nested or cyclic-looking input still terminates.
const maxReplaceIterations = 1000

// Sanitize rewrites constructs no renderer can resolve: a window-only
// root container, elements and attributes under third-party namespace
// prefixes, and their leftover declarations. It operates on raw text so
// it can run before parsing. Output is deterministic and idempotent.
func Sanitize(text string) (string, []Warning) {
	rw := &rewriter{text: text}

	rw.rewriteWindowRoot()
	rw.stripDeniedPropertyElements()

	decls := rw.rootNamespaceDecls()
	prefixes := make([]string, 0, len(decls))
	for prefix, uri := range decls {
		if prefix == "" || KnownNamespace(uri) {
			continue
		}
		prefixes = append(prefixes, prefix)
	}
	if len(prefixes) == 0 {
		return rw.text, rw.warnings
	}
	sort.Strings(prefixes)

	for _, prefix := range prefixes {
		rw.warnf(WarnUnknownNamespace, "namespace prefix %q (%s) cannot be resolved; controls are shown as placeholders", prefix, decls[prefix])
		rw.stripResourceEntries(prefix)
		rw.replaceUnknownElements(prefix)
		rw.stripAttachedProperties(prefix)
		rw.stripNamespaceDecl(prefix)
		rw.stripIgnorableToken(prefix)
	}

	return rw.text, rw.warnings
}

type rewriter struct {
	text     string
	warnings []Warning
}

func (rw *rewriter) warnf(code, format string, args ...interface{}) {
	rw.warnings = append(rw.warnings, Warning{Code: code, Message: fmt.Sprintf(format, args...)})
}

// rewriteWindowRoot turns a top-level Window into an embeddable
// UserControl, dropping window-only chrome properties.
func (rw *rewriter) rewriteWindowRoot() {
	open := rw.rootTagStart()
	if open < 0 {
		return
	}
	name, attrs, end, selfClosing := scanTag(rw.text, open)
	if name != "Window" {
		return
	}

	var b strings.Builder
	b.WriteString("<UserControl")
	for _, a := range parseTagAttrs(attrs) {
		if windowOnlyAttrs[a.name] {
			continue
		}
		b.WriteString(" ")
		b.WriteString(a.name)
		b.WriteString(`="`)
		b.WriteString(a.value)
		b.WriteString(`"`)
	}
	if selfClosing {
		b.WriteString("/>")
	} else {
		b.WriteString(">")
	}

	body := rw.text[end+1:]
	if !selfClosing {
		// Drop window-only property elements, rename the rest.
		for prop := range windowOnlyProps {
			body = removePairedElement(body, "Window."+prop)
		}
		body = strings.ReplaceAll(body, "<Window.", "<UserControl.")
		body = strings.ReplaceAll(body, "</Window.", "</UserControl.")
		body = strings.ReplaceAll(body, "</Window>", "</UserControl>")
	}

	rw.text = rw.text[:open] + b.String() + body
	rw.warnf(WarnWindowRoot, "top-level Window is previewed as a UserControl; window chrome properties are ignored")
}

// stripDeniedPropertyElements removes property elements whose entire
// content is an unresolvable nested type, under any prefix.
func (rw *rewriter) stripDeniedPropertyElements() {
	for _, prop := range deniedPropertyElements {
		// Match bare and prefixed forms, e.g. Interaction.Behaviors and
		// i:Interaction.Behaviors.
		re := regexp.MustCompile(`<([A-Za-z][A-Za-z0-9_]*:)?` + regexp.QuoteMeta(prop) + `[\s>]`)
		for i := 0; i < maxReplaceIterations; i++ {
			loc := re.FindStringIndex(rw.text)
			if loc == nil {
				break
			}
			name, _, end, selfClosing := scanTag(rw.text, loc[0])
			segEnd := end + 1
			if !selfClosing {
				if close := findClosingTag(rw.text, segEnd, name); close >= 0 {
					segEnd = close
				} else {
					segEnd = len(rw.text)
				}
			}
			rw.text = rw.text[:loc[0]] + rw.text[segEnd:]
		}
	}
}

// stripResourceEntries removes unknown-prefixed entries inside any
// *.Resources property element; placeholder substitution would otherwise
// leave unkeyed junk in a resource dictionary.
func (rw *rewriter) stripResourceEntries(prefix string) {
	marker := "<" + prefix + ":"
	searchFrom := 0
	for i := 0; i < maxReplaceIterations; i++ {
		resStart, resBodyStart, resBodyEnd := findResourcesBlock(rw.text, searchFrom)
		if resStart < 0 {
			return
		}
		body := rw.text[resBodyStart:resBodyEnd]
		newBody, removed := removePrefixedElements(body, prefix)
		for _, key := range removed {
			rw.warnf(WarnResourceRemoved, "resource %q uses unresolvable prefix %q and was removed", key, prefix)
		}
		rw.text = rw.text[:resBodyStart] + newBody + rw.text[resBodyEnd:]
		searchFrom = resBodyStart + len(newBody)
		if !strings.Contains(rw.text[searchFrom:], marker) && !strings.Contains(rw.text[searchFrom:], ".Resources") {
			return
		}
	}
}

// replaceUnknownElements substitutes a placeholder container for every
// element under the given prefix, innermost-first so paired forms nested
// under the same prefix resolve level by level.
func (rw *rewriter) replaceUnknownElements(prefix string) {
	marker := "<" + prefix + ":"
	for i := 0; i < maxReplaceIterations; i++ {
		idx := strings.LastIndex(rw.text, marker)
		if idx < 0 {
			return
		}
		name, attrs, end, selfClosing := scanTag(rw.text, idx)
		segEnd := end + 1
		if !selfClosing {
			// This is the last same-prefix open tag, so the first close
			// after it is its own.
			if close := findClosingTag(rw.text, segEnd, name); close >= 0 {
				segEnd = close
			}
		}
		rw.text = rw.text[:idx] + buildPlaceholder(name, attrs) + rw.text[segEnd:]
	}
}

// buildPlaceholder emits a generic bordered container labelled with the
// original qualified name, carrying only layout/identity/accessibility
// attributes.
func buildPlaceholder(qualifiedName, attrs string) string {
	var b strings.Builder
	b.WriteString(`<Border BorderBrush="#FF999999" BorderThickness="1" Background="#11808080" Tag="`)
	b.WriteString(qualifiedName)
	b.WriteString(`"`)
	for _, a := range parseTagAttrs(attrs) {
		if !keepOnPlaceholder(a.name) {
			continue
		}
		b.WriteString(" ")
		b.WriteString(a.name)
		b.WriteString(`="`)
		b.WriteString(a.value)
		b.WriteString(`"`)
	}
	b.WriteString(`><TextBlock Text="`)
	b.WriteString(qualifiedName)
	b.WriteString(`" Margin="4" Opacity="0.6"/></Border>`)
	return b.String()
}

// stripAttachedProperties drops prefix:Type.Property="..." attributes.
func (rw *rewriter) stripAttachedProperties(prefix string) {
	re := regexp.MustCompile(`\s+` + regexp.QuoteMeta(prefix) + `:([A-Za-z0-9_]+\.[A-Za-z0-9_]+)\s*=\s*("[^"]*"|'[^']*')`)
	for {
		m := re.FindStringSubmatchIndex(rw.text)
		if m == nil {
			return
		}
		attr := rw.text[m[2]:m[3]]
		rw.warnf(WarnAttachedRemoved, "attached property %s:%s was removed", prefix, attr)
		rw.text = rw.text[:m[0]] + rw.text[m[1]:]
	}
}

func (rw *rewriter) stripNamespaceDecl(prefix string) {
	re := regexp.MustCompile(`\s+xmlns:` + regexp.QuoteMeta(prefix) + `\s*=\s*("[^"]*"|'[^']*')`)
	rw.text = re.ReplaceAllString(rw.text, "")
}

// stripIgnorableToken removes the prefix from mc:Ignorable-style lists.
func (rw *rewriter) stripIgnorableToken(prefix string) {
	re := regexp.MustCompile(`([A-Za-z0-9_]+:Ignorable\s*=\s*")([^"]*)(")`)
	rw.text = re.ReplaceAllStringFunc(rw.text, func(m string) string {
		sub := re.FindStringSubmatch(m)
		kept := make([]string, 0, 4)
		for _, tok := range strings.Fields(sub[2]) {
			if tok != prefix {
				kept = append(kept, tok)
			}
		}
		return sub[1] + strings.Join(kept, " ") + sub[3]
	})
}

// rootNamespaceDecls extracts xmlns declarations from the root open tag.
func (rw *rewriter) rootNamespaceDecls() map[string]string {
	decls := map[string]string{}
	open := rw.rootTagStart()
	if open < 0 {
		return decls
	}
	_, attrs, _, _ := scanTag(rw.text, open)
	for _, a := range parseTagAttrs(attrs) {
		if a.name == "xmlns" {
			decls[""] = a.value
		} else if strings.HasPrefix(a.name, "xmlns:") {
			decls[a.name[len("xmlns:"):]] = a.value
		}
	}
	return decls
}

// rootTagStart finds the first element open tag, skipping any prolog and
// leading comments.
func (rw *rewriter) rootTagStart() int {
	i := 0
	for i < len(rw.text) {
		lt := strings.IndexByte(rw.text[i:], '<')
		if lt < 0 {
			return -1
		}
		pos := i + lt
		switch {
		case strings.HasPrefix(rw.text[pos:], "<?"):
			end := strings.Index(rw.text[pos:], "?>")
			if end < 0 {
				return -1
			}
			i = pos + end + 2
		case strings.HasPrefix(rw.text[pos:], "<!--"):
			end := strings.Index(rw.text[pos:], "-->")
			if end < 0 {
				return -1
			}
			i = pos + end + 3
		default:
			return pos
		}
	}
	return -1
}

// scanTag reads the tag starting at '<'. It returns the qualified name,
// the raw attribute segment, the index of the terminating '>' and
// whether the tag is self-closing. The scan is quote-aware so '>' inside
// attribute values does not end the tag.
func scanTag(text string, start int) (name, attrs string, end int, selfClosing bool) {
	i := start + 1
	nameStart := i
	for i < len(text) && isNameByte(text[i]) {
		i++
	}
	name = text[nameStart:i]

	attrStart := i
	var quote byte
	for i < len(text) {
		c := text[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			i++
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '>':
			attrs = text[attrStart:i]
			selfClosing = i > attrStart && text[i-1] == '/'
			if selfClosing {
				attrs = text[attrStart : i-1]
			}
			return name, attrs, i, selfClosing
		}
		i++
	}
	return name, text[attrStart:], len(text) - 1, false
}

// findClosingTag returns the index just past the '>' of the first
// </name> at or after from, or -1.
func findClosingTag(text string, from int, name string) int {
	idx := strings.Index(text[from:], "</"+name)
	if idx < 0 {
		return -1
	}
	pos := from + idx
	gt := strings.IndexByte(text[pos:], '>')
	if gt < 0 {
		return -1
	}
	return pos + gt + 1
}

// removePairedElement deletes the first <name>...</name> block (or
// self-closing form) from text.
func removePairedElement(text, name string) string {
	for _, open := range []string{"<" + name + ">", "<" + name + " "} {
		idx := strings.Index(text, open)
		if idx < 0 {
			continue
		}
		_, _, end, selfClosing := scanTag(text, idx)
		segEnd := end + 1
		if !selfClosing {
			if close := findClosingTag(text, segEnd, name); close >= 0 {
				segEnd = close
			}
		}
		return text[:idx] + text[segEnd:]
	}
	return text
}

// removePrefixedElements deletes every element under the prefix from the
// given fragment, returning the removed resource keys for diagnostics.
func removePrefixedElements(body, prefix string) (string, []string) {
	marker := "<" + prefix + ":"
	removed := make([]string, 0, 2)
	for i := 0; i < maxReplaceIterations; i++ {
		idx := strings.LastIndex(body, marker)
		if idx < 0 {
			break
		}
		name, attrs, end, selfClosing := scanTag(body, idx)
		segEnd := end + 1
		if !selfClosing {
			if close := findClosingTag(body, segEnd, name); close >= 0 {
				segEnd = close
			}
		}
		key := name
		for _, a := range parseTagAttrs(attrs) {
			if a.name == "x:Key" || a.name == "Key" {
				key = a.value
				break
			}
		}
		removed = append(removed, key)
		body = body[:idx] + body[segEnd:]
	}
	// Keys were collected innermost-first; report in document order.
	for l, r := 0, len(removed)-1; l < r; l, r = l+1, r-1 {
		removed[l], removed[r] = removed[r], removed[l]
	}
	return body, removed
}

// findResourcesBlock locates the next *.Resources property element at or
// after from, returning its start and body bounds.
func findResourcesBlock(text string, from int) (start, bodyStart, bodyEnd int) {
	i := from
	for i < len(text) {
		idx := strings.Index(text[i:], ".Resources")
		if idx < 0 {
			return -1, -1, -1
		}
		pos := i + idx
		// Walk back to the opening '<'; skip matches inside values or
		// closing tags.
		lt := strings.LastIndexByte(text[:pos], '<')
		if lt < 0 || strings.ContainsAny(text[lt:pos], ">\"'/") {
			i = pos + len(".Resources")
			continue
		}
		name, _, end, selfClosing := scanTag(text, lt)
		if !strings.HasSuffix(name, ".Resources") {
			i = pos + len(".Resources")
			continue
		}
		if selfClosing {
			i = end + 1
			continue
		}
		close := strings.Index(text[end+1:], "</"+name)
		if close < 0 {
			return -1, -1, -1
		}
		return lt, end + 1, end + 1 + close
	}
	return -1, -1, -1
}

type tagAttr struct {
	name  string
	value string
}

// parseTagAttrs tokenizes the attribute segment of an open tag. Bare
// attributes default to "true", mirroring the parser.
func parseTagAttrs(attrs string) []tagAttr {
	out := make([]tagAttr, 0, 8)
	i := 0
	for i < len(attrs) {
		for i < len(attrs) && isSpaceByte(attrs[i]) {
			i++
		}
		if i >= len(attrs) {
			break
		}
		nameStart := i
		for i < len(attrs) && isNameByte(attrs[i]) {
			i++
		}
		name := attrs[nameStart:i]
		if name == "" {
			i++
			continue
		}
		for i < len(attrs) && isSpaceByte(attrs[i]) {
			i++
		}
		if i >= len(attrs) || attrs[i] != '=' {
			out = append(out, tagAttr{name: name, value: "true"})
			continue
		}
		i++
		for i < len(attrs) && isSpaceByte(attrs[i]) {
			i++
		}
		if i < len(attrs) && (attrs[i] == '"' || attrs[i] == '\'') {
			quote := attrs[i]
			i++
			valStart := i
			for i < len(attrs) && attrs[i] != quote {
				i++
			}
			out = append(out, tagAttr{name: name, value: attrs[valStart:i]})
			if i < len(attrs) {
				i++
			}
		} else {
			valStart := i
			for i < len(attrs) && !isSpaceByte(attrs[i]) {
				i++
			}
			out = append(out, tagAttr{name: name, value: attrs[valStart:i]})
		}
	}
	return out
}

func isNameByte(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == ':' || c == '.' || c == '_' || c == '-':
		return true
	}
	return false
}

func isSpaceByte(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}
