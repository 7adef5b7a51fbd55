// Package correlate ties a renderer's flat element mappings back to the
// statically parsed tree, so a click in the rendered preview can land
// on a source position (and vice versa).
package correlate

import (
	"uipreview/internal/markup/parser"
	"uipreview/internal/render"
	"uipreview/internal/render/structural"
)

// Record is one correlated output row. ParentID is set only when the
// mapping had no source element of its own and the position was
// inherited from an ancestor, so consumers can tell exact locations
// from attributed ones.
type Record struct {
	ID           int    `json:"id"`
	Type         string `json:"type"`
	Name         string `json:"name,omitempty"`
	SourceLine   int    `json:"sourceLine"`
	SourceColumn int    `json:"sourceColumn"`
	ParentID     int    `json:"parentId,omitempty"`
}

type stackEntry struct {
	mappingID int
	el        *parser.Element
}

// Correlate matches each mapping, in renderer traversal order, against
// the parsed tree. Matching order per mapping: declared name plus type,
// then type alone in document order, then implicit-element attribution
// to the nearest content-bearing ancestor on the match stack.
func Correlate(root *parser.Element, mappings []render.ElementMapping) []Record {
	elements := documentOrder(root)
	consumed := make([]bool, len(elements))

	var stack []stackEntry
	var last stackEntry
	var matched bool
	records := make([]Record, 0, len(mappings))

	for _, m := range mappings {
		idx := matchByName(elements, consumed, m)
		if idx < 0 {
			idx = matchByType(elements, consumed, m)
		}
		if idx >= 0 {
			el := elements[idx]
			consumed[idx] = true
			records = append(records, Record{
				ID:           m.ID,
				Type:         m.Type,
				Name:         m.Name,
				SourceLine:   el.Span.Start.Line,
				SourceColumn: el.Span.Start.Column,
			})

			// Keep only ancestors of the new match on the stack, then
			// push it, so the stack mirrors the current traversal path.
			for len(stack) > 0 && !isAncestor(stack[len(stack)-1].el, el) {
				stack = stack[:len(stack)-1]
			}
			entry := stackEntry{mappingID: m.ID, el: el}
			stack = append(stack, entry)
			last = entry
			matched = true
			continue
		}

		// Implicit element synthesized by the renderer: attribute it to
		// the nearest content-bearing ancestor, else the last match.
		records = append(records, implicitRecord(m, stack, last, matched))
	}
	return records
}

func implicitRecord(m render.ElementMapping, stack []stackEntry, last stackEntry, matched bool) Record {
	rec := Record{ID: m.ID, Type: m.Type, Name: m.Name}
	for i := len(stack) - 1; i >= 0; i-- {
		if structural.IsContentBearing(stack[i].el.TagName) {
			rec.SourceLine = stack[i].el.Span.Start.Line
			rec.SourceColumn = stack[i].el.Span.Start.Column
			rec.ParentID = stack[i].mappingID
			return rec
		}
	}
	if matched {
		rec.SourceLine = last.el.Span.Start.Line
		rec.SourceColumn = last.el.Span.Start.Column
		rec.ParentID = last.mappingID
	}
	return rec
}

func matchByName(elements []*parser.Element, consumed []bool, m render.ElementMapping) int {
	if m.Name == "" {
		return -1
	}
	for i, el := range elements {
		if consumed[i] || el.TagName != m.Type {
			continue
		}
		if declaredName(el) == m.Name {
			return i
		}
	}
	return -1
}

func matchByType(elements []*parser.Element, consumed []bool, m render.ElementMapping) int {
	for i, el := range elements {
		if !consumed[i] && el.TagName == m.Type {
			return i
		}
	}
	return -1
}

func declaredName(el *parser.Element) string {
	if v, ok := el.Attr("x:Name"); ok {
		return v
	}
	return el.AttrDefault("Name", "")
}

func documentOrder(root *parser.Element) []*parser.Element {
	var out []*parser.Element
	if root == nil {
		return out
	}
	root.Walk(func(el *parser.Element) bool {
		out = append(out, el)
		return true
	})
	return out
}

func isAncestor(ancestor, el *parser.Element) bool {
	for p := el.Parent; p != nil; p = p.Parent {
		if p == ancestor {
			return true
		}
	}
	return false
}
