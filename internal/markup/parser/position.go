package parser

// FindElementAtPosition returns the deepest element whose span contains
// the given 1-based position, or nil when the root itself excludes it.
// Used for click-to-source navigation from the rendered preview.
func FindElementAtPosition(root *Element, line, col int) *Element {
	if root == nil {
		return nil
	}
	pos := Position{Line: line, Column: col}
	if !root.Span.Contains(pos) {
		return nil
	}

	best := root
	for {
		var deeper *Element
		for _, child := range best.Children {
			if child.Span.Contains(pos) {
				deeper = child
				break
			}
		}
		if deeper == nil {
			return best
		}
		best = deeper
	}
}
