package structural

import (
	"fmt"
	"strings"

	"uipreview/internal/shared/util"
)

var bindingKeywords = []string{"Binding", "TemplateBinding", "RelativeSource", "x:Bind"}

// isBindingExpression reports whether the attribute value is a markup
// extension that requires a running data context to evaluate.
func isBindingExpression(v string) bool {
	v = strings.TrimSpace(v)
	if !strings.HasPrefix(v, "{") || !strings.HasSuffix(v, "}") {
		return false
	}
	body := strings.TrimSpace(v[1 : len(v)-1])
	for _, kw := range bindingKeywords {
		if body == kw || strings.HasPrefix(body, kw+" ") {
			return true
		}
	}
	return false
}

// bindingPath extracts the binding path for placeholder text: the
// Path= operand when present, otherwise the first unnamed operand,
// otherwise the extension keyword itself.
func bindingPath(v string) string {
	v = strings.TrimSpace(v)
	body := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(v, "{"), "}"))
	kw := body
	if i := strings.IndexByte(body, ' '); i >= 0 {
		kw = body[:i]
		body = strings.TrimSpace(body[i+1:])
	} else {
		body = ""
	}
	for _, operand := range strings.Split(body, ",") {
		operand = strings.TrimSpace(operand)
		if operand == "" {
			continue
		}
		if rest, ok := strings.CutPrefix(operand, "Path="); ok {
			return strings.TrimSpace(rest)
		}
		if !strings.Contains(operand, "=") {
			return operand
		}
	}
	return kw
}

// bindingPlaceholder is the visible stand-in shown where a bound value
// would appear.
func bindingPlaceholder(v string) string {
	path := bindingPath(v)
	if len(path) > 32 {
		path = path[:29] + "..."
	}
	return "{" + path + "}"
}

// bindingLog collects bound properties seen during a render so they can
// be reported as a single consolidated warning instead of one per site.
type bindingLog struct {
	entries map[string]bool
}

func (l *bindingLog) record(tag, property string) {
	if l.entries == nil {
		l.entries = map[string]bool{}
	}
	l.entries[tag+"."+property] = true
}

func (l *bindingLog) warning() string {
	if len(l.entries) == 0 {
		return ""
	}
	keys := util.SortedStringKeys(l.entries)
	return fmt.Sprintf("bound properties rendered as placeholders: %s", strings.Join(keys, ", "))
}
