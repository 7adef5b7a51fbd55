package structural

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
)

// mapThickness converts a markup thickness value into CSS shorthand.
// One part is uniform, two parts are (horizontal, vertical) in source
// order and come out as (vertical, horizontal), four parts are
// (left, top, right, bottom) and come out as (top, right, bottom, left).
func mapThickness(v string) string {
	parts := splitThickness(v)
	switch len(parts) {
	case 1:
		return px(parts[0])
	case 2:
		return px(parts[1]) + " " + px(parts[0])
	case 4:
		return fmt.Sprintf("%s %s %s %s", px(parts[1]), px(parts[2]), px(parts[3]), px(parts[0]))
	default:
		return ""
	}
}

// mapCornerRadius converts a corner radius into CSS border-radius.
// Both sides use top-left, top-right, bottom-right, bottom-left order,
// so the parts pass through positionally.
func mapCornerRadius(v string) string {
	parts := splitThickness(v)
	switch len(parts) {
	case 1:
		return px(parts[0])
	case 4:
		return fmt.Sprintf("%s %s %s %s", px(parts[0]), px(parts[1]), px(parts[2]), px(parts[3]))
	default:
		return ""
	}
}

func splitThickness(v string) []string {
	fields := strings.FieldsFunc(v, func(r rune) bool {
		return r == ',' || r == ' '
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

func px(v string) string {
	if _, err := strconv.ParseFloat(v, 64); err != nil {
		return v
	}
	return v + "px"
}

// mapGridLength converts a row or column definition size into a CSS
// grid track: Auto stays auto, star values become fractional units and
// plain numbers become pixels. The default is a single star.
func mapGridLength(v string) string {
	v = strings.TrimSpace(v)
	switch {
	case v == "" || v == "*":
		return "1fr"
	case strings.EqualFold(v, "Auto"):
		return "auto"
	case strings.HasSuffix(v, "*"):
		n := strings.TrimSuffix(v, "*")
		if _, err := strconv.ParseFloat(n, 64); err == nil {
			return n + "fr"
		}
		return "1fr"
	default:
		return px(v)
	}
}

// mapAlignment converts Horizontal/VerticalAlignment values onto the
// flexbox alignment vocabulary.
func mapAlignment(v string) string {
	switch v {
	case "Left", "Top":
		return "flex-start"
	case "Center":
		return "center"
	case "Right", "Bottom":
		return "flex-end"
	case "Stretch":
		return "stretch"
	default:
		return ""
	}
}

// mapBrush converts a brush attribute into a CSS color. Hex colors in
// #AARRGGBB form are reordered into #RRGGBBAA; resource lookups get a
// deterministic pastel derived from the resource name so that distinct
// resources stay visually distinct across renders.
func mapBrush(v string) (css string, resource string) {
	v = strings.TrimSpace(v)
	if name, ok := resourceLookupName(v); ok {
		return resourceColor(name), name
	}
	if strings.HasPrefix(v, "#") {
		hex := v[1:]
		if len(hex) == 8 {
			return "#" + hex[2:] + hex[:2], ""
		}
		return v, ""
	}
	return strings.ToLower(v), ""
}

func resourceLookupName(v string) (string, bool) {
	if !strings.HasPrefix(v, "{") || !strings.HasSuffix(v, "}") {
		return "", false
	}
	body := strings.TrimSpace(v[1 : len(v)-1])
	for _, kw := range []string{"StaticResource", "DynamicResource"} {
		if rest, ok := strings.CutPrefix(body, kw); ok {
			return strings.TrimSpace(rest), true
		}
	}
	return "", false
}

func resourceColor(name string) string {
	h := fnv.New32a()
	h.Write([]byte(name))
	hue := h.Sum32() % 360
	return fmt.Sprintf("hsl(%d, 45%%, 78%%)", hue)
}

// mapVisibility converts a Visibility value into display or visibility CSS.
func mapVisibility(v string) (prop, val string) {
	switch v {
	case "Collapsed":
		return "display", "none"
	case "Hidden":
		return "visibility", "hidden"
	default:
		return "", ""
	}
}

// styleBuilder accumulates CSS declarations in insertion order so the
// emitted markup is deterministic.
type styleBuilder struct {
	buf strings.Builder
}

func (b *styleBuilder) add(prop, val string) {
	if val == "" {
		return
	}
	if b.buf.Len() > 0 {
		b.buf.WriteString("; ")
	}
	b.buf.WriteString(prop)
	b.buf.WriteString(": ")
	b.buf.WriteString(val)
}

func (b *styleBuilder) String() string { return b.buf.String() }

func (b *styleBuilder) empty() bool { return b.buf.Len() == 0 }
