// Package structural renders a parsed markup tree into plain HTML that
// approximates the layout of the source document. It never rasterizes
// anything and is the always-available fallback when no native renderer
// can be reached.
package structural

import (
	"context"
	"fmt"
	"html"
	"path"
	"strconv"
	"strings"
	"time"

	"uipreview/internal/core/errors"
	"uipreview/internal/markup/parser"
	"uipreview/internal/markup/sanitize"
	"uipreview/internal/render"
	"uipreview/internal/shared/observability"
)

type Renderer struct{}

func New() *Renderer { return &Renderer{} }

func (*Renderer) Type() render.RendererType { return render.RendererStructural }

func (*Renderer) DisplayName() string { return "Structural approximation" }

// Available always reports true. This renderer has no external process
// to reach and serves as the floor the preview can always fall back to.
func (*Renderer) Available() bool { return true }

func (r *Renderer) Render(ctx context.Context, text string, opts render.Options) (*render.Result, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeRenderFailed, "structural render canceled")
	}

	pr := parser.Parse(text)
	observability.ParseErrorsTotal.Add(float64(len(pr.Errors)))
	if pr.Root == nil {
		msg := "document has no root element"
		fail := &render.Failure{Code: errors.CodeParseError, Message: msg}
		if len(pr.Errors) > 0 {
			fail.Message = pr.Errors[0].Message
			fail.Line = pr.Errors[0].Line
			fail.Column = pr.Errors[0].Column
		}
		return &render.Result{Failure: fail, ElapsedMs: time.Since(start).Milliseconds()}, nil
	}

	w := &walker{}
	body := w.renderElement(pr.Root, 0)

	var warnings []sanitize.Warning
	for _, pe := range pr.Errors {
		warnings = append(warnings, sanitize.Warning{
			Code:    "parse-recovered",
			Message: fmt.Sprintf("%s (line %d, column %d)", pe.Message, pe.Line, pe.Column),
		})
	}
	if msg := w.bindings.warning(); msg != "" {
		warnings = append(warnings, sanitize.Warning{Code: "binding-placeholder", Message: msg})
	}

	return &render.Result{
		Kind:      render.KindMarkup,
		Payload:   wrapDocument(body, opts),
		Mappings:  w.mappings,
		Warnings:  warnings,
		ElapsedMs: time.Since(start).Milliseconds(),
	}, nil
}

// walker carries per-render state: the monotonic mapping ids and the
// bound-property log.
type walker struct {
	nextID   int
	mappings []render.ElementMapping
	bindings bindingLog
}

func (w *walker) newMapping(el *parser.Element, parentID int) int {
	w.nextID++
	name, ok := el.Attr("x:Name")
	if !ok {
		name, _ = el.Attr("Name")
	}
	w.mappings = append(w.mappings, render.ElementMapping{
		ID:           w.nextID,
		Name:         name,
		Type:         el.TagName,
		SourceLine:   el.Span.Start.Line,
		SourceColumn: el.Span.Start.Column,
		ParentID:     parentID,
	})
	return w.nextID
}

func (w *walker) renderElement(el *parser.Element, parentID int) string {
	if _, _, isProp := propertyElement(el); isProp {
		// Property elements are unwrapped by the owner; one reaching
		// this point has no owner context and renders nothing.
		return ""
	}

	id := w.newMapping(el, parentID)
	kind := KindOf(el.TagName)
	if el.NamespacePrefix != "" {
		kind = KindUnknown
	}

	switch kind {
	case KindGrid:
		return w.renderGrid(el, id)
	case KindUniformGrid:
		sb := w.commonStyle(el)
		sb.add("display", "grid")
		cols := el.AttrDefault("Columns", "2")
		sb.add("grid-template-columns", "repeat("+cols+", 1fr)")
		return w.emit("div", "uniform-grid", el, id, sb, w.renderChildren(el, id))
	case KindStackPanel, KindVirtualizingStackPanel:
		sb := w.commonStyle(el)
		sb.add("display", "flex")
		class := "flex-column"
		if el.AttrDefault("Orientation", "Vertical") == "Horizontal" {
			class = "flex-row"
			sb.add("flex-direction", "row")
		} else {
			sb.add("flex-direction", "column")
		}
		return w.emit("div", class, el, id, sb, w.renderChildren(el, id))
	case KindWrapPanel:
		sb := w.commonStyle(el)
		sb.add("display", "flex")
		sb.add("flex-wrap", "wrap")
		if el.AttrDefault("Orientation", "Horizontal") == "Vertical" {
			sb.add("flex-direction", "column")
		}
		return w.emit("div", "wrap-panel", el, id, sb, w.renderChildren(el, id))
	case KindDockPanel:
		sb := w.commonStyle(el)
		sb.add("display", "flex")
		sb.add("flex-direction", "column")
		return w.emit("div", "dock-panel", el, id, sb, w.renderChildren(el, id))
	case KindCanvas:
		sb := w.commonStyle(el)
		sb.add("position", "relative")
		return w.emit("div", "canvas", el, id, sb, w.renderChildren(el, id))
	case KindBorder:
		sb := w.commonStyle(el)
		if _, ok := el.Attr("BorderThickness"); !ok {
			sb.add("border", "1px solid transparent")
		}
		return w.emit("div", "border", el, id, sb, w.renderChildren(el, id))
	case KindViewbox, KindContentControl, KindUserControl, KindPage, KindFrame:
		return w.emit("div", "content-host", el, id, w.commonStyle(el), w.contentOrChildren(el, id))
	case KindScrollViewer:
		sb := w.commonStyle(el)
		sb.add("overflow", "auto")
		return w.emit("div", "scroll-viewer", el, id, sb, w.contentOrChildren(el, id))
	case KindGroupBox:
		legend := "<legend>" + w.headerText(el) + "</legend>"
		return w.emit("fieldset", "group-box", el, id, w.commonStyle(el), legend+w.contentOrChildren(el, id))
	case KindExpander:
		summary := "<summary>" + w.headerText(el) + "</summary>"
		return w.emit("details", "expander", el, id, w.commonStyle(el), summary+w.contentOrChildren(el, id))
	case KindTextBlock:
		inner := w.textOrChildren(el, id, "Text")
		return w.emit("span", "text-block", el, id, w.commonStyle(el), inner)
	case KindLabel:
		return w.emit("span", "label", el, id, w.commonStyle(el), w.contentOrChildren(el, id))
	case KindRun:
		return w.emit("span", "run", el, id, w.commonStyle(el), w.textOrChildren(el, id, "Text"))
	case KindHyperlink:
		return w.emit("a", "hyperlink", el, id, w.commonStyle(el), w.contentOrChildren(el, id))
	case KindButton, KindRepeatButton, KindToggleButton:
		sb := w.commonStyle(el)
		return w.emit("button", "button", el, id, sb, w.contentOrChildren(el, id))
	case KindCheckBox:
		return w.renderToggle(el, id, "checkbox")
	case KindRadioButton:
		return w.renderToggle(el, id, "radio")
	case KindTextBox:
		return w.renderTextInput(el, id)
	case KindPasswordBox:
		return w.renderInput(el, id, "password", "")
	case KindRichTextBox:
		return w.emit("div", "rich-text-box", el, id, w.commonStyle(el), w.renderChildren(el, id))
	case KindComboBox:
		return w.renderComboBox(el, id)
	case KindComboBoxItem:
		return w.emit("option", "combo-item", el, id, &styleBuilder{}, w.contentOrChildren(el, id))
	case KindSlider:
		return w.renderSlider(el, id)
	case KindDatePicker:
		return w.renderInput(el, id, "date", "")
	case KindCalendar:
		return w.emit("div", "calendar", el, id, w.commonStyle(el), "Calendar")
	case KindItemsControl, KindListBox, KindListView, KindTreeView:
		return w.emit("ul", "items-"+strings.ToLower(el.TagName), el, id, w.commonStyle(el), w.renderChildren(el, id))
	case KindListBoxItem, KindListViewItem, KindTreeViewItem:
		return w.emit("li", "item", el, id, w.commonStyle(el), w.contentOrChildren(el, id))
	case KindDataGrid:
		return w.renderDataGrid(el, id)
	case KindTabControl:
		return w.emit("div", "tab-control", el, id, w.commonStyle(el), w.renderChildren(el, id))
	case KindTabItem:
		header := `<div class="tab-header">` + w.headerText(el) + "</div>"
		return w.emit("div", "tab-item", el, id, w.commonStyle(el), header+w.contentOrChildren(el, id))
	case KindMenu, KindToolBar, KindStatusBar:
		sb := w.commonStyle(el)
		sb.add("display", "flex")
		sb.add("flex-direction", "row")
		return w.emit("div", "bar", el, id, sb, w.renderChildren(el, id))
	case KindMenuItem:
		return w.emit("span", "menu-item", el, id, w.commonStyle(el), w.headerText(el)+w.renderChildren(el, id))
	case KindSeparator:
		return w.emit("hr", "separator", el, id, w.commonStyle(el), "")
	case KindImage:
		src := el.AttrDefault("Source", "Image")
		return w.emit("div", "image-placeholder", el, id, w.commonStyle(el), html.EscapeString(path.Base(src)))
	case KindProgressBar:
		return w.renderProgressBar(el, id)
	case KindRectangle:
		sb := w.commonStyle(el)
		if fill, _ := w.brushAttr(el, "Fill"); fill != "" {
			sb.add("background", fill)
		}
		return w.emit("div", "shape", el, id, sb, "")
	case KindEllipse:
		sb := w.commonStyle(el)
		sb.add("border-radius", "50%")
		if fill, _ := w.brushAttr(el, "Fill"); fill != "" {
			sb.add("background", fill)
		}
		return w.emit("div", "shape", el, id, sb, "")
	default:
		return w.renderUnknown(el, id)
	}
}

func (w *walker) renderGrid(el *parser.Element, id int) string {
	sb := w.commonStyle(el)
	sb.add("display", "grid")
	if tracks := gridTracks(el, "RowDefinitions", "RowDefinition", "Height"); tracks != "" {
		sb.add("grid-template-rows", tracks)
	}
	if tracks := gridTracks(el, "ColumnDefinitions", "ColumnDefinition", "Width"); tracks != "" {
		sb.add("grid-template-columns", tracks)
	}
	return w.emit("div", "grid", el, id, sb, w.renderChildren(el, id))
}

func gridTracks(el *parser.Element, prop, defTag, sizeAttr string) string {
	for _, c := range el.Children {
		owner, p, ok := propertyElement(c)
		if !ok || p != prop || owner != el.TagName {
			continue
		}
		var tracks []string
		for _, d := range c.Children {
			if d.TagName != defTag {
				continue
			}
			tracks = append(tracks, mapGridLength(d.AttrDefault(sizeAttr, "*")))
		}
		return strings.Join(tracks, " ")
	}
	return ""
}

func (w *walker) renderToggle(el *parser.Element, id int, inputType string) string {
	var extra strings.Builder
	if el.AttrDefault("IsChecked", "False") == "True" {
		extra.WriteString(" checked")
	}
	if el.AttrDefault("IsEnabled", "True") == "False" {
		extra.WriteString(" disabled")
	}
	inner := fmt.Sprintf(`<input type=%q%s>`, inputType, extra.String()) + w.contentOrChildren(el, id)
	return w.emit("label", "toggle", el, id, w.commonStyle(el), inner)
}

func (w *walker) renderTextInput(el *parser.Element, id int) string {
	if el.AttrDefault("AcceptsReturn", "False") == "True" {
		text, _ := w.textValue(el, "Text")
		return w.emit("textarea", "text-box", el, id, w.commonStyle(el), html.EscapeString(text))
	}
	text, _ := w.textValue(el, "Text")
	return w.renderInput(el, id, "text", text)
}

func (w *walker) renderInput(el *parser.Element, id int, inputType, value string) string {
	sb := w.commonStyle(el)
	attrs := fmt.Sprintf(` type=%q`, inputType)
	if value != "" {
		attrs += fmt.Sprintf(` value=%q`, html.EscapeString(value))
	}
	if el.AttrDefault("IsEnabled", "True") == "False" {
		attrs += " disabled"
	}
	return w.emitRaw("input", "input", id, sb, attrs, "", true)
}

func (w *walker) renderComboBox(el *parser.Element, id int) string {
	inner := w.renderChildren(el, id)
	if inner == "" {
		if text, ok := w.textValue(el, "Text"); ok && text != "" {
			inner = "<option>" + html.EscapeString(text) + "</option>"
		}
	}
	return w.emit("select", "combo-box", el, id, w.commonStyle(el), inner)
}

func (w *walker) renderSlider(el *parser.Element, id int) string {
	attrs := ` type="range"`
	for attr, name := range map[string]string{"Minimum": "min", "Maximum": "max", "Value": "value"} {
		if v, ok := w.attrValue(el, attr); ok {
			attrs += fmt.Sprintf(` %s=%q`, name, v)
		}
	}
	return w.emitRaw("input", "slider", id, w.commonStyle(el), attrs, "", true)
}

func (w *walker) renderProgressBar(el *parser.Element, id int) string {
	var attrs string
	if el.AttrDefault("IsIndeterminate", "False") != "True" {
		if v, ok := w.attrValue(el, "Value"); ok {
			attrs += fmt.Sprintf(` value=%q`, v)
		}
		attrs += fmt.Sprintf(` max=%q`, el.AttrDefault("Maximum", "100"))
	}
	return w.emitRaw("progress", "progress", id, w.commonStyle(el), attrs, "", false)
}

func (w *walker) renderDataGrid(el *parser.Element, id int) string {
	var headers []string
	for _, c := range el.Children {
		if _, prop, ok := propertyElement(c); !ok || prop != "Columns" {
			continue
		}
		for _, col := range c.Children {
			headers = append(headers, "<th>"+html.EscapeString(col.AttrDefault("Header", ""))+"</th>")
		}
	}
	var inner strings.Builder
	if len(headers) > 0 {
		inner.WriteString("<tr>" + strings.Join(headers, "") + "</tr>")
	}
	inner.WriteString(w.renderChildren(el, id))
	return w.emit("table", "data-grid", el, id, w.commonStyle(el), inner.String())
}

func (w *walker) renderUnknown(el *parser.Element, id int) string {
	sb := w.commonStyle(el)
	label := `<span class="unknown-name">` + html.EscapeString(el.FullName) + "</span>"
	return w.emit("div", "unknown", el, id, sb, label+w.renderChildren(el, id))
}

// renderChildren unwraps property elements and renders the remaining
// visual children under the given mapping id.
func (w *walker) renderChildren(el *parser.Element, id int) string {
	var buf strings.Builder
	for _, c := range resolveChildren(el) {
		buf.WriteString(w.renderElement(c, id))
	}
	return buf.String()
}

// contentOrChildren picks the content to show inside a content control:
// the Content attribute first, then inline text, then element children.
func (w *walker) contentOrChildren(el *parser.Element, id int) string {
	if v, ok := w.textValue(el, "Content"); ok {
		return html.EscapeString(v)
	}
	if inner := w.renderChildren(el, id); inner != "" {
		return inner
	}
	return html.EscapeString(el.TextContent)
}

func (w *walker) textOrChildren(el *parser.Element, id int, attr string) string {
	if v, ok := w.textValue(el, attr); ok {
		return html.EscapeString(v)
	}
	if el.TextContent != "" {
		return html.EscapeString(el.TextContent)
	}
	return w.renderChildren(el, id)
}

func (w *walker) headerText(el *parser.Element) string {
	v, ok := w.textValue(el, "Header")
	if !ok {
		return ""
	}
	return html.EscapeString(v)
}

// attrValue fetches an attribute, recording and suppressing binding
// expressions since no data context exists to evaluate them.
func (w *walker) attrValue(el *parser.Element, name string) (string, bool) {
	v, ok := el.Attr(name)
	if !ok {
		return "", false
	}
	if isBindingExpression(v) {
		w.bindings.record(el.TagName, name)
		return "", false
	}
	return v, true
}

// textValue is like attrValue but substitutes a visible placeholder for
// bound values instead of dropping them.
func (w *walker) textValue(el *parser.Element, name string) (string, bool) {
	v, ok := el.Attr(name)
	if !ok {
		return "", false
	}
	if isBindingExpression(v) {
		w.bindings.record(el.TagName, name)
		return bindingPlaceholder(v), true
	}
	return v, true
}

func (w *walker) brushAttr(el *parser.Element, name string) (css, resource string) {
	v, ok := w.attrValue(el, name)
	if !ok || v == "" {
		return "", ""
	}
	return mapBrush(v)
}

// commonStyle maps the layout and appearance attributes every control
// shares onto CSS declarations.
func (w *walker) commonStyle(el *parser.Element) *styleBuilder {
	sb := &styleBuilder{}
	for _, m := range [...]struct{ attr, prop string }{
		{"Width", "width"}, {"Height", "height"},
		{"MinWidth", "min-width"}, {"MinHeight", "min-height"},
		{"MaxWidth", "max-width"}, {"MaxHeight", "max-height"},
	} {
		if v, ok := w.attrValue(el, m.attr); ok && !strings.EqualFold(v, "Auto") && !strings.HasSuffix(v, "*") {
			sb.add(m.prop, px(v))
		}
	}
	if v, ok := w.attrValue(el, "Margin"); ok {
		sb.add("margin", mapThickness(v))
	}
	if v, ok := w.attrValue(el, "Padding"); ok {
		sb.add("padding", mapThickness(v))
	}
	if v, ok := w.attrValue(el, "CornerRadius"); ok {
		sb.add("border-radius", mapCornerRadius(v))
	}
	if v, ok := w.attrValue(el, "Opacity"); ok {
		sb.add("opacity", v)
	}
	if v, ok := w.attrValue(el, "Visibility"); ok {
		if prop, val := mapVisibility(v); prop != "" {
			sb.add(prop, val)
		}
	}
	if css, _ := w.brushAttr(el, "Background"); css != "" {
		sb.add("background", css)
	}
	if css, _ := w.brushAttr(el, "Foreground"); css != "" {
		sb.add("color", css)
	}
	if _, ok := el.Attr("BorderThickness"); ok {
		v, _ := w.attrValue(el, "BorderThickness")
		if v != "" {
			sb.add("border-style", "solid")
			sb.add("border-width", mapThickness(v))
			if css, _ := w.brushAttr(el, "BorderBrush"); css != "" {
				sb.add("border-color", css)
			}
		}
	}
	if v, ok := w.attrValue(el, "FontSize"); ok {
		sb.add("font-size", px(v))
	}
	if v, ok := w.attrValue(el, "FontWeight"); ok {
		sb.add("font-weight", strings.ToLower(v))
	}
	if v, ok := w.attrValue(el, "FontStyle"); ok {
		sb.add("font-style", strings.ToLower(v))
	}
	if v, ok := w.attrValue(el, "FontFamily"); ok {
		sb.add("font-family", v)
	}
	if v, ok := w.attrValue(el, "TextAlignment"); ok {
		sb.add("text-align", strings.ToLower(v))
	}
	if v, ok := w.attrValue(el, "HorizontalAlignment"); ok {
		sb.add("justify-self", mapAlignment(v))
	}
	if v, ok := w.attrValue(el, "VerticalAlignment"); ok {
		sb.add("align-self", mapAlignment(v))
	}

	// Attached layout properties. Grid coordinates are zero-based in
	// markup and one-based in CSS grid lines.
	if v, ok := w.attrValue(el, "Grid.Row"); ok {
		sb.add("grid-row-start", gridLine(v))
	}
	if v, ok := w.attrValue(el, "Grid.Column"); ok {
		sb.add("grid-column-start", gridLine(v))
	}
	if v, ok := w.attrValue(el, "Grid.RowSpan"); ok {
		sb.add("grid-row-end", "span "+v)
	}
	if v, ok := w.attrValue(el, "Grid.ColumnSpan"); ok {
		sb.add("grid-column-end", "span "+v)
	}
	left, hasLeft := w.attrValue(el, "Canvas.Left")
	top, hasTop := w.attrValue(el, "Canvas.Top")
	if hasLeft || hasTop {
		sb.add("position", "absolute")
		if hasLeft {
			sb.add("left", px(left))
		}
		if hasTop {
			sb.add("top", px(top))
		}
	}
	return sb
}

func gridLine(v string) string {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return ""
	}
	return strconv.Itoa(n + 1)
}

func (w *walker) emit(tag, class string, el *parser.Element, id int, style *styleBuilder, inner string) string {
	return w.emitRaw(tag, class, id, style, "", inner, tag == "hr")
}

func (w *walker) emitRaw(tag, class string, id int, style *styleBuilder, extraAttrs, inner string, void bool) string {
	var buf strings.Builder
	buf.WriteString("<")
	buf.WriteString(tag)
	fmt.Fprintf(&buf, ` class=%q data-id="%d"`, class, id)
	if !style.empty() {
		fmt.Fprintf(&buf, ` style=%q`, style.String())
	}
	buf.WriteString(extraAttrs)
	buf.WriteString(">")
	if void {
		return buf.String()
	}
	buf.WriteString(inner)
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">")
	return buf.String()
}

// resolveChildren flattens property elements into the visual child list:
// content-bearing properties splice their children in place, recognized
// definition properties are dropped, anything else splices as a fallback
// so content authored through uncommon wrappers still shows up.
func resolveChildren(el *parser.Element) []*parser.Element {
	var out []*parser.Element
	for _, c := range el.Children {
		_, prop, isProp := propertyElement(c)
		if !isProp {
			out = append(out, c)
			continue
		}
		switch {
		case contentProperties[prop]:
			out = append(out, resolveChildren(c)...)
		case definitionProperties[prop]:
			// structural definitions, nothing visual to show
		default:
			out = append(out, resolveChildren(c)...)
		}
	}
	return out
}

func propertyElement(el *parser.Element) (owner, prop string, ok bool) {
	i := strings.IndexByte(el.TagName, '.')
	if i <= 0 || i == len(el.TagName)-1 {
		return "", "", false
	}
	return el.TagName[:i], el.TagName[i+1:], true
}

// wrapDocument wraps the rendered fragment in a minimal standalone page
// so the payload can be shown directly in a webview.
func wrapDocument(body string, opts render.Options) string {
	theme := "theme-light"
	if opts.Theme == render.ThemeDark {
		theme = "theme-dark"
	}
	rootStyle := ""
	var dims []string
	if opts.Width > 0 {
		dims = append(dims, fmt.Sprintf("width: %dpx", opts.Width))
	}
	if opts.Height > 0 {
		dims = append(dims, fmt.Sprintf("height: %dpx", opts.Height))
	}
	if len(dims) > 0 {
		rootStyle = fmt.Sprintf(` style=%q`, strings.Join(dims, "; "))
	}
	var buf strings.Builder
	buf.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<style>\n")
	buf.WriteString(baseCSS)
	buf.WriteString("</style>\n</head>\n")
	fmt.Fprintf(&buf, "<body class=%q>\n", theme)
	fmt.Fprintf(&buf, `<div class="preview-root"%s>`, rootStyle)
	buf.WriteString(body)
	buf.WriteString("</div>\n</body>\n</html>\n")
	return buf.String()
}

const baseCSS = `body { margin: 0; font-family: "Segoe UI", system-ui, sans-serif; font-size: 13px; }
body.theme-light { background: #ffffff; color: #1e1e1e; }
body.theme-dark { background: #1e1e1e; color: #e0e0e0; }
.preview-root { padding: 8px; box-sizing: border-box; }
.preview-root * { box-sizing: border-box; }
.grid, .uniform-grid { gap: 2px; }
.flex-row, .flex-column, .wrap-panel, .dock-panel, .bar { gap: 2px; }
.border { min-height: 4px; }
.image-placeholder { border: 1px dashed #999999; padding: 8px; text-align: center; opacity: 0.7; }
.calendar { border: 1px solid #999999; padding: 12px; text-align: center; }
.unknown { border: 1px dashed #cc8800; padding: 4px; }
.unknown-name { font-size: 11px; opacity: 0.6; display: block; }
ul[class^="items-"] { list-style: none; margin: 0; padding: 2px; border: 1px solid #99999955; }
.tab-header { font-weight: 600; border-bottom: 2px solid #3377cc; display: inline-block; padding: 2px 8px; }
.data-grid { border-collapse: collapse; }
.data-grid th { border: 1px solid #99999955; padding: 2px 8px; text-align: left; }
`
