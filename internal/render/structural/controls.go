package structural

// ControlKind is the closed set of control types the structural renderer
// understands. Anything else renders as KindUnknown: a generic bordered
// placeholder showing the qualified name.
type ControlKind int

const (
	KindUnknown ControlKind = iota

	// Layout containers.
	KindGrid
	KindUniformGrid
	KindStackPanel
	KindVirtualizingStackPanel
	KindDockPanel
	KindWrapPanel
	KindCanvas
	KindBorder
	KindViewbox
	KindScrollViewer
	KindGroupBox
	KindExpander
	KindUserControl
	KindPage
	KindContentControl

	// Text.
	KindTextBlock
	KindLabel
	KindRun
	KindHyperlink

	// Input controls.
	KindButton
	KindRepeatButton
	KindToggleButton
	KindCheckBox
	KindRadioButton
	KindTextBox
	KindPasswordBox
	KindRichTextBox
	KindComboBox
	KindComboBoxItem
	KindSlider
	KindDatePicker
	KindCalendar

	// Items controls.
	KindItemsControl
	KindListBox
	KindListBoxItem
	KindListView
	KindListViewItem
	KindTreeView
	KindTreeViewItem
	KindDataGrid
	KindTabControl
	KindTabItem
	KindMenu
	KindMenuItem
	KindToolBar
	KindStatusBar

	// Misc visuals.
	KindImage
	KindProgressBar
	KindSeparator
	KindRectangle
	KindEllipse
	KindFrame
)

var controlKinds = map[string]ControlKind{
	"Grid":                    KindGrid,
	"UniformGrid":             KindUniformGrid,
	"StackPanel":              KindStackPanel,
	"VirtualizingStackPanel":  KindVirtualizingStackPanel,
	"DockPanel":               KindDockPanel,
	"WrapPanel":               KindWrapPanel,
	"Canvas":                  KindCanvas,
	"Border":                  KindBorder,
	"Viewbox":                 KindViewbox,
	"ScrollViewer":            KindScrollViewer,
	"GroupBox":                KindGroupBox,
	"Expander":                KindExpander,
	"UserControl":             KindUserControl,
	"Page":                    KindPage,
	"ContentControl":          KindContentControl,
	"TextBlock":               KindTextBlock,
	"Label":                   KindLabel,
	"Run":                     KindRun,
	"Hyperlink":               KindHyperlink,
	"Button":                  KindButton,
	"RepeatButton":            KindRepeatButton,
	"ToggleButton":            KindToggleButton,
	"CheckBox":                KindCheckBox,
	"RadioButton":             KindRadioButton,
	"TextBox":                 KindTextBox,
	"PasswordBox":             KindPasswordBox,
	"RichTextBox":             KindRichTextBox,
	"ComboBox":                KindComboBox,
	"ComboBoxItem":            KindComboBoxItem,
	"Slider":                  KindSlider,
	"DatePicker":              KindDatePicker,
	"Calendar":                KindCalendar,
	"ItemsControl":            KindItemsControl,
	"ListBox":                 KindListBox,
	"ListBoxItem":             KindListBoxItem,
	"ListView":                KindListView,
	"ListViewItem":            KindListViewItem,
	"TreeView":                KindTreeView,
	"TreeViewItem":            KindTreeViewItem,
	"DataGrid":                KindDataGrid,
	"TabControl":              KindTabControl,
	"TabItem":                 KindTabItem,
	"Menu":                    KindMenu,
	"MenuItem":                KindMenuItem,
	"ToolBar":                 KindToolBar,
	"StatusBar":               KindStatusBar,
	"Image":                   KindImage,
	"ProgressBar":             KindProgressBar,
	"Separator":               KindSeparator,
	"Rectangle":               KindRectangle,
	"Ellipse":                 KindEllipse,
	"Frame":                   KindFrame,
}

// KindOf maps a local tag name onto the closed control set.
func KindOf(tag string) ControlKind {
	return controlKinds[tag]
}

// contentProperties are property-element names whose children are
// rendered as if they were direct children of the owner.
var contentProperties = map[string]bool{
	"Content":  true,
	"Child":    true,
	"Children": true,
	"Items":    true,
	"Header":   true,
	"Inlines":  true,
	"Blocks":   true,
}

// definitionProperties are property-element names that define structure
// or lookup data rather than visual children; they are dropped entirely.
var definitionProperties = map[string]bool{
	"RowDefinitions":    true,
	"ColumnDefinitions": true,
	"Resources":         true,
	"Style":             true,
	"Styles":            true,
	"Triggers":          true,
	"RenderTransform":   true,
	"LayoutTransform":   true,
	"ItemTemplate":      true,
	"ItemsPanel":        true,
	"ContentTemplate":   true,
	"HeaderTemplate":    true,
	"Template":          true,
	"Columns":           true,
	"InputBindings":     true,
	"CommandBindings":   true,
	"ContextMenu":       true,
	"ToolTip":           true,
	"BitmapEffect":      true,
	"Effect":            true,
	"Clip":              true,
	"OpacityMask":       true,
}

// contentBearingTags are control types that synthesize implicit visual
// children from shorthand content (for example an inline text element
// inside a Button). The correlation engine attributes renderer-implicit
// elements to the nearest ancestor of one of these types.
var contentBearingTags = map[string]bool{
	"Button":         true,
	"RepeatButton":   true,
	"ToggleButton":   true,
	"CheckBox":       true,
	"RadioButton":    true,
	"Label":          true,
	"GroupBox":       true,
	"Expander":       true,
	"TabItem":        true,
	"ListBoxItem":    true,
	"ListViewItem":   true,
	"TreeViewItem":   true,
	"ComboBoxItem":   true,
	"MenuItem":       true,
	"ContentControl": true,
	"UserControl":    true,
	"TextBlock":      true,
	"Border":         true,
	"ScrollViewer":   true,
}

// IsContentBearing reports whether the tag commonly hosts implicit
// content synthesized by a live renderer.
func IsContentBearing(tag string) bool {
	return contentBearingTags[tag]
}
