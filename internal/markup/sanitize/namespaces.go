package sanitize

import "strings"

// knownNamespaces is the allow-list of framework namespace URIs a
// renderer can resolve on its own. Anything else is third-party and has
// to be rewritten before rendering.
var knownNamespaces = map[string]bool{
	"http://schemas.microsoft.com/winfx/2006/xaml/presentation": true,
	"http://schemas.microsoft.com/winfx/2006/xaml":              true,
	"http://schemas.microsoft.com/expression/blend/2008":        true,
	"http://schemas.openxmlformats.org/markup-compatibility/2006": true,
	"http://schemas.microsoft.com/winfx/2009/xaml":              true,
	"https://github.com/avaloniaui":                             true,
}

// knownUsingPrefixes covers using:/clr-namespace: declarations that point
// into framework assemblies rather than third-party ones.
var knownUsingPrefixes = []string{
	"using:Windows.UI.Xaml",
	"using:Microsoft.UI.Xaml",
	"clr-namespace:System;",
	"clr-namespace:System.Windows",
}

// KnownNamespace reports whether a renderer can resolve types declared
// under the given namespace URI or using-path.
func KnownNamespace(uri string) bool {
	if knownNamespaces[uri] {
		return true
	}
	for _, p := range knownUsingPrefixes {
		if strings.HasPrefix(uri, p) {
			return true
		}
	}
	return false
}

// placeholderAttrs is the subset of attributes safe to carry over onto a
// generic placeholder container: layout, positioning, identity and
// accessibility. Control-specific properties would fail to parse on the
// placeholder type.
var placeholderAttrs = map[string]bool{
	"Width":               true,
	"Height":              true,
	"MinWidth":            true,
	"MinHeight":           true,
	"MaxWidth":            true,
	"MaxHeight":           true,
	"Margin":              true,
	"HorizontalAlignment": true,
	"VerticalAlignment":   true,
	"Opacity":             true,
	"Visibility":          true,
	"Name":                true,
	"x:Name":              true,
	"x:Uid":               true,
	"Grid.Row":            true,
	"Grid.Column":         true,
	"Grid.RowSpan":        true,
	"Grid.ColumnSpan":     true,
	"Canvas.Left":         true,
	"Canvas.Top":          true,
	"Canvas.Right":        true,
	"Canvas.Bottom":       true,
	"DockPanel.Dock":      true,
	"Panel.ZIndex":        true,
}

func keepOnPlaceholder(name string) bool {
	if placeholderAttrs[name] {
		return true
	}
	return strings.HasPrefix(name, "AutomationProperties.")
}

// windowOnlyAttrs are top-level window chrome properties that have no
// meaning on an embeddable container.
var windowOnlyAttrs = map[string]bool{
	"Title":                 true,
	"Icon":                  true,
	"WindowStartupLocation": true,
	"WindowStyle":           true,
	"WindowState":           true,
	"ResizeMode":            true,
	"ShowInTaskbar":         true,
	"SizeToContent":         true,
	"Topmost":               true,
	"ShowActivated":         true,
	"AllowsTransparency":    true,
	"SystemBackdrop":        true,
	"Backdrop":              true,
}

// windowOnlyProps are Window.* property elements dropped during the root
// rewrite; every other Window.* property element is renamed to the
// replacement container type.
var windowOnlyProps = map[string]bool{
	"Title":           true,
	"TaskbarItemInfo": true,
	"SystemBackdrop":  true,
	"Icon":            true,
}

// deniedPropertyElements lists property-element names whose entire
// content is an unresolvable nested type regardless of prefix.
var deniedPropertyElements = []string{
	"Interaction.Behaviors",
	"Interaction.Triggers",
	"WindowChrome.WindowChrome",
}
