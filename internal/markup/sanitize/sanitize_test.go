package sanitize

import (
	"strings"
	"testing"
	"time"
)

const header = `xmlns="http://schemas.microsoft.com/winfx/2006/xaml/presentation" xmlns:x="http://schemas.microsoft.com/winfx/2006/xaml"`

func TestSanitizeUnknownPrefixBecomesPlaceholder(t *testing.T) {
	src := `<Grid ` + header + ` xmlns:wct="using:WinUICommunity.Toolkit"><wct:DataGrid/></Grid>`

	out, warnings := Sanitize(src)

	if strings.Contains(out, "<wct:") || strings.Contains(out, "</wct:") {
		t.Errorf("output still contains wct: elements:\n%s", out)
	}
	if strings.Contains(out, "xmlns:wct") {
		t.Errorf("xmlns:wct declaration should be stripped:\n%s", out)
	}
	if !strings.Contains(out, `Tag="wct:DataGrid"`) {
		t.Errorf("placeholder should carry Tag with the qualified name:\n%s", out)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected exactly one warning, got %v", warnings)
	}
	if warnings[0].Code != WarnUnknownNamespace || !strings.Contains(warnings[0].Message, "wct") {
		t.Errorf("warning should name the prefix: %+v", warnings[0])
	}
}

func TestSanitizeKeepsLayoutAttributesOnPlaceholder(t *testing.T) {
	src := `<Grid ` + header + ` xmlns:wct="using:Third.Party">` +
		`<wct:DataGrid Width="200" Grid.Row="1" ItemsSource="{Binding Rows}" x:Name="grid"/></Grid>`

	out, _ := Sanitize(src)

	for _, want := range []string{`Width="200"`, `Grid.Row="1"`, `x:Name="grid"`} {
		if !strings.Contains(out, want) {
			t.Errorf("placeholder should keep %s:\n%s", want, out)
		}
	}
	if strings.Contains(out, "ItemsSource") {
		t.Errorf("control-specific property should be dropped:\n%s", out)
	}
}

func TestSanitizeNestedSamePrefixInnermostFirst(t *testing.T) {
	src := `<Grid ` + header + ` xmlns:tp="using:Third.Party">` +
		`<tp:Outer><tp:Inner Text="x"/></tp:Outer></Grid>`

	out, _ := Sanitize(src)

	if strings.Contains(out, "tp:Outer>") || strings.Contains(out, "<tp:") {
		t.Errorf("nested unknown elements should all be replaced:\n%s", out)
	}
	if !strings.Contains(out, `Tag="tp:Outer"`) {
		t.Errorf("outer placeholder missing:\n%s", out)
	}
}

func TestSanitizeStripsDeniedPropertyElements(t *testing.T) {
	src := `<Grid ` + header + ` xmlns:i="using:Microsoft.Xaml.Behaviors">` +
		`<Button Content="Keep">` +
		`<i:Interaction.Behaviors><i:EventTrigger EventName="Click"/></i:Interaction.Behaviors>` +
		`</Button>` +
		`<Interaction.Triggers><EventTrigger/></Interaction.Triggers>` +
		`<TextBlock Text="Also"/></Grid>`

	out, _ := Sanitize(src)

	if strings.Contains(out, "Interaction.Behaviors") || strings.Contains(out, "Interaction.Triggers") {
		t.Errorf("behavior property elements should be removed:\n%s", out)
	}
	if strings.Contains(out, "EventTrigger") {
		t.Errorf("content of removed property elements should go with them:\n%s", out)
	}
	for _, want := range []string{`Content="Keep"`, `Text="Also"`} {
		if !strings.Contains(out, want) {
			t.Errorf("sibling content should survive, missing %s:\n%s", want, out)
		}
	}
}

func TestSanitizeStripsWindowChromeElement(t *testing.T) {
	src := `<Window ` + header + ` Title="App">` +
		`<WindowChrome.WindowChrome><WindowChrome CaptionHeight="32"/></WindowChrome.WindowChrome>` +
		`<Grid/></Window>`

	out, _ := Sanitize(src)

	if strings.Contains(out, "WindowChrome") {
		t.Errorf("window chrome elements should be removed:\n%s", out)
	}
	if !strings.Contains(out, "<UserControl") || !strings.Contains(out, "<Grid/>") {
		t.Errorf("surrounding markup should survive:\n%s", out)
	}
}

func TestSanitizeIdempotent(t *testing.T) {
	src := `<Window ` + header + ` xmlns:tp="using:Third.Party" Title="App">` +
		`<Window.Resources><tp:Theme x:Key="theme"/></Window.Resources>` +
		`<tp:Shell tp:Dock.Region="left"><Button Content="hi"/></tp:Shell></Window>`

	once, _ := Sanitize(src)
	twice, warnings := Sanitize(once)

	if once != twice {
		t.Errorf("sanitize is not idempotent:\nfirst:  %s\nsecond: %s", once, twice)
	}
	if len(warnings) != 0 {
		t.Errorf("second pass should be clean, got %v", warnings)
	}
}

func TestSanitizeTerminatesOnAdversarialNesting(t *testing.T) {
	src := `<Grid ` + header + ` xmlns:tp="using:Third.Party">` +
		strings.Repeat("<tp:Panel>", 5000) + `</Grid>`

	done := make(chan struct{})
	go func() {
		Sanitize(src)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("sanitize did not terminate on adversarial input")
	}
}

func TestSanitizeWindowRootRewritten(t *testing.T) {
	src := `<Window ` + header + ` Title="My App" SizeToContent="WidthAndHeight" Width="400">` +
		`<Window.Resources></Window.Resources><Grid/></Window>`

	out, warnings := Sanitize(src)

	if !strings.HasPrefix(out, "<UserControl") {
		t.Errorf("root should become UserControl:\n%s", out)
	}
	if strings.Contains(out, "Title=") || strings.Contains(out, "SizeToContent=") {
		t.Errorf("window-only attributes should be dropped:\n%s", out)
	}
	if !strings.Contains(out, `Width="400"`) {
		t.Errorf("layout attributes should survive:\n%s", out)
	}
	if !strings.Contains(out, "<UserControl.Resources>") || strings.Contains(out, "<Window.") {
		t.Errorf("property elements should be renamed:\n%s", out)
	}
	if len(warnings) != 1 || warnings[0].Code != WarnWindowRoot {
		t.Errorf("expected one window-root warning, got %v", warnings)
	}
}

func TestSanitizeStripsResourceEntries(t *testing.T) {
	src := `<Grid ` + header + ` xmlns:tp="using:Third.Party">` +
		`<Grid.Resources><SolidColorBrush x:Key="ok" Color="Red"/><tp:Theme x:Key="bad"/></Grid.Resources></Grid>`

	out, warnings := Sanitize(src)

	if !strings.Contains(out, `x:Key="ok"`) {
		t.Errorf("known resource should survive:\n%s", out)
	}
	if strings.Contains(out, "tp:Theme") || strings.Contains(out, `x:Key="bad"`) {
		t.Errorf("unknown-prefixed resource should be removed:\n%s", out)
	}
	found := false
	for _, w := range warnings {
		if w.Code == WarnResourceRemoved && strings.Contains(w.Message, "bad") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a resource-removed warning naming the key, got %v", warnings)
	}
}

func TestSanitizeStripsAttachedPropertiesAndIgnorable(t *testing.T) {
	src := `<Grid ` + header + ` xmlns:mc="http://schemas.openxmlformats.org/markup-compatibility/2006"` +
		` xmlns:tp="using:Third.Party" mc:Ignorable="tp d">` +
		`<Button tp:Dock.Region="left" Content="hi"/></Grid>`

	out, warnings := Sanitize(src)

	if strings.Contains(out, "tp:Dock.Region") {
		t.Errorf("attached property should be stripped:\n%s", out)
	}
	if !strings.Contains(out, `Content="hi"`) {
		t.Errorf("unrelated attributes should survive:\n%s", out)
	}
	if !strings.Contains(out, `mc:Ignorable="d"`) {
		t.Errorf("prefix should be removed from Ignorable list:\n%s", out)
	}
	found := false
	for _, w := range warnings {
		if w.Code == WarnAttachedRemoved && strings.Contains(w.Message, "Dock.Region") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected attached-property warning, got %v", warnings)
	}
}

func TestSanitizeNoUnknownPrefixesIsUntouched(t *testing.T) {
	src := `<Grid ` + header + `><Button Content="hi"/></Grid>`
	out, warnings := Sanitize(src)
	if out != src {
		t.Errorf("clean input should pass through unchanged:\n%s", out)
	}
	if len(warnings) != 0 {
		t.Errorf("clean input should produce no warnings, got %v", warnings)
	}
}
