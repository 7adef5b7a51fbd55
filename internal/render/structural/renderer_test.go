package structural

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"uipreview/internal/core/errors"
	"uipreview/internal/render"
	"uipreview/internal/shared/observability"
)

func renderText(t *testing.T, text string) *render.Result {
	t.Helper()
	res, err := New().Render(context.Background(), text, render.Options{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	return res
}

func TestHorizontalStackPanel(t *testing.T) {
	res := renderText(t, `<StackPanel Orientation="Horizontal"><TextBlock Text="A"/></StackPanel>`)
	if !res.OK() {
		t.Fatalf("unexpected failure: %+v", res.Failure)
	}
	if res.Kind != render.KindMarkup {
		t.Fatalf("kind = %q, want markup", res.Kind)
	}
	if !strings.Contains(res.Payload, `class="flex-row"`) {
		t.Errorf("payload missing flex-row container:\n%s", res.Payload)
	}
	if !strings.Contains(res.Payload, "flex-direction: row") {
		t.Errorf("payload missing row direction")
	}
	if len(res.Mappings) != 2 {
		t.Fatalf("got %d mappings, want 2", len(res.Mappings))
	}
	if res.Mappings[0].Type != "StackPanel" || res.Mappings[1].Type != "TextBlock" {
		t.Errorf("mapping types = %s, %s", res.Mappings[0].Type, res.Mappings[1].Type)
	}
	if res.Mappings[1].ParentID != res.Mappings[0].ID {
		t.Errorf("TextBlock parent = %d, want %d", res.Mappings[1].ParentID, res.Mappings[0].ID)
	}
	if res.Mappings[0].SourceLine != 1 || res.Mappings[0].SourceColumn != 1 {
		t.Errorf("root position = %d:%d, want 1:1", res.Mappings[0].SourceLine, res.Mappings[0].SourceColumn)
	}
}

func TestThicknessMapping(t *testing.T) {
	cases := []struct{ in, want string }{
		{"4", "4px"},
		{"10,20", "20px 10px"},
		{"1,2,3,4", "2px 3px 4px 1px"},
		{"1 2 3 4", "2px 3px 4px 1px"},
	}
	for _, c := range cases {
		if got := mapThickness(c.in); got != c.want {
			t.Errorf("mapThickness(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestGridTemplates(t *testing.T) {
	res := renderText(t, `<Grid>
  <Grid.RowDefinitions>
    <RowDefinition Height="Auto"/>
    <RowDefinition Height="*"/>
    <RowDefinition Height="2*"/>
  </Grid.RowDefinitions>
  <Button Grid.Row="1" Content="Go"/>
</Grid>`)
	if !strings.Contains(res.Payload, "grid-template-rows: auto 1fr 2fr") {
		t.Errorf("payload missing grid template:\n%s", res.Payload)
	}
	if !strings.Contains(res.Payload, "grid-row-start: 2") {
		t.Errorf("Grid.Row=1 should map to grid line 2")
	}
	// RowDefinition elements are structure, not visuals.
	for _, m := range res.Mappings {
		if m.Type == "RowDefinition" {
			t.Errorf("definition element got a mapping: %+v", m)
		}
	}
	if len(res.Mappings) != 2 {
		t.Errorf("got %d mappings, want Grid and Button only", len(res.Mappings))
	}
}

func TestBindingPlaceholders(t *testing.T) {
	res := renderText(t, `<StackPanel><TextBlock Text="{Binding UserName}"/><Button Content="{Binding Path=Save, Mode=OneWay}"/></StackPanel>`)
	if !strings.Contains(res.Payload, "{UserName}") {
		t.Errorf("payload missing placeholder for UserName")
	}
	if !strings.Contains(res.Payload, "{Save}") {
		t.Errorf("payload missing placeholder for Path=Save operand")
	}
	var found int
	for _, wrn := range res.Warnings {
		if wrn.Code == "binding-placeholder" {
			found++
			if !strings.Contains(wrn.Message, "TextBlock.Text") || !strings.Contains(wrn.Message, "Button.Content") {
				t.Errorf("consolidated warning missing properties: %s", wrn.Message)
			}
		}
	}
	if found != 1 {
		t.Errorf("got %d binding warnings, want exactly 1", found)
	}
}

func TestPropertyElementContentSplice(t *testing.T) {
	res := renderText(t, `<Button>
  <Button.Content>
    <TextBlock Text="Inner"/>
  </Button.Content>
</Button>`)
	if !strings.Contains(res.Payload, "Inner") {
		t.Errorf("spliced content missing")
	}
	if len(res.Mappings) != 2 {
		t.Errorf("got %d mappings, want Button and TextBlock", len(res.Mappings))
	}
}

func TestUnknownControlShowsName(t *testing.T) {
	res := renderText(t, `<Grid><FancyGauge Width="100"/></Grid>`)
	if !strings.Contains(res.Payload, `class="unknown"`) {
		t.Errorf("unrecognized control should render as unknown placeholder")
	}
	if !strings.Contains(res.Payload, "FancyGauge") {
		t.Errorf("placeholder should show the tag name")
	}
}

func TestRecoveredParseErrorsCounted(t *testing.T) {
	before := testutil.ToFloat64(observability.ParseErrorsTotal)
	res := renderText(t, `<Grid><Button></Grid>`)
	if !res.OK() {
		t.Fatalf("recovered parse should still render: %+v", res.Failure)
	}
	var recovered int
	for _, wrn := range res.Warnings {
		if wrn.Code == "parse-recovered" {
			recovered++
		}
	}
	if recovered != 1 {
		t.Errorf("got %d parse-recovered warnings, want 1", recovered)
	}
	if got := testutil.ToFloat64(observability.ParseErrorsTotal) - before; got != 1 {
		t.Errorf("parse error counter advanced by %v, want 1", got)
	}
}

func TestParseFailure(t *testing.T) {
	res := renderText(t, "just text, no element")
	if res.OK() {
		t.Fatal("expected failure for rootless document")
	}
	if res.Failure.Code != errors.CodeParseError {
		t.Errorf("failure code = %s, want %s", res.Failure.Code, errors.CodeParseError)
	}
}

func TestBrushMapping(t *testing.T) {
	if got, _ := mapBrush("#80FF0000"); got != "#FF000080" {
		t.Errorf("argb reorder = %q", got)
	}
	if got, _ := mapBrush("CornflowerBlue"); got != "cornflowerblue" {
		t.Errorf("named color = %q", got)
	}
	a, resA := mapBrush("{StaticResource AccentBrush}")
	b, resB := mapBrush("{DynamicResource AccentBrush}")
	if resA != "AccentBrush" || resB != "AccentBrush" {
		t.Errorf("resource names = %q, %q", resA, resB)
	}
	if a != b {
		t.Errorf("resource placeholder color must be deterministic: %q vs %q", a, b)
	}
}

func TestVisibilityAndEnabled(t *testing.T) {
	res := renderText(t, `<StackPanel><Button Content="Hidden" Visibility="Collapsed"/><TextBox Text="ro" IsEnabled="False"/></StackPanel>`)
	if !strings.Contains(res.Payload, "display: none") {
		t.Errorf("Collapsed should map to display none")
	}
	if !strings.Contains(res.Payload, "disabled") {
		t.Errorf("IsEnabled=False input should be disabled")
	}
}

func TestThemeAndDimensions(t *testing.T) {
	res, err := New().Render(context.Background(), `<Grid/>`, render.Options{
		Width: 640, Height: 480, Theme: render.ThemeDark,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(res.Payload, `class="theme-dark"`) {
		t.Errorf("dark theme class missing")
	}
	if !strings.Contains(res.Payload, "width: 640px") || !strings.Contains(res.Payload, "height: 480px") {
		t.Errorf("viewport dimensions missing from root")
	}
}
