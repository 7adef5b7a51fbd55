package project

import (
	"os"
	"path/filepath"
	"testing"

	"uipreview/internal/core/errors"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

const sampleProject = `<Project Sdk="Microsoft.NET.Sdk">
  <PropertyGroup>
    <TargetFramework>net8.0-windows</TargetFramework>
    <PackageType>DotnetTool</PackageType>
  </PropertyGroup>
</Project>`

func TestDiscoverWalksUpward(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "App.csproj"), sampleProject)
	view := filepath.Join(root, "Views", "Sub", "Main.xaml")
	writeFile(t, view, `<UserControl/>`)

	info, err := Discover(view)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if info.Root != root {
		t.Errorf("root = %q, want %q", info.Root, root)
	}
	if info.TargetFramework != "net8.0-windows" {
		t.Errorf("target framework = %q", info.TargetFramework)
	}
	if info.PackageType != "DotnetTool" {
		t.Errorf("package type = %q", info.PackageType)
	}
}

func TestDiscoverNoMarker(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "loose.xaml"), `<Grid/>`)

	_, err := Discover(filepath.Join(dir, "loose.xaml"))
	if !errors.IsCode(err, errors.CodeNotAvailable) {
		t.Fatalf("error = %v, want NOT_AVAILABLE", err)
	}
}

func TestLoadResources(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "App.xaml"),
		`<Application><Application.Resources><SolidColorBrush x:Key="Accent" Color="Red"/></Application.Resources></Application>`)
	writeFile(t, filepath.Join(root, "Themes", "Colors.xaml"),
		`<ResourceDictionary><SolidColorBrush x:Key="Primary" Color="Blue"/></ResourceDictionary>`)
	writeFile(t, filepath.Join(root, "Views", "Main.xaml"), `<UserControl/>`)
	writeFile(t, filepath.Join(root, "bin", "Debug", "Copy.xaml"), `<ResourceDictionary/>`)

	res, err := LoadResources(root, nil)
	if err != nil {
		t.Fatalf("load resources: %v", err)
	}
	if res.AppResourcesText == "" {
		t.Error("App.xaml text not loaded")
	}
	if len(res.Dictionaries) != 1 {
		t.Fatalf("got %d dictionaries, want 1 (bin excluded, views skipped): %+v", len(res.Dictionaries), res.Dictionaries)
	}
	if res.Dictionaries[0].Source != "Themes/Colors.xaml" {
		t.Errorf("dictionary source = %q", res.Dictionaries[0].Source)
	}

	paths := res.Paths(root)
	if len(paths) != 2 {
		t.Errorf("watch paths = %v, want App.xaml and the dictionary", paths)
	}
}

func TestLoadResourcesCustomExclude(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Generated", "Theme.xaml"), `<ResourceDictionary/>`)

	res, err := LoadResources(root, []string{"Generated/**"})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Dictionaries) != 0 {
		t.Errorf("excluded dictionary still loaded: %+v", res.Dictionaries)
	}
}
