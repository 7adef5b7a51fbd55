// Package project discovers the project context of a previewed file:
// the project root, target framework, and the resource dictionaries
// that influence rendering.
package project

import (
	"os"
	"path/filepath"
	"strings"

	"uipreview/internal/core/errors"
	"uipreview/internal/markup/parser"
)

// Info describes the project a previewed file belongs to.
type Info struct {
	Root            string `json:"root"`
	ProjectFile     string `json:"projectFile"`
	TargetFramework string `json:"targetFramework,omitempty"`
	PackageType     string `json:"packageType,omitempty"`
}

var markerPatterns = []string{"*.csproj", "*.fsproj", "*.sln"}

// Discover walks upward from the given file or directory until a
// directory contains a project marker, then parses the marker file.
func Discover(start string) (*Info, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "resolve project start path")
	}
	dir := abs
	if fi, err := os.Stat(abs); err == nil && !fi.IsDir() {
		dir = filepath.Dir(abs)
	}

	for {
		marker, err := findMarker(dir)
		if err != nil {
			return nil, err
		}
		if marker != "" {
			info := &Info{Root: dir, ProjectFile: marker}
			if strings.HasSuffix(marker, ".csproj") || strings.HasSuffix(marker, ".fsproj") {
				readProjectFile(info)
			}
			return info, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, errors.New(errors.CodeNotAvailable, "no project marker found").
				WithContext(errors.CtxPath, start)
		}
		dir = parent
	}
}

func findMarker(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", errors.Wrap(err, errors.CodeInternal, "read directory").
			WithContext(errors.CtxPath, dir)
	}
	for _, pattern := range markerPatterns {
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if ok, _ := filepath.Match(pattern, e.Name()); ok {
				return filepath.Join(dir, e.Name()), nil
			}
		}
	}
	return "", nil
}

// readProjectFile fills TargetFramework and PackageType from the
// project file. Project files are plain XML, so the markup parser
// handles them. Failures leave the fields empty, never block preview.
func readProjectFile(info *Info) {
	data, err := os.ReadFile(info.ProjectFile)
	if err != nil {
		return
	}
	pr := parser.Parse(string(data))
	if pr.Root == nil {
		return
	}
	pr.Root.Walk(func(el *parser.Element) bool {
		switch el.TagName {
		case "TargetFramework", "TargetFrameworks":
			if info.TargetFramework == "" {
				info.TargetFramework = strings.TrimSpace(el.TextContent)
			}
		case "PackageType":
			if info.PackageType == "" {
				info.PackageType = strings.TrimSpace(el.TextContent)
			}
		}
		return true
	})
}
