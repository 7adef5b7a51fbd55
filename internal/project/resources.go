package project

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"

	"uipreview/internal/core/errors"
	"uipreview/internal/markup/parser"
	"uipreview/internal/render"
)

// Resources holds everything under a project root that can change how
// markup resolves: the application resource text and every resource
// dictionary file.
type Resources struct {
	AppResourcesText string
	Dictionaries     []render.ResourceDictionary
}

// Paths lists the absolute files the resources were loaded from, for
// watch registration.
func (r *Resources) Paths(root string) []string {
	var out []string
	if r.AppResourcesText != "" {
		out = append(out, filepath.Join(root, "App.xaml"))
	}
	for _, d := range r.Dictionaries {
		out = append(out, filepath.Join(root, filepath.FromSlash(d.Source)))
	}
	return out
}

var defaultExcludes = []string{"bin/**", "obj/**", ".git/**", "node_modules/**"}

// LoadResources scans the project root for App.xaml and resource
// dictionary files. Extra exclude globs add to the defaults. Dictionary
// entries come back sorted by source path so results are stable.
func LoadResources(root string, excludes []string) (*Resources, error) {
	globs, err := compileExcludes(append(append([]string{}, defaultExcludes...), excludes...))
	if err != nil {
		return nil, err
	}

	res := &Resources{}
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, rerr := filepath.Rel(root, path)
		if rerr != nil {
			return rerr
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if rel != "." && excluded(globs, rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if excluded(globs, rel) || !strings.EqualFold(filepath.Ext(path), ".xaml") {
			return nil
		}

		data, rerr := os.ReadFile(path)
		if rerr != nil {
			return rerr
		}
		text := string(data)
		if strings.EqualFold(d.Name(), "App.xaml") {
			res.AppResourcesText = text
			return nil
		}
		if isResourceDictionary(text) {
			res.Dictionaries = append(res.Dictionaries, render.ResourceDictionary{
				Source:  rel,
				Content: text,
			})
		}
		return nil
	})
	if walkErr != nil {
		return nil, errors.Wrap(walkErr, errors.CodeInternal, "scan project resources").
			WithContext(errors.CtxPath, root)
	}

	sort.Slice(res.Dictionaries, func(i, j int) bool {
		return res.Dictionaries[i].Source < res.Dictionaries[j].Source
	})
	return res, nil
}

func compileExcludes(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInternal, "compile exclude pattern "+p)
		}
		out = append(out, g)
	}
	return out, nil
}

func excluded(globs []glob.Glob, rel string) bool {
	for _, g := range globs {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

func isResourceDictionary(text string) bool {
	pr := parser.Parse(text)
	return pr.Root != nil && pr.Root.TagName == "ResourceDictionary"
}
