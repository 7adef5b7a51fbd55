package render

import (
	"context"
	stderrors "errors"

	"uipreview/internal/core/errors"
	"uipreview/internal/markup/sanitize"
)

type RendererType string

const (
	RendererNative     RendererType = "native"
	RendererStructural RendererType = "structural"
)

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Kind says what the result payload holds: a rasterized image or an
// HTML markup approximation.
type Kind string

const (
	KindImage  Kind = "image"
	KindMarkup Kind = "markup"
)

// Rect is a layout bounding box in device-independent pixels. Only
// meaningful for image-based output; the structural renderer leaves it
// zeroed.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// ElementMapping correlates one rendered visual element back to layout
// bounds and a source position. Each renderer produces these
// independently, in its own traversal order.
type ElementMapping struct {
	ID           int    `json:"id"`
	Name         string `json:"name,omitempty"`
	Type         string `json:"type"`
	Bounds       Rect   `json:"bounds"`
	SourceLine   int    `json:"sourceLine"`
	SourceColumn int    `json:"sourceColumn"`
	ParentID     int    `json:"parentId,omitempty"`
}

// ResourceDictionary is one project resource file fed to a renderer.
type ResourceDictionary struct {
	Source  string `json:"source"`
	Content string `json:"content"`
}

// Options are immutable per render call.
type Options struct {
	Width                int                  `json:"width"`
	Height               int                  `json:"height"`
	Theme                Theme                `json:"theme"`
	Scale                float64              `json:"scale"`
	ProjectPath          string               `json:"projectPath,omitempty"`
	AppResourcesText     string               `json:"appResourcesText,omitempty"`
	ResourceDictionaries []ResourceDictionary `json:"resourceDictionaries,omitempty"`
}

// Failure carries a renderer-reported or transport-level error. Line and
// Column are optional source positions (0 when unknown).
type Failure struct {
	Code    errors.ErrorCode `json:"code"`
	Message string           `json:"message"`
	Line    int              `json:"line,omitempty"`
	Column  int              `json:"column,omitempty"`
}

// Result is the outcome of one render call. Failure is nil on success.
type Result struct {
	Kind      Kind               `json:"kind,omitempty"`
	Payload   string             `json:"payload,omitempty"`
	Mappings  []ElementMapping   `json:"elementMappings,omitempty"`
	Warnings  []sanitize.Warning `json:"warnings,omitempty"`
	ElapsedMs int64              `json:"elapsedMs"`
	Failure   *Failure           `json:"failure,omitempty"`
}

func (r *Result) OK() bool { return r != nil && r.Failure == nil }

// FailureResult wraps an error into the failure variant of Result.
func FailureResult(err error) *Result {
	f := &Failure{Code: errors.CodeOf(err), Message: err.Error()}
	var de *errors.DomainError
	if stderrors.As(err, &de) {
		f.Message = de.Message
		if line, ok := de.Context[errors.CtxLine].(int); ok {
			f.Line = line
		}
		if col, ok := de.Context[errors.CtxColumn].(int); ok {
			f.Column = col
		}
	}
	return &Result{Failure: f}
}

// Renderer is one rendering strategy the controller can select.
type Renderer interface {
	Type() RendererType
	DisplayName() string
	Available() bool
	Render(ctx context.Context, text string, opts Options) (*Result, error)
}

// Info describes a renderer for the host's renderer picker.
type Info struct {
	Type        RendererType `json:"type"`
	DisplayName string       `json:"displayName"`
	Available   bool         `json:"available"`
}
