package native

import (
	"uipreview/internal/render"
)

// Message types exchanged with the renderer process. Every message is a
// single JSON object terminated by '\n'.
const (
	msgRender       = "render"
	msgPing         = "ping"
	msgRenderResult = "renderResult"
	msgPong         = "pong"
)

type requestMessage struct {
	Type      string          `json:"type"`
	RequestID string          `json:"requestId"`
	Xaml      string          `json:"xaml,omitempty"`
	Options   *render.Options `json:"options,omitempty"`
}

// wireFailure carries a renderer-reported markup failure. All fields are
// optional on the wire and may be partially populated.
type wireFailure struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

type responseMessage struct {
	Type      string                  `json:"type"`
	RequestID string                  `json:"requestId"`
	Success   bool                    `json:"success"`
	ImageData string                  `json:"imageData,omitempty"`
	Mappings  []render.ElementMapping `json:"elementMappings,omitempty"`
	ElapsedMs int64                   `json:"elapsedMs,omitempty"`
	Error     *wireFailure            `json:"error,omitempty"`
}
