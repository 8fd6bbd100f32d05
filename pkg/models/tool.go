package models

import "encoding/json"

// Content part types.
const (
	ContentText     = "text"
	ContentImage    = "image"
	ContentResource = "resource"
)

// ToolDefinition describes a tool exposed via tools/list.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

// ContentBlock is one part of a tool result. Text parts set Text; image parts
// set Data (base64) and MIMEType; resource parts set Resource.
type ContentBlock struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	Data     string          `json:"data,omitempty"`
	MIMEType string          `json:"mimeType,omitempty"`
	Resource json.RawMessage `json:"resource,omitempty"`
}

// ToolCallResult is the payload of a successful tools/call response.
type ToolCallResult struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

// TextResult returns a single-part text result.
func TextResult(text string) *ToolCallResult {
	return &ToolCallResult{
		Content: []ContentBlock{{Type: ContentText, Text: text}},
	}
}

// ErrorResult returns a single-part text result flagged as a tool-level error.
func ErrorResult(text string) *ToolCallResult {
	return &ToolCallResult{
		Content: []ContentBlock{{Type: ContentText, Text: text}},
		IsError: true,
	}
}
