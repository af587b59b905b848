// Package toolserver connects to MCP tool servers over stdio and exposes
// their catalogs to the agent loop.
package toolserver

import "context"

// Schema is the JSON schema fragment describing a tool's input.
type Schema struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties,omitempty"`
	Required   []string       `json:"required,omitempty"`
}

// ToolDescriptor describes one tool offered by a server.
type ToolDescriptor struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputSchema Schema `json:"input_schema"`
}

// Session is a live connection to a tool server. Implementations must be
// safe to Close more than once.
type Session interface {
	// ListTools fetches the server's tool catalog.
	ListTools(ctx context.Context) ([]ToolDescriptor, error)

	// CallTool executes one tool and returns its textual output. isError
	// reports a tool-level failure; err reports a transport failure.
	CallTool(ctx context.Context, name string, args map[string]any) (content string, isError bool, err error)

	Close() error
}
