package toolserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"
)

const (
	clientName    = "magpie"
	clientVersion = "1.0.0"
)

// StdioSession is a Session backed by an MCP server subprocess speaking
// JSON-RPC over stdin/stdout.
type StdioSession struct {
	client *client.Client
	logger zerolog.Logger
}

// SessionOption configures a StdioSession.
type SessionOption func(*StdioSession)

// WithLogger attaches a logger. The default discards everything.
func WithLogger(logger zerolog.Logger) SessionOption {
	return func(s *StdioSession) {
		s.logger = logger
	}
}

// Connect starts the server subprocess and performs the MCP initialize
// handshake. env entries are appended to the current environment.
func Connect(ctx context.Context, command string, env []string, args []string, opts ...SessionOption) (*StdioSession, error) {
	s := &StdioSession{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}

	s.logger.Info().
		Str("command", command).
		Strs("args", args).
		Msg("starting tool server")

	c, err := client.NewStdioMCPClient(command, env, args...)
	if err != nil {
		return nil, fmt.Errorf("start tool server: %w", err)
	}
	s.client = c

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    clientName,
		Version: clientVersion,
	}
	if _, err := c.Initialize(ctx, initReq); err != nil {
		c.Close()
		return nil, fmt.Errorf("initialize tool server: %w", err)
	}

	s.logger.Info().Msg("tool server session initialized")
	return s, nil
}

// ListTools fetches the server's tool catalog.
func (s *StdioSession) ListTools(ctx context.Context) ([]ToolDescriptor, error) {
	result, err := s.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("list tools: %w", err)
	}

	descriptors := make([]ToolDescriptor, 0, len(result.Tools))
	names := make([]string, 0, len(result.Tools))
	for _, tool := range result.Tools {
		descriptors = append(descriptors, ToolDescriptor{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: Schema{
				Type:       tool.InputSchema.Type,
				Properties: tool.InputSchema.Properties,
				Required:   tool.InputSchema.Required,
			},
		})
		names = append(names, tool.Name)
	}

	s.logger.Info().Strs("tools", names).Msg("tool catalog fetched")
	return descriptors, nil
}

// CallTool executes one tool call and joins the text parts of its result.
func (s *StdioSession) CallTool(ctx context.Context, name string, args map[string]any) (string, bool, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	result, err := s.client.CallTool(ctx, req)
	if err != nil {
		return "", false, fmt.Errorf("call tool %s: %w", name, err)
	}
	return joinTextContent(result.Content), result.IsError, nil
}

// Close shuts down the server subprocess.
func (s *StdioSession) Close() error {
	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	return err
}

func joinTextContent(items []mcp.Content) string {
	var parts []string
	for _, item := range items {
		switch tc := item.(type) {
		case mcp.TextContent:
			parts = append(parts, tc.Text)
		case *mcp.TextContent:
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}
