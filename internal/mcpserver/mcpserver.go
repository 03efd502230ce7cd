package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server wraps the MCP server and registers the doppel clone tools.
type Server struct {
	server *mcp.Server
}

// NewServer creates a new MCP server with all doppel tools registered.
func NewServer(version string) *Server {
	if version == "" {
		version = "dev"
	}
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "doppel",
			Version: version,
		},
		nil,
	)

	s := &Server{server: server}
	s.registerTools()
	s.registerPrompts()
	return s
}

// Run starts the MCP server over stdio transport.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// registerTools adds the clone detection tools to the server.
func (s *Server) registerTools() {
	// Repository-wide clone scan
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "scan_clones",
		Description: describeScanClones(),
	}, handleScanClones)

	// Pairwise file comparison
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "compare_files",
		Description: describeCompareFiles(),
	}, handleCompareFiles)
}
