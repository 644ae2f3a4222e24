package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer creates a configured MCP server with all stream engine tools registered.
func NewMCPServer(cfg Config) *server.MCPServer {
	s := server.NewMCPServer("streamswap", "1.0.0")
	client := NewStreamClient(cfg)
	h := NewHandlers(client)

	s.AddTool(ToolQueryStream, h.HandleQueryStream)
	s.AddTool(ToolListStreams, h.HandleListStreams)
	s.AddTool(ToolQueryPosition, h.HandleQueryPosition)
	s.AddTool(ToolAveragePrice, h.HandleAveragePrice)
	s.AddTool(ToolRegistryParams, h.HandleRegistryParams)
	s.AddTool(ToolSubscribe, h.HandleSubscribe)
	s.AddTool(ToolWithdraw, h.HandleWithdraw)

	return s
}
