package mcpserver

import "github.com/mark3labs/mcp-go/mcp"

// registerTools registers all MCP tools with the server.
func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool("get_health",
			mcp.WithDescription("Check whether the daemon's bridge endpoint is reachable"),
		),
		s.handleGetHealth,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("get_stack_info",
			mcp.WithDescription("Describe the composed protocol stack currently running in the daemon, top to bottom"),
		),
		s.handleGetStackInfo,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("send_request",
			mcp.WithDescription("Send one opaque hex-encoded request frame to the target through the bridge and return the hex-encoded reply. The payload is never interpreted; it is carried through the stack as-is."),
			mcp.WithString("payload_hex",
				mcp.Required(),
				mcp.Description("Request payload, hex-encoded"),
			),
		),
		s.handleSendRequest,
	)
}
