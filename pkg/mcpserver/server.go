// Package mcpserver exposes a running bridge daemon to MCP clients: an
// opaque hex-payload request tool, a health tool that checks the bridge is
// reachable, and a stack introspection tool backed by the admin HTTP API,
// instead of the device-specific tool set the teacher's pkg/mcp exposes.
package mcpserver

import (
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/server"
)

// Server wraps an MCP server that talks to a running edbgd daemon over its
// TCP bridge (for requests and health) and its admin HTTP API (for stack
// introspection).
type Server struct {
	mcpServer *server.MCPServer

	bridgeAddr string
	adminAddr  string
	timeout    time.Duration
	http       *http.Client
}

// NewServer builds an MCP server that dials bridgeAddr for send_request and
// get_health and queries adminAddr for get_stack_info. timeout bounds each
// bridge call and each admin API request.
func NewServer(bridgeAddr, adminAddr string, timeout time.Duration) *Server {
	s := &Server{
		bridgeAddr: bridgeAddr,
		adminAddr:  adminAddr,
		timeout:    timeout,
		http:       &http.Client{Timeout: timeout},
	}

	s.mcpServer = server.NewMCPServer(
		"edbgstack",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	s.registerTools()
	return s
}

// ServeStdio starts the MCP server using stdio transport.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
