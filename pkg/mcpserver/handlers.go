package mcpserver

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/edbgstack/edbgstack/pkg/bridge"
)

func (s *Server) handleGetHealth(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dialCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	status, detail := "healthy", "bridge reachable"
	c, err := bridge.Dial(dialCtx, s.bridgeAddr)
	if err != nil {
		status, detail = "unhealthy", err.Error()
	} else {
		_ = c.Close()
	}

	out := GetHealthOutput{
		Status:    status,
		Detail:    detail,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleGetStackInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.adminAddr+"/api/v1/stack", nil)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("admin API unreachable: %s", err)), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return mcp.NewToolResultError(fmt.Sprintf("admin API returned status %d", resp.StatusCode)), nil
	}

	var out GetStackInfoOutput
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("decode admin API response: %s", err)), nil
	}
	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleSendRequest(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	payloadHex, err := requiredString(request, "payload_hex")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	payload, err := hex.DecodeString(payloadHex)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid hex payload: %s", err)), nil
	}

	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	c, err := bridge.Dial(reqCtx, s.bridgeAddr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("dial bridge: %s", err)), nil
	}
	defer c.Close()

	reply, err := c.Request(reqCtx, payload)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("request failed: %s", err)), nil
	}

	out := SendRequestOutput{ReplyHex: hex.EncodeToString(reply)}
	return mcp.NewToolResultText(formatJSON(out)), nil
}

// --- helpers ---

func requiredString(request mcp.CallToolRequest, key string) (string, error) {
	args := request.GetArguments()
	v, ok := args[key]
	if !ok || v == nil {
		return "", fmt.Errorf("required parameter %q is missing", key)
	}
	str, ok := v.(string)
	if !ok || str == "" {
		return "", fmt.Errorf("parameter %q must be a non-empty string", key)
	}
	return str, nil
}

func formatJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error":"failed to marshal response: %s"}`, err)
	}
	return string(b)
}
