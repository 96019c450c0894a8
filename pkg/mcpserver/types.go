package mcpserver

// --- get_health tool ---

// GetHealthOutput is the output of the get_health tool.
type GetHealthOutput struct {
	Status    string `json:"status" jsonschema:"description=healthy or unhealthy"`
	Detail    string `json:"detail" jsonschema:"description=Human-readable connectivity detail"`
	Timestamp string `json:"timestamp" jsonschema:"description=ISO8601 timestamp"`
}

// --- get_stack_info tool ---

// GetStackInfoOutput is the output of the get_stack_info tool: a pass
// through of the admin API's /api/v1/stack response.
type GetStackInfoOutput struct {
	Description string           `json:"description" jsonschema:"description=Stack description grammar the daemon was configured with"`
	Layers      []StackLayerInfo `json:"layers" jsonschema:"description=Composed stack layers, top to bottom"`
}

// StackLayerInfo describes one layer in the composed stack.
type StackLayerInfo struct {
	Type string `json:"type" jsonschema:"description=Layer type name"`
	MTU  int    `json:"mtu" jsonschema:"description=Maximum payload this layer accepts, 0 if unbounded"`
}

// --- send_request tool ---

// SendRequestOutput is the output of the send_request tool.
type SendRequestOutput struct {
	ReplyHex string `json:"reply_hex" jsonschema:"description=Reply payload, hex-encoded"`
}
