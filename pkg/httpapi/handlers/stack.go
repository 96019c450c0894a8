package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/edbgstack/edbgstack/pkg/httpapi/types"
	"github.com/edbgstack/edbgstack/pkg/stack"
)

// StackHandler handles stack introspection and traffic-counter endpoints.
type StackHandler struct {
	st          *stack.Stack
	description string
}

// NewStackHandler creates a new stack handler for the running stack,
// described by description (the grammar string it was built from).
func NewStackHandler(st *stack.Stack, description string) *StackHandler {
	return &StackHandler{st: st, description: description}
}

// Stack handles GET /stack.
// @Summary      Stack introspection
// @Description  Lists the composed stack's layers, top to bottom, with each layer's MTU
// @Tags         stack
// @Produce      json
// @Success      200  {object}  types.StackResponse
// @Router       /stack [get]
func (h *StackHandler) Stack(c *gin.Context) {
	var layers []types.StackLayerInfo
	h.st.Walk(func(l stack.Layer) {
		layers = append(layers, types.StackLayerInfo{
			Type: layerTypeName(l),
			MTU:  l.MTU(),
		})
	})

	c.JSON(http.StatusOK, types.StackResponse{
		Description: h.description,
		Layers:      layers,
	})
}

// Stats handles GET /stats.
// @Summary      Traffic counters
// @Description  Reports cumulative encode/decode call and byte counts for the running stack
// @Tags         stack
// @Produce      json
// @Success      200  {object}  types.StatsResponse
// @Router       /stats [get]
func (h *StackHandler) Stats(c *gin.Context) {
	s := h.st.Stats()
	c.JSON(http.StatusOK, types.StatsResponse{
		EncodeCount: s.EncodeCount,
		DecodeCount: s.DecodeCount,
		EncodeBytes: s.EncodeBytes,
		DecodeBytes: s.DecodeBytes,
	})
}

// layerTypeName derives a short, stable layer name from its Go type,
// since Layer carries no name of its own (the registry only keeps the
// constructor, not the name it was registered under).
func layerTypeName(l stack.Layer) string {
	t := fmt.Sprintf("%T", l)
	if idx := strings.LastIndex(t, "."); idx >= 0 {
		t = t[idx+1:]
	}
	return strings.TrimPrefix(t, "*")
}
