// Package httpapi is the daemon's admin HTTP API: health, stack
// introspection, and traffic counters, with a swagger UI — the same shape
// as the teacher's device-control API, pointed at a protocol stack instead
// of a device controller.
package httpapi

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/edbgstack/edbgstack/pkg/httpapi/handlers"
	"github.com/edbgstack/edbgstack/pkg/stack"
)

// Router holds the Gin engine and its dependencies.
type Router struct {
	engine *gin.Engine
	st     *stack.Stack
}

// NewRouter creates a new admin API router over the given stack.
// description is the grammar string the stack was built from, isConnected
// reports whether the bottom adapter currently has a live transport.
func NewRouter(st *stack.Stack, description string, isConnected func() bool) *Router {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	SetupMiddleware(engine)

	r := &Router{engine: engine, st: st}
	r.setupRoutes(description, isConnected)
	return r
}

func (r *Router) setupRoutes(description string, isConnected func() bool) {
	r.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.engine.GET("/docs", func(c *gin.Context) {
		c.Redirect(301, "/swagger/index.html")
	})

	healthHandler := handlers.NewHealthHandler(isConnected)
	stackHandler := handlers.NewStackHandler(r.st, description)

	r.engine.GET("/health", healthHandler.Health)

	v1 := r.engine.Group("/api/v1")
	{
		v1.GET("/health", healthHandler.Health)
		v1.GET("/stack", stackHandler.Stack)
		v1.GET("/stats", stackHandler.Stats)
	}
}

// Run starts the HTTP server.
func (r *Router) Run(addr string) error {
	return r.engine.Run(addr)
}
