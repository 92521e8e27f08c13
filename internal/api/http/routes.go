package http

import "github.com/gin-gonic/gin"

// Register mounts every gateway route on r.
func (h *Handlers) Register(r gin.IRouter) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)
	r.GET("/metrics", h.Metrics)

	sessions := r.Group("/sessions")
	{
		sessions.GET("", h.ListSessions)
		sessions.POST("", h.Spawn)
		sessions.GET("/:id", h.GetSession)
		sessions.DELETE("/:id", h.Kill)
		sessions.POST("/:id/write", h.Write)
		sessions.POST("/:id/resize", h.Resize)
		sessions.GET("/:id/buffer", h.ReadBuffer)
	}

	r.POST("/control/reply", h.ControlReply)
	r.GET("/themes", h.Themes)
	r.GET("/distros", h.Distros)
}
