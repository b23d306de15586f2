package http

import "github.com/gin-gonic/gin"

// Register attaches project routes to the given router group.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/list", h.list)
	rg.GET("/get", h.get)
	rg.POST("/save", h.save)
	rg.POST("/clear", h.clear)
	rg.DELETE("/:id", h.delete)
}
