package handlers

import (
	"net/http"

	"feasto-api/middleware"

	"github.com/gin-gonic/gin"
)

// DashboardStats returns order, customer and revenue figures for admins
func (h *Handler) DashboardStats(c *gin.Context) {
	stats, err := h.dashboard.Stats(c.Request.Context(), middleware.CurrentCaller(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
