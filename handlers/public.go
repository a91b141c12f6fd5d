package handlers

import (
	"net/http"

	"feasto-api/models"
	"feasto-api/statemachine"

	"github.com/gin-gonic/gin"
)

const (
	serviceName    = "Feasto Food Ordering API"
	serviceVersion = "1.0.0"
)

// OrderLifecycle documents the order state machine
func (h *Handler) OrderLifecycle(strict bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		enforcement := "permissive: any recognized status is accepted"
		if strict {
			enforcement = "strict: only the transitions listed are accepted"
		}
		c.JSON(http.StatusOK, gin.H{
			"statuses":        models.OrderStatuses,
			"transitions":     statemachine.GetAllTransitions(),
			"terminal_states": statemachine.TerminalStates(),
			"enforcement":     enforcement,
			"description":     "Food order lifecycle. assign_delivery always moves an order to out_for_delivery.",
		})
	}
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": serviceName,
		"version": serviceVersion,
	})
}

func Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Welcome to the " + serviceName,
		"docs":    "/api/orders/lifecycle",
		"health":  "/health",
		"roles":   []models.UserRole{models.RoleCustomer, models.RoleAdmin, models.RoleDelivery},
	})
}
