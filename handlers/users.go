package handlers

import (
	"net/http"

	"feasto-api/middleware"
	"feasto-api/models"
	"feasto-api/policy"
	"feasto-api/services"

	"github.com/gin-gonic/gin"
)

type UpdateUserRequest struct {
	Email     *string          `json:"email" binding:"omitempty,email"`
	FirstName *string          `json:"first_name" binding:"omitempty,max=150"`
	LastName  *string          `json:"last_name" binding:"omitempty,max=150"`
	Phone     *string          `json:"phone" binding:"omitempty,max=15"`
	Address   *string          `json:"address"`
	Role      *models.UserRole `json:"role" binding:"omitempty,oneof=customer admin delivery"`
	IsActive  *bool            `json:"is_active"`
}

// ListUsers returns every user, optionally filtered by ?role=
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.users.List(c.Request.Context(), middleware.CurrentCaller(c), services.UserFilter{Role: c.Query("role")})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *Handler) GetUser(c *gin.Context) {
	caller, ok := h.allow(c, policy.UserRetrieve)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	user, err := h.users.Get(c.Request.Context(), caller, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateUser serves both PUT and PATCH; absent fields are left as they are.
func (h *Handler) UpdateUser(c *gin.Context) {
	caller, ok := h.allow(c, policy.UserUpdate)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req UpdateUserRequest
	if !h.bind(c, &req) {
		return
	}
	user, err := h.users.Update(c.Request.Context(), caller, id, services.UpdateUserInput{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Address:   req.Address,
		Role:      req.Role,
		IsActive:  req.IsActive,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) DeleteUser(c *gin.Context) {
	caller, ok := h.allow(c, policy.UserDelete)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	if err := h.users.Delete(c.Request.Context(), caller, id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
