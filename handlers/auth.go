package handlers

import (
	"net/http"

	"feasto-api/middleware"
	"feasto-api/models"
	"feasto-api/policy"
	"feasto-api/services"

	"github.com/gin-gonic/gin"
)

type RegisterRequest struct {
	Username        string          `json:"username" binding:"required,max=150"`
	Email           string          `json:"email" binding:"omitempty,email"`
	Password        string          `json:"password" binding:"required,min=6"`
	ConfirmPassword string          `json:"confirm_password" binding:"required"`
	FirstName       string          `json:"first_name" binding:"max=150"`
	LastName        string          `json:"last_name" binding:"max=150"`
	Phone           *string         `json:"phone" binding:"omitempty,max=15"`
	Address         *string         `json:"address"`
	// Self-registration may pick any role, admin included.
	Role            models.UserRole `json:"role" binding:"omitempty,oneof=customer admin delivery"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type ChangePasswordRequest struct {
	OldPassword     string `json:"old_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

// Register creates a new user account
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if !h.bind(c, &req) {
		return
	}
	user, err := h.auth.Register(c.Request.Context(), services.RegisterInput{
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Phone:           req.Phone,
		Address:         req.Address,
		Role:            req.Role,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"user":    user,
	})
}

// Login authenticates and returns a bearer token
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if !h.bind(c, &req) {
		return
	}
	user, token, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"token":   token,
		"user":    user,
	})
}

// Logout revokes the presented token, if any
func (h *Handler) Logout(c *gin.Context) {
	if err := h.auth.Logout(c.Request.Context(), middleware.CurrentClaims(c)); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logout successful"})
}

func (h *Handler) ChangePassword(c *gin.Context) {
	caller, ok := h.allow(c, policy.AuthChangePassword)
	if !ok {
		return
	}
	var req ChangePasswordRequest
	if !h.bind(c, &req) {
		return
	}
	err := h.auth.ChangePassword(c.Request.Context(), caller, services.ChangePasswordInput{
		OldPassword:     req.OldPassword,
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully"})
}

// Me returns the caller's own profile
func (h *Handler) Me(c *gin.Context) {
	caller := middleware.CurrentCaller(c)
	user, err := h.users.Get(c.Request.Context(), caller, caller.UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
