package handlers

import (
	"net/http"
	"strconv"

	"feasto-api/apperr"
	"feasto-api/middleware"
	"feasto-api/policy"
	"feasto-api/services"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type FoodRequest struct {
	Name        *string          `json:"name" binding:"omitempty,max=200"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price" binding:"omitempty,gte=0"`
	Category    *string          `json:"category" binding:"omitempty,max=50"`
	ImageFile   *string          `json:"image_file" binding:"omitempty,max=255"`
	ImageURL    *string          `json:"image_url" binding:"omitempty,max=500"`
	Available   *bool            `json:"available"`
}

func (r FoodRequest) input() services.FoodInput {
	return services.FoodInput{
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		Category:    r.Category,
		ImageFile:   r.ImageFile,
		ImageURL:    r.ImageURL,
		Available:   r.Available,
	}
}

// ListFood returns the menu, filterable by ?available= and ?category=
func (h *Handler) ListFood(c *gin.Context) {
	var filter services.FoodFilter
	if raw := c.Query("available"); raw != "" {
		available, err := strconv.ParseBool(raw)
		if err != nil {
			h.respondError(c, apperr.Field("available", "Must be a valid boolean."))
			return
		}
		filter.Available = &available
	}
	filter.Category = c.Query("category")

	items, err := h.food.List(c.Request.Context(), middleware.CurrentCaller(c), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) GetFood(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	item, err := h.food.Get(c.Request.Context(), middleware.CurrentCaller(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *Handler) CreateFood(c *gin.Context) {
	caller, ok := h.allow(c, policy.FoodWrite)
	if !ok {
		return
	}
	var req FoodRequest
	if !h.bind(c, &req) {
		return
	}
	item, err := h.food.Create(c.Request.Context(), caller, req.input())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h *Handler) UpdateFood(c *gin.Context) {
	caller, ok := h.allow(c, policy.FoodWrite)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req FoodRequest
	if !h.bind(c, &req) {
		return
	}
	item, err := h.food.Update(c.Request.Context(), caller, id, req.input())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *Handler) DeleteFood(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	if err := h.food.Delete(c.Request.Context(), middleware.CurrentCaller(c), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
