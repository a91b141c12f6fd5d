package handlers

import (
	"net/http"

	"feasto-api/middleware"
	"feasto-api/models"
	"feasto-api/services"

	"github.com/gin-gonic/gin"
)

type EnquiryRequest struct {
	Name    *string               `json:"name" binding:"omitempty,max=200"`
	Email   *string               `json:"email" binding:"omitempty,email"`
	Phone   *string               `json:"phone" binding:"omitempty,max=15"`
	Subject *string               `json:"subject" binding:"omitempty,max=200"`
	Message *string               `json:"message"`
	Status  *models.EnquiryStatus `json:"status" binding:"omitempty,oneof=new in_progress resolved"`
}

func (r EnquiryRequest) input() services.EnquiryInput {
	return services.EnquiryInput{
		Name:    r.Name,
		Email:   r.Email,
		Phone:   r.Phone,
		Subject: r.Subject,
		Message: r.Message,
		Status:  r.Status,
	}
}

func (h *Handler) ListEnquiries(c *gin.Context) {
	out, err := h.enquiries.List(c.Request.Context(), middleware.CurrentCaller(c), c.Query("status"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) GetEnquiry(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	e, err := h.enquiries.Get(c.Request.Context(), middleware.CurrentCaller(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

// CreateEnquiry accepts a public contact form submission
func (h *Handler) CreateEnquiry(c *gin.Context) {
	var req EnquiryRequest
	if !h.bind(c, &req) {
		return
	}
	e, err := h.enquiries.Create(c.Request.Context(), middleware.CurrentCaller(c), req.input())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

func (h *Handler) UpdateEnquiry(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req EnquiryRequest
	if !h.bind(c, &req) {
		return
	}
	e, err := h.enquiries.Update(c.Request.Context(), middleware.CurrentCaller(c), id, req.input())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (h *Handler) DeleteEnquiry(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	if err := h.enquiries.Delete(c.Request.Context(), middleware.CurrentCaller(c), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
