package handlers

import (
	"net/http"

	"feasto-api/middleware"
	"feasto-api/models"
	"feasto-api/policy"
	"feasto-api/services"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type OrderItemRequest struct {
	FoodItem uint             `json:"food_item" binding:"required"`
	Name     string           `json:"name" binding:"max=200"`
	Quantity *int             `json:"quantity" binding:"omitempty,min=1"`
	Price    *decimal.Decimal `json:"price" binding:"omitempty,gte=0"`
}

type CreateOrderRequest struct {
	Customer            *uint                `json:"customer"`
	CustomerName        string               `json:"customer_name" binding:"max=200"`
	DeliveryAddress     string               `json:"delivery_address" binding:"required"`
	PhoneNumber         string               `json:"phone_number" binding:"required,max=15"`
	SpecialInstructions *string              `json:"special_instructions"`
	PaymentMethod       models.PaymentMethod `json:"payment_method" binding:"required,oneof=cash card"`
	Total               *decimal.Decimal     `json:"total" binding:"required,gte=0"`
	Items               []OrderItemRequest   `json:"items" binding:"required,min=1,dive"`
}

type UpdateOrderRequest struct {
	DeliveryAddress     *string               `json:"delivery_address"`
	PhoneNumber         *string               `json:"phone_number" binding:"omitempty,max=15"`
	SpecialInstructions *string               `json:"special_instructions"`
	PaymentMethod       *models.PaymentMethod `json:"payment_method" binding:"omitempty,oneof=cash card"`
	Status              *string               `json:"status"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type AssignDeliveryRequest struct {
	DeliveryStaffID *uint `json:"delivery_staff_id"`
}

// ListOrders returns the orders visible to the caller, filterable by ?status=
func (h *Handler) ListOrders(c *gin.Context) {
	orders, err := h.orders.List(c.Request.Context(), middleware.CurrentCaller(c), services.OrderFilter{Status: c.Query("status")})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *Handler) GetOrder(c *gin.Context) {
	caller, ok := h.allow(c, policy.OrderRetrieve)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	order, err := h.orders.Get(c.Request.Context(), caller, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// CreateOrder places an order with its line items
func (h *Handler) CreateOrder(c *gin.Context) {
	caller, ok := h.allow(c, policy.OrderCreate)
	if !ok {
		return
	}
	var req CreateOrderRequest
	if !h.bind(c, &req) {
		return
	}

	items := make([]services.OrderItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		qty := 1
		if it.Quantity != nil {
			qty = *it.Quantity
		}
		items = append(items, services.OrderItemInput{
			FoodItemID: it.FoodItem,
			Name:       it.Name,
			Quantity:   qty,
			Price:      it.Price,
		})
	}
	order, err := h.orders.Create(c.Request.Context(), caller, services.CreateOrderInput{
		CustomerID:          req.Customer,
		CustomerName:        req.CustomerName,
		DeliveryAddress:     req.DeliveryAddress,
		PhoneNumber:         req.PhoneNumber,
		SpecialInstructions: req.SpecialInstructions,
		PaymentMethod:       req.PaymentMethod,
		Total:               *req.Total,
		Items:               items,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *Handler) UpdateOrder(c *gin.Context) {
	caller, ok := h.allow(c, policy.OrderUpdate)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req UpdateOrderRequest
	if !h.bind(c, &req) {
		return
	}
	order, err := h.orders.Update(c.Request.Context(), caller, id, services.UpdateOrderInput{
		DeliveryAddress:     req.DeliveryAddress,
		PhoneNumber:         req.PhoneNumber,
		SpecialInstructions: req.SpecialInstructions,
		PaymentMethod:       req.PaymentMethod,
		Status:              req.Status,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) DeleteOrder(c *gin.Context) {
	caller, ok := h.allow(c, policy.OrderDelete)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	if err := h.orders.Delete(c.Request.Context(), caller, id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UpdateOrderStatus sets any recognized status on an order
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	caller, ok := h.allow(c, policy.OrderUpdateStatus)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if !h.bind(c, &req) {
		return
	}
	order, err := h.orders.UpdateStatus(c.Request.Context(), caller, id, req.Status)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// AssignDelivery hands the order to a delivery user
func (h *Handler) AssignDelivery(c *gin.Context) {
	caller, ok := h.allow(c, policy.OrderAssignDelivery)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req AssignDeliveryRequest
	if !h.bind(c, &req) {
		return
	}
	order, err := h.orders.AssignDelivery(c.Request.Context(), caller, id, req.DeliveryStaffID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) OrderHistory(c *gin.Context) {
	caller, ok := h.allow(c, policy.OrderHistory)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	history, err := h.orders.History(c.Request.Context(), caller, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order_id": id, "history": history})
}
