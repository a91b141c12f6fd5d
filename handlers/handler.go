package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"feasto-api/apperr"
	"feasto-api/middleware"
	"feasto-api/policy"
	"feasto-api/services"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// Handler maps HTTP requests onto the service layer.
type Handler struct {
	auth      *services.AuthService
	users     *services.UserService
	food      *services.FoodService
	orders    *services.OrderService
	enquiries *services.EnquiryService
	dashboard *services.DashboardService
	policy    *policy.Policy
	log       *logrus.Logger
}

type Services struct {
	Auth      *services.AuthService
	Users     *services.UserService
	Food      *services.FoodService
	Orders    *services.OrderService
	Enquiries *services.EnquiryService
	Dashboard *services.DashboardService
}

func New(svc Services, p *policy.Policy, log *logrus.Logger) *Handler {
	RegisterValidators()
	return &Handler{
		auth:      svc.Auth,
		users:     svc.Users,
		food:      svc.Food,
		orders:    svc.Orders,
		enquiries: svc.Enquiries,
		dashboard: svc.Dashboard,
		policy:    p,
		log:       log,
	}
}

// respondError renders err as {"error": ..., "fields": ...}. Internal causes
// are logged and never sent to the client.
func (h *Handler) respondError(c *gin.Context, err error) {
	appErr := apperr.As(err)
	if appErr.Code >= http.StatusInternalServerError {
		h.log.WithFields(logrus.Fields{
			"request_id": middleware.GetRequestID(c),
			"path":       c.FullPath(),
		}).WithError(err).Error("request failed")
		_ = c.Error(err)
	}
	c.JSON(appErr.Code, appErr)
}

// allow checks op up front so that an unauthorized caller learns that before
// any complaint about the request body.
func (h *Handler) allow(c *gin.Context, op policy.Operation) (policy.Caller, bool) {
	caller := middleware.CurrentCaller(c)
	if err := h.policy.Authorize(op, caller); err != nil {
		h.respondError(c, err)
		return caller, false
	}
	return caller, true
}

// bind decodes the JSON body into req, rendering a 400 on failure.
func (h *Handler) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			h.respondError(c, apperr.Validation("Invalid request", fieldErrors(verrs)))
			return false
		}
		h.respondError(c, apperr.Validation("Malformed request body", map[string]string{"body": err.Error()}))
		return false
	}
	return true
}

func (h *Handler) pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		h.respondError(c, apperr.NotFound("Resource"))
		return 0, false
	}
	return uint(id), true
}
