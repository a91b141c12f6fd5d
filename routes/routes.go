package routes

import (
	"time"

	"feasto-api/handlers"
	"feasto-api/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

type Options struct {
	CORSOrigins       []string
	MediaRoot         string
	StrictTransitions bool
	// AuthLimiter throttles register and login per client IP. Nil disables it.
	AuthLimiter *middleware.RateLimiter
}

// NewRouter builds the engine with the shared middleware chain and all routes.
func NewRouter(h *handlers.Handler, resolver middleware.CallerResolver, log *logrus.Logger, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Recovery(log),
		middleware.RequestLogger(log),
		middleware.Metrics(),
		cors.New(corsConfig(opts.CORSOrigins)),
	)
	SetupRoutes(r, h, resolver, opts)
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

func SetupRoutes(r *gin.Engine, h *handlers.Handler, resolver middleware.CallerResolver, opts Options) {
	r.GET("/health", handlers.Health)
	r.GET("/", handlers.Root)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if opts.MediaRoot != "" {
		r.Static("/media", opts.MediaRoot)
	}

	api := r.Group("/api")
	api.Use(middleware.Authenticate(resolver))

	// ── Auth ───────────────────────────────────────────────────────
	authGroup := api.Group("/auth")
	{
		throttled := authGroup.Group("")
		if opts.AuthLimiter != nil {
			throttled.Use(opts.AuthLimiter.Handler())
		}
		throttled.POST("/register", h.Register)
		throttled.POST("/login", h.Login)

		authGroup.POST("/logout", h.Logout)
		authGroup.POST("/change-password", h.ChangePassword)
		authGroup.GET("/me", h.Me)
	}

	// ── Users ──────────────────────────────────────────────────────
	users := api.Group("/users")
	{
		users.GET("", h.ListUsers)
		users.GET("/:id", h.GetUser)
		users.PUT("/:id", h.UpdateUser)
		users.PATCH("/:id", h.UpdateUser)
		users.DELETE("/:id", h.DeleteUser)
	}

	// ── Menu ───────────────────────────────────────────────────────
	food := api.Group("/food")
	{
		food.GET("", h.ListFood)
		food.POST("", h.CreateFood)
		food.GET("/:id", h.GetFood)
		food.PUT("/:id", h.UpdateFood)
		food.PATCH("/:id", h.UpdateFood)
		food.DELETE("/:id", h.DeleteFood)
	}

	// ── Orders ─────────────────────────────────────────────────────
	orders := api.Group("/orders")
	{
		orders.GET("/lifecycle", h.OrderLifecycle(opts.StrictTransitions))
		orders.GET("", h.ListOrders)
		orders.POST("", h.CreateOrder)
		orders.GET("/:id", h.GetOrder)
		orders.PUT("/:id", h.UpdateOrder)
		orders.PATCH("/:id", h.UpdateOrder)
		orders.DELETE("/:id", h.DeleteOrder)
		orders.POST("/:id/update_status", h.UpdateOrderStatus)
		orders.POST("/:id/assign_delivery", h.AssignDelivery)
		orders.GET("/:id/history", h.OrderHistory)
	}

	// ── Enquiries ──────────────────────────────────────────────────
	enquiries := api.Group("/enquiries")
	{
		enquiries.GET("", h.ListEnquiries)
		enquiries.POST("", h.CreateEnquiry)
		enquiries.GET("/:id", h.GetEnquiry)
		enquiries.PUT("/:id", h.UpdateEnquiry)
		enquiries.PATCH("/:id", h.UpdateEnquiry)
		enquiries.DELETE("/:id", h.DeleteEnquiry)
	}

	api.GET("/dashboard/stats", h.DashboardStats)
}
