package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"feasto-api/auth"
	"feasto-api/config"
	"feasto-api/handlers"
	"feasto-api/middleware"
	"feasto-api/policy"
	"feasto-api/routes"
	"feasto-api/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 30 * time.Second
	shutdownTimeout   = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	log := config.NewLogger(cfg)

	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	db, err := config.OpenDB(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	if err := config.Migrate(db); err != nil {
		log.WithError(err).Fatal("failed to migrate database")
	}
	log.WithField("driver", cfg.DBDriver).Info("database ready")

	revocations := revocationStore(cfg, log)
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL, revocations)
	p := policy.New(policy.Options{AdminOnlyMenuWrites: cfg.AdminOnlyMenuWrites})

	authSvc := services.NewAuthService(db, tokens, p, log)
	h := handlers.New(handlers.Services{
		Auth:  authSvc,
		Users: services.NewUserService(db, p, log),
		Food:  services.NewFoodService(db, p, log),
		Orders: services.NewOrderService(db, p, log, services.OrderOptions{
			StrictTransitions: cfg.StrictOrderTransitions,
			VerifyTotal:       cfg.VerifyOrderTotal,
		}),
		Enquiries: services.NewEnquiryService(db, p),
		Dashboard: services.NewDashboardService(db, p),
	}, p, log)

	router := routes.NewRouter(h, authSvc, log, routes.Options{
		CORSOrigins:       cfg.CORSOrigins,
		MediaRoot:         cfg.MediaRoot,
		StrictTransitions: cfg.StrictOrderTransitions,
		AuthLimiter:       middleware.NewRateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	log.Info("server stopped")
}

// revocationStore picks redis when REDIS_URL is set, memory otherwise.
func revocationStore(cfg *config.Config, log *logrus.Logger) auth.RevocationStore {
	if cfg.RedisURL == "" {
		return auth.NewMemoryRevocations()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, err := auth.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to redis")
	}
	log.Info("token revocations stored in redis")
	return auth.NewRedisRevocations(client)
}
