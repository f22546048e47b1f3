package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/julianne-glitch/xafpay-checkout-frontend/internal/handlers"
	"github.com/julianne-glitch/xafpay-checkout-frontend/internal/service"
	"github.com/julianne-glitch/xafpay-checkout-frontend/internal/telemetry"
)

func NewRouter(controller *service.Controller, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(telemetry.TracingMiddleware())

	// Prometheus metrics
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	checkoutHandler := handlers.NewCheckoutHandler(controller, logger)

	r.GET("/health", checkoutHandler.Health)

	// Checkout routes
	r.GET("/checkout", checkoutHandler.CreateSession)
	r.POST("/checkout/:id/pay", checkoutHandler.Pay)
	r.GET("/checkout/:id", checkoutHandler.GetState)
	r.DELETE("/checkout/:id", checkoutHandler.CancelSession)
	r.GET("/sessions", checkoutHandler.ListSessions)

	return r
}
