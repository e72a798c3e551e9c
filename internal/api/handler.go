package api

import (
	"context"
	"net/http"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger is a dependency checked by the readiness probe
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services groups the business services the handlers call
type Services struct {
	Catalog    *service.CatalogService
	Promotions *service.PromotionService
	Shipping   *service.ShippingService
	Checkout   *service.CheckoutService
	Orders     *service.OrderService
	Access     *service.AccessService
}

// Handler contains HTTP handlers
type Handler struct {
	svc    Services
	checks map[string]Pinger
}

// NewHandler creates a new HTTP handler.
// checks are pinged by /ready, keyed by the name reported on failure.
func NewHandler(svc Services, checks map[string]Pinger) *Handler {
	return &Handler{
		svc:    svc,
		checks: checks,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(requestIDMiddleware())
	router.Use(recoveryMiddleware())
	router.Use(prometheusMiddleware())
	router.Use(accessLogMiddleware())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/categories", h.listCategories)
		v1.GET("/products", h.listProducts)
		v1.GET("/products/:id", h.getProduct)
		v1.GET("/flash-sales", h.listFlashSales)
		v1.GET("/coupons", h.listCoupons)
		v1.POST("/coupons/validate", h.validateCoupon)
		v1.GET("/shipping/quote", h.quoteShipping)
		v1.POST("/orders", h.createOrder)
		v1.GET("/orders/:id", h.getOrder)
	}

	admin := router.Group("/admin", h.actorMiddleware())
	{
		admin.GET("/orders", h.require(models.PermOrdersView), h.listOrders)
		admin.PATCH("/orders/:id/status", h.require(models.PermOrdersUpdate), h.changeOrderStatus)
		admin.PATCH("/orders/:id", h.require(models.PermOrdersUpdate), h.updateOrder)
		admin.DELETE("/orders/:id", h.require(models.PermOrdersDelete), h.deleteOrder)
		admin.POST("/flash-sales", h.require(models.PermFlashSalesManage), h.createFlashSale)
		admin.PATCH("/flash-sales/:id/status", h.require(models.PermFlashSalesManage), h.setFlashSaleStatus)
		admin.POST("/coupons", h.require(models.PermCouponsManage), h.createCoupon)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck reports ready only when every dependency answers
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := gin.H{}
	for name, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"failed": failed,
			"time":   time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}
