package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/tripledger/travel_backend/controllers"
	"github.com/tripledger/travel_backend/middleware"
)

// RegisterRefundRoutes sets up the cancellation refund routes
func RegisterRefundRoutes(e *echo.Echo, refundController *controllers.RefundController) {
	r := e.Group("/api")
	r.Use(middleware.JWTMiddleware())

	// Preview is read-only and available to agents quoting a cancellation
	r.POST("/refunds/calculate", refundController.CalculateRefund)

	admin := r.Group("", middleware.RequireUserType("admin", "manager"))
	admin.POST("/refunds/apply", refundController.ApplyRefund)
}
