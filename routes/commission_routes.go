package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/tripledger/travel_backend/controllers"
	"github.com/tripledger/travel_backend/middleware"
)

// RegisterCommissionRoutes sets up the commission lifecycle routes
func RegisterCommissionRoutes(e *echo.Echo, commissionController *controllers.CommissionController) {
	r := e.Group("/api")
	r.Use(middleware.JWTMiddleware())

	r.GET("/commissions/agent/:agentId", commissionController.ListByAgent)
	r.GET("/commissions/invoice/:invoiceId", commissionController.ListByInvoice)
	r.POST("/commissions/:id/dispute", commissionController.Dispute)

	admin := r.Group("", middleware.RequireUserType("admin", "manager"))
	admin.POST("/commissions/:id/approve", commissionController.Approve)
	admin.POST("/commissions/:id/mark-paid", commissionController.MarkPaid)
	admin.POST("/commissions/:id/clawback", commissionController.ApplyClawback)
}
