package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/tripledger/travel_backend/controllers"
	"github.com/tripledger/travel_backend/middleware"
)

// RegisterPaymentRoutes sets up the payment confirmation webhook and the
// fund allocation routes
func RegisterPaymentRoutes(e *echo.Echo, paymentController *controllers.PaymentController, allocationController *controllers.AllocationController) {
	// Gateway callback - authenticated by gateway verification + intent
	// dedup rather than a user token
	e.POST("/api/payments/confirm", paymentController.HandleConfirmation)

	r := e.Group("/api")
	r.Use(middleware.JWTMiddleware())

	r.GET("/allocations/:id", allocationController.GetAllocation)
	r.GET("/allocations/invoice/:invoiceId", allocationController.ListByInvoice)

	admin := r.Group("", middleware.RequireUserType("admin", "manager"))
	admin.POST("/allocations/:id/release", allocationController.ReleaseEscrow)
}
