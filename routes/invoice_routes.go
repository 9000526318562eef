package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/tripledger/travel_backend/controllers"
	"github.com/tripledger/travel_backend/middleware"
)

// RegisterInvoiceRoutes sets up the invoice lifecycle routes
func RegisterInvoiceRoutes(e *echo.Echo, invoiceController *controllers.InvoiceController) {
	r := e.Group("/api")
	r.Use(middleware.JWTMiddleware())

	r.POST("/invoices/accept-quote", invoiceController.AcceptQuote)
	r.GET("/invoices", invoiceController.ListInvoices)
	r.GET("/invoices/:id", invoiceController.GetInvoice)
	r.POST("/invoices/:id/send", invoiceController.MarkAsSent)

	// Cancelling a paid invoice is rejected by the service; the route is
	// still restricted to back-office roles
	admin := r.Group("", middleware.RequireUserType("admin", "manager"))
	admin.POST("/invoices/:id/cancel", invoiceController.CancelInvoice)
}
