package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/tripledger/travel_backend/controllers"
)

// Controllers bundles the handler set wired in main.
type Controllers struct {
	Invoices    *controllers.InvoiceController
	Payments    *controllers.PaymentController
	Commissions *controllers.CommissionController
	Allocations *controllers.AllocationController
	Refunds     *controllers.RefundController
	Expenses    *controllers.ExpenseController
	Reports     *controllers.ReportController
}

// SetupRoutes configures all API routes by calling individual route registration functions
func SetupRoutes(e *echo.Echo, c Controllers) {
	RegisterInvoiceRoutes(e, c.Invoices)
	RegisterPaymentRoutes(e, c.Payments, c.Allocations)
	RegisterCommissionRoutes(e, c.Commissions)
	RegisterRefundRoutes(e, c.Refunds)
	RegisterFinanceRoutes(e, c.Expenses, c.Reports)
}
