package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/tripledger/travel_backend/controllers"
	"github.com/tripledger/travel_backend/middleware"
)

// RegisterFinanceRoutes sets up expense and reporting routes
func RegisterFinanceRoutes(e *echo.Echo, expenseController *controllers.ExpenseController, reportController *controllers.ReportController) {
	r := e.Group("/api")
	r.Use(middleware.JWTMiddleware())

	r.POST("/expenses", expenseController.CreateExpense)
	r.GET("/expenses", expenseController.ListExpenses)

	admin := r.Group("", middleware.RequireUserType("admin", "manager"))
	admin.POST("/expenses/:id/approve", expenseController.ApproveExpense)
	admin.POST("/expenses/:id/reject", expenseController.RejectExpense)
	admin.GET("/reports/financial-summary", reportController.GetFinancialSummary)
}
