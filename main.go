package main

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/tripledger/travel_backend/config"
	"github.com/tripledger/travel_backend/controllers"
	"github.com/tripledger/travel_backend/middleware"
	"github.com/tripledger/travel_backend/repositories"
	"github.com/tripledger/travel_backend/routes"
	"github.com/tripledger/travel_backend/services"
	"github.com/tripledger/travel_backend/utils"
)

// CustomValidator is a custom validator for Echo
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates the request body
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

func main() {
	// Load .env file
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: .env file not found")
	}

	// Connect to Redis
	redisClient := config.ConnectRedis()

	// Connect to database
	client := config.ConnectDB()
	db := config.GetDatabase(client)

	// Create a new Echo instance
	e := echo.New()

	// Initialize custom validator
	customValidator := &CustomValidator{validator: validator.New()}
	e.Validator = customValidator

	// Initialize rate limiter
	rateLimiter := middleware.NewRateLimiter()

	// Middleware
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(middleware.GlobalCORS())
	e.Use(rateLimiter.RateLimit())
	e.Use(middleware.SecurityHeaders())

	e.Match([]string{"GET", "HEAD"}, "/", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"status":  "OK",
			"message": "TripLedger Backend is running",
			"version": "1.0",
		})
	})

	e.Match([]string{"GET", "HEAD"}, "/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"status":   "healthy",
			"database": "connected",
		})
	})

	e.Use(httpsRedirect())

	// Initialize repositories
	invoiceRepo := repositories.NewInvoiceRepository(db)
	commissionRepo := repositories.NewCommissionRepository(db)
	ruleRepo := repositories.NewCommissionRuleRepository(db)
	allocationRepo := repositories.NewAllocationRepository(db)
	expenseRepo := repositories.NewExpenseRepository(db)
	policyRepo := repositories.NewPolicyRepository(db, config.DefaultFinancePolicy())

	// Initialize services
	var mailer services.InvoiceMailer
	if m := utils.NewSMTPInvoiceMailer(); m != nil {
		mailer = m
	}
	var gateway services.PaymentGateway
	if g := services.NewPaymentGatewayFromEnv(); g != nil {
		gateway = g
	}
	commissionService := services.NewCommissionService(ruleRepo, commissionRepo, policyRepo)
	ledgerService := services.NewLedgerService(invoiceRepo, policyRepo, mailer)
	allocationService := services.NewAllocationService(allocationRepo, commissionService)
	refundService := services.NewRefundService(invoiceRepo, allocationRepo, commissionRepo, policyRepo, ledgerService, allocationService)
	reportService := services.NewReportService(invoiceRepo, commissionRepo, expenseRepo)
	paymentService := services.NewPaymentService(ledgerService, allocationService, gateway, redisClient)

	// Initialize controllers and register routes
	routes.SetupRoutes(e, routes.Controllers{
		Invoices:    controllers.NewInvoiceController(ledgerService),
		Payments:    controllers.NewPaymentController(paymentService),
		Commissions: controllers.NewCommissionController(commissionService),
		Allocations: controllers.NewAllocationController(allocationService),
		Refunds:     controllers.NewRefundController(refundService),
		Expenses:    controllers.NewExpenseController(expenseRepo),
		Reports:     controllers.NewReportController(reportService),
	})

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	e.Logger.Fatal(e.Start(":" + port))
}

func httpsRedirect() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Header.Get("X-Forwarded-Proto") == "http" {
				return c.Redirect(301, "https://"+c.Request().Host+c.Request().RequestURI)
			}
			return next(c)
		}
	}
}
