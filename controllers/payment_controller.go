package controllers

import (
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tripledger/travel_backend/models"
	"github.com/tripledger/travel_backend/services"
)

// PaymentController handles payment-confirmation events from the
// payment processor
type PaymentController struct {
	payments *services.PaymentService
}

// NewPaymentController creates a new payment controller
func NewPaymentController(payments *services.PaymentService) *PaymentController {
	return &PaymentController{payments: payments}
}

// HandleConfirmation applies one payment-confirmation event. Deliveries
// are idempotent by payment-intent id, so the processor may retry freely.
func (pc *PaymentController) HandleConfirmation(c echo.Context) error {
	var conf models.PaymentConfirmation
	if err := c.Bind(&conf); err != nil {
		return badRequest(c, "Invalid request")
	}
	if err := c.Validate(&conf); err != nil {
		return badRequest(c, err.Error())
	}

	log.Printf("==========================================")
	log.Printf("Payment confirmation received: intent %s, invoice %s, $%.2f (%s)",
		conf.PaymentIntentID, conf.InvoiceID, conf.Amount, conf.Status)

	outcome, err := pc.payments.ApplyConfirmation(c.Request().Context(), conf)
	if err != nil {
		log.Printf("Payment confirmation for intent %s failed: %v", conf.PaymentIntentID, err)
		log.Printf("==========================================")
		return respondError(c, err)
	}

	log.Printf("Payment confirmation for intent %s applied (invoice status: %s)",
		conf.PaymentIntentID, outcome.Invoice.Status)
	log.Printf("==========================================")

	message := "Payment recorded successfully"
	if outcome.Duplicate {
		message = "Payment already processed"
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: message,
		Data:    outcome,
	})
}
