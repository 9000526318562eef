package controllers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tripledger/travel_backend/models"
	"github.com/tripledger/travel_backend/repositories"
	"github.com/tripledger/travel_backend/services"
)

// InvoiceController handles invoice lifecycle endpoints
type InvoiceController struct {
	ledger *services.LedgerService
}

// NewInvoiceController creates a new invoice controller
func NewInvoiceController(ledger *services.LedgerService) *InvoiceController {
	return &InvoiceController{ledger: ledger}
}

// AcceptQuote turns an accepted quote into a draft invoice
func (ic *InvoiceController) AcceptQuote(c echo.Context) error {
	var req models.QuoteAcceptanceRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, err.Error())
	}

	invoice, err := ic.ledger.CreateInvoice(c.Request().Context(), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Invoice created successfully",
		Data:    invoice,
	})
}

// GetInvoice returns one invoice by id
func (ic *InvoiceController) GetInvoice(c echo.Context) error {
	invoiceID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return badRequest(c, "Invalid invoice ID")
	}

	invoice, err := ic.ledger.GetInvoice(c.Request().Context(), invoiceID)
	if err != nil {
		return respondError(c, err)
	}

	// Overdue is derived at read time, never stored.
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Invoice retrieved successfully",
		Data: map[string]interface{}{
			"invoice":   invoice,
			"isOverdue": invoice.IsOverdue(time.Now()),
		},
	})
}

// ListInvoices returns invoices filtered by status, agent and date range
func (ic *InvoiceController) ListInvoices(c echo.Context) error {
	filter := repositories.InvoiceFilter{}
	if status := c.QueryParam("status"); status != "" {
		filter.Statuses = []string{status}
	}
	if agent := c.QueryParam("agentId"); agent != "" {
		agentID, err := primitive.ObjectIDFromHex(agent)
		if err != nil {
			return badRequest(c, "Invalid agent ID")
		}
		filter.AgentID = &agentID
	}
	if from := c.QueryParam("from"); from != "" {
		parsed, err := time.Parse("2006-01-02", from)
		if err != nil {
			return badRequest(c, "Invalid from date, expected YYYY-MM-DD")
		}
		filter.From = parsed
	}
	if to := c.QueryParam("to"); to != "" {
		parsed, err := time.Parse("2006-01-02", to)
		if err != nil {
			return badRequest(c, "Invalid to date, expected YYYY-MM-DD")
		}
		filter.To = parsed.AddDate(0, 0, 1)
	}

	invoices, err := ic.ledger.ListInvoices(c.Request().Context(), filter)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Invoices retrieved successfully",
		Data:    invoices,
	})
}

// MarkAsSent transitions a draft invoice to sent and emails the customer
func (ic *InvoiceController) MarkAsSent(c echo.Context) error {
	invoiceID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return badRequest(c, "Invalid invoice ID")
	}

	invoice, err := ic.ledger.MarkAsSent(c.Request().Context(), invoiceID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Invoice sent successfully",
		Data:    invoice,
	})
}

// CancelInvoice cancels a non-paid invoice
func (ic *InvoiceController) CancelInvoice(c echo.Context) error {
	invoiceID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return badRequest(c, "Invalid invoice ID")
	}

	invoice, err := ic.ledger.Cancel(c.Request().Context(), invoiceID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Invoice cancelled successfully",
		Data:    invoice,
	})
}
