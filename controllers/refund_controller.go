package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tripledger/travel_backend/models"
	"github.com/tripledger/travel_backend/services"
)

// RefundController handles cancellation refund quotes and application
type RefundController struct {
	refunds *services.RefundService
}

// NewRefundController creates a new refund controller
func NewRefundController(refunds *services.RefundService) *RefundController {
	return &RefundController{refunds: refunds}
}

// CalculateRefund returns a refund preview without mutating anything
func (rc *RefundController) CalculateRefund(c echo.Context) error {
	var req models.CancellationRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, err.Error())
	}

	calc, err := rc.refunds.CalculateRefund(c.Request().Context(), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Refund calculated successfully",
		Data:    calc,
	})
}

// ApplyRefund computes and applies a refund to the invoice ledger
func (rc *RefundController) ApplyRefund(c echo.Context) error {
	var req models.CancellationRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, err.Error())
	}

	calc, err := rc.refunds.ApplyRefund(c.Request().Context(), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Refund applied successfully",
		Data:    calc,
	})
}
