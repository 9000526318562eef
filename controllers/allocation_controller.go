package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tripledger/travel_backend/models"
	"github.com/tripledger/travel_backend/services"
)

// AllocationController handles fund allocation and escrow endpoints
type AllocationController struct {
	allocations *services.AllocationService
}

// NewAllocationController creates a new allocation controller
func NewAllocationController(allocations *services.AllocationService) *AllocationController {
	return &AllocationController{allocations: allocations}
}

// GetAllocation returns one fund allocation by id
func (ac *AllocationController) GetAllocation(c echo.Context) error {
	allocationID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return badRequest(c, "Invalid allocation ID")
	}

	allocation, err := ac.allocations.GetAllocation(c.Request().Context(), allocationID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Allocation retrieved successfully",
		Data:    allocation,
	})
}

// ListByInvoice returns every allocation created for one invoice
func (ac *AllocationController) ListByInvoice(c echo.Context) error {
	invoiceID, err := primitive.ObjectIDFromHex(c.Param("invoiceId"))
	if err != nil {
		return badRequest(c, "Invalid invoice ID")
	}

	allocations, err := ac.allocations.ListByInvoice(c.Request().Context(), invoiceID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Allocations retrieved successfully",
		Data:    allocations,
	})
}

// ReleaseEscrow releases held rows for a booking_confirmed,
// cancellation_window_closed, travel_completed or manual_override trigger
func (ac *AllocationController) ReleaseEscrow(c echo.Context) error {
	var req models.EscrowReleaseRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request")
	}
	req.AllocationID = c.Param("id")
	if err := c.Validate(&req); err != nil {
		return badRequest(c, err.Error())
	}

	allocation, err := ac.allocations.ReleaseEscrow(c.Request().Context(), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Escrow released successfully",
		Data:    allocation,
	})
}
