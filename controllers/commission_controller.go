package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tripledger/travel_backend/models"
	"github.com/tripledger/travel_backend/services"
)

// CommissionController handles commission lifecycle endpoints
type CommissionController struct {
	commissions *services.CommissionService
}

// NewCommissionController creates a new commission controller
func NewCommissionController(commissions *services.CommissionService) *CommissionController {
	return &CommissionController{commissions: commissions}
}

type disputeRequest struct {
	Note string `json:"note"`
}

// Approve moves a pending commission to approved
func (cc *CommissionController) Approve(c echo.Context) error {
	commissionID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return badRequest(c, "Invalid commission ID")
	}

	approvedBy := approverFromContext(c)
	commission, err := cc.commissions.Approve(c.Request().Context(), commissionID, approvedBy)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Commission approved successfully",
		Data:    commission,
	})
}

// MarkPaid moves an approved commission to paid
func (cc *CommissionController) MarkPaid(c echo.Context) error {
	commissionID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return badRequest(c, "Invalid commission ID")
	}

	commission, err := cc.commissions.MarkPaid(c.Request().Context(), commissionID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Commission marked as paid",
		Data:    commission,
	})
}

// Dispute flags a commission as disputed with an optional note
func (cc *CommissionController) Dispute(c echo.Context) error {
	commissionID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return badRequest(c, "Invalid commission ID")
	}

	var req disputeRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request")
	}

	commission, err := cc.commissions.Dispute(c.Request().Context(), commissionID, req.Note)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Commission disputed",
		Data:    commission,
	})
}

// ApplyClawback records a clawback against a paid commission
func (cc *CommissionController) ApplyClawback(c echo.Context) error {
	var req models.ClawbackRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request")
	}
	req.CommissionID = c.Param("id")
	if err := c.Validate(&req); err != nil {
		return badRequest(c, err.Error())
	}

	commission, err := cc.commissions.ApplyClawback(c.Request().Context(), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Clawback applied successfully",
		Data:    commission,
	})
}

// ListByAgent returns every commission earned by one agent
func (cc *CommissionController) ListByAgent(c echo.Context) error {
	agentID, err := primitive.ObjectIDFromHex(c.Param("agentId"))
	if err != nil {
		return badRequest(c, "Invalid agent ID")
	}

	commissions, err := cc.commissions.ListByAgent(c.Request().Context(), agentID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Commissions retrieved successfully",
		Data:    commissions,
	})
}

// ListByInvoice returns the commissions created for an invoice
func (cc *CommissionController) ListByInvoice(c echo.Context) error {
	invoiceID, err := primitive.ObjectIDFromHex(c.Param("invoiceId"))
	if err != nil {
		return badRequest(c, "Invalid invoice ID")
	}

	commissions, err := cc.commissions.ListByInvoice(c.Request().Context(), invoiceID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Commissions retrieved successfully",
		Data:    commissions,
	})
}

// approverFromContext pulls the authenticated user id set by the JWT
// middleware, nil when the route is unauthenticated.
func approverFromContext(c echo.Context) *primitive.ObjectID {
	claim, ok := c.Get("userId").(string)
	if !ok || claim == "" {
		return nil
	}
	id, err := primitive.ObjectIDFromHex(claim)
	if err != nil {
		return nil
	}
	return &id
}
