package controllers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tripledger/travel_backend/models"
	"github.com/tripledger/travel_backend/services"
)

// ReportController handles financial aggregation endpoints
type ReportController struct {
	reports *services.ReportService
}

// NewReportController creates a new report controller
func NewReportController(reports *services.ReportService) *ReportController {
	return &ReportController{reports: reports}
}

// GetFinancialSummary aggregates invoices, commissions and expenses over
// an optional from/to window (RFC 3339 or YYYY-MM-DD)
func (rc *ReportController) GetFinancialSummary(c echo.Context) error {
	from, err := parseDateParam(c.QueryParam("from"))
	if err != nil {
		return badRequest(c, "Invalid from date")
	}
	to, err := parseDateParam(c.QueryParam("to"))
	if err != nil {
		return badRequest(c, "Invalid to date")
	}

	summary, err := rc.reports.GetFinancialSummary(c.Request().Context(), from, to)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Financial summary retrieved successfully",
		Data:    summary,
	})
}

func parseDateParam(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}
