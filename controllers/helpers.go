package controllers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tripledger/travel_backend/models"
	"github.com/tripledger/travel_backend/services"
)

// respondError maps the service error taxonomy onto HTTP statuses.
func respondError(c echo.Context, err error) error {
	var (
		validation  *services.ValidationError
		notFound    *services.NotFoundError
		conflict    *services.ConflictError
		consistency *services.ConsistencyError
		gateway     *services.ExternalGatewayError
	)

	switch {
	case errors.As(err, &validation):
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: validation.Error(),
		})
	case errors.As(err, &notFound):
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: notFound.Error(),
		})
	case errors.As(err, &conflict):
		return c.JSON(http.StatusConflict, models.Response{
			Status:  http.StatusConflict,
			Message: conflict.Error(),
		})
	case errors.As(err, &consistency):
		return c.JSON(http.StatusUnprocessableEntity, models.Response{
			Status:  http.StatusUnprocessableEntity,
			Message: consistency.Error(),
		})
	case errors.As(err, &gateway):
		return c.JSON(http.StatusBadGateway, models.Response{
			Status:  http.StatusBadGateway,
			Message: gateway.Error(),
		})
	default:
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Internal server error",
		})
	}
}

func badRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, models.Response{
		Status:  http.StatusBadRequest,
		Message: message,
	})
}
