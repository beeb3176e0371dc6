package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fly8app/fly8_backend/models"
	"github.com/fly8app/fly8_backend/services"
)

// engineErrorResponse maps engine errors onto the HTTP surface:
// 400 validation/precondition, 404 unknown id, 409 conflict, 500 otherwise.
func engineErrorResponse(c echo.Context, err error) error {
	switch {
	case services.IsValidation(err), services.IsPrecondition(err):
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: err.Error(),
		})
	case services.IsNotFound(err):
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Resource not found",
		})
	case services.IsConflict(err):
		return c.JSON(http.StatusConflict, models.Response{
			Status:  http.StatusConflict,
			Message: err.Error(),
		})
	default:
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Internal server error",
			Data:    err.Error(),
		})
	}
}
