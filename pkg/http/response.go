package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// JSONResponse writes data as the response body.
func JSONResponse(c echo.Context, statusCode int, data interface{}) error {
	return c.JSON(statusCode, data)
}

// SuccessResponse writes a 200 with data.
func SuccessResponse(c echo.Context, data interface{}) error {
	return JSONResponse(c, http.StatusOK, data)
}

// NoContentResponse writes no content response.
func NoContentResponse(c echo.Context) error {
	return c.NoContent(http.StatusNoContent)
}

// BadRequestResponse writes a 400 with validation details.
func BadRequestResponse(c echo.Context, details []ValidationError) error {
	msg := "invalid request"
	if len(details) > 0 && details[0].Message != "" {
		msg = details[0].Message
	}
	return c.JSON(http.StatusBadRequest, ErrorBody{
		Error:   "ERR_BAD_REQUEST",
		Message: msg,
		Status:  http.StatusBadRequest,
		Details: details,
	})
}

// InternalServerErrorResponse writes internal server error.
func InternalServerErrorResponse(c echo.Context) error {
	return c.JSON(http.StatusInternalServerError, ErrorBody{
		Error:   "ERR_INTERNAL",
		Message: "Something went wrong",
		Status:  http.StatusInternalServerError,
	})
}

// AppErrorResponse writes application error response. Errors that are not
// an *AppError become a 500.
func AppErrorResponse(c echo.Context, err error) error {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return InternalServerErrorResponse(c)
	}
	body := ErrorBody{Error: appErr.Code, Message: appErr.Message, Status: appErr.Status}
	if appErr.Field != "" {
		body.Details = []ValidationError{{Code: appErr.Code, Field: appErr.Field, Message: appErr.Message, Params: appErr.Params}}
	}
	return c.JSON(appErr.Status, body)
}
