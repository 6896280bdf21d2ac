package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/soaringjerry/modern360/internal/services"
)

var statusByCode = map[services.ErrorCode]int{
	services.ErrorInvalid:              http.StatusBadRequest,
	services.ErrorNotFound:             http.StatusNotFound,
	services.ErrorAlreadyCompleted:     http.StatusConflict,
	services.ErrorConflict:             http.StatusConflict,
	services.ErrorHasResponses:         http.StatusConflict,
	services.ErrorHasActiveInvolvement: http.StatusConflict,
	services.ErrorUnauthorized:         http.StatusUnauthorized,
	services.ErrorPersistence:          http.StatusInternalServerError,
	services.ErrorBadGateway:           http.StatusBadGateway,
}

// httpError maps service errors onto HTTP errors. Anything that is not a
// ServiceError is an internal failure.
func httpError(err error) error {
	if err == nil {
		return nil
	}
	se, ok := services.AsServiceError(err)
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)).WithInternal(err)
	}
	code, ok := statusByCode[se.Code]
	if !ok {
		code = http.StatusInternalServerError
	}
	return echo.NewHTTPError(code, se.Message).WithInternal(err)
}
