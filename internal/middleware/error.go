package middleware

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/soaringjerry/modern360/internal/utils"
)

type ErrorResponse struct {
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorHandler renders every error as an ErrorResponse. Internal causes are
// logged and never sent to the client.
func ErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		ctx := c.Request().Context()

		code := http.StatusInternalServerError
		message := http.StatusText(code)
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if msg, ok := he.Message.(string); ok {
				message = msg
			} else {
				message = http.StatusText(code)
			}
			if he.Internal != nil {
				err = he.Internal
			}
		}
		if code == http.StatusInternalServerError {
			message = utils.T(LocaleFromContext(ctx), "error.internal")
		}
		if code >= 500 {
			logger.ErrorContext(ctx, "api is returning an error", "err", err, "status", code)
		} else {
			logger.DebugContext(ctx, "request rejected", "err", err, "status", code)
		}

		resp := ErrorResponse{Message: message, RequestID: RequestIDFromContext(ctx)}
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, resp)
		}
		if err != nil {
			logger.ErrorContext(ctx, "write error response", "err", err)
		}
	}
}
