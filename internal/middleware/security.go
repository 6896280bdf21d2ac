package middleware

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

const apiContentPolicy = "default-src 'none'; frame-ancestors 'none'"

// SecureHeaders sets the headers every response carries, the served
// frontend included.
func SecureHeaders() echo.MiddlewareFunc {
	return echomw.SecureWithConfig(echomw.SecureConfig{
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		ReferrerPolicy:     "no-referrer",
	})
}

// APIContentPolicy forbids every content source. Mount it on JSON and text
// routes only: a page served under it cannot load its scripts.
func APIContentPolicy() echo.MiddlewareFunc {
	return echomw.SecureWithConfig(echomw.SecureConfig{
		ContentSecurityPolicy: apiContentPolicy,
	})
}
