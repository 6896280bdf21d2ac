package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/soaringjerry/modern360/internal/middleware"
	"github.com/soaringjerry/modern360/internal/utils"
)

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Database  string    `json:"database"`
	Locale    string    `json:"locale"`
	Msg       string    `json:"msg"`
}

// GET /health
func (rt *Router) health(c echo.Context) error {
	ctx := c.Request().Context()
	locale := middleware.LocaleFromContext(ctx)
	resp := healthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Database:  "connected",
		Locale:    locale,
		Msg:       utils.T(locale, "health.ok"),
	}
	code := http.StatusOK
	if err := rt.store.Ping(ctx); err != nil {
		slog.WarnContext(ctx, "health check failed", "err", err)
		resp.Status = "unhealthy"
		resp.Database = "disconnected"
		resp.Msg = utils.T(locale, "health.db_down")
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, resp)
}

// GET /version
func (rt *Router) version(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"commit":     rt.opts.Commit,
		"build_time": rt.opts.BuildTime,
	})
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// POST /api/admin/login
func (rt *Router) login(c echo.Context) error {
	req, err := bindAndValidate[loginRequest](c)
	if err != nil {
		return err
	}
	res, err := rt.auth.Login(req.Username, req.Password)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, res)
}
