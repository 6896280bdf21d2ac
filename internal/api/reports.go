package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func (rt *Router) reports(c echo.Context) error {
	summary, err := rt.analytics.Reports(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, summary)
}

// GET /api/admin/notifications lists pending invitations and overdue assessments.
func (rt *Router) notifications(c echo.Context) error {
	view, err := rt.invitations.Notifications(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, view)
}

func (rt *Router) listTemplates(c echo.Context) error {
	list, err := rt.templates.List(c.Request().Context(), c.QueryParam("language"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, list)
}

func (rt *Router) listAudit(c echo.Context) error {
	limit, err := queryInt(c, "limit")
	if err != nil {
		return err
	}
	list, err := rt.audit.List(c.Request().Context(), int(limit))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, list)
}
