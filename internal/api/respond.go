package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/soaringjerry/modern360/internal/services"
)

type submitResponseRequest struct {
	Responses     map[string]any `json:"responses" validate:"required"`
	ParticipantID *int64         `json:"participant_id"`
}

// GET /api/respond/:token
func (rt *Router) respondContext(c echo.Context) error {
	rc, err := rt.responses.RespondContext(c.Request().Context(), c.Param("token"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, rc)
}

// POST /api/respond/:token
func (rt *Router) submitResponse(c echo.Context) error {
	req, err := bindAndValidate[submitResponseRequest](c)
	if err != nil {
		return err
	}
	resp, err := rt.responses.SubmitResponse(c.Request().Context(), services.SubmitResponseInput{
		Token:         c.Param("token"),
		Answers:       req.Responses,
		ParticipantID: req.ParticipantID,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"status":        "submitted",
		"response_id":   resp.ID,
		"response_type": resp.Type,
	})
}
