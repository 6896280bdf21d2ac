package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/soaringjerry/modern360/internal/services"
)

type issueInvitationsRequest struct {
	SenderID int64 `json:"sender_id"`
}

type sendInvitationsRequest struct {
	AssessmentID int64  `json:"assessment_id" validate:"required"`
	Emails       string `json:"emails" validate:"required"`
	SenderID     int64  `json:"sender_id"`
}

type bulkDeleteRequest struct {
	IDs []int64 `json:"ids" validate:"required,min=1,dive,gt=0"`
}

// POST /api/admin/assessments/:id/invitations invites every participant.
func (rt *Router) issueInvitations(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	req, err := bindAndValidate[issueInvitationsRequest](c)
	if err != nil {
		return err
	}
	summary, err := rt.invitations.IssueInvitations(c.Request().Context(), id, req.SenderID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, summary)
}

func (rt *Router) listInvitations(c echo.Context) error {
	list, err := rt.invitations.ListInvitations(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, list)
}

func (rt *Router) sendInvitations(c echo.Context) error {
	req, err := bindAndValidate[sendInvitationsRequest](c)
	if err != nil {
		return err
	}
	summary, err := rt.invitations.SendInvitations(c.Request().Context(), services.BulkInviteInput{
		AssessmentID: req.AssessmentID,
		Emails:       req.Emails,
		SenderID:     req.SenderID,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, summary)
}

func (rt *Router) deleteInvitation(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := rt.invitations.DeleteInvitation(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (rt *Router) bulkDeleteInvitations(c echo.Context) error {
	req, err := bindAndValidate[bulkDeleteRequest](c)
	if err != nil {
		return err
	}
	n, err := rt.invitations.BulkDeleteInvitations(c.Request().Context(), req.IDs)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]int64{"deleted": n})
}

func (rt *Router) sendReminder(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := rt.invitations.SendReminder(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "sent"})
}
