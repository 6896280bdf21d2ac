package api

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/soaringjerry/modern360/internal/services"
)

// createAssessmentRequest clones the template pool unless questions are given.
type createAssessmentRequest struct {
	Title       string                    `json:"title" validate:"required,max=200"`
	Description string                    `json:"description"`
	CompanyID   int64                     `json:"company_id" validate:"required"`
	CreatorID   int64                     `json:"creator_id" validate:"required"`
	Deadline    string                    `json:"deadline"`
	Language    string                    `json:"language" validate:"omitempty,oneof=en bs"`
	Questions   []services.CustomQuestion `json:"questions"`
	AssesseeIDs []int64                   `json:"assessee_ids" validate:"required,min=1"`
	Assessors   []services.AssessorSpec   `json:"assessors" validate:"required,min=1"`
}

func (r *createAssessmentRequest) source() services.QuestionSource {
	if len(r.Questions) > 0 {
		return services.CustomQuestions{Language: r.Language, Questions: r.Questions}
	}
	return services.FromTemplate{Language: r.Language}
}

type updateAssessmentRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description"`
	CompanyID   int64  `json:"company_id" validate:"required"`
	Deadline    string `json:"deadline"`
	IsActive    *bool  `json:"is_active"`
}

type addParticipantRequest struct {
	AssesseeID int64                   `json:"assessee_id" validate:"required"`
	Assessors  []services.AssessorSpec `json:"assessors"`
}

func (rt *Router) listAssessments(c echo.Context) error {
	companyID, err := queryInt(c, "company_id")
	if err != nil {
		return err
	}
	list, err := rt.assessments.ListAssessments(c.Request().Context(), companyID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, list)
}

func (rt *Router) createAssessment(c echo.Context) error {
	req, err := bindAndValidate[createAssessmentRequest](c)
	if err != nil {
		return err
	}
	created, err := rt.assessments.CreateAssessment(c.Request().Context(), services.CreateAssessmentInput{
		Title:       req.Title,
		Description: req.Description,
		CompanyID:   req.CompanyID,
		CreatorID:   req.CreatorID,
		Deadline:    req.Deadline,
		Source:      req.source(),
		AssesseeIDs: req.AssesseeIDs,
		Assessors:   req.Assessors,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (rt *Router) getAssessment(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	detail, err := rt.assessments.GetAssessment(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, detail)
}

// PUT /api/admin/assessments/:id. An omitted is_active keeps the current state.
func (rt *Router) updateAssessment(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	req, err := bindAndValidate[updateAssessmentRequest](c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	} else {
		current, err := rt.assessments.GetAssessment(ctx, id)
		if err != nil {
			return httpError(err)
		}
		active = current.Assessment.IsActive
	}
	updated, err := rt.assessments.UpdateAssessment(ctx, id, services.UpdateAssessmentInput{
		Title:       req.Title,
		Description: req.Description,
		CompanyID:   req.CompanyID,
		Deadline:    req.Deadline,
		IsActive:    active,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (rt *Router) deleteAssessment(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := rt.assessments.DeleteAssessment(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (rt *Router) listParticipants(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	list, err := rt.participants.ListParticipants(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, list)
}

func (rt *Router) addParticipant(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	req, err := bindAndValidate[addParticipantRequest](c)
	if err != nil {
		return err
	}
	rows, err := rt.participants.AddParticipant(c.Request().Context(), id, req.AssesseeID, req.Assessors)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, rows)
}

func (rt *Router) removeParticipant(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	pid, err := pathID(c, "pid")
	if err != nil {
		return err
	}
	if err := rt.participants.RemoveParticipant(c.Request().Context(), id, pid); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (rt *Router) availableAssessors(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	assesseeID, err := pathID(c, "assesseeId")
	if err != nil {
		return err
	}
	users, err := rt.participants.AvailableAssessors(c.Request().Context(), id, assesseeID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, users)
}

// GET /api/admin/assessments/:id/export?format=csv|detailed
func (rt *Router) exportAssessment(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	res, err := rt.exports.Export(c.Request().Context(), id, services.ExportFormat(c.QueryParam("format")))
	if err != nil {
		return httpError(err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", res.Filename))
	return c.Blob(http.StatusOK, res.ContentType, res.Data)
}

func (rt *Router) assessmentReport(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	report, err := rt.exports.AssessmentReport(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, report)
}
