package db

import (
	"context"

	"github.com/pkg/errors"

	"github.com/soaringjerry/modern360/internal/services"
)

var (
	responseColumns = []string{"id", "assessment_id", "user_id", "invitation_id", "participant_id", "responses", "response_type", "submitted_at"}
	auditColumns    = []string{"id", "created_at", "actor", "action", "target", "note"}
)

func (s *Store) InsertResponse(ctx context.Context, r *services.Response) (int64, error) {
	ib := s.flavor.NewInsertBuilder()
	ib.InsertInto("responses").
		Cols("assessment_id", "user_id", "invitation_id", "participant_id", "responses", "response_type", "submitted_at").
		Values(r.AssessmentID, r.UserID, r.InvitationID, r.ParticipantID, r.Answers, string(r.Type), r.SubmittedAt.UTC())
	id, err := s.insert(ctx, ib)
	return id, errors.Wrap(err, "insert response")
}

func (s *Store) ListResponsesByAssessment(ctx context.Context, assessmentID int64) ([]*services.Response, error) {
	sb := s.flavor.NewSelectBuilder()
	sb.Select(responseColumns...).From("responses").
		Where(sb.Equal("assessment_id", assessmentID)).
		OrderBy("id")
	out := []*services.Response{}
	if err := s.selectAll(ctx, &out, sb); err != nil {
		return nil, errors.Wrap(err, "list responses")
	}
	return out, nil
}

func (s *Store) AssessmentCounts(ctx context.Context) ([]services.AssessmentCounts, error) {
	out := []services.AssessmentCounts{}
	err := s.rawSelect(ctx, &out, `SELECT a.id AS assessment_id,
		(SELECT COUNT(*) FROM invitations i WHERE i.assessment_id = a.id) AS invitations,
		(SELECT COUNT(*) FROM responses r WHERE r.assessment_id = a.id) AS responses
		FROM assessments a ORDER BY a.id`)
	return out, errors.Wrap(err, "count assessment activity")
}

func (s *Store) ListUserActivity(ctx context.Context) ([]services.UserActivity, error) {
	out := []services.UserActivity{}
	err := s.rawSelect(ctx, &out, `SELECT u.id AS user_id, u.name, u.email,
		(SELECT COUNT(*) FROM assessments a WHERE a.creator_id = u.id) AS assessments_created,
		(SELECT COUNT(*) FROM responses r WHERE r.user_id = u.id) AS responses_submitted,
		(SELECT COUNT(*) FROM invitations i WHERE i.sender_id = u.id) AS invitations_sent
		FROM users u ORDER BY u.id`)
	return out, errors.Wrap(err, "list user activity")
}

func (s *Store) AddAudit(ctx context.Context, e services.AuditEntry) error {
	ib := s.flavor.NewInsertBuilder()
	ib.InsertInto("audit_log").
		Cols("created_at", "actor", "action", "target", "note").
		Values(e.Time.UTC(), e.Actor, e.Action, e.Target, e.Note)
	_, err := s.exec(ctx, ib)
	return errors.Wrap(err, "add audit entry")
}

// ListAudit returns the latest limit entries in insertion order.
func (s *Store) ListAudit(ctx context.Context, limit int) ([]services.AuditEntry, error) {
	sb := s.flavor.NewSelectBuilder()
	sb.Select(auditColumns...).From("audit_log").OrderBy("id").Desc().Limit(limit)
	out := []services.AuditEntry{}
	if err := s.selectAll(ctx, &out, sb); err != nil {
		return nil, errors.Wrap(err, "list audit")
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
